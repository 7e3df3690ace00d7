package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"quietlog/internal/constants"
	"quietlog/internal/logger"
	"quietlog/pkg/logging"
)

// CommandSource runs a child process and feeds its stdout through a
// LineSource. The child shares the terminal's process group, so it gets the
// same interrupt signals and is not killed explicitly.
type CommandSource struct {
	cmd    *exec.Cmd
	sink   Sink
	logger logger.Logger
	lines  *LineSource
}

func NewCommandSource(name string, args []string, sink Sink, log logger.Logger) *CommandSource {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	return &CommandSource{
		cmd:    cmd,
		sink:   sink,
		logger: log,
	}
}

// Start spawns the child. Failure to spawn is fatal to the run.
func (s *CommandSource) Start() error {
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to capture stdout of %s: %w", s.cmd.Path, err)
	}
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.cmd.Path, err)
	}

	s.lines = NewLineSource(constants.SourceCommand, stdout, s.sink, s.logger)
	return nil
}

// Run forwards the child's output until it closes stdout, then reaps the
// child. A non-zero exit status is logged, not returned.
func (s *CommandSource) Run() error {
	if s.lines == nil {
		return fmt.Errorf("command source not started")
	}

	readErr := s.lines.Run()

	ctx := logging.WithSource(context.Background(), constants.SourceCommand)
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger.WarnwCtx(ctx, "Command exited with non-zero status",
				"command", s.cmd.Path,
				"exit_code", exitErr.ExitCode(),
			)
		} else {
			s.logger.ErrorwCtx(ctx, "Failed to wait for command", "command", s.cmd.Path, "error", err)
		}
	} else {
		s.logger.DebugwCtx(ctx, "Command exited", "command", s.cmd.Path)
	}

	return readErr
}

// Pid returns the child's process id, or 0 before Start.
func (s *CommandSource) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}
