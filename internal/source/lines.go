// Package source produces the events consumed by the correlation engine:
// input lines from stdin or a child process, and periodic cleanup ticks.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"quietlog/internal/correlation"
	"quietlog/internal/logger"
	"quietlog/pkg/logging"
)

// Sink is the producer side of the event queue.
type Sink interface {
	Push(ev correlation.Event) error
}

// LineSource turns a newline-delimited stream into Line events followed by
// a single Shutdown event.
type LineSource struct {
	name   string
	reader io.Reader
	sink   Sink
	logger logger.Logger
}

func NewLineSource(name string, r io.Reader, sink Sink, log logger.Logger) *LineSource {
	return &LineSource{
		name:   name,
		reader: r,
		sink:   sink,
		logger: log,
	}
}

// Run reads until end of stream. A read error ends the stream like EOF
// does, after being logged. The only error returned is a failed push.
func (s *LineSource) Run() error {
	ctx := logging.WithSource(context.Background(), s.name)
	reader := bufio.NewReaderSize(s.reader, 64*1024)

	var count int
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			if pushErr := s.sink.Push(correlation.LineEvent(line)); pushErr != nil {
				return fmt.Errorf("%s: failed to push line: %w", s.name, pushErr)
			}
			count++
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.ErrorwCtx(ctx, "Failed to read input", "error", err, "lines", count)
			} else {
				s.logger.DebugwCtx(ctx, "Input stream ended", "lines", count)
			}
			break
		}
	}

	if err := s.sink.Push(correlation.ShutdownEvent()); err != nil {
		return fmt.Errorf("%s: failed to push shutdown: %w", s.name, err)
	}
	return nil
}
