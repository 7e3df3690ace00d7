package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"quietlog/internal/config"
	"quietlog/internal/constants"
	"quietlog/internal/correlation"
	"quietlog/internal/logger"
	"quietlog/internal/queue"
	"quietlog/internal/source"
	"quietlog/pkg/bootstrap"
	pkgerrors "quietlog/pkg/errors"
	"quietlog/pkg/health"
	"quietlog/pkg/logging"
	"quietlog/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	args        []string
	stdin       io.Reader
	out         io.Writer
	interactive bool
	closers     []func()
	events      *queue.Queue[correlation.Event]
	engine      *correlation.Engine
	ticker      *source.Ticker
	command     *source.CommandSource
	input       *source.LineSource
	server      *http.Server
	fatal       chan error
}

// NewApp wires a run over args, which name the child command and its
// arguments, or are empty to read stdin. interactive marks a terminal stdin.
func NewApp(cfg *config.Config, log logger.Logger, args []string, interactive bool) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		args:        args,
		stdin:       os.Stdin,
		out:         os.Stdout,
		interactive: interactive,
		fatal:       make(chan error, 1),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	settings, err := correlation.NewSettings(a.Config.Correlation)
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}

	metrics.RegisterCorrelatorMetrics()

	a.events = queue.New[correlation.Event]()
	a.engine = correlation.NewEngine(settings, a.out, a.Logger)
	a.ticker = source.NewTicker(a.Config.Correlation.CleanupInterval(), a.events)

	if err := a.initSource(ctx); err != nil {
		return fmt.Errorf("failed to initialize input: %w", err)
	}

	if a.Config.Metrics.ListenAddr != "" {
		registry := health.NewCheckerRegistry()
		registry.Register(health.NewEngineChecker(a.engine))
		registry.Register(health.NewBacklogChecker(a.events, constants.QueueBacklogWarnThreshold))
		a.server = bootstrap.NewObservabilityServer(a.Config.Metrics.ListenAddr, registry)
	}

	return nil
}

func (a *App) initSource(ctx context.Context) error {
	if len(a.args) == 0 {
		var input io.Reader = a.stdin
		if a.Config.Input.AutoDecompress && !a.interactive {
			r, encoding, closeFn, err := source.Decompress(a.stdin)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, closeFn)
			input = r
			a.Logger.DebugwCtx(logging.WithSource(ctx, constants.SourceStdin), "Input encoding detected", "encoding", encoding)
		}
		a.input = source.NewLineSource(constants.SourceStdin, input, a.events, a.Logger)
		return nil
	}

	a.command = source.NewCommandSource(a.args[0], a.args[1:], a.events, a.Logger)
	if err := a.command.Start(); err != nil {
		return err
	}
	a.Logger.DebugwCtx(logging.WithSource(ctx, constants.SourceCommand), "Command started",
		"command", a.args[0],
		"pid", a.command.Pid(),
	)
	return nil
}

// SourceName names the active line source.
func (a *App) SourceName() string {
	if a.command != nil {
		return constants.SourceCommand
	}
	return constants.SourceStdin
}

// Run returns nil once the input is exhausted and the engine has seen the
// end-of-stream marker. A canceled ctx stops the engine without draining.
func (a *App) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	// A blocked read on stdin cannot be interrupted, so the line producer is
	// not part of the group. Its failures reach the group through a.fatal.
	go a.produceLines()

	g.Go(func() error {
		defer stop()
		return pkgerrors.Guard(func() error {
			return a.engine.Run(gCtx, a.events)
		})
	})

	g.Go(func() error {
		return pkgerrors.Guard(func() error {
			return a.ticker.Run(gCtx)
		})
	})

	g.Go(func() error {
		select {
		case err := <-a.fatal:
			return err
		case <-gCtx.Done():
			return nil
		}
	})

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(gCtx, "Metrics server starting", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	a.events.Close()
	return err
}

func (a *App) produceLines() {
	err := pkgerrors.Guard(func() error {
		if a.command != nil {
			return a.command.Run()
		}
		return a.input.Run()
	})
	if err == nil {
		return
	}

	select {
	case a.fatal <- err:
	default:
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error
		for _, closeFn := range a.closers {
			closeFn()
		}
		if err := a.Logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			errs = append(errs, fmt.Errorf("logger sync error: %w", err))
		}
		return errs
	})
}

// isIgnorableSyncError reports the errors fsync gives for terminals and
// pipes, which zap surfaces when syncing stderr.
func isIgnorableSyncError(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}
