package correlation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"quietlog/internal/config"
	"quietlog/internal/constants"
	"quietlog/internal/logger"
	"quietlog/pkg/cel"
	pkgerrors "quietlog/pkg/errors"
	"quietlog/pkg/logging"
	"quietlog/pkg/metrics"
)

// Settings is the compiled form of the correlation configuration.
type Settings struct {
	IDField    string
	Timeout    time.Duration
	Flush      RuleSet
	Completion RuleSet
}

// NewSettings compiles every rule in cfg. Any invalid matcher is returned
// as an INVALID_RULE error.
func NewSettings(cfg config.CorrelationConfig) (Settings, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return Settings{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	flush, err := CompileRuleSet(cfg.FlushTriggers, evaluator)
	if err != nil {
		return Settings{}, fmt.Errorf("flush_triggers: %w", err)
	}

	completion, err := CompileRuleSet(cfg.CompletionTriggers, evaluator)
	if err != nil {
		return Settings{}, fmt.Errorf("completion_triggers: %w", err)
	}

	return Settings{
		IDField:    cfg.IDField,
		Timeout:    cfg.Timeout(),
		Flush:      flush,
		Completion: completion,
	}, nil
}

// EventSource is the consumer side of the event queue.
type EventSource interface {
	Pop(ctx context.Context) (Event, error)
	Len() int
}

type Option func(*Engine)

// WithClock replaces the clock used to stamp incoming records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine is the single consumer of the event queue. It owns the Store and
// the output writer; nothing else touches either.
type Engine struct {
	settings Settings
	parser   *Parser
	store    *Store
	out      *bufio.Writer
	log      logger.Logger
	now      func() time.Time
	running  atomic.Bool

	backlogLimiter *rate.Limiter
}

func NewEngine(settings Settings, out io.Writer, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		settings:       settings,
		parser:         NewParser(settings.IDField),
		store:          NewStore(settings.Timeout),
		out:            bufio.NewWriter(out),
		log:            log,
		now:            time.Now,
		backlogLimiter: rate.NewLimiter(rate.Every(constants.QueueBacklogWarnInterval), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether Run is currently consuming events.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Active returns the number of live transactions.
func (e *Engine) Active() int {
	return e.store.Len()
}

// Run consumes events until a Shutdown event, a fatal error, or ctx is
// done. Events queued behind a Shutdown are left unprocessed.
func (e *Engine) Run(ctx context.Context, events EventSource) error {
	e.running.Store(true)
	defer e.running.Store(false)

	for {
		ev, err := events.Pop(ctx)
		if err != nil {
			if pkgerrors.IsQueueClosed(err) {
				return fmt.Errorf("event queue closed before shutdown: %w", err)
			}
			return err
		}

		e.observeBacklog(ctx, events.Len())

		stop, err := e.Handle(ctx, ev)
		if err != nil {
			return err
		}
		if stop {
			e.log.DebugwCtx(ctx, "Shutdown event received", "active_transactions", e.store.Len())
			return nil
		}
	}
}

// Handle processes a single event. stop is true for a Shutdown event.
func (e *Engine) Handle(ctx context.Context, ev Event) (stop bool, err error) {
	switch ev.Kind {
	case EventLine:
		if err := e.HandleLine(ctx, ev.Line); err != nil {
			return false, err
		}
		if err := e.out.Flush(); err != nil {
			return false, fmt.Errorf("failed to flush output: %w", err)
		}
	case EventCleanup:
		e.Sweep(ctx, ev.Now)
	case EventShutdown:
		return true, nil
	default:
		return false, pkgerrors.ErrInternal.WithDetail("message", fmt.Sprintf("unknown event kind %d", ev.Kind))
	}

	metrics.SetActiveTransactions(e.store.Len())
	return false, nil
}

// HandleLine runs one raw line through the per-transaction state machine.
// Lines that cannot be correlated are written straight through.
func (e *Engine) HandleLine(ctx context.Context, raw string) error {
	rec, err := e.parser.Parse(raw, e.now().UnixMilli())
	if err != nil {
		if !pkgerrors.IsUnparseable(err) {
			return err
		}
		e.log.DebugwCtx(ctx, "Passing through uncorrelated line", "error", err)
		metrics.IncLines(constants.OutcomeUnparseable)
		return e.emit(raw)
	}

	ctx = logging.WithCorrelationID(ctx, rec.CorrelationID)
	trx, created := e.store.GetOrCreate(rec.CorrelationID)
	if created {
		e.log.DebugwCtx(ctx, "Transaction started")
	}

	flushed, completed := Evaluate(rec, e.settings.Flush, e.settings.Completion)

	switch {
	case trx.Triggered():
		metrics.IncLines(constants.OutcomePassthrough)
		if err := e.emit(rec.Raw); err != nil {
			return err
		}
	case flushed:
		buffered := trx.Trigger()
		metrics.IncLines(constants.OutcomeFlushed)
		metrics.IncTransactionsTriggered()
		e.log.DebugwCtx(ctx, "Transaction triggered", "buffered", len(buffered))
		for _, r := range buffered {
			if err := e.emit(r.Raw); err != nil {
				return err
			}
		}
		if err := e.emit(rec.Raw); err != nil {
			return err
		}
	default:
		trx.Add(rec)
		metrics.IncLines(constants.OutcomeBuffered)
	}

	if completed {
		if discarded := trx.Len(); discarded > 0 {
			metrics.AddRecordsDiscarded(discarded)
		}
		e.store.Remove(rec.CorrelationID)
		metrics.IncTransactionsCompleted()
		e.log.DebugwCtx(ctx, "Transaction completed", "triggered", trx.Triggered())
	}
	return nil
}

// Sweep silently drops every transaction idle for longer than the timeout
// and returns how many were dropped.
func (e *Engine) Sweep(ctx context.Context, now int64) int {
	start := time.Now()
	evicted := e.store.Sweep(now)
	metrics.ObserveSweepDuration(time.Since(start))

	for _, ev := range evicted {
		metrics.ObserveEviction(ev.Discarded)
		e.log.DebugwCtx(logging.WithCorrelationID(ctx, ev.ID), "Transaction expired", "discarded", ev.Discarded)
	}
	return len(evicted)
}

func (e *Engine) emit(line string) error {
	if _, err := e.out.WriteString(line); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := e.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	metrics.AddLinesWritten(1)
	return nil
}

func (e *Engine) observeBacklog(ctx context.Context, depth int) {
	metrics.SetEventQueueSize(depth)
	if depth > constants.QueueBacklogWarnThreshold && e.backlogLimiter.Allow() {
		e.log.WarnwCtx(ctx, "Event queue backlog is growing", "depth", depth)
	}
}
