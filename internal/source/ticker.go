package source

import (
	"context"
	"fmt"
	"time"

	"quietlog/internal/correlation"
	"quietlog/pkg/errors"
)

// Ticker emits a Cleanup event stamped with the wall clock every interval
// until ctx is done or the queue is closed.
type Ticker struct {
	interval time.Duration
	sink     Sink
	now      func() time.Time
}

func NewTicker(interval time.Duration, sink Sink) *Ticker {
	return &Ticker{
		interval: interval,
		sink:     sink,
		now:      time.Now,
	}
}

func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := t.sink.Push(correlation.CleanupEvent(t.now().UnixMilli()))
			if errors.IsQueueClosed(err) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("ticker: failed to push cleanup: %w", err)
			}
		}
	}
}
