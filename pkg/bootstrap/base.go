package bootstrap

import (
	"context"
	"fmt"

	"quietlog/internal/config"
	"quietlog/internal/logger"
)

type Base struct {
	Config *config.Config
	Logger logger.Logger
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// Shutdown runs additionalShutdown and joins whatever errors it reports.
func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Debug("Shutting down...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Debug("Shutdown complete")
	return nil
}
