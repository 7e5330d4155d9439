package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/reliability/retry"
)

// SuperviseConfig restarts a consumer without an attempt limit, backing
// off up to 30s between restarts.
func SuperviseConfig() *retry.Config {
	return &retry.Config{
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2,
	}
}

// Supervise runs a long-lived consumer until ctx is done. Whenever run
// fails it is started again after a backoff; a nil return ends it.
func Supervise(ctx context.Context, cfg *retry.Config, logger *slog.Logger, name string, run func(context.Context) error) {
	if logger == nil {
		logger = slog.Default()
	}
	_, err := retry.Do(ctx, cfg, logger, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, run(ctx)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", slog.String("consumer", name), slog.String("error", err.Error()))
	}
}
