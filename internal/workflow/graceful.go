package workflow

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imtaco/bedrud-client/internal/log"
)

type CleanupFunc func(ctx context.Context)

// Run executes fn with a context cancelled on SIGINT/SIGTERM, then runs
// cleanup bounded by timeout regardless of how fn finished.
func Run(
	ctx context.Context,
	logger *log.Logger,
	fn func(ctx context.Context) error,
	cleanup CleanupFunc,
	timeout time.Duration,
) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := fn(ctx)
	if ctx.Err() != nil {
		logger.Info("interrupted")
	}
	if cleanup != nil {
		shutdown(logger, cleanup, timeout)
	}
	return err
}

func shutdown(logger *log.Logger, cleanup CleanupFunc, timeout time.Duration) {
	ctxClean, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic during cleanup", log.Any("error", r))
			}
		}()
		cleanup(ctxClean)
	}()

	select {
	case <-ctxClean.Done():
		logger.Warn("cleanup timeout exceeded")
	case <-done:
		logger.Debug("cleanup completed")
	}
}
