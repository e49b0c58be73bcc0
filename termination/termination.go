// Package termination turns process signals into the error that ends a System run.
package termination

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/circleci/visits/o11y"
)

var ErrTerminated = errors.New("terminated")

// Handle blocks until the process receives SIGINT or SIGTERM, then waits delay
// before returning ErrTerminated, giving load balancers time to stop sending
// traffic. It returns nil if ctx is done first.
func Handle(ctx context.Context, delay time.Duration) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		o11y.Log(ctx, "termination: signal received",
			o11y.Field("signal", sig.String()),
			o11y.Field("delay", delay.String()),
		)
	case <-ctx.Done():
		return nil
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
	return ErrTerminated
}
