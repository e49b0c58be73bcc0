package httpserver

import (
	"context"
	"fmt"

	"github.com/circleci/visits/system"
)

// Load creates the server and registers it, and its connection gauges, with sys.
func Load(ctx context.Context, cfg Config, sys *system.System) (*HTTPServer, error) {
	server, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error starting %q server: %w", cfg.Name, err)
	}

	timeout := cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = defaultShutdownTimeout
	}
	sys.AddService(func(ctx context.Context) error {
		return server.serve(ctx, timeout)
	})
	sys.AddMetrics(server.MetricsProducer())
	return server, nil
}
