package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/recontext"
	"github.com/circleci/visits/system"
)

const defaultShutdownTimeout = 10 * time.Second

type HTTPServer struct {
	name     string
	listener *trackedListener
	server   *http.Server
}

type Config struct {
	// Name is the name of the server in o11y
	Name string
	// Addr is the address to listen on
	Addr string
	// Handler is the HTTP handler to delegate requests to.
	Handler http.Handler

	// Optional
	// Network must be "tcp", "tcp4", "tcp6", "unix" or "" (which defaults to tcp).
	Network string
	// ShutdownTimeout bounds how long in-flight requests get once shutdown starts, default 10s.
	ShutdownTimeout time.Duration
}

// New starts listening on the configured address. Requests are not served until Serve is called.
func New(ctx context.Context, cfg Config) (s *HTTPServer, err error) {
	_, span := o11y.StartSpan(ctx, "server: new-server "+cfg.Name)
	defer o11y.End(span, &err)
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	span.AddField("server_name", cfg.Name)
	span.AddField("network", cfg.Network)

	ln, err := net.Listen(cfg.Network, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %q: %w", cfg.Network, cfg.Addr, err)
	}
	span.AddField("address", ln.Addr().String())

	return &HTTPServer{
		name: cfg.Name,
		listener: &trackedListener{
			Listener: ln,
			name:     cfg.Name,
		},
		server: &http.Server{
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       55 * time.Second,
			WriteTimeout:      55 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				return context.WithoutCancel(ctx)
			},
		},
	}, nil
}

// Serve the http server. On context cancellation the server is shutdown giving some time
// for the in flight requests to be handled.
func (s *HTTPServer) Serve(ctx context.Context) error {
	return s.serve(ctx, defaultShutdownTimeout)
}

func (s *HTTPServer) serve(ctx context.Context, shutdownTimeout time.Duration) error {
	o11y.Log(ctx, "server: serving", o11y.Field("server_name", s.name), o11y.Field("address", s.Addr()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown(ctx, shutdownTimeout)
	})

	g.Go(func() error {
		err := s.server.Serve(s.listener)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (s *HTTPServer) shutdown(ctx context.Context, timeout time.Duration) (err error) {
	ctx, cancel := recontext.WithNewTimeout(ctx, timeout)
	defer cancel()
	ctx, span := o11y.StartSpan(ctx, "server: shutdown")
	defer o11y.End(span, &err)
	span.AddField("server_name", s.name)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) MetricsProducer() system.MetricProducer {
	return s.listener
}

func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}
