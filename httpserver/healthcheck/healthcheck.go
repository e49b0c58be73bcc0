package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/circleci/visits/httpserver"
	"github.com/circleci/visits/httpserver/ginrouter"
	"github.com/circleci/visits/system"
)

type API struct {
	router *gin.Engine
}

// New builds the admin API. A nil gatherer exposes the default Prometheus registry.
func New(ctx context.Context, checked []system.HealthChecker, gatherer prometheus.Gatherer) (*API, error) {
	r := ginrouter.Default(ctx, "admin")

	heathLive, heathReady, err := newHealthHandlers(checked)
	if err != nil {
		return nil, fmt.Errorf("failed to create health checks: %w", err)
	}

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.GET("/live", gin.WrapH(heathLive.Handler()))
	r.GET("/ready", gin.WrapH(heathReady.Handler()))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/debug/pprof/*profile", profile)

	return &API{router: r}, nil
}

func (a *API) Handler() http.Handler {
	return a.router
}

// Load serves the admin API on addr, checking everything registered with sys.
func Load(ctx context.Context, addr string, gatherer prometheus.Gatherer, sys *system.System) (*httpserver.HTTPServer, error) {
	adminAPI, err := New(ctx, sys.HealthChecks(), gatherer)
	if err != nil {
		return nil, fmt.Errorf("error creating health check API: %w", err)
	}

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "admin",
		Addr:    addr,
		Handler: adminAPI.Handler(),
	}, sys)
}

func profile(c *gin.Context) {
	switch strings.TrimPrefix(c.Param("profile"), "/") {
	case "cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "profile":
		pprof.Profile(c.Writer, c.Request)
	case "symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		// Index serves the named runtime profiles too
		pprof.Index(c.Writer, c.Request)
	}
}

func newHealthHandlers(checked []system.HealthChecker) (*health.Health, *health.Health, error) {
	heathLive, err := health.New()
	if err != nil {
		return nil, nil, err
	}

	heathReady, err := health.New()
	if err != nil {
		return nil, nil, err
	}

	for _, c := range checked {
		name, ready, live := c.HealthChecks()

		if ready != nil {
			err = heathReady.Register(health.Config{
				Name:      name,
				Timeout:   time.Second * 5,
				SkipOnErr: false,
				Check:     ready,
			})
			if err != nil {
				return nil, nil, err
			}
		}

		if live != nil {
			err = heathLive.Register(health.Config{
				Name:      name,
				Timeout:   time.Second * 5,
				SkipOnErr: false,
				Check:     live,
			})
			if err != nil {
				return nil, nil, err
			}
		}
	}

	return heathLive, heathReady, nil
}
