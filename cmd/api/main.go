package main

import (
	"context"
	"errors"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/circleci/visits/api"
	"github.com/circleci/visits/cmd"
	"github.com/circleci/visits/cmd/setup"
	"github.com/circleci/visits/httpserver"
	"github.com/circleci/visits/httpserver/healthcheck"
	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/session"
	"github.com/circleci/visits/system"
	"github.com/circleci/visits/termination"
)

type cli struct {
	setup.CLI

	ShutdownDelay time.Duration `env:"SHUTDOWN_DELAY" default:"5s" help:"Delay shutdown by this amount" hidden:""`
	APIAddr       string        `env:"API_ADDR" default:"0.0.0.0:3000" help:"The address for the API to listen on"`
	AssetsDir     string        `env:"ASSETS_DIR" default:"assets" help:"Directory of static files served under /assets"`
}

func main() {
	c := cli{}
	kong.Parse(&c)

	err := run(c, cmd.Version, cmd.Date)
	if err != nil && !errors.Is(err, termination.ErrTerminated) {
		log.Fatal("Unexpected Error: ", err)
	}
	log.Println("exited 0")
}

func run(cli cli, version, date string) (err error) {
	ctx, o11yCleanup, err := setup.LoadO11y(version, "api", cli.CLI)
	if err != nil {
		return err
	}
	defer o11yCleanup(ctx)

	ctx, runSpan := o11y.StartSpan(ctx, "main: run")
	defer o11y.End(runSpan, &err)

	o11y.Log(ctx, "starting api",
		o11y.Field("version", version),
		o11y.Field("date", date),
	)

	sys := system.New()
	defer sys.Cleanup(ctx)

	_, err = loadAPI(ctx, cli, sys, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	// Should be last so it collects all the health checks
	_, err = healthcheck.Load(ctx, cli.AdminAddr, prometheus.DefaultGatherer, sys)
	if err != nil {
		return err
	}

	return sys.Run(ctx, cli.ShutdownDelay)
}

func loadAPI(ctx context.Context, cli cli, sys *system.System, reg prometheus.Registerer) (*httpserver.HTTPServer, error) {
	client, err := setup.LoadRedis(ctx, cli.CLI, sys)
	if err != nil {
		return nil, err
	}

	a := api.New(ctx, api.Options{
		Sessions:      session.NewRedisStore(client),
		SessionConfig: setup.SessionConfig(cli.CLI, session.NewMetrics(reg)),
		AssetsDir:     cli.AssetsDir,
	})

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "api",
		Addr:    cli.APIAddr,
		Handler: a.Handler(),
	}, sys)
}
