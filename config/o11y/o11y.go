// Package o11y wires up the o11y provider for the service: honeycomb events to
// stderr (and optionally honeycomb), statsd metrics and rollbar error reporting.
package o11y

import (
	"context"
	"fmt"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rollbar/rollbar-go"

	"github.com/circleci/visits/config/secret"
	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/o11y/honeycomb"
)

type Config struct {
	Statsd            string
	RollbarToken      secret.String
	RollbarEnv        string
	RollbarServerRoot string
	HoneycombEnabled  bool
	HoneycombDataset  string
	HoneycombKey      secret.String
	SampleTraces      bool
	SampleKeyFunc     func(map[string]interface{}) string
	SampleRates       map[string]int
	Format            string
	Version           string
	Service           string
	StatsNamespace    string

	// Optional
	Mode                    string
	Debug                   bool
	RollbarDisabled         bool
	StatsdTelemetryDisabled bool
}

// Setup initialises the o11y provider and returns a context carrying it, along with
// the func that flushes and closes it on shutdown.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	honeyConfig, err := honeyComb(o)
	if err != nil {
		return nil, nil, err
	}

	hostname, _ := os.Hostname()

	if o.Statsd == "" {
		honeyConfig.Metrics = &statsd.NoOpClient{}
	} else {
		tags := []string{
			"service:" + o.Service,
			"version:" + o.Version,
			"hostname:" + hostname,
		}
		if o.Mode != "" {
			tags = append(tags, "mode:"+o.Mode)
		}

		statsdOpts := []statsd.Option{
			statsd.WithNamespace(o.StatsNamespace),
			statsd.WithTags(tags),
		}
		if o.StatsdTelemetryDisabled {
			statsdOpts = append(statsdOpts, statsd.WithoutTelemetry())
		}

		stats, err := statsd.New(o.Statsd, statsdOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("statsd: %w", err)
		}
		honeyConfig.Metrics = stats
	}

	provider := honeycomb.New(honeyConfig)
	provider.AddGlobalField("service", o.Service)
	provider.AddGlobalField("version", o.Version)
	if o.Mode != "" {
		provider.AddGlobalField("mode", o.Mode)
	}

	if o.RollbarToken != "" {
		client := rollbar.NewAsync(o.RollbarToken.Raw(), o.RollbarEnv, o.Version, hostname, o.RollbarServerRoot)
		client.SetEnabled(!o.RollbarDisabled)
		client.Message(rollbar.INFO, "Deployment")
		provider = rollbarProvider{
			Provider:      provider,
			rollbarClient: client,
		}
	}

	return o11y.WithProvider(ctx, provider), provider.Close, nil
}

type rollbarProvider struct {
	o11y.Provider
	rollbarClient *rollbar.Client
}

func (p rollbarProvider) Close(ctx context.Context) {
	p.Provider.Close(ctx)
	_ = p.rollbarClient.Close()
}

func (p rollbarProvider) RollBarClient() *rollbar.Client {
	return p.rollbarClient
}

func honeyComb(o Config) (honeycomb.Config, error) {
	if o.SampleKeyFunc == nil {
		o.SampleKeyFunc = func(fields map[string]interface{}) string {
			// fields set by the o11ygin middleware
			return fmt.Sprintf("%s %s %v",
				fields["http.server_name"],
				fields["http.route"],
				fields["http.status_code"],
			)
		}
	}

	conf := honeycomb.Config{
		Dataset:       o.HoneycombDataset,
		Key:           o.HoneycombKey.Raw(),
		Format:        o.Format,
		SendTraces:    o.HoneycombEnabled,
		SampleTraces:  o.SampleTraces,
		SampleKeyFunc: o.SampleKeyFunc,
		SampleRates:   o.SampleRates,
		ServiceName:   o.Service,
		Debug:         o.Debug,
	}
	return conf, conf.Validate()
}
