// Package setup contains the wiring shared by the service's commands.
package setup

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // include embedded timezone data

	"github.com/gwatts/rootcerts"
	goredis "github.com/redis/go-redis/v9"

	"github.com/circleci/visits/config/o11y"
	"github.com/circleci/visits/config/secret"
	"github.com/circleci/visits/redis"
	"github.com/circleci/visits/session"
	"github.com/circleci/visits/system"
)

type CLI struct {
	AdminAddr string `env:"ADMIN_ADDR" default:":3001" help:"The address for the admin api to listen on"`

	O11yStatsd           string        `name:"o11y-statsd" env:"O11Y_STATSD" help:"Address to send statsd metrics, none are sent when empty"`
	O11yHoneycombEnabled bool          `name:"o11y-honeycomb" env:"O11Y_HONEYCOMB" default:"false" help:"Send traces to honeycomb"`
	O11yHoneycombDataset string        `name:"o11y-honeycomb-dataset" env:"O11Y_HONEYCOMB_DATASET" default:"visits"`
	O11yHoneycombKey     secret.String `name:"o11y-honeycomb-key" env:"O11Y_HONEYCOMB_KEY"`
	O11yFormat           string        `name:"o11y-format" env:"O11Y_FORMAT" enum:"json,color,text" default:"json" help:"Format used for stderr logging"`
	O11yRollbarToken     secret.String `name:"o11y-rollbar-token" env:"O11Y_ROLLBAR_TOKEN"`
	O11yRollbarEnv       string        `name:"o11y-rollbar-env" env:"O11Y_ROLLBAR_ENV" default:"production"`

	RedisHost        string        `env:"REDIS_HOST" default:"localhost"`
	RedisPort        int           `env:"REDIS_PORT" default:"6379"`
	RedisUser        string        `env:"REDIS_USER"`
	RedisPassword    secret.String `env:"REDIS_PASSWORD"`
	RedisDB          int           `name:"redis-db" env:"REDIS_DB" default:"0"`
	RedisTLS         bool          `name:"redis-tls" env:"REDIS_TLS" default:"false"`
	RedisDialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`

	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" default:"false" help:"Only send the session cookie over https"`
	SessionInactivity   time.Duration `env:"SESSION_INACTIVITY" default:"0s" help:"Expire sessions after this long unused, zero keeps them for the browser session"`
}

// the embedded roots let the binary run FROM scratch, rollbar and redis TLS both need them
func init() {
	err := rootcerts.UpdateDefaultTransport()
	if err != nil {
		panic(fmt.Errorf("failed to inject rootcerts: %w", err))
	}
}

func LoadO11y(version, mode string, cli CLI) (context.Context, func(context.Context), error) {
	cfg := o11y.Config{
		Statsd:            cli.O11yStatsd,
		RollbarToken:      cli.O11yRollbarToken,
		RollbarEnv:        cli.O11yRollbarEnv,
		RollbarServerRoot: "github.com/circleci/visits",
		HoneycombEnabled:  cli.O11yHoneycombEnabled,
		HoneycombDataset:  cli.O11yHoneycombDataset,
		HoneycombKey:      cli.O11yHoneycombKey,
		Format:            cli.O11yFormat,
		Version:           version,
		Service:           "visits",
		StatsNamespace:    "circleci.visits.",
		Mode:              mode,
	}
	return o11y.Setup(context.Background(), cfg)
}

// LoadRedis connects to Redis, failing when it cannot be reached.
func LoadRedis(ctx context.Context, cli CLI, sys *system.System) (*goredis.Client, error) {
	return redis.Load(ctx, redis.Options{
		Name:        "redis-sessions",
		Host:        cli.RedisHost,
		Port:        cli.RedisPort,
		User:        cli.RedisUser,
		Password:    cli.RedisPassword,
		DB:          cli.RedisDB,
		TLS:         cli.RedisTLS,
		CAFunc:      rootcerts.ServerCertPool,
		DialTimeout: cli.RedisDialTimeout,
	}, sys)
}

func SessionConfig(cli CLI, metrics *session.Metrics) session.Config {
	expiry := session.OnSessionEnd()
	if cli.SessionInactivity > 0 {
		expiry = session.OnInactivity(cli.SessionInactivity)
	}
	return session.Config{
		Secure:  cli.SessionCookieSecure,
		Expiry:  expiry,
		Metrics: metrics,
	}
}
