package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/system"
)

// Load will create a new Redis client, check it can reach the server, and wire it into
// the provided System with default lifecycle management and observability.
func Load(ctx context.Context, o Options, sys *system.System) (_ *redis.Client, err error) {
	ctx, span := o11y.StartSpan(ctx, "redis: load")
	defer o11y.End(span, &err)
	span.AddField("host", o.Host)
	span.AddField("port", o.Port)
	span.AddField("db", o.DB)

	client := New(o)
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s:%d: %w", o.Host, o.Port, err)
	}

	sys.AddCleanup(func(_ context.Context) error {
		return client.Close()
	})

	name := o.Name
	if name == "" {
		name = "redis"
	}
	sys.AddHealthCheck(NewHealthCheck(client, name))
	sys.AddMetrics(NewMetrics(name, client))

	return client, nil
}
