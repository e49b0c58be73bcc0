package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type HealthCheck struct {
	name   string
	client redis.UniversalClient
}

func NewHealthCheck(client redis.UniversalClient, name string) *HealthCheck {
	return &HealthCheck{name: name, client: client}
}

// HealthChecks reports Redis as a readiness check only, sessions fail with a 400
// rather than the process needing a restart.
func (r *HealthCheck) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	ready = func(ctx context.Context) error {
		return Ping(ctx, r.client)
	}
	name = r.name
	if name == "" {
		name = "redis"
	}
	return name, ready, nil
}
