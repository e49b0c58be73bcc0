package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type pooled interface {
	PoolStats() *redis.PoolStats
}

type Metrics struct {
	name   string
	client pooled
}

func NewMetrics(name string, client pooled) *Metrics {
	return &Metrics{
		name:   name,
		client: client,
	}
}

func (r *Metrics) MetricName() string {
	return r.name
}

func (r *Metrics) Gauges(_ context.Context) map[string]float64 {
	stats := r.client.PoolStats()
	return map[string]float64{
		"hits":     float64(stats.Hits),     // free connection found in the pool
		"misses":   float64(stats.Misses),   // free connection NOT found in the pool
		"timeouts": float64(stats.Timeouts), // wait timeouts

		"total_connections": float64(stats.TotalConns),
		"idle_connections":  float64(stats.IdleConns),
		"stale_connections": float64(stats.StaleConns),
	}
}
