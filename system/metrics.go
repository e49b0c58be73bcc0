package system

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/worker"
)

type MetricProducer interface {
	// MetricName The name for this group of metrics
	//(Name might be cleaner, but is much more likely to conflict in implementations)
	MetricName() string
	// Gauges are instantaneous name value pairs
	Gauges(context.Context) map[string]float64
}

const metricsInterval = 10 * time.Second

func traceMetrics(ctx context.Context, producers []MetricProducer) {
	metrics := o11y.FromContext(ctx).MetricsProvider()
	if metrics == nil {
		return
	}
	for _, producer := range producers {
		producerName := strings.ReplaceAll(producer.MetricName(), "-", "_")
		for f, v := range producer.Gauges(ctx) {
			_ = metrics.Gauge(fmt.Sprintf("gauge.%s.%s", producerName, f), v, []string{}, 1)
		}
	}
}

// metricsReporter returns a func for errgroup.Go that publishes the producers' gauges
// every metricsInterval until ctx is done.
func metricsReporter(ctx context.Context, mps []MetricProducer) func() error {
	return func() error {
		worker.Run(ctx, worker.Config{
			Name:          "metric-loop",
			MaxWorkTime:   time.Second,
			NoWorkBackOff: backoff.NewConstantBackOff(metricsInterval),
			WorkFunc: func(ctx context.Context) error {
				traceMetrics(ctx, mps)
				return worker.ErrShouldBackoff
			},
		})
		return nil
	}
}
