// Package fakemetrics records the calls made to an o11y.MetricsProvider so tests
// can assert on the metrics a component emits.
package fakemetrics

import (
	"fmt"
	"sync"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type MetricCall struct {
	Metric   string
	Name     string
	Value    float64
	ValueInt int64
	Tags     []string
	Rate     float64
}

// CMPMetrics compares call lists ignoring order and small timing differences.
var CMPMetrics = gocmp.Options{
	cmpopts.EquateApprox(0, 10),
	cmpopts.SortSlices(func(x, y MetricCall) bool {
		const format = "%s|%s|%s"
		return fmt.Sprintf(format, x.Metric, x.Name, x.Tags) <
			fmt.Sprintf(format, y.Metric, y.Name, y.Tags)
	}),
}

type Provider struct {
	mu    sync.RWMutex
	calls []MetricCall
}

func (f *Provider) Calls() []MetricCall {
	f.mu.RLock()
	defer f.mu.RUnlock()

	calls := make([]MetricCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// Named returns the recorded calls for a single metric name.
func (f *Provider) Named(name string) []MetricCall {
	var calls []MetricCall
	for _, c := range f.Calls() {
		if c.Name == name {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *Provider) record(c MetricCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *Provider) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "timer", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Gauge(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "gauge", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Count(name string, value int64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "count", Name: name, ValueInt: value, Tags: tags, Rate: rate})
}

func (f *Provider) Close() error {
	return nil
}
