package o11y

type MetricKind int

const (
	Timer MetricKind = iota + 1
	Count
)

// Metric is taken from a span's fields when the span ends.
type Metric struct {
	Kind MetricKind
	Name string
	// ValueField is the span field holding a timer's value.
	ValueField string
	// Tags are the span fields whose values tag the metric.
	Tags []string
}

// Timing times the span, tagged with the named span fields.
func Timing(name string, tags ...string) Metric {
	return Metric{Kind: Timer, Name: name, ValueField: "duration_ms", Tags: tags}
}

// Incr counts one for the span, tagged with the named span fields.
func Incr(name string, tags ...string) Metric {
	return Metric{Kind: Count, Name: name, Tags: tags}
}

// MetricsProvider is the statsd style sink behind a Provider.
type MetricsProvider interface {
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
}

type noopMetrics struct{}

func (noopMetrics) TimeInMilliseconds(string, float64, []string, float64) error { return nil }
func (noopMetrics) Gauge(string, float64, []string, float64) error              { return nil }
func (noopMetrics) Count(string, int64, []string, float64) error                { return nil }
