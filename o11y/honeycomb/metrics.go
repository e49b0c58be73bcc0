package honeycomb

import (
	"fmt"
	"time"

	"github.com/circleci/visits/o11y"
)

// metricsField carries a span's recorded metrics to the event hooks.
const metricsField = "__o11y_metrics__"

// metricsHook sends the error and warning counts for an event and the metrics its
// span recorded. The metric list is always removed from the event.
func metricsHook(m o11y.MetricsProvider) func(map[string]any) {
	return func(fields map[string]any) {
		recorded, _ := fields[metricsField].([]o11y.Metric)
		delete(fields, metricsField)
		if m == nil {
			return
		}

		outcome := []string{"type:o11y"}
		for _, key := range []string{"error", "warning"} {
			if _, ok := fields[key]; ok {
				_ = m.Count(key, 1, outcome, 1)
			}
		}
		for _, metric := range recorded {
			sendMetric(m, metric, fields)
		}
	}
}

func sendMetric(m o11y.MetricsProvider, metric o11y.Metric, fields map[string]any) {
	var tags []string
	for _, name := range metric.Tags {
		if v, ok := lookup(fields, name); ok {
			tags = append(tags, fmt.Sprintf("%s:%v", name, v))
		}
	}

	switch metric.Kind {
	case o11y.Count:
		_ = m.Count(metric.Name, 1, tags, 1)
	case o11y.Timer:
		v, ok := lookup(fields, metric.ValueField)
		if !ok {
			return
		}
		ms, ok := milliseconds(v)
		if !ok {
			panic(fmt.Sprintf("span field %s is not a duration: %T", metric.ValueField, v))
		}
		_ = m.TimeInMilliseconds(metric.Name, ms, tags, 1)
	}
}

// lookup finds a field by its raw name, then by its application name.
func lookup(fields map[string]any, name string) (any, bool) {
	if v, ok := fields[name]; ok {
		return v, true
	}
	v, ok := fields["app."+name]
	return v, ok
}

func milliseconds(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case time.Duration:
		return float64(v) / float64(time.Millisecond), true
	}
	return 0, false
}
