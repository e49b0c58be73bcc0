package honeycomb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/honeycombio/beeline-go/propagation"
	"github.com/klauspost/compress/zstd"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/visits/o11y"
)

func TestHoneycomb(t *testing.T) {
	gotEvent := false
	check := func(event string) {
		gotEvent = true

		assert.Check(t, cmp.Contains(event, `"version":42`))
		assert.Check(t, cmp.Contains(event, `"name":"session: load"`))
		assert.Check(t, cmp.Contains(event, `"app.session_id":"abc"`), "span.AddField is prefixed")
		assert.Check(t, cmp.Contains(event, `"session.created":true`), "span.AddRawField is unprefixed")
		assert.Check(t, cmp.Contains(event, `"app.cookie":"id"`), "o11y.AddField is prefixed")
	}
	url := honeycombServer(t, check)
	ctx := context.Background()

	h := New(Config{
		Dataset:    "test-dataset",
		Host:       url,
		SendTraces: true,
		Format:     "none",
	})
	h.AddGlobalField("version", 42)

	ctx = o11y.WithProvider(ctx, h)
	ctx, span := o11y.StartSpan(ctx, "session: load")
	o11y.AddField(ctx, "cookie", "id")
	span.AddField("session_id", "abc")
	span.AddRawField("session.created", true)
	span.End()
	h.Close(ctx)

	assert.Assert(t, gotEvent, "expected to receive an event")
}

func TestHoneycomb_ValidatesKeys(t *testing.T) {
	h := New(Config{Format: "none"})
	ctx := o11y.WithProvider(context.Background(), h)
	defer h.Close(ctx)

	recovery := func(key string) {
		p := recover()
		err, ok := p.(error)
		assert.Assert(t, ok)
		assert.Check(t, cmp.ErrorContains(err, key))
	}

	ctx, span := o11y.StartSpan(ctx, "test-span")
	func() {
		defer recovery("invalid-field")
		o11y.AddField(ctx, "invalid-field", "value")
	}()
	func() {
		defer recovery("invalid-raw-key")
		span.AddRawField("invalid-raw-key", "value")
	}()
	span.End()
}

func TestHoneycomb_Writer(t *testing.T) {
	buf := &syncBuffer{}
	h := New(Config{Writer: buf, Format: "json"})
	ctx := o11y.WithProvider(context.Background(), h)

	func() (err error) {
		_, span := o11y.StartSpan(ctx, "session: save")
		defer o11y.End(span, &err)
		return errors.New("redis down")
	}()
	o11y.Log(ctx, "starting api", o11y.Field("version", "dev"))
	h.Close(ctx)

	out := buf.String()
	assert.Check(t, cmp.Contains(out, `"name":"session: save"`))
	assert.Check(t, cmp.Contains(out, `"result":"error"`))
	assert.Check(t, cmp.Contains(out, `"error":"redis down"`))
	assert.Check(t, cmp.Contains(out, `"name":"starting api"`))
	assert.Check(t, cmp.Contains(out, `"app.version":"dev"`))
}

func TestHoneycomb_Metrics(t *testing.T) {
	metrics := &fakeMetrics{}
	h := New(Config{Format: "none", Metrics: metrics})
	ctx := context.Background()

	_, span := h.StartSpan(ctx, "session: load")
	span.RecordMetric(o11y.Timing("session.load", "result"))
	span.RecordMetric(o11y.Incr("session.created"))
	o11y.AddResultToSpan(span, o11y.NewWarning("session id is not a uuid"))
	span.End()
	h.Close(ctx)

	calls := metrics.Calls()
	assert.Assert(t, cmp.Len(calls, 3))
	assert.Check(t, cmp.Equal(calls[0].Metric, "count"))
	assert.Check(t, cmp.Equal(calls[0].Name, "warning"))
	assert.Check(t, cmp.Equal(calls[1].Metric, "timer"))
	assert.Check(t, cmp.Equal(calls[1].Name, "session.load"))
	assert.Check(t, cmp.DeepEqual(calls[1].Tags, []string{"result:success"}))
	assert.Check(t, cmp.Equal(calls[2].Metric, "count"))
	assert.Check(t, cmp.Equal(calls[2].Name, "session.created"))
}

func TestHoneycomb_ContinueTrace(t *testing.T) {
	buf := &syncBuffer{}
	h := New(Config{Writer: buf, Format: "json"})
	ctx := context.Background()

	header := http.Header{}
	header.Set(propagation.TracePropagationHTTPHeader, propagation.MarshalHoneycombTraceContext(
		&propagation.PropagationContext{TraceID: "trace1", ParentID: "span1"},
	))
	_, span := h.ContinueTrace(ctx, "GET /", header)
	span.End()

	_, span = h.ContinueTrace(ctx, "POST /user", http.Header{})
	span.End()
	h.Close(ctx)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Assert(t, cmp.Len(lines, 2))
	assert.Check(t, cmp.Contains(lines[0], `"name":"GET /"`))
	assert.Check(t, cmp.Contains(lines[0], `"trace.trace_id":"trace1"`))
	assert.Check(t, cmp.Contains(lines[0], `"trace.parent_id":"span1"`))
	assert.Check(t, cmp.Contains(lines[1], `"name":"POST /user"`))
	assert.Check(t, !strings.Contains(lines[1], `"trace1"`))
}

func TestConfig_Validate(t *testing.T) {
	c := Config{SendTraces: true}
	assert.Check(t, cmp.ErrorContains(c.Validate(), "honeycomb_key"))

	c.Key = "abc"
	assert.Check(t, c.Validate())
}

func honeycombServer(t *testing.T, cb func(string)) string {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		reader, err := zstd.NewReader(r.Body)
		if err != nil {
			t.Error("could not create zstd reader", err)
			return
		}
		defer reader.Close()

		b, err := io.ReadAll(reader)
		if err != nil {
			t.Error("could not read request", err)
		}
		cb(string(b))
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

type metricCall struct {
	Metric string
	Name   string
	Value  float64
	Tags   []string
}

type fakeMetrics struct {
	mu    sync.Mutex
	calls []metricCall
}

func (f *fakeMetrics) add(c metricCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeMetrics) Calls() []metricCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]metricCall(nil), f.calls...)
}

func (f *fakeMetrics) TimeInMilliseconds(name string, value float64, tags []string, _ float64) error {
	return f.add(metricCall{Metric: "timer", Name: name, Value: value, Tags: tags})
}

func (f *fakeMetrics) Gauge(name string, value float64, tags []string, _ float64) error {
	return f.add(metricCall{Metric: "gauge", Name: name, Value: value, Tags: tags})
}

func (f *fakeMetrics) Count(name string, value int64, tags []string, _ float64) error {
	return f.add(metricCall{Metric: "count", Name: name, Value: float64(value), Tags: tags})
}

func (f *fakeMetrics) Close() error { return nil }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Clone(b.buf.String())
}
