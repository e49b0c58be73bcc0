// Package honeycomb implements an o11y provider on top of the honeycomb beeline.
//
// Every event is written locally (stderr by default) as json, text or colour, and
// can be shipped to honeycomb as well.
package honeycomb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/client"
	"github.com/honeycombio/beeline-go/propagation"
	"github.com/honeycombio/beeline-go/trace"
	"github.com/honeycombio/dynsampler-go"
	"github.com/honeycombio/libhoney-go"
	"github.com/honeycombio/libhoney-go/transmission"

	"github.com/circleci/visits/o11y"
)

type Config struct {
	Host    string
	Dataset string
	Key     string

	// Format of the local copy of each event: json (default), text, colour or none.
	Format string
	Writer io.Writer

	// SendTraces ships events to honeycomb too. Sender replaces the honeycomb API
	// sender when set.
	SendTraces bool
	Sender     transmission.Sender

	SampleTraces  bool
	SampleKeyFunc func(map[string]any) string
	SampleRates   map[string]int

	Metrics     Metrics
	ServiceName string
	Debug       bool
}

// Metrics is the statsd client that span metrics are sent to.
type Metrics interface {
	o11y.MetricsProvider
	io.Closer
}

func (c Config) Validate() error {
	if c.SendTraces && c.Sender == nil && c.Key == "" {
		return errors.New("honeycomb_key key required for honeycomb")
	}
	return nil
}

func (c Config) transmission() transmission.Sender {
	out := c.Writer
	if out == nil {
		out = os.Stderr
	}

	var senders []transmission.Sender
	if c.SendTraces {
		senders = append(senders, c.apiSender())
	}
	switch c.Format {
	case "none":
	case "text":
		senders = append(senders, &TextSender{w: out})
	case "colour", "color":
		senders = append(senders, &TextSender{w: out, colour: true})
	default:
		senders = append(senders, &transmission.WriterSender{W: out})
	}
	if len(senders) == 0 {
		// metrics are sent from the event hooks, which only run with a sender
		senders = append(senders, &transmission.DiscardSender{})
	}
	return &MultiSender{Senders: senders}
}

func (c Config) apiSender() transmission.Sender {
	if c.Sender != nil {
		return c.Sender
	}
	return &transmission.Honeycomb{
		MaxBatchSize:         libhoney.DefaultMaxBatchSize,
		BatchTimeout:         libhoney.DefaultBatchTimeout,
		MaxConcurrentBatches: libhoney.DefaultMaxConcurrentBatches,
		PendingWorkCapacity:  libhoney.DefaultPendingWorkCapacity,
		UserAgentAddition:    c.ServiceName,
	}
}

// New initialises the global beeline from conf and returns a provider using it.
func New(conf Config) o11y.Provider {
	// only an invalid transmission fails, and transmission() always returns one
	lh, _ := libhoney.NewClient(libhoney.ClientConfig{
		APIKey:       conf.Key,
		Dataset:      conf.Dataset,
		APIHost:      conf.Host,
		Transmission: conf.transmission(),
	})

	sendMetrics := metricsHook(conf.Metrics)
	bc := beeline.Config{
		Client:      lh,
		Debug:       conf.Debug,
		WriteKey:    conf.Key,
		ServiceName: conf.ServiceName,
		PresendHook: sendMetrics,
	}

	if conf.SampleTraces {
		rates := conf.SampleRates
		if rates == nil {
			rates = map[string]int{}
		}
		sampler := &TraceSampler{
			KeyFunc: conf.SampleKeyFunc,
			Sampler: &dynsampler.Static{Default: 1, Rates: rates},
		}
		// dropped events never reach the presend hook
		bc.PresendHook = nil
		bc.SamplerHook = func(fields map[string]any) (bool, int) {
			sendMetrics(fields)
			return sampler.Hook(fields)
		}
	}

	beeline.Init(bc)
	return &provider{metrics: conf.Metrics}
}

type provider struct {
	metrics Metrics
}

func (p *provider) AddGlobalField(key string, val any) {
	checkKey(key)
	client.AddField(key, val)
}

func (p *provider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	var s *trace.Span
	if parent := trace.GetSpanFromContext(ctx); parent != nil {
		ctx, s = parent.CreateAsyncChild(ctx)
	} else {
		var tr *trace.Trace
		ctx, tr = trace.NewTrace(ctx, nil)
		s = tr.GetRootSpan()
	}
	s.AddField("name", name)
	return ctx, &span{span: s}
}

func (p *provider) ContinueTrace(ctx context.Context, name string, h http.Header) (context.Context, o11y.Span) {
	var parent *propagation.PropagationContext
	if v := h.Get(propagation.TracePropagationHTTPHeader); v != "" {
		// an unreadable header starts a new trace
		parent, _ = propagation.UnmarshalHoneycombTraceContext(v)
	}
	ctx, tr := trace.NewTrace(ctx, parent)
	s := tr.GetRootSpan()
	s.AddField("name", name)
	return ctx, &span{span: s}
}

func (p *provider) GetSpan(ctx context.Context) o11y.Span {
	s := trace.GetSpanFromContext(ctx)
	if s == nil {
		return nil
	}
	return &span{span: s}
}

func (p *provider) AddField(ctx context.Context, key string, val any) {
	if s := p.GetSpan(ctx); s != nil {
		s.AddField(key, val)
	}
}

func (p *provider) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := p.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (p *provider) MetricsProvider() o11y.MetricsProvider {
	return p.metrics
}

func (p *provider) Close(context.Context) {
	beeline.Close()
	if p.metrics != nil {
		_ = p.metrics.Close()
	}
}

type span struct {
	span    *trace.Span
	metrics []o11y.Metric
}

func (s *span) AddField(key string, val any) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val any) {
	checkKey(key)
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	s.span.AddField(key, val)
}

func (s *span) RecordMetric(m o11y.Metric) {
	s.metrics = append(s.metrics, m)
	s.span.AddField(metricsField, s.metrics)
}

func (s *span) End() {
	s.span.Send()
}

// checkKey panics on keys containing '-', which honeycomb queries cannot address.
func checkKey(key string) {
	if strings.Contains(key, "-") {
		panic(fmt.Errorf("key %q cannot contain '-'", key))
	}
}
