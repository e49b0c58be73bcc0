package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/visits/o11y"
)

// ErrShouldBackoff is returned by a WorkFunc to make the loop wait before the next call.
var ErrShouldBackoff = errors.New("should back off")

type Config struct {
	Name          string
	NoWorkBackOff backoff.BackOff
	// MaxWorkTime bounds a single WorkFunc call, defaulting to 10 seconds
	MaxWorkTime time.Duration
	// WorkFunc should return ErrShouldBackoff if it wants the loop to begin backing off
	WorkFunc func(ctx context.Context) error
	waiter   func(ctx context.Context, delay time.Duration)
}

// Run calls WorkFunc in a loop until ctx is cancelled.
func Run(ctx context.Context, cfg Config) {
	cfg = setDefaults(cfg)
	cfg.NoWorkBackOff.Reset()
	provider := o11y.FromContext(ctx)

	for ctx.Err() == nil {
		wait := doWork(provider, cfg)
		if wait < 0 {
			cfg.NoWorkBackOff.Reset()
			continue
		}
		cfg.waiter(ctx, wait)
	}
}

func setDefaults(cfg Config) Config {
	if cfg.waiter == nil {
		cfg.waiter = wait
	}
	if cfg.NoWorkBackOff == nil {
		cfg.NoWorkBackOff = defaultBackOff()
	}
	if cfg.MaxWorkTime == 0 {
		cfg.MaxWorkTime = 10 * time.Second
	}
	return cfg
}

func wait(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func defaultBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 50,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         time.Second * 5,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// doWork runs one iteration, returning how long to wait before the next, or a
// negative duration to go again straight away.
func doWork(provider o11y.Provider, cfg Config) (delay time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MaxWorkTime)
	defer cancel()

	ctx = o11y.WithProvider(ctx, provider)
	ctx, span := provider.StartSpan(ctx, "worker loop: "+cfg.Name)
	span.RecordMetric(o11y.Timing("worker_loop", "loop_name", "result"))
	span.AddField("loop_name", cfg.Name)
	var err error
	defer o11y.End(span, &err)

	// a panicking WorkFunc must not take the loop down with it
	defer func() {
		if r := recover(); r != nil {
			err = o11y.HandlePanic(ctx, span, r, nil)
		}
	}()

	delay = -1
	err = cfg.WorkFunc(ctx)
	if errors.Is(err, ErrShouldBackoff) {
		delay = cfg.NoWorkBackOff.NextBackOff()
		err = nil
	}

	span.AddField("backoff_ms", delay.Milliseconds())
	return delay
}
