package o11y

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rollbar/rollbar-go"
)

// End records the outcome held by err on span and ends it. err points at the
// caller's named error return so the final value is seen:
//
//	defer o11y.End(span, &err)
func End(span Span, err *error) {
	var outcome error
	if err != nil {
		outcome = *err
	}
	AddResultToSpan(span, outcome)
	span.End()
}

// AddResultToSpan sets the span's result field, and its error or warning field.
// Cancellation is not counted as an error.
func AddResultToSpan(span Span, err error) {
	result := "success"
	switch {
	case err == nil:
	case IsWarning(err):
		span.AddRawField("warning", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "canceled"
		span.AddRawField("warning", err.Error())
	default:
		result = "error"
		span.AddRawField("error", err.Error())
	}
	span.AddRawField("result", result)
}

var errWarning = errors.New("warning")

// NewWarning formats an error, as fmt.Errorf does, that spans record as a warning
// rather than a failure.
func NewWarning(format string, args ...any) error {
	return warning{err: fmt.Errorf(format, args...)}
}

// IsWarning reports whether err or anything it wraps is a warning.
func IsWarning(err error) bool {
	return errors.Is(err, errWarning)
}

type warning struct {
	err error
}

func (w warning) Error() string {
	return w.err.Error()
}

func (w warning) Unwrap() []error {
	return []error{errWarning, w.err}
}

// HandlePanic records a recovered panic on span and returns it as an error. When
// the provider in ctx carries a rollbar client the panic is reported there too, with
// the request if there is one.
func HandlePanic(ctx context.Context, span Span, recovered any, r *http.Request) error {
	err := fmt.Errorf("panic handled: %+v", recovered)
	span.AddRawField("panic", recovered)
	span.AddRawField("has_panicked", "true")
	span.AddRawField("stack", string(debug.Stack()))
	span.RecordMetric(Incr("panics", "name"))

	reporter, ok := FromContext(ctx).(interface{ RollBarClient() *rollbar.Client })
	if !ok {
		return err
	}
	if r != nil {
		reporter.RollBarClient().RequestError(rollbar.CRIT, r, err)
	} else {
		reporter.RollBarClient().LogPanic(recovered, true)
	}
	return err
}
