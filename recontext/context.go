// Package recontext derives contexts that outlive their parent's cancellation while
// keeping its values, such as the o11y provider and active span.
package recontext

import (
	"context"
	"time"
)

// WithNewTimeout ignores the parent's deadline and cancellation. The new timeout is
// mandatory so the derived context can never be stuck.
func WithNewTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
