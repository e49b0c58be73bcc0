package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/session"
)

const counterKey = "counter"

// getCount reports how many times this session has visited before, and counts this visit.
// The read and write are not atomic, so concurrent requests in one session may both
// see the same count.
func (a *API) getCount(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.FromContext(c)

	var n uint64
	if _, err := sess.Get(counterKey, &n); err != nil {
		o11y.LogError(ctx, "counter: unreadable", o11y.NewWarning("counter reset to zero: %w", err))
		n = 0
	}
	o11y.AddField(ctx, "count", n)

	// the count stops at its maximum rather than wrapping
	if n < math.MaxUint64 {
		if err := sess.Insert(counterKey, n+1); err != nil {
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
	}

	c.String(http.StatusOK, "Current count: %d", n)
}
