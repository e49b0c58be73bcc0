// Package o11ygin traces gin requests with the o11y provider held in the context.
package o11ygin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circleci/visits/o11y"
)

const contextCancelledKey = "o11y-context-cancelled-key"

// Middleware starts a span per request, named after the matched route, and records
// the handler timing metric once the rest of the chain has run.
func Middleware(provider o11y.Provider, serverName string) gin.HandlerFunc {
	m := provider.MetricsProvider()
	return func(c *gin.Context) {
		before := time.Now()

		ctx := o11y.WithProvider(c.Request.Context(), provider)
		ctx, span := startSpanOrTraceFromHTTP(ctx, c, provider)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		for _, param := range c.Params {
			span.AddRawField("handler.vars."+param.Key, param.Value)
		}

		route := c.FullPath()
		if route == "" {
			route = "not-found"
		}
		c.Header("X-Route", route)

		span.AddRawField("meta.type", "http_server")
		span.AddRawField("http.server_name", serverName)
		span.AddRawField("http.route", c.FullPath())
		span.AddRawField("http.client_ip", c.ClientIP())
		span.AddRawField("http.method", c.Request.Method)
		span.AddRawField("http.url", c.Request.URL.String())
		span.AddRawField("http.target", c.Request.URL.Path)
		span.AddRawField("http.host", c.Request.Host)
		span.AddRawField("http.user_agent", c.Request.UserAgent())
		span.AddRawField("http.request_content_length", c.Request.ContentLength)

		defer func() {
			status := c.Writer.Status()
			if c.GetBool(contextCancelledKey) {
				status = 499
			}
			span.AddRawField("http.status_code", status)
			span.AddRawField("http.response_content_length", c.Writer.Size())
			if len(c.Errors) > 0 {
				span.AddRawField("gin.errors", c.Errors.String())
			}

			if m != nil {
				_ = m.TimeInMilliseconds("handler",
					float64(time.Since(before).Nanoseconds())/1000000.0,
					[]string{
						"http.server_name:" + serverName,
						"http.method:" + c.Request.Method,
						"http.route:" + c.FullPath(),
						"http.status_code:" + strconv.Itoa(status),
					},
					1,
				)
			}
		}()

		c.Next()
	}
}

// ClientCancelled traps a request context cancellation and reports it as a 499 (a.la. nginx).
func ClientCancelled() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		defer func() {
			if errors.Is(ctx.Err(), context.Canceled) {
				c.Set(contextCancelledKey, true)
			}
		}()
		c.Next()
	}
}

// Recovery turns handler panics into a 500, recording the panic on the request span.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		c.AbortWithStatus(http.StatusInternalServerError)
		ctx := c.Request.Context()
		span := o11y.FromContext(ctx).GetSpan(ctx)
		if span == nil {
			return
		}

		// the client went away mid response, which is not a real panic
		// https://github.com/golang/go/issues/28239
		if origErr, ok := err.(error); ok && errors.Is(origErr, http.ErrAbortHandler) {
			o11y.AddResultToSpan(span, origErr)
			return
		}

		_ = o11y.HandlePanic(ctx, span, err, c.Request)
	})
}

func startSpanOrTraceFromHTTP(ctx context.Context, c *gin.Context, p o11y.Provider) (context.Context, o11y.Span) {
	name := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
	if p.GetSpan(ctx) != nil {
		return o11y.StartSpan(ctx, name)
	}

	return p.ContinueTrace(ctx, name, c.Request.Header)
}
