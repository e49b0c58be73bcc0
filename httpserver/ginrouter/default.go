// Package ginrouter builds gin engines carrying the standard request middleware.
package ginrouter

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/o11y/wrappers/o11ygin"
)

var once sync.Once

// Default returns an engine that traces each request under serverName, recovers
// panics as 500s and reports client disconnects as 499s.
func Default(ctx context.Context, serverName string) *gin.Engine {
	once.Do(func() {
		if gin.Mode() != gin.TestMode {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	r := gin.New()
	r.Use(
		o11ygin.Middleware(o11y.FromContext(ctx), serverName),
		o11ygin.Recovery(),
		o11ygin.ClientCancelled(),
	)

	r.UseRawPath = true

	return r
}
