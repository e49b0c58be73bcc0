// Package api serves the visit counter and user endpoints, and the static assets.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/visits/httpserver/ginrouter"
	"github.com/circleci/visits/session"
)

type API struct {
	router *gin.Engine
}

type Options struct {
	// Sessions is the backing store for visitor sessions.
	Sessions      session.Store
	SessionConfig session.Config
	// AssetsDir is served under /assets, default "assets".
	AssetsDir string
}

func New(ctx context.Context, opts Options) *API {
	if opts.AssetsDir == "" {
		opts.AssetsDir = "assets"
	}

	r := ginrouter.Default(ctx, "api")
	a := &API{
		router: r,
	}

	r.GET("/", session.Middleware(opts.Sessions, opts.SessionConfig), a.getCount)
	r.POST("/user", a.postUser)
	r.Static("/assets", opts.AssetsDir)

	return a
}

func (a *API) Handler() http.Handler {
	return a.router
}
