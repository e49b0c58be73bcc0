// Package testcontext provides a context for tests with a working o11y provider,
// so test runs show the same colour formatted events as a local service.
package testcontext

import (
	"context"

	"github.com/circleci/visits/config/o11y"
)

// initialised at package load, so concurrent tests never race on beeline setup
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	cx, _, err := o11y.Setup(context.Background(), o11y.Config{
		Format:  "color",
		Service: "visits-test",
		Version: "dev",
	})
	if err != nil {
		panic(err)
	}
	return cx
}
