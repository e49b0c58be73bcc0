// Package redisfixture provides each test with its own in-process Redis server.
package redisfixture

import (
	"context"
	"net"
	"strconv"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gotest.tools/v3/assert"

	"github.com/circleci/visits/o11y"
	"github.com/circleci/visits/testing/internal/types"
)

type Fixture struct {
	*redis.Client

	// Server allows tests to inspect keys, fast forward TTLs or inject failures.
	Server *miniredis.Miniredis
	Host   string
	Port   int
}

// Setup starts a miniredis server and a connected client, both closed when the test ends.
func Setup(ctx context.Context, t types.TestingTB) *Fixture {
	t.Helper()
	ctx, span := o11y.StartSpan(ctx, "redisfixture: setup")
	defer span.End()

	srv, err := miniredis.Run()
	assert.Assert(t, err)
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(srv.Addr())
	assert.Assert(t, err)
	p, err := strconv.Atoi(port)
	assert.Assert(t, err)
	span.AddField("address", srv.Addr())

	client := redis.NewClient(&redis.Options{
		Addr: srv.Addr(),
	})
	t.Cleanup(func() {
		assert.Check(t, client.Close())
	})

	assert.Assert(t, client.Ping(ctx).Err())

	return &Fixture{
		Client: client,
		Server: srv,
		Host:   host,
		Port:   p,
	}
}
