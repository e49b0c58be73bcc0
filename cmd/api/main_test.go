package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/visits/system"
	"github.com/circleci/visits/testing/kongtest"
	"github.com/circleci/visits/testing/redisfixture"
	"github.com/circleci/visits/testing/testcontext"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestHelp(t *testing.T) {
	c := cli{}
	s := kongtest.Help(t, &c)
	assert.Check(t, cmp.Contains(s, "--api-addr"))
	assert.Check(t, cmp.Contains(s, "--redis-host"))
	assert.Check(t, cmp.Contains(s, "--admin-addr"))

	assert.Check(t, cmp.Equal(c.APIAddr, "0.0.0.0:3000"))
	assert.Check(t, cmp.Equal(c.RedisHost, "localhost"))
	assert.Check(t, cmp.Equal(c.RedisPort, 6379))
	assert.Check(t, cmp.Equal(c.RedisDB, 0))
	assert.Check(t, cmp.Equal(c.AssetsDir, "assets"))
}

func TestEnv(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("API_ADDR", "127.0.0.1:8080")

	c := cli{}
	assert.Assert(t, kongtest.Parse(t, &c))
	assert.Check(t, cmp.Equal(c.RedisHost, "redis.internal"))
	assert.Check(t, cmp.Equal(c.RedisPort, 6380))
	assert.Check(t, cmp.Equal(c.RedisDB, 3))
	assert.Check(t, cmp.Equal(c.RedisPassword.Raw(), "hunter2"))
	assert.Check(t, cmp.Equal(c.RedisPassword.String(), "REDACTED"))
	assert.Check(t, cmp.Equal(c.APIAddr, "127.0.0.1:8080"))
}

func TestLoadAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()
	fix := redisfixture.Setup(ctx, t)

	t.Setenv("REDIS_PORT", strconv.Itoa(fix.Port))
	t.Setenv("REDIS_HOST", fix.Host)

	c := cli{}
	assert.Assert(t, kongtest.Parse(t, &c, "--api-addr=localhost:0", "--assets-dir="+t.TempDir()))

	sys := system.New()
	t.Cleanup(func() { sys.Cleanup(ctx) })
	srv, err := loadAPI(ctx, c, sys, prometheus.NewRegistry())
	assert.Assert(t, err)

	assert.Assert(t, cmp.Len(sys.HealthChecks(), 1))
	name, ready, _ := sys.HealthChecks()[0].HealthChecks()
	assert.Check(t, cmp.Equal(name, "redis-sessions"))
	assert.Check(t, ready(ctx))

	done := make(chan error, 1)
	go func() {
		done <- sys.Run(ctx, 0)
	}()

	jar, err := cookiejar.New(nil)
	assert.Assert(t, err)
	cl := &http.Client{Jar: jar}
	for i := 0; i < 3; i++ {
		body, status := get(t, cl, fmt.Sprintf("http://%s/", srv.Addr()))
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, cmp.Equal(body, fmt.Sprintf("Current count: %d", i)))
	}

	cancel()
	assert.Check(t, <-done)
}

// run replaces the global o11y provider, so this stays last in the file
func TestRun_RedisUnreachable(t *testing.T) {
	ctx := testcontext.Background()
	fix := redisfixture.Setup(ctx, t)
	port := fix.Port
	fix.Server.Close()

	t.Setenv("REDIS_PORT", strconv.Itoa(port))
	t.Setenv("REDIS_HOST", fix.Host)

	c := cli{}
	assert.Assert(t, kongtest.Parse(t, &c, "--api-addr=localhost:0", "--admin-addr=localhost:0"))

	err := run(c, "test", "today")
	assert.Check(t, cmp.ErrorContains(err, "connect to redis"))
}

func get(t *testing.T, cl *http.Client, url string) (string, int) {
	t.Helper()
	res, err := cl.Get(url)
	assert.Assert(t, err)
	defer func() {
		assert.Check(t, res.Body.Close())
	}()
	b, err := io.ReadAll(res.Body)
	assert.Assert(t, err)
	return string(b), res.StatusCode
}
