package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/circleci/visits/config/secret"
	"github.com/circleci/visits/o11y"
)

type Options struct {
	// Name of the client for metrics and health check, default is "redis"
	Name     string
	Host     string
	Port     int
	User     string
	Password secret.String
	DB       int

	// Optional
	DialTimeout time.Duration
	TLS         bool
	CAFunc      func() *x509.CertPool
}

// New will only construct a new Redis client with the provided options. It is the caller's
// responsibility to close it at the right time.
func New(o Options) *redis.Client {
	opts := &redis.Options{
		Addr:        net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Username:    o.User,
		Password:    o.Password.Raw(),
		DB:          o.DB,
		DialTimeout: o.DialTimeout,
	}
	if o.TLS {
		var rootCAs *x509.CertPool
		if o.CAFunc != nil {
			rootCAs = o.CAFunc()
		}

		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: o.Host,
			RootCAs:    rootCAs,
		}
	}

	return redis.NewClient(opts)
}

// Ping checks the server answers. The client connects lazily, so this is the
// first point an unreachable server is noticed.
func Ping(ctx context.Context, client redis.UniversalClient) (err error) {
	ctx, span := o11y.StartSpan(ctx, "redis: ping")
	defer o11y.End(span, &err)

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected response for redis ping: %q", pong)
	}
	return nil
}
