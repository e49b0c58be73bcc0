/*
Package redis contains wiring and observability for the go-redis Redis client.

There is support for:
  - connecting with a startup ping, so an unreachable Redis fails fast
  - health checks
  - connection pool gauges
*/
package redis
