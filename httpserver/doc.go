/*
Package httpserver runs the service's HTTP servers with graceful shutdown and
connection tracking.

The api server serves visits and users; the admin server serves health checks,
Prometheus metrics and pprof.
*/
package httpserver
