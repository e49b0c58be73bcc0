/*
Package healthcheck serves the admin API: liveness and readiness checks gathered from
the system, Prometheus metrics, and the Go runtime's pprof profiles.
*/
package healthcheck
