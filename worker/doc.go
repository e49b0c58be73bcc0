/*
Package worker runs a periodic loop with a span per iteration and back-off between
iterations that found nothing to do. The system metrics loop publishes its gauges
this way.
*/
package worker
