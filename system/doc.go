/*
Package system manages the startup, running, metrics and shutdown of the service.

The API and admin HTTP servers, the Redis client health checks and the periodic
metrics loop are all registered on a System, which runs them together and shuts them
down cleanly on termination, waiting a short delay first so in-flight visits finish.
*/
package system
