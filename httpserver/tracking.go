package httpserver

import (
	"context"
	"net"
	"sync"
)

// trackedListener counts the connections it accepts, per remote host, until each is closed.
type trackedListener struct {
	net.Listener

	mu         sync.RWMutex
	name       string
	accepted   int
	activeConn int
	remotes    map[string]int
}

func (l *trackedListener) Accept() (net.Conn, error) {
	con, err := l.Listener.Accept()
	if err != nil {
		return con, err
	}
	tracked := &trackedConnection{
		l:    l,
		Conn: con,
	}
	l.trackConn(tracked, true)

	return tracked, err
}

// MetricName satisfies system.MetricProducer.
func (l *trackedListener) MetricName() string {
	return l.name + "-listener"
}

// Gauges satisfies system.MetricProducer.
func (l *trackedListener) Gauges(_ context.Context) map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	maxPerRemote, minPerRemote := 0, 0
	first := true
	for _, c := range l.remotes {
		if first || c > maxPerRemote {
			maxPerRemote = c
		}
		if first || c < minPerRemote {
			minPerRemote = c
		}
		first = false
	}
	return map[string]float64{
		"number_of_remotes":  float64(len(l.remotes)),
		"total_connections":  float64(l.accepted),
		"active_connections": float64(l.activeConn),
		"max_connections_per_remote": float64(maxPerRemote),
		"min_connections_per_remote": float64(minPerRemote),
	}
}

func (l *trackedListener) trackConn(c *trackedConnection, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remotes == nil {
		l.remotes = make(map[string]int)
	}
	host := remoteHost(c.RemoteAddr())
	if add {
		l.accepted++
		l.activeConn++
		l.remotes[host]++
	} else {
		l.activeConn--
		l.remotes[host]--
		if l.remotes[host] == 0 {
			delete(l.remotes, host)
		}
	}
}

type trackedConnection struct {
	net.Conn

	l    *trackedListener
	once sync.Once
}

// Close is idempotent in its tracking, as net/http may close a connection twice.
func (c *trackedConnection) Close() error {
	c.once.Do(func() {
		c.l.trackConn(c, false)
	})
	return c.Conn.Close()
}

// remoteHost drops the port, counting all connections from one client host together.
func remoteHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
