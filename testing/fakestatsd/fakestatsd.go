// Package fakestatsd is a UDP statsd server that records the dogstatsd lines it receives.
package fakestatsd

import (
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

type Metric struct {
	Name  string
	Value string
	// Type is the statsd type, e.g. "c", "g" or "ms"
	Type string
	Tags []string
}

type Server struct {
	conn net.PacketConn

	mu      sync.Mutex
	metrics []Metric
}

// New starts a server on a free localhost port, closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.Assert(t, err)

	s := &Server{conn: conn}
	go s.listen()
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return s
}

func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

func (s *Server) Metrics() []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Metric(nil), s.metrics...)
}

// Named returns the metrics received with the given fully namespaced name.
func (s *Server) Named(name string) []Metric {
	var named []Metric
	for _, m := range s.Metrics() {
		if m.Name == name {
			named = append(named, m)
		}
	}
	return named
}

func (s *Server) listen() {
	buf := make([]byte, 65536)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(buf[:n]), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if m, ok := parse(line); ok {
				s.mu.Lock()
				s.metrics = append(s.metrics, m)
				s.mu.Unlock()
			}
		}
	}
}

// parse reads "name:value|type|@rate|#tag1,tag2", where rate and tags are optional.
func parse(line string) (Metric, bool) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return Metric{}, false
	}
	parts := strings.Split(rest, "|")
	if len(parts) < 2 {
		return Metric{}, false
	}
	m := Metric{
		Name:  name,
		Value: parts[0],
		Type:  parts[1],
	}
	for _, p := range parts[2:] {
		if tags, ok := strings.CutPrefix(p, "#"); ok {
			m.Tags = strings.Split(tags, ",")
		}
	}
	return m, true
}
