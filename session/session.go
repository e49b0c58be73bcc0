package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is the state of one client, valid for the duration of a request.
// It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	id       string
	data     map[string]json.RawMessage
	loaded   bool
	modified bool
	flushed  bool
}

func newSession() *Session {
	return &Session{
		id:   uuid.NewString(),
		data: map[string]json.RawMessage{},
	}
}

func fromRecord(r *Record) *Session {
	data := r.Data
	if data == nil {
		data = map[string]json.RawMessage{}
	}
	return &Session{
		id:     r.ID,
		data:   data,
		loaded: true,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Get decodes the value stored under key into v. found is false when there is no such key.
func (s *Session) Get(key string, v any) (found bool, err error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("session value %q: %w", key, err)
	}
	return true, nil
}

// Insert stores v under key, replacing any previous value.
func (s *Session) Insert(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session value %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	s.modified = true
	return nil
}

func (s *Session) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.modified = true
	}
}

// Clear drops every value but keeps the session, and its identifier, alive.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]json.RawMessage{}
	s.modified = true
}

// Flush drops every value and ends the session. It is removed from the store and the
// client's cookie is expired, whatever else happens to the session in this request.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]json.RawMessage{}
	s.flushed = true
}

func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data) == 0
}

func (s *Session) record() *Record {
	data := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		data[k] = v
	}
	return &Record{
		ID:   s.id,
		Data: data,
	}
}
