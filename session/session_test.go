package session

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestSession(t *testing.T) {
	s := newSession()
	_, err := uuid.Parse(s.ID())
	assert.Check(t, err)
	assert.Check(t, s.Empty())
	assert.Check(t, !s.Modified())

	t.Run("get missing", func(t *testing.T) {
		var n uint64
		found, err := s.Get("counter", &n)
		assert.Check(t, err)
		assert.Check(t, !found)
	})

	t.Run("insert then get", func(t *testing.T) {
		assert.Assert(t, s.Insert("counter", uint64(3)))
		assert.Check(t, s.Modified())
		assert.Check(t, !s.Empty())

		var n uint64
		found, err := s.Get("counter", &n)
		assert.Check(t, err)
		assert.Check(t, found)
		assert.Check(t, cmp.Equal(n, uint64(3)))
	})

	t.Run("get wrong type", func(t *testing.T) {
		var name string
		found, err := s.Get("counter", &name)
		assert.Check(t, found)
		assert.Check(t, cmp.ErrorContains(err, `session value "counter"`))
	})

	t.Run("insert unencodable", func(t *testing.T) {
		err := s.Insert("bad", make(chan int))
		assert.Check(t, cmp.ErrorContains(err, `session value "bad"`))
	})

	t.Run("remove", func(t *testing.T) {
		s.Remove("counter")
		found, err := s.Get("counter", new(uint64))
		assert.Check(t, err)
		assert.Check(t, !found)
		assert.Check(t, s.Empty())
	})
}

func TestSession_RemoveMissingIsNotAModification(t *testing.T) {
	s := fromRecord(&Record{ID: "abc"})
	s.Remove("nothing")
	assert.Check(t, !s.Modified())
}

func TestSession_Clear(t *testing.T) {
	s := fromRecord(&Record{
		ID:   "abc",
		Data: map[string]json.RawMessage{"a": json.RawMessage(`1`), "b": json.RawMessage(`2`)},
	})
	assert.Check(t, !s.Modified())

	s.Clear()
	assert.Check(t, s.Modified())
	assert.Check(t, s.Empty())
	assert.Check(t, cmp.Equal(s.ID(), "abc"))
	assert.Check(t, !s.flushed)
}

func TestSession_Flush(t *testing.T) {
	s := fromRecord(&Record{
		ID:   "abc",
		Data: map[string]json.RawMessage{"a": json.RawMessage(`1`)},
	})
	s.Flush()
	assert.Check(t, s.Empty())
	assert.Check(t, s.flushed)
}

func TestSession_RecordIsACopy(t *testing.T) {
	s := newSession()
	assert.Assert(t, s.Insert("a", 1))

	r := s.record()
	assert.Assert(t, s.Insert("b", 2))
	assert.Check(t, cmp.Len(r.Data, 1))
	assert.Check(t, cmp.Equal(r.ID, s.ID()))
}
