package secret

import (
	"encoding/json"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestSecret(t *testing.T) {
	s := String("redis-password")
	assert.Check(t, cmp.Equal(s.Raw(), "redis-password"))
	assert.Check(t, cmp.Equal(fmt.Sprintf("%v", s), "REDACTED"))
	assert.Check(t, cmp.Equal(fmt.Sprintf("%#v", s), "REDACTED"))
	assert.Check(t, cmp.Equal(s.String(), "REDACTED"))

	b, err := json.Marshal(struct {
		Password String `json:"password"`
	}{Password: s})
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(string(b), `{"password":"REDACTED"}`))
}
