// Package secret holds configuration values, such as the Redis password or the
// honeycomb key, that must never appear in logs or traces.
package secret

type String string

const redacted = "REDACTED"

// String implements fmt.Stringer and redacts the sensitive value.
func (s String) String() string {
	return redacted
}

// GoString implements fmt.GoStringer and redacts the sensitive value.
func (s String) GoString() string {
	return redacted
}

// MarshalJSON redacts the value in json encoded o11y events.
func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// Raw returns the sensitive value. Only pass it directly to the client that needs it.
func (s String) Raw() string {
	return string(s)
}
