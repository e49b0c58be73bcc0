// Package kongtest renders and parses kong command lines in tests.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

// Help returns the --help output for cli, and leaves cli populated with its defaults.
func Help(t *testing.T, cli interface{}) string {
	t.Helper()
	w := bytes.NewBuffer(nil)
	rc := -1
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			rc = i
		}),
	)
	assert.Check(t, err)

	_, err = app.Parse([]string{"--help"})
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(0, rc))

	return w.String()
}

// Parse fills cli from args and any environment variables the test has set with t.Setenv.
func Parse(t *testing.T, cli interface{}, args ...string) error {
	t.Helper()
	w := bytes.NewBuffer(nil)
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(int) {}),
	)
	assert.Assert(t, err)

	_, err = app.Parse(args)
	return err
}
