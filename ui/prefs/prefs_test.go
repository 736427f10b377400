package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)

	p := LoadFrom(path)
	assert.Equal(t, "", p.String(KeyColor))
	assert.Equal(t, "black", p.StringWithFallback(KeyColor, "black"))
	assert.Equal(t, 900.0, p.FloatWithFallback(KeyWindowWidth, 900))

	p.SetString(KeyColor, "cyan")
	p.SetFloat(KeyWindowWidth, 1280)
	p.SetBool(KeyEraser, true)
	require.NoError(t, p.Save())

	q := LoadFrom(path)
	assert.Equal(t, "cyan", q.String(KeyColor))
	assert.Equal(t, 1280.0, q.FloatWithFallback(KeyWindowWidth, 0))
	assert.True(t, q.Bool(KeyEraser, false))
}

func TestCorruptFileYieldsDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", "{not json"},
		{"null", "null"},
		{"array", "[1, 2]"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), prefsFile)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			p := LoadFrom(path)
			assert.Equal(t, path, p.Path())
			assert.Zero(t, p.FloatWithFallback(KeyWindowHeight, 0))
			assert.False(t, p.Bool(KeyEraser, false))

			require.NotPanics(t, func() {
				p.SetString(KeyColor, "red")
				p.SetBool(KeyEraser, true)
				p.SetFloat(KeyWindowWidth, 640)
			})
			assert.Equal(t, "red", p.String(KeyColor))
			require.NoError(t, p.Save())
		})
	}
}
