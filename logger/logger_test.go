package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestJSONOutputCarriesTagAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "trace", Format: "json"})

	log.WithTag("Clock").I("ticked", "count", 3)
	log.WithTagOf(&widget{}).E("failed")

	entries := lines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "Clock", entries[0]["tag"])
	assert.Equal(t, "ticked", entries[0]["message"])
	assert.EqualValues(t, 3, entries[0]["count"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "widget", entries[1]["tag"])
}

func TestFlagsMaskCategories(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter(&buf, Config{Level: "trace", Format: "json"})
	child := root.WithTag("child")

	root.SetFlag(All &^ Verbose)
	child.V("hidden")
	child.D("shown")
	assert.False(t, child.Enabled(Verbose))
	assert.True(t, child.Enabled(Debug))

	child.SetFlag(Error)
	child.D("hidden")
	child.E("shown")

	entries := lines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Same(t, root, child.Parent())
	assert.Equal(t, Error, child.LogFlag())
}

func TestLevelGatesEnabled(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, Config{Level: "warn", Format: "json"})
	assert.False(t, log.Enabled(Info))
	assert.True(t, log.Enabled(Warning))

	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	SetGlobalLevel("error")
	assert.False(t, log.Enabled(Warning))
	assert.True(t, log.Enabled(Error))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"Verbose":  zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"loud":     zerolog.InfoLevel,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseLevel(raw), raw)
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "widget", TypeName(&widget{}))
	assert.Equal(t, "widget", TypeName(widget{}))
	assert.Equal(t, "Logger", TypeName(Nop()))
	assert.Equal(t, "int", TypeName(1))
}

func TestNewAppliesEnvironment(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	log, err := New(Config{Level: "trace", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, log.Zerolog().GetLevel())

	_, err = New(Config{Output: t.TempDir()})
	assert.Error(t, err, "a directory is not a log file")
}
