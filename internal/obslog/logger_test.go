package obslog

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{MinLevel: Warn, Outputs: []io.Writer{&buf}})
	l.Info("run-1", "should be dropped", nil)
	l.Warn("run-1", "should appear", nil)
	l.Sync()
	require.NoError(t, l.Close())

	out := buf.String()
	assert.NotContains(t, out, "should be dropped")
	assert.Contains(t, out, "should appear")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "[run-1]")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: JSONFormat, Outputs: []io.Writer{&buf}})
	l.Error("run-2", "bad thing", map[string]interface{}{"offset": 5})
	l.Sync()
	require.NoError(t, l.Close())

	line := strings.TrimSpace(buf.String())
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "bad thing", entry.Message)
	assert.Equal(t, "run-2", entry.RunID)
}

func TestNewRunIDIsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
