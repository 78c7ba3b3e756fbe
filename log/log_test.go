package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, InfoLevel).Named("game")
	l.Debug("hidden")
	l.Info("checkpoint passed", Int("index", 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "checkpoint passed", entry["msg"])
	assert.Equal(t, "game", entry["logger"])
	assert.EqualValues(t, 2, entry["index"])
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, InfoLevel)
	child := l.Named("child")
	l.SetLevel(DebugLevel)
	child.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestWithFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, DebugLevel, WithFilter("*:storage.*"))
	l.Named("game").Info("dropped")
	l.Named("storage").Named("file").Info("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestContext(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, InfoLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
	assert.Same(t, Default(), GetFromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, lvl)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
