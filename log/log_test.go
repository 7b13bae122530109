package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, InfoLevel).Named("store")
	l.Debug("hidden")
	l.Info("visible", String("track", "monza"), Int("laps", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "store", entry["logger"])
	assert.Equal(t, "monza", entry["track"])
	assert.InDelta(t, 3, entry["laps"], 0)
}

func TestWithFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := New(buf, DebugLevel).WithFilter("info+:* debug:sql")
	require.NoError(t, err)

	l.Named("schema").Debug("dropped")
	assert.Empty(t, buf.String())

	l.Named("sql").Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithFilterInvalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, DebugLevel).WithFilter("chatty:*")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Same(t, Default(), GetFromContext(context.Background()))
	l := New(&bytes.Buffer{}, InfoLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, lvl)
	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
