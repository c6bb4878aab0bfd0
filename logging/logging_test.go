package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceForwardsEveryLevel(t *testing.T) {
	mem := NewMemory()
	s := New(mem)
	s.Log("a")
	s.Info("b")
	s.Warn("c", "k", "v")
	s.Error("d")
	s.Debug("e")
	s.Trace("f")

	entries := mem.Entries()
	require.Len(t, entries, 6)
	assert.Equal(t, LevelWarn, entries[2].Level)
	assert.Equal(t, []any{"k", "v"}, entries[2].Args)
}

func TestDisableAndLevels(t *testing.T) {
	mem := NewMemory()
	s := New(mem)

	s.Disable()
	s.Error("hidden")
	assert.Empty(t, mem.Entries())

	s.Enable()
	s.DisableLevel(LevelDebug)
	s.Debug("hidden")
	s.Info("shown")
	assert.Len(t, mem.Entries(), 1)
	assert.False(t, s.Enabled(LevelDebug))

	s.EnableLevel(LevelDebug)
	s.Debug("shown")
	assert.Len(t, mem.ByLevel(LevelDebug), 1)
}

func TestSwapImplementation(t *testing.T) {
	first, second := NewMemory(), NewMemory()
	s := New(first)
	require.NoError(t, s.SetImplementation(second))
	s.Info("x")
	assert.Empty(t, first.Entries())
	assert.Len(t, second.Entries(), 1)

	assert.Error(t, s.SetImplementation("not a logger"))
}

func TestSlogImplementation(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: LevelTraceSlog}))
	s := New(NewSlog(l))
	s.Warn("room fetch failed", "room", "r1")
	s.Trace("tick")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "r1", rec["room"])
}

func TestZerologImplementation(t *testing.T) {
	var buf bytes.Buffer
	s := New(NewZerolog(zerolog.New(&buf)))
	s.Error("boom", "op", "createRoom")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "createRoom", rec["op"])
	assert.Equal(t, "boom", rec["message"])
}

func TestDiscard(t *testing.T) {
	s := New(Discard())
	assert.NotPanics(t, func() { s.Error("x") })
}

func TestConsoleImplementation(t *testing.T) {
	var buf bytes.Buffer
	s := New(NewConsole(&buf, zerolog.InfoLevel, "service", "pergunta"))
	s.Info("room joined", "room", "r1")
	s.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "room joined")
	assert.Contains(t, out, "r1")
	assert.Contains(t, out, "pergunta")
	assert.NotContains(t, out, "hidden")
}
