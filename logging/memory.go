package logging

import "sync"

// Entry is one message captured by Memory.
type Entry struct {
	Level   Level
	Message string
	Args    []any
}

// Memory keeps every message in order. Used by tests and diagnostics.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty recording logger.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Log(msg string, args ...any)   { m.add(LevelLog, msg, args) }
func (m *Memory) Info(msg string, args ...any)  { m.add(LevelInfo, msg, args) }
func (m *Memory) Warn(msg string, args ...any)  { m.add(LevelWarn, msg, args) }
func (m *Memory) Error(msg string, args ...any) { m.add(LevelError, msg, args) }
func (m *Memory) Debug(msg string, args ...any) { m.add(LevelDebug, msg, args) }
func (m *Memory) Trace(msg string, args ...any) { m.add(LevelTrace, msg, args) }

func (m *Memory) add(l Level, msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: l, Message: msg, Args: append([]any(nil), args...)})
}

// Entries returns a copy of what was captured.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// ByLevel returns the captured entries at l.
func (m *Memory) ByLevel(l Level) []Entry {
	var out []Entry
	for _, e := range m.Entries() {
		if e.Level == l {
			out = append(out, e)
		}
	}
	return out
}
