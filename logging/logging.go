// Package logging is the operator-facing logging capability of the library.
// Callers log through Service, which forwards to whichever Logger is set.
package logging

import (
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/bridge"
)

// Level is one of the logging channels a Service can mute independently.
type Level string

const (
	LevelLog   Level = "log"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
	LevelTrace Level = "trace"
)

// Levels lists every level in increasing verbosity.
var Levels = []Level{LevelError, LevelWarn, LevelInfo, LevelLog, LevelDebug, LevelTrace}

// Logger is the logging capability. Args are slog-style key/value pairs.
type Logger interface {
	Log(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Trace(msg string, args ...any)
}

// Service forwards to the active Logger unless muted.
type Service struct {
	*bridge.Bridge[Logger]

	mu       sync.RWMutex
	disabled bool
	muted    map[Level]struct{}
}

// New creates a Service backed by impl, or by slog's default logger when nil.
func New(impl Logger) *Service {
	s := &Service{
		Bridge: bridge.New[Logger]("Logger"),
		muted:  map[Level]struct{}{},
	}
	if impl == nil {
		impl = NewSlog(nil)
	}
	_ = s.SetImplementation(impl)
	return s
}

// Disable mutes every level.
func (s *Service) Disable() {
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
}

// Enable undoes Disable. Levels muted with DisableLevel stay muted.
func (s *Service) Enable() {
	s.mu.Lock()
	s.disabled = false
	s.mu.Unlock()
}

func (s *Service) DisableLevel(l Level) {
	s.mu.Lock()
	s.muted[l] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) EnableLevel(l Level) {
	s.mu.Lock()
	delete(s.muted, l)
	s.mu.Unlock()
}

// Enabled reports whether messages at l are forwarded.
func (s *Service) Enabled(l Level) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disabled {
		return false
	}
	_, muted := s.muted[l]
	return !muted
}

func (s *Service) Log(msg string, args ...any)   { s.emit(LevelLog, msg, args) }
func (s *Service) Info(msg string, args ...any)  { s.emit(LevelInfo, msg, args) }
func (s *Service) Warn(msg string, args ...any)  { s.emit(LevelWarn, msg, args) }
func (s *Service) Error(msg string, args ...any) { s.emit(LevelError, msg, args) }
func (s *Service) Debug(msg string, args ...any) { s.emit(LevelDebug, msg, args) }
func (s *Service) Trace(msg string, args ...any) { s.emit(LevelTrace, msg, args) }

func (s *Service) emit(l Level, msg string, args []any) {
	if s == nil || !s.Enabled(l) {
		return
	}
	impl, err := s.Implementation()
	if err != nil {
		return
	}
	switch l {
	case LevelLog:
		impl.Log(msg, args...)
	case LevelInfo:
		impl.Info(msg, args...)
	case LevelWarn:
		impl.Warn(msg, args...)
	case LevelError:
		impl.Error(msg, args...)
	case LevelDebug:
		impl.Debug(msg, args...)
	case LevelTrace:
		impl.Trace(msg, args...)
	}
}

type discard struct{}

func (discard) Log(string, ...any)   {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
func (discard) Debug(string, ...any) {}
func (discard) Trace(string, ...any) {}

// Discard returns a Logger that drops everything.
func Discard() Logger { return discard{} }
