package logging

import (
	"context"
	"log/slog"
)

// LevelTraceSlog sits below slog.LevelDebug.
const LevelTraceSlog = slog.Level(-8)

// Slog writes through a *slog.Logger. Log is treated as info.
type Slog struct {
	l *slog.Logger
}

// NewSlog wraps l, falling back to slog.Default when nil.
func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = slog.Default()
	}
	return &Slog{l: l}
}

func (s *Slog) Log(msg string, args ...any)   { s.l.Info(msg, args...) }
func (s *Slog) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *Slog) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *Slog) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *Slog) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *Slog) Trace(msg string, args ...any) {
	s.l.Log(context.Background(), LevelTraceSlog, msg, args...)
}
