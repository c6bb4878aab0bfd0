package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Zerolog writes through a zerolog.Logger. Args are key/value pairs.
type Zerolog struct {
	l zerolog.Logger
}

// NewZerolog wraps l.
func NewZerolog(l zerolog.Logger) *Zerolog { return &Zerolog{l: l} }

// NewConsole builds a human-readable zerolog logger on w. Fields are
// key/value pairs attached to every line.
func NewConsole(w io.Writer, level zerolog.Level, fields ...any) *Zerolog {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if len(fields) > 0 {
		ctx = ctx.Fields(fields)
	}
	return &Zerolog{l: ctx.Logger()}
}

func (z *Zerolog) Log(msg string, args ...any)   { write(z.l.Info(), msg, args) }
func (z *Zerolog) Info(msg string, args ...any)  { write(z.l.Info(), msg, args) }
func (z *Zerolog) Warn(msg string, args ...any)  { write(z.l.Warn(), msg, args) }
func (z *Zerolog) Error(msg string, args ...any) { write(z.l.Error(), msg, args) }
func (z *Zerolog) Debug(msg string, args ...any) { write(z.l.Debug(), msg, args) }
func (z *Zerolog) Trace(msg string, args ...any) { write(z.l.Trace(), msg, args) }

func write(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	if len(args) > 0 {
		ev = ev.Fields(args)
	}
	ev.Msg(msg)
}
