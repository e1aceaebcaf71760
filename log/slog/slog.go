// Package slog adapts a *slog.Logger to usestorage.Logger.
package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	usestorage "github.com/Hampfh/use-storage"
)

var _ usestorage.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New adds component=usestorage to every record. A nil l uses
// slog.Default().
func New(l *stdslog.Logger) Logger {
	if l == nil {
		l = stdslog.Default()
	}
	return Logger{L: l.With("component", "usestorage")}
}

func (s Logger) Debug(msg string, f usestorage.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f usestorage.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f usestorage.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f usestorage.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f usestorage.Fields) {
	l := s.L
	if l == nil {
		l = stdslog.Default()
	}
	l.LogAttrs(context.Background(), level, msg, attrs(f)...)
}

func attrs(f usestorage.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range keys {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
