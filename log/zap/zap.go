// Package zap adapts a *zap.Logger to usestorage.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	usestorage "github.com/Hampfh/use-storage"
)

var _ usestorage.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "usestorage". A nil l yields a no-op logger.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l.Named("usestorage")}
}

func (z ZapLogger) Debug(msg string, f usestorage.Fields) { z.l().Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f usestorage.Fields)  { z.l().Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f usestorage.Fields)  { z.l().Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f usestorage.Fields) { z.l().Error(msg, zf(f)...) }

func (z ZapLogger) l() *zap.Logger {
	if z.L == nil {
		return zap.NewNop()
	}
	return z.L
}

// zf converts fields in key order; errors go through zap.NamedError so they
// render as strings.
func zf(f usestorage.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
