package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	usestorage "github.com/Hampfh/use-storage"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("optimistic commit", usestorage.Fields{"ns": "settings", "version": uint64(3)})
	l.Warn("backend failed", usestorage.Fields{"ns": "settings", "err": errors.New("disk full")})
	l.Info("no fields", nil)

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].LoggerName != "usestorage" || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("entry[0] = %+v", entries[0])
	}
	ctx := entries[1].ContextMap()
	if ctx["err"] != "disk full" || ctx["ns"] != "settings" {
		t.Fatalf("warn fields = %v", ctx)
	}
	if keys := entries[0].Context; keys[0].Key != "ns" || keys[1].Key != "version" {
		t.Fatalf("fields not sorted: %v", keys)
	}
}

func TestZapLoggerNil(t *testing.T) {
	New(nil).Error("dropped", usestorage.Fields{"k": 1})
	ZapLogger{}.Info("dropped", nil)
}
