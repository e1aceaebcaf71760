// Package sloghooks reports engine events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	usestorage "github.com/Hampfh/use-storage"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CorruptEvery    uint64
	ReadFailedEvery uint64
	// Redact namespace names in records. Nil keeps names as is; use
	// HashRedact for a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	corruptCtr    atomic.Uint64
	readFailedCtr atomic.Uint64
}

var _ usestorage.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

// HashRedact replaces a name with the hex of its SHA-256 prefix.
func HashRedact(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func (h *Hooks) ns(name string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(name)
	}
	return name
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CorruptRead(ns string, err error) {
	if h.l == nil || !sample(h.opts.CorruptEvery, &h.corruptCtr) {
		return
	}
	h.l.Warn("usestorage.corrupt_read",
		"ns", h.ns(ns),
		"err", err)
}

func (h *Hooks) ReadFailed(ns string, err error) {
	if h.l == nil || !sample(h.opts.ReadFailedEvery, &h.readFailedCtr) {
		return
	}
	h.l.Warn("usestorage.read_failed",
		"ns", h.ns(ns),
		"err", err)
}

func (h *Hooks) WriteRolledBack(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("usestorage.write_rolled_back",
		"ns", h.ns(ns),
		"err", err)
}

func (h *Hooks) ClearRolledBack(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("usestorage.clear_rolled_back",
		"ns", h.ns(ns),
		"err", err)
}

func (h *Hooks) RollbackSkipped(ns string) {
	if h.l == nil {
		return
	}
	h.l.Info("usestorage.rollback_skipped",
		"ns", h.ns(ns),
		"msg", "newer commit kept over failed write")
}

func (h *Hooks) LoadCommitted(ns string, found bool) {
	if h.l == nil {
		return
	}
	h.l.Debug("usestorage.load_committed",
		"ns", h.ns(ns),
		"found", found)
}
