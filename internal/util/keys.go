package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StorageKey isolates file names in shared keyspaces (redis, bigcache,
// ristretto): "<prefix>:<name>", or name alone when prefix is empty.
func StorageKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}

// FileName maps a namespace name to a single path element. Names made only
// of [A-Za-z0-9._-] that do not start with '.' are used as is; anything else
// is sanitized and suffixed with a short hash so distinct names never collide.
func FileName(name string) string {
	if safe(name) {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		if safeRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	sum := sha256.Sum256([]byte(name))
	return strings.TrimLeft(b.String(), ".") + "~" + hex.EncodeToString(sum[:8])
}

func safe(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}
	for _, r := range name {
		if !safeRune(r) {
			return false
		}
	}
	return true
}

func safeRune(r rune) bool {
	return r == '-' || r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
