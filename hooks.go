package usestorage

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The engine calls them inline on read, write and load paths.
type Hooks interface {
	// A stored payload failed to decode or validate. err is a *CorruptError.
	CorruptRead(namespace string, err error)

	// The adapter failed a read; the namespace was treated as absent.
	ReadFailed(namespace string, err error)

	// A write or clear failed at the backend and the cache was rolled back.
	WriteRolledBack(namespace string, err error)
	ClearRolledBack(namespace string, err error)

	// A guarded rollback was dropped because a newer commit had landed.
	RollbackSkipped(namespace string)

	// The initial load for a namespace finished. found is false when
	// nothing usable was stored.
	LoadCommitted(namespace string, found bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CorruptRead(string, error)     {}
func (NopHooks) ReadFailed(string, error)      {}
func (NopHooks) WriteRolledBack(string, error) {}
func (NopHooks) ClearRolledBack(string, error) {}
func (NopHooks) RollbackSkipped(string)        {}
func (NopHooks) LoadCommitted(string, bool)    {}
