// Package usestorage synchronizes typed, schema-validated namespaces between
// an in-memory reactive store and an asynchronous key-value backend.
//
// Components:
//   - schema.Registry: the namespaces an application persists, each with a
//     codec, validators and an optional default.
//   - adapter.Adapter: byte store (file, bolt, sqlite, redis, bigcache,
//     ristretto, memory).
//   - store.Store: the shared cache every Handle observes. One notification
//     channel; subscribers filter by namespace.
//   - Engine: validated reads and writes, the initial load singleton and the
//     compensating commit (optimistic cache update, backend write, rollback
//     on failure).
//   - Handle[V]: the typed per-consumer view of one namespace.
//
// Typical use:
//
//	settings := schema.New[Settings]("settings", codec.JSON[Settings]{},
//	    schema.WithDefault(Settings{Theme: "light"}))
//	eng, _ := usestorage.New(usestorage.Options{
//	    Registry: schema.MustRegistry(settings),
//	    Adapter:  fileAdapter,
//	})
//	defer eng.Close(ctx)
//
//	h, _ := usestorage.Open(eng, settings)
//	defer h.Close()
//	_ = h.Wait(ctx)
//	cur, _ := h.Value()
//	h.Merge(ctx, map[string]any{"theme": "dark"})
//
// Writes are read-your-writes, not isolated: the optimistic value is visible
// to every subscriber before the backend confirms it. Two concurrent writers
// to one namespace may lose an update when the first one rolls back; set
// Options.GuardRollback to skip rollbacks that would clobber a newer commit.
package usestorage
