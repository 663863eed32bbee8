// Package kv provides the Badger-backed lineage store.
//
// Everything lives in one keyspace of fixed-width binary keys, so that
// prefix scans return records already in the order the store contract asks
// for (see keys.go for the full layout).
//
// Conflicts are detected by Badger's optimistic transactions. Writes that
// must not race read a guard key first:
//   - CreateVersion reads the object's current-version key
//   - LookupOrCreateObject reads the head key of the object's name triple
//   - AddEdge reads the edge's uniqueness key
//
// A losing transaction fails with badger.ErrConflict, reported as
// store.ErrConflict for the engine to retry.
//
// Badger holds an exclusive directory lock, so one database directory can
// only be opened by one process at a time. Within that process any number
// of goroutines may share the store. An empty path runs fully in memory.
package kv
