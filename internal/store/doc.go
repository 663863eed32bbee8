// Package store defines the storage contract of the lineage engine.
//
// A Backend persists five record kinds:
//   - Sessions: the processes that disclosed provenance
//   - Objects: identity records keyed by (originator, name, type)
//   - Versions: one row per (object, version), version 0 created with the object
//   - Edges: stored dependencies, unique per (dest, source, type)
//   - Properties: append-only key/value annotations per object-version
//
// # Concurrency Contract
//
// Backends provide per-operation atomicity. Two operations need more:
//   - CreateVersion is compare-and-append: it succeeds only when the new
//     version is exactly current+1 and returns ErrConflict otherwise.
//   - LookupOrCreateObject finds or inserts in one atomic step, so two
//     racing callers agree on a single object.
//
// The engine retries ErrConflict; it never reaches engine callers.
//
// # Backends
//
// Concrete backends live in sub-packages and register themselves from
// init() via RegisterBackend:
//   - sqlite: embedded SQLite in WAL mode, safe across processes
//   - badger: embedded Badger key/value store, single process
//   - graphdb: Neo4j or Memgraph over Bolt
//
// Callers import the backends they want for side effects and call Open.
package store
