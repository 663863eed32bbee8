// Package engine implements the lineage provenance graph engine.
//
// The engine sits between instrumented writers, analysts and a store.Backend.
// It owns identifier allocation, version appends, edge disclosure with
// duplicate suppression, properties, and one-hop ancestry traversal.
//
// ARCHITECTURE:
//
// Shared Store, No Shared Memory:
// Writers in unrelated processes coordinate only through the backend.
// Callers hold identifiers (ir.ObjectID, ir.ObjectVersion), never records,
// and re-resolve through queries.
//
// Write Path:
//  1. Arguments are normalized and validated (ErrInvalidArgument)
//  2. Referenced endpoints are resolved against the backend
//  3. One backend call performs the write in a single transaction
//  4. store.ErrConflict is retried with jittered backoff, never surfaced
//
// Read Path:
// Every read is a single backend call over a consistent snapshot. The
// ancestry traversal adds the implicit version-chain edges, which are not
// stored.
//
// CRITICAL PATTERNS:
//
// Compare-And-Append Versions:
// NewVersion reads current and asks the backend to create current+1. The
// backend rejects anything else with store.ErrConflict and the engine re-reads.
//
// Idempotent Disclosure:
// Edges are unique on (dest, source, type). A repeat disclosure reports
// ir.OutcomeDuplicateIgnored and is not an error.
//
// Deterministic Ordering:
// Lookups order by creation time then insertion order. Ancestry orders by
// query version, version-chain entry first, then insertion order.
package engine
