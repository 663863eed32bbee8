// Package sqlite provides the SQLite-backed lineage store.
//
// The store keeps five tables:
//   - sessions: one row per disclosing process
//   - objects: identity records, indexed by (originator, name, type)
//   - versions: one row per (object, version); version 0 is written with the object
//   - edges: stored dependencies, UNIQUE over (dest, source, type)
//   - properties: append-only annotations, indexed by object and by (key, value)
//
// # Critical Patterns
//
// Duplicate suppression
//   - UNIQUE constraint on edges plus INSERT ... ON CONFLICT DO NOTHING
//   - RowsAffected tells the caller whether the edge was new
//
// Compare-and-append versions
//   - Every write transaction starts with BEGIN IMMEDIATE (_txlock=immediate)
//   - CreateVersion re-reads MAX(version) under the write lock and refuses
//     anything but current+1
//
// Deterministic query results
//   - Every query carries ORDER BY with the seq column as tiebreaker
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes, safe across processes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: edges and properties must reference existing versions
//
// Read queries over queryir descriptors are compiled by internal/querysql.
package sqlite
