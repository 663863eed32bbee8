// Package queryir describes the read queries a lineage backend answers.
//
// Queries are plain values built by the engine and interpreted by each
// backend: the SQLite backend compiles them to SQL (see internal/querysql),
// the Badger backend turns them into key-prefix scans and the graph backend
// into Cypher. Keeping the descriptor separate from its execution lets
// every backend share one validation step and one ordering contract.
//
// SEALED INTERFACE:
//
// Query is a sealed interface using the marker method pattern. Only types in
// this package implement it, so backends can switch exhaustively:
//
//	switch q := query.(type) {
//	case ObjectQuery:
//	case EdgeQuery:
//	case PropertyQuery:
//	case PropertyLookup:
//	}
//
// ORDERING CONTRACT:
//
// Every backend returns results in the order documented on each query type.
// Objects come back oldest first, edges and properties in insertion order.
// Backends never return nil slices.
package queryir
