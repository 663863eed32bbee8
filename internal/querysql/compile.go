package querysql

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
)

// Column lists shared with the SQLite backend's row types.
var (
	ObjectColumns = []string{
		"id_hi", "id_lo", "originator", "name", "type",
		"container_hi", "container_lo", "container_version",
		"session_hi", "session_lo", "creation_time",
	}
	StampColumns    = []string{"id_hi", "id_lo", "creation_time"}
	EdgeColumns     = []string{"dest_hi", "dest_lo", "dest_version", "source_hi", "source_lo", "source_version", "type"}
	PropertyColumns = []string{"id_hi", "id_lo", "version", "prop_key", "prop_value"}
	LookupColumns   = []string{"id_hi", "id_lo", "version"}
)

// SplitID converts an ObjectID to the signed column pair SQLite stores.
// go-sqlite3 rejects uint64 arguments with the high bit set, so both halves
// travel as their two's-complement int64 bit pattern.
func SplitID(id ir.ObjectID) (hi, lo int64) {
	return int64(id.Hi), int64(id.Lo)
}

// JoinID reverses SplitID.
func JoinID(hi, lo int64) ir.ObjectID {
	return ir.ObjectID{Hi: uint64(hi), Lo: uint64(lo)}
}

// Compile converts a validated query to parameterized SQLite SQL.
// Returns (sql, params, error) tuple.
//
// MANDATORY: Every query includes ORDER BY with a deterministic tiebreaker.
// MANDATORY: All values are parameterized, never interpolated.
func Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("compile: %w", err)
	}

	switch query := q.(type) {
	case queryir.ObjectQuery:
		return compileObjectQuery(query)
	case queryir.EdgeQuery:
		return compileEdgeQuery(query)
	case queryir.PropertyQuery:
		return compilePropertyQuery(query)
	case queryir.PropertyLookup:
		return compilePropertyLookup(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileObjectQuery selects every object registered under a key, oldest first.
func compileObjectQuery(q queryir.ObjectQuery) (string, []any, error) {
	key := q.Key.Normalize()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(StampColumns...)
	sb.From("objects")
	sb.Where(
		sb.Equal("originator", key.Originator),
		sb.Equal("name", key.Name),
		sb.Equal("type", key.Type),
	)
	sb.OrderBy("creation_time ASC", "seq ASC")

	query, args := sb.Build()
	return query, args, nil
}

// compileEdgeQuery selects the stored edges anchored at one end.
//
// Ancestors anchor on the dest columns, descendants on the source columns.
// Category filtering is pushed down as (type >> 8) IN (...).
func compileEdgeQuery(q queryir.EdgeQuery) (string, []any, error) {
	anchor := "dest"
	if q.Direction == ir.Descendants {
		anchor = "source"
	}
	hi, lo := SplitID(q.Anchor.ID)

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(EdgeColumns...)
	sb.From("edges")
	sb.Where(
		sb.Equal(anchor+"_hi", hi),
		sb.Equal(anchor+"_lo", lo),
	)
	if !q.Anchor.Version.IsAll() {
		sb.Where(sb.Equal(anchor+"_version", int64(q.Anchor.Version)))
	}
	if q.ExcludeData || q.ExcludeControl {
		cats := q.Categories()
		params := make([]any, len(cats))
		for i, c := range cats {
			params[i] = int64(c)
		}
		sb.Where(sb.In("(type >> 8)", params...))
	}
	sb.OrderBy(anchor+"_version ASC", "seq ASC")

	query, args := sb.Build()
	return query, args, nil
}

// compilePropertyQuery selects the properties of one object in insertion order.
func compilePropertyQuery(q queryir.PropertyQuery) (string, []any, error) {
	hi, lo := SplitID(q.Object.ID)

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(PropertyColumns...)
	sb.From("properties")
	sb.Where(
		sb.Equal("id_hi", hi),
		sb.Equal("id_lo", lo),
	)
	if !q.Object.Version.IsAll() {
		sb.Where(sb.Equal("version", int64(q.Object.Version)))
	}
	if q.Key != "" {
		sb.Where(sb.Equal("prop_key", ir.Normalize(q.Key)))
	}
	sb.OrderBy("seq ASC")

	query, args := sb.Build()
	return query, args, nil
}

// compilePropertyLookup selects the object-versions carrying key=value.
func compilePropertyLookup(q queryir.PropertyLookup) (string, []any, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(LookupColumns...)
	sb.From("properties")
	sb.Where(
		sb.Equal("prop_key", ir.Normalize(q.Key)),
		sb.Equal("prop_value", q.Value),
	)
	sb.OrderBy("seq ASC")

	query, args := sb.Build()
	return query, args, nil
}
