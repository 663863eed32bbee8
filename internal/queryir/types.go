package queryir

import "github.com/roach88/lineage/internal/ir"

// Query is a read request against a backend.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// ObjectQuery finds every object registered under Key.
//
// Results are ordered by creation time ascending, ties broken by insertion
// order, so the newest match is the last element.
type ObjectQuery struct {
	Key ir.ObjectKey
}

func (ObjectQuery) queryNode() {}

// EdgeQuery returns the stored edges touching Anchor.
//
// With Direction ir.Ancestors, Anchor is matched against the dependent
// (dest) end; with ir.Descendants against the source end. Version may be
// ir.AllVersions to match every version of the anchor object.
//
// Results are ordered by anchor version ascending, then insertion order.
type EdgeQuery struct {
	Anchor         ir.ObjectVersion
	Direction      ir.Direction
	ExcludeData    bool
	ExcludeControl bool
}

func (EdgeQuery) queryNode() {}

// PropertyQuery returns the properties of one object.
//
// Version may be ir.AllVersions; an empty Key matches every key.
// Results are in insertion order.
type PropertyQuery struct {
	Object ir.ObjectVersion
	Key    string
}

func (PropertyQuery) queryNode() {}

// PropertyLookup finds the object-versions carrying Key=Value.
// Results are in insertion order of the matching property records.
type PropertyLookup struct {
	Key   string
	Value string
}

func (PropertyLookup) queryNode() {}

// ForFlags builds an EdgeQuery whose category filter mirrors traversal flags.
func ForFlags(anchor ir.ObjectVersion, dir ir.Direction, flags ir.TraversalFlags) EdgeQuery {
	return EdgeQuery{
		Anchor:         anchor,
		Direction:      dir,
		ExcludeData:    flags.Has(ir.NoDataDependencies),
		ExcludeControl: flags.Has(ir.NoControlDependencies),
	}
}

// Includes reports whether an edge of type t passes the query's category filter.
func (q EdgeQuery) Includes(t ir.DependencyType) bool {
	switch t.Category() {
	case ir.CategoryData:
		return !q.ExcludeData
	case ir.CategoryControl:
		return !q.ExcludeControl
	default:
		return false
	}
}

// Categories returns the edge categories the query admits, in ascending order.
func (q EdgeQuery) Categories() []ir.Category {
	cats := make([]ir.Category, 0, 2)
	if !q.ExcludeData {
		cats = append(cats, ir.CategoryData)
	}
	if !q.ExcludeControl {
		cats = append(cats, ir.CategoryControl)
	}
	return cats
}
