package ir

import (
	"fmt"
	"strings"
)

// Direction selects which side of a stored edge a traversal follows.
type Direction uint8

const (
	// Ancestors follows edges from a dependent to what it was derived from.
	Ancestors Direction = iota
	// Descendants follows edges from a source to what was derived from it.
	Descendants
)

// String returns "ancestors" or "descendants".
func (d Direction) String() string {
	switch d {
	case Ancestors:
		return "ancestors"
	case Descendants:
		return "descendants"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Valid reports whether d is a defined direction.
func (d Direction) Valid() bool {
	return d == Ancestors || d == Descendants
}

// MarshalText renders the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("marshal direction: invalid value %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "ancestors", "ancestor", "up":
		*d = Ancestors
	case "descendants", "descendant", "down":
		*d = Descendants
	default:
		return fmt.Errorf("unknown direction %q", string(text))
	}
	return nil
}

// TraversalFlags filter the categories of edges a traversal returns.
type TraversalFlags uint32

const (
	// NoPrevNextVersion suppresses the implicit version-chain entries.
	NoPrevNextVersion TraversalFlags = 1 << iota
	// NoDataDependencies suppresses data edges.
	NoDataDependencies
	// NoControlDependencies suppresses control edges.
	NoControlDependencies
)

// KnownFlags is the union of every defined flag bit.
const KnownFlags = NoPrevNextVersion | NoDataDependencies | NoControlDependencies

// Has reports whether every bit of f2 is set in f.
func (f TraversalFlags) Has(f2 TraversalFlags) bool {
	return f&f2 == f2
}

// Unknown returns the bits of f that are not defined flags.
func (f TraversalFlags) Unknown() TraversalFlags {
	return f &^ KnownFlags
}

// Includes reports whether an edge of type t passes the filter.
func (f TraversalFlags) Includes(t DependencyType) bool {
	switch t.Category() {
	case CategoryData:
		return !f.Has(NoDataDependencies)
	case CategoryControl:
		return !f.Has(NoControlDependencies)
	case CategoryVersion:
		return !f.Has(NoPrevNextVersion)
	default:
		return false
	}
}
