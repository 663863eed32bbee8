package engine

import (
	"context"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
)

// GetAncestry returns the immediate neighbors of an object-version.
//
// query.Version may be ir.AllVersions for the union over every version.
// Entries are grouped by query version ascending; within a group the
// implicit version-chain entry comes first, followed by stored edges in
// insertion order.
func (e *Engine) GetAncestry(ctx context.Context, query ir.ObjectVersion, dir ir.Direction, flags ir.TraversalFlags) ([]ir.AncestryEntry, error) {
	if !dir.Valid() {
		return nil, errorf(CodeAncestryInvalid).
			With("direction", uint8(dir)).
			Wrapf(ErrInvalidArgument, "ancestry: unknown direction %d", dir)
	}
	if unknown := flags.Unknown(); unknown != 0 {
		return nil, errorf(CodeAncestryInvalid).
			With("flags", uint32(flags)).
			Wrapf(ErrInvalidArgument, "ancestry: unknown flags 0x%x", uint32(unknown))
	}
	if query.ID.IsNone() || query.Version < ir.AllVersions {
		return nil, errorf(CodeAncestryInvalid).
			With("query", query.String()).
			Wrapf(ErrInvalidArgument, "ancestry: invalid query %s", query)
	}

	current, err := e.backend.CurrentVersion(ctx, query.ID)
	if err != nil {
		return nil, fromStore(err, CodeAncestryNotFound, "ancestry %s", query)
	}
	if !query.Version.IsAll() && query.Version > current {
		return nil, errorf(CodeAncestryInvalid).
			With("query", query.String(), "current", int(current)).
			Wrapf(ErrInvalidArgument, "ancestry: %s is newer than current version %d", query, current)
	}

	edges := []ir.Edge{}
	q := queryir.ForFlags(query, dir, flags)
	if len(q.Categories()) > 0 {
		edges, err = e.backend.Edges(ctx, q)
		if err != nil {
			return nil, fromStore(err, CodeAncestryNotFound, "ancestry %s", query)
		}
	}

	first, last := query.Version, query.Version
	if query.Version.IsAll() {
		first, last = 0, current
		for _, edge := range edges {
			if v := anchorOf(edge, dir).Version; v > last {
				last = v
			}
		}
	}

	entries := make([]ir.AncestryEntry, 0, len(edges)+int(last-first)+1)
	next := 0
	for v := first; v <= last; v++ {
		at := ir.At(query.ID, v)
		if !flags.Has(ir.NoPrevNextVersion) {
			if other, ok := chainNeighbor(at, dir, current); ok {
				entries = append(entries, ir.AncestryEntry{Query: at, Other: other, Type: ir.VersionPrev, Direction: dir})
			}
		}
		for ; next < len(edges) && anchorOf(edges[next], dir).Version <= v; next++ {
			edge := edges[next]
			if !flags.Includes(edge.Type) {
				continue
			}
			entries = append(entries, ir.AncestryEntry{
				Query:     anchorOf(edge, dir),
				Other:     otherOf(edge, dir),
				Type:      edge.Type,
				Direction: dir,
			})
		}
	}
	return entries, nil
}

// WalkEntry is one edge reached by Walk, Depth hops from the root.
type WalkEntry struct {
	ir.AncestryEntry
	Depth int `json:"depth"`
}

// Walk follows GetAncestry breadth-first from root up to maxDepth hops.
//
// Every object-version is expanded at most once, so cycles through the
// version chain terminate. Entries are ordered by depth, then by the order
// GetAncestry returned them.
func (e *Engine) Walk(ctx context.Context, root ir.ObjectVersion, dir ir.Direction, flags ir.TraversalFlags, maxDepth int) ([]WalkEntry, error) {
	if maxDepth < 1 {
		return nil, errorf(CodeAncestryInvalid).
			With("depth", maxDepth).
			Wrapf(ErrInvalidArgument, "walk: depth %d is below 1", maxDepth)
	}

	visited := map[ir.ObjectVersion]struct{}{root: {}}
	frontier := []ir.ObjectVersion{root}
	walked := []WalkEntry{}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var nextFrontier []ir.ObjectVersion
		for _, node := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, errorf(CodeStorageUnavailable).Wrapf(err, "walk %s", root)
			}
			entries, err := e.GetAncestry(ctx, node, dir, flags)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				walked = append(walked, WalkEntry{AncestryEntry: entry, Depth: depth})
				if _, seen := visited[entry.Other]; seen {
					continue
				}
				visited[entry.Other] = struct{}{}
				nextFrontier = append(nextFrontier, entry.Other)
			}
		}
		frontier = nextFrontier
	}
	return walked, nil
}

// chainNeighbor returns the implicit version-chain neighbor of at.
func chainNeighbor(at ir.ObjectVersion, dir ir.Direction, current ir.Version) (ir.ObjectVersion, bool) {
	if dir == ir.Ancestors {
		if at.Version > 0 {
			return ir.At(at.ID, at.Version-1), true
		}
		return ir.ObjectVersion{}, false
	}
	if at.Version < current {
		return ir.At(at.ID, at.Version+1), true
	}
	return ir.ObjectVersion{}, false
}

// anchorOf returns the end of edge a traversal in dir starts from.
func anchorOf(edge ir.Edge, dir ir.Direction) ir.ObjectVersion {
	if dir == ir.Ancestors {
		return edge.Dest
	}
	return edge.Source
}

// otherOf returns the end of edge a traversal in dir arrives at.
func otherOf(edge ir.Edge, dir ir.Direction) ir.ObjectVersion {
	if dir == ir.Ancestors {
		return edge.Source
	}
	return edge.Dest
}
