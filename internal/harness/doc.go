// Package harness runs provenance scenarios against the lineage engine.
//
// A scenario declares objects, applies a sequence of disclosures and then
// checks what the graph answers. The same file format serves two purposes:
// `lineage import` applies a scenario's objects and steps to a real store,
// and `lineage test` (or RunWithGolden in Go tests) runs it against a fresh
// in-memory engine and evaluates its assertions.
//
// # Scenario Format
//
//	name: etl_pipeline
//	description: "A transform reads one file and writes another"
//	objects:
//	  - alias: dir
//	    originator: fs
//	    name: /data
//	    type: directory
//	  - alias: raw
//	    originator: fs
//	    name: /data/raw.csv
//	    type: file
//	  - alias: clean
//	    originator: fs
//	    name: /data/clean.csv
//	    type: file
//	    container: dir@0
//	steps:
//	  - op: new_version
//	    object: clean
//	  - op: data_flow
//	    dest: clean
//	    source: raw@0
//	    subtype: input
//	  - op: data_flow
//	    dest: clean
//	    source: raw
//	    subtype: input
//	    expect: duplicate
//	  - op: property
//	    object: clean@1
//	    key: owner
//	    value: etl
//	assertions:
//	  - type: ancestors
//	    query: clean@1
//	    flags: [no_versions]
//	    expect:
//	      - { other: raw@0, type: data input }
//	  - type: property
//	    key: owner
//	    value: etl
//	    matches: [clean@1]
//	  - type: version
//	    object: clean
//	    version: 1
//
// A reference is "alias" (current version for steps, every version for
// assertions), "alias@N", or "alias@*".
//
// # Step Operations
//
//   - new_version: append a version to object
//   - data_flow / control_flow: disclose dest <- source with the named subtype
//   - property: append key=value to object
//
// Each step may set expect to ok (default), duplicate, invalid_argument or
// not_found; a mismatch fails the scenario.
//
// # Assertion Types
//
//   - ancestors / descendants: one-hop traversal of query, compared in order
//   - property: lookup by key=value, compared in order
//   - version: current version of object
//
// # Deterministic Testing
//
// Run uses testutil.DeterministicClock and testutil.SequentialIDs, so the
// same scenario always yields the same ids and the same trace. This is
// what makes golden comparison possible.
//
// Scenarios are decoded with unknown YAML fields rejected and are checked
// against an embedded CUE schema before anything executes.
package harness
