package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
)

const chainScenario = `
name: chain
description: "a feeds b feeds c"
objects:
  - {alias: a, originator: test, name: a, type: file}
  - {alias: b, originator: test, name: b, type: process}
  - {alias: c, originator: test, name: c, type: file}
steps:
  - {op: data_flow, dest: b, source: a, subtype: input}
  - {op: new_version, object: c}
  - {op: data_flow, dest: c, source: b}
  - {op: control_flow, dest: c, source: b, subtype: start}
  - {op: property, object: c, key: tag, value: x}
  - {op: property, object: a, key: tag, value: x}
`

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		pass      bool
	}{
		{"ancestors with version chain", `{type: ancestors, query: c@1, expect: [{other: c@0, type: version prev}, {other: b@0, type: data}, {other: b@0, type: control start}]}`, true},
		{"ancestors without versions", `{type: ancestors, query: c@1, flags: [no_versions], expect: [{other: b@0, type: data}, {other: b@0, type: control start}]}`, true},
		{"ancestors data only", `{type: ancestors, query: c@1, flags: [no_versions, no_control], expect: [{other: b@0, type: data}]}`, true},
		{"ancestors order matters", `{type: ancestors, query: c@1, flags: [no_versions], expect: [{other: b@0, type: control start}, {other: b@0, type: data}]}`, false},
		{"descendants", `{type: descendants, query: a@0, expect: [{other: b@0, type: data input}]}`, true},
		{"descendants of every version", `{type: descendants, query: c, expect: [{other: c@1, type: version prev}]}`, true},
		{"missing entry", `{type: descendants, query: a@0, expect: []}`, false},
		{"property", `{type: property, key: tag, value: x, matches: [c@1, a@0]}`, true},
		{"property wrong order", `{type: property, key: tag, value: x, matches: [a@0, c@1]}`, false},
		{"property none", `{type: property, key: tag, value: y, matches: []}`, true},
		{"version", `{type: version, object: c, version: 1}`, true},
		{"wrong version", `{type: version, object: b, version: 1}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := mustParse(t, chainScenario+"assertions:\n  - "+tt.assertion+"\n")

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.Equal(t, tt.pass, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     AssertAncestors,
		Expected: "[b@0 data]",
		Actual:   "[]",
		Trace: []TraceEvent{
			{Op: OpDataFlow, Target: "c", Source: "b", Outcome: ExpectOK},
			{Op: OpNewVersion, Target: "c", Outcome: ExpectOK},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: ancestors")
	assert.Contains(t, msg, "Expected: [b@0 data]")
	assert.Contains(t, msg, "Actual: []")
	assert.Contains(t, msg, "[1] data_flow c <- b (ok)")
	assert.Contains(t, msg, "[2] new_version c (ok)")
}

func TestParseFlags(t *testing.T) {
	flags, err := parseFlags([]string{"no_versions", "no_control"})
	require.NoError(t, err)
	assert.Equal(t, ir.NoPrevNextVersion|ir.NoControlDependencies, flags)

	_, err = parseFlags([]string{"no_idea"})
	assert.Error(t, err)
}

func TestDescribeVersion(t *testing.T) {
	id := ir.ObjectID{Hi: 1, Lo: 2}
	names := map[ir.ObjectID]string{id: "raw"}

	assert.Equal(t, "raw@3", describeVersion(names, ir.At(id, 3)))
	other := ir.At(ir.ObjectID{Hi: 9, Lo: 9}, 0)
	assert.Equal(t, other.String(), describeVersion(names, other))
	assert.Equal(t, "raw@0 data copy", describeEntry(names, ir.At(id, 0), ir.DataCopy))
}
