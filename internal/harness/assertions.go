package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/lineage/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Applied steps for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nApplied steps:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", i+1, event.Op, event.Target)
			if event.Source != "" {
				fmt.Fprintf(&buf, " <- %s", event.Source)
			}
			fmt.Fprintf(&buf, " (%s)\n", event.Outcome)
		}
	}
	return buf.String()
}

// Evaluate checks every assertion and returns the failure messages.
// Returns empty slice if all assertions pass.
func (h *Harness) Evaluate(ctx context.Context, assertions []Assertion, result *Result) []string {
	errs := []string{}
	for i, a := range assertions {
		if err := h.evaluate(ctx, a, result); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func (h *Harness) evaluate(ctx context.Context, a Assertion, result *Result) error {
	switch a.Type {
	case AssertAncestors:
		return h.assertTraversal(ctx, a, ir.Ancestors, result)
	case AssertDescendants:
		return h.assertTraversal(ctx, a, ir.Descendants, result)
	case AssertProperty:
		return h.assertProperty(ctx, a, result)
	case AssertVersion:
		return h.assertVersion(ctx, a, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraversal compares a one-hop traversal with the expected entries, in order.
func (h *Harness) assertTraversal(ctx context.Context, a Assertion, dir ir.Direction, result *Result) error {
	query, err := h.resolve(ctx, result, a.Query, false)
	if err != nil {
		return err
	}
	flags, err := parseFlags(a.Flags)
	if err != nil {
		return err
	}
	entries, err := h.engine.GetAncestry(ctx, query, dir, flags)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("traversal of %s", a.Query),
			Actual:   fmt.Sprintf("error: %v", err),
			Trace:    result.Trace,
		}
	}

	names := aliasNames(result)
	actual := make([]string, 0, len(entries))
	for _, e := range entries {
		actual = append(actual, describeEntry(names, e.Other, e.Type))
	}
	expected := make([]string, 0, len(a.Expect))
	for _, want := range a.Expect {
		ov, err := h.resolve(ctx, result, want.Other, false)
		if err != nil {
			return err
		}
		t, err := ir.ParseDependencyType(want.Type)
		if err != nil {
			return err
		}
		expected = append(expected, describeEntry(names, ov, t))
	}

	if strings.Join(actual, "; ") != strings.Join(expected, "; ") {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s of %s: [%s]", a.Type, a.Query, strings.Join(expected, "; ")),
			Actual:   fmt.Sprintf("[%s]", strings.Join(actual, "; ")),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertProperty compares a property lookup with the expected matches, in order.
func (h *Harness) assertProperty(ctx context.Context, a Assertion, result *Result) error {
	found, err := h.engine.TryLookupByProperty(ctx, a.Key, a.Value)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("lookup %s=%s", a.Key, a.Value),
			Actual:   fmt.Sprintf("error: %v", err),
			Trace:    result.Trace,
		}
	}

	names := aliasNames(result)
	actual := make([]string, 0, len(found))
	for _, ov := range found {
		actual = append(actual, describeVersion(names, ov))
	}
	expected := make([]string, 0, len(a.Matches))
	for _, m := range a.Matches {
		ov, err := h.resolve(ctx, result, m, false)
		if err != nil {
			return err
		}
		expected = append(expected, describeVersion(names, ov))
	}

	if strings.Join(actual, ", ") != strings.Join(expected, ", ") {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s=%s on [%s]", a.Key, a.Value, strings.Join(expected, ", ")),
			Actual:   fmt.Sprintf("[%s]", strings.Join(actual, ", ")),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertVersion checks the current version of an object.
func (h *Harness) assertVersion(ctx context.Context, a Assertion, result *Result) error {
	id, err := h.alias(result, a.Object)
	if err != nil {
		return err
	}
	v, err := h.engine.GetVersion(ctx, id)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("version of %s", a.Object),
			Actual:   fmt.Sprintf("error: %v", err),
			Trace:    result.Trace,
		}
	}
	if a.Version == nil || int(v) != *a.Version {
		want := "unset"
		if a.Version != nil {
			want = fmt.Sprintf("%d", *a.Version)
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s at version %s", a.Object, want),
			Actual:   fmt.Sprintf("version %d", v),
			Trace:    result.Trace,
		}
	}
	return nil
}

// parseFlags maps flag names to traversal flags.
func parseFlags(names []string) (ir.TraversalFlags, error) {
	var flags ir.TraversalFlags
	for _, name := range names {
		switch name {
		case "no_versions":
			flags |= ir.NoPrevNextVersion
		case "no_data":
			flags |= ir.NoDataDependencies
		case "no_control":
			flags |= ir.NoControlDependencies
		default:
			return 0, fmt.Errorf("unknown flag %q", name)
		}
	}
	return flags, nil
}

// aliasNames inverts the alias table for readable messages.
func aliasNames(result *Result) map[ir.ObjectID]string {
	names := make(map[ir.ObjectID]string, len(result.Objects))
	for alias, id := range result.Objects {
		names[id] = alias
	}
	return names
}

func describeVersion(names map[ir.ObjectID]string, ov ir.ObjectVersion) string {
	name, ok := names[ov.ID]
	if !ok {
		return ov.String()
	}
	return fmt.Sprintf("%s@%d", name, ov.Version)
}

func describeEntry(names map[ir.ObjectID]string, other ir.ObjectVersion, t ir.DependencyType) string {
	return describeVersion(names, other) + " " + t.String()
}
