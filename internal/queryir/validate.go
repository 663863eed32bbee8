package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/lineage/internal/ir"
)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks a query before it reaches a backend.
//
// Backends may assume a validated query: ids are not None, versions are
// either concrete or ir.AllVersions, directions are defined.
//
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

// addProblem appends a problem message.
func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(query Query) {
	switch q := query.(type) {
	case nil:
		v.addProblem("query is nil")
	case ObjectQuery:
		if !q.Key.Complete() {
			v.addProblem("object key %q must have originator, name and type", q.Key)
		}
	case EdgeQuery:
		v.validateObjectVersion("anchor", q.Anchor)
		if !q.Direction.Valid() {
			v.addProblem("direction %d is not defined", uint8(q.Direction))
		}
		if q.ExcludeData && q.ExcludeControl {
			v.addProblem("edge query excludes every stored category")
		}
	case PropertyQuery:
		v.validateObjectVersion("object", q.Object)
	case PropertyLookup:
		if q.Key == "" {
			v.addProblem("property key is empty")
		}
	default:
		v.addProblem("unsupported query type %T", query)
	}
}

func (v *validator) validateObjectVersion(field string, ov ir.ObjectVersion) {
	if ov.ID.IsNone() {
		v.addProblem("%s id is None", field)
	}
	if ov.Version < 0 && !ov.Version.IsAll() {
		v.addProblem("%s version %d is negative", field, ov.Version)
	}
}
