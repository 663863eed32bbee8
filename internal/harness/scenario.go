package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lineage/internal/ir"
)

// Scenario is a batch of provenance disclosures with optional assertions.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Objects are looked up or created in order before any step runs.
	Objects []ObjectDecl `yaml:"objects"`

	// Steps are applied in order after the objects exist.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions are evaluated after every step has been applied.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ObjectDecl declares an object under a scenario-local alias.
type ObjectDecl struct {
	Alias      string `yaml:"alias"`
	Originator string `yaml:"originator"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`

	// Container is a reference to an earlier alias, e.g. "dir@0".
	Container string `yaml:"container,omitempty"`
}

// Step is one write against the engine.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Object is the target of new_version and property.
	Object string `yaml:"object,omitempty"`

	// Dest and Source are the ends of data_flow and control_flow.
	Dest   string `yaml:"dest,omitempty"`
	Source string `yaml:"source,omitempty"`

	// Subtype names the dependency subtype ("input", "op", ...). Default: generic.
	Subtype string `yaml:"subtype,omitempty"`

	// Key and Value are the property of a property step.
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Expect is the required outcome. Default: ok.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion checks the graph after all steps have been applied.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Query is the traversal start (used by ancestors, descendants).
	Query string `yaml:"query,omitempty"`

	// Flags are traversal flag names: no_versions, no_data, no_control.
	Flags []string `yaml:"flags,omitempty"`

	// Expect lists the traversal entries in order (used by ancestors, descendants).
	Expect []ExpectedEntry `yaml:"expect,omitempty"`

	// Key and Value select a property lookup (used by property).
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Matches lists the object-versions the lookup returns (used by property).
	Matches []string `yaml:"matches,omitempty"`

	// Object and Version check a current version (used by version).
	Object  string `yaml:"object,omitempty"`
	Version *int   `yaml:"version,omitempty"`
}

// ExpectedEntry is one traversal result.
type ExpectedEntry struct {
	Other string `yaml:"other"`
	Type  string `yaml:"type"`
}

// Step operations.
const (
	OpNewVersion  = "new_version"
	OpDataFlow    = "data_flow"
	OpControlFlow = "control_flow"
	OpProperty    = "property"
)

// Step expectations.
const (
	ExpectOK              = "ok"
	ExpectDuplicate       = "duplicate"
	ExpectInvalidArgument = "invalid_argument"
	ExpectNotFound        = "not_found"
)

// Assertion types.
const (
	AssertAncestors   = "ancestors"
	AssertDescendants = "descendants"
	AssertProperty    = "property"
	AssertVersion     = "version"
)

// Ref is a parsed object reference.
type Ref struct {
	Alias string
	// Version is ir.AllVersions when the reference had no "@" or used "@*".
	Version ir.Version
	// Explicit reports whether the reference carried a version.
	Explicit bool
}

// String renders the reference in scenario syntax.
func (r Ref) String() string {
	if !r.Explicit {
		return r.Alias
	}
	if r.Version.IsAll() {
		return r.Alias + "@*"
	}
	return fmt.Sprintf("%s@%d", r.Alias, r.Version)
}

// ParseRef parses "alias", "alias@N" or "alias@*".
func ParseRef(s string) (Ref, error) {
	alias, ver, hasVer := strings.Cut(strings.TrimSpace(s), "@")
	if alias == "" {
		return Ref{}, fmt.Errorf("reference %q: empty alias", s)
	}
	if !hasVer {
		return Ref{Alias: alias, Version: ir.AllVersions}, nil
	}
	if ver == "*" {
		return Ref{Alias: alias, Version: ir.AllVersions, Explicit: true}, nil
	}
	n, err := strconv.ParseInt(ver, 10, 32)
	if err != nil || n < 0 {
		return Ref{}, fmt.Errorf("reference %q: version must be a non-negative integer or *", s)
	}
	return Ref{Alias: alias, Version: ir.Version(n), Explicit: true}, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), violates the schema, or references undeclared aliases.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if errs := ValidateSchema(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid scenario: %w", errs[0])
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks what the schema cannot: alias uniqueness,
// references to declared aliases, and the fields each op requires.
func validateScenario(s *Scenario) error {
	declared := make(map[string]bool, len(s.Objects))
	for i, obj := range s.Objects {
		if declared[obj.Alias] {
			return fmt.Errorf("objects[%d]: duplicate alias %q", i, obj.Alias)
		}
		if obj.Container != "" {
			ref, err := ParseRef(obj.Container)
			if err != nil {
				return fmt.Errorf("objects[%d].container: %w", i, err)
			}
			if !declared[ref.Alias] {
				return fmt.Errorf("objects[%d].container: alias %q is not declared before %q", i, ref.Alias, obj.Alias)
			}
			if !ref.Explicit || ref.Version.IsAll() {
				return fmt.Errorf("objects[%d].container: %q needs a concrete version", i, obj.Container)
			}
		}
		declared[obj.Alias] = true
	}

	checkRef := func(field, s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		ref, err := ParseRef(s)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if !declared[ref.Alias] {
			return fmt.Errorf("%s: undeclared alias %q", field, ref.Alias)
		}
		return nil
	}

	for i, step := range s.Steps {
		prefix := fmt.Sprintf("steps[%d]", i)
		switch step.Op {
		case OpNewVersion:
			if err := checkRef(prefix+".object", step.Object); err != nil {
				return err
			}
		case OpDataFlow, OpControlFlow:
			if err := checkRef(prefix+".dest", step.Dest); err != nil {
				return err
			}
			if err := checkRef(prefix+".source", step.Source); err != nil {
				return err
			}
		case OpProperty:
			if err := checkRef(prefix+".object", step.Object); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown op %q", prefix, step.Op)
		}
	}

	for i, a := range s.Assertions {
		prefix := fmt.Sprintf("assertions[%d]", i)
		switch a.Type {
		case AssertAncestors, AssertDescendants:
			if err := checkRef(prefix+".query", a.Query); err != nil {
				return err
			}
			for j, entry := range a.Expect {
				if err := checkRef(fmt.Sprintf("%s.expect[%d].other", prefix, j), entry.Other); err != nil {
					return err
				}
			}
		case AssertProperty:
			for j, m := range a.Matches {
				if err := checkRef(fmt.Sprintf("%s.matches[%d]", prefix, j), m); err != nil {
					return err
				}
			}
		case AssertVersion:
			if err := checkRef(prefix+".object", a.Object); err != nil {
				return err
			}
			if a.Version == nil {
				return fmt.Errorf("%s: version is required", prefix)
			}
		default:
			return fmt.Errorf("%s: unknown assertion type %q", prefix, a.Type)
		}
	}
	return nil
}
