package ir

import (
	"fmt"
	"strings"
)

// DependencyType encodes a dependency as category<<8 | subtype.
// The encoding is persisted, so the numeric values below must not change.
type DependencyType uint16

// Category is the high byte of a DependencyType.
type Category uint8

const (
	CategoryData    Category = 1
	CategoryControl Category = 2
	CategoryVersion Category = 3
)

// Dependency builds a DependencyType from its category and subtype.
func Dependency(c Category, subtype uint8) DependencyType {
	return DependencyType(uint16(c)<<8 | uint16(subtype))
}

// Data dependency subtypes.
const (
	DataGeneric     = DependencyType(uint16(CategoryData) << 8)
	DataInput       = DataGeneric + 1
	DataIPC         = DataGeneric + 2
	DataTranslation = DataGeneric + 3
	DataCopy        = DataGeneric + 4
)

// Control dependency subtypes.
const (
	ControlGeneric = DependencyType(uint16(CategoryControl) << 8)
	ControlOp      = ControlGeneric + 1
	ControlStart   = ControlGeneric + 2
)

// VersionPrev is the implicit edge between consecutive versions of one object.
// It is synthesized by traversal and never stored.
const VersionPrev = DependencyType(uint16(CategoryVersion) << 8)

// Category returns the high byte of t.
func (t DependencyType) Category() Category {
	return Category(t >> 8)
}

// Subtype returns the low byte of t.
func (t DependencyType) Subtype() uint8 {
	return uint8(t & 0xff)
}

// dependencyNames is the canonical display name of every known type.
var dependencyNames = map[DependencyType]string{
	DataGeneric:     "data",
	DataInput:       "data input",
	DataIPC:         "data ipc",
	DataTranslation: "data translation",
	DataCopy:        "data copy",
	ControlGeneric:  "control",
	ControlOp:       "control op",
	ControlStart:    "control start",
	VersionPrev:     "version prev",
}

// Valid reports whether t is one of the defined dependency types.
func (t DependencyType) Valid() bool {
	_, ok := dependencyNames[t]
	return ok
}

// Storable reports whether t may be recorded as an explicit edge.
// Version edges are implicit and cannot be disclosed.
func (t DependencyType) Storable() bool {
	return t.Valid() && t.Category() != CategoryVersion
}

// String returns the human-readable name, or a hex form for unknown values.
func (t DependencyType) String() string {
	if name, ok := dependencyNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%04x)", uint16(t))
}

// MarshalText renders the type by name.
func (t DependencyType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal dependency type: invalid value 0x%04x", uint16(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (t *DependencyType) UnmarshalText(text []byte) error {
	parsed, err := ParseDependencyType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDependencyType accepts "data input", "data-input", "data_input" or
// "control" style names, case-insensitively.
func ParseDependencyType(s string) (DependencyType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	for t, name := range dependencyNames {
		if name == norm {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown dependency type %q", s)
}

// DataSubtype returns the data dependency with the given subtype name
// ("generic", "input", "ipc", "translation", "copy").
func DataSubtype(name string) (DependencyType, error) {
	return subtypeByName(CategoryData, name)
}

// ControlSubtype returns the control dependency with the given subtype name
// ("generic", "op", "start").
func ControlSubtype(name string) (DependencyType, error) {
	return subtypeByName(CategoryControl, name)
}

func subtypeByName(c Category, name string) (DependencyType, error) {
	prefix := "data"
	if c == CategoryControl {
		prefix = "control"
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "generic" {
		return ParseDependencyType(prefix)
	}
	return ParseDependencyType(prefix + " " + name)
}
