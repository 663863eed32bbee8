package ir

import (
	"fmt"
	"time"
)

// Originator and type used for filesystem objects.
const (
	OriginatorFilesystem = "filesystem"
	TypeFile             = "file"
)

// ObjectKey is the (originator, name, type) triple objects are looked up by.
// Several objects may share a key; lookups return the newest.
type ObjectKey struct {
	Originator string `json:"originator" yaml:"originator"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
}

// String renders the key as originator/type/name.
func (k ObjectKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Originator, k.Type, k.Name)
}

// Complete reports whether every component is non-empty.
func (k ObjectKey) Complete() bool {
	return k.Originator != "" && k.Name != "" && k.Type != ""
}

// Object is an identity record. Version is the current version when the
// record comes from an info call.
type Object struct {
	ID              ObjectID       `json:"id"`
	Key             ObjectKey      `json:"key"`
	Container       *ObjectVersion `json:"container,omitempty"`
	CreationSession ObjectID       `json:"creation_session"`
	CreationTime    time.Time      `json:"creation_time"`
	Version         Version        `json:"version"`
}

// ObjectStamp is one match of a lookup-all query.
type ObjectStamp struct {
	ID           ObjectID  `json:"id"`
	CreationTime time.Time `json:"creation_time"`
}

// VersionInfo describes when and by which session a version was created.
type VersionInfo struct {
	ObjectVersion
	Session      ObjectID  `json:"session"`
	CreationTime time.Time `json:"creation_time"`
}

// Session records the process that disclosed provenance.
type Session struct {
	ID             ObjectID  `json:"id"`
	Originator     string    `json:"originator,omitempty"`
	MACAddress     string    `json:"mac_address,omitempty"`
	User           string    `json:"user"`
	PID            int       `json:"pid"`
	Program        string    `json:"program"`
	ProgramVersion string    `json:"program_version,omitempty"`
	CommandLine    string    `json:"command_line,omitempty"`
	StartTime      time.Time `json:"start_time"`
}

// Edge is a stored dependency: Dest was derived from Source.
type Edge struct {
	Dest   ObjectVersion  `json:"dest"`
	Source ObjectVersion  `json:"source"`
	Type   DependencyType `json:"type"`
}

// Property is one appended key/value annotation on an object-version.
type Property struct {
	ObjectVersion
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AncestryEntry is one neighbor returned by a traversal.
type AncestryEntry struct {
	Query     ObjectVersion  `json:"query"`
	Other     ObjectVersion  `json:"other"`
	Type      DependencyType `json:"type"`
	Direction Direction      `json:"direction"`
}

// Outcome qualifies a successful write.
type Outcome uint8

const (
	// OutcomeOK means the write took effect (or a lookup found an existing object).
	OutcomeOK Outcome = iota
	// OutcomeDuplicateIgnored means an identical edge already existed.
	OutcomeDuplicateIgnored
	// OutcomeObjectCreated means lookup-or-create allocated a new object.
	OutcomeObjectCreated
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDuplicateIgnored:
		return "duplicate_ignored"
	case OutcomeObjectCreated:
		return "object_created"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
