package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectID is the 128-bit identity of a provenance object.
//
// Hi is the origination-site component and Lo is a site-local counter.
// The zero value is None and is never allocated to a real object.
type ObjectID struct {
	Hi uint64
	Lo uint64
}

// None is the reserved "no object" identity.
var None = ObjectID{}

// IsNone reports whether id is the reserved None identity.
func (id ObjectID) IsNone() bool {
	return id == None
}

// String renders the id as two zero-padded hex halves separated by a colon.
func (id ObjectID) String() string {
	return fmt.Sprintf("%016x:%016x", id.Hi, id.Lo)
}

// Less orders ids by (Hi, Lo).
func (id ObjectID) Less(other ObjectID) bool {
	if id.Hi != other.Hi {
		return id.Hi < other.Hi
	}
	return id.Lo < other.Lo
}

// MarshalText implements encoding.TextMarshaler so ids render as strings in JSON and YAML.
func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseObjectID parses the "hi:lo" hex form produced by ObjectID.String.
// Leading zeros are optional.
func ParseObjectID(s string) (ObjectID, error) {
	hiStr, loStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || hiStr == "" || loStr == "" {
		return None, fmt.Errorf("parse object id %q: expected hi:lo", s)
	}
	hi, err := strconv.ParseUint(hiStr, 16, 64)
	if err != nil {
		return None, fmt.Errorf("parse object id %q: hi: %w", s, err)
	}
	lo, err := strconv.ParseUint(loStr, 16, 64)
	if err != nil {
		return None, fmt.Errorf("parse object id %q: lo: %w", s, err)
	}
	return ObjectID{Hi: hi, Lo: lo}, nil
}

// Version is a per-object version number. Versions start at 0 and grow by
// exactly one with every NewVersion call.
type Version int32

const (
	// AllVersions requests the union over every version of an object.
	AllVersions Version = -1

	// NoVersion marks the absence of a version (e.g. an object without container).
	NoVersion Version = -1
)

// IsAll reports whether v is the AllVersions wildcard.
func (v Version) IsAll() bool {
	return v == AllVersions
}

// ObjectVersion names one version of one object.
type ObjectVersion struct {
	ID      ObjectID `json:"id"`
	Version Version  `json:"version"`
}

// At returns the ObjectVersion for id at version v.
func At(id ObjectID, v Version) ObjectVersion {
	return ObjectVersion{ID: id, Version: v}
}

// String renders the pair as "hi:lo@version", or "hi:lo@*" for AllVersions.
func (ov ObjectVersion) String() string {
	if ov.Version.IsAll() {
		return ov.ID.String() + "@*"
	}
	return fmt.Sprintf("%s@%d", ov.ID, ov.Version)
}

// Less orders pairs by id and then version.
func (ov ObjectVersion) Less(other ObjectVersion) bool {
	if ov.ID != other.ID {
		return ov.ID.Less(other.ID)
	}
	return ov.Version < other.Version
}

// ParseObjectVersion parses "hi:lo@version". A missing "@version" yields
// AllVersions, as does "@*".
func ParseObjectVersion(s string) (ObjectVersion, error) {
	idStr, verStr, hasVer := strings.Cut(strings.TrimSpace(s), "@")
	id, err := ParseObjectID(idStr)
	if err != nil {
		return ObjectVersion{}, err
	}
	if !hasVer || verStr == "*" {
		return At(id, AllVersions), nil
	}
	v, err := strconv.ParseInt(verStr, 10, 32)
	if err != nil {
		return ObjectVersion{}, fmt.Errorf("parse object version %q: %w", s, err)
	}
	if v < 0 {
		return ObjectVersion{}, fmt.Errorf("parse object version %q: negative version", s)
	}
	return At(id, Version(v)), nil
}
