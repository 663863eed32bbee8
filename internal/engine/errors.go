package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/roach88/lineage/internal/store"
)

// Sentinel errors returned by the engine. Check with errors.Is.
//
// A lookup with no match is ErrNotFound; the Try* variants report it as an
// empty result instead. Duplicate edges are not errors (ir.OutcomeDuplicateIgnored).
// store.ErrConflict never escapes: it is retried internally.
var (
	// ErrNotFound is returned when a requested object, version or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed input, unknown enumeration
	// values, and references to entities that do not exist.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorageUnavailable is returned when the backend fails or cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Code is the machine-readable identifier attached to every engine error.
type Code string

const (
	CodeObjectKeyInvalid       Code = "engine.object.key.invalid_argument"
	CodeObjectContainerInvalid Code = "engine.object.container.invalid_argument"
	CodeObjectLookupNotFound   Code = "engine.object.lookup.not_found"
	CodeObjectInfoNotFound     Code = "engine.object.info.not_found"
	CodeFileInvalid            Code = "engine.file.lookup.invalid_argument"
	CodeVersionGetNotFound     Code = "engine.version.get.not_found"
	CodeVersionInvalid         Code = "engine.version.invalid_argument"
	CodeSessionNotFound        Code = "engine.session.get.not_found"
	CodeEdgeInvalid            Code = "engine.edge.add.invalid_argument"
	CodePropertyInvalid        Code = "engine.property.add.invalid_argument"
	CodePropertyLookupNotFound Code = "engine.property.lookup.not_found"
	CodeAncestryInvalid        Code = "engine.ancestry.query.invalid_argument"
	CodeAncestryNotFound       Code = "engine.ancestry.query.not_found"
	CodeReferenceInvalid       Code = "engine.reference.invalid_argument"
	CodeStorageUnavailable     Code = "engine.storage.unavailable"
	CodeStorageConflict        Code = "engine.storage.conflict.unavailable"
)

// errorf starts an error builder for code in the engine domain.
func errorf(code Code) oops.OopsErrorBuilder {
	return oops.Code(code).In("engine")
}

// fromStore translates a backend error into the engine taxonomy.
//
// store.ErrNotFound becomes ErrNotFound under notFound. store.ErrInvalidInput
// becomes ErrInvalidArgument. Context errors keep their identity. Everything
// else, including a conflict that outlived the retry budget, is
// ErrStorageUnavailable.
func fromStore(err error, notFound Code, format string, args ...any) error {
	var (
		code     Code
		sentinel error
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorf(CodeStorageUnavailable).Wrapf(err, format, args...)
	case errors.Is(err, store.ErrNotFound):
		code, sentinel = notFound, ErrNotFound
	case errors.Is(err, store.ErrInvalidInput):
		code, sentinel = CodeReferenceInvalid, ErrInvalidArgument
	case errors.Is(err, store.ErrConflict):
		code, sentinel = CodeStorageConflict, ErrStorageUnavailable
	default:
		code, sentinel = CodeStorageUnavailable, ErrStorageUnavailable
	}
	return errorf(code).Wrapf(fmt.Errorf("%w: %w", sentinel, err), format, args...)
}

// CodeOf returns the engine code carried by err, or "" if there is none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

// FieldsOf returns the structured context attached to err.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}
