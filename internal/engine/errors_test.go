package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/lineage/internal/store"
)

func TestFromStore(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     Code
	}{
		{
			name:     "not found uses caller code",
			err:      fmt.Errorf("get object: %w", store.ErrNotFound),
			sentinel: ErrNotFound,
			code:     CodeObjectInfoNotFound,
		},
		{
			name:     "invalid input is invalid argument",
			err:      fmt.Errorf("add edge: %w", store.ErrInvalidInput),
			sentinel: ErrInvalidArgument,
			code:     CodeReferenceInvalid,
		},
		{
			name:     "exhausted conflict is unavailable",
			err:      fmt.Errorf("create version: %w", store.ErrConflict),
			sentinel: ErrStorageUnavailable,
			code:     CodeStorageConflict,
		},
		{
			name:     "driver failure is unavailable",
			err:      fmt.Errorf("query: %w", store.ErrUnavailable),
			sentinel: ErrStorageUnavailable,
			code:     CodeStorageUnavailable,
		},
		{
			name:     "unclassified error is unavailable",
			err:      errors.New("disk on fire"),
			sentinel: ErrStorageUnavailable,
			code:     CodeStorageUnavailable,
		},
		{
			name:     "canceled context keeps identity",
			err:      fmt.Errorf("scan: %w", context.Canceled),
			sentinel: context.Canceled,
			code:     CodeStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fromStore(tt.err, CodeObjectInfoNotFound, "op %d", 1)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Contains(t, err.Error(), "op 1")
		})
	}
}

func TestFromStore_ConflictNeverLeaks(t *testing.T) {
	err := fromStore(store.ErrConflict, CodeVersionGetNotFound, "new version")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Nil(t, FieldsOf(errors.New("plain")))
}

func TestFieldsOf(t *testing.T) {
	err := errorf(CodeEdgeInvalid).With("dest", "a@1").Wrapf(ErrInvalidArgument, "add edge")

	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, CodeEdgeInvalid, CodeOf(err))
	assert.Equal(t, "a@1", FieldsOf(err)["dest"])
}
