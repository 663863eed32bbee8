package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyEncoding(t *testing.T) {
	// The numeric encoding is persisted; pin it.
	assert.Equal(t, DependencyType(0x0100), DataGeneric)
	assert.Equal(t, DependencyType(0x0101), DataInput)
	assert.Equal(t, DependencyType(0x0102), DataIPC)
	assert.Equal(t, DependencyType(0x0103), DataTranslation)
	assert.Equal(t, DependencyType(0x0104), DataCopy)
	assert.Equal(t, DependencyType(0x0200), ControlGeneric)
	assert.Equal(t, DependencyType(0x0201), ControlOp)
	assert.Equal(t, DependencyType(0x0202), ControlStart)
	assert.Equal(t, DependencyType(0x0300), VersionPrev)

	assert.Equal(t, CategoryData, DataIPC.Category())
	assert.Equal(t, uint8(2), DataIPC.Subtype())
	assert.Equal(t, ControlStart, Dependency(CategoryControl, 2))
}

func TestDependencyValidity(t *testing.T) {
	assert.True(t, DataCopy.Valid())
	assert.True(t, DataCopy.Storable())
	assert.True(t, VersionPrev.Valid())
	assert.False(t, VersionPrev.Storable())
	assert.False(t, DependencyType(0x0105).Valid())
	assert.False(t, DependencyType(0x0400).Valid())
	assert.Equal(t, "unknown(0x0105)", DependencyType(0x0105).String())
}

func TestParseDependencyType(t *testing.T) {
	for _, in := range []string{"data input", "data-input", "DATA_INPUT"} {
		got, err := ParseDependencyType(in)
		require.NoError(t, err, in)
		assert.Equal(t, DataInput, got)
	}
	_, err := ParseDependencyType("data sideways")
	assert.Error(t, err)
}

func TestSubtypeByName(t *testing.T) {
	got, err := DataSubtype("translation")
	require.NoError(t, err)
	assert.Equal(t, DataTranslation, got)

	got, err = DataSubtype("")
	require.NoError(t, err)
	assert.Equal(t, DataGeneric, got)

	got, err = ControlSubtype("start")
	require.NoError(t, err)
	assert.Equal(t, ControlStart, got)

	_, err = ControlSubtype("input")
	assert.Error(t, err)
}

func TestDependencyTextRoundTrip(t *testing.T) {
	text, err := ControlOp.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "control op", string(text))

	var back DependencyType
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, ControlOp, back)

	_, err = DependencyType(0x0999).MarshalText()
	assert.Error(t, err)
}
