package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDString(t *testing.T) {
	id := ObjectID{Hi: 0xabc, Lo: 7}
	assert.Equal(t, "0000000000000abc:0000000000000007", id.String())
	assert.True(t, None.IsNone())
	assert.False(t, id.IsNone())
}

func TestParseObjectID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ObjectID
		wantErr bool
	}{
		{"padded", "0000000000000abc:0000000000000007", ObjectID{Hi: 0xabc, Lo: 7}, false},
		{"short", "abc:7", ObjectID{Hi: 0xabc, Lo: 7}, false},
		{"max", "ffffffffffffffff:ffffffffffffffff", ObjectID{Hi: ^uint64(0), Lo: ^uint64(0)}, false},
		{"missing colon", "abc", None, true},
		{"empty lo", "abc:", None, true},
		{"not hex", "xyz:1", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectVersion(t *testing.T) {
	ov, err := ParseObjectVersion("a:1@3")
	require.NoError(t, err)
	assert.Equal(t, At(ObjectID{Hi: 0xa, Lo: 1}, 3), ov)

	ov, err = ParseObjectVersion("a:1")
	require.NoError(t, err)
	assert.True(t, ov.Version.IsAll())

	ov, err = ParseObjectVersion("a:1@*")
	require.NoError(t, err)
	assert.Equal(t, AllVersions, ov.Version)

	_, err = ParseObjectVersion("a:1@-2")
	assert.Error(t, err)
	_, err = ParseObjectVersion("a:1@x")
	assert.Error(t, err)
}

func TestObjectVersionOrdering(t *testing.T) {
	a := At(ObjectID{Hi: 1, Lo: 1}, 2)
	b := At(ObjectID{Hi: 1, Lo: 2}, 0)
	c := At(ObjectID{Hi: 1, Lo: 2}, 1)
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}

func TestObjectVersionJSON(t *testing.T) {
	ov := At(ObjectID{Hi: 0xff, Lo: 2}, 4)
	data, err := json.Marshal(ov)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"00000000000000ff:0000000000000002","version":4}`, string(data))

	var back ObjectVersion
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ov, back)
}
