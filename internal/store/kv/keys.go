package kv

import (
	"encoding/binary"

	"github.com/roach88/lineage/internal/ir"
)

// Key layout. Integers are big-endian so byte order equals numeric order.
//
//	s | id                          -> sessionRecord
//	o | id                          -> objectRecord
//	n | id                          -> current version (uint32)
//	v | id | version                -> versionRecord
//	h | keyFP                       -> head: newest id | creation nanos
//	k | keyFP | nanos | seq         -> id        (lookup-all, oldest first)
//	c | nanos | seq                 -> id        (list, oldest first)
//	a | dest | destVer | seq        -> edgeRecord (ancestors scan)
//	d | source | sourceVer | seq    -> edgeRecord (descendants scan)
//	u | dest | destVer | source | sourceVer | type -> seq (uniqueness guard)
//	p | id | seq                    -> propertyRecord
//	q | propFP | seq                -> id | version
//	! seq                           -> Badger sequence
const (
	prefixSession     byte = 's'
	prefixObject      byte = 'o'
	prefixCurrent     byte = 'n'
	prefixVersion     byte = 'v'
	prefixHead        byte = 'h'
	prefixKeyIndex    byte = 'k'
	prefixCreation    byte = 'c'
	prefixAncestor    byte = 'a'
	prefixDescendant  byte = 'd'
	prefixUnique      byte = 'u'
	prefixProperty    byte = 'p'
	prefixPropIndex   byte = 'q'
	sequenceKeyString      = "!seq"
)

// keyBuilder appends fixed-width fields to a key.
type keyBuilder []byte

func newKey(prefix byte) keyBuilder {
	return keyBuilder{prefix}
}

func (k keyBuilder) id(id ir.ObjectID) keyBuilder {
	k = binary.BigEndian.AppendUint64(k, id.Hi)
	return binary.BigEndian.AppendUint64(k, id.Lo)
}

func (k keyBuilder) version(v ir.Version) keyBuilder {
	return binary.BigEndian.AppendUint32(k, uint32(v))
}

func (k keyBuilder) u64(n uint64) keyBuilder {
	return binary.BigEndian.AppendUint64(k, n)
}

func (k keyBuilder) u16(n uint16) keyBuilder {
	return binary.BigEndian.AppendUint16(k, n)
}

// nanos appends a signed timestamp with the sign bit flipped so negative
// values sort before positive ones.
func (k keyBuilder) nanos(n int64) keyBuilder {
	return k.u64(uint64(n) ^ (1 << 63))
}

func (k keyBuilder) raw(b []byte) keyBuilder {
	return append(k, b...)
}

func sessionKey(id ir.ObjectID) []byte { return newKey(prefixSession).id(id) }
func objectKey(id ir.ObjectID) []byte  { return newKey(prefixObject).id(id) }
func currentKey(id ir.ObjectID) []byte { return newKey(prefixCurrent).id(id) }

func versionKey(ov ir.ObjectVersion) []byte {
	return newKey(prefixVersion).id(ov.ID).version(ov.Version)
}

func headKey(fp [32]byte) []byte { return newKey(prefixHead).raw(fp[:]) }

func keyIndexPrefix(fp [32]byte) []byte { return newKey(prefixKeyIndex).raw(fp[:]) }

func keyIndexKey(fp [32]byte, nanos int64, seq uint64) []byte {
	return keyBuilder(keyIndexPrefix(fp)).nanos(nanos).u64(seq)
}

func creationKey(nanos int64, seq uint64) []byte {
	return newKey(prefixCreation).nanos(nanos).u64(seq)
}

// edgeScanPrefix returns the scan prefix for edges anchored at ov.
// An AllVersions anchor scans every version of the object.
func edgeScanPrefix(prefix byte, ov ir.ObjectVersion) []byte {
	k := newKey(prefix).id(ov.ID)
	if ov.Version.IsAll() {
		return k
	}
	return k.version(ov.Version)
}

func edgeIndexKey(prefix byte, anchor ir.ObjectVersion, seq uint64) []byte {
	return newKey(prefix).id(anchor.ID).version(anchor.Version).u64(seq)
}

func uniqueKey(e ir.Edge) []byte {
	return newKey(prefixUnique).
		id(e.Dest.ID).version(e.Dest.Version).
		id(e.Source.ID).version(e.Source.Version).
		u16(uint16(e.Type))
}

func propertyPrefix(id ir.ObjectID) []byte { return newKey(prefixProperty).id(id) }

func propertyKey(id ir.ObjectID, seq uint64) []byte {
	return newKey(prefixProperty).id(id).u64(seq)
}

func propIndexPrefix(fp [32]byte) []byte { return newKey(prefixPropIndex).raw(fp[:]) }

func propIndexKey(fp [32]byte, seq uint64) []byte {
	return keyBuilder(propIndexPrefix(fp)).u64(seq)
}

// encodeObjectVersion packs an object-version into 20 bytes.
func encodeObjectVersion(ov ir.ObjectVersion) []byte {
	return keyBuilder(nil).id(ov.ID).version(ov.Version)
}

func decodeObjectVersion(b []byte) ir.ObjectVersion {
	return ir.At(decodeID(b), ir.Version(binary.BigEndian.Uint32(b[16:20])))
}

func decodeID(b []byte) ir.ObjectID {
	return ir.ObjectID{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// encodeHead packs the newest id of a name triple with its creation time.
func encodeHead(id ir.ObjectID, nanos int64) []byte {
	return keyBuilder(nil).id(id).nanos(nanos)
}

func decodeHead(b []byte) (ir.ObjectID, int64) {
	return decodeID(b), decodeNanos(b[16:])
}

// decodeNanos reverses keyBuilder.nanos.
func decodeNanos(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b[:8]) ^ (1 << 63))
}
