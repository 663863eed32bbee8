package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/roach88/lineage/internal/ir"
)

// fields reads typed columns from a record, remembering the first failure.
type fields struct {
	rec *neo4j.Record
	err error
}

func (f *fields) value(key string) any {
	if f.err != nil {
		return nil
	}
	v, ok := f.rec.Get(key)
	if !ok {
		f.err = fmt.Errorf("column %q missing", key)
	}
	return v
}

func (f *fields) str(key string) string {
	v := f.value(key)
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok && f.err == nil {
		f.err = fmt.Errorf("column %q: want string, got %T", key, v)
	}
	return s
}

func (f *fields) integer(key string) int64 {
	v := f.value(key)
	if v == nil {
		return 0
	}
	n, ok := v.(int64)
	if !ok && f.err == nil {
		f.err = fmt.Errorf("column %q: want integer, got %T", key, v)
	}
	return n
}

func (f *fields) isNull(key string) bool {
	return f.value(key) == nil
}

func (f *fields) id(key string) ir.ObjectID {
	s := f.str(key)
	if f.err != nil {
		return ir.None
	}
	id, err := ir.ParseObjectID(s)
	if err != nil {
		f.err = fmt.Errorf("column %q: %w", key, err)
	}
	return id
}

func (f *fields) version(key string) ir.Version {
	return ir.Version(f.integer(key))
}

func (f *fields) timestamp(key string) time.Time {
	return time.Unix(0, f.integer(key)).UTC()
}

// objectFrom decodes the object columns returned by objectReturn.
func objectFrom(rec *neo4j.Record) (ir.Object, error) {
	f := &fields{rec: rec}
	obj := ir.Object{
		ID: f.id("id"),
		Key: ir.ObjectKey{
			Originator: f.str("originator"),
			Name:       f.str("name"),
			Type:       f.str("type"),
		},
		CreationSession: f.id("session"),
		CreationTime:    f.timestamp("creation_time"),
		Version:         f.version("current"),
	}
	if !f.isNull("container") {
		obj.Container = &ir.ObjectVersion{ID: f.id("container"), Version: f.version("container_version")}
	}
	return obj, f.err
}

// objectReturn projects an Object node bound to o onto the columns objectFrom reads.
const objectReturn = `
	RETURN o.id AS id, o.originator AS originator, o.name AS name, o.type AS type,
	       o.container AS container, o.container_version AS container_version,
	       o.session AS session, o.creation_time AS creation_time, o.current AS current
`

// nextSeq increments the insertion-order counter inside tx.
const nextSeq = `
	MERGE (c:Counter {name: 'seq'})
	SET c.lock = true
	WITH c
	SET c.value = coalesce(c.value, 0) + 1
	REMOVE c.lock
	RETURN c.value AS seq
`

// collect drains a result into its records.
func collect(ctx context.Context, result neo4j.ResultWithContext) ([]*neo4j.Record, error) {
	records := []*neo4j.Record{}
	for result.Next(ctx) {
		records = append(records, result.Record())
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
