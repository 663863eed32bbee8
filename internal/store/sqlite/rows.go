package sqlite

import (
	"database/sql"
	"time"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/querysql"
)

// Row types mirror the column lists in internal/querysql.

type sessionRow struct {
	IDHi           int64  `db:"id_hi"`
	IDLo           int64  `db:"id_lo"`
	Originator     string `db:"originator"`
	MACAddress     string `db:"mac_address"`
	Username       string `db:"username"`
	PID            int64  `db:"pid"`
	Program        string `db:"program"`
	ProgramVersion string `db:"program_version"`
	CommandLine    string `db:"cmdline"`
	StartTime      int64  `db:"start_time"`
}

func (r sessionRow) toIR() ir.Session {
	return ir.Session{
		ID:             querysql.JoinID(r.IDHi, r.IDLo),
		Originator:     r.Originator,
		MACAddress:     r.MACAddress,
		User:           r.Username,
		PID:            int(r.PID),
		Program:        r.Program,
		ProgramVersion: r.ProgramVersion,
		CommandLine:    r.CommandLine,
		StartTime:      fromNanos(r.StartTime),
	}
}

type objectRow struct {
	IDHi             int64         `db:"id_hi"`
	IDLo             int64         `db:"id_lo"`
	Originator       string        `db:"originator"`
	Name             string        `db:"name"`
	Type             string        `db:"type"`
	ContainerHi      sql.NullInt64 `db:"container_hi"`
	ContainerLo      sql.NullInt64 `db:"container_lo"`
	ContainerVersion sql.NullInt64 `db:"container_version"`
	SessionHi        int64         `db:"session_hi"`
	SessionLo        int64         `db:"session_lo"`
	CreationTime     int64         `db:"creation_time"`
	Version          int64         `db:"version"`
}

func (r objectRow) toIR() ir.Object {
	obj := ir.Object{
		ID:              querysql.JoinID(r.IDHi, r.IDLo),
		Key:             ir.ObjectKey{Originator: r.Originator, Name: r.Name, Type: r.Type},
		CreationSession: querysql.JoinID(r.SessionHi, r.SessionLo),
		CreationTime:    fromNanos(r.CreationTime),
		Version:         ir.Version(r.Version),
	}
	// A NULL container maps to no container.
	if r.ContainerHi.Valid && r.ContainerLo.Valid && r.ContainerVersion.Valid {
		obj.Container = &ir.ObjectVersion{
			ID:      querysql.JoinID(r.ContainerHi.Int64, r.ContainerLo.Int64),
			Version: ir.Version(r.ContainerVersion.Int64),
		}
	}
	return obj
}

type stampRow struct {
	IDHi         int64 `db:"id_hi"`
	IDLo         int64 `db:"id_lo"`
	CreationTime int64 `db:"creation_time"`
}

type versionRow struct {
	IDHi         int64 `db:"id_hi"`
	IDLo         int64 `db:"id_lo"`
	Version      int64 `db:"version"`
	SessionHi    int64 `db:"session_hi"`
	SessionLo    int64 `db:"session_lo"`
	CreationTime int64 `db:"creation_time"`
}

type edgeRow struct {
	DestHi        int64 `db:"dest_hi"`
	DestLo        int64 `db:"dest_lo"`
	DestVersion   int64 `db:"dest_version"`
	SourceHi      int64 `db:"source_hi"`
	SourceLo      int64 `db:"source_lo"`
	SourceVersion int64 `db:"source_version"`
	Type          int64 `db:"type"`
}

func (r edgeRow) toIR() ir.Edge {
	return ir.Edge{
		Dest:   ir.At(querysql.JoinID(r.DestHi, r.DestLo), ir.Version(r.DestVersion)),
		Source: ir.At(querysql.JoinID(r.SourceHi, r.SourceLo), ir.Version(r.SourceVersion)),
		Type:   ir.DependencyType(r.Type),
	}
}

type propertyRow struct {
	IDHi    int64  `db:"id_hi"`
	IDLo    int64  `db:"id_lo"`
	Version int64  `db:"version"`
	Key     string `db:"prop_key"`
	Value   string `db:"prop_value"`
}

type lookupRow struct {
	IDHi    int64 `db:"id_hi"`
	IDLo    int64 `db:"id_lo"`
	Version int64 `db:"version"`
}

// nanos stores timestamps as unix nanoseconds so ordering is exact.
func nanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
