package kv

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/lineage/internal/ir"
)

// Stored values are JSON documents, one per record.

type sessionRecord struct {
	Originator     string `json:"originator,omitempty"`
	MACAddress     string `json:"mac_address,omitempty"`
	User           string `json:"user"`
	PID            int    `json:"pid"`
	Program        string `json:"program"`
	ProgramVersion string `json:"program_version,omitempty"`
	CommandLine    string `json:"command_line,omitempty"`
	StartTime      int64  `json:"start_time"`
}

type objectRecord struct {
	Key          ir.ObjectKey      `json:"key"`
	Container    *ir.ObjectVersion `json:"container,omitempty"`
	Session      ir.ObjectID       `json:"session"`
	CreationTime int64             `json:"creation_time"`
	Seq          uint64            `json:"seq"`
}

type versionRecord struct {
	Session      ir.ObjectID `json:"session"`
	CreationTime int64       `json:"creation_time"`
}

type edgeRecord struct {
	Dest   ir.ObjectVersion  `json:"dest"`
	Source ir.ObjectVersion  `json:"source"`
	Type   ir.DependencyType `json:"type"`
}

type propertyRecord struct {
	Version ir.Version `json:"version"`
	Key     string     `json:"key"`
	Value   string     `json:"value"`
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

func (r objectRecord) toIR(id ir.ObjectID, current ir.Version) ir.Object {
	return ir.Object{
		ID:              id,
		Key:             r.Key,
		Container:       r.Container,
		CreationSession: r.Session,
		CreationTime:    fromNanos(r.CreationTime),
		Version:         current,
	}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
