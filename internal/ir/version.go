package ir

// Version constants for the on-disk schema and the engine.
const (
	// SchemaVersion is the storage schema version shared by all backends.
	SchemaVersion = 1

	// EngineVersion is the lineage engine version.
	EngineVersion = "0.1.0"
)
