package ir

// Version constants for the record schema and engine.
const (
	// SchemaVersion is the version of the persisted record schema.
	SchemaVersion = "1"

	// EngineVersion is the accumulog engine version.
	EngineVersion = "0.1.0"
)
