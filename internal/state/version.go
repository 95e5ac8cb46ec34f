package state

// Version constants for the engine and journal schema.
const (
	// EngineVersion is the Specular engine version.
	EngineVersion = "0.1.0"

	// JournalVersion is the delta journal schema version.
	JournalVersion = "1"
)
