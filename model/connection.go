package model

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionType identifies the detection engine that produced a connection
type ConnectionType string

const (
	ConnectionTypeSemantic       ConnectionType = "semantic"
	ConnectionTypeThematicBridge ConnectionType = "thematic_bridge"
	ConnectionTypeStructural     ConnectionType = "structural_isomorphism"
	ConnectionTypeContradiction  ConnectionType = "contradiction"
	ConnectionTypeEmotional      ConnectionType = "emotional_resonance"
	ConnectionTypeMethodological ConnectionType = "methodological_echo"
	ConnectionTypeTemporal       ConnectionType = "temporal_rhythm"
)

// AllConnectionTypes returns every engine type in the default tie-break order
func AllConnectionTypes() []ConnectionType {
	return []ConnectionType{
		ConnectionTypeSemantic,
		ConnectionTypeThematicBridge,
		ConnectionTypeStructural,
		ConnectionTypeContradiction,
		ConnectionTypeEmotional,
		ConnectionTypeMethodological,
		ConnectionTypeTemporal,
	}
}

// Connection represents a scored relationship between two chunks.
// The triple (source, target, type) is unique, reprocessing a document
// replaces its connection set instead of growing it.
type Connection struct {
	ID             uuid.UUID      `json:"id"`
	SourceChunkID  uuid.UUID      `json:"source_chunk_id"`
	TargetChunkID  uuid.UUID      `json:"target_chunk_id"`
	ConnectionType ConnectionType `json:"connection_type"`
	Strength       float64        `json:"strength"`
	AutoDetected   bool           `json:"auto_detected"`
	Metadata       Metadata       `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	// Results
	FinalScore float64 `json:"final_score,omitempty"`
}

// ConnectionKey is the dedup identity of a connection
type ConnectionKey struct {
	SourceChunkID  uuid.UUID
	TargetChunkID  uuid.UUID
	ConnectionType ConnectionType
}

// Key returns the dedup identity of the connection
func (c *Connection) Key() ConnectionKey {
	return ConnectionKey{
		SourceChunkID:  c.SourceChunkID,
		TargetChunkID:  c.TargetChunkID,
		ConnectionType: c.ConnectionType,
	}
}

// ExportRow is the adjacency-list shape handed to external sync tools
type ExportRow struct {
	SourceChunkID  uuid.UUID      `json:"source_chunk_id"`
	TargetChunkID  uuid.UUID      `json:"target_chunk_id"`
	ConnectionType ConnectionType `json:"connection_type"`
	Strength       float64        `json:"strength"`
	Metadata       Metadata       `json:"metadata,omitempty"`
}
