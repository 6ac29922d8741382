package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/weaver/helper"
)

// Concept is an extracted idea with its importance within the chunk
type Concept struct {
	Text       string  `json:"text"`
	Importance float64 `json:"importance"`
}

// ConceptList is a JSONB-stored list of concepts
type ConceptList []Concept

// Value implements the driver.Valuer interface for database storage
func (l ConceptList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for database retrieval
func (l *ConceptList) Scan(value interface{}) error {
	if value == nil {
		*l = ConceptList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
	return json.Unmarshal(b, l)
}

// Chunk represents a metadata-enriched fragment of a source document.
// Chunks are produced and owned by the ingestion pipeline; this library
// only reads them. All metadata fields are optional, engines must treat
// an empty field as "no candidates" rather than an error.
type Chunk struct {
	ID                 uuid.UUID `json:"id"`
	DocumentID         uuid.UUID `json:"document_id"`
	Content            string    `json:"content"`
	Embedding          []float32 `json:"embedding,omitempty"`
	Themes             []string    `json:"themes,omitempty"`
	Concepts           ConceptList `json:"concepts,omitempty"`
	StructuralPatterns []string  `json:"structural_patterns,omitempty"`
	EmotionalTones     []string  `json:"emotional_tones,omitempty"`
	Domain             string    `json:"domain,omitempty"`
	Summary            string    `json:"summary,omitempty"`
	Importance         float64   `json:"importance,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// ConceptTexts returns the bare concept names, used for set overlap
func (c *Chunk) ConceptTexts() []string {
	texts := make([]string, len(c.Concepts))
	for i, concept := range c.Concepts {
		texts[i] = concept.Text
	}
	return texts
}
