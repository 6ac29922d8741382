package model

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackAction is a user reaction to a connection
type FeedbackAction string

const (
	FeedbackActionValidate FeedbackAction = "validate"
	FeedbackActionReject   FeedbackAction = "reject"
	FeedbackActionStar     FeedbackAction = "star"
	FeedbackActionClick    FeedbackAction = "click"
	FeedbackActionIgnore   FeedbackAction = "ignore"
)

// Valid reports whether the action is one of the known feedback actions
func (a FeedbackAction) Valid() bool {
	switch a {
	case FeedbackActionValidate, FeedbackActionReject, FeedbackActionStar, FeedbackActionClick, FeedbackActionIgnore:
		return true
	}
	return false
}

// Feedback is one append-only log entry recording a user action against
// a connection. Rows are never mutated or deleted, the log is the sole
// input to auto-tuning.
type Feedback struct {
	ID           int64          `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	ConnectionID uuid.UUID      `json:"connection_id"`
	Action       FeedbackAction `json:"action"`
	Context      Metadata       `json:"context,omitempty"`
	Note         *string        `json:"note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// EngineFeedbackStats aggregates one engine's feedback inside a window
type EngineFeedbackStats struct {
	Engine    ConnectionType `json:"engine"`
	Validates int            `json:"validates"`
	Rejects   int            `json:"rejects"`
	Stars     int            `json:"stars"`
	Clicks    int            `json:"clicks"`
	Ignores   int            `json:"ignores"`
}

// AcceptRatio returns validates/(validates+rejects) and false when the
// engine got no decisive feedback in the window
func (s *EngineFeedbackStats) AcceptRatio() (float64, bool) {
	decisive := s.Validates + s.Rejects
	if decisive == 0 {
		return 0, false
	}
	return float64(s.Validates) / float64(decisive), true
}
