package models

import (
	"time"
)

// Summary represents the structure of a summary row in the database.
type Summary struct {
	ID           string     `json:"id"`
	TranscriptID string     `json:"transcript_id"`
	UserID       *string    `json:"user_id,omitempty"`
	SummaryText  string     `json:"summary_text"`
	Method       *string    `json:"method,omitempty"`     // Nullable TEXT, e.g. the summarizer model name
	CreatedAt    *time.Time `json:"created_at,omitempty"` // Nullable TIMESTAMPTZ
}
