package models

import (
	"time"
)

// Transcript represents the structure of a transcript row in the database.
// Rows are written by the processing backend; this service only reads and deletes them.
type Transcript struct {
	ID             string    `json:"id"`
	UserID         *string   `json:"user_id,omitempty"` // Nullable when the backend could not parse the user id
	TranscriptText string    `json:"transcript_text"`
	Language       string    `json:"language"`
	Confidence     *float64  `json:"confidence,omitempty"` // Nullable FLOAT
	CreatedAt      time.Time `json:"created_at"`
	Summaries      []Summary `json:"summaries"`
}

// OwnedBy reports whether the transcript belongs to userID.
func (t Transcript) OwnedBy(userID string) bool {
	return t.UserID != nil && *t.UserID == userID
}

// FirstSummary returns the first nested summary, or nil when there is none.
// The schema allows many summaries per transcript but they are presented one-to-one.
func (t Transcript) FirstSummary() *Summary {
	if len(t.Summaries) == 0 {
		return nil
	}
	return &t.Summaries[0]
}

// SummaryIDs returns the ids of all nested summaries.
func (t Transcript) SummaryIDs() []string {
	ids := make([]string, 0, len(t.Summaries))
	for _, s := range t.Summaries {
		ids = append(ids, s.ID)
	}
	return ids
}
