package models

// ProcessingOptions are forwarded to the processing backend.
type ProcessingOptions struct {
	ForceOutputLanguage string `json:"force_output_language" validate:"omitempty,oneof=auto te en"`
	MaxLength           int    `json:"max_length" validate:"gte=0"`
	MinLength           int    `json:"min_length" validate:"gte=0"`
}

// Default processing options used when the caller leaves a field unset.
const (
	DefaultOutputLanguage = "auto"
	DefaultMaxLength      = 120
	DefaultMinLength      = 20
)

// OutputLanguages are the accepted ForceOutputLanguage values.
var OutputLanguages = []string{"auto", "te", "en"}

// IsOutputLanguage reports whether lang is one of OutputLanguages.
func IsOutputLanguage(lang string) bool {
	for _, l := range OutputLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// WithDefaults returns a copy with zero-valued fields replaced by the defaults.
func (o ProcessingOptions) WithDefaults() ProcessingOptions {
	if o.ForceOutputLanguage == "" {
		o.ForceOutputLanguage = DefaultOutputLanguage
	}
	if o.MaxLength == 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.MinLength == 0 {
		o.MinLength = DefaultMinLength
	}
	return o
}

// ProcessingResult is the view model shown after processing, either fresh from the
// backend or rebuilt from a history entry.
type ProcessingResult struct {
	Success      bool   `json:"success"`
	FileKey      string `json:"fileKey,omitempty"`
	TranscriptID string `json:"transcriptId"`
	SummaryID    string `json:"summaryId"`
	Transcript   string `json:"transcript"`
	Summary      string `json:"summary"`
	Language     string `json:"language"`
	Message      string `json:"message,omitempty"`
}

// ResultFromTranscript rebuilds a ProcessingResult from a stored transcript.
func ResultFromTranscript(t Transcript) ProcessingResult {
	res := ProcessingResult{
		Success:      true,
		TranscriptID: t.ID,
		Transcript:   t.TranscriptText,
		Language:     t.Language,
	}
	if s := t.FirstSummary(); s != nil {
		res.SummaryID = s.ID
		res.Summary = s.SummaryText
	}
	return res
}
