package model

import "time"

// SessionsExport is the top-level JSON structure for session export.
type SessionsExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Subject     string          `json:"subject,omitempty"`
	Results     []SessionResult `json:"results"`
}

// SessionResult holds one exam session's data for export.
type SessionResult struct {
	SessionID   string           `json:"session_id"`
	Subject     string           `json:"subject"`
	Status      SessionStatus    `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
	Grade       *int             `json:"grade,omitempty"`
	Questions   []QuestionResult `json:"questions"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	QuestionID string    `json:"question_id"`
	Block      BlockName `json:"block"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes"`
	Coverage   *int      `json:"coverage,omitempty"`
}
