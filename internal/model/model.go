package model

import (
	"fmt"
	"strconv"
	"time"
)

// Question is a single entry of a subject's question bank. The schema is
// free-form; only the "module" tag is required for exam assembly.
type Question map[string]any

// Module returns the module tag ("m1".."m5"), or "" if absent.
func (q Question) Module() string {
	s, _ := q["module"].(string)
	return s
}

// ID returns the question's "id" field rendered as a string, or "" if absent.
func (q Question) ID() string {
	switch v := q["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Title returns the question's display title.
func (q Question) Title() string {
	s, _ := q["title"].(string)
	return s
}

// Body returns the question text.
func (q Question) Body() string {
	s, _ := q["body"].(string)
	return s
}

// Explanation returns the optional explanation shown under the body.
func (q Question) Explanation() string {
	s, _ := q["explanation"].(string)
	return s
}

// Checkpoints returns the phrases an answer to this question should contain.
// Non-string entries are skipped.
func (q Question) Checkpoints() []string {
	raw, _ := q["checkpoints"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// BlockName identifies one block of an exam.
type BlockName string

const (
	BlockA BlockName = "A"
	BlockB BlockName = "B"
	BlockC BlockName = "C"
)

// Exam holds the three randomly sampled blocks of one exam.
type Exam struct {
	A []Question `json:"A"`
	B []Question `json:"B"`
	C []Question `json:"C"`
}

// Block returns the questions of the named block.
func (e Exam) Block(name BlockName) []Question {
	switch name {
	case BlockA:
		return e.A
	case BlockB:
		return e.B
	case BlockC:
		return e.C
	}
	return nil
}

// QuestionKey identifies a question inside an exam. Questions without an id
// are keyed by block and 1-based position, e.g. "A1".
func QuestionKey(block BlockName, idx int, q Question) string {
	if id := q.ID(); id != "" {
		return id
	}
	return fmt.Sprintf("%s%d", block, idx+1)
}

// Find locates a question by key, returning its block.
func (e Exam) Find(key string) (BlockName, Question, bool) {
	for _, b := range []BlockName{BlockA, BlockB, BlockC} {
		for i, q := range e.Block(b) {
			if QuestionKey(b, i, q) == key {
				return b, q, true
			}
		}
	}
	return "", nil, false
}

// CheckRequest is the body of an answer check.
type CheckRequest struct {
	Notes       string   `json:"notes"`
	Checkpoints []string `json:"checkpoints"`
}

// CheckpointHit reports whether one checkpoint was found in the notes.
type CheckpointHit struct {
	Checkpoint string `json:"checkpoint"`
	Hit        bool   `json:"hit"`
}

// ScoreResult is the outcome of scoring notes against checkpoints.
// Comments holds message IDs; they are localized at the HTTP boundary.
type ScoreResult struct {
	Coverage int             `json:"coverage"`
	Details  []CheckpointHit `json:"details"`
	Comments []string        `json:"comment"`
}

// SessionStatus represents the status of an exam session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusSubmitted  SessionStatus = "submitted"
)

// ExamSession is a persisted exam taken under time and block limits.
type ExamSession struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	Exam        Exam          `json:"exam"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	Deadline    time.Time     `json:"deadline,omitzero"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	Grade       *int          `json:"grade,omitempty"`
}

// Expired reports whether the session deadline has passed at now.
func (s ExamSession) Expired(now time.Time) bool {
	return !s.Deadline.IsZero() && now.After(s.Deadline)
}

// Answer is the latest saved answer to one question of a session.
type Answer struct {
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id"`
	Block      BlockName `json:"block"`
	Notes      string    `json:"notes"`
	Coverage   int       `json:"coverage"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionView combines a session with its saved answers.
type SessionView struct {
	Session ExamSession `json:"session"`
	Answers []Answer    `json:"answers"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	Duration          time.Duration // time allowed per exam session
	Lang              string        // default UI language (en, ru)
	StaticDir         string        // frontend directory; empty disables it
	AdminPasswordHash string        // bcrypt hash; empty disables /admin
}
