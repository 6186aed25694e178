package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pavelanni/examtrainer/internal/model"
	"github.com/pavelanni/examtrainer/internal/scoring"
	"github.com/pavelanni/examtrainer/internal/store"
)

var (
	// ErrQuestionNotInExam is returned when answering a question the session does not contain.
	ErrQuestionNotInExam = errors.New("question not in exam")
	// ErrSessionClosed is returned when changing a submitted session.
	ErrSessionClosed = errors.New("session already submitted")
	// ErrSessionExpired is returned when answering after the deadline.
	ErrSessionExpired = errors.New("session time is up")
)

// BlockLimitError reports that a block already has as many answers as allowed.
type BlockLimitError struct {
	Block model.BlockName
	Limit int
}

func (e *BlockLimitError) Error() string {
	return fmt.Sprintf("answer limit %d for block %s reached", e.Limit, e.Block)
}

// SessionStore persists exam sessions and answers.
type SessionStore interface {
	CreateSession(ctx context.Context, subject string, ex model.Exam, duration time.Duration) (model.ExamSession, error)
	GetSession(ctx context.Context, id string) (model.ExamSession, error)
	GetSessionView(ctx context.Context, id string) (*model.SessionView, error)
	SaveAnswerWithinLimit(ctx context.Context, a model.Answer, limit int) error
	SubmitSession(ctx context.Context, id string, grade int) (bool, error)
}

// Sessions runs timed exams with per-block answer limits.
type Sessions struct {
	assembler *Assembler
	store     SessionStore
	duration  time.Duration
	now       func() time.Time
}

// NewSessions creates a session service. Each exam lasts duration.
func NewSessions(a *Assembler, st SessionStore, duration time.Duration) *Sessions {
	return &Sessions{assembler: a, store: st, duration: duration, now: time.Now}
}

// Start assembles a fresh exam for the subject and opens a session for it.
func (s *Sessions) Start(ctx context.Context, subjectName string) (*model.SessionView, error) {
	ex, err := s.assembler.Assemble(ctx, subjectName)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.CreateSession(ctx, subjectName, ex, s.duration)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &model.SessionView{Session: sess, Answers: []model.Answer{}}, nil
}

// Get returns a session with its answers.
func (s *Sessions) Get(ctx context.Context, id string) (*model.SessionView, error) {
	return s.store.GetSessionView(ctx, id)
}

// Answer scores and saves the notes for one question of an open session.
// A new non-empty answer is refused once its block holds AnswerLimit
// non-empty answers; existing answers may always be edited or cleared.
// The limit is enforced atomically by the store.
func (s *Sessions) Answer(ctx context.Context, sessionID, questionID, notes string) (model.ScoreResult, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return model.ScoreResult{}, err
	}
	if sess.Status != model.StatusInProgress {
		return model.ScoreResult{}, ErrSessionClosed
	}
	if sess.Expired(s.now()) {
		return model.ScoreResult{}, ErrSessionExpired
	}

	block, q, ok := sess.Exam.Find(questionID)
	if !ok {
		return model.ScoreResult{}, fmt.Errorf("%w: %s", ErrQuestionNotInExam, questionID)
	}

	// Blank notes are stored empty so they never count toward the limit.
	if strings.TrimSpace(notes) == "" {
		notes = ""
	}
	spec, _ := Spec(block)
	res := scoring.Score(notes, q.Checkpoints())
	err = s.store.SaveAnswerWithinLimit(ctx, model.Answer{
		SessionID:  sessionID,
		QuestionID: questionID,
		Block:      block,
		Notes:      notes,
		Coverage:   res.Coverage,
	}, spec.AnswerLimit)
	switch {
	case errors.Is(err, store.ErrBlockFull):
		return model.ScoreResult{}, &BlockLimitError{Block: block, Limit: spec.AnswerLimit}
	case errors.Is(err, store.ErrNotInProgress):
		return model.ScoreResult{}, ErrSessionClosed
	case err != nil:
		return model.ScoreResult{}, fmt.Errorf("save answer: %w", err)
	}
	slog.Debug("saved answer", "session", sessionID, "question", questionID, "coverage", res.Coverage)
	return res, nil
}

// Submit closes the session. The grade is the sum of coverages of non-empty
// answers divided by the number of required answers. Submitting after the
// deadline is allowed: answers are frozen at the deadline, so a late submit
// only records the grade. It is logged as late.
func (s *Sessions) Submit(ctx context.Context, id string) (*model.SessionView, error) {
	view, err := s.store.GetSessionView(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.Session.Status != model.StatusInProgress {
		return nil, ErrSessionClosed
	}

	if view.Session.Expired(s.now()) {
		slog.Warn("late exam submission", "session", id, "deadline", view.Session.Deadline)
	}
	grade := Grade(view.Answers)
	ok, err := s.store.SubmitSession(ctx, id, grade)
	if err != nil {
		return nil, fmt.Errorf("submit session: %w", err)
	}
	if !ok {
		return nil, ErrSessionClosed
	}
	slog.Info("exam submitted", "session", id, "subject", view.Session.Subject, "grade", grade)
	return s.store.GetSessionView(ctx, id)
}

// Grade computes the exam grade from saved answers.
func Grade(answers []model.Answer) int {
	total := 0
	for _, a := range answers {
		if strings.TrimSpace(a.Notes) != "" {
			total += a.Coverage
		}
	}
	return int(math.Round(float64(total) / float64(RequiredAnswers())))
}

// AnsweredCount returns the number of non-empty answers.
func AnsweredCount(answers []model.Answer) int {
	n := 0
	for _, a := range answers {
		if strings.TrimSpace(a.Notes) != "" {
			n++
		}
	}
	return n
}
