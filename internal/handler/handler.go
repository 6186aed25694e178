package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examtrainer/internal/exam"
	appI18n "github.com/pavelanni/examtrainer/internal/i18n"
	"github.com/pavelanni/examtrainer/internal/llm"
	"github.com/pavelanni/examtrainer/internal/model"
	"github.com/pavelanni/examtrainer/internal/scoring"
	"github.com/pavelanni/examtrainer/internal/store"
	"github.com/pavelanni/examtrainer/internal/subject"
)

var (
	errBadRequest       = errors.New("invalid request body")
	errQuestionNotFound = errors.New("question not found")
	errReviewFailed     = errors.New("review failed")
)

// Reviewer produces examiner feedback on notes.
type Reviewer interface {
	ReviewNotes(ctx context.Context, q model.Question, notes, language string) (*llm.Review, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog   *subject.Catalog
	assembler *exam.Assembler
	sessions  *exam.Sessions
	store     *store.Store
	reviewer  Reviewer
	config    model.ExamConfig
}

// New creates a new Handler. reviewer may be nil, which disables /review.
func New(c *subject.Catalog, s *store.Store, reviewer Reviewer, cfg model.ExamConfig) (*Handler, error) {
	if c == nil || s == nil {
		return nil, errors.New("handler needs a catalog and a store")
	}
	a := exam.NewAssembler(c)
	return &Handler{
		catalog:   c,
		assembler: a,
		sessions:  exam.NewSessions(a, s, cfg.Duration),
		store:     s,
		reviewer:  reviewer,
		config:    cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	h.staticRoutes(r)

	r.Get("/healthz", h.handleHealth)
	r.Get("/subjects", h.handleSubjects)
	r.Get("/questions/{subject}", h.handleQuestions)
	r.Get("/exam/{subject}", h.handleExam)
	r.Post("/check", h.handleCheck)

	r.Post("/sessions", h.handleStartSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Put("/sessions/{sessionID}/answers/{questionID}", h.handleAnswer)
	r.Post("/sessions/{sessionID}/submit", h.handleSubmit)

	if h.reviewer != nil {
		r.Post("/review", h.handleReview)
	}
	if h.config.AdminPasswordHash != "" {
		r.Route("/admin", func(ar chi.Router) {
			ar.Use(h.requireAdmin)
			ar.Get("/sessions", h.handleAdminSessions)
			ar.Get("/sessions/{sessionID}", h.handleAdminSession)
			ar.Get("/export", h.handleAdminExport)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to a status code and an {"error": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var (
		pool  *exam.InsufficientPoolError
		limit *exam.BlockLimitError
	)
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, subject.ErrNotFound):
		status, msg = http.StatusNotFound, "Subject not found"
	case errors.As(err, &pool):
		status, msg = http.StatusUnprocessableEntity, pool.Error()
	case errors.Is(err, subject.ErrCorruptData):
		slog.Error("corrupt subject data", "error", err)
		msg = "Subject data is corrupt"
	case errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "Session not found"
	case errors.Is(err, exam.ErrQuestionNotInExam), errors.Is(err, errQuestionNotFound):
		status, msg = http.StatusNotFound, "Question not found"
	case errors.As(err, &limit):
		status = http.StatusConflict
		msg = appI18n.Td(ctx, "BlockLimitReached", map[string]any{"Block": string(limit.Block)})
	case errors.Is(err, exam.ErrSessionExpired):
		status, msg = http.StatusConflict, appI18n.T(ctx, "SessionExpired")
	case errors.Is(err, exam.ErrSessionClosed):
		status, msg = http.StatusConflict, appI18n.T(ctx, "SessionClosed")
	case errors.Is(err, errReviewFailed):
		slog.Error("review failed", "error", err)
		status, msg = http.StatusBadGateway, "Review is unavailable"
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// urlParam returns the unescaped path parameter. Subject names contain spaces.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSubjects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.ListSubjects())
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.catalog.LoadQuestions(r.Context(), urlParam(r, "subject"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleExam(w http.ResponseWriter, r *http.Request) {
	ex, err := h.assembler.Assemble(r.Context(), urlParam(r, "subject"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// scoreResponse is a ScoreResult with localized comments. Result repeats
// Details under the key the bundled frontend reads.
type scoreResponse struct {
	Coverage int                   `json:"coverage"`
	Details  []model.CheckpointHit `json:"details"`
	Result   []model.CheckpointHit `json:"result"`
	Comment  []string              `json:"comment"`
}

func localizeScore(ctx context.Context, res model.ScoreResult) scoreResponse {
	return scoreResponse{
		Coverage: res.Coverage,
		Details:  res.Details,
		Result:   res.Details,
		Comment:  appI18n.TAll(ctx, res.Comments),
	}
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req model.CheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res := scoring.Score(req.Notes, req.Checkpoints)
	writeJSON(w, http.StatusOK, localizeScore(r.Context(), res))
}

type sessionResponse struct {
	*model.SessionView
	Answered int    `json:"answered"`
	Summary  string `json:"summary"`
}

func newSessionResponse(ctx context.Context, view *model.SessionView) sessionResponse {
	n := exam.AnsweredCount(view.Answers)
	return sessionResponse{
		SessionView: view,
		Answered:    n,
		Summary:     appI18n.Tp(ctx, "AnswersGiven", n),
	}
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Subject == "" {
		writeError(w, r, fmt.Errorf("%w: subject is required", errBadRequest))
		return
	}
	view, err := h.sessions.Start(r.Context(), req.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(r.Context(), view))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(r.Context(), view))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.sessions.Answer(r.Context(), chi.URLParam(r, "sessionID"), urlParam(r, "questionID"), req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, localizeScore(r.Context(), res))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(r.Context(), view))
}

type reviewRequest struct {
	Subject    string `json:"subject"`
	QuestionID string `json:"question_id"`
	Notes      string `json:"notes"`
}

type reviewResponse struct {
	Score    scoreResponse `json:"score"`
	Feedback string        `json:"feedback"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	questions, err := h.catalog.LoadQuestions(ctx, req.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var q model.Question
	for _, candidate := range questions {
		if candidate.ID() != "" && candidate.ID() == req.QuestionID {
			q = candidate
			break
		}
	}
	if q == nil {
		writeError(w, r, fmt.Errorf("%w: %s", errQuestionNotFound, req.QuestionID))
		return
	}

	res := scoring.Score(req.Notes, q.Checkpoints())
	review, err := h.reviewer.ReviewNotes(ctx, q, req.Notes, appI18n.T(ctx, "ReviewLanguage"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errReviewFailed, err))
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{
		Score:    localizeScore(ctx, res),
		Feedback: review.Feedback,
	})
}
