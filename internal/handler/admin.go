package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examtrainer/internal/exam"
	"github.com/pavelanni/examtrainer/internal/model"
)

// adminSession is a session row without its exam content.
type adminSession struct {
	ID          string              `json:"id"`
	Subject     string              `json:"subject"`
	Status      model.SessionStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	Deadline    time.Time           `json:"deadline"`
	SubmittedAt *time.Time          `json:"submitted_at,omitempty"`
	Grade       *int                `json:"grade,omitempty"`
}

func (h *Handler) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]adminSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, adminSession{
			ID:          s.ID,
			Subject:     s.Subject,
			Status:      s.Status,
			StartedAt:   s.StartedAt,
			Deadline:    s.Deadline,
			SubmittedAt: s.SubmittedAt,
			Grade:       s.Grade,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.GetSessionView(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := struct {
		sessionResponse
		Grade int `json:"current_grade"`
	}{
		sessionResponse: newSessionResponse(r.Context(), view),
		Grade:           exam.Grade(view.Answers),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	subjectName := r.URL.Query().Get("subject")
	results, err := h.store.ExportAllSessions(r.Context(), subjectName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SessionsExport{
		GeneratedAt: time.Now().UTC(),
		Subject:     subjectName,
		Results:     results,
	})
}
