package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/examtrainer/internal/model"
)

// ExportAllSessions builds export-ready results from all sessions, optionally
// restricted to one subject. Every exam question is listed; unanswered ones
// carry no coverage.
func (s *Store) ExportAllSessions(ctx context.Context, subject string) ([]model.SessionResult, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	results := []model.SessionResult{}
	for _, sess := range sessions {
		if subject != "" && sess.Subject != subject {
			continue
		}

		answers, err := s.GetAnswers(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get answers of session %s: %w", sess.ID, err)
		}
		byQuestion := make(map[string]model.Answer, len(answers))
		for _, a := range answers {
			byQuestion[a.QuestionID] = a
		}

		var questions []model.QuestionResult
		for _, block := range []model.BlockName{model.BlockA, model.BlockB, model.BlockC} {
			for i, q := range sess.Exam.Block(block) {
				key := model.QuestionKey(block, i, q)
				qr := model.QuestionResult{
					QuestionID: key,
					Block:      block,
					Title:      q.Title(),
				}
				if a, ok := byQuestion[key]; ok {
					qr.Notes = a.Notes
					cov := a.Coverage
					qr.Coverage = &cov
				}
				questions = append(questions, qr)
			}
		}

		results = append(results, model.SessionResult{
			SessionID:   sess.ID,
			Subject:     sess.Subject,
			Status:      sess.Status,
			StartedAt:   sess.StartedAt,
			SubmittedAt: sess.SubmittedAt,
			Grade:       sess.Grade,
			Questions:   questions,
		})
	}

	return results, nil
}
