// Package scoring rates free-text answer notes by checkpoint coverage.
package scoring

import (
	"math"
	"strings"

	"github.com/pavelanni/examtrainer/internal/model"
)

// Comment message IDs. They are translated by the i18n bundle.
const (
	CommentNoCheckpoints = "ScoreNoCheckpoints"
	CommentTooShort      = "ScoreTooShort"
	CommentListLike      = "ScoreListLike"
	CommentComplete      = "ScoreComplete"
	CommentPartial       = "ScorePartial"
	CommentSuperficial   = "ScoreSuperficial"
)

const (
	minWords        = 40
	shortPenalty    = 20
	listLikePenalty = 30

	completeAt = 85
	partialAt  = 65
)

// Score checks which checkpoints occur in notes (case-insensitive substring
// match) and turns the hit ratio into a coverage percentage. Short answers
// and answers formatted like a list are penalized, and a tier comment is
// attached.
func Score(notes string, checkpoints []string) model.ScoreResult {
	if len(checkpoints) == 0 {
		return model.ScoreResult{
			Coverage: 0,
			Details:  []model.CheckpointHit{},
			Comments: []string{CommentNoCheckpoints},
		}
	}

	lower := strings.ToLower(notes)
	details := make([]model.CheckpointHit, 0, len(checkpoints))
	hits := 0
	for _, cp := range checkpoints {
		ok := strings.Contains(lower, strings.ToLower(cp))
		if ok {
			hits++
		}
		details = append(details, model.CheckpointHit{Checkpoint: cp, Hit: ok})
	}

	coverage := int(math.Round(100 * float64(hits) / float64(len(checkpoints))))

	var comments []string
	words := WordCount(notes)
	penalty := 0
	if words < minWords {
		penalty += shortPenalty
		comments = append(comments, CommentTooShort)
	}
	if float64(LineCount(notes)) >= float64(words)/2 {
		penalty += listLikePenalty
		comments = append(comments, CommentListLike)
	}
	coverage = max(0, coverage-penalty)

	switch {
	case coverage >= completeAt:
		comments = append(comments, CommentComplete)
	case coverage >= partialAt:
		comments = append(comments, CommentPartial)
	default:
		comments = append(comments, CommentSuperficial)
	}

	return model.ScoreResult{
		Coverage: coverage,
		Details:  details,
		Comments: comments,
	}
}

// WordCount returns the number of whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// LineCount returns the number of lines in s after trimming surrounding
// whitespace. Blank text has no lines.
func LineCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Count(s, "\n") + 1
}
