// Package exam assembles randomized exams from a subject's module pools.
package exam

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/pavelanni/examtrainer/internal/model"
	"github.com/pavelanni/examtrainer/internal/subject"
)

// BlockSpec defines how one exam block is drawn.
type BlockSpec struct {
	Name        model.BlockName
	Modules     []string // module tags that feed the pool
	Size        int      // questions drawn into the block
	AnswerLimit int      // answers a student may give in the block
}

// Layout is the fixed block structure of every exam.
var Layout = []BlockSpec{
	{Name: model.BlockA, Modules: []string{"m1", "m2"}, Size: 4, AnswerLimit: 3},
	{Name: model.BlockB, Modules: []string{"m3", "m4"}, Size: 3, AnswerLimit: 2},
	{Name: model.BlockC, Modules: []string{"m5"}, Size: 1, AnswerLimit: 1},
}

// RequiredAnswers is the number of answers a complete exam needs.
func RequiredAnswers() int {
	n := 0
	for _, b := range Layout {
		n += b.AnswerLimit
	}
	return n
}

// Spec returns the layout entry for a block.
func Spec(name model.BlockName) (BlockSpec, bool) {
	for _, b := range Layout {
		if b.Name == name {
			return b, true
		}
	}
	return BlockSpec{}, false
}

// InsufficientPoolError reports a block whose pool cannot fill it.
type InsufficientPoolError struct {
	Block model.BlockName
	Have  int
	Need  int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("Not enough questions for block %s", e.Block)
}

// QuestionSource loads a subject's questions.
type QuestionSource interface {
	LoadQuestions(ctx context.Context, name string) ([]model.Question, error)
}

// Assembler draws exams from a question source.
type Assembler struct {
	source QuestionSource
}

// NewAssembler creates an Assembler reading from src.
func NewAssembler(src QuestionSource) *Assembler {
	return &Assembler{source: src}
}

// Assemble loads the subject's questions and draws a fresh exam.
func (a *Assembler) Assemble(ctx context.Context, subjectName string) (model.Exam, error) {
	questions, err := a.source.LoadQuestions(ctx, subjectName)
	if err != nil {
		return model.Exam{}, err
	}
	if len(questions) == 0 {
		return model.Exam{}, fmt.Errorf("%w: %q has no questions", subject.ErrNotFound, subjectName)
	}
	ex, err := Build(questions)
	if err != nil {
		slog.Info("cannot assemble exam", "subject", subjectName, "error", err)
		return model.Exam{}, err
	}
	return ex, nil
}

// Pools partitions questions into the pool of each block.
func Pools(questions []model.Question) map[model.BlockName][]model.Question {
	pools := make(map[model.BlockName][]model.Question, len(Layout))
	for _, b := range Layout {
		pools[b.Name] = nil
	}
	for _, q := range questions {
		for _, b := range Layout {
			if slices.Contains(b.Modules, q.Module()) {
				pools[b.Name] = append(pools[b.Name], q)
				break
			}
		}
	}
	return pools
}

// Build checks every pool in block order and samples each block.
// It never returns a short block.
func Build(questions []model.Question) (model.Exam, error) {
	pools := Pools(questions)
	for _, b := range Layout {
		if have := len(pools[b.Name]); have < b.Size {
			return model.Exam{}, &InsufficientPoolError{Block: b.Name, Have: have, Need: b.Size}
		}
	}

	var ex model.Exam
	for _, b := range Layout {
		drawn := sample(pools[b.Name], b.Size)
		switch b.Name {
		case model.BlockA:
			ex.A = drawn
		case model.BlockB:
			ex.B = drawn
		case model.BlockC:
			ex.C = drawn
		}
	}
	return ex, nil
}

// sample draws k distinct elements uniformly at random. k <= len(pool).
func sample(pool []model.Question, k int) []model.Question {
	out := make([]model.Question, 0, k)
	for _, i := range rand.Perm(len(pool))[:k] {
		out = append(out, pool[i])
	}
	return out
}
