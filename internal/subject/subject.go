// Package subject holds the catalog of question banks and loads their
// questions on demand.
package subject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/pavelanni/examtrainer/internal/model"
)

var (
	// ErrNotFound is returned for an unknown subject or a missing backing file.
	ErrNotFound = errors.New("subject not found")
	// ErrCorruptData is returned when a backing file is not a valid question bank.
	ErrCorruptData = errors.New("corrupt question data")
)

// Loader reads the raw JSON content of one question bank.
// A missing source must be reported with an error wrapping fs.ErrNotExist.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]byte, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// FSLoader reads name from fsys on every call.
func FSLoader(fsys fs.FS, name string) Loader {
	return LoaderFunc(func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fs.ReadFile(fsys, name)
	})
}

// FileLoader reads the file at path on every call.
func FileLoader(path string) Loader {
	return LoaderFunc(func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	})
}

// Subject binds a subject name to the loader of its question bank.
type Subject struct {
	Name   string
	Loader Loader
}

// Catalog is the fixed, ordered set of subjects configured at startup.
type Catalog struct {
	subjects []Subject
	index    map[string]int
}

// NewCatalog builds a catalog preserving the order of subjects.
func NewCatalog(subjects ...Subject) (*Catalog, error) {
	c := &Catalog{
		subjects: make([]Subject, 0, len(subjects)),
		index:    make(map[string]int, len(subjects)),
	}
	for _, s := range subjects {
		if s.Name == "" {
			return nil, errors.New("subject name is empty")
		}
		if s.Loader == nil {
			return nil, fmt.Errorf("subject %q has no loader", s.Name)
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate subject %q", s.Name)
		}
		c.index[s.Name] = len(c.subjects)
		c.subjects = append(c.subjects, s)
	}
	return c, nil
}

// ListSubjects returns the subject names in configuration order.
func (c *Catalog) ListSubjects() []string {
	names := make([]string, len(c.subjects))
	for i, s := range c.subjects {
		names[i] = s.Name
	}
	return names
}

// LoadQuestions reads and parses the question bank of the named subject.
// Nothing is cached; every call goes back to the loader.
func (c *Catalog) LoadQuestions(ctx context.Context, name string) ([]model.Question, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	data, err := c.subjects[i].Loader.Load(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("question bank missing", "subject", name, "error", err)
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("load %q: %w", name, err)
	}

	if err := validateBank(data); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCorruptData, name, err)
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCorruptData, name, err)
	}
	slog.Debug("loaded questions", "subject", name, "count", len(questions))
	return questions, nil
}
