package subject

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const networksJSON = `[
  {"id": 1, "module": "m1", "title": "OSI model", "checkpoints": ["seven layers"]},
  {"id": 2, "module": "m3", "title": "TCP handshake"}
]`

func newTestCatalog(t *testing.T, fsys fstest.MapFS) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		Subject{Name: "Computer Networks", Loader: FSLoader(fsys, "computer_networks.json")},
		Subject{Name: "Advanced Data Structures", Loader: FSLoader(fsys, "advanced_data_structures.json")},
		Subject{Name: "Python and Shell Scripting", Loader: FSLoader(fsys, "python_shell_scripting.json")},
	)
	require.NoError(t, err)
	return c
}

func TestListSubjectsPreservesOrder(t *testing.T) {
	c := newTestCatalog(t, fstest.MapFS{})
	assert.Equal(t, []string{
		"Computer Networks",
		"Advanced Data Structures",
		"Python and Shell Scripting",
	}, c.ListSubjects())
}

func TestListSubjectsSingle(t *testing.T) {
	c, err := NewCatalog(Subject{Name: "Computer Networks", Loader: FSLoader(fstest.MapFS{}, "x.json")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Computer Networks"}, c.ListSubjects())
}

func TestListSubjectsReturnsCopy(t *testing.T) {
	c := newTestCatalog(t, fstest.MapFS{})
	names := c.ListSubjects()
	names[0] = "mutated"
	assert.Equal(t, "Computer Networks", c.ListSubjects()[0])
}

func TestNewCatalogRejectsBadConfig(t *testing.T) {
	fsys := fstest.MapFS{}
	tests := []struct {
		name     string
		subjects []Subject
	}{
		{"empty name", []Subject{{Name: "", Loader: FSLoader(fsys, "a.json")}}},
		{"nil loader", []Subject{{Name: "A"}}},
		{"duplicate", []Subject{
			{Name: "A", Loader: FSLoader(fsys, "a.json")},
			{Name: "A", Loader: FSLoader(fsys, "b.json")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.subjects...)
			assert.Error(t, err)
		})
	}
}

func TestLoadQuestions(t *testing.T) {
	fsys := fstest.MapFS{
		"computer_networks.json": {Data: []byte(networksJSON)},
	}
	c := newTestCatalog(t, fsys)

	qs, err := c.LoadQuestions(context.Background(), "Computer Networks")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "m1", qs[0].Module())
	assert.Equal(t, "1", qs[0].ID())
	assert.Equal(t, "OSI model", qs[0].Title())
	assert.Equal(t, []string{"seven layers"}, qs[0].Checkpoints())
	assert.Empty(t, qs[1].Checkpoints())
}

func TestLoadQuestionsNotFound(t *testing.T) {
	c := newTestCatalog(t, fstest.MapFS{})

	t.Run("unknown subject", func(t *testing.T) {
		_, err := c.LoadQuestions(context.Background(), "Astrology")
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := c.LoadQuestions(context.Background(), "Computer Networks")
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("name is case sensitive", func(t *testing.T) {
		_, err := c.LoadQuestions(context.Background(), "computer networks")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLoadQuestionsCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `[{"module": "m1"`},
		{"not an array", `{"module": "m1"}`},
		{"missing module", `[{"title": "x"}]`},
		{"module not string", `[{"module": 1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"computer_networks.json": {Data: []byte(tt.data)}}
			c := newTestCatalog(t, fsys)
			_, err := c.LoadQuestions(context.Background(), "Computer Networks")
			assert.ErrorIs(t, err, ErrCorruptData)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLoadQuestionsFreeFormFields(t *testing.T) {
	data := `[
  {"module": "m1", "checkpoints": "tcp handshake"},
  {"module": "m2", "checkpoints": [1, "flow control", null]},
  {"module": "m3", "tags": {"level": 2}, "points": 5.5, "checkpoints": null}
]`
	fsys := fstest.MapFS{"computer_networks.json": {Data: []byte(data)}}
	c := newTestCatalog(t, fsys)

	qs, err := c.LoadQuestions(context.Background(), "Computer Networks")
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Empty(t, qs[0].Checkpoints())
	assert.Equal(t, []string{"flow control"}, qs[1].Checkpoints())
	assert.Empty(t, qs[2].Checkpoints())
	assert.Equal(t, map[string]any{"level": float64(2)}, qs[2]["tags"])
}

func TestLoadQuestionsEmptyBank(t *testing.T) {
	fsys := fstest.MapFS{"computer_networks.json": {Data: []byte(`[]`)}}
	c := newTestCatalog(t, fsys)
	qs, err := c.LoadQuestions(context.Background(), "Computer Networks")
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestLoadQuestionsRereadsEveryCall(t *testing.T) {
	fsys := fstest.MapFS{"computer_networks.json": {Data: []byte(networksJSON)}}
	c := newTestCatalog(t, fsys)

	qs, err := c.LoadQuestions(context.Background(), "Computer Networks")
	require.NoError(t, err)
	require.Len(t, qs, 2)

	fsys["computer_networks.json"] = &fstest.MapFile{Data: []byte(`[{"module": "m5"}]`)}
	qs, err = c.LoadQuestions(context.Background(), "Computer Networks")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "m5", qs[0].Module())
}

func TestLoadQuestionsLoaderError(t *testing.T) {
	boom := errors.New("disk on fire")
	c, err := NewCatalog(Subject{Name: "A", Loader: LoaderFunc(func(context.Context) ([]byte, error) {
		return nil, boom
	})})
	require.NoError(t, err)

	_, err = c.LoadQuestions(context.Background(), "A")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "computer_networks.json")
	require.NoError(t, os.WriteFile(path, []byte(networksJSON), 0o644))

	c, err := NewCatalog(
		Subject{Name: "Computer Networks", Loader: FileLoader(path)},
		Subject{Name: "Missing", Loader: FileLoader(filepath.Join(dir, "missing.json"))},
	)
	require.NoError(t, err)

	qs, err := c.LoadQuestions(context.Background(), "Computer Networks")
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	_, err = c.LoadQuestions(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadQuestionsCanceledContext(t *testing.T) {
	fsys := fstest.MapFS{"computer_networks.json": {Data: []byte(networksJSON)}}
	c := newTestCatalog(t, fsys)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.LoadQuestions(ctx, "Computer Networks")
	assert.ErrorIs(t, err, context.Canceled)
}
