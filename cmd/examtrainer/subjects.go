package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pavelanni/examtrainer/internal/subject"
)

// subjectConfig maps a display name to a question file under data-dir.
type subjectConfig struct {
	Name string `mapstructure:"name"`
	File string `mapstructure:"file"`
}

var defaultSubjects = []map[string]string{
	{"name": "Computer Networks", "file": "computer_networks.json"},
	{"name": "Advanced Data Structures", "file": "advanced_data_structures.json"},
	{"name": "Python and Shell Scripting", "file": "python_shell_scripting.json"},
}

// buildCatalog creates the subject catalog from the "subjects" and
// "data-dir" settings. Files are read on every request.
func buildCatalog(v *viper.Viper) (*subject.Catalog, error) {
	var cfgs []subjectConfig
	if err := v.UnmarshalKey("subjects", &cfgs); err != nil {
		return nil, fmt.Errorf("parse subjects: %w", err)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no subjects configured")
	}

	dataDir := v.GetString("data-dir")
	subjects := make([]subject.Subject, 0, len(cfgs))
	for _, c := range cfgs {
		if c.File == "" {
			return nil, fmt.Errorf("subject %q has no file", c.Name)
		}
		path := c.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		subjects = append(subjects, subject.Subject{Name: c.Name, Loader: subject.FileLoader(path)})
	}
	return subject.NewCatalog(subjects...)
}
