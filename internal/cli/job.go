package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"

	"gopkg.in/yaml.v3"
)

// DataFile is one shorthand or item table of a job.
type DataFile struct {
	Path string `yaml:"path"`
	// Type is "shorthand" (default) or "items".
	Type        string `yaml:"type"`
	EntryPrefix string `yaml:"entry_prefix"`
}

// Job describes a compile run read from a YAML file. Relative paths are
// taken from the job file's directory.
type Job struct {
	Store           string            `yaml:"store"`
	EntrySyntax     string            `yaml:"entry_syntax"`
	LinkSyntax      string            `yaml:"link_syntax"`
	LinkConstraints string            `yaml:"link_constraints"`
	Aliases         map[string]string `yaml:"aliases"`
	Data            []DataFile        `yaml:"data"`

	Options shorthand.Options `yaml:"options"`
	// Generators is omitted for the default alias generators and given as
	// {} for none.
	Generators        map[string]string `yaml:"generators"`
	ExcludedLinkTypes []string          `yaml:"excluded_link_types"`

	dir string
}

// LoadJob reads and checks a job file. Unknown keys are rejected.
func LoadJob(path string) (*Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	job := new(Job)
	if err := dec.Decode(job); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	job.dir = filepath.Dir(path)

	switch {
	case job.Store == "":
		return nil, errors.New("job names no store")
	case job.EntrySyntax == "":
		return nil, errors.New("job names no entry_syntax")
	case len(job.Data) == 0:
		return nil, errors.New("job lists no data files")
	}
	for i, d := range job.Data {
		if d.Path == "" {
			return nil, fmt.Errorf("data file %d has no path", i)
		}
		if d.Type != "" && d.Type != string(loader.GraphFileTypeShorthand) && d.Type != string(loader.GraphFileTypeItems) {
			return nil, fmt.Errorf("data file %s: unknown type %q", d.Path, d.Type)
		}
	}
	return job, nil
}

func (j *Job) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(j.dir, p)
}

// Input builds the compile input, reading every file through l.
func (j *Job) Input(l loader.GraphFileLoader) graph.CompileInput {
	n := 0
	params := func(p string) loader.NewGraphFileParams {
		n++
		return loader.NewGraphFileParams{ID: fmt.Sprintf("%s-%d", j.Store, n), FilePath: j.path(p), Loader: l}
	}

	files := []loader.GraphFile{loader.NewEntrySyntaxFile(params(j.EntrySyntax))}
	if j.LinkSyntax != "" {
		files = append(files, loader.NewLinkSyntaxFile(params(j.LinkSyntax)))
	}
	if j.LinkConstraints != "" {
		files = append(files, loader.NewLinkConstraintsFile(params(j.LinkConstraints)))
	}
	for nodeType, p := range j.Aliases {
		files = append(files, loader.NewAliasFile(params(p), nodeType))
	}
	for _, d := range j.Data {
		if d.Type == string(loader.GraphFileTypeItems) {
			files = append(files, loader.NewItemsFile(params(d.Path), d.EntryPrefix))
			continue
		}
		files = append(files, loader.NewShorthandFile(params(d.Path)))
	}

	return graph.CompileInput{
		Files:             files,
		Options:           j.Options,
		Generators:        j.Generators,
		ExcludedLinkTypes: j.ExcludedLinkTypes,
	}
}
