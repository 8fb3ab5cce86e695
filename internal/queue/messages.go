package queue

import (
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
)

// CompileFile is one uploaded input of a compile job.
type CompileFile struct {
	Key         string `json:"key" validate:"required"`
	Type        string `json:"type" validate:"required"`
	NodeType    string `json:"node_type,omitempty"`
	EntryPrefix string `json:"entry_prefix,omitempty"`
}

// CompileMsg asks the worker to rebuild a store from its inputs.
type CompileMsg struct {
	StoreID           string            `json:"store_id" validate:"required"`
	Files             []CompileFile     `json:"files" validate:"required,min=1,dive"`
	Options           shorthand.Options `json:"options"`
	Generators        map[string]string `json:"generators,omitempty"`
	ExcludedLinkTypes []string          `json:"excluded_link_types,omitempty"`
}

// DeleteMsg asks the worker to drop a store and its inputs.
type DeleteMsg struct {
	StoreID string `json:"store_id"`
}

// StoreEvent is published after a job settles a store.
type StoreEvent struct {
	StoreID string `json:"store_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Input turns the message into a compile input whose files are read
// through l.
func (m CompileMsg) Input(l loader.GraphFileLoader) (graph.CompileInput, error) {
	files := make([]loader.GraphFile, 0, len(m.Files))
	for i, f := range m.Files {
		ft, err := loader.ParseGraphFileType(f.Type)
		if err != nil {
			return graph.CompileInput{}, fmt.Errorf("file %d: %w", i, err)
		}
		files = append(files, loader.GraphFile{
			ID:          fmt.Sprintf("%s-%d", m.StoreID, i),
			FilePath:    f.Key,
			FileType:    ft,
			NodeType:    f.NodeType,
			EntryPrefix: f.EntryPrefix,
			Loader:      l,
		})
	}
	return graph.CompileInput{
		Files:             files,
		Options:           m.Options,
		Generators:        m.Generators,
		ExcludedLinkTypes: m.ExcludedLinkTypes,
	}, nil
}
