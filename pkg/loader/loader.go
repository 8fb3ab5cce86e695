package loader

import (
	"context"
	"fmt"
)

type GraphFileType string

const (
	GraphFileTypeShorthand       GraphFileType = "shorthand"
	GraphFileTypeItems           GraphFileType = "items"
	GraphFileTypeEntrySyntax     GraphFileType = "entry_syntax"
	GraphFileTypeLinkSyntax      GraphFileType = "link_syntax"
	GraphFileTypeAlias           GraphFileType = "alias"
	GraphFileTypeLinkConstraints GraphFileType = "link_constraints"
)

// GraphFile is one input of a compile run: shorthand data, an item table,
// a grammar, an alias table or a link-constraint table.
//
// The actual file content is retrieved via the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	FileType GraphFileType
	// NodeType names the node type an alias table applies to.
	NodeType string
	// EntryPrefix selects the entry group of an item table. Empty selects
	// the default prefix.
	EntryPrefix string
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new
// GraphFile.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

func newGraphFile(params NewGraphFileParams, fileType GraphFileType) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: fileType,
		Loader:   params.Loader,
	}
}

// NewShorthandFile creates a GraphFile holding shorthand data.
func NewShorthandFile(params NewGraphFileParams) GraphFile {
	return newGraphFile(params, GraphFileTypeShorthand)
}

// NewItemsFile creates a GraphFile holding a table of items, one entry per
// row, written in the entry group of entryPrefix.
func NewItemsFile(params NewGraphFileParams, entryPrefix string) GraphFile {
	f := newGraphFile(params, GraphFileTypeItems)
	f.EntryPrefix = entryPrefix
	return f
}

func NewEntrySyntaxFile(params NewGraphFileParams) GraphFile {
	return newGraphFile(params, GraphFileTypeEntrySyntax)
}

func NewLinkSyntaxFile(params NewGraphFileParams) GraphFile {
	return newGraphFile(params, GraphFileTypeLinkSyntax)
}

// NewAliasFile creates a GraphFile holding key/value alias pairs for the
// strings of nodeType.
func NewAliasFile(params NewGraphFileParams, nodeType string) GraphFile {
	f := newGraphFile(params, GraphFileTypeAlias)
	f.NodeType = nodeType
	return f
}

func NewLinkConstraintsFile(params NewGraphFileParams) GraphFile {
	return newGraphFile(params, GraphFileTypeLinkConstraints)
}

// ParseGraphFileType validates a file type name.
func ParseGraphFileType(s string) (GraphFileType, error) {
	switch t := GraphFileType(s); t {
	case GraphFileTypeShorthand, GraphFileTypeItems, GraphFileTypeEntrySyntax,
		GraphFileTypeLinkSyntax, GraphFileTypeAlias, GraphFileTypeLinkConstraints:
		return t, nil
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// GetText retrieves the raw text content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("file %s has no loader", f.FilePath)
	}
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk, cloud storage, or other sources.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// CacheKey identifies a file in loader caches.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}
