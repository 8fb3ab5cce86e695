package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput marks compile requests whose file set cannot be compiled.
var ErrInvalidInput = errors.New("invalid compile input")

type loadedFile struct {
	file loader.GraphFile
	text string
}

// inputs holds the loaded files of one compile run, grouped by role. Data
// files keep the order they were given in.
type inputs struct {
	entrySyntax     string
	linkSyntax      string
	linkConstraints string
	aliases         map[string]string
	data            []loadedFile
}

func (g *GraphClient) loadInputs(ctx context.Context, files []loader.GraphFile) (*inputs, error) {
	texts := make([]string, len(files))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelFiles)
	for i := range files {
		eg.Go(func() error {
			b, err := files[i].GetText(gctx)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", files[i].FilePath, err)
			}
			texts[i] = string(b)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	in := &inputs{aliases: make(map[string]string)}
	single := func(dst *string, f loader.GraphFile, text string) error {
		if *dst != "" {
			return fmt.Errorf("%w: more than one %s file given (%s)", ErrInvalidInput, f.FileType, f.FilePath)
		}
		*dst = text
		return nil
	}
	for i, f := range files {
		var err error
		switch f.FileType {
		case loader.GraphFileTypeEntrySyntax:
			err = single(&in.entrySyntax, f, texts[i])
		case loader.GraphFileTypeLinkSyntax:
			err = single(&in.linkSyntax, f, texts[i])
		case loader.GraphFileTypeLinkConstraints:
			err = single(&in.linkConstraints, f, texts[i])
		case loader.GraphFileTypeAlias:
			if f.NodeType == "" {
				return nil, fmt.Errorf("%w: alias file %s names no node type", ErrInvalidInput, f.FilePath)
			}
			if _, dup := in.aliases[f.NodeType]; dup {
				return nil, fmt.Errorf("%w: more than one alias file for node type %q", ErrInvalidInput, f.NodeType)
			}
			in.aliases[f.NodeType] = texts[i]
		case loader.GraphFileTypeShorthand, loader.GraphFileTypeItems:
			in.data = append(in.data, loadedFile{file: f, text: texts[i]})
		default:
			err = fmt.Errorf("%w: unknown file type %q for %s", ErrInvalidInput, f.FileType, f.FilePath)
		}
		if err != nil {
			return nil, err
		}
	}

	if in.entrySyntax == "" {
		return nil, fmt.Errorf("%w: no entry syntax file given", ErrInvalidInput)
	}
	if len(in.data) == 0 {
		return nil, fmt.Errorf("%w: no shorthand or items file given", ErrInvalidInput)
	}
	logger.Debug("[Graph][Load] Loaded inputs", "files", len(files), "data", len(in.data), "aliases", len(in.aliases))
	return in, nil
}
