package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/alias"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/resolve"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// Generators by the names used in compile requests.
var generatorsByName = map[string]alias.Generator{
	"western_surname": alias.WesternSurname,
	"doi":             alias.DOI,
}

// GeneratorNames lists the alias generators a compile request may name.
func GeneratorNames() []string {
	names := make([]string, 0, len(generatorsByName))
	for n := range generatorsByName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CompileInput describes one compile run.
type CompileInput struct {
	// Files holds exactly one entry syntax, at most one link syntax and link
	// constraint table, alias tables keyed by node type, and one or more
	// shorthand or item files parsed in order.
	Files   []loader.GraphFile
	Options shorthand.Options

	// Generators maps node types to generator names. Nil applies the
	// default generators; an empty map applies none.
	Generators        map[string]string
	ExcludedLinkTypes []string
}

func (in CompileInput) generators() (map[string]alias.Generator, error) {
	if in.Generators == nil {
		return alias.DefaultGenerators(), nil
	}
	out := make(map[string]alias.Generator, len(in.Generators))
	for nodeType, name := range in.Generators {
		gen, ok := generatorsByName[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown alias generator %q for node type %q", ErrInvalidInput, name, nodeType)
		}
		out[nodeType] = gen
	}
	return out, nil
}

// Parse loads the inputs and parses every data file into one raw store.
func (g *GraphClient) Parse(ctx context.Context, input CompileInput) (*textnet.RawStore, error) {
	raw, _, err := g.parse(ctx, input)
	return raw, err
}

func (g *GraphClient) parse(ctx context.Context, input CompileInput) (*textnet.RawStore, *inputs, error) {
	in, err := g.loadInputs(ctx, input.Files)
	if err != nil {
		return nil, nil, err
	}
	parser, err := shorthand.NewParser(shorthand.NewParserParams{
		EntrySyntax: in.entrySyntax,
		LinkSyntax:  in.linkSyntax,
		Options:     input.Options,
	})
	if err != nil {
		return nil, nil, err
	}

	raw := textnet.NewRawStore()
	for _, d := range in.data {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		switch d.file.FileType {
		case loader.GraphFileTypeItems:
			err = parser.ParseItemsInto(raw, d.text, d.file.EntryPrefix)
		default:
			err = parser.ParseInto(raw, d.text)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", d.file.FilePath, err)
		}
		logger.Debug("[Graph][Parse] Parsed file", "file", d.file.FilePath, "strings", len(raw.Strings()))
	}
	return raw, in, nil
}

// Compile parses the inputs and resolves the result into nodes and edges.
func (g *GraphClient) Compile(ctx context.Context, input CompileInput) (*textnet.ResolvedStore, error) {
	gens, err := input.generators()
	if err != nil {
		return nil, err
	}
	raw, in, err := g.parse(ctx, input)
	if err != nil {
		return nil, err
	}
	resolved, err := resolve.Resolve(raw, resolve.Params{
		Aliases:           in.aliases,
		CaseSensitive:     input.Options.CaseSensitive,
		Generators:        gens,
		LinkConstraints:   in.linkConstraints,
		ExcludedLinkTypes: input.ExcludedLinkTypes,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("[Graph][Compile] Compiled store",
		"strings", len(resolved.Strings()), "nodes", len(resolved.Nodes()), "edges", len(resolved.Edges()))
	return resolved, nil
}

// CompileToStore compiles input and replaces the snapshot of storeID. The
// store's status tracks the run and is left failed when compilation or the
// write fails.
func (g *GraphClient) CompileToStore(ctx context.Context, input CompileInput, storage store.Storage, storeID string) error {
	if err := storage.SetStatus(ctx, storeID, store.StatusCompiling); err != nil {
		return fmt.Errorf("failed to mark store compiling: %w", err)
	}

	fail := func(cause error) error {
		// The run context may already be cancelled.
		if err := storage.SetStatus(context.Background(), storeID, store.StatusFailed); err != nil {
			logger.Error("[Graph][Compile] Failed to mark store failed", "store", storeID, "err", err)
		}
		return cause
	}

	resolved, err := g.Compile(ctx, input)
	if err != nil {
		return fail(err)
	}
	snap := resolved.Snapshot()
	err = util.RetryErrWithContext(ctx, g.maxRetries, func(ctx context.Context) error {
		return storage.SaveSnapshot(ctx, storeID, snap)
	})
	if err != nil {
		return fail(fmt.Errorf("failed to save store: %w", err))
	}
	if err := storage.SetStatus(ctx, storeID, store.StatusReady); err != nil {
		return fmt.Errorf("failed to mark store ready: %w", err)
	}
	return nil
}

// LoadResolved reads a stored snapshot back into a resolved store.
func LoadResolved(ctx context.Context, storage store.Storage, storeID string) (*textnet.ResolvedStore, error) {
	snap, err := storage.LoadSnapshot(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return textnet.ResolvedFromSnapshot(snap)
}
