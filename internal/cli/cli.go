// Package cli implements the bibliograph command line tool. Stores live in
// a local SQLite file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
	fileloader "github.com/OFFIS-RIT/bibliograph/pkg/loader/io"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger/console"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"
	"github.com/OFFIS-RIT/bibliograph/pkg/store/sqlite"
	"github.com/OFFIS-RIT/bibliograph/pkg/synth"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type rootFlags struct {
	db        string
	debug     bool
	logFormat string
}

// NewRootCommand returns the bibliograph command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "bibliograph",
		Short:         "Normalize bibliographic shorthand into a queryable store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := console.ParseFormat(flags.logFormat); err != nil {
				return err
			}
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  flags.debug,
				Format: flags.logFormat,
				Writer: cmd.ErrOrStderr(),
			}))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.db, "db", util.GetEnvString("BIBLIOGRAPH_DB", "bibliograph.db"), "SQLite file holding the stores")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", util.GetEnvBool("DEBUG", false), "log debug output")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", util.GetEnv("LOG_FORMAT"), "log format: text, json or logfmt")

	root.AddCommand(
		newCompileCommand(flags),
		newSynthCommand(flags),
		newValidateCommand(),
		newStoresCommand(flags),
		newDeleteCommand(flags),
	)
	return root
}

// Execute runs the command tree on os.Args.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withStorage(ctx context.Context, flags *rootFlags, fn func(s *sqlite.Storage) error) error {
	s, err := sqlite.Open(ctx, flags.db)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// findStore accepts a store id or name. Names must be unique.
func findStore(ctx context.Context, s store.Storage, ref string) (store.Info, error) {
	if util.IsID(ref) {
		info, err := s.GetStore(ctx, ref)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return info, err
		}
	}
	stores, err := s.ListStores(ctx)
	if err != nil {
		return store.Info{}, err
	}
	var found []store.Info
	for _, st := range stores {
		if st.Name == ref {
			found = append(found, st)
		}
	}
	switch len(found) {
	case 0:
		return store.Info{}, fmt.Errorf("store %q: %w", ref, store.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return store.Info{}, fmt.Errorf("store name %q is ambiguous, use its id", ref)
	}
}

func printStore(w io.Writer, info store.Info) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Name, info.Status)
}

func newCompileCommand(flags *rootFlags) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "compile JOB.yaml",
		Short: "Parse and resolve the files of a job into a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := LoadJob(args[0])
			if err != nil {
				return err
			}
			g, err := graph.NewGraphClient(graph.NewGraphClientParams{ParallelFiles: parallel})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			input := job.Input(csv.NewCSVGraphLoader(fileloader.NewIOGraphFileLoader()))

			return withStorage(ctx, flags, func(s *sqlite.Storage) error {
				info, err := findStore(ctx, s, job.Store)
				if errors.Is(err, store.ErrNotFound) {
					info, err = s.CreateStore(ctx, job.Store)
				}
				if err != nil {
					return err
				}
				if err := g.CompileToStore(ctx, input, s, info.ID); err != nil {
					return err
				}
				info, err = s.GetStore(ctx, info.ID)
				if err != nil {
					return err
				}
				printStore(cmd.OutOrStdout(), info)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 4, "files loaded concurrently")
	return cmd
}

type synthFlags struct {
	store             string
	syntaxPath        string
	options           string
	nodeTypes         []string
	prefixes          []string
	sortBy            []string
	sortPrefixes      bool
	sortCaseSensitive bool
	fillSpaces        bool
	fullNames         bool
	hideDefault       bool
	includeTags       bool
}

func (f *synthFlags) request() synth.Request {
	req := synth.Request{
		SortBy:                 f.sortBy,
		SortPrefixes:           f.sortPrefixes,
		SortCaseSensitive:      f.sortCaseSensitive,
		FillSpaces:             f.fillSpaces,
		NameType:               synth.NameAbbr,
		HideDefaultEntryPrefix: f.hideDefault,
		IncludeTags:            f.includeTags,
	}
	if len(f.nodeTypes) > 0 {
		req.NodeType = common.Column(f.nodeTypes...)
	}
	if len(f.prefixes) > 0 {
		req.EntryPrefix = common.Column(f.prefixes...)
	}
	if f.fullNames {
		req.NameType = synth.NameFull
	}
	return req
}

func newSynthCommand(flags *rootFlags) *cobra.Command {
	f := &synthFlags{}
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write the nodes of a store as shorthand entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			req := f.request()
			if f.syntaxPath != "" {
				opts, err := loadOptions(f.options)
				if err != nil {
					return err
				}
				text, err := os.ReadFile(f.syntaxPath)
				if err != nil {
					return err
				}
				req.Syntax, err = syntax.ValidateEntrySyntax(string(text), syntax.EntryOptions{
					CaseSensitive:       opts.CaseSensitive,
					AllowRedundantItems: opts.AllowRedundantItems,
				})
				if err != nil {
					return err
				}
				req.Format = opts.Format()
			}

			return withStorage(ctx, flags, func(s *sqlite.Storage) error {
				info, err := findStore(ctx, s, f.store)
				if err != nil {
					return err
				}
				if !info.Resolved {
					return fmt.Errorf("store %s has not been compiled", info.Name)
				}
				r, err := graph.LoadResolved(ctx, s, info.ID)
				if err != nil {
					return err
				}

				var entries []synth.Entry
				if req.Syntax == nil {
					entries, err = synth.SynthesizeFromStore(r, req)
				} else {
					entries, err = synth.Synthesize(r, req)
				}
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, e := range entries {
					fmt.Fprintln(w, e.Text)
				}
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.store, "store", "", "store id or name")
	fl.StringVar(&f.syntaxPath, "syntax", "", "entry syntax to write with; defaults to the formats the store was parsed with")
	fl.StringVar(&f.options, "options", "", "YAML file with the shorthand options for --syntax")
	fl.StringSliceVar(&f.nodeTypes, "node-type", nil, "node types to write")
	fl.StringSliceVar(&f.prefixes, "prefix", nil, "entry prefixes to write with")
	fl.StringSliceVar(&f.sortBy, "sort-by", nil, "item positions to sort by")
	fl.BoolVar(&f.sortPrefixes, "sort-prefixes", false, "include item prefixes in sort keys")
	fl.BoolVar(&f.sortCaseSensitive, "sort-case-sensitive", false, "sort case sensitively")
	fl.BoolVar(&f.fillSpaces, "fill-spaces", false, "write spaces as the space character")
	fl.BoolVar(&f.fullNames, "full-names", false, "name nodes by their longest string")
	fl.BoolVar(&f.hideDefault, "hide-default-prefix", false, "omit the default entry prefix")
	fl.BoolVar(&f.includeTags, "include-tags", false, "append node tags")
	cmd.MarkFlagRequired("store")
	return cmd
}

func loadOptions(path string) (shorthand.Options, error) {
	if path == "" {
		return shorthand.Options{}, nil
	}
	job := struct {
		Options shorthand.Options `yaml:"options"`
	}{}
	b, err := os.ReadFile(path)
	if err != nil {
		return shorthand.Options{}, err
	}
	if err := yaml.Unmarshal(b, &job); err != nil {
		return shorthand.Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return job.Options, nil
}

func newValidateCommand() *cobra.Command {
	var entryPath, linkPath string
	var caseSensitive, redundant bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an entry syntax and optionally a link syntax",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := os.ReadFile(entryPath)
			if err != nil {
				return err
			}
			entry, err := syntax.ValidateEntrySyntax(string(text), syntax.EntryOptions{
				CaseSensitive:       caseSensitive,
				AllowRedundantItems: redundant,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "entry syntax ok: %s\n", strings.Join(entry.Prefixes(), ", "))

			if linkPath == "" {
				return nil
			}
			text, err = os.ReadFile(linkPath)
			if err != nil {
				return err
			}
			link, err := syntax.ValidateLinkSyntax(string(text), entry, caseSensitive)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "link syntax ok: %s\n", strings.Join(link.LinkTypes(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&entryPath, "entry-syntax", "", "entry syntax CSV")
	cmd.Flags().StringVar(&linkPath, "link-syntax", "", "link syntax CSV")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "compare prefixes and labels case sensitively")
	cmd.Flags().BoolVar(&redundant, "allow-redundant-items", false, "accept repeated item node/link type pairs")
	cmd.MarkFlagRequired("entry-syntax")
	return cmd
}

func newStoresCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, flags, func(s *sqlite.Storage) error {
				stores, err := s.ListStores(ctx)
				if err != nil {
					return err
				}
				for _, info := range stores {
					printStore(cmd.OutOrStdout(), info)
				}
				return nil
			})
		},
	}
}

func newDeleteCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete STORE",
		Short: "Delete a store by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, flags, func(s *sqlite.Storage) error {
				info, err := findStore(ctx, s, args[0])
				if err != nil {
					return err
				}
				return s.DeleteStore(ctx, info.ID)
			})
		},
	}
}
