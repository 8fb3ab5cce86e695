package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
)

func TestIOGraphFileLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &IOGraphFileLoader{Root: dir}
	file := loader.NewShorthandFile(loader.NewGraphFileParams{ID: "1", FilePath: "data.csv", Loader: l})

	got, err := file.GetText(context.Background())
	if err != nil || string(got) != "a,b\n" {
		t.Fatalf("GetText = %q, %v", got, err)
	}

	// Cached content survives the file going away.
	if err := os.Remove(filepath.Join(dir, "data.csv")); err != nil {
		t.Fatal(err)
	}
	if got, err := file.GetText(context.Background()); err != nil || string(got) != "a,b\n" {
		t.Fatalf("cached GetText = %q, %v", got, err)
	}

	missing := loader.NewShorthandFile(loader.NewGraphFileParams{ID: "2", FilePath: "nope.csv", Loader: l})
	if _, err := missing.GetText(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestIOGraphFileLoader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	file := loader.NewShorthandFile(loader.NewGraphFileParams{ID: "1", FilePath: "x.csv", Loader: NewIOGraphFileLoader()})
	if _, err := file.GetText(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
