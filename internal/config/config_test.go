package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.REPL.Prompt == "" {
		t.Error("default prompt is empty")
	}
	if !cfg.REPL.Color {
		t.Error("color should default on")
	}
	if cfg.Debug.PrintCode {
		t.Error("print_code should default off")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oolong.yaml")
	data := []byte("repl:\n  prompt: \"oo> \"\n  color: false\ndebug:\n  print_code: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if cfg.REPL.Prompt != "oo> " {
		t.Errorf("prompt: got=%q", cfg.REPL.Prompt)
	}
	if cfg.REPL.Color {
		t.Error("color should be off")
	}
	if !cfg.Debug.PrintCode {
		t.Error("print_code should be on")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSourceExtensions(t *testing.T) {
	if !HasSourceExt("main.oo") || !HasSourceExt("main.oolong") {
		t.Error("recognized extensions rejected")
	}
	if HasSourceExt("main.go") {
		t.Error("unrecognized extension accepted")
	}
	if TrimSourceExt("main.oo") != "main" {
		t.Errorf("got %q", TrimSourceExt("main.oo"))
	}
	if TrimSourceExt("README") != "README" {
		t.Errorf("got %q", TrimSourceExt("README"))
	}
}
