package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	canonicalCwd, _ := filepath.EvalSymlinks(cwd)

	tests := []struct {
		name  string
		input string
		want  []string // any of these
	}{
		{"absolute", "/", []string{"/"}},
		{"dot", ".", []string{cwd, canonicalCwd}},
		{"empty", "", []string{cwd, canonicalCwd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalizePath(tt.input)
			for _, w := range tt.want {
				if got == w {
					return
				}
			}
			t.Errorf("CanonicalizePath(%q) = %q, want one of %q", tt.input, got, tt.want)
		})
	}
}

func TestCanonicalizePathSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := CanonicalizePath(link); got != want {
		t.Errorf("CanonicalizePath(link) = %q, want %q", got, want)
	}
}

func TestResolveForWrite(t *testing.T) {
	t.Run("regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "export.jsonl")
		if err := os.WriteFile(file, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := ResolveForWrite(file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != file {
			t.Errorf("got %q, want %q", got, file)
		}
	})

	t.Run("symlink", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "target.jsonl")
		if err := os.WriteFile(target, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(dir, "link.jsonl")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
		got, err := ResolveForWrite(link)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// /var is a symlink on macOS
		want, _ := filepath.EvalSymlinks(target)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("missing", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "new.jsonl")
		got, err := ResolveForWrite(file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != file {
			t.Errorf("got %q, want %q", got, file)
		}
	})
}
