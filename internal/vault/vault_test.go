package vault

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	v := New(t.TempDir())
	lines := []string{"# Log", "- [x] done", ""}

	if err := v.WriteLines("notes/daily.md", lines); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := v.ReadLines("notes/daily.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("expected %q, got %q", lines, got)
	}

	ok, err := v.Exists("notes/daily.md")
	if err != nil || !ok {
		t.Errorf("expected document to exist, got (%v, %v)", ok, err)
	}
}

func TestReadMissingDocument(t *testing.T) {
	v := New(t.TempDir())

	got, err := v.ReadLines("nope.md")
	if err != nil || got != nil {
		t.Errorf("missing document should read as empty, got (%q, %v)", got, err)
	}
	ok, err := v.Exists("nope.md")
	if err != nil || ok {
		t.Errorf("expected document to be absent, got (%v, %v)", ok, err)
	}
}

func TestDirectoryIsNotADocument(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}
	v := New(root)

	if _, err := v.ReadLines("archive"); !errors.Is(err, ErrNotDocument) {
		t.Errorf("read: expected ErrNotDocument, got %v", err)
	}
	if err := v.WriteLines("archive", []string{"x"}); !errors.Is(err, ErrNotDocument) {
		t.Errorf("write: expected ErrNotDocument, got %v", err)
	}
	if _, err := v.Exists("archive"); !errors.Is(err, ErrNotDocument) {
		t.Errorf("exists: expected ErrNotDocument, got %v", err)
	}
}

func TestPathEscapesVault(t *testing.T) {
	v := New(t.TempDir())
	for _, path := range []string{"../outside.md", "notes/../../outside.md", "/etc/passwd"} {
		if err := v.WriteLines(path, []string{"x"}); err == nil {
			t.Errorf("expected %q to be rejected", path)
		}
	}
}

func TestSplitJoinLines(t *testing.T) {
	tests := []struct {
		text  string
		lines []string
	}{
		{"", nil},
		{"a\n", []string{"a"}},
		{"a\nb\n", []string{"a", "b"}},
		{"a\n\n", []string{"a", ""}},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.text); !reflect.DeepEqual(got, tt.lines) {
			t.Errorf("SplitLines(%q): expected %q, got %q", tt.text, tt.lines, got)
		}
		if got := JoinLines(tt.lines); got != tt.text {
			t.Errorf("JoinLines(%q): expected %q, got %q", tt.lines, tt.text, got)
		}
	}
}

func TestSplitLinesNoTrailingNewline(t *testing.T) {
	got := SplitLines("a\nb")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %q", got)
	}
}
