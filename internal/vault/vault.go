// Package vault is the storage collaborator: documents addressed by
// vault-relative paths, read and written as whole line sequences.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrNotDocument means a destination path names an existing resource
	// that is not a document (e.g. a directory). Fatal per configuration.
	ErrNotDocument = errors.New("not a document")
)

// Vault resolves vault-relative document paths against a root directory.
type Vault struct {
	root string
}

func New(root string) *Vault {
	return &Vault{root: root}
}

// Root returns the vault root directory.
func (v *Vault) Root() string { return v.root }

func (v *Vault) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes vault: %s", path)
	}
	return filepath.Join(v.root, clean), nil
}

// Exists reports whether a document is present at path.
func (v *Vault) Exists(path string) (bool, error) {
	full, err := v.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s is a directory", ErrNotDocument, path)
	}
	return true, nil
}

// ReadLines returns the document's lines. A missing document reads as empty,
// so destinations are loaded-or-created; use Exists when absence matters.
func (v *Vault) ReadLines(path string) ([]string, error) {
	full, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotDocument, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return SplitLines(string(data)), nil
}

// WriteLines replaces the document's content atomically, creating missing
// parent folders on the way.
func (v *Vault) WriteLines(path string, lines []string) error {
	full, err := v.resolve(path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotDocument, path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create folder for %s: %w", path, err)
	}
	content := JoinLines(lines)
	if err := atomic.WriteFile(full, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SplitLines splits document text into lines without the trailing newline
// producing a phantom empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// JoinLines is the inverse of SplitLines: every line, newline-terminated.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
