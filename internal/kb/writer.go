package kb

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer writes rem files back to the knowledge-base tree.
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at the given directory.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Path resolves a slug to its absolute markdown path under the root.
func (w *Writer) Path(slug string) string {
	return filepath.Join(w.root, PathFromSlug(slug))
}

// WriteRendered writes already-rendered content to the path derived from the
// slug, creating parent directories as needed. Callers that need the rendered
// bytes themselves (e.g. for content hashing) use this instead of Write.
func (w *Writer) WriteRendered(slug string, content []byte) (string, error) {
	path := w.Path(slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", slug, err)
	}

	if err := AtomicWriteFile(path, content); err != nil {
		return "", fmt.Errorf("failed to write rem %s: %w", slug, err)
	}

	return path, nil
}

// Write renders the file and writes it to the path derived from the slug,
// creating parent directories as needed. The write is atomic: content goes
// to a temp file in the same directory, then renames over the target, so a
// crash never leaves a half-written rem.
func (w *Writer) Write(slug string, file *File) (string, error) {
	content, err := file.Render()
	if err != nil {
		return "", fmt.Errorf("failed to render rem %s: %w", slug, err)
	}

	return w.WriteRendered(slug, content)
}

// Remove deletes the rem file for the slug. Missing files are not an error:
// the caller may be reconciling a catalog entry whose file is already gone.
func (w *Writer) Remove(slug string) error {
	path := filepath.Join(w.root, PathFromSlug(slug))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove rem %s: %w", slug, err)
	}
	return nil
}

// AtomicWriteFile writes content to path via a temp file and rename.
func AtomicWriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Best-effort cleanup if anything below fails.
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	tmpName = ""
	return nil
}
