package kb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// remGlob matches every rem file under the knowledge-base root.
const remGlob = "**/*.md"

// ScannedRem is a rem file found on disk, parsed and hashed.
type ScannedRem struct {
	// Slug is the file path relative to the root without the .md extension,
	// normalized to forward slashes. It is the rem's stable identity.
	Slug string

	// Path is the absolute path of the file.
	Path string

	// File is the parsed frontmatter and body.
	File *File

	// ContentHash is the hex-encoded sha256 of the raw file contents, used
	// for change detection during sync.
	ContentHash string

	// Links are the wikilink targets extracted from the body.
	Links []string
}

// Scanner walks a knowledge-base directory tree and parses every rem file.
type Scanner struct {
	root string
}

// NewScanner creates a scanner rooted at the given directory.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Root returns the directory the scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the root and returns every parsed rem file, sorted by slug.
// Dotfiles and dot-directories (.git, .review) are skipped. Files that fail
// to parse abort the scan; a knowledge base with a broken file should be
// fixed, not silently half-indexed.
func (s *Scanner) Scan(ctx context.Context) ([]*ScannedRem, error) {
	fsys := os.DirFS(s.root)

	matches, err := doublestar.Glob(fsys, remGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to glob knowledge base: %w", err)
	}

	rems := make([]*ScannedRem, 0, len(matches))
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hasDotSegment(match) {
			continue
		}

		rem, err := s.scanFile(fsys, match)
		if err != nil {
			return nil, err
		}
		rems = append(rems, rem)
	}

	sort.Slice(rems, func(i, j int) bool { return rems[i].Slug < rems[j].Slug })
	return rems, nil
}

// ScanFile parses a single rem file given its path relative to the root.
func (s *Scanner) ScanFile(relPath string) (*ScannedRem, error) {
	return s.scanFile(os.DirFS(s.root), filepath.ToSlash(relPath))
}

func (s *Scanner) scanFile(fsys fs.FS, relPath string) (*ScannedRem, error) {
	content, err := fs.ReadFile(fsys, relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	file, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}

	return &ScannedRem{
		Slug:        SlugFromPath(relPath),
		Path:        filepath.Join(s.root, filepath.FromSlash(relPath)),
		File:        file,
		ContentHash: HashContent(content),
		Links:       ExtractWikilinks(file.Body),
	}, nil
}

// HashContent returns the hex-encoded sha256 of raw rem file contents. Sync
// uses it to detect whether a file changed since the last pass.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SlugFromPath converts a root-relative file path to a slug.
func SlugFromPath(relPath string) string {
	slug := filepath.ToSlash(relPath)
	return strings.TrimSuffix(slug, filepath.Ext(slug))
}

// PathFromSlug converts a slug back to a root-relative file path.
func PathFromSlug(slug string) string {
	return filepath.FromSlash(slug) + ".md"
}

// hasDotSegment reports whether any path segment starts with a dot.
func hasDotSegment(relPath string) bool {
	for _, segment := range strings.Split(relPath, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
