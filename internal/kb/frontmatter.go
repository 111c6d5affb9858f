package kb

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter parsing errors
var (
	// ErrUnterminatedFrontmatter is returned when a file opens a frontmatter
	// block but never closes it.
	ErrUnterminatedFrontmatter = errors.New("unterminated frontmatter block")

	// ErrInvalidFrontmatter is returned when the frontmatter block is not
	// valid YAML.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")
)

// delimiter is the frontmatter fence line.
const delimiter = "---"

// Frontmatter holds the YAML header of a rem file. Unknown keys are kept in
// Extra so user-added metadata survives a parse/render round trip.
type Frontmatter struct {
	ID      string         `yaml:"id,omitempty"`
	Title   string         `yaml:"title"`
	Tags    []string       `yaml:"tags,omitempty"`
	Source  string         `yaml:"source,omitempty"`
	Related []string       `yaml:"related,omitempty"`
	Extra   map[string]any `yaml:",inline"`
}

// File is a parsed rem markdown file: frontmatter plus the markdown body.
type File struct {
	Frontmatter Frontmatter
	Body        string
}

// Parse splits a rem file into YAML frontmatter and markdown body.
// Files without a frontmatter block are valid: the whole content is the body
// and the frontmatter is empty.
func Parse(content []byte) (*File, error) {
	reader := bufio.NewReader(bytes.NewReader(content))

	firstLine, err := reader.ReadString('\n')
	if err != nil && firstLine == "" {
		// Empty file: empty frontmatter, empty body.
		return &File{}, nil
	}

	if strings.TrimSpace(firstLine) != delimiter {
		return &File{Body: strings.TrimSpace(string(content))}, nil
	}

	var header strings.Builder
	closed := false
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) == delimiter {
			closed = true
			break
		}
		header.WriteString(line)
		if err != nil {
			break
		}
	}
	if !closed {
		return nil, ErrUnterminatedFrontmatter
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(header.String()), &fm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}

	var body strings.Builder
	for {
		line, err := reader.ReadString('\n')
		body.WriteString(line)
		if err != nil {
			break
		}
	}

	return &File{
		Frontmatter: fm,
		Body:        strings.TrimSpace(body.String()),
	}, nil
}

// Render serializes the file back to markdown with a YAML frontmatter block.
// Extra keys are emitted after the known fields in sorted order so output is
// deterministic.
func (f *File) Render() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteByte('\n')

	// Marshal known fields without the inline map first, then append the
	// extra keys in sorted order. yaml.v3 emits inline maps in arbitrary
	// order, which would make rendered files churn on every sync.
	known := Frontmatter{
		ID:      f.Frontmatter.ID,
		Title:   f.Frontmatter.Title,
		Tags:    f.Frontmatter.Tags,
		Source:  f.Frontmatter.Source,
		Related: f.Frontmatter.Related,
	}
	knownYAML, err := yaml.Marshal(&known)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	buf.Write(knownYAML)

	if len(f.Frontmatter.Extra) > 0 {
		keys := make([]string, 0, len(f.Frontmatter.Extra))
		for k := range f.Frontmatter.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			extraYAML, err := yaml.Marshal(map[string]any{k: f.Frontmatter.Extra[k]})
			if err != nil {
				return nil, fmt.Errorf("failed to marshal frontmatter key %q: %w", k, err)
			}
			buf.Write(extraYAML)
		}
	}

	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	buf.WriteByte('\n')
	buf.WriteString(f.Body)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
