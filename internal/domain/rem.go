package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Rem-specific validation errors
var (
	// ErrRemIDEmpty is returned when a rem ID is empty or nil.
	ErrRemIDEmpty = errors.New("rem ID cannot be empty")

	// ErrRemUserIDEmpty is returned when a rem's user ID is empty or nil.
	ErrRemUserIDEmpty = errors.New("rem user ID cannot be empty")

	// ErrRemSlugEmpty is returned when a rem's slug is empty.
	ErrRemSlugEmpty = errors.New("rem slug cannot be empty")

	// ErrRemSlugInvalid is returned when a rem's slug contains characters
	// that are not safe as a knowledge-base file path segment.
	ErrRemSlugInvalid = errors.New("rem slug contains invalid characters")

	// ErrRemTitleEmpty is returned when a rem's title is empty.
	ErrRemTitleEmpty = errors.New("rem title cannot be empty")

	// ErrRemBodyEmpty is returned when a rem's body is empty.
	ErrRemBodyEmpty = errors.New("rem body cannot be empty")
)

// slugPattern restricts slugs to path-safe lowercase segments separated by
// slashes, e.g. "math/bayes-theorem". A slug is the rem's stable identity
// across the filesystem and the catalog: it is the file path relative to the
// knowledge-base root without the .md extension.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*(/[a-z0-9][a-z0-9._-]*)*$`)

// Rem is the atomic unit of the knowledge base: a markdown snippet with YAML
// frontmatter stored under knowledge-base/**/*.md and indexed in the catalog.
// The markdown file on disk is the source of truth; the catalog row carries
// the parsed fields plus a content hash used for change detection during sync.
type Rem struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Tags        []string   `json:"tags,omitempty"`
	Source      string     `json:"source,omitempty"` // where the knowledge came from (chat, URL, book)
	Body        string     `json:"body"`
	Related     []string   `json:"related,omitempty"` // outbound slugs declared in frontmatter
	ContentHash string     `json:"content_hash"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewRem creates a new Rem owned by the given user. It generates a new UUID
// and sets the creation/update timestamps. Returns an error if validation
// fails.
func NewRem(userID uuid.UUID, slug, title, body string) (*Rem, error) {
	now := time.Now().UTC()
	rem := &Rem{
		ID:        uuid.New(),
		UserID:    userID,
		Slug:      slug,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := rem.Validate(); err != nil {
		return nil, err
	}

	return rem, nil
}

// Validate checks if the Rem has valid data.
// Returns an error if any field fails validation.
func (r *Rem) Validate() error {
	if r.ID == uuid.Nil {
		return ErrRemIDEmpty
	}

	if r.UserID == uuid.Nil {
		return ErrRemUserIDEmpty
	}

	if r.Slug == "" {
		return ErrRemSlugEmpty
	}

	if !slugPattern.MatchString(r.Slug) {
		return ErrRemSlugInvalid
	}

	if r.Title == "" {
		return ErrRemTitleEmpty
	}

	if r.Body == "" {
		return ErrRemBodyEmpty
	}

	return nil
}

// IsDeleted reports whether the rem has been tombstoned, which happens when
// its file disappears from the knowledge base during sync. Tombstoned rems
// keep their schedule history until purged by maintenance.
func (r *Rem) IsDeleted() bool {
	return r.DeletedAt != nil
}
