// Package kb implements the knowledge-base file layer: parsing and writing
// rem markdown files with YAML frontmatter, extracting wikilinks, and
// scanning the knowledge-base directory tree. The markdown files on disk are
// the durable source of truth; the catalog in the database is an index
// rebuilt from them.
package kb
