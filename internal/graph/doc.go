// Package graph builds the knowledge-graph link index over a set of rems.
// Forward links come from wikilinks in rem bodies and from the related list
// in frontmatter; the index inverts them into backlinks and tracks broken
// links and orphans.
package graph
