package graph

import (
	"sort"
)

// Node is a rem as seen by the graph builder: its slug plus the link targets
// declared in its body and frontmatter.
type Node struct {
	Slug    string
	Links   []string
	Related []string
}

// BrokenLink is a link whose target slug does not exist in the knowledge base.
type BrokenLink struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Index is the computed link structure of a knowledge base. All slices are
// sorted and deduplicated so two builds over the same input are identical.
type Index struct {
	// Forward maps a slug to the slugs it links to (wikilinks plus related).
	Forward map[string][]string `json:"forward"`

	// Backlinks maps a slug to the slugs that link to it.
	Backlinks map[string][]string `json:"backlinks"`

	// Broken lists links whose target does not exist, sorted by source then
	// target.
	Broken []BrokenLink `json:"broken,omitempty"`

	// Orphans lists slugs with no inbound and no outbound links, sorted.
	Orphans []string `json:"orphans,omitempty"`
}

// Build computes the link index for the given nodes. Links to slugs outside
// the node set are reported as broken and excluded from Forward and
// Backlinks. Self-links are ignored.
func Build(nodes []*Node) *Index {
	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.Slug] = true
	}

	idx := &Index{
		Forward:   make(map[string][]string, len(nodes)),
		Backlinks: make(map[string][]string, len(nodes)),
	}

	brokenSeen := make(map[BrokenLink]bool)
	forward := make(map[string]map[string]bool, len(nodes))

	for _, n := range nodes {
		targets := forward[n.Slug]
		if targets == nil {
			targets = make(map[string]bool)
			forward[n.Slug] = targets
		}
		for _, to := range append(append([]string{}, n.Links...), n.Related...) {
			if to == "" || to == n.Slug {
				continue
			}
			if !exists[to] {
				link := BrokenLink{From: n.Slug, To: to}
				if !brokenSeen[link] {
					brokenSeen[link] = true
					idx.Broken = append(idx.Broken, link)
				}
				continue
			}
			targets[to] = true
		}
	}

	backlinks := make(map[string]map[string]bool, len(nodes))
	for from, targets := range forward {
		for to := range targets {
			if backlinks[to] == nil {
				backlinks[to] = make(map[string]bool)
			}
			backlinks[to][from] = true
		}
	}

	for _, n := range nodes {
		idx.Forward[n.Slug] = sortedKeys(forward[n.Slug])
		idx.Backlinks[n.Slug] = sortedKeys(backlinks[n.Slug])
		if len(forward[n.Slug]) == 0 && len(backlinks[n.Slug]) == 0 {
			idx.Orphans = append(idx.Orphans, n.Slug)
		}
	}

	sort.Strings(idx.Orphans)
	sort.Slice(idx.Broken, func(i, j int) bool {
		if idx.Broken[i].From != idx.Broken[j].From {
			return idx.Broken[i].From < idx.Broken[j].From
		}
		return idx.Broken[i].To < idx.Broken[j].To
	})

	return idx
}

// BacklinksOf returns the slugs linking to the given slug, or nil if the slug
// is not in the index.
func (idx *Index) BacklinksOf(slug string) []string {
	return idx.Backlinks[slug]
}

// LinksOf returns the slugs the given slug links to, or nil if the slug is
// not in the index.
func (idx *Index) LinksOf(slug string) []string {
	return idx.Forward[slug]
}

// Contains reports whether the slug is a node in the index.
func (idx *Index) Contains(slug string) bool {
	_, ok := idx.Forward[slug]
	return ok
}

// Neighborhood returns every slug reachable from start within the given
// number of hops, following links in both directions. The start slug itself
// is excluded. Results are sorted. An unknown start slug yields nil.
func (idx *Index) Neighborhood(start string, hops int) []string {
	if !idx.Contains(start) || hops < 1 {
		return nil
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}

	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		var next []string
		for _, slug := range frontier {
			for _, neighbor := range idx.Forward[slug] {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
			for _, neighbor := range idx.Backlinks[slug] {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	delete(visited, start)
	return sortedKeys(map[string]bool(visited))
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
