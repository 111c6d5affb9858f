package kb

import (
	"regexp"
	"strings"
)

// wikilinkPattern matches [[target]] and [[target|label]] links in a
// markdown body. The target is the slug of another rem.
var wikilinkPattern = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|[^\[\]]*)?\]\]`)

// ExtractWikilinks returns the slugs referenced by wikilinks in the body,
// deduplicated, in order of first appearance. Labels after a pipe are
// ignored; surrounding whitespace in the target is trimmed.
func ExtractWikilinks(body string) []string {
	matches := wikilinkPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		links = append(links, target)
	}

	if len(links) == 0 {
		return nil
	}
	return links
}
