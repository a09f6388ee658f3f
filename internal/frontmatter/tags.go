package frontmatter

import (
	"regexp"
	"strings"
)

// DefaultBlockedTags are never published; they mark vault-private notes.
var DefaultBlockedTags = []string{"personal", "insights"}

// A tag token is a '#' at line start or after whitespace, then a letter,
// then letters/digits/hyphen/underscore.
var inlineTagRe = regexp.MustCompile(`(?m)(?:^|\s)#([A-Za-z][A-Za-z0-9_-]*)`)

// ExtractInlineTags scans body for #tags and returns the first occurrence of
// each case-insensitively distinct tag in encounter order, with blocked tags
// dropped. The first-seen casing is preserved.
func ExtractInlineTags(body string, blocked []string) []string {
	block := lowerSet(blocked)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		tag := m[1]
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, blockedTag := block[key]; blockedTag {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// MergeTags combines explicit header tags with inline body tags: explicit
// tags first in their given order, then inline tags not already present
// case-insensitively, with blocked tags dropped regardless of source.
func MergeTags(explicit, inline, blocked []string) []string {
	block := lowerSet(blocked)
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range explicit {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, blockedTag := block[key]; blockedTag {
			continue
		}
		out = append(out, tag)
	}
	for _, tag := range inline {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, blockedTag := block[key]; blockedTag {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}
