// Package rewrite turns wiki-style references into publishable Markdown
// using the resolutions computed for their targets.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jkim-dev/vaultpack/internal/resolver"
	"github.com/jkim-dev/vaultpack/internal/wikilink"
)

// tagOnlyLineRe matches a line holding nothing but inline hashtags. Such
// lines carry metadata already lifted into the header and are dropped from
// the top of the rewritten body.
var tagOnlyLineRe = regexp.MustCompile(`^\s*(#[A-Za-z][A-Za-z0-9_-]*\s*)+$`)

// Rewrite splices a replacement for every reference into body. Lookup is by
// lowercase target; references whose target has no resolution are replaced
// with their display text.
func Rewrite(body string, refs []wikilink.Reference, resolutions map[string]resolver.Resolution) (string, error) {
	edits := make([]edit, 0, len(refs))
	for _, ref := range refs {
		res, ok := resolutions[strings.ToLower(ref.Target)]
		edits = append(edits, edit{
			Start:       ref.Start,
			End:         ref.End,
			Replacement: replacement(ref, res, ok),
		})
	}

	out, err := applyEdits(body, edits)
	if err != nil {
		return "", err
	}
	return stripLeadingTagLines(out), nil
}

func replacement(ref wikilink.Reference, res resolver.Resolution, resolved bool) string {
	if ref.Kind == wikilink.KindImage {
		if !resolved || !res.Found {
			return fmt.Sprintf("*[Image: %s]*", ref.Target)
		}
		return fmt.Sprintf("![%s](./%s)", ref.Target, res.LocalFilename)
	}

	display := ref.DisplayText()
	switch {
	case !resolved || !res.Found:
		return display
	case !res.Passes:
		return fmt.Sprintf(`<span style={{color: "#999", cursor: "not-allowed"}}>%s</span>`, display)
	default:
		return fmt.Sprintf("[%s](/snippets/%s/)", display, res.Slug)
	}
}

// stripLeadingTagLines removes hashtag-only lines (and the blank lines
// between them) from the start of body.
func stripLeadingTagLines(body string) string {
	lines := strings.Split(body, "\n")
	i, sawTags := 0, false
	for i < len(lines) {
		if tagOnlyLineRe.MatchString(lines[i]) {
			i++
			sawTags = true
			continue
		}
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}
		break
	}
	if !sawTags {
		return body
	}
	if i == len(lines) {
		return ""
	}
	return strings.Join(lines[i:], "\n")
}
