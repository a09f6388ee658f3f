// Package wikilink tokenizes Obsidian-style link constructs from document text.
package wikilink

import (
	"regexp"
	"sort"
	"strings"
)

// Kind distinguishes document links from image references.
type Kind int

const (
	KindDocument Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "document"
}

// imageExtensions is the fixed set of extensions treated as images,
// whether referenced through an embed or a plain document link.
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".svg":  {},
	".webp": {},
	".bmp":  {},
}

var (
	embedRe = regexp.MustCompile(`!\[\[([^\]|]+)\]\]`)
	linkRe  = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
)

// Reference is a single parsed link occurrence. Start and End are byte
// offsets into the source text covering the full matched syntax, delimiters
// included, so the rewriter can splice replacements at exact positions.
type Reference struct {
	Target  string
	Display string // empty when no alias was given
	Kind    Kind
	Start   int
	End     int
	Raw     string
}

// DisplayText returns the alias if one was given, else the target.
func (r Reference) DisplayText() string {
	if r.Display != "" {
		return r.Display
	}
	return r.Target
}

// IsImageTarget reports whether name carries an image extension.
func IsImageTarget(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(name[i:])]
	return ok
}

// Parse extracts every link reference from text. The result is sorted by
// start offset and spans never overlap. Embeds (![[...]]) are matched first
// and fully consumed so the leading '!' is never re-parsed as part of a
// plain document link.
func Parse(text string) []Reference {
	var refs []Reference
	claimed := make([]bool, len(text))

	for _, m := range embedRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		target := strings.TrimSpace(text[m[2]:m[3]])
		if target == "" {
			continue
		}
		refs = append(refs, Reference{
			Target: target,
			Kind:   KindImage,
			Start:  start,
			End:    end,
			Raw:    text[start:end],
		})
		claim(claimed, start, end)
	}

	for _, m := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if overlapsClaimed(claimed, start, end) {
			continue
		}
		target := strings.TrimSpace(text[m[2]:m[3]])
		if target == "" {
			continue
		}
		var display string
		if m[4] >= 0 {
			display = strings.TrimSpace(text[m[4]:m[5]])
		}
		kind := KindDocument
		if IsImageTarget(target) {
			// Plain-bracket image references behave exactly like embeds
			// downstream.
			kind = KindImage
		}
		refs = append(refs, Reference{
			Target:  target,
			Display: display,
			Kind:    kind,
			Start:   start,
			End:     end,
			Raw:     text[start:end],
		})
		claim(claimed, start, end)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	return refs
}

func claim(mask []bool, start, end int) {
	for i := start; i < end; i++ {
		mask[i] = true
	}
}

func overlapsClaimed(mask []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if mask[i] {
			return true
		}
	}
	return false
}
