// Package frontmatter handles the YAML header block of vault documents:
// splitting it from the body, extracting tags and display dates, and
// rendering the generated header of packaged output.
package frontmatter

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Record is the parsed key/value header of a document.
type Record map[string]any

// SplitResult is the outcome of separating a header block from body text.
// Parsed is false when the document had no header or the block failed to
// parse; in both cases Record is empty and Body carries the full remainder.
type SplitResult struct {
	Record Record
	Body   string
	Parsed bool
}

// Split separates a leading YAML header from body text. A missing or
// malformed header is never an error: without a delimited block the input
// becomes the body unchanged; a delimited block that fails to parse is
// stripped anyway, leaving an empty record over the text after the closing
// delimiter.
func Split(raw string) SplitResult {
	if !strings.HasPrefix(raw, delim) {
		return SplitResult{Record: Record{}, Body: raw}
	}

	rest := raw[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return SplitResult{Record: Record{}, Body: raw}
	}

	block := rest[:idx]
	body := rest[idx+1+len(delim):]
	body = strings.TrimLeft(body, "\r\n")

	var rec Record
	if err := yaml.Unmarshal([]byte(block), &rec); err != nil || rec == nil {
		return SplitResult{Record: Record{}, Body: body}
	}
	return SplitResult{Record: rec, Body: body, Parsed: true}
}

// String returns the value under key if it is a string, else "".
func (r Record) String(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// StringList returns the value under key as a list of strings. Scalar
// strings are wrapped in a single-element list; non-string items are
// skipped.
func (r Record) StringList(key string) []string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

// DateString returns the value under key formatted as YYYY-MM-DD. YAML
// decodes unquoted dates as time.Time, so both representations are handled.
func (r Record) DateString(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	}
	return ""
}
