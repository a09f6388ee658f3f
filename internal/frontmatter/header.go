package frontmatter

import (
	"strings"
)

// Header holds the metadata emitted at the top of a packaged document.
// Optional fields left empty are omitted from the rendered block.
type Header struct {
	Title       string
	Date        string
	DisplayDate string
	Description string
	Tags        []string
}

// Render produces the delimiter-bounded header block, fields in fixed order:
// title, date, displayDate, description, tags. String values have embedded
// quotes escaped. Tags render as a block list, one per line.
func (h Header) Render() string {
	var b strings.Builder
	b.WriteString(delim)
	b.WriteString("\n")
	b.WriteString(`title: "` + escapeQuotes(h.Title) + "\"\n")
	b.WriteString("date: " + h.Date + "\n")
	if h.DisplayDate != "" {
		b.WriteString(`displayDate: "` + escapeQuotes(h.DisplayDate) + "\"\n")
	}
	if h.Description != "" {
		b.WriteString(`description: "` + escapeQuotes(h.Description) + "\"\n")
	}
	if len(h.Tags) > 0 {
		b.WriteString("tags:\n")
		for _, tag := range h.Tags {
			b.WriteString("  - " + tag + "\n")
		}
	}
	b.WriteString(delim)
	b.WriteString("\n")
	return b.String()
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
