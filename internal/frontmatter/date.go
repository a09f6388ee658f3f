package frontmatter

import (
	"regexp"
	"strings"
)

var (
	displayDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Date:\s*(.+)`),
		regexp.MustCompile(`(?i)Written:?\s+(.+)`),
	}
	trailingStatusRe = regexp.MustCompile(`(?i)\s*Status:.*$`)
)

// ExtractDisplayDate pulls a human-readable date line out of body text.
// It tries a "Date: ..." line first, then "Written ...", strips any trailing
// "Status: ..." fragment, and accepts the first candidate longer than three
// characters. The result is an opaque display string, not a parsed date.
func ExtractDisplayDate(body string) string {
	for _, re := range displayDatePatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		candidate := m[1]
		if i := strings.IndexAny(candidate, "\r\n"); i >= 0 {
			candidate = candidate[:i]
		}
		candidate = trailingStatusRe.ReplaceAllString(candidate, "")
		candidate = strings.TrimSpace(candidate)
		if len(candidate) > 3 {
			return candidate
		}
	}
	return ""
}
