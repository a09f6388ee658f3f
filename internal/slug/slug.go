// Package slug derives deterministic URL-safe identifiers from document titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jkim-dev/vaultpack/internal/checksum"
)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	alnumRunRe = regexp.MustCompile(`[a-zA-Z0-9]+`)
)

// transliterator decomposes to NFD and drops combining marks, turning
// accented letters into their base ASCII form.
var transliterator = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts title into a non-empty lowercase slug matching [a-z0-9-]+
// with no leading or trailing hyphen. The same title yields the same slug
// on every call and every run.
//
// Titles with no Latin-transliterable characters fall back to a hash form:
// the lowercase first ASCII-alphanumeric run of the title (or "doc") joined
// to the first 8 hex characters of the title's SHA-256 digest.
func Make(title string) string {
	s := strings.ToLower(transliterate(title))
	s = nonAlnumRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s != "" {
		return s
	}

	prefix := "doc"
	if run := alnumRunRe.FindString(title); run != "" {
		prefix = strings.ToLower(run)
	}
	return prefix + "-" + checksum.Short([]byte(title))
}

func transliterate(s string) string {
	out, _, err := transform.String(transliterator, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
