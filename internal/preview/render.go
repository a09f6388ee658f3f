package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/jkim-dev/vaultpack/internal/frontmatter"
)

// md renders GitHub-flavored Markdown. Raw HTML stays enabled because
// packaged pages embed span markup for gated links.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// renderMarkdown converts a packaged page to an HTML fragment. The header
// block is parsed off and shown as a title line rather than rendered as a
// thematic break.
func renderMarkdown(page []byte) (string, error) {
	split := frontmatter.Split(string(page))

	var buf bytes.Buffer
	if title := split.Record.String("title"); title != "" {
		buf.WriteString("<h1>" + escapeHTML(title) + "</h1>\n")
	}
	if err := md.Convert([]byte(split.Body), &buf); err != nil {
		return "", fmt.Errorf("preview: convert markdown: %w", err)
	}
	return buf.String(), nil
}

// pageShell wraps an HTML fragment in a minimal document that reloads when
// the event stream says so.
func pageShell(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{max-width:48rem;margin:2rem auto;font-family:sans-serif;line-height:1.5;padding:0 1rem}</style>
</head>
<body>
%s
<script>
new EventSource("/events").addEventListener("reload", function () { location.reload(); });
</script>
</body>
</html>
`, escapeHTML(title), body)
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
