package reporting

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// htmlShell wraps the converted report body in a minimal standalone page.
const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; padding: 0 1em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
%s</body>
</html>
`

// RenderHTML converts the Markdown rendering to a standalone HTML page.
// Table support comes from the GFM extension; the Markdown renderers use
// pipe tables throughout.
func RenderHTML(r *Report) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(r)), &body); err != nil {
		return "", fmt.Errorf("convert report markdown: %w", err)
	}

	title := fmt.Sprintf("Valuation Report: %s (%s)", r.Ticker, r.Exchange)
	return fmt.Sprintf(htmlShell, title, body.String()), nil
}
