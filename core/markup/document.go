package markup

import (
	_ "embed"
	"html"
	"strings"
)

// exportCSS is the print stylesheet shared by every exported document:
// A4 pages, 20mm/16mm margins, 11pt body with 14pt and 12pt section paragraphs.
//
//go:embed export.css
var exportCSS string

// Stylesheet returns the export stylesheet.
func Stylesheet() string {
	return exportCSS
}

// Document wraps an HTML fragment in a standalone HTML document carrying the
// export stylesheet. The title is escaped.
func Document(body, title string) string {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\" />\n")
	b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	b.WriteString("<style>\n" + exportCSS + "</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
