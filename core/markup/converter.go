// Package markup converts canonical Markdown into HTML fragments.
// The live page keeps GFM tables; the export path does not, and its headings are
// demoted to styled paragraphs before any document renderer sees them.
package markup

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gaurav-prasanna/gtmkit/core/normalize"
)

// Converter turns Markdown into HTML. Raw HTML embedded in the Markdown is
// never passed through.
type Converter struct {
	page   goldmark.Markdown
	export goldmark.Markdown
}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{
		page:   goldmark.New(goldmark.WithExtensions(extension.Table)),
		export: goldmark.New(),
	}
}

// PageHTML converts Markdown for the live result page, with table support.
func (c *Converter) PageHTML(markdown string) (string, error) {
	return convert(c.page, markdown)
}

// ExportHTML converts Markdown for DOCX and PDF export. Heading-shaped inline
// labels are rewritten first and every heading in the output is demoted, so the
// fragment contains no <h1>–<h6> elements.
func (c *Converter) ExportHTML(markdown string) (string, error) {
	fragment, err := convert(c.export, normalize.LabelHeadings(markdown))
	if err != nil {
		return "", err
	}
	return DemoteHeadings(fragment)
}

func convert(md goldmark.Markdown, markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}
