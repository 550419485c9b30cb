// Package render — HTML renderer.
// Produces the live result page as a standalone document. Unlike the binary
// exports it keeps tables and real headings.
package render

import (
	"context"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/markup"
)

// HTMLRenderer renders Markdown as a standalone HTML page.
type HTMLRenderer struct {
	converter *markup.Converter
}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer(converter *markup.Converter) *HTMLRenderer {
	return &HTMLRenderer{converter: converter}
}

// Render converts Markdown into an HTML document.
func (r *HTMLRenderer) Render(_ context.Context, markdown string, meta core.DocumentMeta) ([]byte, error) {
	body, err := r.converter.PageHTML(markdown)
	if err != nil {
		return nil, err
	}
	return []byte(markup.Document(body, titleOrDefault(meta))), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

// ContentType returns the MIME type for HTML output.
func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func titleOrDefault(meta core.DocumentMeta) string {
	if meta.Title == "" {
		return core.DefaultTitle
	}
	return meta.Title
}
