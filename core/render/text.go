// Package render provides the document renderers for gtmkit exports.
// This file implements the plain-text renderer, which is a simple passthrough:
// the text export is the canonical Markdown itself.
package render

import (
	"context"

	"github.com/gaurav-prasanna/gtmkit/core"
)

// TextRenderer writes canonical Markdown as-is.
type TextRenderer struct{}

// NewTextRenderer creates a TextRenderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render returns the Markdown as bytes (passthrough).
func (r *TextRenderer) Render(_ context.Context, markdown string, _ core.DocumentMeta) ([]byte, error) {
	return []byte(markdown), nil
}

// Extension returns the file extension for text output.
func (r *TextRenderer) Extension() string {
	return ".txt"
}

// ContentType returns the MIME type for text output.
func (r *TextRenderer) ContentType() string {
	return "text/plain; charset=utf-8"
}
