package export

import (
	"context"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/markup"
	"github.com/gaurav-prasanna/gtmkit/core/normalize"
	"github.com/gaurav-prasanna/gtmkit/core/render"
)

// NormalizePlanToMarkdown returns the canonical Markdown for raw model output.
func NormalizePlanToMarkdown(raw string) string {
	return normalize.Normalize(raw)
}

// RenderToWordDocument renders canonical Markdown as a DOCX document.
func RenderToWordDocument(ctx context.Context, markdown, title string) ([]byte, error) {
	return render.NewDOCXRenderer(markup.NewConverter()).Render(ctx, markdown, core.DocumentMeta{Title: title})
}

// RenderToPDFDocument renders canonical Markdown as a PDF through a freshly
// launched headless Chromium, which is shut down before returning.
func RenderToPDFDocument(ctx context.Context, markdown, title string) ([]byte, error) {
	return RenderToPDFDocumentWith(ctx, render.NewRodLauncher("", false), markdown, title)
}

// RenderToPDFDocumentWith is RenderToPDFDocument with an explicit browser engine.
func RenderToPDFDocumentWith(ctx context.Context, launcher render.BrowserLauncher, markdown, title string) ([]byte, error) {
	r := render.NewPDFRenderer(markup.NewConverter(), launcher, 0, nil)
	return r.Render(ctx, markdown, core.DocumentMeta{Title: title})
}
