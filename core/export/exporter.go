// Package export wires normalization and rendering into named export formats.
// Raw model output goes in; a rendered artifact named after its order comes out.
// Normalized Markdown is never stored: every export recomputes it.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/ingest"
	"github.com/gaurav-prasanna/gtmkit/core/markup"
	"github.com/gaurav-prasanna/gtmkit/core/normalize"
	"github.com/gaurav-prasanna/gtmkit/core/output"
	"github.com/gaurav-prasanna/gtmkit/core/render"
)

// Format names an export format.
type Format string

const (
	FormatText Format = "txt"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// PDF engines.
const (
	EngineChrome = "chrome"
	EngineFPDF   = "fpdf"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "text":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, s)
}

// Artifact is one rendered export.
type Artifact struct {
	Format      Format
	Data        []byte
	ContentType string
	Filename    string
}

// Exporter renders raw model output into export formats.
type Exporter struct {
	normalizer core.Normalizer
	ingester   *ingest.HTMLIngester
	renderers  map[Format]core.Renderer
	logger     *zap.Logger
}

// New creates an Exporter over an explicit set of renderers.
func New(normalizer core.Normalizer, renderers map[Format]core.Renderer, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		normalizer: normalizer,
		ingester:   ingest.New(),
		renderers:  renderers,
		logger:     logger,
	}
}

// Options configures the standard renderer set.
type Options struct {
	// PDFEngine is EngineChrome (default) or EngineFPDF.
	PDFEngine     string
	BrowserBin    string
	NoSandbox     bool
	RenderTimeout time.Duration

	// PDFFont and PDFBoldFont are TrueType files for the fpdf engine.
	// Without them fpdf only prints cp1252 text.
	PDFFont     string
	PDFBoldFont string
	Logger      *zap.Logger
}

// NewDefault creates an Exporter with every built-in format.
func NewDefault(opts Options) (*Exporter, error) {
	converter := markup.NewConverter()

	var pdf core.Renderer
	switch opts.PDFEngine {
	case "", EngineChrome:
		launcher := render.NewRodLauncher(opts.BrowserBin, opts.NoSandbox)
		pdf = render.NewPDFRenderer(converter, launcher, opts.RenderTimeout, opts.Logger)
	case EngineFPDF:
		pdf = render.NewFPDFRendererWithFont(opts.PDFFont, opts.PDFBoldFont)
	default:
		return nil, fmt.Errorf("unknown pdf engine %q (expected %s or %s)", opts.PDFEngine, EngineChrome, EngineFPDF)
	}

	renderers := map[Format]core.Renderer{
		FormatText: render.NewTextRenderer(),
		FormatHTML: render.NewHTMLRenderer(converter),
		FormatJSON: render.NewJSONRenderer(),
		FormatDOCX: render.NewDOCXRenderer(converter),
		FormatPDF:  pdf,
	}
	return New(normalize.New(), renderers, opts.Logger), nil
}

// Formats lists the formats this Exporter can render, sorted by name.
func (e *Exporter) Formats() []Format {
	formats := make([]Format, 0, len(e.renderers))
	for f := range e.renderers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Markdown returns the canonical Markdown for raw model output. HTML output
// is converted to Markdown first; if that fails the raw text is normalized as-is.
func (e *Exporter) Markdown(raw string) string {
	prepared, err := e.ingester.Prepare(raw)
	if err != nil {
		e.logger.Warn("html ingest failed, normalizing raw text", zap.Error(err))
		prepared = raw
	}
	return e.normalizer.Normalize(prepared)
}

// Export normalizes raw model output and renders it in one format.
func (e *Exporter) Export(ctx context.Context, raw string, format Format, meta core.DocumentMeta) (*Artifact, error) {
	return e.render(ctx, e.Markdown(raw), format, meta)
}

// ExportAll renders several formats from one normalization, in order.
// It stops at the first failure.
func (e *Exporter) ExportAll(ctx context.Context, raw string, formats []Format, meta core.DocumentMeta) ([]*Artifact, error) {
	markdown := e.Markdown(raw)
	artifacts := make([]*Artifact, 0, len(formats))
	for _, f := range formats {
		a, err := e.render(ctx, markdown, f, meta)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func (e *Exporter) render(ctx context.Context, markdown string, format Format, meta core.DocumentMeta) (*Artifact, error) {
	r, ok := e.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}
	if meta.Title == "" {
		meta.Title = core.DefaultTitle
	}

	start := time.Now()
	data, err := r.Render(ctx, markdown, meta)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", format, err)
	}
	e.logger.Debug("rendered export",
		zap.String("format", string(format)),
		zap.String("order_id", meta.OrderID),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	return &Artifact{
		Format:      format,
		Data:        data,
		ContentType: r.ContentType(),
		Filename:    output.Filename(meta.OrderID, r.Extension()),
	}, nil
}
