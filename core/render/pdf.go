// Package render — PDF renderer.
// Lays out demoted export HTML in a headless browser and prints it to A4.
// The browser engine sits behind BrowserLauncher so the renderer can release
// every handle it acquired no matter which step fails.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/markup"
)

// ErrNotPDF is returned when the browser produced bytes that are not a PDF.
var ErrNotPDF = errors.New("browser output is not a PDF")

var pdfMagic = []byte("%PDF-")

// PrintOptions describes the printed page in millimetres.
type PrintOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginRight     float64
	MarginBottom    float64
	MarginLeft      float64
	PrintBackground bool
}

// A4PrintOptions matches export.css: A4 paper, 20mm top/bottom and 16mm
// left/right margins, backgrounds printed.
func A4PrintOptions() PrintOptions {
	return PrintOptions{
		PaperWidth:      210,
		PaperHeight:     297,
		MarginTop:       20,
		MarginRight:     16,
		MarginBottom:    20,
		MarginLeft:      16,
		PrintBackground: true,
	}
}

// BrowserLauncher starts a headless browser.
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running headless browser. Close releases the process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab.
type Page interface {
	// SetContent loads an HTML document and waits until it has loaded and
	// the network is idle.
	SetContent(html string) error
	EmulateScreenMedia() error
	PrintPDF(opts PrintOptions) ([]byte, error)
	Close() error
}

// PDFRenderer renders Markdown as a PDF through a headless browser.
type PDFRenderer struct {
	converter *markup.Converter
	launcher  BrowserLauncher
	options   PrintOptions
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPDFRenderer creates a PDFRenderer. A zero timeout means the caller's
// context alone bounds a render.
func NewPDFRenderer(converter *markup.Converter, launcher BrowserLauncher, timeout time.Duration, logger *zap.Logger) *PDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFRenderer{
		converter: converter,
		launcher:  launcher,
		options:   A4PrintOptions(),
		timeout:   timeout,
		logger:    logger,
	}
}

// Render converts Markdown into PDF bytes.
func (r *PDFRenderer) Render(ctx context.Context, markdown string, meta core.DocumentMeta) ([]byte, error) {
	fragment, err := r.converter.ExportHTML(markdown)
	if err != nil {
		return nil, err
	}
	return r.printDocument(ctx, markup.Document(fragment, titleOrDefault(meta)))
}

func (r *PDFRenderer) printDocument(ctx context.Context, document string) (data []byte, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	browser, err := r.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			r.logger.Warn("closing browser", zap.Error(cerr))
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			r.logger.Debug("closing page", zap.Error(cerr))
		}
	}()

	if err := page.SetContent(document); err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	if err := page.EmulateScreenMedia(); err != nil {
		return nil, fmt.Errorf("emulating screen media: %w", err)
	}
	data, err = page.PrintPDF(r.options)
	if err != nil {
		return nil, fmt.Errorf("printing pdf: %w", err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}
	return data, nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// ContentType returns the MIME type for PDF output.
func (r *PDFRenderer) ContentType() string {
	return "application/pdf"
}
