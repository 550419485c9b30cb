// Package render — fallback PDF renderer.
// Lays out canonical Markdown directly with gofpdf for hosts that have no
// headless browser. It follows the export stylesheet's point scale and margins
// but not its exact line breaking.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/gtmkit/core"
)

const (
	fpdfMarginX    = 16.0
	fpdfMarginY    = 20.0
	fpdfPageWidth  = 210.0
	fpdfListIndent = 6.0
)

var (
	numberedItemRegex = regexp.MustCompile(`^(\d+[.)])\s+(.*)$`)
	italicRegex       = regexp.MustCompile(`(^|\s)\*([^*]+)\*`)
	inlineCodeRegex   = regexp.MustCompile("`([^`]+)`")
	inlineLinkRegex   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
)

// FPDFRenderer renders Markdown as a PDF without a browser.
//
// With no font configured it uses the PDF core fonts, which only cover
// cp1252: characters outside it, such as Cyrillic or CJK, print as dots.
// Configure a UTF-8 TrueType font for plans in other scripts.
type FPDFRenderer struct {
	fontPath     string
	boldFontPath string
}

// NewFPDFRenderer creates an FPDFRenderer using the core fonts.
func NewFPDFRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

// NewFPDFRendererWithFont creates an FPDFRenderer that embeds the TrueType
// font at fontPath. boldFontPath may be empty, in which case bold text uses
// the regular face. An empty fontPath falls back to the core fonts.
func NewFPDFRendererWithFont(fontPath, boldFontPath string) *FPDFRenderer {
	if boldFontPath == "" {
		boldFontPath = fontPath
	}
	return &FPDFRenderer{fontPath: fontPath, boldFontPath: boldFontPath}
}

// utf8Family names the embedded font inside the document.
const utf8Family = "plan"

// fpdfDoc is the document being laid out plus its font choice.
type fpdfDoc struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	family string
	mono   string
}

func (r *FPDFRenderer) newDoc() fpdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	if r.fontPath == "" {
		return fpdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), family: "Helvetica", mono: "Courier"}
	}
	pdf.AddUTF8Font(utf8Family, "", r.fontPath)
	pdf.AddUTF8Font(utf8Family, "B", r.boldFontPath)
	identity := func(s string) string { return s }
	return fpdfDoc{pdf: pdf, tr: identity, family: utf8Family, mono: utf8Family}
}

// Render converts Markdown into PDF bytes.
func (r *FPDFRenderer) Render(ctx context.Context, markdown string, meta core.DocumentMeta) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := titleOrDefault(meta)

	d := r.newDoc()
	pdf := d.pdf
	pdf.SetMargins(fpdfMarginX, fpdfMarginY, fpdfMarginX)
	pdf.SetAutoPageBreak(true, fpdfMarginY)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont(d.family, "", 8)
		pdf.SetTextColor(102, 102, 102)
		footer := title + " · Page " + strconv.Itoa(pdf.PageNo()) + " of {nb}"
		pdf.CellFormat(0, 6, d.tr(footer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(17, 17, 17)
	})
	pdf.AddPage()
	pdf.SetTextColor(17, 17, 17)

	inCodeBlock := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		// Toggle code block state.
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock = !inCodeBlock
			pdf.Ln(2)
			continue
		}
		if inCodeBlock {
			pdf.SetFont(d.mono, "", 10)
			pdf.MultiCell(0, 4.5, d.tr(line), "", "L", false)
			continue
		}

		switch {
		case trimmed == "":
			pdf.Ln(2)
		case strings.HasPrefix(trimmed, "## "):
			d.heading(trimmed[3:], 14)
		case strings.HasPrefix(trimmed, "### "):
			d.heading(trimmed[4:], 12)
		case trimmed == "---":
			y := pdf.GetY() + 2
			pdf.SetDrawColor(204, 204, 204)
			pdf.Line(fpdfMarginX, y, fpdfPageWidth-fpdfMarginX, y)
			pdf.Ln(5)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			d.listItem("•", trimmed[2:])
		case numberedItemRegex.MatchString(trimmed):
			m := numberedItemRegex.FindStringSubmatch(trimmed)
			d.listItem(m[1], m[2])
		default:
			d.inline(trimmed, 11, 6)
			pdf.Ln(7.5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("generating pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *FPDFRenderer) Extension() string {
	return ".pdf"
}

// ContentType returns the MIME type for PDF output.
func (r *FPDFRenderer) ContentType() string {
	return "application/pdf"
}

func (d fpdfDoc) heading(text string, size float64) {
	d.pdf.Ln(size * 0.35)
	d.pdf.SetFont(d.family, "B", size)
	d.pdf.MultiCell(0, size*0.5, d.tr(cleanInline(strings.ReplaceAll(text, "**", ""))), "", "L", false)
	d.pdf.Ln(size * 0.2)
}

// listItem writes one list item with a hanging indent.
func (d fpdfDoc) listItem(marker, text string) {
	d.pdf.SetFont(d.family, "", 11)
	d.pdf.SetX(fpdfMarginX + 1)
	d.pdf.Write(6, d.tr(marker))
	d.pdf.SetLeftMargin(fpdfMarginX + fpdfListIndent)
	d.pdf.SetX(fpdfMarginX + fpdfListIndent)
	d.inline(text, 11, 6)
	d.pdf.SetLeftMargin(fpdfMarginX)
	d.pdf.Ln(7)
}

// inline writes text, switching to bold between "**" markers.
func (d fpdfDoc) inline(text string, size, lineHeight float64) {
	for i, segment := range strings.Split(text, "**") {
		if segment == "" {
			continue
		}
		style := ""
		if i%2 == 1 {
			style = "B"
		}
		d.pdf.SetFont(d.family, style, size)
		d.pdf.Write(lineHeight, d.tr(cleanInline(segment)))
	}
}

// cleanInline strips the inline Markdown that gofpdf cannot style.
func cleanInline(text string) string {
	text = italicRegex.ReplaceAllString(text, "$1$2")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	return inlineLinkRegex.ReplaceAllString(text, "$1")
}
