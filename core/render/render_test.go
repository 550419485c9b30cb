package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/assert"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/markup"
)

const planMarkdown = "## Positioning\n\n**Who:** busy parents\n\n- one\n- two\n\n## Channels\n\n**Top**:\n\n1. SEO"

var meta = core.DocumentMeta{Title: "Go-to-market plan", OrderID: "ord_1"}

func TestTextRendererPassthrough(t *testing.T) {
	r := NewTextRenderer()
	out, err := r.Render(context.Background(), planMarkdown, meta)
	assert.NilError(t, err)
	assert.Equal(t, string(out), planMarkdown)
	assert.Equal(t, r.Extension(), ".txt")
	assert.Equal(t, r.ContentType(), "text/plain; charset=utf-8")
}

func TestHTMLRenderer(t *testing.T) {
	r := NewHTMLRenderer(markup.NewConverter())
	out, err := r.Render(context.Background(), planMarkdown+"\n\n| a | b |\n|---|---|\n| 1 | 2 |", core.DocumentMeta{})
	assert.NilError(t, err)
	page := string(out)
	assert.Assert(t, strings.Contains(page, "<title>Go-to-market plan</title>"), page)
	assert.Assert(t, strings.Contains(page, "<h2>Positioning</h2>"), page)
	assert.Assert(t, strings.Contains(page, "<table>"), page)
}

func TestJSONRenderer(t *testing.T) {
	out, err := NewJSONRenderer().Render(context.Background(), planMarkdown, meta)
	assert.NilError(t, err)

	var plan core.PlanJSON
	assert.NilError(t, json.Unmarshal(out, &plan))
	assert.Equal(t, plan.Title, "Go-to-market plan")
	assert.Equal(t, plan.OrderID, "ord_1")
	assert.Equal(t, plan.Content, planMarkdown)
	assert.Equal(t, len(plan.Sections), 2)
	assert.Equal(t, plan.Sections[0].Heading, "Positioning")
	assert.Equal(t, plan.Sections[0].Text, "**Who:** busy parents\n\n- one\n- two")
	assert.Equal(t, plan.Sections[1].Text, "**Top**:\n\n1. SEO")
	assert.Equal(t, len(plan.Structure.Headings), 2)
	assert.Equal(t, plan.Structure.Labels, 1)
	assert.Equal(t, plan.Structure.ListItems, 3)
	assert.Equal(t, plan.Structure.ListBlocks, 2)
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	assert.NilError(t, err)
	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		assert.NilError(t, err)
		body, err := io.ReadAll(rc)
		assert.NilError(t, err)
		rc.Close()
		parts[f.Name] = string(body)
	}
	return parts
}

func TestDOCXRenderer(t *testing.T) {
	md := "## Positioning\n\n### Audience\n\n**Who:** busy parents & co\n\n- one\n- two\n\n1. first\n2. second\n\n---\n\n```\ncode  line\n```"
	r := NewDOCXRenderer(markup.NewConverter())
	out, err := r.Render(context.Background(), md, core.DocumentMeta{Title: "Plan <A&B>"})
	assert.NilError(t, err)
	assert.Assert(t, bytes.HasPrefix(out, []byte("PK")))
	assert.Equal(t, r.Extension(), ".docx")

	parts := readZip(t, out)
	for _, name := range []string{
		"[Content_Types].xml", "_rels/.rels", "docProps/core.xml",
		"word/_rels/document.xml.rels", "word/document.xml", "word/styles.xml",
		"word/numbering.xml", "word/footer1.xml", "word/settings.xml",
	} {
		_, ok := parts[name]
		assert.Assert(t, ok, "missing part %s", name)
	}

	doc := parts["word/document.xml"]
	assert.Assert(t, strings.Contains(doc, `<w:pStyle w:val="PlanHeading2"/>`), doc)
	assert.Assert(t, strings.Contains(doc, `<w:pStyle w:val="PlanHeading3"/>`), doc)
	assert.Assert(t, strings.Contains(doc, "busy parents &amp; co"), doc)
	assert.Assert(t, strings.Contains(doc, `<w:numId w:val="1"/>`), doc)
	assert.Assert(t, strings.Contains(doc, `<w:numId w:val="2"/>`), doc)
	assert.Assert(t, strings.Contains(doc, "<w:pBdr>"), doc)
	assert.Assert(t, strings.Contains(doc, "code  line"), doc)
	assert.Assert(t, strings.Contains(doc, `<w:pgSz w:w="11906" w:h="16838"/>`), doc)
	assert.Assert(t, strings.Contains(doc, `w:top="1134" w:right="907" w:bottom="1134" w:left="907"`), doc)
	assert.Assert(t, !strings.Contains(doc, `w:val="Heading`), doc)

	assert.Assert(t, !strings.Contains(parts["word/styles.xml"], `w:styleId="Heading`))
	assert.Assert(t, strings.Contains(parts["word/numbering.xml"], `<w:startOverride w:val="1"/>`))

	footer := parts["word/footer1.xml"]
	assert.Assert(t, strings.Contains(footer, " PAGE "), footer)
	assert.Assert(t, strings.Contains(footer, " NUMPAGES "), footer)
	assert.Assert(t, strings.Contains(footer, "Plan &lt;A&amp;B&gt;"), footer)
	assert.Assert(t, strings.Contains(parts["docProps/core.xml"], "<dc:title>Plan &lt;A&amp;B&gt;</dc:title>"))
}

func TestDOCXRendererHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDOCXRenderer(markup.NewConverter()).Render(ctx, planMarkdown, meta)
	assert.Assert(t, errors.Is(err, context.Canceled))
}

func TestFPDFRenderer(t *testing.T) {
	md := planMarkdown + "\n\n---\n\n### Notes\n\nPlain *italic* and `code` with [a link](https://example.com).\n\n```\nraw\n```"
	out, err := NewFPDFRenderer().Render(context.Background(), md, meta)
	assert.NilError(t, err)
	assert.Assert(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestFPDFRendererMissingFont(t *testing.T) {
	r := NewFPDFRendererWithFont(filepath.Join(t.TempDir(), "missing.ttf"), "")
	assert.Equal(t, r.boldFontPath, r.fontPath)
	_, err := r.Render(context.Background(), "Привет, мир", meta)
	assert.ErrorContains(t, err, "generating pdf")
}

func TestFPDFRendererWithoutFontUsesCoreFonts(t *testing.T) {
	out, err := NewFPDFRendererWithFont("", "").Render(context.Background(), "## Plan\n\n- **bold** item", meta)
	assert.NilError(t, err)
	assert.Assert(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Assert(t, bytes.Contains(out, []byte("Helvetica")))
}

func TestCleanInline(t *testing.T) {
	assert.Equal(t, cleanInline("a *b* `c` [d](http://x)"), "a b c d")
}

// --- headless browser fakes ---

type fakeEngine struct {
	failAt        string
	output        []byte
	content       string
	options       PrintOptions
	browserClosed bool
	pageClosed    bool
}

var errEngine = errors.New("engine failure")

func (e *fakeEngine) fail(step string) error {
	if e.failAt == step {
		return errEngine
	}
	return nil
}

func (e *fakeEngine) Launch(context.Context) (Browser, error) {
	if err := e.fail("launch"); err != nil {
		return nil, err
	}
	return &fakeBrowser{e}, nil
}

type fakeBrowser struct{ e *fakeEngine }

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if err := b.e.fail("page"); err != nil {
		return nil, err
	}
	return &fakePage{b.e}, nil
}

func (b *fakeBrowser) Close() error {
	b.e.browserClosed = true
	return nil
}

type fakePage struct{ e *fakeEngine }

func (p *fakePage) SetContent(html string) error {
	p.e.content = html
	return p.e.fail("content")
}

func (p *fakePage) EmulateScreenMedia() error {
	return p.e.fail("media")
}

func (p *fakePage) PrintPDF(opts PrintOptions) ([]byte, error) {
	p.e.options = opts
	if err := p.e.fail("print"); err != nil {
		return nil, err
	}
	return p.e.output, nil
}

func (p *fakePage) Close() error {
	p.e.pageClosed = true
	return nil
}

func TestPDFRenderer(t *testing.T) {
	engine := &fakeEngine{output: []byte("%PDF-1.7 fake")}
	r := NewPDFRenderer(markup.NewConverter(), engine, 0, nil)

	out, err := r.Render(context.Background(), planMarkdown, meta)
	assert.NilError(t, err)
	assert.Equal(t, string(out), "%PDF-1.7 fake")
	assert.Assert(t, engine.browserClosed)
	assert.Assert(t, engine.pageClosed)

	assert.Assert(t, strings.Contains(engine.content, `<p class="h2">Positioning</p>`), engine.content)
	assert.Assert(t, !strings.Contains(engine.content, "<h2"), engine.content)
	assert.Assert(t, strings.Contains(engine.content, "<title>Go-to-market plan</title>"))
	assert.DeepEqual(t, engine.options, A4PrintOptions())
	assert.Assert(t, engine.options.PrintBackground)
}

func TestPDFRendererReleasesBrowserOnFailure(t *testing.T) {
	tests := []struct {
		failAt     string
		output     string
		pageOpened bool
	}{
		{failAt: "page"},
		{failAt: "content", pageOpened: true},
		{failAt: "media", pageOpened: true},
		{failAt: "print", pageOpened: true},
		{failAt: "none", output: "<html>not a pdf</html>", pageOpened: true},
	}
	for _, tt := range tests {
		t.Run(tt.failAt, func(t *testing.T) {
			engine := &fakeEngine{failAt: tt.failAt, output: []byte(tt.output)}
			r := NewPDFRenderer(markup.NewConverter(), engine, 0, nil)

			out, err := r.Render(context.Background(), planMarkdown, meta)
			assert.Assert(t, err != nil)
			assert.Assert(t, out == nil)
			assert.Assert(t, engine.browserClosed, "browser leaked")
			assert.Equal(t, engine.pageClosed, tt.pageOpened)
		})
	}
}

func TestPDFRendererLaunchFailure(t *testing.T) {
	engine := &fakeEngine{failAt: "launch"}
	_, err := NewPDFRenderer(markup.NewConverter(), engine, 0, nil).Render(context.Background(), planMarkdown, meta)
	assert.Assert(t, errors.Is(err, errEngine))
	assert.Assert(t, !engine.browserClosed)
}

func TestPDFRendererRejectsNonPDF(t *testing.T) {
	engine := &fakeEngine{output: []byte("oops")}
	_, err := NewPDFRenderer(markup.NewConverter(), engine, 0, nil).Render(context.Background(), planMarkdown, meta)
	assert.Assert(t, errors.Is(err, ErrNotPDF))
}
