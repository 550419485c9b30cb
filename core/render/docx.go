// Package render — DOCX renderer.
// Converts demoted export HTML into a WordprocessingML package built in memory.
// Section titles use custom paragraph styles rather than Word's built-in
// Heading styles, so the host application cannot swap in its own typography.
package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/markup"
)

// Paragraph style IDs defined in styles.xml.
const (
	styleSection    = "PlanHeading2"
	styleSubsection = "PlanHeading3"
	styleList       = "ListParagraph"
	styleQuote      = "Quote"
	styleCode       = "Code"
	styleFooter     = "PlanFooter"
)

const (
	bulletNumID  = 1
	maxListLevel = 8
	// listIndentStep is the per-level list indent in twips.
	listIndentStep = 360
)

// DOCXRenderer renders Markdown as a Word document.
type DOCXRenderer struct {
	converter *markup.Converter
}

// NewDOCXRenderer creates a DOCXRenderer.
func NewDOCXRenderer(converter *markup.Converter) *DOCXRenderer {
	return &DOCXRenderer{converter: converter}
}

// Render converts Markdown into DOCX bytes.
func (r *DOCXRenderer) Render(ctx context.Context, markdown string, meta core.DocumentMeta) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fragment, err := r.converter.ExportHTML(markdown)
	if err != nil {
		return nil, err
	}
	body, err := newWordBody(fragment)
	if err != nil {
		return nil, err
	}
	return buildPackage(titleOrDefault(meta), body)
}

// Extension returns the file extension for DOCX output.
func (r *DOCXRenderer) Extension() string {
	return ".docx"
}

// ContentType returns the MIME type for DOCX output.
func (r *DOCXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// --- document body ---

// run is a span of text sharing one character format.
type run struct {
	text   string
	brk    bool
	bold   bool
	italic bool
	code   bool
}

// para holds the paragraph properties written into <w:pPr>.
type para struct {
	style  string
	numID  int
	level  int
	indent int
	rule   bool
}

// wordBody accumulates document.xml body content while walking the HTML tree.
type wordBody struct {
	buf strings.Builder
	// ordered holds the start value of every ordered list; the list at index i
	// uses numbering instance i+2.
	ordered []int
}

func newWordBody(fragment string) (*wordBody, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parsing export HTML: %w", err)
	}
	w := &wordBody{}
	for _, body := range doc.Find("body").Nodes {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			w.block(c)
		}
	}
	return w, nil
}

func (w *wordBody) block(n *html.Node) {
	if n.Type == html.TextNode {
		if strings.TrimSpace(n.Data) != "" {
			w.paragraph(para{}, []run{{text: n.Data}})
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	switch n.DataAtom {
	case atom.P:
		w.paragraph(para{style: paragraphStyle(n)}, inlineRuns(n, run{}))
	case atom.H1, atom.H2:
		w.paragraph(para{style: styleSection}, inlineRuns(n, run{}))
	case atom.H3, atom.H4, atom.H5, atom.H6:
		w.paragraph(para{style: styleSubsection}, inlineRuns(n, run{}))
	case atom.Ul, atom.Ol:
		w.list(n, 0)
	case atom.Blockquote:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.P {
				w.paragraph(para{style: styleQuote}, inlineRuns(c, run{}))
				continue
			}
			w.block(c)
		}
	case atom.Pre:
		w.codeBlock(textContent(n))
	case atom.Hr:
		w.paragraph(para{rule: true}, nil)
	default:
		w.paragraph(para{}, inlineRuns(n, run{}))
	}
}

func paragraphStyle(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		switch a.Val {
		case markup.ClassH2:
			return styleSection
		case markup.ClassH3:
			return styleSubsection
		}
	}
	return ""
}

func (w *wordBody) list(n *html.Node, level int) {
	numID := bulletNumID
	if n.DataAtom == atom.Ol {
		w.ordered = append(w.ordered, listStart(n))
		numID = len(w.ordered) + 1
	}
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type == html.ElementNode && li.DataAtom == atom.Li {
			w.listItem(li, numID, level)
		}
	}
}

// listItem writes one <li>. Its first paragraph carries the list marker;
// later paragraphs of a loose item are indented to match.
func (w *wordBody) listItem(li *html.Node, numID, level int) {
	var runs []run
	first := true
	flush := func() {
		runs = trimRuns(runs)
		if len(runs) == 0 {
			return
		}
		p := para{style: styleList, level: level}
		if first {
			p.numID = numID
		} else {
			p.indent = listIndentStep * (level + 2)
		}
		w.paragraph(p, runs)
		runs, first = nil, false
	}

	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Ul, atom.Ol:
				flush()
				w.list(c, min(level+1, maxListLevel))
				continue
			case atom.P:
				flush()
				runs = inlineRuns(c, run{})
				flush()
				continue
			}
		}
		runs = collectRuns(c, run{}, runs)
	}
	flush()
}

func (w *wordBody) codeBlock(code string) {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	var runs []run
	for i, line := range lines {
		if i > 0 {
			runs = append(runs, run{brk: true})
		}
		runs = append(runs, run{text: line, code: true})
	}
	w.paragraph(para{style: styleCode}, runs)
}

func (w *wordBody) paragraph(p para, runs []run) {
	runs = trimRuns(runs)
	b := &w.buf
	b.WriteString("<w:p>")
	if props := p.properties(); props != "" {
		b.WriteString("<w:pPr>" + props + "</w:pPr>")
	}
	for _, r := range runs {
		writeRun(b, r)
	}
	b.WriteString("</w:p>")
}

func (p para) properties() string {
	var b strings.Builder
	if p.style != "" {
		b.WriteString(`<w:pStyle w:val="` + p.style + `"/>`)
	}
	if p.numID > 0 {
		fmt.Fprintf(&b, `<w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%d"/></w:numPr>`, p.level, p.numID)
	}
	if p.rule {
		b.WriteString(`<w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="CCCCCC"/></w:pBdr>`)
	}
	if p.indent > 0 {
		fmt.Fprintf(&b, `<w:ind w:left="%d"/>`, p.indent)
	}
	return b.String()
}

func writeRun(b *strings.Builder, r run) {
	b.WriteString("<w:r>")
	if r.bold || r.italic || r.code {
		b.WriteString("<w:rPr>")
		if r.code {
			b.WriteString(`<w:rFonts w:ascii="Courier New" w:hAnsi="Courier New" w:cs="Courier New"/>`)
		}
		if r.bold {
			b.WriteString("<w:b/>")
		}
		if r.italic {
			b.WriteString("<w:i/>")
		}
		if r.code {
			b.WriteString(`<w:sz w:val="20"/>`)
		}
		b.WriteString("</w:rPr>")
	}
	if r.brk {
		b.WriteString("<w:br/>")
	} else {
		b.WriteString(`<w:t xml:space="preserve">` + escapeXML(r.text) + "</w:t>")
	}
	b.WriteString("</w:r>")
}

// --- inline content ---

func inlineRuns(n *html.Node, format run) []run {
	var runs []run
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		runs = collectRuns(c, format, runs)
	}
	return runs
}

// collectRuns flattens inline HTML into runs. format carries the character
// format inherited from enclosing elements.
func collectRuns(n *html.Node, format run, runs []run) []run {
	switch n.Type {
	case html.TextNode:
		format.text = n.Data
		return append(runs, format)
	case html.ElementNode:
	default:
		return runs
	}

	switch n.DataAtom {
	case atom.Br:
		return append(runs, run{brk: true})
	case atom.Img:
		format.text = attr(n, "alt")
		return append(runs, format)
	case atom.Strong, atom.B:
		format.bold = true
	case atom.Em, atom.I:
		format.italic = true
	case atom.Code:
		format.code = true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		runs = collectRuns(c, format, runs)
	}
	return runs
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// trimRuns collapses whitespace the way a browser would, trims the
// paragraph's outer edges and drops empty runs.
func trimRuns(runs []run) []run {
	out := make([]run, 0, len(runs))
	for _, r := range runs {
		if !r.brk && !r.code {
			r.text = whitespaceRun.ReplaceAllString(r.text, " ")
		}
		if !r.brk && !r.code && r.text == "" {
			continue
		}
		out = append(out, r)
	}
	if len(out) > 0 && !out[0].brk && !out[0].code {
		out[0].text = strings.TrimLeft(out[0].text, " ")
	}
	if last := len(out) - 1; last >= 0 && !out[last].brk && !out[last].code {
		out[last].text = strings.TrimRight(out[last].text, " ")
	}

	trimmed := out[:0]
	for _, r := range out {
		if r.brk || r.code || r.text != "" {
			trimmed = append(trimmed, r)
		}
	}
	return trimmed
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func listStart(n *html.Node) int {
	if v, err := strconv.Atoi(attr(n, "start")); err == nil && v > 0 {
		return v
	}
	return 1
}

func escapeXML(s string) string {
	var b strings.Builder
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// --- package parts ---

const (
	nsW = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	nsR = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

const contentTypesXML = xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
  <Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>
  <Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>
  <Override PartName="/word/settings.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"/>
  <Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

const packageRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

const documentRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>
  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>
  <Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings" Target="settings.xml"/>
</Relationships>`

const settingsXML = xmlHeader + `<w:settings ` + nsW + `>
  <w:defaultTabStop w:val="720"/>
  <w:compat><w:compatSetting w:name="compatibilityMode" w:uri="http://schemas.microsoft.com/office/word" w:val="15"/></w:compat>
</w:settings>`

// stylesXML mirrors export.css: 11pt body at 1.55 line height, 14pt and 12pt
// section paragraphs. Sizes are in half-points, spacing in twentieths of a point.
const stylesXML = xmlHeader + `<w:styles ` + nsW + `>
  <w:docDefaults>
    <w:rPrDefault><w:rPr>
      <w:rFonts w:ascii="Arial" w:hAnsi="Arial" w:cs="Arial" w:eastAsia="Arial"/>
      <w:color w:val="111111"/>
      <w:sz w:val="22"/><w:szCs w:val="22"/>
    </w:rPr></w:rPrDefault>
    <w:pPrDefault><w:pPr>
      <w:spacing w:before="180" w:after="180" w:line="372" w:lineRule="auto"/>
    </w:pPr></w:pPrDefault>
  </w:docDefaults>
  <w:style w:type="paragraph" w:default="1" w:styleId="Normal">
    <w:name w:val="Normal"/>
    <w:qFormat/>
  </w:style>
  <w:style w:type="paragraph" w:customStyle="1" w:styleId="PlanHeading2">
    <w:name w:val="Plan Section"/>
    <w:basedOn w:val="Normal"/>
    <w:next w:val="Normal"/>
    <w:qFormat/>
    <w:pPr><w:keepNext/><w:spacing w:before="280" w:after="160" w:line="300" w:lineRule="auto"/></w:pPr>
    <w:rPr><w:b/><w:sz w:val="28"/><w:szCs w:val="28"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:customStyle="1" w:styleId="PlanHeading3">
    <w:name w:val="Plan Subsection"/>
    <w:basedOn w:val="Normal"/>
    <w:next w:val="Normal"/>
    <w:qFormat/>
    <w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120" w:line="312" w:lineRule="auto"/></w:pPr>
    <w:rPr><w:b/><w:sz w:val="24"/><w:szCs w:val="24"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="ListParagraph">
    <w:name w:val="List Paragraph"/>
    <w:basedOn w:val="Normal"/>
    <w:qFormat/>
    <w:pPr><w:spacing w:before="80" w:after="80"/></w:pPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="Quote">
    <w:name w:val="Quote"/>
    <w:basedOn w:val="Normal"/>
    <w:qFormat/>
    <w:pPr><w:ind w:left="720" w:right="720"/></w:pPr>
    <w:rPr><w:i/><w:color w:val="555555"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:customStyle="1" w:styleId="Code">
    <w:name w:val="Code"/>
    <w:basedOn w:val="Normal"/>
    <w:pPr><w:spacing w:line="240" w:lineRule="auto"/></w:pPr>
    <w:rPr><w:rFonts w:ascii="Courier New" w:hAnsi="Courier New" w:cs="Courier New"/><w:sz w:val="20"/><w:szCs w:val="20"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:customStyle="1" w:styleId="PlanFooter">
    <w:name w:val="Plan Footer"/>
    <w:basedOn w:val="Normal"/>
    <w:pPr><w:spacing w:before="0" w:after="0"/><w:jc w:val="center"/></w:pPr>
    <w:rPr><w:color w:val="666666"/><w:sz w:val="18"/><w:szCs w:val="18"/></w:rPr>
  </w:style>
</w:styles>`

// sectionXML sets an A4 page with 20mm top/bottom and 16mm left/right margins.
const sectionXML = `<w:sectPr>
      <w:footerReference w:type="default" r:id="rId3"/>
      <w:pgSz w:w="11906" w:h="16838"/>
      <w:pgMar w:top="1134" w:right="907" w:bottom="1134" w:left="907" w:header="567" w:footer="567" w:gutter="0"/>
    </w:sectPr>`

var bulletGlyphs = []string{"•", "◦", "▪"}

func (w *wordBody) documentXML() string {
	return xmlHeader + `<w:document ` + nsW + ` ` + nsR + `>
  <w:body>` + w.buf.String() + `
    ` + sectionXML + `
  </w:body>
</w:document>`
}

func (w *wordBody) numberingXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader + `<w:numbering ` + nsW + `>`)

	b.WriteString(`<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for lvl := 0; lvl <= maxListLevel; lvl++ {
		fmt.Fprintf(&b, `<w:lvl w:ilvl="%d"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="%s"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="%d" w:hanging="%d"/></w:pPr></w:lvl>`,
			lvl, bulletGlyphs[lvl%len(bulletGlyphs)], listIndentStep*(lvl+2), listIndentStep)
	}
	b.WriteString(`</w:abstractNum>`)

	b.WriteString(`<w:abstractNum w:abstractNumId="1"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for lvl := 0; lvl <= maxListLevel; lvl++ {
		fmt.Fprintf(&b, `<w:lvl w:ilvl="%d"><w:start w:val="1"/><w:numFmt w:val="decimal"/><w:lvlText w:val="%%%d."/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="%d" w:hanging="%d"/></w:pPr></w:lvl>`,
			lvl, lvl+1, listIndentStep*(lvl+2), listIndentStep)
	}
	b.WriteString(`</w:abstractNum>`)

	fmt.Fprintf(&b, `<w:num w:numId="%d"><w:abstractNumId w:val="0"/></w:num>`, bulletNumID)
	// Every ordered list restarts its own count.
	for i, start := range w.ordered {
		fmt.Fprintf(&b, `<w:num w:numId="%d"><w:abstractNumId w:val="1"/><w:lvlOverride w:ilvl="0"><w:startOverride w:val="%d"/></w:lvlOverride></w:num>`,
			i+2, start)
	}
	b.WriteString(`</w:numbering>`)
	return b.String()
}

func footerXML(title string) string {
	field := func(instr string) string {
		return `<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
			`<w:r><w:instrText xml:space="preserve"> ` + instr + ` </w:instrText></w:r>` +
			`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
			`<w:r><w:t>1</w:t></w:r>` +
			`<w:r><w:fldChar w:fldCharType="end"/></w:r>`
	}
	return xmlHeader + `<w:ftr ` + nsW + ` ` + nsR + `>
  <w:p><w:pPr><w:pStyle w:val="` + styleFooter + `"/></w:pPr>` +
		`<w:r><w:t xml:space="preserve">` + escapeXML(title) + ` · Page </w:t></w:r>` +
		field("PAGE") +
		`<w:r><w:t xml:space="preserve"> of </w:t></w:r>` +
		field("NUMPAGES") + `</w:p>
</w:ftr>`
}

func coreXML(title string) string {
	return xmlHeader + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <dc:title>` + escapeXML(title) + `</dc:title>
  <dc:creator>gtmkit</dc:creator>
</cp:coreProperties>`
}

// buildPackage zips every part of the document, in a fixed order.
func buildPackage(title string, body *wordBody) ([]byte, error) {
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"docProps/core.xml", coreXML(title)},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", body.documentXML()},
		{"word/styles.xml", stylesXML},
		{"word/numbering.xml", body.numberingXML()},
		{"word/footer1.xml", footerXML(title)},
		{"word/settings.xml", settingsXML},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := io.WriteString(f, p.content); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing docx archive: %w", err)
	}
	return buf.Bytes(), nil
}
