// Package normalize implements the Normalizer interface.
// It reshapes raw model output into canonical Markdown, which serves as the
// single intermediate format for the live page and every export renderer.
//
// Normalization runs three passes over the text:
//  1. per-line cleanup (line breaks, bullets, heading levels, labels),
//  2. list-block detection driven by "Header:" lines,
//  3. inline label splitting followed by block layout.
//
// The result is a fixed point: normalizing normalized text changes nothing.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// PlanNormalizer normalizes generated plan text.
type PlanNormalizer struct{}

// New creates a PlanNormalizer.
func New() *PlanNormalizer {
	return &PlanNormalizer{}
}

// Normalize converts raw model output into canonical Markdown.
func (n *PlanNormalizer) Normalize(raw string) string {
	return Normalize(raw)
}

var (
	bulletMarkerPattern  = regexp.MustCompile(`^\s*[*•\x{2013}\x{2014}]\s+`)
	doubledMarkerPattern = regexp.MustCompile(`^\s*-\s*-\s+`)
	bulletPrefixPattern  = regexp.MustCompile(`^\s*(?:[-*•\x{2013}\x{2014}]|\d+[.)])\s+`)
	atxHeadingPattern    = regexp.MustCompile(`^\s*(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)
	numberedHeadPattern  = regexp.MustCompile(`^\s*\d+\)\s+(.+?)\s*$`)
	rulePattern          = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
	boldHeaderPattern    = regexp.MustCompile(`^\*\*.+\*\*:$`)

	// stageHeadingPattern splits "...sentence. Top starter channels:" into the
	// sentence and a header line. The header phrase holds no sentence terminator.
	stageHeadingPattern = regexp.MustCompile(
		`^(.*)([.!?])(["\x{201D}\x{2019}']?)[ \t]+([A-Z][^:.!?*\n]{2,80}):[ \t]*$`)
)

// closingBlankRun is the number of consecutive blank lines that ends a list block.
// The scanner injects a "---" break where the run ends. Blank runs collapse on
// output, so without the break a second pass would read the next paragraph as
// part of the list. The rule is kept even though it adds a line the input
// never had.
const closingBlankRun = 3

// Normalize converts raw model output into canonical Markdown.
// It never fails: any string is accepted and some Markdown is returned.
func Normalize(raw string) string {
	lines := cleanLines(raw)
	lines = groupLists(lines)
	lines = splitLabels(lines)
	return strings.Join(layout(lines), "\n")
}

// --- pass 1 ---

func normalizeLineBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func cleanLines(raw string) []string {
	lines := strings.Split(normalizeLineBreaks(raw), "\n")
	for i, line := range lines {
		lines[i] = cleanLine(strings.TrimRightFunc(line, unicode.IsSpace))
	}
	return lines
}

func cleanLine(line string) string {
	line = normalizeBulletMarker(line)
	line = clampHeading(line)
	if m := numberedHeadPattern.FindStringSubmatch(line); m != nil {
		line = "## " + m[1]
	}
	if label, ok := InlineLabel(line); ok {
		line = label
	}
	return line
}

func normalizeBulletMarker(line string) string {
	line = bulletMarkerPattern.ReplaceAllString(line, "- ")
	return doubledMarkerPattern.ReplaceAllString(line, "- ")
}

// clampHeading maps every ATX heading onto the two levels the plan uses.
// A heading that is really an inline label becomes a label paragraph.
func clampHeading(line string) string {
	m := atxHeadingPattern.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	if label, ok := InlineLabel(m[2]); ok {
		return label
	}
	if len(m[1]) <= 2 {
		return "## " + m[2]
	}
	return "### " + m[2]
}

// --- pass 2 ---

// listScanner carries the pass-2 state across lines.
type listScanner struct {
	out    []string
	inList bool
	blanks int
}

func groupLists(lines []string) []string {
	s := &listScanner{}
	for _, line := range lines {
		for _, part := range splitStageHeading(line) {
			s.scan(part)
		}
	}
	return s.out
}

// splitStageHeading breaks a trailing "Header phrase:" off a sentence.
func splitStageHeading(line string) []string {
	if boldHeaderPattern.MatchString(strings.TrimSpace(line)) {
		return []string{line}
	}
	m := stageHeadingPattern.FindStringSubmatch(line)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return []string{line}
	}
	return []string{m[1] + m[2] + m[3], m[4] + ":"}
}

func (s *listScanner) scan(line string) {
	t := strings.TrimSpace(line)

	if s.inList && (rulePattern.MatchString(t) || isSectionHeading(t)) {
		s.closeList()
	}

	if s.inList {
		if t == "" {
			s.blanks++
			if s.blanks >= closingBlankRun {
				s.closeList()
				s.out = append(s.out, "---")
			}
			return
		}
		s.blanks = 0
		switch {
		case isHeaderLike(t):
			s.emitHeader(t)
		case bulletPrefixPattern.MatchString(t):
			s.out = append(s.out, normalizeBulletMarker(t))
		default:
			if m := atxHeadingPattern.FindStringSubmatch(t); m != nil {
				t = m[2]
			}
			s.out = append(s.out, "- "+t)
		}
		return
	}

	if isHeaderLike(t) {
		s.emitHeader(t)
		s.inList = true
		s.blanks = 0
		return
	}
	s.out = append(s.out, t)
}

func (s *listScanner) closeList() {
	s.inList = false
	s.blanks = 0
}

func (s *listScanner) emitHeader(t string) {
	s.out = append(s.out, headerLine(t), "")
}

// isHeaderLike reports whether a line introduces a list ("Top channels:").
// Label lines end in a colon too but never open a list.
func isHeaderLike(t string) bool {
	if !strings.HasSuffix(t, ":") && !strings.HasSuffix(t, ":**") {
		return false
	}
	return !isLabelLine(bulletPrefixPattern.ReplaceAllString(t, ""))
}

// headerLine renders a header-like line as "**Text**:".
func headerLine(t string) string {
	text := strings.TrimSpace(t)
	for _, prefix := range []string{"- ", "* ", "• "} {
		text = strings.TrimPrefix(text, prefix)
	}
	if m := atxHeadingPattern.FindStringSubmatch(text); m != nil {
		text = m[2]
	}
	// The whole header is bold, so inner emphasis markers are dropped.
	text = strings.ReplaceAll(text, "**", "")
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ":"))
	if text == "" {
		return strings.TrimSpace(t)
	}
	return "**" + text + "**:"
}

func isSectionHeading(t string) bool {
	m := atxHeadingPattern.FindStringSubmatch(t)
	return m != nil && len(m[1]) <= 2
}

func isListItem(t string) bool {
	return bulletPrefixPattern.MatchString(t)
}

// --- pass 3 ---

func splitLabels(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		for _, part := range splitGluedLabels(line) {
			if label, ok := InlineLabel(part); ok {
				part = label
			}
			out = append(out, part)
		}
	}
	return out
}

// blockKind classifies a non-blank line for layout.
type blockKind int

const (
	kindNone blockKind = iota
	kindText
	kindItem
	kindHeading
	kindLabel
	kindHeader
	kindRule
)

func kindOf(t string) blockKind {
	switch {
	case rulePattern.MatchString(t):
		return kindRule
	case atxHeadingPattern.MatchString(t):
		return kindHeading
	case isListItem(t):
		return kindItem
	case isLabelLine(t):
		return kindLabel
	case boldHeaderPattern.MatchString(t):
		return kindHeader
	}
	return kindText
}

// layout separates blocks with exactly one blank line. Adjacent list items and
// adjacent prose lines stay together unless the input already broke them apart.
// Thematic breaks survive only where they end a list block.
func layout(lines []string) []string {
	out := make([]string, 0, len(lines))
	prev := kindNone
	gap := false
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			gap = true
			continue
		}
		k := kindOf(t)
		if k == kindRule && dropRule(prev, nextLine(lines, i)) {
			continue
		}
		if prev != kindNone && (gap || k != prev || (k != kindText && k != kindItem)) {
			out = append(out, "")
		}
		out = append(out, t)
		prev, gap = k, false
	}
	return out
}

// dropRule reports whether a thematic break carries no structure: it sits at a
// document edge, next to another break or right beside a heading.
func dropRule(prev blockKind, next string) bool {
	if prev == kindNone || prev == kindRule || prev == kindHeading {
		return true
	}
	return next == "" || rulePattern.MatchString(next) || isSectionHeading(next)
}

// nextLine returns the next non-blank line after index i.
func nextLine(lines []string, i int) string {
	for _, l := range lines[i+1:] {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}
