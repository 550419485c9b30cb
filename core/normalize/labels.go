// Package normalize — inline label vocabulary.
// Inline labels are short field names ("Who", "Triggers") that must render as a
// bold lead-in inside a paragraph, never as a heading.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// inlineLabels maps lower-cased label spellings to their display form.
var inlineLabels = map[string]string{
	"who":                              "Who",
	"jtbd":                             "JTBD",
	"triggers":                         "Triggers",
	"barriers":                         "Barriers",
	"barriers/objections":              "Barriers/objections",
	"decision criteria":                "Decision criteria",
	"alternatives":                     "Alternatives",
	"where to reach":                   "Where to reach",
	"value/ability to pay signals":     "Value/ability to pay signals",
	"value & ability to pay signals":   "Value/ability to pay signals",
	"value and ability to pay signals": "Value/ability to pay signals",
}

var (
	// labelLinePattern matches "Who: x", "**Who:** x" and "**Who**: x",
	// optionally behind ATX hashes.
	// Groups: 1 opening bold, 2 label, 3 bold before colon, 4 bold after colon, 5 rest.
	labelLinePattern = regexp.MustCompile(
		`(?i)^\s*(?:#{1,6}\s+)?(\*\*)?(` + labelAlternation(labelKeys()) + `)(\*\*)?\s*:(\*\*)?[ \t]*(.*)$`)

	// headingLabelPattern is the narrower form used right before export:
	// only heading-shaped labels ("### Triggers: ...").
	headingLabelPattern = regexp.MustCompile(
		`(?i)^\s*#{1,6}\s+(?:\*\*)?(` + labelAlternation(labelKeys()) + `)(?:\*\*)?\s*:`)

	// gluedLabelPattern finds a label glued after other text on the same line.
	// The label is matched in display form only, case-sensitively, so ordinary
	// prose ("people who: ...") is left alone.
	gluedLabelPattern = regexp.MustCompile(
		`[ \t]+(?:\*\*(` + displayAlternation() + `):\*\*|\*\*(` + displayAlternation() + `)\*\*:|(` +
			displayAlternation() + `):)[ \t]+`)
)

// labelKeys returns the vocabulary keys, longest first, so that
// "barriers/objections" wins over "barriers".
func labelKeys() []string {
	keys := make([]string, 0, len(inlineLabels))
	for k := range inlineLabels {
		keys = append(keys, k)
	}
	sortLongestFirst(keys)
	return keys
}

// displayForms returns every spelling a label may take mid-paragraph:
// the canonical display form and the capitalized key.
func displayForms() []string {
	seen := make(map[string]bool)
	var forms []string
	for key, display := range inlineLabels {
		for _, f := range []string{display, strings.ToUpper(key[:1]) + key[1:]} {
			if !seen[f] {
				seen[f] = true
				forms = append(forms, f)
			}
		}
	}
	sortLongestFirst(forms)
	return forms
}

func displayAlternation() string {
	return labelAlternation(displayForms())
}

func labelAlternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

func sortLongestFirst(words []string) {
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
}

// InlineLabel rewrites a label line into its canonical bold lead-in:
// "**Label:** rest", or "**Label**:" when nothing follows the colon.
// It reports false when the line does not start with a known label.
func InlineLabel(line string) (string, bool) {
	m := labelLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	canonical, ok := inlineLabels[strings.ToLower(m[2])]
	if !ok {
		canonical = m[2]
	}

	rest := strings.TrimSpace(m[5])
	// "**Who: busy parents**" closes the bold at the end of the line.
	if m[1] != "" && m[3] == "" && m[4] == "" {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "**"))
	}

	if rest == "" {
		return "**" + canonical + "**:", true
	}
	return "**" + canonical + ":** " + rest, true
}

// isLabelLine reports whether the line starts with a known inline label.
func isLabelLine(line string) bool {
	return labelLinePattern.MatchString(line)
}

// LabelHeadings rewrites heading-shaped inline labels ("### Triggers: ...")
// into bold lead-ins and leaves every other line untouched. The export path runs
// it right before Markdown-to-HTML conversion: an oversized heading in a printed
// document is a worse failure than a missed label.
func LabelHeadings(markdown string) string {
	lines := strings.Split(normalizeLineBreaks(markdown), "\n")
	for i, line := range lines {
		if !headingLabelPattern.MatchString(line) {
			continue
		}
		if label, ok := InlineLabel(line); ok {
			lines[i] = label
		}
	}
	return strings.Join(lines, "\n")
}

// splitGluedLabels moves labels glued to the end of a sentence onto their own
// paragraph: "Prior sentence. Who: busy parents" becomes
// ["Prior sentence.", "", "Who: busy parents"].
// List items and bold header lines are never split.
func splitGluedLabels(line string) []string {
	if isListItem(line) || boldHeaderPattern.MatchString(line) {
		return []string{line}
	}
	matches := gluedLabelPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return []string{line}
	}

	var parts []string
	var cur strings.Builder
	pos := 0
	for _, m := range matches {
		before := line[pos:m[0]]
		if cur.Len() == 0 && strings.TrimSpace(before) == "" {
			// The label already leads the line.
			continue
		}
		cur.WriteString(before)
		parts = append(parts, strings.TrimSpace(cur.String()), "")
		cur.Reset()
		cur.WriteString(matchedLabel(line, m) + ": ")
		pos = m[1]
	}
	if len(parts) == 0 {
		return []string{line}
	}
	cur.WriteString(line[pos:])
	return append(parts, strings.TrimSpace(cur.String()))
}

// matchedLabel returns whichever of the three label groups matched.
func matchedLabel(line string, m []int) string {
	for g := 1; g <= 3; g++ {
		if m[2*g] >= 0 {
			return line[m[2*g]:m[2*g+1]]
		}
	}
	return ""
}
