// Package render — JSON renderer.
// Builds the structured JSON form of a plan from canonical Markdown.
// Parses the Markdown for structural information (sections, labels, list
// blocks) without inferring any plan-specific fields.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/gtmkit/core"
)

// JSONRenderer produces structured JSON output from Markdown.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render converts Markdown and metadata into a core.PlanJSON document.
func (r *JSONRenderer) Render(_ context.Context, markdown string, meta core.DocumentMeta) ([]byte, error) {
	headings := extractHeadings(markdown)
	plan := core.PlanJSON{
		Title:    titleOrDefault(meta),
		OrderID:  meta.OrderID,
		Format:   "markdown",
		Content:  markdown,
		Sections: buildSections(markdown),
		Structure: core.PlanStructure{
			Headings:   headings,
			Labels:     len(labelRegex.FindAllString(markdown, -1)),
			ListItems:  len(listItemRegex.FindAllString(markdown, -1)),
			ListBlocks: countListBlocks(markdown),
		},
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// ContentType returns the MIME type for JSON output.
func (r *JSONRenderer) ContentType() string {
	return "application/json"
}

// --- Markdown parsing helpers ---

var (
	headingRegex  = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	labelRegex    = regexp.MustCompile(`(?m)^\*\*[^*\n]+:\*\*`)
	listItemRegex = regexp.MustCompile(`(?m)^[ \t]*(?:[-*]|\d+[.)])\s`)
)

func extractHeadings(md string) []core.Heading {
	matches := headingRegex.FindAllStringSubmatch(md, -1)
	headings := make([]core.Heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, core.Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return headings
}

// buildSections splits the plan at headings. Text before the first heading
// is dropped from sections but stays in Content.
func buildSections(md string) []core.Section {
	var sections []core.Section
	var current *core.Section
	var lines []string

	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(lines, "\n"))
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(md, "\n") {
		if m := headingRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = &core.Section{Heading: strings.TrimSpace(m[2]), Level: len(m[1])}
			lines = nil
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return sections
}

// countListBlocks counts runs of consecutive list item lines.
func countListBlocks(md string) int {
	blocks := 0
	inBlock := false
	for _, line := range strings.Split(md, "\n") {
		item := listItemRegex.MatchString(line)
		if item && !inBlock {
			blocks++
		}
		inBlock = item
	}
	return blocks
}
