// Package ingest converts HTML-formatted model output into Markdown.
// Models occasionally answer in HTML even when asked for Markdown; such output
// is stripped of page noise and converted before normalization:
//  1. Removing noise elements (scripts, styles, media, forms)
//  2. Finding the best content container (<main>, <article>, or <body>)
//  3. Converting the container to Markdown
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are HTML elements removed before conversion.
// These contribute no meaningful text to a plan.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	"nav",
}

var htmlStart = regexp.MustCompile(`(?is)^\s*(?:<!doctype\s+html|<html[\s>]|<body[\s>]|<(?:h[1-6]|p|ul|ol|div|section|article|main|table)[\s>])`)

// LooksLikeHTML reports whether raw model output is an HTML document or
// fragment rather than Markdown.
func LooksLikeHTML(raw string) bool {
	return htmlStart.MatchString(raw)
}

// HTMLIngester converts HTML into Markdown.
type HTMLIngester struct{}

// New creates an HTMLIngester.
func New() *HTMLIngester {
	return &HTMLIngester{}
}

// Extract removes noise and returns the main content as an HTML fragment.
func (i *HTMLIngester) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("no content container found in HTML")
	}

	result, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}
	return result, nil
}

// ToMarkdown extracts the content of an HTML document and converts it to Markdown.
func (i *HTMLIngester) ToMarkdown(html string) (string, error) {
	fragment, err := i.Extract(html)
	if err != nil {
		return "", err
	}
	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}

// Prepare returns raw unchanged when it is Markdown and converts it when it
// is HTML.
func (i *HTMLIngester) Prepare(raw string) (string, error) {
	if !LooksLikeHTML(raw) {
		return raw, nil
	}
	return i.ToMarkdown(raw)
}
