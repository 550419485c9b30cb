package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Paragraph classes that replace demoted headings.
const (
	ClassH2 = "h2"
	ClassH3 = "h3"
)

// DemoteHeadings rewrites <h1>/<h2> as <p class="h2"> and <h3>–<h6> as
// <p class="h3">. Heading attributes are dropped and inner content is kept.
// Word processors and print engines apply their own oversized defaults to real
// headings; styled paragraphs keep the document's own point scale.
func DemoteHeadings(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parsing HTML fragment: %w", err)
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			class := ClassH3
			if n.DataAtom == atom.H1 || n.DataAtom == atom.H2 {
				class = ClassH2
			}
			n.Data = "p"
			n.DataAtom = atom.P
			n.Attr = []html.Attribute{{Key: "class", Val: class}}
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML fragment: %w", err)
	}
	return out, nil
}
