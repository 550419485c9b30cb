package normalize

import (
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestNormalizeEndToEnd(t *testing.T) {
	raw := strings.Join([]string{
		"1) Positioning",
		"Who: busy parents",
		"* messaging angle one",
		"* messaging angle two",
		"---",
		"2) Channels",
	}, "\n")
	want := "## Positioning\n\n**Who:** busy parents\n\n- messaging angle one\n- messaging angle two\n\n## Channels"
	assert.Equal(t, Normalize(raw), want)
}

func TestNormalizeBullets(t *testing.T) {
	for _, in := range []string{"* x", "• x", "– x", "— x", "  * x", "- - x"} {
		assert.Equal(t, Normalize(in), "- x", "input %q", in)
	}
}

func TestNormalizeHeadingClamp(t *testing.T) {
	tests := []struct{ in, want string }{
		{"#### Title", "### Title"},
		{"###### Title", "### Title"},
		{"### Title", "### Title"},
		{"# Title", "## Title"},
		{"## Title ##", "## Title"},
	}
	for _, tt := range tests {
		assert.Equal(t, Normalize(tt.in), tt.want, "input %q", tt.in)
	}
}

func TestNormalizeInlineLabels(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Who: busy parents", "**Who:** busy parents"},
		{"WHO: busy parents", "**Who:** busy parents"},
		{"# Who: busy parents", "**Who:** busy parents"},
		{"### Who: busy parents", "**Who:** busy parents"},
		{"###### Who: busy parents", "**Who:** busy parents"},
		{"**Who**: busy parents", "**Who:** busy parents"},
		{"**Who:** busy parents", "**Who:** busy parents"},
		{"**Who: busy parents**", "**Who:** busy parents"},
		{"jtbd: eat well", "**JTBD:** eat well"},
		{"Barriers/objections: price", "**Barriers/objections:** price"},
		{"Value & ability to pay signals: strong", "**Value/ability to pay signals:** strong"},
		{"value and ability to pay signals: strong", "**Value/ability to pay signals:** strong"},
		{"Decision criteria:", "**Decision criteria**:"},
	}
	for _, tt := range tests {
		assert.Equal(t, Normalize(tt.in), tt.want, "input %q", tt.in)
	}
}

func TestNormalizeNumberedHeader(t *testing.T) {
	assert.Equal(t, Normalize("3) Channel strategy"), "## Channel strategy")
}

func TestNormalizeListBlocks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "header opens block",
			in:   "Top starter channels:\nSEO\n- Paid social\n1. Partnerships",
			want: "**Top starter channels**:\n\n- SEO\n- Paid social\n1. Partnerships",
		},
		{
			name: "bold header",
			in:   "**Top channels:**\nSEO",
			want: "**Top channels**:\n\n- SEO",
		},
		{
			name: "header split from sentence",
			in:   "We start small. Top starter channels:\nSEO",
			want: "We start small.\n\n**Top starter channels**:\n\n- SEO",
		},
		{
			name: "subheading becomes item",
			in:   "Channels:\n### Paid social",
			want: "**Channels**:\n\n- Paid social",
		},
		{
			name: "short blank run keeps block open",
			in:   "Channels:\nSEO\n\nParis",
			want: "**Channels**:\n\n- SEO\n- Paris",
		},
		{
			name: "label does not open block",
			in:   "Who:\nbusy parents",
			want: "**Who**:\n\nbusy parents",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Normalize(tt.in), tt.want)
		})
	}
}

func TestNormalizeListTermination(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		closer string
	}{
		{
			name:   "horizontal rule",
			in:     "Channels:\nSEO\n---\nClosing thoughts.",
			want:   "**Channels**:\n\n- SEO\n\n---\n\nClosing thoughts.",
			closer: "---",
		},
		{
			name:   "numbered header",
			in:     "Channels:\nSEO\n2) Pricing\nWe charge monthly.",
			want:   "**Channels**:\n\n- SEO\n\n## Pricing\n\nWe charge monthly.",
			closer: "## Pricing",
		},
		{
			name:   "three blank lines",
			in:     "Channels:\nSEO\n\n\n\nAfter the list.",
			want:   "**Channels**:\n\n- SEO\n\n---\n\nAfter the list.",
			closer: "---",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, got, tt.want)

			closed := false
			for _, line := range strings.Split(got, "\n") {
				if line == tt.closer {
					closed = true
					continue
				}
				if closed {
					assert.Assert(t, !strings.HasPrefix(line, "- "), "bullet after block closed: %q", line)
				}
			}
			assert.Assert(t, closed)
		})
	}
}

func TestNormalizeGluedLabels(t *testing.T) {
	assert.Equal(t,
		Normalize("Our buyers are parents. Who: busy parents"),
		"Our buyers are parents.\n\n**Who:** busy parents")
	assert.Equal(t,
		Normalize("Who: parents. Triggers: back to school"),
		"**Who:** parents.\n\n**Triggers:** back to school")
	// List items keep their labels inline.
	assert.Equal(t,
		Normalize("Channels:\n- SEO Who: founders"),
		"**Channels**:\n\n- SEO Who: founders")
}

func TestNormalizeLineEndings(t *testing.T) {
	assert.Equal(t, Normalize("## Plan  \r\nText\t\r\n"), "## Plan\n\nText")
	assert.Equal(t, Normalize("## Plan\rText"), "## Plan\n\nText")
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, Normalize(""), "")
	assert.Equal(t, Normalize("\n\n \n"), "")
	assert.Equal(t, Normalize("---"), "")
}

const samplePlan = `# GTM Plan for Acme

1) Positioning
Who: busy parents
JTBD: get dinner on the table fast
Triggers: back to school
**Barriers/objections:** price

2) Channels
Here is where to start. Top starter channels:
* SEO content
* Parent forums — start with local groups
- - Paid social

Budget split:
1. 50% content
2. 30% community


Next steps: launch in two weeks.

### Decision criteria: taste and price
---
3) Metrics`

func TestNormalizeSamplePlan(t *testing.T) {
	want := `## GTM Plan for Acme

## Positioning

**Who:** busy parents

**JTBD:** get dinner on the table fast

**Triggers:** back to school

**Barriers/objections:** price

## Channels

Here is where to start.

**Top starter channels**:

- SEO content
- Parent forums — start with local groups
- Paid social

**Budget split**:

1. 50% content
2. 30% community
- Next steps: launch in two weeks.
- **Decision criteria:** taste and price

## Metrics`
	assert.Equal(t, Normalize(samplePlan), want)
}

func TestNormalizeIdempotent(t *testing.T) {
	corpus := []string{
		"",
		samplePlan,
		"1) Positioning\nWho: busy parents\n* one\n* two\n---\n2) Channels",
		"Channels:\nSEO\n\n\n\nAfter the list.",
		"Channels:\nSEO\n2) Pricing\nWe charge monthly.",
		"Channels:\n**Who**:\nparents",
		"Channels:\n- Who:\n- Triggers: school",
		"**Bold** text:\nitem",
		"Go. Do:\nx",
		"Intro Who: parents:\nnext",
		"## Plan Who: x",
		"text\n---\ntext",
		"## H\n---\n- item",
		"- -\n- - -",
		"Note:\n#### Deep heading\n\n\n\n### Sub:\nthing",
		"“Quoted.” Next phase:\nthing",
		"Triggers:\nWho: parents. Triggers:",
		":\n::\n**:",
		"Plain prose line one\nPlain prose line two\n\n\n\nThird paragraph",
	}
	for _, in := range corpus {
		once := Normalize(in)
		assert.Equal(t, Normalize(once), once, "input %q", in)
	}
}

func TestBlankRunBreakKeepsListClosed(t *testing.T) {
	once := Normalize("Channels:\nSEO\n\n\n\nAfter the list.")
	twice := Normalize(once)
	assert.Equal(t, twice, once)
	assert.Equal(t, strings.Count(twice, "---"), 1)
	assert.Assert(t, !strings.Contains(twice, "- After the list."), twice)
}

func TestLabelHeadings(t *testing.T) {
	in := "## Positioning\n### Triggers: back to school\n#### **JTBD**: eat\nWho: parents"
	want := "## Positioning\n**Triggers:** back to school\n**JTBD:** eat\nWho: parents"
	assert.Equal(t, LabelHeadings(in), want)
}

func TestPlanNormalizerSatisfiesInterface(t *testing.T) {
	n := New()
	assert.Equal(t, n.Normalize("* x"), Normalize("* x"))
}
