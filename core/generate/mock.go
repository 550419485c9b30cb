package generate

import (
	"context"
	"strings"

	"github.com/gaurav-prasanna/gtmkit/core"
)

// MockCompleter returns a canned plan without calling a provider.
// It is meant for local runs of the CLI and server.
type MockCompleter struct{}

func (MockCompleter) Name() string  { return "mock" }
func (MockCompleter) Model() string { return "mock" }

func (MockCompleter) Complete(_ context.Context, req core.CompletionRequest) (*core.Completion, error) {
	var sb strings.Builder
	sb.WriteString("1) Positioning\n")
	sb.WriteString("Who: small teams who need a plan this week\n")
	sb.WriteString("JTBD: turn a rough idea into a first launch\n")
	sb.WriteString("Triggers: a new product, a new market\n")
	sb.WriteString("2) Channel strategy\n")
	sb.WriteString("Top starter channels:\n")
	sb.WriteString("* Founder-led outreach\n")
	sb.WriteString("* Niche communities\n")
	sb.WriteString("* Search content\n")
	sb.WriteString("3) Input received\n")
	sb.WriteString(firstLine(req.Input))
	sb.WriteString("\n")
	return &core.Completion{Text: sb.String(), FinishReason: "stop", ResponseID: "mock"}, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
