package generate

import (
	_ "embed"
	"encoding/json"
	"strings"
)

// Prompt identifies the instruction template a result was generated with.
const (
	PromptKey     = "gtm_core"
	PromptVersion = 1
)

//go:embed gtm_core.v1.txt
var instructions string

// Instructions returns the plan-writing instructions sent with the first call.
func Instructions() string {
	return strings.TrimSpace(instructions)
}

const continuationInstructions = "Continue from the exact point you stopped. Do not repeat. Output only the continuation text."

// Input builds the first call's input from the order and its brief.
// Goal and budget are lifted out of an object brief when present.
func Input(orderID, countryCode string, brief json.RawMessage) string {
	country := strings.TrimSpace(countryCode)
	if country == "" {
		country = "Unknown"
	}
	sections := []string{"Order ID: " + orderID, "Country code: " + country}

	fields := briefFields(brief)
	if goal := fields["goal"]; goal != "" {
		sections = append(sections, "Goal: "+goal)
	}
	if budget := fields["budget"]; budget != "" {
		sections = append(sections, "Budget: "+budget)
	}
	sections = append(sections, "Brief fields:", briefText(brief))
	return strings.Join(sections, "\n\n")
}

// ContinuationInput asks the model to pick up after the last tailChars
// characters of what it wrote so far.
func ContinuationInput(assembled string, tailChars int) string {
	return strings.Join([]string{"Previous text tail:", tail(assembled, tailChars)}, "\n")
}

func tail(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// briefText renders the brief for the prompt: a JSON string as its value,
// anything else indented.
func briefText(brief json.RawMessage) string {
	if len(brief) == 0 {
		return "{}"
	}
	var s string
	if err := json.Unmarshal(brief, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(brief, &v); err != nil {
		return string(brief)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(brief)
	}
	return string(out)
}

func briefFields(brief json.RawMessage) map[string]string {
	var obj map[string]any
	if err := json.Unmarshal(brief, &obj); err != nil {
		return nil
	}
	fields := make(map[string]string)
	for k, v := range obj {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			fields[k] = strings.TrimSpace(s)
		}
	}
	return fields
}
