// Package core defines the export pipeline interfaces for gtmkit.
// Each stage of the pipeline is a clean, testable interface:
// raw completion → Normalizer → canonical Markdown → Renderer → bytes.
package core

import (
	"context"
	"errors"
	"time"
)

// DefaultTitle is the fixed display title used in export document headers.
const DefaultTitle = "Go-to-market plan"

var (
	// ErrNotFound is returned when no result exists for an order.
	ErrNotFound = errors.New("result not found")
	// ErrFrozen is returned when appending to a result whose generation finished.
	ErrFrozen = errors.New("result is frozen")
	// ErrResultExists is returned when a result was already created for an order.
	ErrResultExists = errors.New("result already exists")
	// ErrUnsupportedFormat is returned for an export format with no renderer.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Result is the generated result for one order.
// RawText is append-only while generating and immutable once Frozen.
type Result struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	RawText      string    `json:"raw_text"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	FinishReason string    `json:"finish_reason"`
	Chunks       int       `json:"chunks"`
	Frozen       bool      `json:"frozen"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentMeta carries the document-level fields a renderer needs.
type DocumentMeta struct {
	Title   string `json:"title"`
	OrderID string `json:"order_id,omitempty"`
}

// Section represents a heading-delimited section of a plan.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// Heading represents a single heading found in the plan.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// PlanStructure holds structural counts parsed from canonical Markdown.
type PlanStructure struct {
	Headings   []Heading `json:"headings"`
	Labels     int       `json:"labels"`
	ListItems  int       `json:"list_items"`
	ListBlocks int       `json:"list_blocks"`
}

// PlanJSON is the complete JSON export of a plan.
type PlanJSON struct {
	Title     string        `json:"title"`
	OrderID   string        `json:"order_id,omitempty"`
	Format    string        `json:"format"`
	Content   string        `json:"content"`
	Sections  []Section     `json:"sections"`
	Structure PlanStructure `json:"structure"`
}

// Normalizer reshapes raw model output into canonical Markdown.
// It is total: every input produces Markdown, none produces an error.
type Normalizer interface {
	Normalize(raw string) string
}

// Renderer converts canonical Markdown (and metadata) into a final output format.
type Renderer interface {
	Render(ctx context.Context, markdown string, meta DocumentMeta) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".txt", ".pdf").
	Extension() string
	// ContentType returns the MIME type served for this renderer's output.
	ContentType() string
}

// CompletionRequest is a single call to a text-completion provider.
type CompletionRequest struct {
	Instructions    string
	Input           string
	MaxOutputTokens int
	Metadata        map[string]string
}

// Completion is the provider's answer to a CompletionRequest.
type Completion struct {
	Text         string
	FinishReason string
	ResponseID   string
	// Truncated reports that the provider stopped at the output token limit.
	Truncated bool
}

// Completer calls a text-completion provider.
type Completer interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ResultStore persists generated results.
type ResultStore interface {
	Create(ctx context.Context, r *Result) error
	Get(ctx context.Context, orderID string) (*Result, error)
	AppendRaw(ctx context.Context, orderID string, chunk string) error
	Freeze(ctx context.Context, orderID string, finishReason string) error
}
