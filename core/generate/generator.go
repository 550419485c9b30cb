// Package generate runs the plan generation workflow: one completion call,
// continuation calls while the provider reports truncation, and the result
// record written to the store chunk by chunk.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/core"
)

// Defaults for Limits.
const (
	DefaultMaxOutputTokens  = 8000
	DefaultMaxContinuations = 4
	DefaultTailChars        = 1000
)

var (
	// ErrGenerating is returned when a result exists but is not frozen yet.
	ErrGenerating = errors.New("generation in progress")
	// ErrEmptyCompletion is returned when the provider answers with no text.
	ErrEmptyCompletion = errors.New("completion returned empty output")
	// ErrInvalidOrder is returned for a request without an order id.
	ErrInvalidOrder = errors.New("invalid order id")
)

// Limits bound a single generation run.
type Limits struct {
	MaxOutputTokens  int
	MaxContinuations int
	TailChars        int
}

// DefaultLimits returns the limits used in production.
func DefaultLimits() Limits {
	return Limits{
		MaxOutputTokens:  DefaultMaxOutputTokens,
		MaxContinuations: DefaultMaxContinuations,
		TailChars:        DefaultTailChars,
	}
}

// Request is one order's generation input.
type Request struct {
	OrderID     string          `json:"orderId"`
	CountryCode string          `json:"countryCode"`
	Brief       json.RawMessage `json:"brief"`
}

// Generator produces results with a completer and persists them.
type Generator struct {
	completer core.Completer
	store     core.ResultStore
	limits    Limits
	logger    *zap.Logger
}

// New creates a Generator. Zero fields in limits take their defaults.
func New(completer core.Completer, store core.ResultStore, limits Limits, logger *zap.Logger) *Generator {
	def := DefaultLimits()
	if limits.MaxOutputTokens <= 0 {
		limits.MaxOutputTokens = def.MaxOutputTokens
	}
	if limits.MaxContinuations < 0 {
		limits.MaxContinuations = def.MaxContinuations
	}
	if limits.TailChars <= 0 {
		limits.TailChars = def.TailChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{completer: completer, store: store, limits: limits, logger: logger}
}

// Generate returns the frozen result for req.OrderID, generating it first
// when none exists. A result that exists but is still open yields ErrGenerating.
func (g *Generator) Generate(ctx context.Context, req Request) (*core.Result, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, ErrInvalidOrder
	}
	log := g.logger.With(zap.String("orderId", orderID))

	if existing, err := g.existing(ctx, orderID); existing != nil || err != nil {
		return existing, err
	}

	first, err := g.complete(ctx, core.CompletionRequest{
		Instructions:    Instructions(),
		Input:           Input(orderID, req.CountryCode, req.Brief),
		MaxOutputTokens: g.limits.MaxOutputTokens,
		Metadata: map[string]string{
			"orderId":       orderID,
			"promptKey":     PromptKey,
			"promptVersion": strconv.Itoa(PromptVersion),
		},
	})
	if err != nil {
		return nil, err
	}

	result := &core.Result{
		OrderID:      orderID,
		RawText:      first.Text,
		Title:        core.DefaultTitle,
		Model:        g.completer.Model(),
		Provider:     g.completer.Name(),
		FinishReason: first.FinishReason,
		Chunks:       1,
	}
	if err := g.store.Create(ctx, result); err != nil {
		if errors.Is(err, core.ErrResultExists) {
			// Lost a race with a concurrent run for the same order.
			if r, err := g.existing(ctx, orderID); r != nil || err != nil {
				return r, err
			}
			return nil, ErrGenerating
		}
		return nil, fmt.Errorf("creating result: %w", err)
	}
	log.Info("result created", zap.String("resultId", result.ID), zap.String("finishReason", first.FinishReason))

	// The row must end frozen even when the caller goes away mid-run.
	detached := context.WithoutCancel(ctx)

	assembled := first.Text
	last := first
	for attempt := 1; last.Truncated && attempt <= g.limits.MaxContinuations; attempt++ {
		next, err := g.complete(ctx, core.CompletionRequest{
			Instructions:    continuationInstructions,
			Input:           ContinuationInput(assembled, g.limits.TailChars),
			MaxOutputTokens: g.limits.MaxOutputTokens,
			Metadata: map[string]string{
				"orderId":      orderID,
				"continuation": strconv.Itoa(attempt),
			},
		})
		if err != nil {
			g.abandon(detached, log, orderID)
			return nil, fmt.Errorf("continuation %d: %w", attempt, err)
		}
		if err := g.store.AppendRaw(ctx, orderID, "\n"+next.Text); err != nil {
			g.abandon(detached, log, orderID)
			return nil, fmt.Errorf("appending continuation %d: %w", attempt, err)
		}
		assembled += "\n" + next.Text
		last = next
		log.Debug("continuation appended", zap.Int("attempt", attempt), zap.String("finishReason", next.FinishReason))
	}

	if err := g.store.Freeze(detached, orderID, last.FinishReason); err != nil {
		return nil, fmt.Errorf("freezing result: %w", err)
	}
	log.Info("result ready", zap.Int("chars", len(assembled)), zap.String("finishReason", last.FinishReason))
	return g.store.Get(detached, orderID)
}

// existing returns a frozen result, ErrGenerating for an open one, and
// (nil, nil) when the order has no result yet.
func (g *Generator) existing(ctx context.Context, orderID string) (*core.Result, error) {
	r, err := g.store.Get(ctx, orderID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !r.Frozen {
		return nil, ErrGenerating
	}
	return r, nil
}

// complete calls the completer and trims the chunk. Empty text is an error.
func (g *Generator) complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	c, err := g.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", g.completer.Name(), err)
	}
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return nil, ErrEmptyCompletion
	}
	return c, nil
}

// abandon freezes a result whose continuation failed so the order does not
// stay in progress forever. The partial text is kept.
func (g *Generator) abandon(ctx context.Context, log *zap.Logger, orderID string) {
	if err := g.store.Freeze(ctx, orderID, "error"); err != nil {
		log.Warn("freezing abandoned result", zap.Error(err))
	}
}
