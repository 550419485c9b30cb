package generate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gotest.tools/assert"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/store"
)

// scriptedCompleter answers each call with the next scripted completion.
type scriptedCompleter struct {
	replies  []core.Completion
	err      error
	failAt   int
	requests []core.CompletionRequest
	// onCall runs before call n is answered.
	onCall func(n int)
}

func (s *scriptedCompleter) Name() string  { return "scripted" }
func (s *scriptedCompleter) Model() string { return "test-model" }

func (s *scriptedCompleter) Complete(_ context.Context, req core.CompletionRequest) (*core.Completion, error) {
	s.requests = append(s.requests, req)
	n := len(s.requests)
	if s.onCall != nil {
		s.onCall(n)
	}
	if s.err != nil && n == s.failAt {
		return nil, s.err
	}
	if n > len(s.replies) {
		return nil, errors.New("no scripted reply")
	}
	c := s.replies[n-1]
	return &c, nil
}

func setupTest(t *testing.T) *store.Store {
	s, err := store.OpenMemory()
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func truncated(text string) core.Completion {
	return core.Completion{Text: text, FinishReason: "length", Truncated: true}
}

func stopped(text string) core.Completion {
	return core.Completion{Text: text, FinishReason: "stop"}
}

func TestGenerateSingleChunk(t *testing.T) {
	st := setupTest(t)
	c := &scriptedCompleter{replies: []core.Completion{stopped("  1) Positioning\nWho: parents \n")}}
	g := New(c, st, DefaultLimits(), nil)

	r, err := g.Generate(context.Background(), Request{OrderID: " ord_1 ", CountryCode: "DE", Brief: json.RawMessage(`{"goal":"launch","budget":"5k"}`)})
	assert.NilError(t, err)
	assert.Equal(t, r.OrderID, "ord_1")
	assert.Equal(t, r.RawText, "1) Positioning\nWho: parents")
	assert.Assert(t, r.Frozen)
	assert.Equal(t, r.FinishReason, "stop")
	assert.Equal(t, r.Chunks, 1)
	assert.Equal(t, r.Model, "test-model")
	assert.Equal(t, r.Provider, "scripted")
	assert.Equal(t, r.Title, core.DefaultTitle)

	assert.Equal(t, len(c.requests), 1)
	req := c.requests[0]
	assert.Equal(t, req.Instructions, Instructions())
	assert.Equal(t, req.MaxOutputTokens, DefaultMaxOutputTokens)
	assert.Assert(t, strings.Contains(req.Input, "Order ID: ord_1"))
	assert.Assert(t, strings.Contains(req.Input, "Country code: DE"))
	assert.Assert(t, strings.Contains(req.Input, "Goal: launch"))
	assert.Assert(t, strings.Contains(req.Input, "Budget: 5k"))
}

func TestGenerateStitchesContinuations(t *testing.T) {
	st := setupTest(t)
	c := &scriptedCompleter{replies: []core.Completion{
		truncated("part one"),
		truncated("part two"),
		stopped("part three"),
	}}
	g := New(c, st, DefaultLimits(), nil)

	r, err := g.Generate(context.Background(), Request{OrderID: "ord_1"})
	assert.NilError(t, err)
	assert.Equal(t, r.RawText, "part one\npart two\npart three")
	assert.Equal(t, r.Chunks, 3)
	assert.Equal(t, r.FinishReason, "stop")
	assert.Assert(t, r.Frozen)

	assert.Equal(t, len(c.requests), 3)
	assert.Equal(t, c.requests[1].Instructions, continuationInstructions)
	assert.Equal(t, c.requests[1].Input, "Previous text tail:\npart one")
	assert.Equal(t, c.requests[2].Input, "Previous text tail:\npart one\npart two")
	assert.Equal(t, c.requests[2].Metadata["continuation"], "2")
}

func TestGenerateStopsAfterMaxContinuations(t *testing.T) {
	st := setupTest(t)
	var replies []core.Completion
	for i := 0; i < 10; i++ {
		replies = append(replies, truncated("chunk"))
	}
	c := &scriptedCompleter{replies: replies}
	g := New(c, st, DefaultLimits(), nil)

	r, err := g.Generate(context.Background(), Request{OrderID: "ord_1"})
	assert.NilError(t, err)
	assert.Equal(t, len(c.requests), 1+DefaultMaxContinuations)
	assert.Equal(t, r.Chunks, 1+DefaultMaxContinuations)
	assert.Equal(t, r.FinishReason, "length")
}

func TestGenerateTailIsBounded(t *testing.T) {
	st := setupTest(t)
	long := strings.Repeat("a", 1500) + strings.Repeat("b", 10)
	c := &scriptedCompleter{replies: []core.Completion{truncated(long), stopped("end")}}
	g := New(c, st, Limits{MaxContinuations: 1, TailChars: 20}, nil)

	_, err := g.Generate(context.Background(), Request{OrderID: "ord_1"})
	assert.NilError(t, err)
	assert.Equal(t, c.requests[1].Input, "Previous text tail:\n"+strings.Repeat("a", 10)+strings.Repeat("b", 10))
}

func TestGenerateReturnsFrozenResultUnchanged(t *testing.T) {
	st := setupTest(t)
	ctx := context.Background()
	assert.NilError(t, st.Create(ctx, &core.Result{OrderID: "ord_1", RawText: "done"}))
	assert.NilError(t, st.Freeze(ctx, "ord_1", "stop"))

	c := &scriptedCompleter{}
	r, err := New(c, st, DefaultLimits(), nil).Generate(ctx, Request{OrderID: "ord_1"})
	assert.NilError(t, err)
	assert.Equal(t, r.RawText, "done")
	assert.Equal(t, len(c.requests), 0)
}

func TestGenerateInProgress(t *testing.T) {
	st := setupTest(t)
	ctx := context.Background()
	assert.NilError(t, st.Create(ctx, &core.Result{OrderID: "ord_1", RawText: "partial"}))

	_, err := New(&scriptedCompleter{}, st, DefaultLimits(), nil).Generate(ctx, Request{OrderID: "ord_1"})
	assert.Assert(t, errors.Is(err, ErrGenerating))
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing order", func(t *testing.T) {
		_, err := New(&scriptedCompleter{}, setupTest(t), DefaultLimits(), nil).Generate(ctx, Request{OrderID: "  "})
		assert.Assert(t, errors.Is(err, ErrInvalidOrder))
	})

	t.Run("empty first chunk", func(t *testing.T) {
		st := setupTest(t)
		c := &scriptedCompleter{replies: []core.Completion{stopped("   ")}}
		_, err := New(c, st, DefaultLimits(), nil).Generate(ctx, Request{OrderID: "ord_1"})
		assert.Assert(t, errors.Is(err, ErrEmptyCompletion))
		_, err = st.Get(ctx, "ord_1")
		assert.Assert(t, errors.Is(err, core.ErrNotFound))
	})

	t.Run("provider failure", func(t *testing.T) {
		providerErr := errors.New("boom")
		c := &scriptedCompleter{err: providerErr, failAt: 1}
		_, err := New(c, setupTest(t), DefaultLimits(), nil).Generate(ctx, Request{OrderID: "ord_1"})
		assert.Assert(t, errors.Is(err, providerErr))
	})

	t.Run("continuation failure freezes partial text", func(t *testing.T) {
		st := setupTest(t)
		providerErr := errors.New("boom")
		c := &scriptedCompleter{replies: []core.Completion{truncated("part one")}, err: providerErr, failAt: 2}
		_, err := New(c, st, DefaultLimits(), nil).Generate(ctx, Request{OrderID: "ord_1"})
		assert.Assert(t, errors.Is(err, providerErr))

		r, err := st.Get(ctx, "ord_1")
		assert.NilError(t, err)
		assert.Assert(t, r.Frozen)
		assert.Equal(t, r.FinishReason, "error")
		assert.Equal(t, r.RawText, "part one")
	})
}

func TestGenerateCancelledDuringContinuation(t *testing.T) {
	tests := []struct {
		name    string
		failErr bool
	}{
		{name: "completer reports cancellation", failErr: true},
		{name: "append sees cancelled context"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := setupTest(t)
			ctx, cancel := context.WithCancel(context.Background())
			t.Cleanup(cancel)

			c := &scriptedCompleter{replies: []core.Completion{truncated("part one"), stopped("part two")}}
			c.onCall = func(n int) {
				if n == 2 {
					cancel()
				}
			}
			if tc.failErr {
				c.err, c.failAt = context.Canceled, 2
			}

			_, err := New(c, st, DefaultLimits(), nil).Generate(ctx, Request{OrderID: "ord_1"})
			assert.Assert(t, errors.Is(err, context.Canceled), err)

			r, err := st.Get(context.Background(), "ord_1")
			assert.NilError(t, err)
			assert.Assert(t, r.Frozen)
			assert.Equal(t, r.FinishReason, "error")
			assert.Equal(t, r.RawText, "part one")

			again, err := New(&scriptedCompleter{}, st, DefaultLimits(), nil).Generate(context.Background(), Request{OrderID: "ord_1"})
			assert.NilError(t, err)
			assert.Equal(t, again.ID, r.ID)
		})
	}
}

func TestNewOpenAICompleterRequiresKey(t *testing.T) {
	_, err := NewOpenAICompleter("", "", "")
	assert.Assert(t, errors.Is(err, ErrMissingAPIKey))
}

func TestInputBrief(t *testing.T) {
	in := Input("ord_1", "", json.RawMessage(`"free text brief"`))
	assert.Equal(t, in, "Order ID: ord_1\n\nCountry code: Unknown\n\nBrief fields:\n\nfree text brief")

	in = Input("ord_1", "FR", json.RawMessage(`{"goal":"  ","product":"app"}`))
	assert.Assert(t, !strings.Contains(in, "Goal:"))
	assert.Assert(t, strings.Contains(in, "\"product\": \"app\""), in)

	assert.Assert(t, strings.HasSuffix(Input("ord_1", "FR", nil), "Brief fields:\n\n{}"))
}

func TestMockCompleter(t *testing.T) {
	st := setupTest(t)
	r, err := New(MockCompleter{}, st, DefaultLimits(), nil).Generate(context.Background(), Request{OrderID: "ord_1"})
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(r.RawText, "Who: small teams"))
	assert.Equal(t, r.Provider, "mock")
}
