package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	errx "github.com/tickertalk/server/internal/core/error"
	"github.com/tickertalk/server/internal/testutil"
)

type stubSpecialist struct {
	name string
	out  string
	err  error
	got  specialists.Request
}

func (s *stubSpecialist) Name() string { return s.name }

func (s *stubSpecialist) Run(_ context.Context, req specialists.Request, _ ...compose.Option) (string, error) {
	s.got = req
	return s.out, s.err
}

func newStubs() (*stubSpecialist, *stubSpecialist) {
	return &stubSpecialist{name: specialists.NamePrice, out: "AAPL on 2025-06-16\nclose: 196.45"},
		&stubSpecialist{name: specialists.NameNews, out: "headlines"}
}

func TestDispatcher_AppliesResults(t *testing.T) {
	price, news := newStubs()
	d, err := NewDispatcher(price, news, specialists.FallbackSpecialist{}, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	s, err := d.Dispatch(ctx, model.RouteSQL, model.TurnState{NeedSQL: true, NeedNews: true})
	require.NoError(t, err)
	assert.True(t, s.SQLDone)
	assert.False(t, s.NewsDone)
	assert.Equal(t, price.out, s.SQLResult)

	s, err = d.Dispatch(ctx, model.RouteNews, s)
	require.NoError(t, err)
	assert.True(t, s.NewsDone)
	assert.Equal(t, "headlines", s.NewsResult)

	s, err = d.Dispatch(ctx, model.RouteFallback, model.TurnState{})
	require.NoError(t, err)
	assert.True(t, s.SQLDone && s.NewsDone)
	assert.Equal(t, specialists.FallbackText, s.SQLResult)
}

func TestDispatcher_RecordsFailure(t *testing.T) {
	price, news := newStubs()
	price.err = errx.QueryRejected("table users")
	d, err := NewDispatcher(price, news, specialists.FallbackSpecialist{}, time.Second)
	require.NoError(t, err)

	s, err := d.Dispatch(context.Background(), model.RouteSQL, model.TurnState{NeedSQL: true})
	require.Error(t, err)
	assert.Equal(t, "SQL agent error: generated query was rejected", s.Error)
	assert.False(t, s.SQLDone)
	assert.Empty(t, s.SQLResult)
}

func TestDispatcher_UnknownRoute(t *testing.T) {
	price, news := newStubs()
	d, err := NewDispatcher(price, news, specialists.FallbackSpecialist{}, 0)
	require.NoError(t, err)

	s, err := d.Dispatch(context.Background(), model.RouteSynth, model.TurnState{})
	require.Error(t, err)
	assert.Equal(t, "router error: internal error", s.Error)
}

func TestNewDispatcher_RequiresAll(t *testing.T) {
	price, _ := newStubs()
	_, err := NewDispatcher(price, nil, specialists.FallbackSpecialist{}, 0)
	require.Error(t, err)
}

func TestRequestFor(t *testing.T) {
	state := model.TurnState{
		Query:      "news for that day and open on 6/12/25",
		LastTicker: "TSLA",
		LastDate:   "2025-06-10",
	}
	req := RequestFor(state)
	assert.Equal(t, "news for 2025-06-10 and open on 2025-06-12", req.Query)
	assert.Equal(t, "TSLA", req.Ticker)
	assert.Equal(t, "2025-06-10", req.Date, "first date in the resolved question")

	req = RequestFor(model.TurnState{Query: "TSLA close", LastDate: "2025-06-10"})
	assert.Equal(t, "2025-06-10", req.Date, "sticky date when the question has none")
}

func TestCommit(t *testing.T) {
	prior := []*schema.Message{schema.UserMessage("q0"), schema.AssistantMessage("a0", nil)}
	state := model.TurnState{
		Query:       "close on 06/13/2025?",
		ChatHistory: prior[:2:2],
		LastDate:    "2025-06-10",
		NeedSQL:     true,
		SQLDone:     true,
	}

	got := Commit(state, "answer")

	require.Len(t, got.ChatHistory, 4)
	assert.Equal(t, schema.User, got.ChatHistory[2].Role)
	assert.Equal(t, "close on 06/13/2025?", got.ChatHistory[2].Content)
	assert.Equal(t, schema.Assistant, got.ChatHistory[3].Role)
	assert.Equal(t, "answer", got.ChatHistory[3].Content)
	assert.Equal(t, "2025-06-13", got.LastDate)
	require.NotNil(t, got.LastQuery)
	assert.Equal(t, state.Query, *got.LastQuery)
	assert.True(t, got.SQLDone && got.NewsDone)
	assert.Len(t, state.ChatHistory, 2, "input history untouched")

	kept := Commit(model.TurnState{Query: "no date", LastDate: "2025-06-10"}, "x")
	assert.Equal(t, "2025-06-10", kept.LastDate)
}

func TestSynthesizer_Paths(t *testing.T) {
	ctx := context.Background()
	cm := testutil.Fixed("  merged answer  ")
	s, err := NewSynthesizer(ctx, cm, 2, time.Second)
	require.NoError(t, err)

	t.Run("error uses apology", func(t *testing.T) {
		out, err := s.Synthesize(ctx, model.TurnState{Query: "q", NeedSQL: true, Error: "SQL agent error: internal error"})
		require.NoError(t, err)
		assert.Equal(t, Apology("SQL agent error: internal error"), out.Answer)
	})

	t.Run("fallback verbatim", func(t *testing.T) {
		out, err := s.Synthesize(ctx, model.TurnState{Query: "weather", SQLResult: "redirect", SQLDone: true, NewsDone: true})
		require.NoError(t, err)
		assert.Equal(t, "redirect", out.Answer)
	})

	t.Run("merge with placeholders and window", func(t *testing.T) {
		history := []*schema.Message{
			schema.UserMessage("old q"), schema.AssistantMessage("old a", nil),
			schema.UserMessage("recent q"), schema.AssistantMessage("recent a", nil),
		}
		out, err := s.Synthesize(ctx, model.TurnState{Query: "TSLA news", NeedNews: true, NewsDone: true, NewsResult: "1. headline", ChatHistory: history})
		require.NoError(t, err)
		assert.Equal(t, "merged answer", out.Answer)

		prompt := cm.LastPrompt()
		require.Len(t, prompt, 4, "system + two windowed history entries + question")
		assert.Equal(t, "recent q", prompt[1].Content)
		assert.Contains(t, prompt[3].Content, "No stock info found.")
		assert.Contains(t, prompt[3].Content, "1. headline")
	})

	t.Run("failure becomes apology", func(t *testing.T) {
		failing, err := NewSynthesizer(ctx, testutil.Failing(errors.New("boom")), 2, time.Second)
		require.NoError(t, err)
		out, err := failing.Synthesize(ctx, model.TurnState{Query: "q", NeedSQL: true, SQLDone: true, SQLResult: "rows"})
		require.Error(t, err)
		assert.Equal(t, "Synthesis error: language model unavailable", out.Error)
		assert.Equal(t, Apology(out.Error), out.Answer)
		assert.Len(t, out.ChatHistory, 2)
	})

	t.Run("empty completion is a failure", func(t *testing.T) {
		empty, err := NewSynthesizer(ctx, testutil.Fixed("   "), 2, time.Second)
		require.NoError(t, err)
		out, err := empty.Synthesize(ctx, model.TurnState{Query: "q", NeedSQL: true, SQLDone: true, SQLResult: "rows"})
		require.Error(t, err)
		assert.NotEmpty(t, out.Error)
	})
}
