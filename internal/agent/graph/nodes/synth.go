package nodes

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tickertalk/server/internal/agent/extract"
	"github.com/tickertalk/server/internal/agent/graph/conversations"
	"github.com/tickertalk/server/internal/agent/graph/prompts"
	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

const DefaultHistoryWindow = 20

// Apology renders the fixed answer for a failed turn. detail must already
// be safe to show.
func Apology(detail string) string {
	return fmt.Sprintf("Sorry, I couldn't complete that request (%s). Please try again or rephrase your question.", detail)
}

// Synthesizer writes the final answer and commits memory.
type Synthesizer struct {
	runnable      compose.Runnable[map[string]any, *schema.Message]
	historyWindow int
	timeout       time.Duration
}

func NewSynthesizer(ctx context.Context, cm einomodel.BaseChatModel, historyWindow int, timeout time.Duration) (*Synthesizer, error) {
	if cm == nil {
		return nil, fmt.Errorf("synthesizer: chat model is nil")
	}
	runnable, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(prompts.Synth()).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile synth chain: %w", err)
	}
	if historyWindow < 0 {
		historyWindow = DefaultHistoryWindow
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Synthesizer{runnable: runnable, historyWindow: historyWindow, timeout: timeout}, nil
}

// Synthesize produces the answer for state and commits it. A completion
// failure is recorded like a specialist failure and answered with the apology.
// The returned error is informational; the state is always committed.
func (s *Synthesizer) Synthesize(ctx context.Context, state model.TurnState, opts ...compose.Option) (model.TurnState, error) {
	answer, err := s.answer(ctx, state, opts...)
	if err != nil {
		state.Error = "Synthesis error: " + errx.SafeMessage(err)
		answer = Apology(state.Error)
		logx.Warn().Err(err).Str("node", "synth").Msg("synthesis failed")
	}
	return Commit(state, answer), err
}

func (s *Synthesizer) answer(ctx context.Context, state model.TurnState, opts ...compose.Option) (out string, err error) {
	if state.Error != "" {
		return Apology(state.Error), nil
	}
	if state.FallbackTurn() {
		if state.SQLResult == "" {
			return specialists.FallbackText, nil
		}
		return state.SQLResult, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			out, err = "", errx.WrapCompletion(fmt.Errorf("synth chain panic: %v", r))
		}
	}()

	stock := state.SQLResult
	if stock == "" {
		stock = prompts.NoStockData
	}
	news := state.NewsResult
	if news == "" {
		news = prompts.NoNewsData
	}
	msg, err := s.runnable.Invoke(ctx, map[string]any{
		prompts.VarQuery:   ResolveQuery(state.Query, state.LastDate),
		prompts.VarStock:   stock,
		prompts.VarNews:    news,
		prompts.VarHistory: conversations.Window(state.ChatHistory, s.historyWindow),
	}, opts...)
	if err != nil {
		return "", errx.WrapCompletion(err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errx.WrapCompletion(fmt.Errorf("empty synth completion"))
	}
	return strings.TrimSpace(msg.Content), nil
}

// Commit records answer as the turn's outcome: one user and one assistant
// entry are appended, the sticky date is re-resolved from the question and
// both done flags are set so an identical re-invocation does not dispatch again.
func Commit(state model.TurnState, answer string) model.TurnState {
	resolved := ResolveQuery(state.Query, state.LastDate)
	if d := extract.Date(resolved); d != "" {
		state.LastDate = d
	}

	history := slices.Clone(state.ChatHistory)
	state.ChatHistory = append(history,
		schema.UserMessage(state.Query),
		schema.AssistantMessage(answer, nil),
	)

	q := state.Query
	state.LastQuery = &q
	state.Answer = answer
	state.SQLDone = true
	state.NewsDone = true
	return state
}
