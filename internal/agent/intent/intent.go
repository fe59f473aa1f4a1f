// Package intent decides which specialists a question needs.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tickertalk/server/internal/agent/graph/parsers"
	"github.com/tickertalk/server/internal/agent/graph/prompts"
	logx "github.com/tickertalk/server/pkg/logger"
)

var (
	sqlTermsRe  = regexp.MustCompile(`\b(prices?|open|opened|opening|close|closed|closing|high|low|volume|ohlc|financial data|stock data)\b`)
	newsTermsRe = regexp.MustCompile(`\b(news|headlines?|articles?|updates?)\b`)
)

// Result holds the classification flags for one question.
type Result struct {
	NeedSQL  bool
	NeedNews bool
	// Degraded is set when the model could not be used and only the
	// keyword heuristics contributed.
	Degraded bool
}

// Heuristic matches the fixed price and news vocabularies.
func Heuristic(query string) Result {
	low := strings.ToLower(query)
	return Result{
		NeedSQL:  sqlTermsRe.MatchString(low),
		NeedNews: newsTermsRe.MatchString(low),
	}
}

// Classifier combines keyword heuristics with a chat model's opinion.
type Classifier struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
}

// NewClassifier compiles the router chain. A nil chat model yields a
// heuristics-only classifier.
func NewClassifier(ctx context.Context, cm einomodel.BaseChatModel) (*Classifier, error) {
	if cm == nil {
		return &Classifier{}, nil
	}
	runnable, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(prompts.Router()).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile router chain: %w", err)
	}
	return &Classifier{runnable: runnable}, nil
}

// Classify never fails. A model error or an unparseable reply leaves the
// heuristic flags in place and marks the result degraded.
func (c *Classifier) Classify(ctx context.Context, query string, opts ...compose.Option) Result {
	res := Heuristic(query)
	if c == nil || c.runnable == nil {
		return res
	}

	flags, err := c.ask(ctx, query, opts...)
	if err != nil {
		logx.Warn().Err(err).Str("component", "intent").Msg("classification degraded to heuristics")
		res.Degraded = true
		return res
	}

	res.NeedSQL = res.NeedSQL || flags.NeedSQL
	res.NeedNews = res.NeedNews || flags.NeedNews
	return res
}

func (c *Classifier) ask(ctx context.Context, query string, opts ...compose.Option) (flags parsers.RouteFlags, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("router chain panic: %v", r)
		}
	}()

	out, err := c.runnable.Invoke(ctx, map[string]any{prompts.VarQuery: query}, opts...)
	if err != nil {
		return parsers.RouteFlags{}, fmt.Errorf("router completion: %w", err)
	}
	if out == nil {
		return parsers.RouteFlags{}, fmt.Errorf("router completion: nil message")
	}
	return parsers.ParseRouteFlags(out.Content)
}
