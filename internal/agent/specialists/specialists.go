// Package specialists adapts the price, news and fallback collaborators to
// one call contract. Adapters return collaborator failures as errors; the
// caller decides how to surface them.
package specialists

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tickertalk/server/internal/agent/model"
)

// Names used in logs, metrics and "<name> error: ..." messages.
const (
	NamePrice    = "SQL agent"
	NameNews     = "News agent"
	NameFallback = "Fallback agent"
)

// Request is the slice of turn state a specialist may read.
type Request struct {
	// Query is the user question with dates normalised and "that day" resolved.
	Query   string
	Ticker  string
	Date    string
	History []*schema.Message
}

type Specialist interface {
	Name() string
	Run(ctx context.Context, req Request, opts ...compose.Option) (string, error)
}

// PriceStore executes a validated, read-only price query.
type PriceStore interface {
	QueryPrices(ctx context.Context, query string) (model.PriceRows, error)
}

// NewsIndex serves stored headlines for one ticker.
type NewsIndex interface {
	// Recent returns up to n items, newest first.
	Recent(ctx context.Context, ticker string, n int) ([]model.NewsItem, error)
	// Similar returns up to k items ranked by similarity to text, best first.
	Similar(ctx context.Context, text, ticker string, k int) ([]model.NewsItem, error)
}
