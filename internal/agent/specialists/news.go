package specialists

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/tickertalk/server/internal/agent/model"
	errx "github.com/tickertalk/server/internal/core/error"
)

const maxHeadlineLen = 200

// NewsSpecialist returns the latest headlines plus the ones most similar to
// the question for one ticker.
type NewsSpecialist struct {
	index    NewsIndex
	recentN  int
	similarK int
}

var _ Specialist = (*NewsSpecialist)(nil)

func NewNewsSpecialist(index NewsIndex, cfg model.NewsConfig) (*NewsSpecialist, error) {
	if index == nil {
		return nil, fmt.Errorf("news specialist: index is nil")
	}
	n, k := cfg.RecentLimit, cfg.SimilarK
	if n <= 0 {
		n = 5
	}
	if k <= 0 {
		k = 5
	}
	return &NewsSpecialist{index: index, recentN: n, similarK: k}, nil
}

func (n *NewsSpecialist) Name() string { return NameNews }

func (n *NewsSpecialist) Run(ctx context.Context, req Request, _ ...compose.Option) (string, error) {
	if req.Ticker == "" {
		return "", errx.TickerUnresolved()
	}

	recent, err := n.index.Recent(ctx, req.Ticker, n.recentN)
	if err != nil {
		return "", fmt.Errorf("recent headlines: %w", err)
	}
	text := strings.TrimSpace(req.Query)
	if text == "" {
		text = "latest news for " + req.Ticker
	}
	similar, err := n.index.Similar(ctx, text, req.Ticker, n.similarK)
	if err != nil {
		return "", fmt.Errorf("similar headlines: %w", err)
	}

	return FormatNews(req.Ticker, text, SortRecent(recent, n.recentN), SortSimilar(similar, n.similarK)), nil
}

// SortRecent orders items newest first and keeps at most n.
func SortRecent(items []model.NewsItem, n int) []model.NewsItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.NewsItem) int {
		return b.Date.Compare(a.Date)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortSimilar orders items by score, best first, and keeps at most k.
func SortSimilar(items []model.NewsItem, k int) []model.NewsItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.NewsItem) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// FormatNews renders the recent block followed by the similarity block.
func FormatNews(ticker, text string, recent, similar []model.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Latest %d headlines for %s:**\n", len(recent), ticker)
	if len(recent) == 0 {
		b.WriteString("No recent headlines.\n")
	}
	for i, it := range recent {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, it.Date.Format("2006-01-02"), FlattenHeadline(it.Headline))
	}

	fmt.Fprintf(&b, "\n**Top-%d similar to %q (%s):**\n", len(similar), FlattenHeadline(text), ticker)
	if len(similar) == 0 {
		b.WriteString("No similar headlines.\n")
	}
	for i, it := range similar {
		fmt.Fprintf(&b, "%d. [%s] (sim=%.3f) %s\n", i+1, it.Date.Format("2006-01-02"), it.Score, FlattenHeadline(it.Headline))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FlattenHeadline puts a headline on one line and caps it at 200 characters.
func FlattenHeadline(h string) string {
	h = strings.Join(strings.Fields(h), " ")
	if r := []rune(h); len(r) > maxHeadlineLen {
		h = string(r[:maxHeadlineLen])
	}
	return h
}
