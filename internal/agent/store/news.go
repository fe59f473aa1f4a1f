package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

// QueryEmbedder turns a question into a vector comparable with the stored
// headline embeddings.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewsIndex reads the news table: stock, date, headline, embedding.
type NewsIndex struct {
	db       *sql.DB
	embedder QueryEmbedder

	recentSQL  string
	similarSQL string
}

func NewNewsIndex(db *sql.DB, embedder QueryEmbedder, table string) (*NewsIndex, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return &NewsIndex{
		db:       db,
		embedder: embedder,
		recentSQL: fmt.Sprintf(`SELECT headline, date FROM %s
 WHERE stock = $1
 ORDER BY date DESC
 LIMIT $2`, table),
		similarSQL: fmt.Sprintf(`SELECT headline, date, 1 - (embedding <=> $1) AS similarity
  FROM %s
 WHERE stock = $2
 ORDER BY similarity DESC
 LIMIT $3`, table),
	}, nil
}

func (n *NewsIndex) Recent(ctx context.Context, ticker string, limit int) ([]model.NewsItem, error) {
	rows, err := n.db.QueryContext(ctx, n.recentSQL, ticker, limit)
	if err != nil {
		logx.Error().Err(err).Str("ticker", ticker).Msg("failed to fetch recent headlines")
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.NewsItem
	for rows.Next() {
		var it model.NewsItem
		if err := rows.Scan(&it.Headline, &it.Date); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return out, nil
}

func (n *NewsIndex) Similar(ctx context.Context, text, ticker string, k int) ([]model.NewsItem, error) {
	vec, err := n.embedder.Embed(ctx, text)
	if err != nil {
		logx.Error().Err(err).Str("ticker", ticker).Msg("failed to embed news query")
		return nil, err
	}

	rows, err := n.db.QueryContext(ctx, n.similarSQL, pgvector.NewVector(vec), ticker, k)
	if err != nil {
		logx.Error().Err(err).Str("ticker", ticker).Msg("similarity search failed")
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.NewsItem
	for rows.Next() {
		var it model.NewsItem
		var score sql.NullFloat64
		if err := rows.Scan(&it.Headline, &it.Date, &score); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		it.Score = score.Float64
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return out, nil
}

var _ specialists.NewsIndex = (*NewsIndex)(nil)
