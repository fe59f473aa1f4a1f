package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

type PriceStore struct {
	db *sql.DB
}

func NewPriceStore(db *sql.DB) *PriceStore {
	return &PriceStore{db: db}
}

// QueryPrices runs an already validated statement inside a read-only
// transaction so nothing it does can be committed.
func (s *PriceStore) QueryPrices(ctx context.Context, query string) (model.PriceRows, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		logx.Error().Err(err).Msg("failed to open read-only transaction")
		return model.PriceRows{}, errx.WrapPostgres(err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		logx.Warn().Err(err).Str("sql", query).Msg("price query failed")
		return model.PriceRows{}, errx.WrapPostgres(err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return model.PriceRows{}, errx.WrapPostgres(err)
	}
	return result, nil
}

type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRows(rows rowScanner) (model.PriceRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		return model.PriceRows{}, fmt.Errorf("read columns: %w", err)
	}

	out := model.PriceRows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.PriceRows{}, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			// lib/pq returns NUMERIC and TEXT as raw bytes
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return model.PriceRows{}, err
	}
	return out, nil
}

var _ specialists.PriceStore = (*PriceStore)(nil)
