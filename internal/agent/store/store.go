// Package store serves price rows and news headlines from Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"

	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkTable(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// KnownTickers returns the distinct symbols stored in the price and news
// tables, sorted.
func KnownTickers(ctx context.Context, db *sql.DB, priceTable, newsTable string) ([]string, error) {
	if err := checkTable(priceTable); err != nil {
		return nil, err
	}
	if err := checkTable(newsTable); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT DISTINCT ticker FROM %s UNION SELECT DISTINCT stock FROM %s`, priceTable, newsTable)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		logx.Error().Err(err).Msg("failed to load known tickers")
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym sql.NullString
		if err := rows.Scan(&sym); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		if sym.Valid && sym.String != "" {
			out = append(out, sym.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	sort.Strings(out)

	logx.Debug().Int("count", len(out)).Msg("loaded known tickers")
	return out, nil
}
