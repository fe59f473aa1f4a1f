package errx

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"
)

// WrapPostgres maps database/sql and lib/pq errors to AppError.
// Statement errors (syntax, undefined column/table, bad input) become 422,
// everything else is treated as the store being unavailable.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return New(err, http.StatusNotFound, PostgresQueryMessage)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(err, http.StatusGatewayTimeout, PostgresErrorMessage)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "42", "22":
			return New(err, http.StatusUnprocessableEntity, PostgresQueryMessage)
		case "25":
			// read-only transaction violations
			return New(err, http.StatusForbidden, PostgresQueryMessage)
		}
	}

	return New(err, http.StatusBadGateway, PostgresErrorMessage)
}
