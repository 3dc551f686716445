package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/discountcodes/discount-server-go/internal/database"
)

// getOptional reads at most one row into a T. A missing row is reported as a nil
// result, not an error.
func getOptional[T any](ctx context.Context, q database.DBTX, query string, args ...any) (*T, error) {
	var dest T
	err := q.GetContext(ctx, &dest, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dest, nil
}

func execAffected(ctx context.Context, q database.DBTX, query string, args ...any) (int, error) {
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
