package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discountcodes/discount-server-go/internal/model"
)

func TestInsertChunk_DBAndTx(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	n, err := insertChunk(ctx, db, []string{"DIRECT1", "DIRECT2"}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	errAbort := errors.New("abort")
	err = db.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := insertChunk(ctx, tx, []string{"INTX001", "DIRECT1"}, now)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// the uncommitted row is visible inside the transaction
		dc, err := getOptional[model.DiscountCode](ctx, tx, `SELECT id, code, is_used, created_at FROM discount_codes WHERE code = ?`, "INTX001")
		require.NoError(t, err)
		require.NotNil(t, dc)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	dc, err := getOptional[model.DiscountCode](ctx, db, `SELECT id, code, is_used, created_at FROM discount_codes WHERE code = ?`, "INTX001")
	require.NoError(t, err)
	assert.Nil(t, dc)
}

func TestExecAffected(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := insertChunk(ctx, db, []string{"AFFECT1"}, time.Now().UTC())
	require.NoError(t, err)

	n, err := execAffected(ctx, db, `UPDATE discount_codes SET is_used = TRUE WHERE code = ?`, "AFFECT1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = execAffected(ctx, db, `UPDATE discount_codes SET is_used = TRUE WHERE code = ?`, "NOTHERE")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
