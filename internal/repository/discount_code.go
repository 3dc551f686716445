package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/discountcodes/discount-server-go/internal/database"
	"github.com/discountcodes/discount-server-go/internal/model"
)

// insertChunkSize bounds the rows per INSERT statement so a 2000-code batch stays
// well under the bind-parameter limits of both Postgres and SQLite.
const insertChunkSize = 500

type DiscountCodeRepository interface {
	// InsertIfAbsent inserts every code not already present and returns how many rows
	// were newly created. Existing codes are skipped without error.
	InsertIfAbsent(ctx context.Context, codes []string) (int, error)
	GetStatus(ctx context.Context, code string) (model.CodeStatus, error)
	// TryMarkUsed flips is_used from false to true in a single conditional update.
	// It returns true only for the call that performed the transition.
	TryMarkUsed(ctx context.Context, code string) (bool, error)
	FindByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	CountStats(ctx context.Context) (*model.CodeStats, error)
}

type discountCodeRepo struct {
	db *database.DB
}

func NewDiscountCodeRepository(db *database.DB) DiscountCodeRepository {
	return &discountCodeRepo{db: db}
}

func (r *discountCodeRepo) InsertIfAbsent(ctx context.Context, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	inserted := 0

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(codes); start += insertChunkSize {
			end := min(start+insertChunkSize, len(codes))
			n, err := insertChunk(ctx, tx, codes[start:end], now)
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert discount codes: %w", err)
	}

	return inserted, nil
}

func insertChunk(ctx context.Context, q database.DBTX, codes []string, createdAt time.Time) (int, error) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO discount_codes (code, is_used, created_at) VALUES `)

	args := make([]any, 0, len(codes)*2)
	for i, code := range codes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, FALSE, ?)")
		args = append(args, code, createdAt)
	}
	sb.WriteString(` ON CONFLICT (code) DO NOTHING`)

	return execAffected(ctx, q, sb.String(), args...)
}

func (r *discountCodeRepo) GetStatus(ctx context.Context, code string) (model.CodeStatus, error) {
	isUsed, err := getOptional[bool](ctx, r.db, `
		SELECT is_used FROM discount_codes WHERE code = ?
	`, code)
	if err != nil || isUsed == nil {
		return model.CodeStatus{}, err
	}
	return model.CodeStatus{Exists: true, IsUsed: *isUsed}, nil
}

func (r *discountCodeRepo) TryMarkUsed(ctx context.Context, code string) (bool, error) {
	n, err := execAffected(ctx, r.db, `
		UPDATE discount_codes SET is_used = TRUE
		WHERE code = ? AND is_used = FALSE
	`, code)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *discountCodeRepo) FindByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	return getOptional[model.DiscountCode](ctx, r.db, `
		SELECT id, code, is_used, created_at FROM discount_codes WHERE code = ?
	`, code)
}

type lengthStatsRow struct {
	Length int `db:"length"`
	Total  int `db:"total"`
	Used   int `db:"used"`
}

func (r *discountCodeRepo) CountStats(ctx context.Context) (*model.CodeStats, error) {
	var rows []lengthStatsRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT LENGTH(code) AS length,
			COUNT(*) AS total,
			SUM(CASE WHEN is_used THEN 1 ELSE 0 END) AS used
		FROM discount_codes
		GROUP BY LENGTH(code)
	`)
	if err != nil {
		return nil, err
	}

	stats := &model.CodeStats{ByLength: make(map[int]int, len(rows))}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Used += row.Used
		stats.ByLength[row.Length] = row.Total
	}
	stats.Unused = stats.Total - stats.Used
	return stats, nil
}
