package repository

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/metrics"
	"github.com/discountcodes/discount-server-go/internal/model"
)

// StatusCache remembers codes known to be used. Only the used state is cached:
// it never reverts, so a cached entry cannot go stale.
type StatusCache interface {
	IsUsed(ctx context.Context, code string) (bool, error)
	SetUsed(ctx context.Context, code string) error
}

var _ DiscountCodeRepository = (*cachedDiscountCodeRepo)(nil)

type cachedDiscountCodeRepo struct {
	inner DiscountCodeRepository
	cache StatusCache
}

// NewCachedDiscountCodeRepository puts cache in front of inner's advisory status read.
// TryMarkUsed always goes to inner; the cache is never consulted for the transition.
func NewCachedDiscountCodeRepository(inner DiscountCodeRepository, cache StatusCache) DiscountCodeRepository {
	return &cachedDiscountCodeRepo{inner: inner, cache: cache}
}

func (d *cachedDiscountCodeRepo) InsertIfAbsent(ctx context.Context, codes []string) (int, error) {
	return d.inner.InsertIfAbsent(ctx, codes)
}

func (d *cachedDiscountCodeRepo) GetStatus(ctx context.Context, code string) (model.CodeStatus, error) {
	used, err := d.cache.IsUsed(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("code", code).Msg("status cache read failed, falling back to store")
	} else if used {
		metrics.IncStatusCache("hit")
		return model.CodeStatus{Exists: true, IsUsed: true}, nil
	}

	metrics.IncStatusCache("miss")
	status, err := d.inner.GetStatus(ctx, code)
	if err != nil {
		return status, err
	}
	if status.Exists && status.IsUsed {
		d.remember(ctx, code)
	}
	return status, nil
}

func (d *cachedDiscountCodeRepo) TryMarkUsed(ctx context.Context, code string) (bool, error) {
	ok, err := d.inner.TryMarkUsed(ctx, code)
	if err != nil {
		return false, err
	}
	if ok {
		d.remember(ctx, code)
	}
	return ok, nil
}

func (d *cachedDiscountCodeRepo) FindByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	return d.inner.FindByCode(ctx, code)
}

func (d *cachedDiscountCodeRepo) CountStats(ctx context.Context) (*model.CodeStats, error) {
	return d.inner.CountStats(ctx)
}

func (d *cachedDiscountCodeRepo) remember(ctx context.Context, code string) {
	if err := d.cache.SetUsed(ctx, code); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("status cache write failed")
	}
}
