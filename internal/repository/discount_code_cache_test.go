package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/discountcodes/discount-server-go/internal/model"
)

type mockCodeRepo struct {
	mock.Mock
}

func (m *mockCodeRepo) InsertIfAbsent(ctx context.Context, codes []string) (int, error) {
	args := m.Called(ctx, codes)
	return args.Int(0), args.Error(1)
}

func (m *mockCodeRepo) GetStatus(ctx context.Context, code string) (model.CodeStatus, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.CodeStatus), args.Error(1)
}

func (m *mockCodeRepo) TryMarkUsed(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockCodeRepo) FindByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscountCode), args.Error(1)
}

func (m *mockCodeRepo) CountStats(ctx context.Context) (*model.CodeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CodeStats), args.Error(1)
}

type memoryStatusCache struct {
	mu      sync.Mutex
	used    map[string]bool
	readErr error
}

func newMemoryStatusCache() *memoryStatusCache {
	return &memoryStatusCache{used: make(map[string]bool)}
}

func (c *memoryStatusCache) IsUsed(_ context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return false, c.readErr
	}
	return c.used[code], nil
}

func (c *memoryStatusCache) SetUsed(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used[code] = true
	return nil
}

func TestCachedRepo_GetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the store", func(t *testing.T) {
		inner := new(mockCodeRepo)
		cache := newMemoryStatusCache()
		cache.used["USEDONE"] = true
		repo := NewCachedDiscountCodeRepository(inner, cache)

		status, err := repo.GetStatus(ctx, "USEDONE")
		require.NoError(t, err)
		assert.Equal(t, model.CodeStatus{Exists: true, IsUsed: true}, status)
		inner.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
	})

	t.Run("miss reads the store and remembers used codes", func(t *testing.T) {
		inner := new(mockCodeRepo)
		inner.On("GetStatus", ctx, "USEDTWO").Return(model.CodeStatus{Exists: true, IsUsed: true}, nil).Once()
		cache := newMemoryStatusCache()
		repo := NewCachedDiscountCodeRepository(inner, cache)

		status, err := repo.GetStatus(ctx, "USEDTWO")
		require.NoError(t, err)
		assert.True(t, status.IsUsed)
		assert.True(t, cache.used["USEDTWO"])

		_, err = repo.GetStatus(ctx, "USEDTWO")
		require.NoError(t, err)
		inner.AssertExpectations(t)
	})

	t.Run("unused and missing codes are not cached", func(t *testing.T) {
		inner := new(mockCodeRepo)
		inner.On("GetStatus", ctx, "FRESH01").Return(model.CodeStatus{Exists: true}, nil)
		inner.On("GetStatus", ctx, "NOTHERE").Return(model.CodeStatus{}, nil)
		cache := newMemoryStatusCache()
		repo := NewCachedDiscountCodeRepository(inner, cache)

		_, err := repo.GetStatus(ctx, "FRESH01")
		require.NoError(t, err)
		_, err = repo.GetStatus(ctx, "NOTHERE")
		require.NoError(t, err)

		assert.Empty(t, cache.used)
	})

	t.Run("cache failure falls back to the store", func(t *testing.T) {
		inner := new(mockCodeRepo)
		inner.On("GetStatus", ctx, "FALLBCK").Return(model.CodeStatus{Exists: true}, nil)
		cache := newMemoryStatusCache()
		cache.readErr = errors.New("redis down")
		repo := NewCachedDiscountCodeRepository(inner, cache)

		status, err := repo.GetStatus(ctx, "FALLBCK")
		require.NoError(t, err)
		assert.True(t, status.Exists)
		assert.False(t, status.IsUsed)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		inner := new(mockCodeRepo)
		inner.On("GetStatus", ctx, "BROKEN1").Return(model.CodeStatus{}, errors.New("db down"))
		repo := NewCachedDiscountCodeRepository(inner, newMemoryStatusCache())

		_, err := repo.GetStatus(ctx, "BROKEN1")
		assert.Error(t, err)
	})
}

func TestCachedRepo_TryMarkUsed(t *testing.T) {
	ctx := context.Background()

	t.Run("successful transition is cached", func(t *testing.T) {
		inner := new(mockCodeRepo)
		inner.On("TryMarkUsed", ctx, "WINNER1").Return(true, nil)
		cache := newMemoryStatusCache()
		repo := NewCachedDiscountCodeRepository(inner, cache)

		ok, err := repo.TryMarkUsed(ctx, "WINNER1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, cache.used["WINNER1"])
	})

	t.Run("always asks the store even when cached", func(t *testing.T) {
		inner := new(mockCodeRepo)
		inner.On("TryMarkUsed", ctx, "LOSER01").Return(false, nil)
		cache := newMemoryStatusCache()
		cache.used["LOSER01"] = true
		repo := NewCachedDiscountCodeRepository(inner, cache)

		ok, err := repo.TryMarkUsed(ctx, "LOSER01")
		require.NoError(t, err)
		assert.False(t, ok)
		inner.AssertCalled(t, "TryMarkUsed", ctx, "LOSER01")
	})
}

func TestCachedRepo_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := new(mockCodeRepo)
	inner.On("InsertIfAbsent", ctx, []string{"PASS001"}).Return(1, nil)
	inner.On("FindByCode", ctx, "PASS001").Return(&model.DiscountCode{Code: "PASS001"}, nil)
	inner.On("CountStats", ctx).Return(&model.CodeStats{Total: 1, Unused: 1}, nil)
	repo := NewCachedDiscountCodeRepository(inner, newMemoryStatusCache())

	n, err := repo.InsertIfAbsent(ctx, []string{"PASS001"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dc, err := repo.FindByCode(ctx, "PASS001")
	require.NoError(t, err)
	assert.Equal(t, "PASS001", dc.Code)

	stats, err := repo.CountStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	inner.AssertExpectations(t)
}
