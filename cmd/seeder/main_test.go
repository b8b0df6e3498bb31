package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
	"github.com/ilramdhan/farmcalc/internal/infrastructure/memory"
)

// flakyRepo fails every other CreateBatch call
type flakyRepo struct {
	repository.CalculationRepository
	calls int64
}

func (r *flakyRepo) CreateBatch(ctx context.Context, calcs []*entity.Calculation) (int64, error) {
	if atomic.AddInt64(&r.calls, 1)%2 == 0 {
		return 0, errors.New("connection reset")
	}
	return r.CalculationRepository.CreateBatch(ctx, calcs)
}

func withFlags(t *testing.T, synthetic, batch, workers int) {
	t.Helper()
	prev := [3]int{*syntheticCount, *batchSize, *workerCount}
	*syntheticCount, *batchSize, *workerCount = synthetic, batch, workers
	t.Cleanup(func() {
		*syntheticCount, *batchSize, *workerCount = prev[0], prev[1], prev[2]
	})
}

func TestSeedSynthetic(t *testing.T) {
	withFlags(t, 40, 10, 1)
	store := memory.NewStore()
	ctx := context.Background()

	created := seedSynthetic(ctx, store.Calculations(), map[string]uuid.UUID{})
	assert.Equal(t, int64(40), created)

	n, err := store.Calculations().Count(ctx, entity.CalculationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(40), n)
}

func TestSeedSynthetic_CountsOnlyStoredBatches(t *testing.T) {
	withFlags(t, 40, 10, 1)
	store := memory.NewStore()
	repo := &flakyRepo{CalculationRepository: store.Calculations()}
	ctx := context.Background()

	created := seedSynthetic(ctx, repo, map[string]uuid.UUID{})
	assert.Equal(t, int64(20), created)

	n, err := store.Calculations().Count(ctx, entity.CalculationFilter{})
	require.NoError(t, err)
	assert.Equal(t, created, n)
}
