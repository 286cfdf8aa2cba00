package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethio-origin/provenance-service/internal/domain"
)

func newBatch(t *testing.T, batchID string) *domain.Batch {
	t.Helper()
	batch, err := domain.NewBatch(domain.HarvestSpec{
		BatchID:     batchID,
		FarmerID:    "FARM-001",
		FarmerName:  "Abebe Kebede",
		CropType:    domain.CropCoffee,
		WeightKg:    60,
		Location:    "Yirgacheffe",
		Region:      "Yirgacheffe",
		HarvestDate: time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return batch
}

func TestBatchRepository_InsertAndFind(t *testing.T) {
	repo := NewBatchRepository()
	ctx := context.Background()

	batch := newBatch(t, "ETH-COFFEE-AAAA0001")
	require.NoError(t, repo.Insert(ctx, batch))

	err := repo.Insert(ctx, batch)
	assert.ErrorIs(t, err, domain.ErrBatchAlreadyExists)

	found, err := repo.FindByBatchID(ctx, "ETH-COFFEE-AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, batch.BatchID, found.BatchID)

	_, err = repo.FindByBatchID(ctx, "ETH-COFFEE-MISSING1")
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestBatchRepository_ReadsAreIsolated(t *testing.T) {
	repo := NewBatchRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newBatch(t, "ETH-COFFEE-AAAA0002")))

	first, err := repo.FindByBatchID(ctx, "ETH-COFFEE-AAAA0002")
	require.NoError(t, err)

	// Mutating a loaded copy must not leak into the store
	first.Journey = append(first.Journey, domain.JourneyStep{Action: "TAMPERED"})
	first.Status = domain.StatusRetail

	second, err := repo.FindByBatchID(ctx, "ETH-COFFEE-AAAA0002")
	require.NoError(t, err)
	assert.Len(t, second.Journey, 1)
	assert.Equal(t, domain.StatusHarvested, second.Status)
}

func TestBatchRepository_VersionedUpdate(t *testing.T) {
	repo := NewBatchRepository()
	ctx := context.Background()
	engine := domain.NewEngine(0)

	batch := newBatch(t, "ETH-COFFEE-AAAA0003")
	require.NoError(t, repo.Insert(ctx, batch))

	plan, err := engine.Plan(batch, domain.UpdateInput{
		Action:    "PROCESSING_STARTED",
		Timestamp: batch.HarvestDate.Add(time.Hour),
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)

	require.NoError(t, repo.Update(ctx, batch, 1))

	// Replaying the same expected version is a conflict
	err = repo.Update(ctx, batch, 1)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	err = repo.Update(ctx, newBatch(t, "ETH-COFFEE-MISSING2"), 1)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)

	stored, err := repo.FindByBatchID(ctx, "ETH-COFFEE-AAAA0003")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestBatchRepository_ListAndCount(t *testing.T) {
	repo := NewBatchRepository()
	ctx := context.Background()

	first := newBatch(t, "ETH-COFFEE-AAAA0004")
	second := newBatch(t, "ETH-COFFEE-AAAA0005")
	second.FarmerID = "FARM-002"
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	all, err := repo.List(ctx, domain.BatchFilter{}, domain.DefaultPagination())
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first
	assert.Equal(t, "ETH-COFFEE-AAAA0005", all[0].BatchID)

	filtered, err := repo.List(ctx, domain.BatchFilter{FarmerID: "FARM-002"}, domain.DefaultPagination())
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "ETH-COFFEE-AAAA0005", filtered[0].BatchID)

	count, err := repo.Count(ctx, domain.BatchFilter{FarmerID: "FARM-001"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	exists, err := repo.ExistsByBatchID(ctx, "ETH-COFFEE-AAAA0004")
	require.NoError(t, err)
	assert.True(t, exists)

	paged, err := repo.List(ctx, domain.BatchFilter{}, domain.Pagination{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "ETH-COFFEE-AAAA0004", paged[0].BatchID)
}

func TestBatchRepository_CountsByStatus(t *testing.T) {
	repo := NewBatchRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newBatch(t, "ETH-COFFEE-AAAA0006")))
	require.NoError(t, repo.Insert(ctx, newBatch(t, "ETH-COFFEE-AAAA0007")))

	counts, err := repo.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.StatusHarvested])
}
