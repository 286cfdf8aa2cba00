package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethio-origin/provenance-service/internal/domain"
)

// BatchRepository is an in-memory batch store for local development and
// tests. It honors the same versioned-write contract as the MongoDB
// implementation, so conflict behavior is identical across backends.
type BatchRepository struct {
	mu      sync.RWMutex
	batches map[string]*domain.Batch
	order   []string
}

// NewBatchRepository creates an empty in-memory batch repository
func NewBatchRepository() *BatchRepository {
	return &BatchRepository{
		batches: make(map[string]*domain.Batch),
		order:   make([]string, 0),
	}
}

// Insert persists a new batch
func (r *BatchRepository) Insert(_ context.Context, batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batches[batch.BatchID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrBatchAlreadyExists, batch.BatchID)
	}
	r.batches[batch.BatchID] = batch.Clone()
	r.order = append(r.order, batch.BatchID)
	return nil
}

// FindByBatchID loads one batch by its business id
func (r *BatchRepository) FindByBatchID(_ context.Context, batchID string) (*domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	batch, exists := r.batches[batchID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batchID)
	}
	return batch.Clone(), nil
}

// Update replaces the stored batch only when the stored version matches
func (r *BatchRepository) Update(_ context.Context, batch *domain.Batch, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.batches[batch.BatchID]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batch.BatchID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: %s at version %d", domain.ErrVersionConflict, batch.BatchID, expectedVersion)
	}
	r.batches[batch.BatchID] = batch.Clone()
	return nil
}

// List returns batches matching the filter, newest first
func (r *BatchRepository) List(_ context.Context, filter domain.BatchFilter, page domain.Pagination) ([]*domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if page.Offset >= len(matched) {
		return []*domain.Batch{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]*domain.Batch, 0, end-page.Offset)
	for _, batch := range matched[page.Offset:end] {
		result = append(result, batch.Clone())
	}
	return result, nil
}

// Count returns the number of batches matching the filter
func (r *BatchRepository) Count(_ context.Context, filter domain.BatchFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

// ExistsByBatchID reports whether a batch with the id exists
func (r *BatchRepository) ExistsByBatchID(_ context.Context, batchID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.batches[batchID]
	return exists, nil
}

// CountsByStatus returns the number of batches in each lifecycle stage
func (r *BatchRepository) CountsByStatus(_ context.Context) (map[domain.BatchStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.BatchStatus]int64)
	for _, batch := range r.batches {
		counts[batch.Status]++
	}
	return counts, nil
}

func (r *BatchRepository) matching(filter domain.BatchFilter) []*domain.Batch {
	matched := make([]*domain.Batch, 0, len(r.batches))
	for _, id := range r.order {
		batch := r.batches[id]
		if filter.FarmerID != "" && batch.FarmerID != filter.FarmerID {
			continue
		}
		if filter.Status != "" && batch.Status != filter.Status {
			continue
		}
		if filter.CropType != "" && batch.CropType != filter.CropType {
			continue
		}
		matched = append(matched, batch)
	}
	return matched
}
