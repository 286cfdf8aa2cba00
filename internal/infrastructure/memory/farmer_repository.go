package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethio-origin/provenance-service/internal/domain"
)

// FarmerRepository is an in-memory farmer store for local development and tests
type FarmerRepository struct {
	mu      sync.RWMutex
	farmers map[string]*domain.Farmer
}

// NewFarmerRepository creates an empty in-memory farmer repository
func NewFarmerRepository() *FarmerRepository {
	return &FarmerRepository{farmers: make(map[string]*domain.Farmer)}
}

// Insert persists a new farmer
func (r *FarmerRepository) Insert(_ context.Context, farmer *domain.Farmer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.farmers[farmer.FarmerID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrFarmerAlreadyExists, farmer.FarmerID)
	}
	copied := *farmer
	copied.DomainEvents = nil
	r.farmers[farmer.FarmerID] = &copied
	return nil
}

// FindByFarmerID loads one farmer by its business id
func (r *FarmerRepository) FindByFarmerID(_ context.Context, farmerID string) (*domain.Farmer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	farmer, exists := r.farmers[farmerID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrFarmerNotFound, farmerID)
	}
	copied := *farmer
	return &copied, nil
}

// Update replaces the stored farmer
func (r *FarmerRepository) Update(_ context.Context, farmer *domain.Farmer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.farmers[farmer.FarmerID]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrFarmerNotFound, farmer.FarmerID)
	}
	copied := *farmer
	copied.DomainEvents = nil
	r.farmers[farmer.FarmerID] = &copied
	return nil
}

// List returns all farmers, newest first
func (r *FarmerRepository) List(_ context.Context, page domain.Pagination) ([]*domain.Farmer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Farmer, 0, len(r.farmers))
	for _, farmer := range r.farmers {
		copied := *farmer
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if page.Offset >= len(all) {
		return []*domain.Farmer{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], nil
}
