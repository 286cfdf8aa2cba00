package domain

import "context"

// Pagination holds paging parameters for list queries
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPagination returns sane paging defaults
func DefaultPagination() Pagination {
	return Pagination{Limit: 50, Offset: 0}
}

// Normalize clamps the pagination into a usable range
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// BatchFilter narrows batch list queries
type BatchFilter struct {
	FarmerID string
	Status   BatchStatus
	CropType CropType
}

// BatchRepository is the persistence boundary for the batch aggregate.
// Implementations map their storage failures onto the domain sentinels;
// nothing above this interface sees driver errors.
type BatchRepository interface {
	// Insert persists a new batch. Returns ErrBatchAlreadyExists when the
	// batch id is taken.
	Insert(ctx context.Context, batch *Batch) error

	// FindByBatchID loads one batch by its business id. Returns
	// ErrBatchNotFound when absent.
	FindByBatchID(ctx context.Context, batchID string) (*Batch, error)

	// Update replaces the stored batch only if its persisted version equals
	// expectedVersion. Returns ErrVersionConflict when another write won the
	// race, ErrBatchNotFound when the batch is gone.
	Update(ctx context.Context, batch *Batch, expectedVersion int64) error

	// List returns batches matching the filter, newest first
	List(ctx context.Context, filter BatchFilter, page Pagination) ([]*Batch, error)

	// Count returns the number of batches matching the filter
	Count(ctx context.Context, filter BatchFilter) (int64, error)

	// ExistsByBatchID reports whether a batch with the id exists
	ExistsByBatchID(ctx context.Context, batchID string) (bool, error)
}

// FarmerRepository is the persistence boundary for farmer profiles
type FarmerRepository interface {
	// Insert persists a new farmer. Returns ErrFarmerAlreadyExists when the
	// farmer id is taken.
	Insert(ctx context.Context, farmer *Farmer) error

	// FindByFarmerID loads one farmer by its business id. Returns
	// ErrFarmerNotFound when absent.
	FindByFarmerID(ctx context.Context, farmerID string) (*Farmer, error)

	// Update replaces the stored farmer. Returns ErrFarmerNotFound when the
	// farmer is gone.
	Update(ctx context.Context, farmer *Farmer) error

	// List returns all farmers, newest first
	List(ctx context.Context, page Pagination) ([]*Farmer, error)
}
