package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ethio-origin/provenance-service/internal/domain"
	"github.com/ethio-origin/provenance-service/pkg/logging"
	"github.com/ethio-origin/provenance-service/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const batchCollection = "batches"

// BatchRepository persists batch aggregates in MongoDB. Writes go through a
// versioned replace so concurrent updates to the same batch surface as
// domain.ErrVersionConflict instead of lost updates.
type BatchRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewBatchRepository creates a new BatchRepository and ensures its indexes
func NewBatchRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *BatchRepository {
	repo := &BatchRepository{
		collection: db.Collection(batchCollection),
		logger:     logger,
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *BatchRepository) ensureIndexes(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "batchId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "farmerId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "cropType", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("Failed to create batch indexes")
	}
}

// Insert persists a new batch
func (r *BatchRepository) Insert(ctx context.Context, batch *domain.Batch) error {
	start := time.Now()
	_, err := r.collection.InsertOne(ctx, batch)
	r.observe(ctx, "insert", start, err == nil)

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", domain.ErrBatchAlreadyExists, batch.BatchID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// FindByBatchID loads one batch by its business id
func (r *BatchRepository) FindByBatchID(ctx context.Context, batchID string) (*domain.Batch, error) {
	start := time.Now()

	var batch domain.Batch
	err := r.collection.FindOne(ctx, bson.M{"batchId": batchID}).Decode(&batch)
	r.observe(ctx, "findOne", start, err == nil)

	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}
	return &batch, nil
}

// Update replaces the stored batch only when its persisted version still
// equals expectedVersion. The whole document swaps in one operation, so the
// appended step and the field deltas land together or not at all.
func (r *BatchRepository) Update(ctx context.Context, batch *domain.Batch, expectedVersion int64) error {
	start := time.Now()
	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"batchId": batch.BatchID, "version": expectedVersion},
		batch,
	)
	r.observe(ctx, "replace", start, err == nil)

	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	if result.MatchedCount == 0 {
		exists, existsErr := r.ExistsByBatchID(ctx, batch.BatchID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batch.BatchID)
		}
		return fmt.Errorf("%w: %s at version %d", domain.ErrVersionConflict, batch.BatchID, expectedVersion)
	}
	return nil
}

// List returns batches matching the filter, newest first
func (r *BatchRepository) List(ctx context.Context, filter domain.BatchFilter, page domain.Pagination) ([]*domain.Batch, error) {
	start := time.Now()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(page.Limit)).
		SetSkip(int64(page.Offset))

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		r.observe(ctx, "find", start, false)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []*domain.Batch
	err = cursor.All(ctx, &batches)
	r.observe(ctx, "find", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}
	return batches, nil
}

// Count returns the number of batches matching the filter
func (r *BatchRepository) Count(ctx context.Context, filter domain.BatchFilter) (int64, error) {
	start := time.Now()
	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	r.observe(ctx, "count", start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

// ExistsByBatchID reports whether a batch with the id exists
func (r *BatchRepository) ExistsByBatchID(ctx context.Context, batchID string) (bool, error) {
	start := time.Now()
	count, err := r.collection.CountDocuments(ctx, bson.M{"batchId": batchID}, options.Count().SetLimit(1))
	r.observe(ctx, "count", start, err == nil)
	if err != nil {
		return false, fmt.Errorf("failed to check batch existence: %w", err)
	}
	return count > 0, nil
}

// CountsByStatus returns the number of batches in each lifecycle stage
func (r *BatchRepository) CountsByStatus(ctx context.Context) (map[domain.BatchStatus]int64, error) {
	start := time.Now()

	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		r.observe(ctx, "aggregate", start, false)
		return nil, fmt.Errorf("failed to aggregate batch statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status domain.BatchStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	err = cursor.All(ctx, &rows)
	r.observe(ctx, "aggregate", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := make(map[domain.BatchStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *BatchRepository) observe(ctx context.Context, operation string, start time.Time, success bool) {
	duration := time.Since(start)
	r.metrics.RecordMongoDBOperation(batchCollection, operation, success, duration)
	r.logger.DatabaseQuery(ctx, batchCollection, operation, duration, success, 0)
}

func buildFilter(filter domain.BatchFilter) bson.M {
	query := bson.M{}
	if filter.FarmerID != "" {
		query["farmerId"] = filter.FarmerID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.CropType != "" {
		query["cropType"] = filter.CropType
	}
	return query
}
