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

const farmerCollection = "farmers"

// FarmerRepository persists farmer profiles in MongoDB
type FarmerRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewFarmerRepository creates a new FarmerRepository and ensures its indexes
func NewFarmerRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *FarmerRepository {
	repo := &FarmerRepository{
		collection: db.Collection(farmerCollection),
		logger:     logger,
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *FarmerRepository) ensureIndexes(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "farmerId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "region", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("Failed to create farmer indexes")
	}
}

// Insert persists a new farmer
func (r *FarmerRepository) Insert(ctx context.Context, farmer *domain.Farmer) error {
	start := time.Now()
	_, err := r.collection.InsertOne(ctx, farmer)
	r.observe(ctx, "insert", start, err == nil)

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", domain.ErrFarmerAlreadyExists, farmer.FarmerID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert farmer: %w", err)
	}
	return nil
}

// FindByFarmerID loads one farmer by its business id
func (r *FarmerRepository) FindByFarmerID(ctx context.Context, farmerID string) (*domain.Farmer, error) {
	start := time.Now()

	var farmer domain.Farmer
	err := r.collection.FindOne(ctx, bson.M{"farmerId": farmerID}).Decode(&farmer)
	r.observe(ctx, "findOne", start, err == nil)

	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s", domain.ErrFarmerNotFound, farmerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find farmer: %w", err)
	}
	return &farmer, nil
}

// Update replaces the stored farmer
func (r *FarmerRepository) Update(ctx context.Context, farmer *domain.Farmer) error {
	start := time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"farmerId": farmer.FarmerID}, farmer)
	r.observe(ctx, "replace", start, err == nil)

	if err != nil {
		return fmt.Errorf("failed to update farmer: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFarmerNotFound, farmer.FarmerID)
	}
	return nil
}

// List returns all farmers, newest first
func (r *FarmerRepository) List(ctx context.Context, page domain.Pagination) ([]*domain.Farmer, error) {
	start := time.Now()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(page.Limit)).
		SetSkip(int64(page.Offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.observe(ctx, "find", start, false)
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	defer cursor.Close(ctx)

	var farmers []*domain.Farmer
	err = cursor.All(ctx, &farmers)
	r.observe(ctx, "find", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode farmers: %w", err)
	}
	return farmers, nil
}

func (r *FarmerRepository) observe(ctx context.Context, operation string, start time.Time, success bool) {
	duration := time.Since(start)
	r.metrics.RecordMongoDBOperation(farmerCollection, operation, success, duration)
	r.logger.DatabaseQuery(ctx, farmerCollection, operation, duration, success, 0)
}
