package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethio-origin/provenance-service/internal/domain"
	"github.com/ethio-origin/provenance-service/internal/infrastructure/memory"
	"github.com/ethio-origin/provenance-service/pkg/cloudevents"
	apperrors "github.com/ethio-origin/provenance-service/pkg/errors"
	"github.com/ethio-origin/provenance-service/pkg/kafka"
	"github.com/ethio-origin/provenance-service/pkg/logging"
	"github.com/ethio-origin/provenance-service/pkg/metrics"
)

type publishedEvent struct {
	topic string
	event *cloudevents.CloudEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic string, event *cloudevents.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, event: event})
	return nil
}

func (p *fakePublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			matched = append(matched, e)
		}
	}
	return matched
}

type fakeCache struct {
	mu      sync.Mutex
	views   map[string]*domain.JourneyView
	getErr  error
	setErr  error
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{views: make(map[string]*domain.JourneyView)}
}

func (c *fakeCache) Get(_ context.Context, batchID string) (*domain.JourneyView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.views[batchID], nil
}

func (c *fakeCache) Set(_ context.Context, view *domain.JourneyView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.views[view.BatchID] = view
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, batchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, batchID)
	c.deletes = append(c.deletes, batchID)
	return nil
}

// gatedRepo delays FindByBatchID until released, so two writers can be lined
// up against the same batch.
type gatedRepo struct {
	domain.BatchRepository
	gate chan struct{}
}

func (r *gatedRepo) FindByBatchID(ctx context.Context, batchID string) (*domain.Batch, error) {
	<-r.gate
	return r.BatchRepository.FindByBatchID(ctx, batchID)
}

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

func newTestService(repo domain.BatchRepository, cache JourneyCache, publisher EventPublisher) *LedgerService {
	return NewLedgerService(
		repo,
		domain.NewEngine(0.10),
		domain.NewMetadataCatalog(),
		cache,
		publisher,
		cloudevents.NewEventFactory(cloudevents.SourceLedger),
		testLogger(),
		metrics.New(metrics.DefaultConfig("test")),
	)
}

func harvestCommand() RegisterHarvestCommand {
	return RegisterHarvestCommand{
		FarmerID:    "FARM-001",
		FarmerName:  "Abebe Kebede",
		CropType:    "coffee",
		Variety:     "Heirloom",
		WeightKg:    60,
		Location:    "Yirgacheffe Washing Station",
		Region:      "Yirgacheffe",
		HarvestDate: time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC),
	}
}

func TestRegisterHarvest(t *testing.T) {
	publisher := &fakePublisher{}
	service := newTestService(memory.NewBatchRepository(), nil, publisher)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	assert.Contains(t, batch.BatchID, "ETH-COFFEE-")
	assert.Equal(t, domain.StatusHarvested, batch.Status)
	require.Len(t, batch.Journey, 1)
	assert.Equal(t, domain.ActionHarvested, batch.Journey[0].Action)

	// Registration publishes the batch event and an anchor request
	batchEvents := publisher.byTopic(kafka.Topics.BatchEvents)
	require.Len(t, batchEvents, 1)
	assert.Equal(t, cloudevents.BatchRegistered, batchEvents[0].event.Type)

	anchorEvents := publisher.byTopic(kafka.Topics.AnchorOutbound)
	require.Len(t, anchorEvents, 1)
	assert.Equal(t, batch.BatchID, anchorEvents[0].event.BatchID)
}

func TestRegisterHarvest_ExplicitIDTaken(t *testing.T) {
	repo := memory.NewBatchRepository()
	service := newTestService(repo, nil, nil)

	cmd := harvestCommand()
	cmd.BatchID = "ETH-COFFEE-FIXED001"
	_, err := service.RegisterHarvest(context.Background(), cmd)
	require.NoError(t, err)

	_, err = service.RegisterHarvest(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrBatchAlreadyExists)

	appErr := apperrors.MapDomainError(err)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestRegisterHarvest_PublisherFailureDoesNotFailWrite(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	service := newTestService(memory.NewBatchRepository(), nil, publisher)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)
	assert.NotEmpty(t, batch.BatchID)
}

func TestAppendUpdate(t *testing.T) {
	publisher := &fakePublisher{}
	cache := newFakeCache()
	service := newTestService(memory.NewBatchRepository(), cache, publisher)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	updated, err := service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:          "PROCESSING_STARTED",
		Timestamp:       batch.HarvestDate.Add(24 * time.Hour),
		ActorID:         "COOP-01",
		ActorName:       "Yirgacheffe Coop",
		NewWeightKg:     55,
		MoistureContent: "11.5%",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
	require.Len(t, updated.Journey, 2)

	// The stored status never drifts from what the journey implies
	assert.Equal(t, domain.DeriveStatus(updated.Journey), updated.Status)

	// The cache entry for this batch was dropped
	assert.Contains(t, cache.deletes, batch.BatchID)

	// Updated, status changed, and one anchor request per write
	batchEvents := publisher.byTopic(kafka.Topics.BatchEvents)
	require.Len(t, batchEvents, 3)
	assert.Equal(t, cloudevents.BatchUpdated, batchEvents[1].event.Type)
	assert.Equal(t, cloudevents.StatusChanged, batchEvents[2].event.Type)
	assert.Len(t, publisher.byTopic(kafka.Topics.AnchorOutbound), 2)
}

func TestAppendUpdate_StoresAnchorToken(t *testing.T) {
	service := newTestService(memory.NewBatchRepository(), nil, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	updated, err := service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:        "EXPORT_CLEARED",
		Timestamp:     batch.HarvestDate.Add(time.Hour),
		ActorID:       "EXP-01",
		AnchorTxToken: "tx1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5z5tpwxqergd3c8g7rusp",
	})
	require.NoError(t, err)
	assert.Equal(t, "tx1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5z5tpwxqergd3c8g7rusp", updated.AnchorTxToken)

	stored, err := service.GetBatch(context.Background(), batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, updated.AnchorTxToken, stored.AnchorTxToken)
}

func TestAppendUpdate_NotFound(t *testing.T) {
	service := newTestService(memory.NewBatchRepository(), nil, nil)

	_, err := service.AppendUpdate(context.Background(), "ETH-COFFEE-MISSING1", AppendUpdateCommand{
		Action:  "PROCESSING_STARTED",
		ActorID: "COOP-01",
	})
	require.ErrorIs(t, err, domain.ErrBatchNotFound)
	assert.Equal(t, 404, apperrors.MapDomainError(err).HTTPStatus)
}

func TestAppendUpdate_OutOfOrder(t *testing.T) {
	service := newTestService(memory.NewBatchRepository(), nil, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	_, err = service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:    "PROCESSING_STARTED",
		Timestamp: batch.HarvestDate.Add(-time.Hour),
		ActorID:   "COOP-01",
	})
	require.ErrorIs(t, err, domain.ErrOutOfOrderStep)
	assert.Equal(t, 422, apperrors.MapDomainError(err).HTTPStatus)

	// The rejected step was not recorded
	stored, err := service.GetBatch(context.Background(), batch.BatchID)
	require.NoError(t, err)
	assert.Len(t, stored.Journey, 1)
	assert.Equal(t, int64(1), stored.Version)
}

func TestAppendUpdate_StrictRegression(t *testing.T) {
	service := newTestService(memory.NewBatchRepository(), nil, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	exported, err := service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:    "EXPORT_CLEARED",
		Timestamp: batch.HarvestDate.Add(time.Hour),
		ActorID:   "EXP-01",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DeriveStatus(exported.Journey), exported.Status)

	_, err = service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:    "PROCESSING_AUDIT",
		Timestamp: batch.HarvestDate.Add(2 * time.Hour),
		ActorID:   "COOP-01",
		Strict:    true,
	})
	require.ErrorIs(t, err, domain.ErrStatusRegression)
	assert.Equal(t, 422, apperrors.MapDomainError(err).HTTPStatus)
}

func TestAppendUpdate_BackwardMarkerKeepsDerivedStatus(t *testing.T) {
	service := newTestService(memory.NewBatchRepository(), nil, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	_, err = service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:    "EXPORT_CLEARED",
		Timestamp: batch.HarvestDate.Add(time.Hour),
		ActorID:   "EXP-01",
	})
	require.NoError(t, err)

	// Permissive by default: the audit step is recorded, status holds
	updated, err := service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:    "PROCESSING_AUDIT",
		Timestamp: batch.HarvestDate.Add(2 * time.Hour),
		ActorID:   "COOP-01",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExported, updated.Status)
	require.Len(t, updated.Journey, 3)
	assert.Equal(t, domain.DeriveStatus(updated.Journey), updated.Status)
}

func TestAppendUpdate_ConcurrentSameBatch(t *testing.T) {
	inner := memory.NewBatchRepository()
	gate := make(chan struct{})
	repo := &gatedRepo{BatchRepository: inner, gate: gate}
	service := newTestService(repo, nil, nil)

	seed := newTestService(inner, nil, nil)
	batch, err := seed.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	cmd := AppendUpdateCommand{
		Action:    "PROCESSING_STARTED",
		Timestamp: batch.HarvestDate.Add(time.Hour),
		ActorID:   "COOP-01",
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.AppendUpdate(context.Background(), batch.BatchID, cmd)
			results <- err
		}()
	}

	// Both writers are past the lock attempt once the loser has been turned
	// away; open the gate for the winner.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		appErr := apperrors.MapDomainError(err)
		if assert.Equal(t, apperrors.CodeConflict, appErr.Code) {
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	stored, err := seed.GetBatch(context.Background(), batch.BatchID)
	require.NoError(t, err)
	assert.Len(t, stored.Journey, 2)
	assert.Equal(t, int64(2), stored.Version)
}

func TestAppendUpdate_ConcurrentDistinctBatches(t *testing.T) {
	service := newTestService(memory.NewBatchRepository(), nil, nil)

	first, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)
	second, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{first.BatchID, second.BatchID} {
		wg.Add(1)
		go func(batchID string) {
			defer wg.Done()
			_, err := service.AppendUpdate(context.Background(), batchID, AppendUpdateCommand{
				Action:    "PROCESSING_STARTED",
				Timestamp: time.Now().UTC().Add(time.Hour),
				ActorID:   "COOP-01",
			})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestGetJourney_CacheLifecycle(t *testing.T) {
	cache := newFakeCache()
	service := newTestService(memory.NewBatchRepository(), cache, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	// First read projects from the store and fills the cache
	view, err := service.GetJourney(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.Len(t, view.Events, 2)
	assert.NotNil(t, cache.views[batch.BatchID])

	// Second read is served from cache
	cached, err := service.GetJourney(context.Background(), batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, view.GeneratedAt, cached.GeneratedAt)
}

func TestGetJourney_CacheFailureFallsBack(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = fmt.Errorf("redis unavailable")
	cache.setErr = fmt.Errorf("redis unavailable")
	service := newTestService(memory.NewBatchRepository(), cache, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	view, err := service.GetJourney(context.Background(), batch.BatchID)
	require.NoError(t, err)
	assert.Len(t, view.Events, 2)
}

func TestGetJourney_CuratedMetadata(t *testing.T) {
	catalog := domain.NewMetadataCatalog()
	catalog.Put("policy-1", "YirgacheffeLot42", map[string]interface{}{
		"image":       "ipfs://QmYirgacheffe42",
		"description": "Washed heirloom lot from the Gedeo zone",
	})
	service := NewLedgerService(
		memory.NewBatchRepository(),
		domain.NewEngine(0.10),
		catalog,
		nil,
		nil,
		cloudevents.NewEventFactory(cloudevents.SourceLedger),
		testLogger(),
		metrics.New(metrics.DefaultConfig("test")),
	)

	known := harvestCommand()
	known.PolicyID = "policy-1"
	known.AssetName = "YirgacheffeLot42"
	batch, err := service.RegisterHarvest(context.Background(), known)
	require.NoError(t, err)

	view, err := service.GetJourney(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.NotNil(t, view.Metadata)
	assert.Equal(t, "ipfs://QmYirgacheffe42", view.Metadata["image"])

	// A batch the catalog does not know is served without metadata
	unknown, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	plain, err := service.GetJourney(context.Background(), unknown.BatchID)
	require.NoError(t, err)
	assert.Nil(t, plain.Metadata)
}

func TestGetJourney_ReflectsAppendedSteps(t *testing.T) {
	cache := newFakeCache()
	service := newTestService(memory.NewBatchRepository(), cache, nil)

	batch, err := service.RegisterHarvest(context.Background(), harvestCommand())
	require.NoError(t, err)

	_, err = service.GetJourney(context.Background(), batch.BatchID)
	require.NoError(t, err)

	_, err = service.AppendUpdate(context.Background(), batch.BatchID, AppendUpdateCommand{
		Action:    "RETAIL_ARRIVAL",
		Timestamp: batch.HarvestDate.Add(time.Hour),
		ActorID:   "SHOP-01",
	})
	require.NoError(t, err)

	view, err := service.GetJourney(context.Background(), batch.BatchID)
	require.NoError(t, err)

	// Two real steps plus the synthetic closing event
	require.Len(t, view.Events, 3)
	assert.Equal(t, "Ready for You", view.Events[2].Title)
	assert.Equal(t, domain.TimelineCurrent, view.Events[2].Status)
}
