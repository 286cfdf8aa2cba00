package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethio-origin/provenance-service/internal/domain"
	"github.com/ethio-origin/provenance-service/pkg/cloudevents"
	"github.com/ethio-origin/provenance-service/pkg/kafka"
	"github.com/ethio-origin/provenance-service/pkg/logging"
	"github.com/ethio-origin/provenance-service/pkg/metrics"
)

// batchIDGenerationAttempts bounds how often a generated id is re-rolled on
// collision before giving up.
const batchIDGenerationAttempts = 5

// EventPublisher publishes cloud events to a topic. Satisfied by the kafka
// producer stack; tests inject fakes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
}

// JourneyCache caches projected journey timelines. All methods are
// best-effort; callers treat errors as misses.
type JourneyCache interface {
	Get(ctx context.Context, batchID string) (*domain.JourneyView, error)
	Set(ctx context.Context, view *domain.JourneyView) error
	Invalidate(ctx context.Context, batchID string) error
}

// LedgerService handles batch registration, custody updates, and journey reads
type LedgerService struct {
	repo         domain.BatchRepository
	engine       *domain.Engine
	catalog      *domain.MetadataCatalog
	cache        JourneyCache
	publisher    EventPublisher
	eventFactory *cloudevents.EventFactory
	locks        *KeyedMutex
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewLedgerService creates a new LedgerService. Cache and publisher may be
// nil; the service then runs without caching or eventing.
func NewLedgerService(
	repo domain.BatchRepository,
	engine *domain.Engine,
	catalog *domain.MetadataCatalog,
	cache JourneyCache,
	publisher EventPublisher,
	eventFactory *cloudevents.EventFactory,
	logger *logging.Logger,
	m *metrics.Metrics,
) *LedgerService {
	if catalog == nil {
		catalog = domain.NewMetadataCatalog()
	}
	return &LedgerService{
		repo:         repo,
		engine:       engine,
		catalog:      catalog,
		cache:        cache,
		publisher:    publisher,
		eventFactory: eventFactory,
		locks:        NewKeyedMutex(),
		logger:       logger,
		metrics:      m,
	}
}

// RegisterHarvest creates a batch from a harvest registration. The batch id
// is generated unless the command carries one; a taken id is a conflict.
func (s *LedgerService) RegisterHarvest(ctx context.Context, cmd RegisterHarvestCommand) (*domain.Batch, error) {
	crop := domain.CropType(cmd.CropType)

	batchID := cmd.BatchID
	if batchID == "" {
		var err error
		batchID, err = s.uniqueBatchID(ctx, crop)
		if err != nil {
			return nil, err
		}
	} else {
		exists, err := s.repo.ExistsByBatchID(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrBatchAlreadyExists, batchID)
		}
	}

	batch, err := domain.NewBatch(domain.HarvestSpec{
		BatchID:     batchID,
		PolicyID:    cmd.PolicyID,
		AssetName:   cmd.AssetName,
		FarmerID:    cmd.FarmerID,
		FarmerName:  cmd.FarmerName,
		CropType:    crop,
		Variety:     cmd.Variety,
		WeightKg:    cmd.WeightKg,
		Location:    cmd.Location,
		Region:      cmd.Region,
		HarvestDate: cmd.HarvestDate,
		ActorID:     cmd.ActorID,
		ActorName:   cmd.ActorName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, batch); err != nil {
		return nil, err
	}
	batch.ClearDomainEvents()

	s.metrics.RecordBatchRegistered(cmd.CropType)
	s.logger.Event(ctx, "batch.registered", map[string]any{
		"batchId":  batch.BatchID,
		"farmerId": batch.FarmerID,
		"cropType": cmd.CropType,
		"weightKg": batch.InitialWeightKg,
	})

	s.publishRegistered(ctx, batch)
	s.publishAnchor(ctx, batch)

	return batch, nil
}

// GetBatch loads one batch by its business id
func (s *LedgerService) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	return s.repo.FindByBatchID(ctx, batchID)
}

// ListBatches returns batches matching the filter plus the total count
func (s *LedgerService) ListBatches(ctx context.Context, filter domain.BatchFilter, page domain.Pagination) ([]*domain.Batch, int64, error) {
	page = page.Normalize()

	batches, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// AppendUpdate appends one custody update to a batch and returns the updated
// batch. Writers for the same batch are serialized; a second concurrent
// writer gets a retryable conflict. The journey append and field deltas
// commit atomically through the versioned replace.
func (s *LedgerService) AppendUpdate(ctx context.Context, batchID string, cmd AppendUpdateCommand) (*domain.Batch, error) {
	release, ok := s.locks.TryAcquire(batchID)
	if !ok {
		s.metrics.RecordUpdateRejected("in_flight")
		return nil, fmt.Errorf("update already in flight for batch %s", batchID)
	}
	defer release()

	batch, err := s.repo.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	plan, err := s.engine.Plan(batch, domain.UpdateInput{
		Action:          cmd.Action,
		Timestamp:       cmd.Timestamp,
		ActorID:         cmd.ActorID,
		ActorName:       cmd.ActorName,
		Location:        cmd.Location,
		NewWeightKg:     cmd.NewWeightKg,
		MoistureContent: cmd.MoistureContent,
		CuppingScore:    cmd.CuppingScore,
		Grade:           cmd.Grade,
		Notes:           cmd.Notes,
		Strict:          cmd.Strict,
	})
	if err != nil {
		s.metrics.RecordUpdateRejected(rejectionReason(err))
		return nil, err
	}

	previousStatus := batch.Status
	expectedVersion := batch.Version
	batch.ApplyPlan(plan)
	if cmd.AnchorTxToken != "" {
		batch.RecordAnchorToken(cmd.AnchorTxToken)
	}

	if err := s.repo.Update(ctx, batch, expectedVersion); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.metrics.RecordUpdateRejected("version_conflict")
		}
		return nil, err
	}
	batch.ClearDomainEvents()

	category := "generic"
	if plan.Recognized {
		category = string(plan.NewStatus)
	} else {
		s.logger.WithBatchID(batchID).Warn("Unrecognized action recorded without status change",
			"action", plan.Step.Action,
			"status", string(batch.Status),
		)
	}
	s.metrics.RecordUpdateAppended(category, string(batch.Status))
	s.logger.BatchTransition(ctx, batchID, plan.Step.Action, string(previousStatus), string(batch.Status), batch.Version)

	s.invalidateJourney(ctx, batchID)
	s.publishUpdated(ctx, batch, plan, string(previousStatus))
	s.publishAnchor(ctx, batch)

	return batch, nil
}

// GetJourney returns the projected journey timeline for a batch, served from
// cache when fresh. Cache failures fall back to the store.
func (s *LedgerService) GetJourney(ctx context.Context, batchID string) (*domain.JourneyView, error) {
	if s.cache != nil {
		start := time.Now()
		view, err := s.cache.Get(ctx, batchID)
		s.logger.CacheAccess(ctx, batchID, "get", err == nil && view != nil, time.Since(start))
		if err == nil && view != nil {
			s.metrics.RecordCacheRequest("journey", "get", true)
			s.metrics.RecordJourneyProjected("cache")
			return view, nil
		}
		s.metrics.RecordCacheRequest("journey", "get", false)
	}

	batch, err := s.repo.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	view := domain.NewJourneyView(batch)
	if curated, found := s.catalog.Lookup(batch.AnchorPolicyID(), batch.AnchorAssetName()); found {
		view.Metadata = curated
	}
	s.metrics.RecordJourneyProjected("store")

	if s.cache != nil {
		if err := s.cache.Set(ctx, view); err != nil {
			s.logger.WithBatchID(batchID).WithError(err).Warn("Failed to cache journey timeline")
		}
	}
	return view, nil
}

// uniqueBatchID mints ids until one is free
func (s *LedgerService) uniqueBatchID(ctx context.Context, crop domain.CropType) (string, error) {
	for i := 0; i < batchIDGenerationAttempts; i++ {
		id := domain.GenerateBatchID(crop)
		exists, err := s.repo.ExistsByBatchID(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique batch id after %d attempts", batchIDGenerationAttempts)
}

func (s *LedgerService) invalidateJourney(ctx context.Context, batchID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, batchID); err != nil {
		s.logger.WithBatchID(batchID).WithError(err).Warn("Failed to invalidate journey cache")
	}
}

func (s *LedgerService) publishRegistered(ctx context.Context, batch *domain.Batch) {
	if s.publisher == nil {
		return
	}
	event := s.eventFactory.CreateBatchRegisteredEvent(ctx,
		batch.BatchID, batch.FarmerID, string(batch.CropType), batch.Region,
		batch.InitialWeightKg, batch.HarvestDate,
	)
	if err := s.publisher.PublishEvent(ctx, kafka.Topics.BatchEvents, event); err != nil {
		s.logger.WithBatchID(batch.BatchID).WithError(err).Warn("Failed to publish batch registered event")
	}
}

func (s *LedgerService) publishUpdated(ctx context.Context, batch *domain.Batch, plan *domain.StepPlan, previousStatus string) {
	if s.publisher == nil {
		return
	}

	data := cloudevents.BatchUpdatedData{
		BatchID:        batch.BatchID,
		Action:         plan.Step.Action,
		Actor:          plan.Step.Actor.Name,
		Location:       plan.Step.Location,
		StepIndex:      len(batch.Journey) - 1,
		Version:        batch.Version,
		PreviousStatus: previousStatus,
		NewStatus:      string(batch.Status),
	}
	if plan.Step.Data != nil {
		data.NewWeightKg = plan.Step.Data.NewWeightKg
		data.CuppingScore = plan.Step.Data.CuppingScore
		data.MoisturePct = plan.Step.Data.MoistureContent
	}
	event := s.eventFactory.CreateBatchUpdatedEvent(ctx, data)
	if err := s.publisher.PublishEvent(ctx, kafka.Topics.BatchEvents, event); err != nil {
		s.logger.WithBatchID(batch.BatchID).WithError(err).Warn("Failed to publish batch updated event")
	}

	if previousStatus != string(batch.Status) {
		statusEvent := s.eventFactory.CreateStatusChangedEvent(ctx,
			batch.BatchID, previousStatus, string(batch.Status), plan.Step.Action)
		if err := s.publisher.PublishEvent(ctx, kafka.Topics.BatchEvents, statusEvent); err != nil {
			s.logger.WithBatchID(batch.BatchID).WithError(err).Warn("Failed to publish status changed event")
		}
	}
}

// publishAnchor hands the batch snapshot to the anchoring pipeline after a
// successful commit. Failures are logged, never surfaced; the write has
// already happened.
func (s *LedgerService) publishAnchor(ctx context.Context, batch *domain.Batch) {
	if s.publisher == nil {
		return
	}
	start := time.Now()

	payload := domain.BuildAnchorPayload(batch)
	s.enrichAnchor(payload)

	event := s.eventFactory.CreateAnchorRequestedEvent(ctx, batch.BatchID, batch.Version, payload.Metadata)
	err := s.publisher.PublishEvent(ctx, kafka.Topics.AnchorOutbound, event)
	s.logger.AnchorPublish(ctx, batch.BatchID, err == nil, time.Since(start))
	s.metrics.RecordAnchorPublished(err == nil)
	if err != nil {
		s.logger.WithBatchID(batch.BatchID).WithError(err).Warn("Failed to publish anchor request")
	}
}

// enrichAnchor merges curated catalog fields into the asset metadata. A
// catalog miss leaves the payload as built.
func (s *LedgerService) enrichAnchor(payload *domain.AnchorPayload) {
	curated, found := s.catalog.Lookup(payload.PolicyID, payload.AssetName)
	if !found {
		return
	}
	label, ok := payload.Metadata["721"].(map[string]interface{})
	if !ok {
		return
	}
	assets, ok := label[payload.PolicyID].(map[string]interface{})
	if !ok {
		return
	}
	asset, ok := assets[payload.AssetName].(map[string]interface{})
	if !ok {
		return
	}
	for k, v := range curated {
		if _, taken := asset[k]; !taken {
			asset[k] = v
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfOrderStep):
		return "out_of_order"
	case errors.Is(err, domain.ErrStatusRegression):
		return "status_regression"
	case errors.Is(err, domain.ErrWeightOutOfRange):
		return "weight_out_of_range"
	default:
		return "validation"
	}
}
