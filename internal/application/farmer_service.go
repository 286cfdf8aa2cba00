package application

import (
	"context"
	"fmt"

	"github.com/ethio-origin/provenance-service/internal/domain"
	"github.com/ethio-origin/provenance-service/pkg/cloudevents"
	"github.com/ethio-origin/provenance-service/pkg/kafka"
	"github.com/ethio-origin/provenance-service/pkg/logging"
	"github.com/google/uuid"
)

// FarmerService handles farmer profile operations
type FarmerService struct {
	repo         domain.FarmerRepository
	publisher    EventPublisher
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
}

// NewFarmerService creates a new FarmerService
func NewFarmerService(
	repo domain.FarmerRepository,
	publisher EventPublisher,
	eventFactory *cloudevents.EventFactory,
	logger *logging.Logger,
) *FarmerService {
	return &FarmerService{
		repo:         repo,
		publisher:    publisher,
		eventFactory: eventFactory,
		logger:       logger,
	}
}

// RegisterFarmer creates a new farmer profile
func (s *FarmerService) RegisterFarmer(ctx context.Context, cmd RegisterFarmerCommand) (*domain.Farmer, error) {
	farmerID := cmd.FarmerID
	if farmerID == "" {
		farmerID = fmt.Sprintf("FARM-%s", uuid.NewString()[:8])
	}

	farmer, err := domain.NewFarmer(farmerID, domain.FarmerProfile{
		Name:            cmd.Name,
		Region:          cmd.Region,
		ElevationMeters: cmd.ElevationMeters,
		GPS:             cmd.GPS,
		Story:           cmd.Story,
		PhotoURL:        cmd.PhotoURL,
		WalletAddress:   cmd.WalletAddress,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, farmer); err != nil {
		return nil, err
	}
	farmer.ClearDomainEvents()

	s.logger.Info("Registered farmer",
		"farmerId", farmer.FarmerID,
		"region", farmer.Region,
	)

	if s.publisher != nil {
		event := s.eventFactory.CreateFarmerRegisteredEvent(ctx, farmer.FarmerID, farmer.Name, farmer.Region, farmer.WalletAddress)
		if err := s.publisher.PublishEvent(ctx, kafka.Topics.FarmerEvents, event); err != nil {
			s.logger.WithError(err).Warn("Failed to publish farmer registered event", "farmerId", farmer.FarmerID)
		}
	}

	return farmer, nil
}

// GetFarmer loads one farmer by its business id
func (s *FarmerService) GetFarmer(ctx context.Context, farmerID string) (*domain.Farmer, error) {
	return s.repo.FindByFarmerID(ctx, farmerID)
}

// UpdateFarmer corrects a farmer profile
func (s *FarmerService) UpdateFarmer(ctx context.Context, farmerID string, cmd UpdateFarmerCommand) (*domain.Farmer, error) {
	farmer, err := s.repo.FindByFarmerID(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	if err := farmer.UpdateProfile(domain.FarmerProfile{
		Name:            cmd.Name,
		Region:          cmd.Region,
		ElevationMeters: cmd.ElevationMeters,
		GPS:             cmd.GPS,
		Story:           cmd.Story,
		PhotoURL:        cmd.PhotoURL,
		WalletAddress:   cmd.WalletAddress,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, farmer); err != nil {
		return nil, err
	}

	s.logger.Info("Updated farmer profile", "farmerId", farmerID)
	return farmer, nil
}

// ListFarmers returns all farmers, newest first
func (s *FarmerService) ListFarmers(ctx context.Context, page domain.Pagination) ([]*domain.Farmer, error) {
	return s.repo.List(ctx, page.Normalize())
}
