package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for provenance domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CloudEvent {
	event := &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
	batchID string,
) *CloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	event.BatchID = batchID
	return event
}

// CreateBatchRegisteredEvent creates a BatchRegistered event
func (f *EventFactory) CreateBatchRegisteredEvent(
	ctx context.Context,
	batchID string,
	farmerID string,
	cropType string,
	region string,
	weightKg float64,
	harvestedAt time.Time,
) *CloudEvent {
	data := BatchRegisteredData{
		BatchID:     batchID,
		FarmerID:    farmerID,
		CropType:    cropType,
		Region:      region,
		WeightKg:    weightKg,
		HarvestedAt: harvestedAt,
	}
	event := f.CreateEvent(ctx, BatchRegistered, "batch/"+batchID, data)
	event.BatchID = batchID
	return event
}

// CreateBatchUpdatedEvent creates a BatchUpdated event
func (f *EventFactory) CreateBatchUpdatedEvent(
	ctx context.Context,
	data BatchUpdatedData,
) *CloudEvent {
	event := f.CreateEvent(ctx, BatchUpdated, "batch/"+data.BatchID, data)
	event.BatchID = data.BatchID
	return event
}

// CreateStatusChangedEvent creates a StatusChanged event
func (f *EventFactory) CreateStatusChangedEvent(
	ctx context.Context,
	batchID string,
	previousStatus string,
	newStatus string,
	triggerAction string,
) *CloudEvent {
	data := StatusChangedData{
		BatchID:        batchID,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
		TriggerAction:  triggerAction,
	}
	event := f.CreateEvent(ctx, StatusChanged, "batch/"+batchID, data)
	event.BatchID = batchID
	return event
}

// CreateAnchorRequestedEvent creates an AnchorRequested event
func (f *EventFactory) CreateAnchorRequestedEvent(
	ctx context.Context,
	batchID string,
	version int64,
	metadata interface{},
) *CloudEvent {
	data := AnchorRequestedData{
		BatchID:  batchID,
		Version:  version,
		Metadata: metadata,
	}
	event := f.CreateEvent(ctx, AnchorRequested, "anchor/"+batchID, data)
	event.BatchID = batchID
	return event
}

// CreateFarmerRegisteredEvent creates a FarmerRegistered event
func (f *EventFactory) CreateFarmerRegisteredEvent(
	ctx context.Context,
	farmerID string,
	name string,
	region string,
	walletAddress string,
) *CloudEvent {
	data := FarmerRegisteredData{
		FarmerID:      farmerID,
		Name:          name,
		Region:        region,
		WalletAddress: walletAddress,
	}
	return f.CreateEvent(ctx, FarmerRegistered, "farmer/"+farmerID, data)
}
