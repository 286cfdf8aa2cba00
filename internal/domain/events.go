package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// BatchRegisteredEvent is raised when a harvest is registered on the ledger
type BatchRegisteredEvent struct {
	BatchID     string
	FarmerID    string
	CropType    string
	Region      string
	WeightKg    float64
	HarvestedAt time.Time
	OccurredAt_ time.Time
}

func (e *BatchRegisteredEvent) EventType() string { return "batch.registered" }
func (e *BatchRegisteredEvent) OccurredAt() time.Time {
	if e.OccurredAt_.IsZero() {
		return time.Now().UTC()
	}
	return e.OccurredAt_
}

// StepAppendedEvent is raised when a journey step is appended to a batch
type StepAppendedEvent struct {
	BatchID        string
	Action         string
	ActorID        string
	Location       string
	StepIndex      int
	Version        int64
	PreviousStatus string
	NewStatus      string
	AppendedAt     time.Time
}

func (e *StepAppendedEvent) EventType() string     { return "batch.step-appended" }
func (e *StepAppendedEvent) OccurredAt() time.Time { return e.AppendedAt }

// StatusAdvancedEvent is raised when an appended step moves the batch to a
// later lifecycle stage
type StatusAdvancedEvent struct {
	BatchID        string
	PreviousStatus string
	NewStatus      string
	TriggerAction  string
	AdvancedAt     time.Time
}

func (e *StatusAdvancedEvent) EventType() string     { return "batch.status-advanced" }
func (e *StatusAdvancedEvent) OccurredAt() time.Time { return e.AdvancedAt }

// FarmerRegisteredEvent is raised when a farmer profile is created
type FarmerRegisteredEvent struct {
	FarmerID     string
	Name         string
	Region       string
	RegisteredAt time.Time
}

func (e *FarmerRegisteredEvent) EventType() string     { return "farmer.registered" }
func (e *FarmerRegisteredEvent) OccurredAt() time.Time { return e.RegisteredAt }
