package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Batch errors
var (
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBatchAlreadyExists = errors.New("batch already exists")
	ErrVersionConflict    = errors.New("batch version conflict")
	ErrInvalidWeight      = errors.New("initial weight must be positive")
	ErrEmptyLocation      = errors.New("location is required")
	ErrInvalidCropType    = errors.New("invalid crop type")
	ErrEmptyAction        = errors.New("action is required")
	ErrOutOfOrderStep     = errors.New("step timestamp is out of order")
	ErrStatusRegression   = errors.New("update would regress batch status")
	ErrWeightOutOfRange   = errors.New("new weight exceeds allowed range")
)

// DefaultWeightTolerance bounds how far currentWeight may exceed initialWeight.
const DefaultWeightTolerance = 0.10

// CropType represents the kind of produce in a batch
type CropType string

const (
	CropCoffee  CropType = "coffee"
	CropTea     CropType = "tea"
	CropFlowers CropType = "flowers"
)

// IsValid checks if the crop type is valid
func (c CropType) IsValid() bool {
	switch c {
	case CropCoffee, CropTea, CropFlowers:
		return true
	default:
		return false
	}
}

// BatchStatus represents the coarse lifecycle stage of a batch
type BatchStatus string

const (
	StatusHarvested  BatchStatus = "harvested"
	StatusProcessing BatchStatus = "processing"
	StatusExported   BatchStatus = "exported"
	StatusRetail     BatchStatus = "retail"
)

// IsValid checks if the status is valid
func (s BatchStatus) IsValid() bool {
	switch s {
	case StatusHarvested, StatusProcessing, StatusExported, StatusRetail:
		return true
	default:
		return false
	}
}

// Rank returns the position of the status along the lifecycle order.
// Unknown statuses rank below harvested.
func (s BatchStatus) Rank() int {
	switch s {
	case StatusHarvested:
		return 0
	case StatusProcessing:
		return 1
	case StatusExported:
		return 2
	case StatusRetail:
		return 3
	default:
		return -1
	}
}

// CanAdvanceTo reports whether moving to target is a forward (or equal) move.
// Status never regresses along the lifecycle.
func (s BatchStatus) CanAdvanceTo(target BatchStatus) bool {
	return target.Rank() >= s.Rank()
}

// Actor identifies who performed a journey step
type Actor struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// StepData is the optional measurement payload attached to a journey step
type StepData struct {
	NewWeightKg     float64 `bson:"newWeightKg,omitempty" json:"new_weight,omitempty"`
	MoistureContent string  `bson:"moistureContent,omitempty" json:"moisture_content,omitempty"`
	CuppingScore    float64 `bson:"cuppingScore,omitempty" json:"cupping_score,omitempty"`
	Notes           string  `bson:"notes,omitempty" json:"notes,omitempty"`
}

// IsZero reports whether the payload carries no data
func (d StepData) IsZero() bool {
	return d.NewWeightKg == 0 && d.MoistureContent == "" && d.CuppingScore == 0 && d.Notes == ""
}

// JourneyStep is one immutable custody event in a batch's history
type JourneyStep struct {
	Action    string    `bson:"action" json:"action"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Actor     Actor     `bson:"actor" json:"actor"`
	Location  string    `bson:"location,omitempty" json:"location,omitempty"`
	Data      *StepData `bson:"data,omitempty" json:"data,omitempty"`
}

// Batch is the aggregate root for the provenance ledger
type Batch struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BatchID         string             `bson:"batchId" json:"batchId"`
	PolicyID        string             `bson:"policyId,omitempty" json:"policyId,omitempty"`
	AssetName       string             `bson:"assetName,omitempty" json:"assetName,omitempty"`
	FarmerID        string             `bson:"farmerId" json:"farmerId"`
	FarmerName      string             `bson:"farmerName" json:"farmerName"`
	CropType        CropType           `bson:"cropType" json:"cropType"`
	Variety         string             `bson:"variety,omitempty" json:"variety,omitempty"`
	InitialWeightKg float64            `bson:"initialWeightKg" json:"initialWeightKg"`
	CurrentWeightKg *float64           `bson:"currentWeightKg,omitempty" json:"currentWeightKg,omitempty"`
	Location        string             `bson:"location" json:"location"`
	Region          string             `bson:"region,omitempty" json:"region,omitempty"`
	HarvestDate     time.Time          `bson:"harvestDate" json:"harvestDate"`
	Status          BatchStatus        `bson:"status" json:"status"`
	Grade           string             `bson:"grade,omitempty" json:"grade,omitempty"`
	CuppingScore    float64            `bson:"cuppingScore,omitempty" json:"cuppingScore,omitempty"`
	MoistureContent string             `bson:"moistureContent,omitempty" json:"moistureContent,omitempty"`
	AnchorTxToken   string             `bson:"anchorTxToken,omitempty" json:"anchorTxToken,omitempty"`
	Journey         []JourneyStep      `bson:"journey" json:"journey"`
	Version         int64              `bson:"version" json:"version"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-" json:"-"`
}

// HarvestSpec carries the validated inputs for registering a new batch
type HarvestSpec struct {
	BatchID     string
	PolicyID    string
	AssetName   string
	FarmerID    string
	FarmerName  string
	CropType    CropType
	Variety     string
	WeightKg    float64
	Location    string
	Region      string
	HarvestDate time.Time
	ActorID     string
	ActorName   string
}

// NewBatch creates a new Batch aggregate from a harvest registration.
// Creation appends the initial HARVESTED step so the journey is never empty.
func NewBatch(spec HarvestSpec) (*Batch, error) {
	if spec.WeightKg <= 0 {
		return nil, ErrInvalidWeight
	}
	if spec.Location == "" {
		return nil, ErrEmptyLocation
	}
	if !spec.CropType.IsValid() {
		return nil, ErrInvalidCropType
	}

	now := time.Now().UTC()
	harvestDate := spec.HarvestDate
	if harvestDate.IsZero() {
		harvestDate = now
	}

	actor := Actor{ID: spec.ActorID, Name: spec.ActorName}
	if actor.ID == "" {
		actor.ID = spec.FarmerID
	}
	if actor.Name == "" {
		actor.Name = spec.FarmerName
	}

	batch := &Batch{
		ID:              primitive.NewObjectID(),
		BatchID:         spec.BatchID,
		PolicyID:        spec.PolicyID,
		AssetName:       spec.AssetName,
		FarmerID:        spec.FarmerID,
		FarmerName:      spec.FarmerName,
		CropType:        spec.CropType,
		Variety:         spec.Variety,
		InitialWeightKg: spec.WeightKg,
		Location:        spec.Location,
		Region:          spec.Region,
		HarvestDate:     harvestDate,
		Status:          StatusHarvested,
		Journey: []JourneyStep{
			{
				Action:    ActionHarvested,
				Timestamp: harvestDate,
				Actor:     actor,
				Location:  spec.Location,
			},
		},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	batch.addDomainEvent(&BatchRegisteredEvent{
		BatchID:     batch.BatchID,
		FarmerID:    batch.FarmerID,
		CropType:    string(batch.CropType),
		Region:      batch.Region,
		WeightKg:    batch.InitialWeightKg,
		HarvestedAt: harvestDate,
	})

	return batch, nil
}

// LastStep returns the most recent journey step
func (b *Batch) LastStep() JourneyStep {
	return b.Journey[len(b.Journey)-1]
}

// EffectiveWeightKg returns the current weight, falling back to the initial weight
func (b *Batch) EffectiveWeightKg() float64 {
	if b.CurrentWeightKg != nil {
		return *b.CurrentWeightKg
	}
	return b.InitialWeightKg
}

// ApplyPlan commits a planned step to the batch: the step is appended, field
// deltas take effect, and the version advances. The plan must come from the
// transition engine against this batch's current state.
func (b *Batch) ApplyPlan(plan *StepPlan) {
	now := time.Now().UTC()
	previousStatus := b.Status

	b.Journey = append(b.Journey, plan.Step)

	if plan.Step.Data != nil {
		if plan.Step.Data.NewWeightKg != 0 {
			w := plan.Step.Data.NewWeightKg
			b.CurrentWeightKg = &w
		}
		if plan.Step.Data.MoistureContent != "" {
			b.MoistureContent = plan.Step.Data.MoistureContent
		}
		if plan.Step.Data.CuppingScore != 0 {
			b.CuppingScore = plan.Step.Data.CuppingScore
		}
	}
	if plan.Grade != "" {
		b.Grade = plan.Grade
	}

	b.Status = plan.NewStatus
	b.Version++
	b.UpdatedAt = now

	b.addDomainEvent(&StepAppendedEvent{
		BatchID:        b.BatchID,
		Action:         plan.Step.Action,
		ActorID:        plan.Step.Actor.ID,
		Location:       plan.Step.Location,
		StepIndex:      len(b.Journey) - 1,
		Version:        b.Version,
		PreviousStatus: string(previousStatus),
		NewStatus:      string(b.Status),
		AppendedAt:     now,
	})

	if previousStatus != b.Status {
		b.addDomainEvent(&StatusAdvancedEvent{
			BatchID:        b.BatchID,
			PreviousStatus: string(previousStatus),
			NewStatus:      string(b.Status),
			TriggerAction:  plan.Step.Action,
			AdvancedAt:     now,
		})
	}
}

// RecordAnchorToken stores the opaque confirmation token returned by the
// external anchoring collaborator. The token is never interpreted.
func (b *Batch) RecordAnchorToken(token string) {
	b.AnchorTxToken = token
	b.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the batch. Readers receive copies so that
// committed state is never shared mutable.
func (b *Batch) Clone() *Batch {
	cp := *b

	cp.Journey = make([]JourneyStep, len(b.Journey))
	copy(cp.Journey, b.Journey)
	for i := range cp.Journey {
		if cp.Journey[i].Data != nil {
			data := *cp.Journey[i].Data
			cp.Journey[i].Data = &data
		}
	}

	if b.CurrentWeightKg != nil {
		w := *b.CurrentWeightKg
		cp.CurrentWeightKg = &w
	}

	cp.DomainEvents = nil
	return &cp
}

// addDomainEvent adds a domain event
func (b *Batch) addDomainEvent(event DomainEvent) {
	b.DomainEvents = append(b.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (b *Batch) GetDomainEvents() []DomainEvent {
	return b.DomainEvents
}

// ClearDomainEvents clears all domain events
func (b *Batch) ClearDomainEvents() {
	b.DomainEvents = make([]DomainEvent, 0)
}

// GenerateBatchID mints a business id like ETH-COFFEE-9F3A21BC
func GenerateBatchID(crop CropType) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ETH-%s-%s", strings.ToUpper(string(crop)), suffix)
}
