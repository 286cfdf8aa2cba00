package dto

import (
	"time"

	"github.com/ethio-origin/provenance-service/internal/domain"
)

// ActorResponse identifies who performed a journey step
type ActorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StepDataResponse carries the optional measurements of a journey step
type StepDataResponse struct {
	NewWeightKg     float64 `json:"new_weight,omitempty"`
	MoistureContent string  `json:"moisture_content,omitempty"`
	CuppingScore    float64 `json:"cupping_score,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

// JourneyStepResponse is one custody event in a batch's history
type JourneyStepResponse struct {
	Action    string            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     ActorResponse     `json:"actor"`
	Location  string            `json:"location,omitempty"`
	Data      *StepDataResponse `json:"data,omitempty"`
}

// BatchResponse is the full batch representation
type BatchResponse struct {
	ID              string                `json:"id"`
	BatchID         string                `json:"batchId"`
	PolicyID        string                `json:"policyId,omitempty"`
	AssetName       string                `json:"assetName,omitempty"`
	FarmerID        string                `json:"farmerId"`
	FarmerName      string                `json:"farmerName"`
	CropType        string                `json:"cropType"`
	Variety         string                `json:"variety,omitempty"`
	InitialWeightKg float64               `json:"initialWeightKg"`
	CurrentWeightKg *float64              `json:"currentWeightKg,omitempty"`
	Location        string                `json:"location"`
	Region          string                `json:"region,omitempty"`
	HarvestDate     time.Time             `json:"harvestDate"`
	Status          string                `json:"status"`
	Grade           string                `json:"grade,omitempty"`
	CuppingScore    float64               `json:"cuppingScore,omitempty"`
	MoistureContent string                `json:"moistureContent,omitempty"`
	AnchorTxToken   string                `json:"anchorTxToken,omitempty"`
	Journey         []JourneyStepResponse `json:"journey"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// BatchSummary is the compact batch representation used in lists
type BatchSummary struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batchId"`
	FarmerID    string    `json:"farmerId"`
	FarmerName  string    `json:"farmerName"`
	CropType    string    `json:"cropType"`
	Status      string    `json:"status"`
	WeightKg    float64   `json:"weightKg"`
	Region      string    `json:"region,omitempty"`
	HarvestDate time.Time `json:"harvestDate"`
	Steps       int       `json:"steps"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BatchListResponse is the paged batch list
type BatchListResponse struct {
	Batches []BatchSummary `json:"batches"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// JourneyResponse is the consumer-facing journey timeline
type JourneyResponse struct {
	BatchID     string                 `json:"batchId"`
	Status      string                 `json:"status"`
	Events      []domain.TimelineEvent `json:"events"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// FarmerResponse is the full farmer profile representation
type FarmerResponse struct {
	ID              string    `json:"id"`
	FarmerID        string    `json:"farmerId"`
	Name            string    `json:"name"`
	Region          string    `json:"region"`
	ElevationMeters int       `json:"elevationMeters,omitempty"`
	GPS             string    `json:"gps,omitempty"`
	Story           string    `json:"story,omitempty"`
	PhotoURL        string    `json:"photoUrl,omitempty"`
	WalletAddress   string    `json:"walletAddress,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FarmerListResponse is the paged farmer list
type FarmerListResponse struct {
	Farmers []FarmerResponse `json:"farmers"`
	Total   int              `json:"total"`
}

// FromBatch converts a batch aggregate to its full response
func FromBatch(b *domain.Batch) BatchResponse {
	resp := BatchResponse{
		ID:              b.ID.Hex(),
		BatchID:         b.BatchID,
		PolicyID:        b.PolicyID,
		AssetName:       b.AssetName,
		FarmerID:        b.FarmerID,
		FarmerName:      b.FarmerName,
		CropType:        string(b.CropType),
		Variety:         b.Variety,
		InitialWeightKg: b.InitialWeightKg,
		CurrentWeightKg: b.CurrentWeightKg,
		Location:        b.Location,
		Region:          b.Region,
		HarvestDate:     b.HarvestDate,
		Status:          string(b.Status),
		Grade:           b.Grade,
		CuppingScore:    b.CuppingScore,
		MoistureContent: b.MoistureContent,
		AnchorTxToken:   b.AnchorTxToken,
		Version:         b.Version,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}

	resp.Journey = make([]JourneyStepResponse, len(b.Journey))
	for i, step := range b.Journey {
		stepResp := JourneyStepResponse{
			Action:    step.Action,
			Timestamp: step.Timestamp,
			Actor:     ActorResponse{ID: step.Actor.ID, Name: step.Actor.Name},
			Location:  step.Location,
		}
		if step.Data != nil {
			stepResp.Data = &StepDataResponse{
				NewWeightKg:     step.Data.NewWeightKg,
				MoistureContent: step.Data.MoistureContent,
				CuppingScore:    step.Data.CuppingScore,
				Notes:           step.Data.Notes,
			}
		}
		resp.Journey[i] = stepResp
	}
	return resp
}

// SummaryFromBatch converts a batch aggregate to its list summary
func SummaryFromBatch(b *domain.Batch) BatchSummary {
	return BatchSummary{
		ID:          b.ID.Hex(),
		BatchID:     b.BatchID,
		FarmerID:    b.FarmerID,
		FarmerName:  b.FarmerName,
		CropType:    string(b.CropType),
		Status:      string(b.Status),
		WeightKg:    b.EffectiveWeightKg(),
		Region:      b.Region,
		HarvestDate: b.HarvestDate,
		Steps:       len(b.Journey),
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
	}
}

// FromJourneyView converts a projected timeline to its response
func FromJourneyView(view *domain.JourneyView) JourneyResponse {
	return JourneyResponse{
		BatchID:     view.BatchID,
		Status:      string(view.Status),
		Events:      view.Events,
		Metadata:    view.Metadata,
		GeneratedAt: view.GeneratedAt,
	}
}

// FromFarmer converts a farmer aggregate to its response
func FromFarmer(f *domain.Farmer) FarmerResponse {
	return FarmerResponse{
		ID:              f.ID.Hex(),
		FarmerID:        f.FarmerID,
		Name:            f.Name,
		Region:          f.Region,
		ElevationMeters: f.ElevationMeters,
		GPS:             f.GPS,
		Story:           f.Story,
		PhotoURL:        f.PhotoURL,
		WalletAddress:   f.WalletAddress,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}
