package cloudevents

import (
	"time"
)

// EventType constants for provenance domain events
const (
	// Batch lifecycle events
	BatchRegistered = "provenance.batch.registered"
	BatchUpdated    = "provenance.batch.updated"
	StatusChanged   = "provenance.batch.status-changed"

	// Anchor events
	AnchorRequested = "provenance.anchor.requested"
	AnchorConfirmed = "provenance.anchor.confirmed"

	// Farmer events
	FarmerRegistered = "provenance.farmer.registered"
)

// Source constants for event sources
const (
	SourceLedger  = "/provenance/ledger-service"
	SourceAnchor  = "/provenance/anchor-worker"
	SourceJourney = "/provenance/journey-projector"
)

// CloudEvent represents a CloudEvents v1.0 compliant event
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Provenance-specific extensions
	CorrelationID string `json:"provcorrelationid,omitempty"`
	BatchID       string `json:"provbatchid,omitempty"`
}

// BatchRegisteredData represents the data payload for BatchRegistered events
type BatchRegisteredData struct {
	BatchID     string    `json:"batchId"`
	FarmerID    string    `json:"farmerId"`
	CropType    string    `json:"cropType"`
	Region      string    `json:"region"`
	WeightKg    float64   `json:"weightKg"`
	HarvestedAt time.Time `json:"harvestedAt"`
}

// BatchUpdatedData represents the data payload for BatchUpdated events
type BatchUpdatedData struct {
	BatchID        string  `json:"batchId"`
	Action         string  `json:"action"`
	Actor          string  `json:"actor"`
	Location       string  `json:"location,omitempty"`
	StepIndex      int     `json:"stepIndex"`
	Version        int64   `json:"version"`
	NewWeightKg    float64 `json:"newWeightKg,omitempty"`
	CuppingScore   float64 `json:"cuppingScore,omitempty"`
	MoisturePct    string  `json:"moisturePct,omitempty"`
	PreviousStatus string  `json:"previousStatus"`
	NewStatus      string  `json:"newStatus"`
}

// StatusChangedData represents the data payload for StatusChanged events
type StatusChangedData struct {
	BatchID        string `json:"batchId"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus"`
	TriggerAction  string `json:"triggerAction"`
}

// AnchorRequestedData represents the data payload for AnchorRequested events
type AnchorRequestedData struct {
	BatchID  string      `json:"batchId"`
	Version  int64       `json:"version"`
	Metadata interface{} `json:"metadata"`
}

// FarmerRegisteredData represents the data payload for FarmerRegistered events
type FarmerRegisteredData struct {
	FarmerID      string `json:"farmerId"`
	Name          string `json:"name"`
	Region        string `json:"region"`
	WalletAddress string `json:"walletAddress,omitempty"`
}
