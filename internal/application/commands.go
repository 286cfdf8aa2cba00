package application

import "time"

// RegisterHarvestCommand represents a command to register a harvested batch
type RegisterHarvestCommand struct {
	// Optional explicit batch ID (will be generated if not provided)
	BatchID string `json:"batchId" binding:"omitempty,batch_id"`

	PolicyID  string `json:"policyId"`
	AssetName string `json:"assetName"`

	FarmerID   string `json:"farmerId" binding:"required"`
	FarmerName string `json:"farmerName" binding:"required"`

	CropType string  `json:"cropType" binding:"required,crop_type"`
	Variety  string  `json:"variety"`
	WeightKg float64 `json:"weightKg" binding:"required,gt=0"`

	Location    string    `json:"location" binding:"required"`
	Region      string    `json:"region"`
	HarvestDate time.Time `json:"harvestDate"`

	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
}

// AppendUpdateCommand represents a command to append a custody update
type AppendUpdateCommand struct {
	Action    string    `json:"action" binding:"required,action_code"`
	Timestamp time.Time `json:"timestamp"`

	ActorID   string `json:"actorId" binding:"required"`
	ActorName string `json:"actorName"`
	Location  string `json:"location"`

	NewWeightKg     float64 `json:"newWeightKg" binding:"omitempty,gt=0"`
	MoistureContent string  `json:"moistureContent" binding:"omitempty,moisture_pct"`
	CuppingScore    float64 `json:"cuppingScore" binding:"omitempty,gt=0,lte=100"`
	Grade           string  `json:"grade"`
	Notes           string  `json:"notes"`

	// AnchorTxToken is the opaque confirmation token returned by the
	// anchoring collaborator; stored verbatim, never interpreted.
	AnchorTxToken string `json:"anchorTxToken"`

	// Strict rejects updates whose action implies an earlier lifecycle stage
	Strict bool `json:"strict"`
}

// RegisterFarmerCommand represents a command to create a farmer profile
type RegisterFarmerCommand struct {
	FarmerID        string `json:"farmerId"`
	Name            string `json:"name" binding:"required"`
	Region          string `json:"region" binding:"required"`
	ElevationMeters int    `json:"elevationMeters" binding:"omitempty,gte=0"`
	GPS             string `json:"gps"`
	Story           string `json:"story"`
	PhotoURL        string `json:"photoUrl" binding:"omitempty,url"`
	WalletAddress   string `json:"walletAddress" binding:"omitempty,wallet_address"`
}

// UpdateFarmerCommand represents a command to correct a farmer profile
type UpdateFarmerCommand struct {
	Name            string `json:"name" binding:"required"`
	Region          string `json:"region" binding:"required"`
	ElevationMeters int    `json:"elevationMeters" binding:"omitempty,gte=0"`
	GPS             string `json:"gps"`
	Story           string `json:"story"`
	PhotoURL        string `json:"photoUrl" binding:"omitempty,url"`
	WalletAddress   string `json:"walletAddress" binding:"omitempty,wallet_address"`
}
