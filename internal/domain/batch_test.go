package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHarvestSpec() HarvestSpec {
	return HarvestSpec{
		BatchID:     "ETH-COFFEE-A1B2C3D4",
		FarmerID:    "FARM-001",
		FarmerName:  "Abebe Kebede",
		CropType:    CropCoffee,
		Variety:     "Heirloom",
		WeightKg:    60,
		Location:    "Yirgacheffe Washing Station",
		Region:      "Yirgacheffe",
		HarvestDate: time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC),
	}
}

func TestNewBatch(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	assert.Equal(t, "ETH-COFFEE-A1B2C3D4", batch.BatchID)
	assert.Equal(t, StatusHarvested, batch.Status)
	assert.Equal(t, int64(1), batch.Version)
	assert.Equal(t, 60.0, batch.InitialWeightKg)
	assert.Nil(t, batch.CurrentWeightKg)

	// Creation seeds the journey; it is never empty
	require.Len(t, batch.Journey, 1)
	assert.Equal(t, ActionHarvested, batch.Journey[0].Action)
	assert.Equal(t, "Abebe Kebede", batch.Journey[0].Actor.Name)
	assert.Equal(t, batch.HarvestDate, batch.Journey[0].Timestamp)

	events := batch.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "batch.registered", events[0].EventType())
}

func TestNewBatch_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HarvestSpec)
		wantErr error
	}{
		{
			name:    "zero weight",
			mutate:  func(s *HarvestSpec) { s.WeightKg = 0 },
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "negative weight",
			mutate:  func(s *HarvestSpec) { s.WeightKg = -5 },
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "missing location",
			mutate:  func(s *HarvestSpec) { s.Location = "" },
			wantErr: ErrEmptyLocation,
		},
		{
			name:    "unknown crop",
			mutate:  func(s *HarvestSpec) { s.CropType = "bananas" },
			wantErr: ErrInvalidCropType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validHarvestSpec()
			tt.mutate(&spec)
			_, err := NewBatch(spec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBatchStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, StatusHarvested.CanAdvanceTo(StatusProcessing))
	assert.True(t, StatusProcessing.CanAdvanceTo(StatusRetail))
	assert.True(t, StatusExported.CanAdvanceTo(StatusExported))
	assert.False(t, StatusRetail.CanAdvanceTo(StatusExported))
	assert.False(t, StatusProcessing.CanAdvanceTo(StatusHarvested))
}

func TestBatch_ApplyPlan(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)
	batch.ClearDomainEvents()

	engine := NewEngine(0)
	plan, err := engine.Plan(batch, UpdateInput{
		Action:          "PROCESSING_STARTED",
		Timestamp:       batch.HarvestDate.Add(24 * time.Hour),
		ActorID:         "COOP-01",
		ActorName:       "Yirgacheffe Coop",
		NewWeightKg:     55,
		MoistureContent: "11.5%",
	})
	require.NoError(t, err)

	batch.ApplyPlan(plan)

	assert.Equal(t, StatusProcessing, batch.Status)
	assert.Equal(t, int64(2), batch.Version)
	require.NotNil(t, batch.CurrentWeightKg)
	assert.Equal(t, 55.0, *batch.CurrentWeightKg)
	assert.Equal(t, "11.5%", batch.MoistureContent)
	require.Len(t, batch.Journey, 2)

	// A status change raises both step and status events
	events := batch.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "batch.step-appended", events[0].EventType())
	assert.Equal(t, "batch.status-advanced", events[1].EventType())
}

func TestBatch_ApplyPlan_PartialData(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)
	engine := NewEngine(0)

	first, err := engine.Plan(batch, UpdateInput{
		Action:       "QUALITY_CHECK",
		Timestamp:    batch.HarvestDate.Add(time.Hour),
		NewWeightKg:  58,
		CuppingScore: 87.5,
	})
	require.NoError(t, err)
	batch.ApplyPlan(first)

	// An update without measurements overwrites nothing
	second, err := engine.Plan(batch, UpdateInput{
		Action:    "TRANSPORT_STARTED",
		Timestamp: batch.HarvestDate.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	batch.ApplyPlan(second)

	require.NotNil(t, batch.CurrentWeightKg)
	assert.Equal(t, 58.0, *batch.CurrentWeightKg)
	assert.Equal(t, 87.5, batch.CuppingScore)
	assert.Equal(t, StatusHarvested, batch.Status)
}

func TestBatch_Clone(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)
	engine := NewEngine(0)

	plan, err := engine.Plan(batch, UpdateInput{
		Action:      "PROCESSING_STARTED",
		Timestamp:   batch.HarvestDate.Add(time.Hour),
		NewWeightKg: 57,
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)

	clone := batch.Clone()
	clone.Journey[1].Data.NewWeightKg = 1
	*clone.CurrentWeightKg = 1
	clone.Journey = append(clone.Journey, JourneyStep{Action: "X"})

	assert.Equal(t, 57.0, batch.Journey[1].Data.NewWeightKg)
	assert.Equal(t, 57.0, *batch.CurrentWeightKg)
	assert.Len(t, batch.Journey, 2)
	assert.Nil(t, clone.DomainEvents)
}

func TestGenerateBatchID(t *testing.T) {
	id := GenerateBatchID(CropCoffee)
	assert.True(t, strings.HasPrefix(id, "ETH-COFFEE-"))
	assert.Len(t, id, len("ETH-COFFEE-")+8)
	assert.NotEqual(t, id, GenerateBatchID(CropCoffee))
}
