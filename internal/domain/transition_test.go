package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAction(t *testing.T) {
	tests := []struct {
		action     string
		want       BatchStatus
		recognized bool
	}{
		{"PROCESSING_STARTED", StatusProcessing, true},
		{"WET_PROCESSING_DONE", StatusProcessing, true},
		{"EXPORT_CLEARED", StatusExported, true},
		{"READY_FOR_EXPORT", StatusExported, true},
		{"RETAIL_ARRIVAL", StatusRetail, true},
		{"retail_arrival", StatusRetail, true},
		{"QUALITY_CHECK", "", false},
		{"DRYING_STARTED", "", false},
		{"HARVESTED", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			got, ok := ClassifyAction(tt.action)
			assert.Equal(t, tt.recognized, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	steps := func(actions ...string) []JourneyStep {
		journey := make([]JourneyStep, len(actions))
		for i, a := range actions {
			journey[i] = JourneyStep{Action: a}
		}
		return journey
	}

	tests := []struct {
		name    string
		journey []JourneyStep
		want    BatchStatus
	}{
		{"harvest only", steps("HARVESTED"), StatusHarvested},
		{"through processing", steps("HARVESTED", "PROCESSING_STARTED"), StatusProcessing},
		{"full journey", steps("HARVESTED", "PROCESSING_STARTED", "EXPORT_CLEARED", "RETAIL_ARRIVAL"), StatusRetail},
		{"late processing marker does not regress", steps("HARVESTED", "EXPORT_CLEARED", "PROCESSING_AUDIT"), StatusExported},
		{"unrecognized actions keep harvested", steps("HARVESTED", "QUALITY_CHECK", "DRYING_STARTED"), StatusHarvested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.journey))
		})
	}
}

func TestEngine_Plan_StatusTransitions(t *testing.T) {
	engine := NewEngine(0)
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	advance := func(action string, offset time.Duration) {
		plan, err := engine.Plan(batch, UpdateInput{
			Action:    action,
			Timestamp: batch.HarvestDate.Add(offset),
		})
		require.NoError(t, err)
		batch.ApplyPlan(plan)
	}

	advance("PROCESSING_STARTED", time.Hour)
	assert.Equal(t, StatusProcessing, batch.Status)

	advance("EXPORT_CLEARED", 2*time.Hour)
	assert.Equal(t, StatusExported, batch.Status)

	advance("RETAIL_ARRIVAL", 3*time.Hour)
	assert.Equal(t, StatusRetail, batch.Status)
}

func TestEngine_Plan_UnrecognizedActionKeepsStatus(t *testing.T) {
	engine := NewEngine(0)
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	plan, err := engine.Plan(batch, UpdateInput{
		Action:    "QUALITY_CHECK",
		Timestamp: batch.HarvestDate.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, plan.Recognized)
	assert.False(t, plan.StatusChanged)

	batch.ApplyPlan(plan)
	assert.Equal(t, StatusHarvested, batch.Status)
	assert.Len(t, batch.Journey, 2)
}

func TestEngine_Plan_BackwardMarker(t *testing.T) {
	engine := NewEngine(0)
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	plan, err := engine.Plan(batch, UpdateInput{
		Action:    "EXPORT_CLEARED",
		Timestamp: batch.HarvestDate.Add(time.Hour),
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)
	require.Equal(t, StatusExported, batch.Status)

	// Permissive by default: the step is recorded, the status holds
	plan, err = engine.Plan(batch, UpdateInput{
		Action:    "PROCESSING_AUDIT",
		Timestamp: batch.HarvestDate.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)
	assert.Equal(t, StatusExported, batch.Status)
	assert.Len(t, batch.Journey, 3)

	// Strict mode rejects the same update
	_, err = engine.Plan(batch, UpdateInput{
		Action:    "PROCESSING_AUDIT",
		Timestamp: batch.HarvestDate.Add(3 * time.Hour),
		Strict:    true,
	})
	assert.ErrorIs(t, err, ErrStatusRegression)
}

func TestEngine_Plan_OutOfOrderTimestamp(t *testing.T) {
	engine := NewEngine(0)
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	_, err = engine.Plan(batch, UpdateInput{
		Action:    "PROCESSING_STARTED",
		Timestamp: batch.HarvestDate.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrOutOfOrderStep)

	// Equal timestamps are allowed
	plan, err := engine.Plan(batch, UpdateInput{
		Action:    "PROCESSING_STARTED",
		Timestamp: batch.HarvestDate,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, plan.NewStatus)
}

func TestEngine_Plan_WeightTolerance(t *testing.T) {
	engine := NewEngine(0.10)
	batch, err := NewBatch(validHarvestSpec()) // 60kg initial
	require.NoError(t, err)

	// 66kg is exactly at the ceiling
	plan, err := engine.Plan(batch, UpdateInput{
		Action:      "WEIGHED",
		Timestamp:   batch.HarvestDate.Add(time.Hour),
		NewWeightKg: 66,
	})
	require.NoError(t, err)
	assert.Equal(t, 66.0, plan.Step.Data.NewWeightKg)

	_, err = engine.Plan(batch, UpdateInput{
		Action:      "WEIGHED",
		Timestamp:   batch.HarvestDate.Add(time.Hour),
		NewWeightKg: 66.1,
	})
	assert.ErrorIs(t, err, ErrWeightOutOfRange)

	_, err = engine.Plan(batch, UpdateInput{
		Action:      "WEIGHED",
		Timestamp:   batch.HarvestDate.Add(time.Hour),
		NewWeightKg: -1,
	})
	assert.ErrorIs(t, err, ErrWeightOutOfRange)
}

func TestEngine_Plan_EmptyAction(t *testing.T) {
	engine := NewEngine(0)
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	_, err = engine.Plan(batch, UpdateInput{Action: "   "})
	assert.ErrorIs(t, err, ErrEmptyAction)
}

func TestEngine_Plan_NormalizesAction(t *testing.T) {
	engine := NewEngine(0)
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	plan, err := engine.Plan(batch, UpdateInput{
		Action:    " drying_started ",
		Timestamp: batch.HarvestDate.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "DRYING_STARTED", plan.Step.Action)
}
