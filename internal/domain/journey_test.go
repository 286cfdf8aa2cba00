package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconForAction(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"HARVESTED", IconHarvest},
		{"PROCESSING_STARTED", IconProcessing},
		{"DRYING_COMPLETE", IconDrying},
		{"TRANSPORT_TO_MILL", IconTransport},
		{"ROASTING_DONE", IconRoast},
		{"RETAIL_ARRIVAL", IconRetail},
		{"QUALITY_CHECK", IconGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, IconForAction(tt.action))
		})
	}
}

func TestProjectJourney(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)
	engine := NewEngine(0)

	plan, err := engine.Plan(batch, UpdateInput{
		Action:          "PROCESSING_STARTED",
		Timestamp:       batch.HarvestDate.Add(24 * time.Hour),
		ActorName:       "Yirgacheffe Coop",
		Location:        "Washing Station",
		NewWeightKg:     55,
		MoistureContent: "11.5%",
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)

	events := ProjectJourney(batch)
	require.Len(t, events, 3)

	assert.Equal(t, 1, events[0].ID)
	assert.Equal(t, "Harvested", events[0].Title)
	assert.Equal(t, IconHarvest, events[0].Icon)
	assert.Equal(t, TimelineCompleted, events[0].Status)
	assert.Equal(t, "January 10, 2026", events[0].Date)

	assert.Equal(t, 2, events[1].ID)
	assert.Equal(t, "Processing Started", events[1].Title)
	assert.Equal(t, IconProcessing, events[1].Icon)
	assert.Equal(t, TimelineCompleted, events[1].Status)
	assert.Equal(t, "Yirgacheffe Coop", events[1].Actor)

	require.Len(t, events[1].Details, 2)
	assert.Equal(t, EventDetail{Label: "Weight", Value: "55.0 kg"}, events[1].Details[0])
	assert.Equal(t, EventDetail{Label: "Moisture", Value: "11.5%"}, events[1].Details[1])

	// Only the synthetic closing event is current
	assert.Equal(t, "Ready for You", events[2].Title)
	assert.Equal(t, TimelineCurrent, events[2].Status)
}

func TestProjectJourney_ClosingEventOnEveryJourney(t *testing.T) {
	// A freshly registered batch already shows the closing event
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	events := ProjectJourney(batch)
	require.Len(t, events, 2)
	assert.Equal(t, TimelineCompleted, events[0].Status)
	last := events[1]
	assert.Equal(t, "Ready for You", last.Title)
	assert.Equal(t, TimelineCurrent, last.Status)
	assert.Equal(t, IconRetail, last.Icon)
	assert.Contains(t, last.Description, "Yirgacheffe")
}

func TestProjectJourney_Idempotent(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)
	engine := NewEngine(0)

	plan, err := engine.Plan(batch, UpdateInput{
		Action:    "RETAIL_ARRIVAL",
		Timestamp: batch.HarvestDate.Add(time.Hour),
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)

	first := ProjectJourney(batch)
	second := ProjectJourney(batch)
	assert.Equal(t, first, second)
	assert.Len(t, batch.Journey, 2)
}

func TestHumanizeAction(t *testing.T) {
	assert.Equal(t, "Processing Started", humanizeAction("PROCESSING_STARTED"))
	assert.Equal(t, "Quality Check", humanizeAction("quality-check"))
	assert.Equal(t, "Harvested", humanizeAction("HARVESTED"))
}

func TestNewJourneyView(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	view := NewJourneyView(batch)
	assert.Equal(t, batch.BatchID, view.BatchID)
	assert.Equal(t, StatusHarvested, view.Status)
	assert.Len(t, view.Events, 2)
	assert.False(t, view.GeneratedAt.IsZero())
}
