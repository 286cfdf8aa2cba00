package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAnchorPayload(t *testing.T) {
	spec := validHarvestSpec()
	spec.PolicyID = "policy-abc123"
	spec.AssetName = "YirgacheffeLot42"
	batch, err := NewBatch(spec)
	require.NoError(t, err)

	engine := NewEngine(0)
	plan, err := engine.Plan(batch, UpdateInput{
		Action:       "PROCESSING_STARTED",
		Timestamp:    batch.HarvestDate.Add(time.Hour),
		NewWeightKg:  55,
		CuppingScore: 88,
	})
	require.NoError(t, err)
	batch.ApplyPlan(plan)

	payload := BuildAnchorPayload(batch)
	assert.Equal(t, batch.BatchID, payload.BatchID)
	assert.Equal(t, int64(2), payload.Version)

	label, ok := payload.Metadata["721"].(map[string]interface{})
	require.True(t, ok)
	assets, ok := label["policy-abc123"].(map[string]interface{})
	require.True(t, ok)
	asset, ok := assets["YirgacheffeLot42"].(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, batch.BatchID, asset["batchId"])
	assert.Equal(t, "processing", asset["status"])
	assert.Equal(t, 55.0, asset["weightKg"])
	assert.Equal(t, 88.0, asset["cuppingScore"])
	assert.Equal(t, 2, asset["steps"])
}

func TestBuildAnchorPayload_Defaults(t *testing.T) {
	batch, err := NewBatch(validHarvestSpec())
	require.NoError(t, err)

	payload := BuildAnchorPayload(batch)
	assert.Equal(t, "unassigned", payload.PolicyID)
	assert.Equal(t, batch.BatchID, payload.AssetName)
}

func TestMetadataCatalog(t *testing.T) {
	catalog := NewMetadataCatalog()
	assert.Equal(t, 0, catalog.Size())

	_, found := catalog.Lookup("policy-1", "asset-1")
	assert.False(t, found)

	catalog.Put("policy-1", "asset-1", map[string]interface{}{"image": "ipfs://abc"})
	fields, found := catalog.Lookup("policy-1", "asset-1")
	require.True(t, found)
	assert.Equal(t, "ipfs://abc", fields["image"])
	assert.Equal(t, 1, catalog.Size())
}

func TestLoadMetadataCatalog_EmptyPath(t *testing.T) {
	catalog, err := LoadMetadataCatalog("")
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Size())
}
