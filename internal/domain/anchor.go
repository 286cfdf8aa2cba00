package domain

import "fmt"

// CIP-25 metadata label for NFT minting transactions
const anchorMetadataLabel = "721"

// AnchorPayload is the CIP-25 shaped metadata snapshot handed to the external
// anchoring collaborator after a commit. The payload is a claim about the
// batch at one version; the ledger never waits on the anchor result.
type AnchorPayload struct {
	BatchID   string                 `json:"batchId"`
	Version   int64                  `json:"version"`
	PolicyID  string                 `json:"policyId"`
	AssetName string                 `json:"assetName"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// AnchorPolicyID is the policy key the batch is filed under in anchor
// metadata and the curated catalog
func (b *Batch) AnchorPolicyID() string {
	if b.PolicyID == "" {
		return "unassigned"
	}
	return b.PolicyID
}

// AnchorAssetName is the asset key within the policy, falling back to the
// batch id
func (b *Batch) AnchorAssetName() string {
	if b.AssetName == "" {
		return b.BatchID
	}
	return b.AssetName
}

// BuildAnchorPayload snapshots a batch into its anchor metadata. The nested
// shape under the 721 label follows policy id then asset name, so the payload
// can be dropped into a minting transaction unchanged.
func BuildAnchorPayload(b *Batch) *AnchorPayload {
	policyID := b.AnchorPolicyID()
	assetName := b.AnchorAssetName()

	asset := map[string]interface{}{
		"name":        fmt.Sprintf("%s %s", b.FarmerName, b.BatchID),
		"batchId":     b.BatchID,
		"version":     b.Version,
		"farmer":      b.FarmerName,
		"origin":      origin(b),
		"cropType":    string(b.CropType),
		"status":      string(b.Status),
		"harvestDate": b.HarvestDate.Format("2006-01-02"),
		"weightKg":    b.EffectiveWeightKg(),
		"steps":       len(b.Journey),
	}
	if b.Variety != "" {
		asset["variety"] = b.Variety
	}
	if b.Grade != "" {
		asset["grade"] = b.Grade
	}
	if b.CuppingScore != 0 {
		asset["cuppingScore"] = b.CuppingScore
	}
	if b.MoistureContent != "" {
		asset["moisture"] = b.MoistureContent
	}

	return &AnchorPayload{
		BatchID:   b.BatchID,
		Version:   b.Version,
		PolicyID:  policyID,
		AssetName: assetName,
		Metadata: map[string]interface{}{
			anchorMetadataLabel: map[string]interface{}{
				policyID: map[string]interface{}{
					assetName: asset,
				},
			},
		},
	}
}
