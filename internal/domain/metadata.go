package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// MetadataCatalog holds curated on-chain style metadata keyed by policy id
// and asset name. Lookups that miss are not errors; enrichment is optional.
type MetadataCatalog struct {
	mu      sync.RWMutex
	entries map[string]map[string]map[string]interface{}
}

// NewMetadataCatalog returns an empty catalog
func NewMetadataCatalog() *MetadataCatalog {
	return &MetadataCatalog{
		entries: make(map[string]map[string]map[string]interface{}),
	}
}

// LoadMetadataCatalog reads a catalog from a JSON file shaped
// {policyId: {assetName: {field: value}}}. An empty path yields an empty
// catalog.
func LoadMetadataCatalog(path string) (*MetadataCatalog, error) {
	catalog := NewMetadataCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata catalog: %w", err)
	}
	if err := json.Unmarshal(raw, &catalog.entries); err != nil {
		return nil, fmt.Errorf("parse metadata catalog: %w", err)
	}
	return catalog, nil
}

// Lookup returns the curated metadata for an asset, if any
func (c *MetadataCatalog) Lookup(policyID, assetName string) (map[string]interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	assets, ok := c.entries[policyID]
	if !ok {
		return nil, false
	}
	fields, ok := assets[assetName]
	if !ok {
		return nil, false
	}
	return fields, true
}

// Put stores curated metadata for an asset
func (c *MetadataCatalog) Put(policyID, assetName string, fields map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[policyID] == nil {
		c.entries[policyID] = make(map[string]map[string]interface{})
	}
	c.entries[policyID][assetName] = fields
}

// Size returns the number of assets in the catalog
func (c *MetadataCatalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, assets := range c.entries {
		n += len(assets)
	}
	return n
}
