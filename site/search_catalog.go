package site

import (
	"encoding/json"
	"sync"
)

// SearchCatalog holds the serialized search index built on the last reload.
type SearchCatalog struct {
	mu      sync.RWMutex
	payload json.RawMessage
}

func newSearchCatalog() *SearchCatalog {
	return &SearchCatalog{}
}

func (c *SearchCatalog) Update(payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(payload) == 0 {
		c.payload = nil
		return
	}
	c.payload = append(json.RawMessage(nil), payload...)
}

// Snapshot returns a copy of the payload, or nil before the first update.
func (c *SearchCatalog) Snapshot() json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.payload) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), c.payload...)
}
