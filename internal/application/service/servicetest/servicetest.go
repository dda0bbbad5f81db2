// Package servicetest provides in-memory implementations of the service
// ports for use in tests.
package servicetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/career-path/internal/application/service"
)

// MemCache is a LocalCache backed by a map of JSON blobs.
type MemCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	LoadErr error
}

func NewMemCache() *MemCache {
	return &MemCache{entries: map[string][]byte{}}
}

func key(id uuid.UUID, k service.CacheKey) string {
	return id.String() + ":" + string(k)
}

func (c *MemCache) Load(_ context.Context, id uuid.UUID, k service.CacheKey, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LoadErr != nil {
		return false, c.LoadErr
	}
	raw, ok := c.entries[key(id, k)]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		delete(c.entries, key(id, k))
		return false, nil
	}
	return true, nil
}

func (c *MemCache) Store(_ context.Context, id uuid.UUID, k service.CacheKey, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(id, k)] = raw
	return nil
}

func (c *MemCache) Delete(_ context.Context, id uuid.UUID, keys ...service.CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, key(id, k))
	}
	return nil
}

func (c *MemCache) Has(id uuid.UUID, k service.CacheKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key(id, k)]
	return ok
}

// Put stores raw bytes as-is, e.g. to plant a corrupt entry.
func (c *MemCache) Put(id uuid.UUID, k service.CacheKey, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(id, k)] = raw
}

// Events records everything published to it.
type Events struct {
	mu       sync.Mutex
	profiles []service.ProfileEvent
	roadmaps []service.RoadmapEvent
}

func (e *Events) PublishProfileEvent(_ context.Context, ev service.ProfileEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles = append(e.profiles, ev)
	return nil
}

func (e *Events) PublishRoadmapEvent(_ context.Context, ev service.RoadmapEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roadmaps = append(e.roadmaps, ev)
	return nil
}

func (e *Events) ProfileEvents() []service.ProfileEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]service.ProfileEvent(nil), e.profiles...)
}

func (e *Events) RoadmapEvents() []service.RoadmapEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]service.RoadmapEvent(nil), e.roadmaps...)
}
