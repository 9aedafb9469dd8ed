package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
)

// Snapshot is one published facility set. It is never modified after
// publication; readers receive clones of its facilities.
type Snapshot struct {
	Facilities   []*entities.Facility `json:"facilities"`
	ServiceNames map[string]string    `json:"serviceNames"`
	Pending      []string             `json:"pending,omitempty"`

	index map[string]*entities.Facility
}

// NewSnapshot indexes facilities, which must be sorted by id and unique
func NewSnapshot(facilities []*entities.Facility, serviceNames map[string]string, pending []string) *Snapshot {
	s := &Snapshot{Facilities: facilities, ServiceNames: serviceNames, Pending: pending}
	s.buildIndex()
	return s
}

func (s *Snapshot) buildIndex() {
	s.index = make(map[string]*entities.Facility, len(s.Facilities))
	for _, f := range s.Facilities {
		s.index[f.ID] = f
	}
}

// Facility returns the published facility for id
func (s *Snapshot) Facility(id string) (*entities.Facility, bool) {
	f, ok := s.index[id]
	return f, ok
}

// Len is the number of published facilities
func (s *Snapshot) Len() int {
	return len(s.Facilities)
}

const snapshotCacheKey = "snapshot"

// SnapshotCache keeps the last published snapshot in a shared cache so a
// restarted instance can serve before its first reload completes.
type SnapshotCache struct {
	cache providers.CacheProvider
	ttl   time.Duration
}

// NewSnapshotCache creates a snapshot cache. ttl of zero keeps entries forever.
func NewSnapshotCache(cache providers.CacheProvider, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: cache, ttl: ttl}
}

// Save stores snap
func (c *SnapshotCache) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.cache.Set(ctx, snapshotCacheKey, data, int(c.ttl.Seconds()))
}

// Load returns the cached snapshot or providers.ErrCacheMiss
func (c *SnapshotCache) Load(ctx context.Context) (*Snapshot, error) {
	data, err := c.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	snap.buildIndex()
	return &snap, nil
}
