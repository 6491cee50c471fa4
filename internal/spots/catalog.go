package spots

import (
	"sort"
	"sync"
	"time"

	"parking-reservation-backend/internal/booking"
)

// Catalog is the last spot snapshot fetched from the backend.
type Catalog struct {
	mu        sync.RWMutex
	spots     []booking.Spot
	byID      map[string]booking.Spot
	updatedAt time.Time
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]booking.Spot)}
}

// Replace swaps in a new snapshot, sorted by label.
func (c *Catalog) Replace(spots []booking.Spot, at time.Time) {
	sorted := make([]booking.Spot, len(spots))
	copy(sorted, spots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Label != sorted[j].Label {
			return sorted[i].Label < sorted[j].Label
		}
		return sorted[i].ID < sorted[j].ID
	})

	byID := make(map[string]booking.Spot, len(sorted))
	for _, s := range sorted {
		byID[s.ID] = s
	}

	c.mu.Lock()
	c.spots = sorted
	c.byID = byID
	c.updatedAt = at
	c.mu.Unlock()
}

// List returns a copy of the snapshot and when it was taken.
func (c *Catalog) List() ([]booking.Spot, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]booking.Spot, len(c.spots))
	copy(out, c.spots)
	return out, c.updatedAt
}

// Lookup finds a spot by ID.
func (c *Catalog) Lookup(id string) (booking.Spot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}
