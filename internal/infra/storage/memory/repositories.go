package memory

import (
	"context"
	"sort"
	"sync"

	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

// OccupancyRepository keeps occupancies in memory. Aggregates are copied on the
// way in and out so callers never share state with the store.
type OccupancyRepository struct {
	mu    sync.RWMutex
	items map[domainoccupancy.ID]domainoccupancy.Occupancy
}

func NewOccupancyRepository() *OccupancyRepository {
	return &OccupancyRepository{items: make(map[domainoccupancy.ID]domainoccupancy.Occupancy)}
}

func (r *OccupancyRepository) ByID(ctx context.Context, id domainoccupancy.ID) (*domainoccupancy.Occupancy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[id]
	if !ok {
		return nil, domainoccupancy.ErrNotFound
	}
	return detach(o), nil
}

// Save stores o, bumping its version. A stale version is rejected with
// ErrConcurrentUpdate.
func (r *OccupancyRepository) Save(ctx context.Context, o *domainoccupancy.Occupancy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[o.ID]; ok && current.Version != o.Version {
		return ErrConcurrentUpdate
	}
	o.Version++
	r.items[o.ID] = *detach(*o)
	return nil
}

func (r *OccupancyRepository) ListByProperty(ctx context.Context, propertyID domainoccupancy.PropertyID, window daterange.DateRange) ([]*domainoccupancy.Occupancy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domainoccupancy.Occupancy, 0)
	for _, o := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if o.PropertyID != propertyID || !o.Span.Overlaps(window) {
			continue
		}
		out = append(out, detach(o))
	}
	sortByStart(out)
	return out, nil
}

func (r *OccupancyRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func detach(o domainoccupancy.Occupancy) *domainoccupancy.Occupancy {
	o.ClearEvents()
	return &o
}

func sortByStart(items []*domainoccupancy.Occupancy) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Span.Start.Equal(items[j].Span.Start) {
			return items[i].Span.Start.Before(items[j].Span.Start)
		}
		return items[i].ID < items[j].ID
	})
}
