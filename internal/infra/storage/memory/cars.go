package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	domaincar "carrental/internal/domain/car"
)

// CarRepository is an in-memory car store for dev and tests.
type CarRepository struct {
	mu     sync.RWMutex
	items  map[domaincar.CarID]*domaincar.Car
	nextID atomic.Int64
}

func NewCarRepository() *CarRepository {
	return &CarRepository{items: make(map[domaincar.CarID]*domaincar.Car)}
}

// ByID returns a copy of the car or car.ErrCarNotFound.
func (r *CarRepository) ByID(ctx context.Context, id domaincar.CarID) (*domaincar.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, domaincar.ErrCarNotFound
	}
	cp := *c
	return &cp, nil
}

// Search filters, sorts and pages the catalog.
func (r *CarRepository) Search(ctx context.Context, params domaincar.SearchParams) (domaincar.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domaincar.Car, 0, len(r.items))
	for _, c := range r.items {
		select {
		case <-ctx.Done():
			return domaincar.SearchResult{}, ctx.Err()
		default:
		}
		if c.Deleted && !opts.IncludeDeleted {
			continue
		}
		if opts.OnlyAvailable && !c.Available {
			continue
		}
		if opts.Brand != "" && !strings.EqualFold(c.Brand, opts.Brand) {
			continue
		}
		if opts.MaxPricePerDay > 0 && c.PricePerDay.Amount > opts.MaxPricePerDay {
			continue
		}
		cp := *c
		matches = append(matches, &cp)
	}

	sort.Slice(matches, func(i, j int) bool {
		less := false
		switch opts.SortBy {
		case domaincar.SortByPrice:
			less = matches[i].PricePerDay.Amount < matches[j].PricePerDay.Amount
		case domaincar.SortByName:
			less = strings.ToLower(matches[i].Name) < strings.ToLower(matches[j].Name)
		default:
			less = matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		if opts.SortDesc {
			return !less && !equalByField(matches[i], matches[j], opts.SortBy)
		}
		return less
	})

	total := len(matches)
	if opts.Offset >= total {
		return domaincar.SearchResult{Items: []*domaincar.Car{}, Total: total}, nil
	}
	end := opts.Offset + opts.Limit
	if end > total {
		end = total
	}
	return domaincar.SearchResult{Items: matches[opts.Offset:end], Total: total}, nil
}

func equalByField(a, b *domaincar.Car, field domaincar.SortField) bool {
	switch field {
	case domaincar.SortByPrice:
		return a.PricePerDay.Amount == b.PricePerDay.Amount
	case domaincar.SortByName:
		return strings.EqualFold(a.Name, b.Name)
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

// Save stores or overwrites a car.
func (r *CarRepository) Save(ctx context.Context, c *domaincar.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Version++
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *CarRepository) NextID(ctx context.Context) (domaincar.CarID, error) {
	return domaincar.CarID(r.nextID.Add(1)), nil
}

// TouchBookingSet is a no-op at the repository level. The Unit wrapping this
// repository intercepts the call and takes the per-car lock.
func (r *CarRepository) TouchBookingSet(ctx context.Context, id domaincar.CarID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.items[id]; !ok {
		return domaincar.ErrCarNotFound
	}
	return nil
}

var _ domaincar.Repository = (*CarRepository)(nil)
