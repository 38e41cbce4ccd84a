package car

import (
	"context"
	"errors"
	"strings"
	"time"

	"carrental/internal/domain/shared/money"
)

var (
	ErrCarNotFound      = errors.New("car: not found")
	ErrInvalidDailyRate = errors.New("car: price per day must be positive")
	ErrNameRequired     = errors.New("car: name required")
)

type CarID int64

// Car is a single rentable vehicle. Available is a derived cache over the car's
// active bookings, kept in sync by booking transitions and repairable on read;
// it must never be treated as the source of truth.
type Car struct {
	ID          CarID
	Name        string
	Brand       string
	PricePerDay money.Money
	Available   bool
	Deleted     bool
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
}

type CreateParams struct {
	ID          CarID
	Name        string
	Brand       string
	PricePerDay money.Money
	ImageURL    string
	CreatedAt   time.Time
}

func NewCar(params CreateParams) (*Car, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	if !params.PricePerDay.IsPositive() {
		return nil, ErrInvalidDailyRate
	}
	now := params.CreatedAt.UTC()
	return &Car{
		ID:          params.ID,
		Name:        strings.TrimSpace(params.Name),
		Brand:       strings.TrimSpace(params.Brand),
		PricePerDay: params.PricePerDay,
		Available:   true,
		ImageURL:    params.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkUnavailable flips the derived availability cache off.
func (c *Car) MarkUnavailable(now time.Time) {
	c.Available = false
	c.UpdatedAt = now.UTC()
}

// MarkAvailable flips the derived availability cache back on.
func (c *Car) MarkAvailable(now time.Time) {
	c.Available = true
	c.UpdatedAt = now.UTC()
}

// SoftDelete tombstones the car. Bookings referencing it are removed by the store.
func (c *Car) SoftDelete(now time.Time) {
	c.Deleted = true
	c.UpdatedAt = now.UTC()
}

// SortField names an allowed catalog sort key.
type SortField string

const (
	SortByPrice   SortField = "price"
	SortByName    SortField = "name"
	SortByCreated SortField = "created"
)

// SearchParams is a plain query descriptor: filters, sort and paging interpreted
// by each repository implementation.
type SearchParams struct {
	Brand          string
	MaxPricePerDay int64
	OnlyAvailable  bool
	IncludeDeleted bool
	SortBy         SortField
	SortDesc       bool
	Offset         int
	Limit          int
}

// Normalized applies defaults and clamps paging bounds.
func (p SearchParams) Normalized() SearchParams {
	out := p
	out.Brand = strings.TrimSpace(p.Brand)
	if out.SortBy == "" {
		out.SortBy = SortByCreated
	}
	if out.Limit <= 0 || out.Limit > 100 {
		out.Limit = 20
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

type SearchResult struct {
	Items []*Car
	Total int
}

// Repository is the persistence port for cars.
type Repository interface {
	ByID(ctx context.Context, id CarID) (*Car, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Save(ctx context.Context, car *Car) error
	NextID(ctx context.Context) (CarID, error)

	// TouchBookingSet marks the car's booking set as modified inside the
	// current transaction. Concurrent units touching the same car conflict at
	// commit (or block until the winner commits), which serializes every
	// check-then-write sequence over one car's bookings. Units for different
	// cars proceed independently.
	TouchBookingSet(ctx context.Context, id CarID) error
}
