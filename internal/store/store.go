// Package store defines storage interfaces for persisting and retrieving
// domain objects such as ticks, valuations, orders, positions, and signals.
package store

import (
	"context"
	"time"

	"optiq/internal/domain"
)

// TickStore persists and retrieves market-data tick history.
type TickStore interface {
	// WriteTicks persists a batch of ticks to storage.
	WriteTicks(ctx context.Context, ticks []domain.Tick) error

	// ReadTicks returns ticks for the given symbol within [start, end].
	ReadTicks(ctx context.Context, symbol string, start, end time.Time) ([]domain.Tick, error)
}

// Valuation is one portfolio-level mark taken at the end of a loop
// iteration.
type Valuation struct {
	Timestamp    time.Time `json:"timestamp"`
	TotalValue   float64   `json:"total_value"`
	UnrealizedPL float64   `json:"unrealized_pl"`
	RealizedPL   float64   `json:"realized_pl"`
	RiskLevel    float64   `json:"risk_level"`
	Positions    int       `json:"positions"`
}

// ValuationStore persists and retrieves the portfolio valuation history.
type ValuationStore interface {
	// WriteValuations appends valuation marks to storage.
	WriteValuations(ctx context.Context, marks []Valuation) error

	// ReadValuations returns marks within [start, end].
	ReadValuations(ctx context.Context, start, end time.Time) ([]Valuation, error)
}

// OrderStore persists and retrieves order records.
type OrderStore interface {
	// SaveOrder inserts or replaces an order in storage.
	SaveOrder(ctx context.Context, order *domain.Order) error

	// GetOrder retrieves a single order by its ID.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// ListOrders returns all orders matching the given status.
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)

	// UpdateOrder persists changes to an existing order.
	UpdateOrder(ctx context.Context, order *domain.Order) error
}

// PositionStore persists and retrieves position records.
type PositionStore interface {
	// SavePosition inserts or updates a position for a symbol.
	SavePosition(ctx context.Context, pos *domain.Position) error

	// GetPosition retrieves the current position for a symbol.
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error)

	// ListPositions returns all stored positions.
	ListPositions(ctx context.Context) ([]domain.Position, error)

	// DeletePosition removes the position for a symbol.
	DeletePosition(ctx context.Context, symbol string) error
}

// SignalStore persists and retrieves trading signals.
type SignalStore interface {
	// SaveSignal inserts a new signal into storage.
	SaveSignal(ctx context.Context, signal *domain.Signal) error

	// ListSignals returns the most recent signals for a strategy, up to limit.
	ListSignals(ctx context.Context, strategyID string, limit int) ([]domain.Signal, error)
}
