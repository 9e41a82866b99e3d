// Package broker defines the Broker and QuoteSource interfaces and provides
// a paper-trading simulator and an Alpaca-backed implementation.
package broker

import (
	"context"

	"optiq/internal/domain"
)

// Broker abstracts brokerage operations for order execution and account
// management.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "simulator").
	Name() string

	// SubmitOrder sends an order to the brokerage for execution.
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetPositions returns all current positions held at the brokerage.
	GetPositions(ctx context.Context) ([]domain.Position, error)

	// GetAccount returns a snapshot of the account's financial metrics.
	GetAccount(ctx context.Context) (*domain.AccountInfo, error)

	// Fills returns the stream of execution notifications. Each fill is
	// delivered once; consumers propagate it into the ledger.
	Fills() <-chan domain.Fill
}

// QuoteSource supplies market-data ticks to the decision loop. Poll returns
// the latest observations for the source's configured universe; it may
// return both plain trade ticks and option quote ticks.
type QuoteSource interface {
	// Name returns the source identifier.
	Name() string

	// Poll returns the latest ticks. Implementations should respect ctx for
	// cancellation of any underlying I/O.
	Poll(ctx context.Context) ([]domain.Tick, error)

	// LastPrice returns the most recent price seen for a symbol; ok is
	// false if the symbol has never ticked.
	LastPrice(symbol string) (float64, bool)
}
