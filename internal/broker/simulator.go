package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"optiq/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// fillBuffer bounds the simulator's fill stream; the engine drains it every
// loop iteration.
const fillBuffer = 256

// PriceFunc resolves the current market price for a symbol.
type PriceFunc func(symbol string) (float64, bool)

// SimulatorBroker implements the Broker interface for paper trading. Market
// orders fill immediately at the current price from the attached PriceFunc;
// limit orders fill only when the price satisfies the limit. Fills are
// delivered on the Fills channel like a live broker feed.
type SimulatorBroker struct {
	mu        sync.Mutex
	price     PriceFunc
	orders    map[string]*domain.Order
	fills     chan domain.Fill
	cash      float64
	positions map[string]*domain.Position
}

// NewSimulatorBroker creates a SimulatorBroker that marks fills against
// prices from the given PriceFunc, starting with the given cash balance.
func NewSimulatorBroker(price PriceFunc, startingCash float64) *SimulatorBroker {
	return &SimulatorBroker{
		price:     price,
		orders:    make(map[string]*domain.Order),
		fills:     make(chan domain.Fill, fillBuffer),
		cash:      startingCash,
		positions: make(map[string]*domain.Position),
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// SubmitOrder records the order and attempts an immediate execution at the
// current market price. The returned order is always a pending
// acknowledgment; executions are reported only through the Fills channel,
// the same way a live broker feed delivers them.
func (b *SimulatorBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o := *order
	o.Status = domain.OrderStatusPending
	o.FilledQty = 0
	b.orders[o.ID] = &o
	ack := o

	price, ok := b.price(o.Symbol)
	if !ok {
		// No market yet; the order rests until a later submission cycle.
		return &ack, nil
	}

	if o.Type == domain.OrderTypeLimit {
		if !limitSatisfied(&o, price) {
			return &ack, nil
		}
		price = o.LimitPrice
	}

	b.execute(&o, o.Qty, price)
	return &ack, nil
}

func limitSatisfied(o *domain.Order, price float64) bool {
	if o.Side == domain.OrderSideBuy {
		return price <= o.LimitPrice
	}
	return price >= o.LimitPrice
}

// execute marks qty of the order filled at price, updates the simulated
// account, and emits the fill notification. Callers hold b.mu.
func (b *SimulatorBroker) execute(o *domain.Order, qty, price float64) {
	o.FilledAvgPrice = (o.FilledAvgPrice*o.FilledQty + price*qty) / (o.FilledQty + qty)
	o.FilledQty += qty
	if o.FilledQty >= o.Qty {
		o.Status = domain.OrderStatusFilled
	} else {
		o.Status = domain.OrderStatusPartiallyFilled
	}

	pos, ok := b.positions[o.Symbol]
	if !ok {
		pos = &domain.Position{Symbol: o.Symbol}
		b.positions[o.Symbol] = pos
	}
	signed := qty
	if o.Side == domain.OrderSideSell {
		signed = -qty
	}
	pos.Qty += signed
	pos.LastPrice = price
	b.cash -= signed * price

	select {
	case b.fills <- domain.Fill{
		OrderID:   o.ID,
		ExecID:    uuid.NewString(),
		Qty:       qty,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Feed is full; the fill is already reflected in broker state and
		// will be reconciled on the next position sync.
	}
}

// CancelOrder cancels the order if it is still active.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("simulator: unknown order %s", orderID)
	}
	if !o.Status.Active() {
		return fmt.Errorf("simulator: order %s is %s", orderID, o.Status)
	}
	o.Status = domain.OrderStatusCancelled
	return nil
}

// GetPositions returns copies of all simulated positions.
func (b *SimulatorBroker) GetPositions(_ context.Context) ([]domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, *p)
	}
	return positions, nil
}

// GetAccount returns the simulated account: cash plus positions marked at
// their latest fill prices.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*domain.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for _, p := range b.positions {
		if price, ok := b.price(p.Symbol); ok {
			equity += p.Qty * price
		} else {
			equity += p.Qty * p.LastPrice
		}
	}
	return &domain.AccountInfo{
		Equity:      equity,
		Cash:        b.cash,
		BuyingPower: b.cash,
	}, nil
}

// Fills returns the simulated execution feed.
func (b *SimulatorBroker) Fills() <-chan domain.Fill {
	return b.fills
}
