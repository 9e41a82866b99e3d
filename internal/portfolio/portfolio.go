// Package portfolio implements the concurrency-safe ledger of positions and
// orders: the single authoritative owner of both sets, their fill-driven
// updates, and aggregate valuation.
package portfolio

import (
	"math"
	"sync"
	"time"

	"optiq/internal/domain"
)

// Portfolio owns the position and order sets. Every public operation holds
// one guard for its full duration, so a fill arriving from the broker feed
// and a loop iteration reading positions can never interleave mid-update.
// Readers always receive copies.
type Portfolio struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
	orders    map[string]*domain.Order
	seenExecs map[string]struct{}
}

// New creates an empty Portfolio.
func New() *Portfolio {
	return &Portfolio{
		positions: make(map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
		seenExecs: make(map[string]struct{}),
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Positions returns a point-in-time copy of all positions.
func (p *Portfolio) Positions() []domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out
}

// Position returns the position for symbol, or a zero-valued position with
// the symbol set if none exists. Lookup misses are never errors.
func (p *Portfolio) Position(symbol string) domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if pos, ok := p.positions[symbol]; ok {
		return *pos
	}
	return domain.Position{Symbol: symbol}
}

// OpenOrders returns a copy of all orders that may still receive fills.
func (p *Portfolio) OpenOrders() []domain.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []domain.Order
	for _, o := range p.orders {
		if o.Status.Active() {
			out = append(out, *o)
		}
	}
	return out
}

// OrdersFor returns copies of all orders for the given symbol, in no
// particular order.
func (p *Portfolio) OrdersFor(symbol string) []domain.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []domain.Order
	for _, o := range p.orders {
		if o.Symbol == symbol {
			out = append(out, *o)
		}
	}
	return out
}

// Order returns the stored order with the given id; ok is false on a miss.
func (p *Portfolio) Order(id string) (domain.Order, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if o, ok := p.orders[id]; ok {
		return *o, true
	}
	return domain.Order{}, false
}

// TotalValue sums Qty*LastPrice across all positions at the instant of the
// call.
func (p *Portfolio) TotalValue() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total float64
	for _, pos := range p.positions {
		total += pos.Qty * pos.LastPrice
	}
	return total
}

// TotalUnrealizedPL sums unrealized profit and loss across all positions.
func (p *Portfolio) TotalUnrealizedPL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total float64
	for _, pos := range p.positions {
		total += pos.UnrealizedPL
	}
	return total
}

// TotalRealizedPL sums realized profit and loss across all positions.
func (p *Portfolio) TotalRealizedPL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total float64
	for _, pos := range p.positions {
		total += pos.RealizedPL
	}
	return total
}

// GrossExposure sums |Qty*LastPrice| across all positions.
func (p *Portfolio) GrossExposure() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total float64
	for _, pos := range p.positions {
		total += math.Abs(pos.Qty * pos.LastPrice)
	}
	return total
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// UpdatePrice refreshes the last observed price and unrealized P&L of the
// matching position. Unknown symbols are a no-op.
func (p *Portfolio) UpdatePrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return
	}
	pos.LastPrice = price
	pos.UnrealizedPL = pos.Qty * (pos.LastPrice - pos.AvgPrice)
}

// AddOrder inserts the order, replacing any existing order with the same id.
func (p *Portfolio) AddOrder(order domain.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()

	o := order
	p.orders[o.ID] = &o
}

// AddPosition inserts the position, replacing any existing position for the
// same symbol.
func (p *Portfolio) AddPosition(pos domain.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := pos
	p.positions[cp.Symbol] = &cp
}

// ApplyFill applies an incremental fill to the order and propagates it into
// the matching position in one atomic step: a concurrent reader never sees
// the order updated but the position stale.
//
// execID deduplicates replayed broker notifications; an empty execID skips
// the check. The fill quantity is clamped so the order never fills past its
// requested quantity, and the order's average fill price is the
// quantity-weighted mean of all fills. Unknown order ids and fills against
// terminal orders are no-ops. Returns whether the fill was applied.
func (p *Portfolio) ApplyFill(orderID, execID string, status domain.OrderStatus, fillQty, fillPrice float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok || order.Status.Terminal() {
		return false
	}
	if execID != "" {
		if _, dup := p.seenExecs[execID]; dup {
			return false
		}
		p.seenExecs[execID] = struct{}{}
	}

	newFilled := math.Min(order.Qty, order.FilledQty+fillQty)
	applied := newFilled - order.FilledQty
	if applied > 0 {
		if order.FilledQty == 0 {
			order.FilledAvgPrice = fillPrice
		} else {
			order.FilledAvgPrice = (order.FilledAvgPrice*order.FilledQty + fillPrice*applied) / newFilled
		}
		order.FilledQty = newFilled
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	if applied > 0 {
		signed := applied
		if order.Side == domain.OrderSideSell {
			signed = -applied
		}
		p.applyToPosition(order.Symbol, signed, fillPrice)
	}
	return true
}

// applyToPosition folds a signed fill into the position for symbol, creating
// it on first touch. Fills that increase the position's magnitude move the
// average cost toward the fill price; fills that reduce it capture realized
// P&L against the existing cost basis, and a flip through zero resets the
// basis to the fill price. Callers hold p.mu.
func (p *Portfolio) applyToPosition(symbol string, signed, price float64) {
	pos, ok := p.positions[symbol]
	if !ok {
		pos = &domain.Position{Symbol: symbol}
		p.positions[symbol] = pos
	}

	switch {
	case pos.Qty == 0 || sameSign(pos.Qty, signed):
		// Opening or adding: quantity-weighted cost basis.
		newQty := pos.Qty + signed
		pos.AvgPrice = (pos.AvgPrice*math.Abs(pos.Qty) + price*math.Abs(signed)) / math.Abs(newQty)
		pos.Qty = newQty
	case math.Abs(signed) <= math.Abs(pos.Qty):
		// Reducing (possibly to flat): realize P&L on the closed quantity,
		// basis unchanged.
		closed := math.Abs(signed)
		if pos.Qty > 0 {
			pos.RealizedPL += closed * (price - pos.AvgPrice)
		} else {
			pos.RealizedPL += closed * (pos.AvgPrice - price)
		}
		pos.Qty += signed
	default:
		// Flip through zero: realize on the full old quantity, the surviving
		// quantity opens a fresh position at the fill price.
		closed := math.Abs(pos.Qty)
		if pos.Qty > 0 {
			pos.RealizedPL += closed * (price - pos.AvgPrice)
		} else {
			pos.RealizedPL += closed * (pos.AvgPrice - price)
		}
		pos.Qty += signed
		pos.AvgPrice = price
	}

	if pos.LastPrice == 0 {
		pos.LastPrice = price
	}
	pos.UnrealizedPL = pos.Qty * (pos.LastPrice - pos.AvgPrice)
}

// CancelOrder transitions the order to cancelled if it is still active.
// Returns whether the cancellation took effect.
func (p *Portfolio) CancelOrder(orderID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok || !order.Status.Active() {
		return false
	}
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()
	return true
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
