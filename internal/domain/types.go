// Package domain defines the core types shared across the optiq platform:
// orders, positions, fills, ticks, signals, and option contracts.
package domain

import "time"

// Market identifies a trading venue region.
type Market string

// Supported markets.
const (
	MarketUS Market = "us"
)

// OrderSide is the direction of an order.
type OrderSide string

// Order sides.
const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

// Order types.
const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses. Filled, Cancelled, and Rejected are terminal.
const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Terminal reports whether s is a terminal order status: once an order is
// filled, cancelled, or rejected it never transitions again.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Active reports whether an order in status s may still receive fills or be
// cancelled.
func (s OrderStatus) Active() bool {
	return s == OrderStatusPending || s == OrderStatusPartiallyFilled
}

// Order is a request to buy or sell a fixed quantity of one instrument.
// FilledQty never exceeds Qty, and FilledAvgPrice is only meaningful once
// FilledQty is positive.
type Order struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	Side           OrderSide   `json:"side"`
	Type           OrderType   `json:"type"`
	Qty            float64     `json:"qty"`
	FilledQty      float64     `json:"filled_qty"`
	LimitPrice     float64     `json:"limit_price,omitempty"`
	StopPrice      float64     `json:"stop_price,omitempty"`
	FilledAvgPrice float64     `json:"filled_avg_price"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// SignedQty returns the order quantity with buy positive and sell negative.
func (o *Order) SignedQty() float64 {
	if o.Side == OrderSideSell {
		return -o.Qty
	}
	return o.Qty
}

// Position is the net holding in one instrument. Qty is signed: positive is
// long, negative is short. UnrealizedPL = Qty * (LastPrice - AvgPrice).
type Position struct {
	Symbol       string  `json:"symbol"`
	Qty          float64 `json:"qty"`
	AvgPrice     float64 `json:"avg_price"`
	LastPrice    float64 `json:"last_price"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	RealizedPL   float64 `json:"realized_pl"`
}

// MarketValue returns the position's value at its last observed price.
func (p *Position) MarketValue() float64 {
	return p.Qty * p.LastPrice
}

// Fill is a single execution applied to an order. ExecID identifies the
// execution at the broker and is used to drop replayed notifications.
type Fill struct {
	OrderID   string    `json:"order_id"`
	ExecID    string    `json:"exec_id"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// OptionRight distinguishes calls from puts.
type OptionRight string

// Option rights.
const (
	OptionRightCall OptionRight = "call"
	OptionRightPut  OptionRight = "put"
)

// OptionContract holds the five pricing inputs for one European option. It is
// an ephemeral value passed to the pricing engine, never persisted.
type OptionContract struct {
	Spot   float64 // underlying price
	Strike float64
	Rate   float64 // risk-free rate, annualized
	Vol    float64 // volatility, annualized
	Expiry float64 // time to expiry in years
}

// TickKind distinguishes plain price ticks from option quote ticks. The set
// of kinds is closed.
type TickKind string

// Tick kinds.
const (
	TickKindTrade  TickKind = "trade"
	TickKindOption TickKind = "option"
)

// Tick is a single market-data observation. Kind selects which fields are
// populated: a trade tick carries only Symbol/Price/Size, an option tick
// additionally carries the contract fields and the underlying's spot.
type Tick struct {
	Kind      TickKind  `json:"kind"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Size      int64     `json:"size,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Option tick fields.
	Underlying      string      `json:"underlying,omitempty"`
	UnderlyingPrice float64     `json:"underlying_price,omitempty"`
	Strike          float64     `json:"strike,omitempty"`
	Right           OptionRight `json:"right,omitempty"`
	Expiry          time.Time   `json:"expiry,omitempty"`
}

// YearsToExpiry returns the tick's time to expiry in years at time now,
// negative once the contract has expired.
func (t *Tick) YearsToExpiry(now time.Time) float64 {
	const hoursPerYear = 24 * 365
	return t.Expiry.Sub(now).Hours() / hoursPerYear
}

// SignalType is the direction of a strategy signal.
type SignalType string

// Signal types.
const (
	SignalTypeBuy  SignalType = "buy"
	SignalTypeSell SignalType = "sell"
)

// Signal is a trading intent emitted by a strategy. Strength is in [0,1] and
// scales the quantity the engine will attempt.
type Signal struct {
	ID         int64             `json:"id"`
	StrategyID string            `json:"strategy_id"`
	Symbol     string            `json:"symbol"`
	Type       SignalType        `json:"type"`
	Strength   float64           `json:"strength"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// AccountInfo is a snapshot of broker account metrics.
type AccountInfo struct {
	Equity      float64 `json:"equity"`
	Cash        float64 `json:"cash"`
	BuyingPower float64 `json:"buying_power"`
}
