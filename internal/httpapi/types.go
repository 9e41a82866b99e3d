// Package httpapi provides the JSON REST API over the trading engine:
// positions, orders, portfolio totals, risk state, pricing, and history.
package httpapi

import (
	"optiq/internal/domain"
	"optiq/internal/store"
)

// PortfolioResponse summarizes the ledger's aggregate state.
type PortfolioResponse struct {
	TotalValue    float64 `json:"total_value"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	RealizedPL    float64 `json:"realized_pl"`
	GrossExposure float64 `json:"gross_exposure"`
	Positions     int     `json:"positions"`
	OpenOrders    int     `json:"open_orders"`
}

// PositionsResponse lists current positions.
type PositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

// OrdersResponse lists orders.
type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// RiskResponse reports the risk manager's current state.
type RiskResponse struct {
	Level           float64 `json:"level"`
	MaxPositionSize float64 `json:"max_position_size"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxLeverage     float64 `json:"max_leverage"`
	MaxRiskPerTrade float64 `json:"max_risk_per_trade"`
	MaxDailyLoss    float64 `json:"max_daily_loss"`
}

// PriceResponse carries a model price and its greeks, plus the implied
// volatility when a market price was supplied.
type PriceResponse struct {
	Right      string   `json:"right"`
	Spot       float64  `json:"spot"`
	Strike     float64  `json:"strike"`
	Rate       float64  `json:"rate"`
	Vol        float64  `json:"vol"`
	Expiry     float64  `json:"expiry_years"`
	Price      float64  `json:"price"`
	Delta      float64  `json:"delta"`
	Gamma      float64  `json:"gamma"`
	Vega       float64  `json:"vega"`
	Theta      float64  `json:"theta"`
	Rho        float64  `json:"rho"`
	ImpliedVol *float64 `json:"implied_vol,omitempty"`
}

// ValuationsResponse lists historical portfolio marks.
type ValuationsResponse struct {
	Valuations []store.Valuation `json:"valuations"`
}

// SignalsResponse lists recent strategy signals.
type SignalsResponse struct {
	Signals []domain.Signal `json:"signals"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
	Broker string `json:"broker,omitempty"`
}
