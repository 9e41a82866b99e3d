package engine

import (
	"fmt"
	"math"
	"sync"

	"optiq/internal/domain"
	"optiq/internal/portfolio"
)

// Self-tuning bands: above the high band the manager shrinks its limits by
// adjustStep, below the low band it grows them back toward the configured
// ceilings. A single proportional step per evaluation, no hysteresis.
const (
	riskHighBand = 0.8
	riskLowBand  = 0.3
	adjustStep   = 0.10
)

// RiskLimits holds the configured risk thresholds.
type RiskLimits struct {
	MaxPositionSize float64 // absolute quantity per instrument
	MaxDrawdown     float64 // fraction of portfolio value
	MaxLeverage     float64 // gross exposure over portfolio value
	MaxRiskPerTrade float64 // fraction of portfolio value per order
	MaxDailyLoss    float64 // absolute currency amount
}

// RiskManager gates order admission against current portfolio exposure and
// adapts its own position-size and per-trade limits from observed risk.
type RiskManager struct {
	mu     sync.Mutex
	limits RiskLimits
	base   RiskLimits // configured ceilings the adaptive limits never exceed
}

// NewRiskManager creates a RiskManager. All thresholds must be positive.
func NewRiskManager(limits RiskLimits) (*RiskManager, error) {
	switch {
	case limits.MaxPositionSize <= 0:
		return nil, fmt.Errorf("risk: max position size %v must be positive", limits.MaxPositionSize)
	case limits.MaxDrawdown <= 0:
		return nil, fmt.Errorf("risk: max drawdown %v must be positive", limits.MaxDrawdown)
	case limits.MaxLeverage <= 0:
		return nil, fmt.Errorf("risk: max leverage %v must be positive", limits.MaxLeverage)
	case limits.MaxRiskPerTrade <= 0:
		return nil, fmt.Errorf("risk: max risk per trade %v must be positive", limits.MaxRiskPerTrade)
	case limits.MaxDailyLoss <= 0:
		return nil, fmt.Errorf("risk: max daily loss %v must be positive", limits.MaxDailyLoss)
	}
	return &RiskManager{limits: limits, base: limits}, nil
}

// Limits returns the current (possibly adapted) thresholds.
func (rm *RiskManager) Limits() RiskLimits {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.limits
}

// AllowOrder decides whether the order is admissible given the portfolio's
// current exposure. It never returns an error and has no side effects on
// rejection; reason is empty when allowed.
//
// Three checks must all pass: the position size after hypothetically
// applying the order, the order's risk contribution relative to portfolio
// value, and aggregate leverage. A zero or negative portfolio value is
// treated as maximal risk and rejects every risk-sensitive order.
func (rm *RiskManager) AllowOrder(order *domain.Order, pf *portfolio.Portfolio) (bool, string) {
	rm.mu.Lock()
	limits := rm.limits
	rm.mu.Unlock()

	pos := pf.Position(order.Symbol)
	after := pos.Qty + order.SignedQty()
	if math.Abs(after) > limits.MaxPositionSize {
		return false, fmt.Sprintf("position size %v would exceed limit %v", math.Abs(after), limits.MaxPositionSize)
	}

	total := pf.TotalValue()
	if total <= 0 {
		return false, "portfolio value is not positive"
	}

	tradeRisk := math.Abs(order.Qty*pos.LastPrice) / total
	if tradeRisk > limits.MaxRiskPerTrade {
		return false, fmt.Sprintf("trade risk %.4f exceeds limit %.4f", tradeRisk, limits.MaxRiskPerTrade)
	}

	leverage := pf.GrossExposure() / total
	if leverage > limits.MaxLeverage {
		return false, fmt.Sprintf("leverage %.2f exceeds limit %.2f", leverage, limits.MaxLeverage)
	}

	return true, ""
}

// RiskLevel summarizes current portfolio risk in [0,1]: the larger of
// leverage utilization and drawdown utilization. A non-positive portfolio
// value yields 1.
func (rm *RiskManager) RiskLevel(pf *portfolio.Portfolio) float64 {
	rm.mu.Lock()
	limits := rm.limits
	rm.mu.Unlock()

	total := pf.TotalValue()
	if total <= 0 {
		return 1.0
	}

	leverage := pf.GrossExposure() / total / limits.MaxLeverage
	drawdown := math.Abs(pf.TotalUnrealizedPL()) / (total * limits.MaxDrawdown)

	level := math.Max(leverage, drawdown)
	return math.Min(level, 1.0)
}

// AdjustLimits re-evaluates the adaptive limits from current risk: one
// proportional step down when risk is above the high band, one step up
// (clamped at the configured ceilings) when below the low band.
func (rm *RiskManager) AdjustLimits(pf *portfolio.Portfolio) {
	level := rm.RiskLevel(pf)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	switch {
	case level > riskHighBand:
		rm.limits.MaxPositionSize *= 1 - adjustStep
		rm.limits.MaxRiskPerTrade *= 1 - adjustStep
	case level < riskLowBand:
		rm.limits.MaxPositionSize = math.Min(rm.limits.MaxPositionSize*(1+adjustStep), rm.base.MaxPositionSize)
		rm.limits.MaxRiskPerTrade = math.Min(rm.limits.MaxRiskPerTrade*(1+adjustStep), rm.base.MaxRiskPerTrade)
	}
}

// MaxOrderQty returns the largest quantity the manager would currently admit
// for the symbol: the position-size limit net of any long quantity already
// held, capped by the per-trade concentration limit, scaled down by current
// risk, and floored at zero.
func (rm *RiskManager) MaxOrderQty(symbol string, pf *portfolio.Portfolio) float64 {
	rm.mu.Lock()
	limits := rm.limits
	rm.mu.Unlock()

	qty := limits.MaxPositionSize
	if pos := pf.Position(symbol); pos.Qty > 0 {
		qty -= pos.Qty
	}

	if concentration := pf.TotalValue() * limits.MaxRiskPerTrade; qty > concentration {
		qty = concentration
	}

	qty *= 1 - rm.RiskLevel(pf)
	return math.Max(qty, 0)
}
