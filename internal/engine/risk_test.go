package engine

import (
	"testing"

	"optiq/internal/domain"
	"optiq/internal/portfolio"
)

func defaultLimits() RiskLimits {
	return RiskLimits{
		MaxPositionSize: 100000,
		MaxDrawdown:     0.10,
		MaxLeverage:     2.0,
		MaxRiskPerTrade: 0.02,
		MaxDailyLoss:    5000,
	}
}

func TestNewRiskManagerValidation(t *testing.T) {
	if _, err := NewRiskManager(defaultLimits()); err != nil {
		t.Fatalf("NewRiskManager with valid limits returned error: %v", err)
	}

	bad := defaultLimits()
	bad.MaxDrawdown = 0
	if _, err := NewRiskManager(bad); err == nil {
		t.Error("NewRiskManager should reject zero MaxDrawdown")
	}

	bad = defaultLimits()
	bad.MaxLeverage = -1
	if _, err := NewRiskManager(bad); err == nil {
		t.Error("NewRiskManager should reject negative MaxLeverage")
	}
}

func TestAllowOrderPositionSize(t *testing.T) {
	limits := defaultLimits()
	limits.MaxRiskPerTrade = 1.0 // isolate the position-size check
	rm, err := NewRiskManager(limits)
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}

	pf := portfolio.New()
	pf.AddPosition(domain.Position{Symbol: "SPY", Qty: 90000, AvgPrice: 1, LastPrice: 1})

	buy := func(qty float64) *domain.Order {
		return &domain.Order{
			ID:     "ord-risk",
			Symbol: "SPY",
			Side:   domain.OrderSideBuy,
			Type:   domain.OrderTypeMarket,
			Qty:    qty,
		}
	}

	// 90,000 held + 20,000 would breach the 100,000 limit.
	if ok, reason := rm.AllowOrder(buy(20000), pf); ok {
		t.Error("AllowOrder admitted an order breaching the position-size limit")
	} else if reason == "" {
		t.Error("AllowOrder rejection should carry a reason")
	}

	// 90,000 held + 5,000 stays under the limit.
	if ok, reason := rm.AllowOrder(buy(5000), pf); !ok {
		t.Errorf("AllowOrder rejected an admissible order: %s", reason)
	}
}

func TestAllowOrderTradeRisk(t *testing.T) {
	rm, err := NewRiskManager(defaultLimits())
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}

	pf := portfolio.New()
	pf.AddPosition(domain.Position{Symbol: "SPY", Qty: 1000, AvgPrice: 100, LastPrice: 100})

	// Order risk 50*100/100,000 = 0.05 > 0.02.
	tooBig := &domain.Order{
		ID: "o1", Symbol: "SPY", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeMarket, Qty: 50,
	}
	if ok, _ := rm.AllowOrder(tooBig, pf); ok {
		t.Error("AllowOrder admitted an order exceeding the per-trade risk limit")
	}

	// Order risk 10*100/100,000 = 0.01 <= 0.02.
	small := &domain.Order{
		ID: "o2", Symbol: "SPY", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeMarket, Qty: 10,
	}
	if ok, reason := rm.AllowOrder(small, pf); !ok {
		t.Errorf("AllowOrder rejected an admissible order: %s", reason)
	}
}

func TestAllowOrderEmptyPortfolio(t *testing.T) {
	rm, err := NewRiskManager(defaultLimits())
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}

	pf := portfolio.New()
	order := &domain.Order{
		ID: "o1", Symbol: "SPY", Side: domain.OrderSideBuy,
		Type: domain.OrderTypeMarket, Qty: 10,
	}
	if ok, _ := rm.AllowOrder(order, pf); ok {
		t.Error("AllowOrder should reject when portfolio value is not positive")
	}
}

func TestRiskLevel(t *testing.T) {
	rm, err := NewRiskManager(defaultLimits())
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}

	// Empty portfolio is treated as maximal risk.
	pf := portfolio.New()
	if level := rm.RiskLevel(pf); level != 1.0 {
		t.Errorf("RiskLevel(empty) = %v, want 1.0", level)
	}

	// Long 1000 @ 100 with no unrealized loss: leverage 1.0 of max 2.0.
	pf.AddPosition(domain.Position{Symbol: "SPY", Qty: 1000, AvgPrice: 100, LastPrice: 100})
	if level := rm.RiskLevel(pf); level != 0.5 {
		t.Errorf("RiskLevel = %v, want 0.5", level)
	}

	// A 5% unrealized loss against a 10% drawdown limit pushes utilization
	// to max(0.5, ~0.526) but still below 1.
	pf.UpdatePrice("SPY", 95)
	level := rm.RiskLevel(pf)
	if level <= 0.5 || level > 1.0 {
		t.Errorf("RiskLevel after drawdown = %v, want in (0.5, 1.0]", level)
	}
}

func TestAdjustLimits(t *testing.T) {
	rm, err := NewRiskManager(defaultLimits())
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}

	// Empty portfolio: risk level 1.0, above the high band, limits shrink.
	pf := portfolio.New()
	rm.AdjustLimits(pf)

	got := rm.Limits()
	if got.MaxPositionSize >= 100000 {
		t.Errorf("MaxPositionSize = %v, want shrunk below 100000", got.MaxPositionSize)
	}
	if got.MaxRiskPerTrade >= 0.02 {
		t.Errorf("MaxRiskPerTrade = %v, want shrunk below 0.02", got.MaxRiskPerTrade)
	}

	// A generous leverage limit puts a long-only book below the low band,
	// so shrunk limits recover but never exceed the configured ceilings.
	calmLimits := defaultLimits()
	calmLimits.MaxLeverage = 5.0
	rm2, err := NewRiskManager(calmLimits)
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}
	rm2.AdjustLimits(portfolio.New()) // shrink once at maximal risk

	pf.AddPosition(domain.Position{Symbol: "SPY", Qty: 500, AvgPrice: 100, LastPrice: 100})
	for i := 0; i < 20; i++ {
		rm2.AdjustLimits(pf)
	}

	got = rm2.Limits()
	if got.MaxPositionSize > 100000 {
		t.Errorf("MaxPositionSize = %v, recovered past the 100000 ceiling", got.MaxPositionSize)
	}
	if got.MaxPositionSize < 90000 {
		t.Errorf("MaxPositionSize = %v, should have recovered toward 100000", got.MaxPositionSize)
	}
	if got.MaxRiskPerTrade > 0.02 {
		t.Errorf("MaxRiskPerTrade = %v, recovered past the 0.02 ceiling", got.MaxRiskPerTrade)
	}
}

func TestMaxOrderQty(t *testing.T) {
	rm, err := NewRiskManager(defaultLimits())
	if err != nil {
		t.Fatalf("NewRiskManager: %v", err)
	}

	// Empty portfolio: risk level 1 scales everything to zero.
	pf := portfolio.New()
	if qty := rm.MaxOrderQty("SPY", pf); qty != 0 {
		t.Errorf("MaxOrderQty(empty) = %v, want 0", qty)
	}

	// Calm portfolio: quantity is positive and respects the per-trade cap.
	pf.AddPosition(domain.Position{Symbol: "CASH", Qty: 1000000, AvgPrice: 1, LastPrice: 1})
	qty := rm.MaxOrderQty("SPY", pf)
	if qty <= 0 {
		t.Fatalf("MaxOrderQty = %v, want positive", qty)
	}
	// Per-trade cap is 1,000,000 * 0.02 = 20,000 before risk scaling.
	if qty > 20000 {
		t.Errorf("MaxOrderQty = %v, want at most the per-trade cap 20000", qty)
	}
}
