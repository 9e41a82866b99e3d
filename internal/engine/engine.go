// Package engine runs the periodic decision loop that ties quotes,
// strategies, risk checks, order execution, and persistence together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"optiq/internal/broker"
	"optiq/internal/domain"
	"optiq/internal/portfolio"
	"optiq/internal/store"
	"optiq/internal/strategy"
)

// minOrderQty is the smallest order the engine will bother submitting.
const minOrderQty = 1.0

// cashSymbol is the ledger entry holding uninvested broker cash.
const cashSymbol = "CASH"

// Options carries the engine's wiring. Broker, Quotes, Portfolio, Risk,
// Strategy, and Logger are required; stores and metrics are optional and
// skipped when nil.
type Options struct {
	Broker    broker.Broker
	Quotes    broker.QuoteSource
	Portfolio *portfolio.Portfolio
	Risk      *RiskManager
	Strategy  strategy.Strategy
	Logger    *slog.Logger
	Interval  time.Duration

	Orders     store.OrderStore
	Signals    store.SignalStore
	Ticks      store.TickStore
	Valuations store.ValuationStore
	Metrics    *Metrics
}

// Engine owns the decision loop. Each iteration polls quotes, marks the
// ledger, runs the strategy, sizes and risk-checks the resulting orders,
// and persists a valuation snapshot. Fill notifications from the broker are
// consumed on a separate goroutine and applied to the ledger as they
// arrive.
type Engine struct {
	broker   broker.Broker
	quotes   broker.QuoteSource
	pf       *portfolio.Portfolio
	risk     *RiskManager
	strat    strategy.Strategy
	log      *slog.Logger
	interval time.Duration

	orders     store.OrderStore
	signals    store.SignalStore
	ticks      store.TickStore
	valuations store.ValuationStore
	metrics    *Metrics
}

// New creates an Engine from opts.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Broker == nil:
		return nil, errors.New("engine: broker is required")
	case opts.Quotes == nil:
		return nil, errors.New("engine: quote source is required")
	case opts.Portfolio == nil:
		return nil, errors.New("engine: portfolio is required")
	case opts.Risk == nil:
		return nil, errors.New("engine: risk manager is required")
	case opts.Strategy == nil:
		return nil, errors.New("engine: strategy is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	return &Engine{
		broker:     opts.Broker,
		quotes:     opts.Quotes,
		pf:         opts.Portfolio,
		risk:       opts.Risk,
		strat:      opts.Strategy,
		log:        opts.Logger.With("component", "engine"),
		interval:   opts.Interval,
		orders:     opts.Orders,
		signals:    opts.Signals,
		ticks:      opts.Ticks,
		valuations: opts.Valuations,
		metrics:    opts.Metrics,
	}, nil
}

// Portfolio returns the engine's ledger.
func (e *Engine) Portfolio() *portfolio.Portfolio { return e.pf }

// Risk returns the engine's risk manager.
func (e *Engine) Risk() *RiskManager { return e.risk }

// Run drives the decision loop until ctx is cancelled. It seeds the ledger
// from the broker, starts the fill pump, initializes the strategy, and then
// steps once per interval.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.syncPortfolio(ctx); err != nil {
		return fmt.Errorf("syncing portfolio from %s: %w", e.broker.Name(), err)
	}

	if err := e.strat.Init(ctx); err != nil {
		return fmt.Errorf("initializing strategy %s: %w", e.strat.Name(), err)
	}

	go e.pumpFills(ctx)

	e.log.Info("engine started",
		"strategy", e.strat.Name(),
		"broker", e.broker.Name(),
		"interval", e.interval.String())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := e.step(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				e.log.Error("loop iteration failed", "error", err)
			}
			if e.metrics != nil {
				e.metrics.LoopDuration.Observe(time.Since(start).Seconds())
			}
		}
	}
}

// syncPortfolio seeds the ledger from the broker's account and open
// positions, so risk sizing starts from real equity instead of an empty
// book. Cash is carried as a unit-priced position under cashSymbol.
func (e *Engine) syncPortfolio(ctx context.Context) error {
	acct, err := e.broker.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetching positions: %w", err)
	}

	if acct.Cash != 0 {
		e.pf.AddPosition(domain.Position{
			Symbol:    cashSymbol,
			Qty:       acct.Cash,
			AvgPrice:  1,
			LastPrice: 1,
		})
	}
	for _, pos := range positions {
		e.pf.AddPosition(pos)
	}

	e.log.Info("portfolio synced from broker",
		"cash", acct.Cash,
		"positions", len(positions))
	return nil
}

// pumpFills consumes the broker's fill stream and applies each fill to the
// ledger. The loop goroutine and this goroutine are the only writers to the
// portfolio; the ledger's own locking serializes them.
func (e *Engine) pumpFills(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fill, ok := <-e.broker.Fills():
			if !ok {
				return
			}
			e.applyFill(ctx, fill)
		}
	}
}

func (e *Engine) applyFill(ctx context.Context, fill domain.Fill) {
	order, found := e.pf.Order(fill.OrderID)
	if !found {
		e.log.Warn("fill for unknown order", "order_id", fill.OrderID, "exec_id", fill.ExecID)
		return
	}

	status := domain.OrderStatusPartiallyFilled
	if order.FilledQty+fill.Qty >= order.Qty {
		status = domain.OrderStatusFilled
	}

	if !e.pf.ApplyFill(fill.OrderID, fill.ExecID, status, fill.Qty, fill.Price) {
		e.log.Debug("fill ignored", "order_id", fill.OrderID, "exec_id", fill.ExecID)
		return
	}

	e.log.Info("fill applied",
		"order_id", fill.OrderID,
		"symbol", order.Symbol,
		"qty", fill.Qty,
		"price", fill.Price,
		"status", string(status))

	if e.orders != nil {
		if updated, ok := e.pf.Order(fill.OrderID); ok {
			if err := e.orders.UpdateOrder(ctx, &updated); err != nil {
				e.log.Error("persisting order update", "order_id", fill.OrderID, "error", err)
			}
		}
	}
}

// step runs one loop iteration.
func (e *Engine) step(ctx context.Context) error {
	ticks, err := e.quotes.Poll(ctx)
	if err != nil {
		return fmt.Errorf("polling quotes: %w", err)
	}

	var signals []domain.Signal
	for _, tick := range ticks {
		e.pf.UpdatePrice(tick.Symbol, tick.Price)

		out, err := e.strat.OnTick(ctx, tick)
		if err != nil {
			e.log.Error("strategy error", "strategy", e.strat.Name(), "symbol", tick.Symbol, "error", err)
			continue
		}
		signals = append(signals, out...)
	}
	if e.metrics != nil {
		e.metrics.TicksProcessed.Add(float64(len(ticks)))
	}

	if e.ticks != nil && len(ticks) > 0 {
		if err := e.ticks.WriteTicks(ctx, ticks); err != nil {
			e.log.Error("persisting ticks", "error", err)
		}
	}

	for _, sig := range signals {
		e.handleSignal(ctx, sig)
	}

	e.risk.AdjustLimits(e.pf)
	e.snapshot(ctx)

	return nil
}

// handleSignal sizes an order for the signal, runs it through risk
// admission, and submits it to the broker.
func (e *Engine) handleSignal(ctx context.Context, sig domain.Signal) {
	if e.metrics != nil {
		e.metrics.SignalsEmitted.WithLabelValues(string(sig.Type)).Inc()
	}
	if e.signals != nil {
		if err := e.signals.SaveSignal(ctx, &sig); err != nil {
			e.log.Error("persisting signal", "strategy", sig.StrategyID, "error", err)
		}
	}

	qty := e.risk.MaxOrderQty(sig.Symbol, e.pf) * sig.Strength
	if qty < minOrderQty {
		e.log.Debug("signal below minimum size", "symbol", sig.Symbol, "qty", qty)
		return
	}

	side := domain.OrderSideBuy
	if sig.Type == domain.SignalTypeSell {
		side = domain.OrderSideSell
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		Side:      side,
		Type:      domain.OrderTypeMarket,
		Qty:       qty,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	allowed, reason := e.risk.AllowOrder(order, e.pf)
	if !allowed {
		if e.metrics != nil {
			e.metrics.OrdersRejected.Inc()
		}
		e.log.Warn("order rejected by risk",
			"symbol", order.Symbol,
			"side", string(order.Side),
			"qty", order.Qty,
			"reason", reason)
		return
	}

	submitted, err := e.broker.SubmitOrder(ctx, order)
	if err != nil {
		e.log.Error("submitting order", "symbol", order.Symbol, "error", err)
		return
	}

	e.pf.AddOrder(*submitted)
	if e.metrics != nil {
		e.metrics.OrdersSubmitted.Inc()
	}
	if e.orders != nil {
		if err := e.orders.SaveOrder(ctx, submitted); err != nil {
			e.log.Error("persisting order", "order_id", submitted.ID, "error", err)
		}
	}

	e.log.Info("order submitted",
		"order_id", submitted.ID,
		"symbol", submitted.Symbol,
		"side", string(submitted.Side),
		"qty", submitted.Qty,
		"strategy", sig.StrategyID)
}

// snapshot records the current portfolio valuation and updates gauges.
func (e *Engine) snapshot(ctx context.Context) {
	level := e.risk.RiskLevel(e.pf)
	total := e.pf.TotalValue()
	unreal := e.pf.TotalUnrealizedPL()

	if e.metrics != nil {
		e.metrics.RiskLevel.Set(level)
		e.metrics.PortfolioValue.Set(total)
		e.metrics.UnrealizedPL.Set(unreal)
	}

	if e.valuations == nil {
		return
	}
	mark := store.Valuation{
		Timestamp:    time.Now().UTC(),
		TotalValue:   total,
		UnrealizedPL: unreal,
		RealizedPL:   e.pf.TotalRealizedPL(),
		RiskLevel:    level,
		Positions:    len(e.pf.Positions()),
	}
	if err := e.valuations.WriteValuations(ctx, []store.Valuation{mark}); err != nil {
		e.log.Error("persisting valuation", "error", err)
	}
}
