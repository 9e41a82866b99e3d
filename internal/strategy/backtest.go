package strategy

import (
	"context"
	"fmt"
	"time"

	"optiq/internal/domain"
	"optiq/internal/store"
)

// BacktestResult holds the summary of a tick replay.
type BacktestResult struct {
	Ticks       int
	BuySignals  int
	SellSignals int
	Signals     []domain.Signal
}

// Backtester replays archived tick history through a strategy and collects
// the signals it would have emitted.
type Backtester struct {
	ticks    store.TickStore
	registry *Registry
}

// NewBacktester creates a Backtester that reads ticks from the given store
// and looks up strategies in the provided registry.
func NewBacktester(ticks store.TickStore, registry *Registry) *Backtester {
	return &Backtester{
		ticks:    ticks,
		registry: registry,
	}
}

// Run replays all archived ticks for the symbols in [start, end] through the
// named strategy, in timestamp order per symbol.
func (bt *Backtester) Run(ctx context.Context, name string, symbols []string, start, end time.Time) (*BacktestResult, error) {
	strat, ok := bt.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("backtest: unknown strategy %q", name)
	}
	if err := strat.Init(ctx); err != nil {
		return nil, fmt.Errorf("backtest: init %q: %w", name, err)
	}

	result := &BacktestResult{}
	for _, symbol := range symbols {
		ticks, err := bt.ticks.ReadTicks(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("backtest: reading ticks for %s: %w", symbol, err)
		}
		for _, tick := range ticks {
			result.Ticks++
			signals, err := strat.OnTick(ctx, tick)
			if err != nil {
				return nil, fmt.Errorf("backtest: %q on %s: %w", name, symbol, err)
			}
			for _, sig := range signals {
				switch sig.Type {
				case domain.SignalTypeBuy:
					result.BuySignals++
				case domain.SignalTypeSell:
					result.SellSignals++
				}
				result.Signals = append(result.Signals, sig)
			}
		}
	}
	return result, nil
}
