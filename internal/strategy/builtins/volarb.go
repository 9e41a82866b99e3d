// Package builtins provides built-in strategy implementations that ship with
// the optiq platform.
package builtins

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"optiq/internal/domain"
	"optiq/internal/pricing"
	"optiq/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*VolArb)(nil)

// Solver parameters for recovering implied vol from quotes.
const (
	ivTolerance = 1e-6
	ivMaxIter   = 50
)

// VolArb trades option quotes against a reference volatility: when a
// quote's implied volatility is richer than the reference by more than the
// configured band the option is sold, when it is cheaper it is bought.
// Plain trade ticks only refresh the underlying spot.
type VolArb struct {
	refVol float64 // reference (fair) volatility
	band   float64 // relative band, e.g. 0.15 for 15%
	rate   float64 // risk-free rate for the solver
	log    *slog.Logger

	spots map[string]float64
}

// NewVolArb creates a VolArb strategy around the given reference volatility.
func NewVolArb(refVol, band, rate float64, log *slog.Logger) *VolArb {
	return &VolArb{
		refVol: refVol,
		band:   band,
		rate:   rate,
		log:    log,
		spots:  make(map[string]float64),
	}
}

// Name returns "vol-arb".
func (s *VolArb) Name() string {
	return "vol-arb"
}

// Init resets the strategy's spot cache.
func (s *VolArb) Init(_ context.Context) error {
	s.spots = make(map[string]float64)
	return nil
}

// OnTick records spots from trade ticks and evaluates option ticks against
// the reference volatility.
func (s *VolArb) OnTick(_ context.Context, tick domain.Tick) ([]domain.Signal, error) {
	switch tick.Kind {
	case domain.TickKindTrade:
		s.spots[tick.Symbol] = tick.Price
		return nil, nil
	case domain.TickKindOption:
		return s.onOptionTick(tick)
	default:
		return nil, nil
	}
}

func (s *VolArb) onOptionTick(tick domain.Tick) ([]domain.Signal, error) {
	spot := tick.UnderlyingPrice
	if spot == 0 {
		// Quote without an embedded spot: fall back to the last trade.
		var ok bool
		spot, ok = s.spots[tick.Underlying]
		if !ok {
			return nil, nil
		}
	}

	tYears := tick.YearsToExpiry(tick.Timestamp)
	if tYears <= 0 {
		return nil, nil
	}

	var iv float64
	var err error
	if tick.Right == domain.OptionRightPut {
		iv, err = pricing.PutImpliedVol(tick.Price, spot, tick.Strike, s.rate, tYears, ivTolerance, ivMaxIter)
	} else {
		iv, err = pricing.CallImpliedVol(tick.Price, spot, tick.Strike, s.rate, tYears, ivTolerance, ivMaxIter)
	}
	if err != nil {
		// Quotes at the intrinsic bound or deep in the money routinely defeat
		// the solver; skip the tick rather than fail the loop.
		if !errors.Is(err, pricing.ErrInvalidInput) && s.log != nil {
			s.log.Debug("implied vol solve failed", "symbol", tick.Symbol, "err", err)
		}
		return nil, nil
	}

	edge := (iv - s.refVol) / s.refVol
	var sigType domain.SignalType
	switch {
	case edge > s.band:
		sigType = domain.SignalTypeSell // quote is rich, sell vol
	case edge < -s.band:
		sigType = domain.SignalTypeBuy // quote is cheap, buy vol
	default:
		return nil, nil
	}

	strength := edge
	if strength < 0 {
		strength = -strength
	}
	if strength > 1 {
		strength = 1
	}

	return []domain.Signal{{
		StrategyID: s.Name(),
		Symbol:     tick.Symbol,
		Type:       sigType,
		Strength:   strength,
		Metadata: map[string]string{
			"implied_vol": formatVol(iv),
			"ref_vol":     formatVol(s.refVol),
		},
		CreatedAt: time.Now().UTC(),
	}}, nil
}

func formatVol(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
