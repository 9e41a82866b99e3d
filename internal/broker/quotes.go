package broker

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"optiq/internal/domain"
	"optiq/internal/pricing"
)

// Compile-time interface check.
var _ QuoteSource = (*SimulatedQuotes)(nil)

// Strikes quoted around the spot for each simulated chain.
var chainMoneyness = []float64{0.90, 0.95, 1.00, 1.05, 1.10}

// chainExpiryDays is the tenor of the simulated option chain.
const chainExpiryDays = 30

// SimUnderlying configures one simulated instrument.
type SimUnderlying struct {
	Symbol string
	Spot   float64 // starting price
	Vol    float64 // annualized volatility of the random walk
}

// SimulatedQuotes is a QuoteSource that evolves each underlying as a
// geometric random walk and quotes a five-strike, 30-day option chain around
// it. Chain quotes are marked with the batched pricer at a noisy volatility,
// so implied vols recovered from them wander around the walk's true vol.
type SimulatedQuotes struct {
	mu          sync.Mutex
	rng         *rand.Rand
	rate        float64
	step        time.Duration
	underlyings []SimUnderlying
	last        map[string]float64
}

// NewSimulatedQuotes creates a SimulatedQuotes source. rate is the risk-free
// rate used to mark the chain, step is the walk interval represented by one
// Poll.
func NewSimulatedQuotes(underlyings []SimUnderlying, rate float64, step time.Duration, seed int64) *SimulatedQuotes {
	return &SimulatedQuotes{
		rng:         rand.New(rand.NewSource(seed)),
		rate:        rate,
		step:        step,
		underlyings: underlyings,
		last:        make(map[string]float64),
	}
}

// Name returns "simulated".
func (q *SimulatedQuotes) Name() string {
	return "simulated"
}

// Poll advances every underlying one step and returns its trade tick plus
// the repriced option chain.
func (q *SimulatedQuotes) Poll(_ context.Context) ([]domain.Tick, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	dt := q.step.Hours() / (24 * 365)
	var ticks []domain.Tick

	for i := range q.underlyings {
		u := &q.underlyings[i]

		// Geometric random walk step.
		shock := u.Vol * math.Sqrt(dt) * q.rng.NormFloat64()
		u.Spot *= math.Exp(shock - u.Vol*u.Vol/2*dt)
		q.last[u.Symbol] = u.Spot

		ticks = append(ticks, domain.Tick{
			Kind:      domain.TickKindTrade,
			Symbol:    u.Symbol,
			Price:     u.Spot,
			Size:      100,
			Timestamp: now,
		})

		ticks = append(ticks, q.chainTicks(u, now)...)
	}
	return ticks, nil
}

// chainTicks reprices the option chain for one underlying. Callers hold q.mu.
func (q *SimulatedQuotes) chainTicks(u *SimUnderlying, now time.Time) []domain.Tick {
	expiry := now.AddDate(0, 0, chainExpiryDays)
	tYears := float64(chainExpiryDays) / 365

	n := len(chainMoneyness)
	spot := make([]float64, n)
	strike := make([]float64, n)
	rate := make([]float64, n)
	vol := make([]float64, n)
	tt := make([]float64, n)
	for i, m := range chainMoneyness {
		spot[i] = u.Spot
		strike[i] = math.Round(u.Spot * m)
		rate[i] = q.rate
		// Quote vol drifts around the walk's true vol so the chain carries
		// exploitable mispricings.
		vol[i] = u.Vol * (1 + 0.1*q.rng.NormFloat64())
		if vol[i] < 0.01 {
			vol[i] = 0.01
		}
		tt[i] = tYears
	}

	calls := pricing.CallPriceBatch(spot, strike, rate, vol, tt)
	puts := pricing.PutPriceBatch(spot, strike, rate, vol, tt)

	var ticks []domain.Tick
	for i := range chainMoneyness {
		for _, leg := range []struct {
			right domain.OptionRight
			price float64
		}{
			{domain.OptionRightCall, calls[i]},
			{domain.OptionRightPut, puts[i]},
		} {
			sym := optionSymbol(u.Symbol, expiry, leg.right, strike[i])
			q.last[sym] = leg.price
			ticks = append(ticks, domain.Tick{
				Kind:            domain.TickKindOption,
				Symbol:          sym,
				Price:           leg.price,
				Timestamp:       now,
				Underlying:      u.Symbol,
				UnderlyingPrice: u.Spot,
				Strike:          strike[i],
				Right:           leg.right,
				Expiry:          expiry,
			})
		}
	}
	return ticks
}

// LastPrice returns the most recent simulated price for symbol.
func (q *SimulatedQuotes) LastPrice(symbol string) (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.last[symbol]
	return p, ok
}

// optionSymbol formats a readable contract symbol, e.g.
// "SPY-20250711-C-450".
func optionSymbol(underlying string, expiry time.Time, right domain.OptionRight, strike float64) string {
	r := "C"
	if right == domain.OptionRightPut {
		r = "P"
	}
	return fmt.Sprintf("%s-%s-%s-%g", underlying, expiry.Format("20060102"), r, strike)
}
