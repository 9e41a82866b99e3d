package pricing

import (
	"errors"
	"fmt"
	"math"
)

// Solver error kinds. Callers distinguish them with errors.Is: invalid
// inputs are never retryable, non-convergence may be retried with different
// bounds by the caller, and zero vega means the iteration cannot proceed at
// all.
var (
	ErrInvalidInput  = errors.New("pricing: invalid input")
	ErrNoConvergence = errors.New("pricing: implied volatility did not converge")
	ErrZeroVega      = errors.New("pricing: vega is zero, cannot iterate")
)

// Newton-Raphson iteration parameters.
const (
	ivSeed    = 0.20  // starting volatility guess
	ivFloor   = 0.001 // clamp: volatility never drops below this
	ivCeiling = 10.0  // divergence bound: iteration aborts past this
)

// CallImpliedVol inverts the Black-Scholes call price into the volatility
// that reproduces target. It requires t > 0 and target at or above the
// no-arbitrage intrinsic bound max(0, s - k*exp(-r*t)). eps is the absolute
// price tolerance and maxIter bounds the Newton-Raphson iterations.
func CallImpliedVol(target, s, k, r, t, eps float64, maxIter int) (float64, error) {
	return impliedVol(target, s, k, r, t, eps, maxIter, true)
}

// PutImpliedVol is the put analogue of CallImpliedVol; the intrinsic bound
// is max(0, k*exp(-r*t) - s).
func PutImpliedVol(target, s, k, r, t, eps float64, maxIter int) (float64, error) {
	return impliedVol(target, s, k, r, t, eps, maxIter, false)
}

func impliedVol(target, s, k, r, t, eps float64, maxIter int, call bool) (float64, error) {
	if t <= 0 {
		return 0, fmt.Errorf("%w: time to expiry %v must be positive", ErrInvalidInput, t)
	}

	var intrinsic float64
	if call {
		intrinsic = math.Max(0, s-k*math.Exp(-r*t))
	} else {
		intrinsic = math.Max(0, k*math.Exp(-r*t)-s)
	}
	if target < intrinsic {
		return 0, fmt.Errorf("%w: price %v below intrinsic bound %v", ErrInvalidInput, target, intrinsic)
	}

	vol := ivSeed
	for i := 0; i < maxIter; i++ {
		var model float64
		if call {
			model = CallPrice(s, k, r, vol, t)
		} else {
			model = PutPrice(s, k, r, vol, t)
		}

		diff := target - model
		if math.Abs(diff) < eps {
			return vol, nil
		}

		// Vega is quoted per 1% move; the raw derivative dPrice/dVol is
		// vega * 100.
		vega := Vega(s, k, r, vol, t) * vegaScale
		if vega == 0 {
			return 0, ErrZeroVega
		}

		vol += diff / vega
		if vol < ivFloor {
			vol = ivFloor
		}
		if vol > ivCeiling {
			return 0, fmt.Errorf("%w: volatility exceeded %v", ErrNoConvergence, ivCeiling)
		}
	}

	return 0, fmt.Errorf("%w: %d iterations exhausted", ErrNoConvergence, maxIter)
}
