// Package pricing implements closed-form Black-Scholes valuation for
// European options: fair prices, the standard Greeks, an iterative
// implied-volatility solver, and a batched variant for pricing many
// independent contracts per call.
//
// All functions are pure and touch no shared state, so they are safe to call
// concurrently. Price and Greek functions never return errors: for a
// non-positive time to expiry they return the intrinsic value or the Greek's
// boundary constant instead of evaluating the formula.
package pricing

import "math"

// Per-convention scaling of the Greeks: vega and rho are quoted per 1%
// move, theta per calendar day.
const (
	vegaScale  = 100.0
	rhoScale   = 100.0
	thetaScale = 365.0
)

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// normCDF approximates the standard normal CDF with the Abramowitz-Stegun
// rational polynomial (formula 26.2.17, absolute error below 7.5e-8).
func normCDF(x float64) float64 {
	if x < 0 {
		return 1 - normCDF(-x)
	}
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)
	t := 1 / (1 + p*x)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	return 1 - normPDF(x)*poly
}

// d1d2 computes the two Black-Scholes quantiles. Callers must ensure t > 0.
func d1d2(s, k, r, vol, t float64) (float64, float64) {
	volSqrtT := vol * math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+vol*vol/2)*t) / volSqrtT
	return d1, d1 - volSqrtT
}

// CallPrice returns the Black-Scholes fair value of a European call. At or
// past expiry (t <= 0) it returns the intrinsic value max(0, s-k).
func CallPrice(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return math.Max(0, s-k)
	}
	d1, d2 := d1d2(s, k, r, vol, t)
	return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
}

// PutPrice returns the Black-Scholes fair value of a European put. At or
// past expiry it returns the intrinsic value max(0, k-s).
func PutPrice(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return math.Max(0, k-s)
	}
	d1, d2 := d1d2(s, k, r, vol, t)
	return k*math.Exp(-r*t)*normCDF(-d2) - s*normCDF(-d1)
}

// CallDelta returns the call's sensitivity to the spot price. At expiry it
// degenerates to 1 in the money and 0 otherwise.
func CallDelta(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		if s > k {
			return 1
		}
		return 0
	}
	d1, _ := d1d2(s, k, r, vol, t)
	return normCDF(d1)
}

// PutDelta returns the put's sensitivity to the spot price. At expiry it
// degenerates to -1 in the money and 0 otherwise.
func PutDelta(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		if s < k {
			return -1
		}
		return 0
	}
	d1, _ := d1d2(s, k, r, vol, t)
	return normCDF(d1) - 1
}

// Gamma returns the rate of change of delta with respect to the spot price.
// Identical for calls and puts; 0 at expiry.
func Gamma(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	d1, _ := d1d2(s, k, r, vol, t)
	return normPDF(d1) / (s * vol * math.Sqrt(t))
}

// Vega returns the price sensitivity to a 1% move in volatility. Identical
// for calls and puts; 0 at expiry.
func Vega(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	d1, _ := d1d2(s, k, r, vol, t)
	return s * normPDF(d1) * math.Sqrt(t) / vegaScale
}

// CallTheta returns the call's time decay per calendar day; 0 at expiry.
func CallTheta(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	d1, d2 := d1d2(s, k, r, vol, t)
	decay := -s * normPDF(d1) * vol / (2 * math.Sqrt(t))
	carry := r * k * math.Exp(-r*t) * normCDF(d2)
	return (decay - carry) / thetaScale
}

// PutTheta returns the put's time decay per calendar day; 0 at expiry.
func PutTheta(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	d1, d2 := d1d2(s, k, r, vol, t)
	decay := -s * normPDF(d1) * vol / (2 * math.Sqrt(t))
	carry := r * k * math.Exp(-r*t) * normCDF(-d2)
	return (decay + carry) / thetaScale
}

// CallRho returns the call's sensitivity to a 1% move in the risk-free
// rate; 0 at expiry.
func CallRho(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	_, d2 := d1d2(s, k, r, vol, t)
	return k * t * math.Exp(-r*t) * normCDF(d2) / rhoScale
}

// PutRho returns the put's sensitivity to a 1% move in the risk-free rate;
// 0 at expiry.
func PutRho(s, k, r, vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	_, d2 := d1d2(s, k, r, vol, t)
	return -k * t * math.Exp(-r*t) * normCDF(-d2) / rhoScale
}

// Greeks bundles the full sensitivity set for one contract.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// CallGreeks computes all sensitivities of a call in one pass.
func CallGreeks(s, k, r, vol, t float64) Greeks {
	return Greeks{
		Delta: CallDelta(s, k, r, vol, t),
		Gamma: Gamma(s, k, r, vol, t),
		Vega:  Vega(s, k, r, vol, t),
		Theta: CallTheta(s, k, r, vol, t),
		Rho:   CallRho(s, k, r, vol, t),
	}
}

// PutGreeks computes all sensitivities of a put in one pass.
func PutGreeks(s, k, r, vol, t float64) Greeks {
	return Greeks{
		Delta: PutDelta(s, k, r, vol, t),
		Gamma: Gamma(s, k, r, vol, t),
		Vega:  Vega(s, k, r, vol, t),
		Theta: PutTheta(s, k, r, vol, t),
		Rho:   PutRho(s, k, r, vol, t),
	}
}
