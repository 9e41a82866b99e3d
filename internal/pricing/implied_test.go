package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ivEps     = 1e-6
	ivMaxIter = 100
)

func TestCallImpliedVolRoundTrip(t *testing.T) {
	vols := []float64{0.05, 0.10, 0.20, 0.35, 0.50, 0.80, 1.20, 2.0}
	for _, vol := range vols {
		price := CallPrice(100, 100, 0.05, vol, 1.0)
		got, err := CallImpliedVol(price, 100, 100, 0.05, 1.0, ivEps, ivMaxIter)
		require.NoError(t, err, "vol=%v", vol)
		assert.InDelta(t, vol, got, 1e-4, "vol=%v", vol)
	}
}

func TestPutImpliedVolRoundTrip(t *testing.T) {
	vols := []float64{0.05, 0.20, 0.50, 1.0, 2.0}
	for _, vol := range vols {
		price := PutPrice(100, 95, 0.03, vol, 0.5)
		got, err := PutImpliedVol(price, 100, 95, 0.03, 0.5, ivEps, ivMaxIter)
		require.NoError(t, err, "vol=%v", vol)
		assert.InDelta(t, vol, got, 1e-4, "vol=%v", vol)
	}
}

func TestImpliedVolInvalidExpiry(t *testing.T) {
	_, err := CallImpliedVol(10, 100, 100, 0.05, 0, ivEps, ivMaxIter)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = PutImpliedVol(10, 100, 100, 0.05, -1, ivEps, ivMaxIter)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestImpliedVolArbitrageViolation(t *testing.T) {
	// A call must be worth at least s - k*exp(-r*t) = 100 - 100*exp(-0.05)
	// ~= 4.877; anything below violates no-arbitrage.
	_, err := CallImpliedVol(1.0, 100, 100, 0.05, 1.0, ivEps, ivMaxIter)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Put intrinsic bound: k*exp(-r*t) - s ~= 14.63 for k=120.
	_, err = PutImpliedVol(2.0, 100, 120, 0.05, 1.0, ivEps, ivMaxIter)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestImpliedVolNoConvergence(t *testing.T) {
	price := CallPrice(100, 100, 0.05, 0.6, 1.0)
	_, err := CallImpliedVol(price, 100, 100, 0.05, 1.0, 1e-12, 1)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestImpliedVolZeroVega(t *testing.T) {
	// Extremely deep in the money with almost no time value: d1 is so large
	// that the Gaussian density underflows to exactly zero, so the first
	// Newton step cannot divide.
	_, err := CallImpliedVol(99.5, 100, 1, 0.0, 0.01, ivEps, ivMaxIter)
	assert.ErrorIs(t, err, ErrZeroVega)
}

func TestImpliedVolDistinctErrorKinds(t *testing.T) {
	// The three failure kinds never alias each other.
	assert.NotErrorIs(t, ErrNoConvergence, ErrInvalidInput)
	assert.NotErrorIs(t, ErrZeroVega, ErrInvalidInput)
	assert.NotErrorIs(t, ErrZeroVega, ErrNoConvergence)
}
