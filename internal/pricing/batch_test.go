package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomBatch builds n pricing inputs with a mix of live and expired
// contracts.
func randomBatch(n int, seed int64) (spot, strike, rate, vol, expiry []float64) {
	rng := rand.New(rand.NewSource(seed))
	spot = make([]float64, n)
	strike = make([]float64, n)
	rate = make([]float64, n)
	vol = make([]float64, n)
	expiry = make([]float64, n)
	for i := 0; i < n; i++ {
		spot[i] = 20 + rng.Float64()*200
		strike[i] = 20 + rng.Float64()*200
		rate[i] = rng.Float64() * 0.1
		vol[i] = 0.05 + rng.Float64()*1.5
		if i%3 == 0 {
			// Expired entries interleaved with live ones.
			expiry[i] = -rng.Float64()
		} else {
			expiry[i] = rng.Float64() * 3
		}
	}
	return
}

func TestCallPriceBatchMatchesScalar(t *testing.T) {
	// 7 is deliberately not a multiple of the block size, so the remainder
	// path runs too.
	for _, n := range []int{0, 1, 3, 4, 7, 8, 100} {
		spot, strike, rate, vol, expiry := randomBatch(n, int64(n))
		got := CallPriceBatch(spot, strike, rate, vol, expiry)
		require.Len(t, got, n)
		for i := 0; i < n; i++ {
			want := CallPrice(spot[i], strike[i], rate[i], vol[i], expiry[i])
			assert.InDelta(t, want, got[i], 1e-12, "n=%d i=%d", n, i)
		}
	}
}

func TestPutPriceBatchMatchesScalar(t *testing.T) {
	spot, strike, rate, vol, expiry := randomBatch(25, 42)
	got := PutPriceBatch(spot, strike, rate, vol, expiry)
	require.Len(t, got, 25)
	for i := range got {
		want := PutPrice(spot[i], strike[i], rate[i], vol[i], expiry[i])
		assert.InDelta(t, want, got[i], 1e-12, "i=%d", i)
	}
}

func TestBatchScalarFallback(t *testing.T) {
	// Force the scalar fallback path and check it agrees with the block path.
	spot, strike, rate, vol, expiry := randomBatch(16, 7)
	blocked := CallPriceBatch(spot, strike, rate, vol, expiry)

	orig := blockEnabled
	blockEnabled = false
	defer func() { blockEnabled = orig }()

	scalar := CallPriceBatch(spot, strike, rate, vol, expiry)
	for i := range blocked {
		assert.Equal(t, scalar[i], blocked[i], "i=%d", i)
	}
}

func TestBatchMixedExpiry(t *testing.T) {
	// Expiry selection must be per element, not per batch.
	spot := []float64{110, 110, 110, 110, 110}
	strike := []float64{100, 100, 100, 100, 100}
	rate := []float64{0.05, 0.05, 0.05, 0.05, 0.05}
	vol := []float64{0.2, 0.2, 0.2, 0.2, 0.2}
	expiry := []float64{1.0, 0, 1.0, -0.5, 1.0}

	got := CallPriceBatch(spot, strike, rate, vol, expiry)
	live := CallPrice(110, 100, 0.05, 0.2, 1.0)
	assert.Equal(t, live, got[0])
	assert.Equal(t, 10.0, got[1]) // intrinsic value at expiry
	assert.Equal(t, live, got[2])
	assert.Equal(t, 10.0, got[3])
	assert.Equal(t, live, got[4])
}

func BenchmarkCallPriceBatch(b *testing.B) {
	spot, strike, rate, vol, expiry := randomBatch(1024, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CallPriceBatch(spot, strike, rate, vol, expiry)
	}
}

func BenchmarkCallPriceScalarLoop(b *testing.B) {
	spot, strike, rate, vol, expiry := randomBatch(1024, 1)
	out := make([]float64, len(spot))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := range spot {
			out[j] = CallPrice(spot[j], strike[j], rate[j], vol[j], expiry[j])
		}
	}
}
