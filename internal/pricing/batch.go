package pricing

import "runtime"

// blockSize is the number of contracts priced per unrolled block in the
// batched path.
const blockSize = 4

// blockEnabled gates the unrolled block kernel. On architectures where the
// compiler cannot keep a four-wide block in registers the batched functions
// run the plain scalar loop instead; results are identical either way.
var blockEnabled = runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"

// CallPriceBatch prices len(spot) independent calls. All input slices must
// have the same length; element i of the result equals
// CallPrice(spot[i], strike[i], rate[i], vol[i], expiry[i]), including the
// intrinsic-value handling of expired entries, which is selected per
// element. Safe for concurrent use.
func CallPriceBatch(spot, strike, rate, vol, expiry []float64) []float64 {
	out := make([]float64, len(spot))
	priceBatch(spot, strike, rate, vol, expiry, out, CallPrice, callPriceBlock)
	return out
}

// PutPriceBatch is the put analogue of CallPriceBatch.
func PutPriceBatch(spot, strike, rate, vol, expiry []float64) []float64 {
	out := make([]float64, len(spot))
	priceBatch(spot, strike, rate, vol, expiry, out, PutPrice, putPriceBlock)
	return out
}

type scalarFn func(s, k, r, vol, t float64) float64
type blockFn func(spot, strike, rate, vol, expiry, out []float64)

// priceBatch walks the inputs in blocks of blockSize, finishing any
// remainder (and the whole batch when the block kernel is disabled) with
// the scalar function.
func priceBatch(spot, strike, rate, vol, expiry, out []float64, scalar scalarFn, block blockFn) {
	n := len(spot)
	i := 0
	if blockEnabled {
		for ; i+blockSize <= n; i += blockSize {
			block(spot[i:i+blockSize], strike[i:i+blockSize], rate[i:i+blockSize],
				vol[i:i+blockSize], expiry[i:i+blockSize], out[i:i+blockSize])
		}
	}
	for ; i < n; i++ {
		out[i] = scalar(spot[i], strike[i], rate[i], vol[i], expiry[i])
	}
}

// callPriceBlock prices exactly blockSize calls. The slice headers are
// re-sliced to a fixed length so the compiler can eliminate bounds checks
// and keep the block in registers.
func callPriceBlock(spot, strike, rate, vol, expiry, out []float64) {
	s := spot[:blockSize]
	k := strike[:blockSize]
	r := rate[:blockSize]
	v := vol[:blockSize]
	t := expiry[:blockSize]
	o := out[:blockSize]
	o[0] = CallPrice(s[0], k[0], r[0], v[0], t[0])
	o[1] = CallPrice(s[1], k[1], r[1], v[1], t[1])
	o[2] = CallPrice(s[2], k[2], r[2], v[2], t[2])
	o[3] = CallPrice(s[3], k[3], r[3], v[3], t[3])
}

// putPriceBlock prices exactly blockSize puts.
func putPriceBlock(spot, strike, rate, vol, expiry, out []float64) {
	s := spot[:blockSize]
	k := strike[:blockSize]
	r := rate[:blockSize]
	v := vol[:blockSize]
	t := expiry[:blockSize]
	o := out[:blockSize]
	o[0] = PutPrice(s[0], k[0], r[0], v[0], t[0])
	o[1] = PutPrice(s[1], k[1], r[1], v[1], t[1])
	o[2] = PutPrice(s[2], k[2], r[2], v[2], t[2])
	o[3] = PutPrice(s[3], k[3], r[3], v[3], t[3])
}
