package stats

import "math"

// PercentReturns computes r_i = (p_i - p_{i-1}) / p_{i-1}.
// It returns len(prices)-1 values, or nil if insufficient data.
// A non-positive previous price contributes a zero return.
func PercentReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (prices[i]-prev)/prev)
	}
	return out
}

// Volatility is the population standard deviation of percent returns, in percent.
// Series shorter than two points have zero volatility.
func Volatility(prices []float64) float64 {
	returns := PercentReturns(prices)
	if len(returns) == 0 {
		return 0
	}
	mean := Mean(returns)
	var sum2 float64
	for _, r := range returns {
		d := r - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2/float64(len(returns))) * 100
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// MinMax returns the smallest and largest values; zeros for an empty slice.
func MinMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
