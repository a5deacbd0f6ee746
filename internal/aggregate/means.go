package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// agmIterations bounds the arithmetic-geometric mean iteration; it converges
// quadratically so this is never reached for finite inputs.
const agmIterations = 64

func mean(vals, _ []float64) float64 {
	return stat.Mean(vals, nil)
}

// weightedMean weights each curve by its R², falling back to the plain mean
// when the weights sum to zero.
func weightedMean(vals, weights []float64) float64 {
	if floats.Sum(weights) == 0 {
		return stat.Mean(vals, nil)
	}
	return stat.Mean(vals, weights)
}

// geometricMean is NaN when any value is negative and zero when any value is
// zero.
func geometricMean(vals, _ []float64) float64 {
	for _, v := range vals {
		if v < 0 {
			return math.NaN()
		}
	}
	for _, v := range vals {
		if v == 0 {
			return 0
		}
	}
	return stat.GeometricMean(vals, nil)
}

func harmonicMean(vals, _ []float64) float64 {
	if !allPositive(vals) {
		return math.NaN()
	}
	return stat.HarmonicMean(vals, nil)
}

// median averages the middle pair for an even count.
func median(vals, _ []float64) float64 {
	s := sorted(vals)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// mode returns the most frequent value under exact equality; ties go to the
// smallest value.
func mode(vals, _ []float64) float64 {
	s := sorted(vals)
	best, bestCount := s[0], 0
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] == s[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = s[i], j-i
		}
		i = j
	}
	return best
}

func rms(vals, _ []float64) float64 {
	return math.Sqrt(floats.Dot(vals, vals) / float64(len(vals)))
}

func logMean(vals, _ []float64) float64 {
	if !allPositive(vals) {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += math.Log(v)
	}
	return math.Exp(sum / float64(len(vals)))
}

// cutCount is how many values a trimmed or winsorized mean removes from each
// end: at least one once there are three values, never so many that nothing
// is left.
func cutCount(n int, fraction float64) int {
	if n < 3 {
		return 0
	}
	cut := int(math.Floor(fraction * float64(n)))
	if cut < 1 {
		cut = 1
	}
	if maxCut := (n - 1) / 2; cut > maxCut {
		cut = maxCut
	}
	return cut
}

func trimmedMean(fraction float64) pointFunc {
	return func(vals, _ []float64) float64 {
		s := sorted(vals)
		cut := cutCount(len(s), fraction)
		return stat.Mean(s[cut:len(s)-cut], nil)
	}
}

func winsorizedMean(fraction float64) pointFunc {
	return func(vals, _ []float64) float64 {
		s := sorted(vals)
		n := len(s)
		cut := cutCount(n, fraction)
		lo, hi := s[cut], s[n-1-cut]
		for i := 0; i < cut; i++ {
			s[i] = lo
			s[n-1-i] = hi
		}
		return stat.Mean(s, nil)
	}
}

// ewma folds the curves in series-name order starting from zero.
func ewma(alpha float64) pointFunc {
	return func(vals, _ []float64) float64 {
		var acc float64
		for _, v := range vals {
			acc = alpha*v + (1-alpha)*acc
		}
		return acc
	}
}

func arithmeticGeometricMean(vals, w []float64) float64 {
	g := geometricMean(vals, w)
	if math.IsNaN(g) {
		return g
	}
	a := stat.Mean(vals, nil)
	if g == 0 {
		return 0
	}
	for i := 0; i < agmIterations && math.Abs(a-g) > 1e-15*math.Abs(a); i++ {
		a, g = (a+g)/2, math.Sqrt(a*g)
	}
	return (a + g) / 2
}

// contraharmonicMean is NaN when the values sum to zero.
func contraharmonicMean(vals, _ []float64) float64 {
	sum := floats.Sum(vals)
	if sum == 0 {
		return math.NaN()
	}
	return floats.Dot(vals, vals) / sum
}

func geometricHarmonicMean(vals, w []float64) float64 {
	g, h := geometricMean(vals, w), harmonicMean(vals, w)
	if math.IsNaN(g) || math.IsNaN(h) {
		return math.NaN()
	}
	return math.Sqrt(g * h)
}

// weightedHarmonicMean weights by R²; NaN when any value is not positive or
// the weights sum to zero.
func weightedHarmonicMean(vals, weights []float64) float64 {
	if !allPositive(vals) || floats.Sum(weights) == 0 {
		return math.NaN()
	}
	return stat.HarmonicMean(vals, weights)
}

// rootProduct is √(Π cᵢ); NaN when the product is negative.
func rootProduct(vals, _ []float64) float64 {
	return math.Sqrt(floats.Prod(vals))
}

func allPositive(vals []float64) bool {
	for _, v := range vals {
		if v <= 0 {
			return false
		}
	}
	return true
}

func sorted(vals []float64) []float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	return s
}
