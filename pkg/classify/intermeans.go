package classify

import (
	"errors"
	"math"
)

// ErrDegenerateImage reports an image whose pixel intensities have zero
// variance, leaving the classification threshold undefined.
var ErrDegenerateImage = errors.New("zero pixel-intensity variance, classification threshold undefined")

const (
	// intermeansTolerance is the convergence tolerance of the iterative
	// threshold, one intensity unit on the 0-255 scale
	intermeansTolerance = 1.0

	// intermeansMaxIterations bounds the convergence loop; if the bound is
	// hit the last computed threshold is used
	intermeansMaxIterations = 100
)

// Intermeans computes the Ridler-Calvard iterative threshold of a sample
// set. Starting from the overall mean, the threshold is repeatedly moved to
// the midpoint of the means of the two classes it induces, until successive
// thresholds differ by less than the tolerance. Returns ErrDegenerateImage
// when the samples have zero variance.
func Intermeans(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrDegenerateImage
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	if lo == hi {
		return 0, ErrDegenerateImage
	}

	// The threshold always stays strictly between lo and hi, so both
	// classes remain non-empty throughout the iteration.
	t := sum / float64(len(values))
	for i := 0; i < intermeansMaxIterations; i++ {
		next := intermeansStep(values, t)
		if math.Abs(next-t) < intermeansTolerance {
			return next, nil
		}
		t = next
	}

	return t, nil
}

// intermeansStep moves a threshold to the midpoint of the means of the two
// classes it induces.
func intermeansStep(values []float64, t float64) float64 {
	var belowSum, aboveSum float64
	var belowN, aboveN int
	for _, v := range values {
		if v > t {
			aboveSum += v
			aboveN++
		} else {
			belowSum += v
			belowN++
		}
	}

	return (belowSum/float64(belowN) + aboveSum/float64(aboveN)) / 2
}
