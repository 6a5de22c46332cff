// Package canopy reduces binary canopy/gap masks to per-image statistics
// and inverts them into plot-level biophysical estimates with first-order
// uncertainty propagation.
package canopy

import (
	"errors"
	"math"

	"canopycover/pkg/classify"
)

// ErrEmptyMask reports a mask with no pixels, usually a downsampling
// factor larger than the image.
var ErrEmptyMask = errors.New("mask has zero pixels, check the downsample factor")

// largeGapAreaFraction separates between-crown gaps from within-crown
// porosity: a gap region covering more than this fraction of the image is
// counted as lying between crowns (Macfarlane's 1.3% criterion).
const largeGapAreaFraction = 0.013

// Sample is one image's gap fraction with the uncertainty implied by its
// pixel count.
type Sample struct {
	// Fraction is the share of background-classed pixels, in [0, 1]
	Fraction float64

	// Sigma is the binomial sampling uncertainty sqrt(p(1-p)/n). It
	// captures pixel-count confidence only; image-to-image variability is
	// handled by the plot-level aggregation.
	Sigma float64

	// Pixels is the pixel count the fraction was computed over
	Pixels int
}

// ImageStats gathers everything the plot-level estimator needs from one
// classified image.
type ImageStats struct {
	Gap Sample

	// CrownCover is the fraction of the image attributable to crown
	// extent: everything except gap regions large enough to lie between
	// crowns.
	CrownCover float64

	// CrownPorosity is the fraction of the crown extent that is itself
	// gap. NaN when the image has no crown extent at all.
	CrownPorosity float64
}

// GapFraction reduces a mask to its gap-fraction sample. The uncertainty
// is the binomial sampling deviation of the pixel-level classification, so
// it is exactly zero for an all-gap or all-canopy mask.
func GapFraction(m *classify.Mask) (Sample, error) {
	n := m.Size()
	if n == 0 {
		return Sample{}, ErrEmptyMask
	}

	p := float64(m.GapCount()) / float64(n)
	return Sample{
		Fraction: p,
		Sigma:    math.Sqrt(p * (1 - p) / float64(n)),
		Pixels:   n,
	}, nil
}

// CrownMetrics computes crown cover and crown porosity from a mask's gap
// geometry. Gap regions larger than largeGapAreaFraction of the image are
// between-crown gaps and count against crown cover; the remaining small
// gaps are holes inside crowns and drive the porosity.
func CrownMetrics(m *classify.Mask) (crownCover, crownPorosity float64, err error) {
	n := m.Size()
	if n == 0 {
		return 0, 0, ErrEmptyMask
	}

	largeGapPixels := 0
	for _, size := range m.GapRegions() {
		if float64(size)/float64(n) > largeGapAreaFraction {
			largeGapPixels += size
		}
	}

	gf := float64(m.GapCount()) / float64(n)
	crownCover = 1 - float64(largeGapPixels)/float64(n)
	if crownCover == 0 {
		// The whole image is one large gap; porosity of a non-existent
		// crown is undefined and skipped by the aggregation.
		return 0, math.NaN(), nil
	}
	crownPorosity = 1 - (1-gf)/crownCover

	return crownCover, crownPorosity, nil
}

// AnalyzeMask reduces a mask to the full per-image statistics record.
func AnalyzeMask(m *classify.Mask) (ImageStats, error) {
	gap, err := GapFraction(m)
	if err != nil {
		return ImageStats{}, err
	}

	cc, cp, err := CrownMetrics(m)
	if err != nil {
		return ImageStats{}, err
	}

	return ImageStats{Gap: gap, CrownCover: cc, CrownPorosity: cp}, nil
}
