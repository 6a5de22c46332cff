package canopy

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"canopycover/pkg/classify"
	"canopycover/pkg/uncertainty"
)

// ErrInsufficientSamples reports a plot with no usable images.
var ErrInsufficientSamples = errors.New("no usable images in plot directory")

// PlotResult maps a variable name to its estimate. Keys are paie, pai
// (gaie, gai for downward plots), clumping, fcover, cc and cp. Built once
// per plot and not modified afterwards.
type PlotResult map[string]uncertainty.Value

// ResultKeys returns the result variable names for a direction, in the
// stable order used for printing and CSV output.
func ResultKeys(direction classify.Direction) []string {
	if direction == classify.Down {
		return []string{"gaie", "gai", "clumping", "fcover", "cc", "cp"}
	}
	return []string{"paie", "pai", "clumping", "fcover", "cc", "cp"}
}

// Estimate inverts a plot's per-image statistics into the biophysical
// variables.
//
// The effective index averages the per-image log gap fractions before
// scaling; the actual index logs the mean gap fraction instead. The order
// of operations is the mechanism separating clumped from random foliage
// dispersion and is kept distinct on purpose. The clumping index is the
// ratio of the two, computed directly from the shared sample moments so
// the extinction coefficient cancels exactly and the variance the two
// indices share is not counted twice.
//
// Per-image binomial variance and between-image dispersion are combined in
// quadrature; the extinction coefficient's own uncertainty enters the two
// indices but, being common to both, never enters the clumping index.
func Estimate(stats []ImageStats, k uncertainty.Value, direction classify.Direction, viewZenithDeg float64) (PlotResult, error) {
	n := len(stats)
	if n == 0 {
		return nil, ErrInsufficientSamples
	}

	ps := make([]float64, n)
	logs := make([]float64, n)
	var binomP, binomLog, binomCross float64
	for i, s := range stats {
		ps[i] = s.Gap.Fraction
		logs[i] = math.Log(s.Gap.Fraction)

		// Binomial contributions to the two means and their covariance;
		// d(ln p)/dp = 1/p carries the per-image variance into log space.
		sig2 := s.Gap.Sigma * s.Gap.Sigma
		binomP += sig2
		if s.Gap.Fraction > 0 {
			binomLog += sig2 / (s.Gap.Fraction * s.Gap.Fraction)
			binomCross += sig2 / s.Gap.Fraction
		}
	}

	nf := float64(n)
	meanP := stat.Mean(ps, nil)
	meanLog := stat.Mean(logs, nil)

	// Between-image dispersion; a single image contributes none.
	var betweenP, betweenLog, betweenCross float64
	if n > 1 {
		betweenP = stat.Variance(ps, nil)
		betweenLog = stat.Variance(logs, nil)
		betweenCross = stat.Covariance(ps, logs, nil)
	}

	varMeanP := betweenP/nf + binomP/(nf*nf)
	varMeanLog := betweenLog/nf + binomLog/(nf*nf)
	covMeans := betweenCross/nf + binomCross/(nf*nf)

	uMeanP := uncertainty.New(meanP, math.Sqrt(varMeanP))
	uMeanLog := uncertainty.New(meanLog, math.Sqrt(varMeanLog))

	cosTheta := math.Cos(viewZenithDeg * math.Pi / 180)

	// Effective index: scale the averaged per-image logs
	effective := uMeanLog.Scale(-cosTheta).Div(k)

	// Actual index: log the averaged gap fraction, then scale
	actual := uMeanP.Log().Scale(-cosTheta).Div(k)

	// Clumping index from the shared moments: omega = meanLog / ln(meanP),
	// so k and the view angle cancel out of both value and uncertainty.
	logMeanP := math.Log(meanP)
	omega := meanLog / logMeanP
	dOmegaDLog := 1 / logMeanP
	dOmegaDP := -meanLog / (meanP * logMeanP * logMeanP)
	varOmega := dOmegaDLog*dOmegaDLog*varMeanLog +
		dOmegaDP*dOmegaDP*varMeanP +
		2*dOmegaDLog*dOmegaDP*covMeans
	if varOmega < 0 {
		// First-order cancellation can land a hair below zero
		varOmega = 0
	}
	clumping := uncertainty.New(omega, math.Sqrt(varOmega))

	fcover := uncertainty.Exact(1).Sub(uMeanP)

	ccs := make([]float64, 0, n)
	cps := make([]float64, 0, n)
	for _, s := range stats {
		if !math.IsNaN(s.CrownCover) {
			ccs = append(ccs, s.CrownCover)
		}
		if !math.IsNaN(s.CrownPorosity) {
			cps = append(cps, s.CrownPorosity)
		}
	}

	keys := ResultKeys(direction)
	result := PlotResult{
		keys[0]:    effective,
		keys[1]:    actual,
		"clumping": clumping,
		"fcover":   fcover,
		"cc":       meanWithStandardError(ccs),
		"cp":       meanWithStandardError(cps),
	}
	return result, nil
}

// meanWithStandardError reduces a finite sample series to its mean and the
// standard error of that mean.
func meanWithStandardError(xs []float64) uncertainty.Value {
	n := len(xs)
	if n == 0 {
		return uncertainty.New(math.NaN(), 0)
	}
	mean := stat.Mean(xs, nil)
	if n == 1 {
		return uncertainty.Exact(mean)
	}
	se := math.Sqrt(stat.Variance(xs, nil) / float64(n))
	return uncertainty.New(mean, se)
}
