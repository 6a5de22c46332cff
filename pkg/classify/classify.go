// Package classify converts preprocessed plot photographs into binary
// canopy/gap masks. Upward-facing images are thresholded on the blue band,
// which carries the strongest sky/canopy contrast and the least chromatic
// aberration; downward-facing images are thresholded on a combined
// vegetation colour index that separates green vegetation from soil and
// litter. Both paths share the same iterative intermeans threshold.
package classify

import "canopycover/pkg/imgio"

// Classify converts a pixmap into a binary mask using the algorithm
// selected by the acquisition direction. The classification is
// deterministic: identical pixel data always yields an identical mask.
func Classify(p *imgio.Pixmap, direction Direction) (*Mask, error) {
	if direction == Down {
		return classifyDown(p)
	}
	return classifyUp(p)
}

// classifyUp thresholds the blue band with the intermeans procedure.
// Pixels brighter than the converged threshold are sky.
func classifyUp(p *imgio.Pixmap) (*Mask, error) {
	t, err := Intermeans(p.B)
	if err != nil {
		return nil, err
	}

	m := NewMask(p.Width, p.Height)
	for i, v := range p.B {
		m.Gap[i] = v > t
	}
	return m, nil
}

// classifyDown computes the excess-green and excess-red colour indices,
// thresholds their difference with the intermeans procedure, and classes
// pixels above the threshold as vegetation.
func classifyDown(p *imgio.Pixmap) (*Mask, error) {
	combined := make([]float64, p.Size())
	for i := range combined {
		exGreen := 2*p.G[i] - p.R[i] - p.B[i]
		exRed := 1.4*p.R[i] - p.G[i]
		combined[i] = exGreen - exRed
	}

	t, err := Intermeans(combined)
	if err != nil {
		return nil, err
	}

	m := NewMask(p.Width, p.Height)
	for i, v := range combined {
		m.Gap[i] = v <= t
	}
	return m, nil
}
