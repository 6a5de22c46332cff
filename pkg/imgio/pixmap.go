package imgio

import (
	"fmt"
	"image"
	"math"
)

// rawGamma is the display gamma applied when denormalizing camera-linear
// 16-bit frames, approximating the rendition of a developed photograph.
const rawGamma = 2.2

// Pixmap holds one photograph as planar float red, green and blue bands on
// a 0-255 intensity scale, in row-major order. All classification operates
// on pixmaps so that 8-bit and 16-bit sources share one code path.
type Pixmap struct {
	Width  int
	Height int
	R      []float64
	G      []float64
	B      []float64
}

// NewPixmap allocates a zeroed pixmap of the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	n := width * height
	return &Pixmap{
		Width:  width,
		Height: height,
		R:      make([]float64, n),
		G:      make([]float64, n),
		B:      make([]float64, n),
	}
}

// Size returns the pixel count of the pixmap.
func (p *Pixmap) Size() int {
	return p.Width * p.Height
}

// FromImage converts a decoded image into a float pixmap. When denormalize
// is set, 16-bit sources are assumed to hold camera-linear data and are
// gamma-encoded so they match the rendition of a developed 8-bit
// photograph; 8-bit sources are never altered.
func FromImage(img image.Image, denormalize bool) *Pixmap {
	bounds := img.Bounds()
	p := NewPixmap(bounds.Dx(), bounds.Dy())

	applyGamma := denormalize && is16Bit(img)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()

			// RGBA returns 16-bit samples; 257 maps 65535 to 255 exactly
			p.R[i] = float64(r) / 257.0
			p.G[i] = float64(g) / 257.0
			p.B[i] = float64(b) / 257.0

			if applyGamma {
				p.R[i] = gammaEncode(p.R[i])
				p.G[i] = gammaEncode(p.G[i])
				p.B[i] = gammaEncode(p.B[i])
			}
			i++
		}
	}

	return p
}

// gammaEncode maps a linear intensity on the 0-255 scale to its
// gamma-encoded equivalent on the same scale.
func gammaEncode(v float64) float64 {
	return 255.0 * math.Pow(v/255.0, 1.0/rawGamma)
}

// is16Bit reports whether the decoded image carries 16 bits per sample.
func is16Bit(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		return true
	}
	return false
}

// Downsample reduces the pixmap by an integer factor using a per-band
// block mean: each factor x factor cell of the source collapses to the
// arithmetic mean of its samples. Trailing rows and columns that do not
// fill a complete block are dropped. The reduction is pure arithmetic on
// the stored samples, so repeated runs are bit-identical. A factor of 1
// returns the pixmap unchanged.
func Downsample(p *Pixmap, factor int) (*Pixmap, error) {
	if factor < 1 {
		return nil, fmt.Errorf("downsample factor must be a positive integer, got %d", factor)
	}
	if factor == 1 {
		return p, nil
	}

	outW := p.Width / factor
	outH := p.Height / factor
	out := NewPixmap(outW, outH)

	area := float64(factor * factor)
	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			var sumR, sumG, sumB float64
			for dy := 0; dy < factor; dy++ {
				row := (oy*factor + dy) * p.Width
				for dx := 0; dx < factor; dx++ {
					idx := row + ox*factor + dx
					sumR += p.R[idx]
					sumG += p.G[idx]
					sumB += p.B[idx]
				}
			}
			o := oy*outW + ox
			out.R[o] = sumR / area
			out.G[o] = sumG / area
			out.B[o] = sumB / area
		}
	}

	return out, nil
}
