package classify

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// Mask is a per-pixel binary classification of one photograph. Gap is true
// for background pixels (sky or soil) and false for canopy/vegetation, in
// row-major order.
type Mask struct {
	Width  int
	Height int
	Gap    []bool
}

// NewMask allocates an all-canopy mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Gap:    make([]bool, width*height),
	}
}

// Size returns the pixel count of the mask.
func (m *Mask) Size() int {
	return m.Width * m.Height
}

// GapCount returns the number of background-classed pixels.
func (m *Mask) GapCount() int {
	n := 0
	for _, g := range m.Gap {
		if g {
			n++
		}
	}
	return n
}

// Image renders the mask as an 8-bit grayscale image with canopy = 0 and
// gap = 255, the layout used for exported quality-control masks.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, g := range m.Gap {
		if g {
			img.Pix[i] = 255
		}
	}
	return img
}

// WritePNG saves the mask as an 8-bit grayscale PNG.
func (m *Mask) WritePNG(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mask %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, m.Image()); err != nil {
		return fmt.Errorf("encode mask %s: %w", path, err)
	}
	return nil
}

// GapRegions labels the 8-connected regions of gap pixels and returns
// their sizes in pixels. Labeling order is row-major, so the returned
// sizes are in a deterministic order.
func (m *Mask) GapRegions() []int {
	visited := make([]bool, len(m.Gap))
	var sizes []int

	var queue []int
	for start, g := range m.Gap {
		if !g || visited[start] {
			continue
		}

		// Flood fill one region from its first unvisited pixel
		size := 0
		visited[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++

			x := idx % m.Width
			y := idx / m.Width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
						continue
					}
					n := ny*m.Width + nx
					if m.Gap[n] && !visited[n] {
						visited[n] = true
						queue = append(queue, n)
					}
				}
			}
		}

		sizes = append(sizes, size)
	}

	return sizes
}
