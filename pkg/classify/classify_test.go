package classify

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"canopycover/pkg/imgio"
)

// makePixmap builds a test pixmap from per-pixel band functions
func makePixmap(width, height int, bands func(x, y int) (r, g, b float64)) *imgio.Pixmap {
	p := imgio.NewPixmap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			p.R[i], p.G[i], p.B[i] = bands(x, y)
		}
	}
	return p
}

// TestIntermeansDegenerate verifies that zero-variance inputs are rejected
func TestIntermeansDegenerate(t *testing.T) {
	values := []float64{128, 128, 128, 128}
	if _, err := Intermeans(values); err != ErrDegenerateImage {
		t.Errorf("Expected ErrDegenerateImage, got %v", err)
	}

	if _, err := Intermeans(nil); err != ErrDegenerateImage {
		t.Errorf("Expected ErrDegenerateImage for empty input, got %v", err)
	}
}

// TestIntermeansBimodal verifies the threshold converges between two
// well-separated clusters
func TestIntermeansBimodal(t *testing.T) {
	values := []float64{10, 12, 14, 10, 240, 242, 244, 240}
	threshold, err := Intermeans(values)
	if err != nil {
		t.Fatalf("Intermeans failed: %v", err)
	}
	if threshold <= 14 || threshold >= 240 {
		t.Errorf("Expected threshold between the clusters, got %f", threshold)
	}
	// Midpoint of class means: (11.5 + 241.5) / 2
	if math.Abs(threshold-126.5) > intermeansTolerance {
		t.Errorf("Expected threshold near 126.5, got %f", threshold)
	}
}

// TestIntermeansMonotoneConvergence replays the threshold iteration over
// several intensity distributions and verifies the successive |T_new - T|
// steps shrink monotonically until the tolerance fires, well inside the
// iteration cap
func TestIntermeansMonotoneConvergence(t *testing.T) {
	quadratic := make([]float64, 256)
	decay := make([]float64, 200)
	for i := range quadratic {
		quadratic[i] = float64(i) * float64(i) / 255
	}
	for i := range decay {
		decay[i] = 255 * math.Exp(-float64(i)/40)
	}

	cases := []struct {
		name   string
		values []float64
	}{
		{"bimodal", []float64{10, 12, 14, 10, 240, 242, 244, 240}},
		{"skewed clusters", []float64{10, 10, 12, 12, 14, 14, 16, 16, 18, 18, 200, 210, 220}},
		{"quadratic ramp", quadratic},
		{"exponential decay", decay},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sum float64
			for _, v := range tc.values {
				sum += v
			}

			// Replay the Ridler-Calvard iteration from the overall mean
			threshold := sum / float64(len(tc.values))
			prevDelta := math.Inf(1)
			converged := false
			for i := 0; i < intermeansMaxIterations; i++ {
				next := intermeansStep(tc.values, threshold)
				delta := math.Abs(next - threshold)
				if delta > prevDelta+1e-9 {
					t.Fatalf("Step %d grew: |T_new - T| went %f -> %f", i, prevDelta, delta)
				}
				prevDelta = delta
				if delta < intermeansTolerance {
					threshold = next
					converged = true
					break
				}
				threshold = next
			}
			if !converged {
				t.Fatal("Iteration did not converge within the cap")
			}

			// The replayed endpoint must be the threshold Intermeans returns
			got, err := Intermeans(tc.values)
			if err != nil {
				t.Fatalf("Intermeans failed: %v", err)
			}
			if got != threshold {
				t.Errorf("Expected converged threshold %f, got %f", threshold, got)
			}
		})
	}
}

// TestClassifyUpHalfAndHalf verifies the textbook case: a sharp vertical
// black/white boundary splits exactly in half with an unambiguous threshold
func TestClassifyUpHalfAndHalf(t *testing.T) {
	width, height := 40, 20
	p := makePixmap(width, height, func(x, y int) (float64, float64, float64) {
		if x < width/2 {
			return 0, 0, 0
		}
		return 255, 255, 255
	})

	mask, err := Classify(p, Up)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if got := mask.GapCount(); got != width*height/2 {
		t.Errorf("Expected %d gap pixels, got %d", width*height/2, got)
	}

	// Bright half must be the gap (sky) class
	if !mask.Gap[width-1] {
		t.Error("Expected bright pixels to be classified as gap")
	}
	if mask.Gap[0] {
		t.Error("Expected dark pixels to be classified as canopy")
	}
}

// TestClassifyUpDegenerate verifies that a uniform sky image aborts
// classification
func TestClassifyUpDegenerate(t *testing.T) {
	p := makePixmap(16, 16, func(x, y int) (float64, float64, float64) {
		return 255, 255, 255
	})
	if _, err := Classify(p, Up); err != ErrDegenerateImage {
		t.Errorf("Expected ErrDegenerateImage, got %v", err)
	}
}

// TestClassifyDown verifies that green vegetation separates from soil via
// the combined excess-green/excess-red index
func TestClassifyDown(t *testing.T) {
	width, height := 30, 30
	// Top third is grass, the rest is bare soil
	p := makePixmap(width, height, func(x, y int) (float64, float64, float64) {
		if y < height/3 {
			return 50, 200, 50 // vegetation
		}
		return 150, 100, 60 // soil
	})

	mask, err := Classify(p, Down)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if mask.Gap[0] {
		t.Error("Expected vegetation pixels to be classified as foreground")
	}
	if !mask.Gap[mask.Size()-1] {
		t.Error("Expected soil pixels to be classified as gap")
	}
	if got, want := mask.GapCount(), width*height*2/3; got != want {
		t.Errorf("Expected %d gap pixels, got %d", want, got)
	}
}

// TestClassifyDeterministic verifies repeated classification of identical
// pixel data yields identical masks
func TestClassifyDeterministic(t *testing.T) {
	p := makePixmap(32, 32, func(x, y int) (float64, float64, float64) {
		v := float64((x*31 + y*17) % 256)
		return v, v, v
	})

	for _, direction := range []Direction{Up, Down} {
		first, err := Classify(p, direction)
		if err != nil {
			t.Fatalf("Classify %s failed: %v", direction, err)
		}
		second, err := Classify(p, direction)
		if err != nil {
			t.Fatalf("Classify %s failed: %v", direction, err)
		}
		for i := range first.Gap {
			if first.Gap[i] != second.Gap[i] {
				t.Fatalf("Direction %s: mask differs at pixel %d between runs", direction, i)
			}
		}
	}
}

// TestGapRegions verifies 8-connected labeling, including the diagonal case
func TestGapRegions(t *testing.T) {
	// 0 1 0 0
	// 1 0 0 0
	// 0 0 0 1
	// 0 0 1 1
	m := NewMask(4, 4)
	for _, i := range []int{1, 4, 11, 14, 15} {
		m.Gap[i] = true
	}

	sizes := m.GapRegions()
	if len(sizes) != 2 {
		t.Fatalf("Expected 2 regions (diagonals connect), got %d: %v", len(sizes), sizes)
	}
	if sizes[0] != 2 || sizes[1] != 3 {
		t.Errorf("Expected region sizes [2 3], got %v", sizes)
	}
}

// TestMaskWritePNG verifies the exported mask raster uses canopy = 0 and
// gap = 255
func TestMaskWritePNG(t *testing.T) {
	dir, err := os.MkdirTemp("", "canopycover-test-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	m := NewMask(3, 2)
	m.Gap[0] = true
	m.Gap[5] = true

	path := filepath.Join(dir, "mask_bin.png")
	if err := m.WritePNG(path); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open exported mask: %v", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode exported mask: %v", err)
	}

	r0, _, _, _ := img.At(0, 0).RGBA()
	if r0 != 65535 {
		t.Errorf("Expected gap pixel to be white, got %d", r0)
	}
	r1, _, _, _ := img.At(1, 0).RGBA()
	if r1 != 0 {
		t.Errorf("Expected canopy pixel to be black, got %d", r1)
	}
}
