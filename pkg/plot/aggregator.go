// Package plot orchestrates the per-plot pipeline: it enumerates a plot
// directory, runs decode, preprocessing, classification and gap-fraction
// reduction for every photograph, and hands the collected sample set to the
// biophysical estimator. One Aggregator invocation per plot; invocations
// are independent and share no state.
package plot

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"canopycover/pkg/canopy"
	"canopycover/pkg/classify"
	"canopycover/pkg/config"
	"canopycover/pkg/imgio"
	"canopycover/pkg/uncertainty"
)

// Params holds the inputs of one plot aggregation.
type Params struct {
	// InputDir is the directory containing the plot's photographs
	InputDir string

	// Direction is the acquisition direction of the photographs
	Direction classify.Direction

	// Config carries the processing configuration; nil selects defaults
	Config *config.Config
}

// Aggregator runs the processing pipeline for a single plot.
type Aggregator struct {
	params *Params
	cfg    *config.Config

	files []string
	stats []canopy.ImageStats

	earliest time.Time
	latest   time.Time
}

// NewAggregator creates an aggregator for one plot.
func NewAggregator(params *Params) *Aggregator {
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Aggregator{params: params, cfg: cfg}
}

// Files returns the photographs of the plot in processing order, available
// after Process.
func (a *Aggregator) Files() []string {
	return a.files
}

// AcquisitionWindow returns the earliest and latest EXIF capture timestamps
// found among the plot's photographs. ok is false when no image carried a
// timestamp.
func (a *Aggregator) AcquisitionWindow() (earliest, latest time.Time, ok bool) {
	return a.earliest, a.latest, !a.earliest.IsZero()
}

// Process runs the full pipeline and returns the plot's results. Any
// per-image failure aborts the whole plot: silently dropping an image would
// bias the plot-level means without notice, so the caller must pre-filter
// bad frames explicitly.
func (a *Aggregator) Process() (canopy.PlotResult, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("plot %s: %w", a.params.InputDir, err)
	}

	files, err := imgio.ListImages(a.params.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("plot %s: %w", a.params.InputDir, canopy.ErrInsufficientSamples)
	}
	a.files = files

	if a.cfg.Output.Verbose {
		log.Printf("Processing plot %s: %d images, direction %s",
			a.params.InputDir, len(files), a.params.Direction)
	}

	if err := a.processImages(); err != nil {
		return nil, err
	}

	k := uncertainty.New(a.cfg.Processing.ExtinctionCoefficient, a.cfg.Processing.ExtinctionUncertainty)
	result, err := canopy.Estimate(a.stats, k, a.params.Direction, a.cfg.Processing.ViewZenithDegrees)
	if err != nil {
		return nil, fmt.Errorf("plot %s: %w", a.params.InputDir, err)
	}
	return result, nil
}

// processImages classifies every photograph, fanning out across a bounded
// worker pool. Results land in a slice indexed by image, so the collected
// sample sequence is deterministic regardless of worker scheduling.
func (a *Aggregator) processImages() error {
	type imageResult struct {
		stats canopy.ImageStats
		taken time.Time
		err   error
	}

	workers := a.cfg.Processing.NumWorkers
	if workers > len(a.files) {
		workers = len(a.files)
	}

	results := make([]imageResult, len(a.files))
	jobs := make(chan int)
	done := make(chan struct{})

	// The first failure closes done, which stops the feeder so a bad
	// frame early in a large plot does not cost a full pass. Jobs already
	// handed out still finish.
	var closeOnce sync.Once
	cancel := func() { closeOnce.Do(func() { close(done) }) }

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				stats, taken, err := a.processImage(a.files[i])
				results[i] = imageResult{stats: stats, taken: taken, err: err}
				if err != nil {
					cancel()
				}
			}
		}()
	}
feed:
	for i := range a.files {
		select {
		case jobs <- i:
		case <-done:
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// Jobs are fed in file order, so every file before a failed one has
	// been processed; scanning in order surfaces the first failure
	// deterministically, regardless of worker scheduling.
	a.stats = make([]canopy.ImageStats, len(a.files))
	for i, res := range results {
		if res.err != nil {
			return res.err
		}
		a.stats[i] = res.stats
		if !res.taken.IsZero() {
			if a.earliest.IsZero() || res.taken.Before(a.earliest) {
				a.earliest = res.taken
			}
			if res.taken.After(a.latest) {
				a.latest = res.taken
			}
		}
	}
	return nil
}

// processImage runs the per-image pipeline: decode, pixmap conversion,
// downsampling, classification, optional mask export, and reduction to the
// per-image statistics.
func (a *Aggregator) processImage(path string) (canopy.ImageStats, time.Time, error) {
	img, err := imgio.Load(path)
	if err != nil {
		return canopy.ImageStats{}, time.Time{}, err
	}

	pm := imgio.FromImage(img, a.cfg.Input.PreProcessRAW)
	pm, err = imgio.Downsample(pm, a.cfg.Processing.DownsampleFactor)
	if err != nil {
		return canopy.ImageStats{}, time.Time{}, fmt.Errorf("downsample %s: %w", path, err)
	}

	mask, err := classify.Classify(pm, a.params.Direction)
	if err != nil {
		return canopy.ImageStats{}, time.Time{}, fmt.Errorf("classify %s: %w", path, err)
	}

	if a.cfg.Output.SaveBinaryMasks {
		if err := mask.WritePNG(MaskPath(path)); err != nil {
			return canopy.ImageStats{}, time.Time{}, err
		}
	}

	stats, err := canopy.AnalyzeMask(mask)
	if err != nil {
		return canopy.ImageStats{}, time.Time{}, fmt.Errorf("gap fraction %s: %w", path, err)
	}

	if a.cfg.Output.Verbose {
		log.Printf("  %s: gap fraction %.4f over %d pixels",
			filepath.Base(path), stats.Gap.Fraction, stats.Gap.Pixels)
	}

	taken, _ := imgio.AcquisitionTime(path)
	return stats, taken, nil
}

// MaskPath returns the export path for a photograph's binary mask: the
// source path with its extension replaced by "_bin.png".
func MaskPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "_bin.png"
}
