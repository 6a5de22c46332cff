package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"canopycover/pkg/canopy"
	"canopycover/pkg/classify"
	"canopycover/pkg/config"
	"canopycover/pkg/plot"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing one plot's photographs")
	directionArg := flag.String("direction", "up", "Acquisition direction: up (canopy/sky) or down (vegetation/soil)")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	saveConfigPath := flag.String("save-config", "", "Write a default configuration file to this path and exit")
	kValue := flag.Float64("k", 0.5, "Extinction coefficient")
	kSigma := flag.Float64("k-sigma", 0.2, "Standard uncertainty of the extinction coefficient")
	downFactor := flag.Int("downsample", 3, "Integer downsampling factor")
	preProcessRAW := flag.Bool("raw", true, "Denormalize 16-bit camera-linear input frames")
	saveMasks := flag.Bool("save-masks", false, "Save each binary mask as a PNG next to its source image")
	workers := flag.Int("workers", 0, "Number of images to classify concurrently (0 = configuration default)")
	csvPath := flag.String("csv", "", "Append the plot result as one CSV row to this file")
	quiet := flag.Bool("quiet", false, "Suppress per-image progress output")
	flag.Parse()

	if *saveConfigPath != "" {
		if err := config.CreateDefaultConfigFile(*saveConfigPath); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *saveConfigPath)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	direction, err := classify.ParseDirection(*directionArg)
	if err != nil {
		log.Fatalf("Invalid direction: %v", err)
	}

	// Load the configuration file (or defaults), then overlay whichever
	// flags were set explicitly on the command line.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			cfg.Processing.ExtinctionCoefficient = *kValue
		case "k-sigma":
			cfg.Processing.ExtinctionUncertainty = *kSigma
		case "downsample":
			cfg.Processing.DownsampleFactor = *downFactor
		case "raw":
			cfg.Input.PreProcessRAW = *preProcessRAW
		case "save-masks":
			cfg.Output.SaveBinaryMasks = *saveMasks
		case "workers":
			cfg.Processing.NumWorkers = *workers
		case "quiet":
			cfg.Output.Verbose = !*quiet
		}
	})

	aggregator := plot.NewAggregator(&plot.Params{
		InputDir:  *inputDir,
		Direction: direction,
		Config:    cfg,
	})

	result, err := aggregator.Process()
	if err != nil {
		log.Fatalf("Plot processing failed: %v", err)
	}

	fmt.Printf("\nPlot: %s (%d images, direction %s)\n", *inputDir, len(aggregator.Files()), direction)
	if earliest, latest, ok := aggregator.AcquisitionWindow(); ok {
		fmt.Printf("Acquired between %s and %s\n",
			earliest.Format("2006-01-02 15:04:05"), latest.Format("2006-01-02 15:04:05"))
	}

	fmt.Printf("\nVariable    Estimate    Uncertainty\n")
	fmt.Printf("===================================\n")
	for _, key := range canopy.ResultKeys(direction) {
		v := result[key]
		fmt.Printf("%-10s  %10.4f  %10.4f\n", strings.ToUpper(key), v.Nominal, v.Sigma)
	}

	if *csvPath != "" {
		if err := appendCSV(*csvPath, *inputDir, direction, result); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		fmt.Printf("\nResult appended to %s\n", *csvPath)
	}
}

// appendCSV appends one result row to path, writing a header first when the
// file is new or empty.
func appendCSV(path string, inputDir string, direction classify.Direction, result canopy.PlotResult) error {
	info, err := os.Stat(path)
	writeHeader := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	keys := canopy.ResultKeys(direction)

	if writeHeader {
		header := []string{"plot", "direction"}
		for _, key := range keys {
			header = append(header, key, key+"_sigma")
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	row := []string{inputDir, string(direction)}
	for _, key := range keys {
		v := result[key]
		row = append(row,
			strconv.FormatFloat(v.Nominal, 'f', 6, 64),
			strconv.FormatFloat(v.Sigma, 'f', 6, 64))
	}
	if err := w.Write(row); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
