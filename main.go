package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/output"
	"github.com/abdo544445/parallel-raytracer/pkg/recording"
	"github.com/abdo544445/parallel-raytracer/pkg/renderer"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// scenesDir is where "json:<name>" scene IDs are resolved
const scenesDir = "scenes"

// options holds the parsed command line
type options struct {
	sceneType string
	width     int
	samples   int
	depth     int
	passes    int
	workers   int
	seed      int64
	format    output.Format
	outputDir string
	recordDir string
}

func main() {
	defaults := renderer.DefaultProgressiveConfig()

	// Parse command line flags
	sceneType := flag.String("scene", "default", "Scene: built-in name, json:<name> from scenes/, or path to a .json file")
	width := flag.Int("width", 0, "Image width in pixels (0 = scene default)")
	samples := flag.Int("samples", 0, "Samples per pixel (0 = scene default)")
	depth := flag.Int("depth", 0, "Maximum ray bounces (0 = scene default)")
	passes := flag.Int("passes", defaults.MaxPasses, "Number of progressive passes")
	workers := flag.Int("workers", 0, "Number of parallel workers (0 = auto-detect CPU count)")
	seed := flag.Int64("seed", defaults.Seed, "Base random seed")
	format := flag.String("format", "png", "Output format: png or ppm")
	outputDir := flag.String("output", "output", "Output directory")
	recordDir := flag.String("record", "", "Record events and pass images into a bundle under this directory")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	// Show help if requested
	if *help {
		showHelp()
		return
	}

	outputFormat, err := output.ParseFormat(*format)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		sceneType: *sceneType,
		width:     *width,
		samples:   *samples,
		depth:     *depth,
		passes:    *passes,
		workers:   *workers,
		seed:      *seed,
		format:    outputFormat,
		outputDir: *outputDir,
		recordDir: *recordDir,
	}

	fmt.Println("Starting Parallel Raytracer...")
	filename, err := run(context.Background(), opts, renderer.NewDefaultLogger())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Render saved as %s\n", filename)
}

func showHelp() {
	fmt.Println("Parallel Raytracer")
	fmt.Println("Usage: raytracer [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Available scenes:")
	for _, info := range scene.BuiltInScenes() {
		fmt.Printf("  %-12s - %s\n", info.ID, info.Description)
	}
	if fileScenes, err := scene.ListJSONScenes(scenesDir); err == nil {
		for _, info := range fileScenes {
			fmt.Printf("  %-12s - %s\n", info.ID, info.Description)
		}
	}
	fmt.Println()
	fmt.Println("Output will be saved to output/<scene>/render_<timestamp>.<format>")
}

// createScene resolves the scene argument and applies the width override
func createScene(sceneType string, width int) (*scene.Scene, error) {
	if sceneType == "" {
		return nil, fmt.Errorf("scene name cannot be empty")
	}

	var overrides []geometry.CameraConfig
	if width > 0 {
		overrides = append(overrides, geometry.CameraConfig{Width: width})
	}
	return scene.Load(sceneType, scenesDir, overrides...)
}

// outputName returns the directory name used for a scene's renders
func outputName(sceneType string) string {
	name := strings.TrimPrefix(sceneType, "json:")
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if name == "" || name == "." {
		return "scene"
	}
	return name
}

// run renders the scene progressively and writes the final image. It returns
// the path of the written file.
func run(ctx context.Context, opts options, logger core.Logger) (string, error) {
	selectedScene, err := createScene(opts.sceneType, opts.width)
	if err != nil {
		return "", err
	}
	if opts.depth > 0 {
		selectedScene.SamplingConfig.MaxDepth = opts.depth
	}
	samplingConfig := selectedScene.GetSamplingConfig()
	samples := samplingConfig.SamplesPerPixel
	if opts.samples > 0 {
		samples = opts.samples
	}

	logger.Printf("Rendering %s at %dx%d, %d samples per pixel, max depth %d\n",
		opts.sceneType, samplingConfig.Width, samplingConfig.Height, samples, samplingConfig.MaxDepth)

	config := renderer.DefaultProgressiveConfig()
	config.MaxSamplesPerPixel = samples
	config.MaxPasses = opts.passes
	config.NumWorkers = opts.workers
	config.Seed = opts.seed

	raytracer := renderer.NewProgressiveRaytracer(selectedScene, config, logger)

	var recorder *recording.Writer
	if opts.recordDir != "" {
		recorder, _, err = recording.NewWriter(opts.recordDir, outputName(opts.sceneType), samplingConfig.Width, samplingConfig.Height, nil)
		if err != nil {
			raytracer.Close()
			return "", fmt.Errorf("failed to start recording: %w", err)
		}
		defer recorder.Close()

		effective := raytracer.Config()
		if err := recorder.RecordStart(recording.StartInfo{
			Scene:           opts.sceneType,
			Width:           samplingConfig.Width,
			Height:          samplingConfig.Height,
			SamplesPerPixel: effective.MaxSamplesPerPixel,
			MaxDepth:        samplingConfig.MaxDepth,
			MaxPasses:       effective.MaxPasses,
			Workers:         effective.NumWorkers,
			Seed:            effective.Seed,
		}); err != nil {
			logger.Printf("Recording start failed: %v\n", err)
		}
	}

	startTime := time.Now()
	passChan, _, errChan := raytracer.RenderProgressive(ctx, renderer.RenderOptions{})

	var final renderer.PassResult
	for result := range passChan {
		final = result
		logger.Printf("Pass %d: %.1f samples per pixel (range %d - %d)\n",
			result.PassNumber, result.Stats.AverageSamples, result.Stats.MinSamples, result.Stats.MaxSamplesUsed)
		if recorder != nil {
			if err := recorder.RecordPass(result); err != nil {
				logger.Printf("Recording pass %d failed: %v\n", result.PassNumber, err)
			}
		}
	}
	renderErr := <-errChan
	renderTime := time.Since(startTime)

	if renderErr == nil && final.Image == nil {
		renderErr = fmt.Errorf("render produced no passes")
	}

	filename := ""
	if renderErr == nil {
		logger.Printf("Render completed in %v\n", renderTime)
		filename = output.RenderPath(opts.outputDir, outputName(opts.sceneType), opts.format, time.Now())
		if err := output.SaveImage(filename, final.Image, opts.format); err != nil {
			renderErr = err
			filename = ""
		}
	}

	if recorder != nil {
		info := recording.CompleteInfo{
			Passes:     final.PassNumber,
			DurationMs: renderTime.Milliseconds(),
			OutputPath: filename,
		}
		if renderErr != nil {
			info.Error = renderErr.Error()
		}
		if err := recorder.RecordComplete(info); err != nil {
			logger.Printf("Recording complete failed: %v\n", err)
		}
		if err := recorder.Close(); err != nil {
			logger.Printf("Recording close failed: %v\n", err)
		}
		logger.Printf("Recording saved in %s\n", recorder.Directory())
	}

	if renderErr != nil {
		return "", renderErr
	}
	return filename, nil
}
