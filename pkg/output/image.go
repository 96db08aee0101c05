package output

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is an image file format
type Format string

// Supported formats
const (
	FormatPNG Format = "png"
	FormatPPM Format = "ppm"
)

// ParseFormat converts a user-supplied format name
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(name, "."))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatPPM:
		return FormatPPM, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use png or ppm)", name)
	}
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// Encode writes img to w in the given format
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return WritePNG(w, img)
	case FormatPPM:
		return WritePPM(w, img)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WritePNG encodes img as PNG
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// WritePPM encodes img as plain-text PPM (P3): a header followed by one
// "r g b" line per pixel, top row first
func WritePPM(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return fmt.Errorf("failed to write PPM header: %w", err)
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.R, c.G, c.B); err != nil {
				return fmt.Errorf("failed to write PPM pixel (%d,%d): %w", x, y, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush PPM: %w", err)
	}
	return nil
}

// SaveImage writes img to filename, creating parent directories as needed
func SaveImage(filename string, img image.Image, format Format) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()

	return Encode(file, img, format)
}

// RenderPath returns <outputDir>/<sceneName>/render_<timestamp>.<ext>
func RenderPath(outputDir, sceneName string, format Format, now time.Time) string {
	timestamp := now.Format("20060102_150405")
	return filepath.Join(outputDir, sceneName, fmt.Sprintf("render_%s.%s", timestamp, format.Extension()))
}
