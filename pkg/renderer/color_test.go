package renderer

import (
	"image/color"
	"math"
	"testing"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
)

func TestColorToRGBA(t *testing.T) {
	tests := []struct {
		name     string
		sum      core.Color
		samples  int
		expected color.RGBA
	}{
		{"full white", core.NewVec3(4, 4, 4), 4, color.RGBA{255, 255, 255, 255}},
		{"black", core.NewVec3(0, 0, 0), 4, color.RGBA{0, 0, 0, 255}},
		{"overbright clamps", core.NewVec3(10, 20, 30), 1, color.RGBA{255, 255, 255, 255}},
		{"negative clamps", core.NewVec3(-1, -1, -1), 1, color.RGBA{0, 0, 0, 255}},
		// sqrt(0.25) = 0.5 -> 128
		{"gamma 2", core.NewVec3(0.25, 1, 0), 1, color.RGBA{128, 255, 0, 255}},
		{"averaged gamma", core.NewVec3(1, 0, 0), 4, color.RGBA{128, 0, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColorToRGBA(tt.sum, tt.samples)
			if got != tt.expected {
				t.Errorf("ColorToRGBA(%v, %d) = %v, want %v", tt.sum, tt.samples, got, tt.expected)
			}
		})
	}
}

func TestGammaCorrect_ZeroSamplesIsNaN(t *testing.T) {
	got := GammaCorrect(core.Color{}, 0)
	if !math.IsNaN(got.X) || !math.IsNaN(got.Y) || !math.IsNaN(got.Z) {
		t.Errorf("Expected NaN channels for zero samples, got %v", got)
	}

	// Quantizing a NaN color must not panic; the byte values are unspecified
	c := Quantize(got)
	if c.A != 255 {
		t.Errorf("Expected opaque pixel, got alpha %d", c.A)
	}
}

func TestQuantize_UpperClamp(t *testing.T) {
	c := Quantize(core.NewVec3(0.999, 1.0, 0.998))
	// 256*0.998 = 255.488
	if c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("Expected 255 for channels at or near 1, got %v", c)
	}
}
