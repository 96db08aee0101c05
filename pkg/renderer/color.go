package renderer

import (
	"image/color"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
)

// maxChannel keeps 256*channel below 256 so it truncates to a valid byte
const maxChannel = 0.999

// GammaCorrect averages an accumulated sample sum and applies gamma 2.
// samples must be positive; zero samples yields NaN (or Inf) channels.
func GammaCorrect(sum core.Color, samples int) core.Color {
	scale := 1.0 / float64(samples)
	return sum.Multiply(scale).Sqrt()
}

// Quantize clamps a gamma-corrected color to [0, 0.999] and scales it to 8 bits
func Quantize(c core.Color) color.RGBA {
	c = c.Clamp(0.0, maxChannel)
	return color.RGBA{
		R: uint8(256 * c.X),
		G: uint8(256 * c.Y),
		B: uint8(256 * c.Z),
		A: 255,
	}
}

// ColorToRGBA maps the sum of samples radiance values to an opaque 8-bit pixel
func ColorToRGBA(sum core.Color, samples int) color.RGBA {
	return Quantize(GammaCorrect(sum, samples))
}
