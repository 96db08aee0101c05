package renderer

import (
	"image"

	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// Raytracer renders a scene in a single pass at the scene's samples per pixel
type Raytracer struct {
	scene  *scene.Scene
	config ProgressiveConfig
}

// NewRaytracer creates a single-shot raytracer. Only the tile size, worker count
// and sampler settings of config are used.
func NewRaytracer(s *scene.Scene, config ProgressiveConfig) *Raytracer {
	config.MaxPasses = 1
	config.InitialSamples = s.GetSamplingConfig().SamplesPerPixel
	config.MaxSamplesPerPixel = s.GetSamplingConfig().SamplesPerPixel
	return &Raytracer{
		scene:  s,
		config: config,
	}
}

// Render traces every pixel of the scene and returns the quantized image
func (rt *Raytracer) Render() (*image.RGBA, RenderStats, error) {
	pr := NewProgressiveRaytracer(rt.scene, rt.config, NopLogger{})
	defer pr.Close()

	return pr.RenderPass(1, nil)
}
