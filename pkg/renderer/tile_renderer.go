package renderer

import (
	"image"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/integrator"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// TileRenderer samples the pixels of one tile through an integrator.
// It holds no mutable state, so one instance serves every worker.
type TileRenderer struct {
	scene      *scene.Scene
	integrator integrator.Integrator
}

// NewTileRenderer creates a new tile renderer with the given scene and integrator
func NewTileRenderer(scene *scene.Scene, integratorInst integrator.Integrator) *TileRenderer {
	return &TileRenderer{
		scene:      scene,
		integrator: integratorInst,
	}
}

// RenderTileBounds brings every pixel within bounds up to targetSamples samples.
// pixelStats is indexed [row][column] in image coordinates with row 0 at the top.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, pixelStats [][]PixelStats, sampler core.Sampler, targetSamples int) RenderStats {
	camera := tr.scene.GetCamera()
	stats := newRenderStats(bounds.Dx()*bounds.Dy(), targetSamples)

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			samplesUsed := tr.samplePixel(camera, i, j, &pixelStats[j][i], sampler, targetSamples)
			stats.addPixel(samplesUsed)
		}
	}

	stats.finalize()
	return stats
}

// samplePixel takes jittered samples for pixel (i, j) until it holds targetSamples
func (tr *TileRenderer) samplePixel(camera *geometry.Camera, i, j int, ps *PixelStats, sampler core.Sampler, targetSamples int) int {
	config := tr.scene.GetSamplingConfig()
	// Viewport v grows upward while image rows grow downward
	row := config.Height - 1 - j

	initialSampleCount := ps.SampleCount
	for ps.SampleCount < targetSamples {
		u := (float64(i) + sampler.Get1D()) / float64(config.Width-1)
		v := (float64(row) + sampler.Get1D()) / float64(config.Height-1)

		ray := camera.GetRay(u, v)
		ps.AddSample(tr.integrator.RayColor(ray, tr.scene, sampler))
	}

	return ps.SampleCount - initialSampleCount
}
