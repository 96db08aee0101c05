package integrator

import (
	"math"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// ShadowAcneEpsilon is the minimum hit distance, so scattered rays starting on a
// surface do not immediately hit that surface again
const ShadowAcneEpsilon = 0.001

// PathTracingIntegrator implements unidirectional path tracing with a sky background
type PathTracingIntegrator struct {
	maxDepth int
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(maxDepth int) *PathTracingIntegrator {
	return &PathTracingIntegrator{maxDepth: maxDepth}
}

// MaxDepth returns the bounce budget for each camera ray
func (pt *PathTracingIntegrator) MaxDepth() int {
	return pt.maxDepth
}

// RayColor computes the color for a camera ray using the full bounce budget
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler) core.Color {
	return pt.RayColorDepth(ray, scene, sampler, pt.maxDepth)
}

// RayColorDepth computes the color for a ray with depth bounces remaining
func (pt *PathTracingIntegrator) RayColorDepth(ray core.Ray, scene *scene.Scene, sampler core.Sampler, depth int) core.Color {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Color{}
	}

	hit, isHit := scene.World.Hit(ray, ShadowAcneEpsilon, math.Inf(1))
	if !isHit {
		return BackgroundGradient(ray, scene)
	}

	scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
	if !didScatter {
		// Material absorbed the ray
		return core.Color{}
	}

	return scatter.Attenuation.MultiplyVec(
		pt.RayColorDepth(scatter.Scattered, scene, sampler, depth-1))
}

// BackgroundGradient returns the sky color seen along the ray direction
func BackgroundGradient(r core.Ray, scene *scene.Scene) core.Color {
	topColor, bottomColor := scene.GetBackgroundColors()

	// Map the unit direction's y from [-1,1] to [0,1]
	unitDirection := r.Direction.Normalize()
	t := 0.5 * (unitDirection.Y + 1.0)

	// Linear interpolation: (1-t)*bottom + t*top
	return bottomColor.Multiply(1.0 - t).Add(topColor.Multiply(t))
}
