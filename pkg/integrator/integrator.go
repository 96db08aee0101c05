package integrator

import (
	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the radiance carried back along ray.
	// The sampler must be owned by the calling goroutine.
	RayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler) core.Color
}
