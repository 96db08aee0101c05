package scene

import (
	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
)

// NewDefaultScene creates the four-sphere scene: a diffuse ground, a diffuse
// center sphere and two metal spheres of different roughness
func NewDefaultScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(3, 3, 2),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       800,
		AspectRatio: 16.0 / 9.0,
		VFov:        20.0,
	}

	// Apply any overrides using the reusable merge function
	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := NewScene(cameraConfig, 100, 50)

	materialGround := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))
	materialCenter := material.NewLambertian(core.NewVec3(0.7, 0.3, 0.3))
	materialLeft := material.NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.3)
	materialRight := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 1.0)

	s.AddSphere(core.NewVec3(0.0, -100.5, -1.0), 100.0, materialGround)
	s.AddSphere(core.NewVec3(0.0, 0.0, -1.0), 0.5, materialCenter)
	s.AddSphere(core.NewVec3(-1.0, 0.0, -1.0), 0.5, materialLeft)
	s.AddSphere(core.NewVec3(1.0, 0.0, -1.0), 0.5, materialRight)

	return s
}

// NewSimpleScene creates a single diffuse sphere resting on a diffuse ground,
// seen head-on from the origin
func NewSimpleScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        90.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := NewScene(cameraConfig, 50, 20)

	gray := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	s.AddSphere(core.NewVec3(0, 0, -1), 0.5, gray)
	s.AddSphere(core.NewVec3(0, -100.5, -1), 100, gray)

	return s
}
