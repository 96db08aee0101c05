package scene

import (
	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
)

// Scene contains all the elements needed for rendering.
// It is built once and read concurrently by every render worker.
type Scene struct {
	Camera         *geometry.Camera
	CameraConfig   geometry.CameraConfig
	World          *geometry.ShapeList // Objects in the scene
	SamplingConfig SamplingConfig
	TopColor       core.Color // Sky color straight up
	BottomColor    core.Color // Sky color straight down
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width           int // Image width
	Height          int // Image height
	SamplesPerPixel int // Number of rays per pixel
	MaxDepth        int // Maximum ray bounce depth
}

// DefaultSkyColors returns the sky-blue / white background gradient
func DefaultSkyColors() (topColor, bottomColor core.Color) {
	return core.NewVec3(0.5, 0.7, 1.0), core.NewVec3(1.0, 1.0, 1.0)
}

// NewScene creates an empty scene for the camera config with the default sky
func NewScene(cameraConfig geometry.CameraConfig, samplesPerPixel, maxDepth int) *Scene {
	top, bottom := DefaultSkyColors()
	return &Scene{
		Camera:       geometry.NewCamera(cameraConfig),
		CameraConfig: cameraConfig,
		World:        geometry.NewShapeList(),
		SamplingConfig: SamplingConfig{
			Width:           cameraConfig.Width,
			Height:          cameraConfig.ImageHeight(),
			SamplesPerPixel: samplesPerPixel,
			MaxDepth:        maxDepth,
		},
		TopColor:    top,
		BottomColor: bottom,
	}
}

// AddSphere adds a sphere with the given (possibly shared) material
func (s *Scene) AddSphere(center core.Point3, radius float64, mat material.Material) *geometry.Sphere {
	sphere := geometry.NewSphere(center, radius, mat)
	s.World.Add(sphere)
	return sphere
}

// GetCamera returns the scene camera
func (s *Scene) GetCamera() *geometry.Camera {
	return s.Camera
}

// GetBackgroundColors returns the sky gradient colors
func (s *Scene) GetBackgroundColors() (topColor, bottomColor core.Color) {
	return s.TopColor, s.BottomColor
}

// GetSamplingConfig returns the sampling configuration
func (s *Scene) GetSamplingConfig() SamplingConfig {
	return s.SamplingConfig
}

// GetPrimitiveCount returns the number of spheres in the scene
func (s *Scene) GetPrimitiveCount() int {
	return s.World.Len()
}
