package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/loaders"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
)

// Defaults for scene files that leave fields out
const (
	defaultFileSamplesPerPixel = 100
	defaultFileMaxDepth        = 50
)

func defaultFileCameraConfig() geometry.CameraConfig {
	return geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        90.0,
	}
}

// NewJSONScene loads a scene description file and builds the scene,
// applying optional camera overrides on top of the file's camera
func NewJSONScene(filename string, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	file, err := loaders.LoadSceneFile(filename)
	if err != nil {
		return nil, err
	}
	return FromSceneFile(file, cameraOverrides...)
}

// FromSceneFile converts a parsed scene description into a scene.
// Each named material is built once and shared by every sphere that names it.
func FromSceneFile(file *loaders.SceneFile, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	cameraConfig, err := convertCamera(file.Camera)
	if err != nil {
		return nil, err
	}
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(cameraConfig, cameraOverrides[0])
	}

	samplesPerPixel := file.SamplesPerPixel
	if samplesPerPixel <= 0 {
		samplesPerPixel = defaultFileSamplesPerPixel
	}
	maxDepth := file.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultFileMaxDepth
	}

	s := NewScene(cameraConfig, samplesPerPixel, maxDepth)

	if file.Sky != nil {
		// Validated above
		s.TopColor, _ = loaders.ParseVec3(file.Sky.Top)
		s.BottomColor, _ = loaders.ParseVec3(file.Sky.Bottom)
	}

	materials := make(map[string]material.Material, len(file.Materials))
	for name, spec := range file.Materials {
		mat, err := convertMaterial(spec)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		materials[name] = mat
	}

	for i, spec := range file.Spheres {
		mat, ok := materials[spec.Material]
		if !ok {
			return nil, fmt.Errorf("sphere %d: undefined material %q", i, spec.Material)
		}
		center, err := loaders.ParseVec3(spec.Center)
		if err != nil {
			return nil, fmt.Errorf("sphere %d center: %w", i, err)
		}
		s.AddSphere(center, spec.Radius, mat)
	}

	return s, nil
}

// Load resolves a scene reference: a built-in name, a catalog ID of the form
// "json:<name>" relative to scenesDir, or a path to a .json file
func Load(ref, scenesDir string, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	switch {
	case strings.HasPrefix(ref, "json:"):
		name := strings.TrimPrefix(ref, "json:")
		if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
			return nil, fmt.Errorf("invalid scene file name: %q", name)
		}
		return NewJSONScene(filepath.Join(scenesDir, name+".json"), cameraOverrides...)
	case strings.HasSuffix(strings.ToLower(ref), ".json"):
		return NewJSONScene(ref, cameraOverrides...)
	default:
		return Create(ref, cameraOverrides...)
	}
}

func convertCamera(spec loaders.CameraSpec) (geometry.CameraConfig, error) {
	config := defaultFileCameraConfig()

	vectors := []struct {
		values []float64
		target *core.Vec3
		name   string
	}{
		{spec.LookFrom, &config.Center, "lookFrom"},
		{spec.LookAt, &config.LookAt, "lookAt"},
		{spec.Up, &config.Up, "up"},
	}
	for _, v := range vectors {
		if v.values == nil {
			continue
		}
		vec, err := loaders.ParseVec3(v.values)
		if err != nil {
			return config, fmt.Errorf("camera %s: %w", v.name, err)
		}
		*v.target = vec
	}

	if spec.VFov > 0 {
		config.VFov = spec.VFov
	}
	if spec.AspectRatio > 0 {
		config.AspectRatio = spec.AspectRatio
	}
	if spec.Width > 0 {
		config.Width = spec.Width
	}

	return config, nil
}

func convertMaterial(spec loaders.MaterialSpec) (material.Material, error) {
	albedo, err := loaders.ParseVec3(spec.Albedo)
	if err != nil {
		return nil, fmt.Errorf("albedo: %w", err)
	}

	switch strings.ToLower(spec.Type) {
	case loaders.MaterialLambertian:
		return material.NewLambertian(albedo), nil
	case loaders.MaterialMetal:
		return material.NewMetal(albedo, spec.Fuzz), nil
	default:
		return nil, fmt.Errorf("unknown material type %q", spec.Type)
	}
}
