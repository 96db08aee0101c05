package loaders

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
)

// SceneFile is the parsed form of a JSON scene description
type SceneFile struct {
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	Group           string                  `json:"group"`
	Camera          CameraSpec              `json:"camera"`
	SamplesPerPixel int                     `json:"samplesPerPixel"`
	MaxDepth        int                     `json:"maxDepth"`
	Sky             *SkySpec                `json:"sky,omitempty"`
	Materials       map[string]MaterialSpec `json:"materials"`
	Spheres         []SphereSpec            `json:"spheres"`
}

// CameraSpec describes the camera. Missing fields keep the loader defaults.
type CameraSpec struct {
	LookFrom    []float64 `json:"lookFrom"`
	LookAt      []float64 `json:"lookAt"`
	Up          []float64 `json:"up"`
	VFov        float64   `json:"vfov"`
	AspectRatio float64   `json:"aspectRatio"`
	Width       int       `json:"width"`
}

// SkySpec overrides the background gradient colors
type SkySpec struct {
	Top    []float64 `json:"top"`
	Bottom []float64 `json:"bottom"`
}

// MaterialSpec describes one named material
type MaterialSpec struct {
	Type   string    `json:"type"` // "lambertian" or "metal"
	Albedo []float64 `json:"albedo"`
	Fuzz   float64   `json:"fuzz"` // metal only
}

// SphereSpec places a sphere that refers to a material by name
type SphereSpec struct {
	Center   []float64 `json:"center"`
	Radius   float64   `json:"radius"`
	Material string    `json:"material"`
}

// Supported material types
const (
	MaterialLambertian = "lambertian"
	MaterialMetal      = "metal"
)

// maxSceneFileSize bounds how much of a scene file is read
const maxSceneFileSize = 8 << 20

// ParseSceneFile parses and validates a JSON scene description from an io.Reader
func ParseSceneFile(reader io.Reader) (*SceneFile, error) {
	decoder := json.NewDecoder(io.LimitReader(reader, maxSceneFileSize))
	decoder.DisallowUnknownFields()

	var file SceneFile
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode scene description: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return &file, nil
}

// LoadSceneFile reads and parses a JSON scene description from disk
func LoadSceneFile(filename string) (*SceneFile, error) {
	if err := validateSceneFilePath(filename); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	scene, err := ParseSceneFile(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return scene, nil
}

// Validate checks vector sizes, material types and that every sphere names a defined material
func (f *SceneFile) Validate() error {
	for name, mat := range f.Materials {
		switch strings.ToLower(mat.Type) {
		case MaterialLambertian, MaterialMetal:
		default:
			return fmt.Errorf("material %q: unknown type %q", name, mat.Type)
		}
		if _, err := ParseVec3(mat.Albedo); err != nil {
			return fmt.Errorf("material %q albedo: %w", name, err)
		}
	}

	for i, sphere := range f.Spheres {
		if _, err := ParseVec3(sphere.Center); err != nil {
			return fmt.Errorf("sphere %d center: %w", i, err)
		}
		if _, ok := f.Materials[sphere.Material]; !ok {
			return fmt.Errorf("sphere %d: undefined material %q", i, sphere.Material)
		}
	}

	for field, values := range map[string][]float64{
		"camera lookFrom": f.Camera.LookFrom,
		"camera lookAt":   f.Camera.LookAt,
		"camera up":       f.Camera.Up,
	} {
		if values == nil {
			continue
		}
		if _, err := ParseVec3(values); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	if f.Sky != nil {
		if _, err := ParseVec3(f.Sky.Top); err != nil {
			return fmt.Errorf("sky top: %w", err)
		}
		if _, err := ParseVec3(f.Sky.Bottom); err != nil {
			return fmt.Errorf("sky bottom: %w", err)
		}
	}

	return nil
}

// ParseVec3 converts a three-element JSON array into a vector
func ParseVec3(values []float64) (core.Vec3, error) {
	if len(values) != 3 {
		return core.Vec3{}, fmt.Errorf("expected 3 values, got %d", len(values))
	}
	return core.NewVec3(values[0], values[1], values[2]), nil
}

// validateSceneFilePath rejects paths that are not plain .json files
func validateSceneFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("invalid file path: null bytes not allowed")
	}

	if strings.ToLower(filepath.Ext(filename)) != ".json" {
		return fmt.Errorf("invalid file type: only .json files are allowed")
	}

	return nil
}
