package server

import (
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/integrator"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// InspectResponse represents the response for an inspect request
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	MaterialType string                 `json:"materialType,omitempty"`
	GeometryType string                 `json:"geometryType,omitempty"`
	Point        [3]float64             `json:"point,omitempty"`
	Normal       [3]float64             `json:"normal,omitempty"`
	Distance     float64                `json:"distance,omitempty"`
	FrontFace    bool                   `json:"frontFace,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// InspectResult contains information about the object hit by an inspection ray
type InspectResult struct {
	Hit       bool
	HitRecord *material.HitRecord
	Shape     geometry.Shape // The shape that was hit, nil if it could not be identified
}

// inspectPixel casts a ray through the center of pixel (x, y), row 0 at the
// top, and returns the nearest hit
func inspectPixel(sceneObj *scene.Scene, pixelX, pixelY int) InspectResult {
	config := sceneObj.GetSamplingConfig()
	u := (float64(pixelX) + 0.5) / float64(max(config.Width-1, 1))
	v := (float64(config.Height-1-pixelY) + 0.5) / float64(max(config.Height-1, 1))
	ray := sceneObj.Camera.GetRay(u, v)

	hit, isHit := sceneObj.World.Hit(ray, integrator.ShadowAcneEpsilon, math.Inf(1))
	if !isHit {
		return InspectResult{Hit: false}
	}

	// The shape list reports the nearest hit but not which shape produced it
	for _, shape := range sceneObj.World.Shapes() {
		if shapeHit, shapeIsHit := shape.Hit(ray, integrator.ShadowAcneEpsilon, hit.T+integrator.ShadowAcneEpsilon); shapeIsHit {
			if shapeHit.T == hit.T {
				return InspectResult{Hit: true, HitRecord: hit, Shape: shape}
			}
		}
	}

	return InspectResult{Hit: true, HitRecord: hit}
}

// extractMaterialInfo extracts the material type and its parameters
func extractMaterialInfo(mat material.Material) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch m := mat.(type) {
	case *material.Lambertian:
		properties["albedo"] = [3]float64{m.Albedo.X, m.Albedo.Y, m.Albedo.Z}
		properties["color"] = hexColor(m.Albedo.X, m.Albedo.Y, m.Albedo.Z)
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = [3]float64{m.Albedo.X, m.Albedo.Y, m.Albedo.Z}
		properties["fuzz"] = m.Fuzz
		properties["color"] = hexColor(m.Albedo.X, m.Albedo.Y, m.Albedo.Z)
		return "metal", properties

	default:
		return "unknown", properties
	}
}

// extractGeometryInfo extracts the geometry type and its parameters
func extractGeometryInfo(shape geometry.Shape) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = [3]float64{geom.Center.X, geom.Center.Y, geom.Center.Z}
		properties["radius"] = geom.Radius
		return "sphere", properties

	default:
		return "unknown", properties
	}
}

func hexColor(r, g, b float64) string {
	channel := func(c float64) int {
		return int(math.Min(math.Max(c, 0), 1) * 255)
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(r), channel(g), channel(b))
}

// parseInspectRequest parses the scene parameters and the pixel coordinates
func parseInspectRequest(values url.Values) (SceneRequest, int, int, error) {
	req, err := parseSceneRequest(values)
	if err != nil {
		return SceneRequest{}, 0, 0, err
	}

	if values.Get("x") == "" || values.Get("y") == "" {
		return SceneRequest{}, 0, 0, fmt.Errorf("x and y are required")
	}
	pixelX, err := parseIntParam(values, "x", 0, math.MinInt, math.MaxInt)
	if err != nil {
		return SceneRequest{}, 0, 0, err
	}
	pixelY, err := parseIntParam(values, "y", 0, math.MinInt, math.MaxInt)
	if err != nil {
		return SceneRequest{}, 0, 0, err
	}
	return req, pixelX, pixelY, nil
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, pixelX, pixelY, err := parseInspectRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid inspect request: "+err.Error())
		return
	}

	sceneObj, err := s.loadScene(req.Scene, req.Width)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	config := sceneObj.GetSamplingConfig()
	if pixelX < 0 || pixelX >= config.Width || pixelY < 0 || pixelY >= config.Height {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	result := inspectPixel(sceneObj, pixelX, pixelY)
	if !result.Hit {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false})
		return
	}

	materialType, materialProps := extractMaterialInfo(result.HitRecord.Material)
	geometryType, geometryProps := extractGeometryInfo(result.Shape)

	hit := result.HitRecord
	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:          true,
		MaterialType: materialType,
		GeometryType: geometryType,
		Point:        [3]float64{hit.Point.X, hit.Point.Y, hit.Point.Z},
		Normal:       [3]float64{hit.Normal.X, hit.Normal.Y, hit.Normal.Z},
		Distance:     hit.T,
		FrontFace:    hit.FrontFace,
		Properties: map[string]interface{}{
			"material": materialProps,
			"geometry": geometryProps,
		},
	})
}
