package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/abdo544445/parallel-raytracer/pkg/geometry"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

// Request limits shared by the render, inspect and scene-config endpoints
const (
	DefaultScene = "default"
	DefaultWidth = 400
	MinWidth     = 16
	MaxWidth     = 2000

	DefaultMaxPasses = 7
	MaxSamplesLimit  = 10000
	MaxPassesLimit   = 10000
	MaxDepthLimit    = 1000

	DefaultTileSize = 64
)

// Config holds server settings
type Config struct {
	Port      int
	ScenesDir string // Directory scanned for .json scene descriptions
	StaticDir string // Served at / when it exists
	RecordDir string // Records every render into a bundle under this directory when set
}

// DefaultConfig returns the settings used by web/main.go when no flags are given
func DefaultConfig() Config {
	return Config{
		Port:      8080,
		ScenesDir: "scenes",
		StaticDir: "static",
	}
}

// Server handles web requests for the progressive raytracer
type Server struct {
	config Config
}

// NewServer creates a new web server
func NewServer(config Config) *Server {
	return &Server{config: config}
}

// SceneRequest holds the parameters shared by every scene-based endpoint
type SceneRequest struct {
	Scene string `json:"scene"` // Built-in name or "json:<name>" catalog ID
	Width int    `json:"width"` // Image width, height follows the scene's aspect ratio
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.config.StaticDir != "" {
		if info, err := os.Stat(s.config.StaticDir); err == nil && info.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
		}
	}

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/render", s.handleRender)

	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in scenes and the scene files in the scenes directory
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	catalog, err := scene.ListAllScenes(s.config.ScenesDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list scenes: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = DefaultScene
	}

	sceneObj, err := s.loadScene(sceneName, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	config := sceneObj.GetSamplingConfig()
	response := map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":           config.Width,
			"height":          config.Height,
			"samplesPerPixel": config.SamplesPerPixel,
			"maxDepth":        config.MaxDepth,
			"maxPasses":       DefaultMaxPasses,
		},
		"limits": map[string]interface{}{
			"width":      map[string]int{"min": MinWidth, "max": MaxWidth},
			"maxSamples": map[string]int{"min": 1, "max": MaxSamplesLimit},
			"maxPasses":  map[string]int{"min": 1, "max": MaxPassesLimit},
			"maxDepth":   map[string]int{"min": 1, "max": MaxDepthLimit},
		},
	}

	writeJSON(w, http.StatusOK, response)
}

// parseSceneRequest parses the scene and width parameters
func parseSceneRequest(values url.Values) (SceneRequest, error) {
	req := SceneRequest{Scene: values.Get("scene")}
	if req.Scene == "" {
		req.Scene = DefaultScene
	}

	var err error
	if req.Width, err = parseIntParam(values, "width", DefaultWidth, MinWidth, MaxWidth); err != nil {
		return SceneRequest{}, err
	}
	return req, nil
}

// loadScene resolves a scene name from a request. Only built-in names and
// "json:<name>" catalog IDs are accepted; raw file paths are not.
func (s *Server) loadScene(name string, width int) (*scene.Scene, error) {
	if !strings.HasPrefix(name, "json:") && strings.HasSuffix(strings.ToLower(name), ".json") {
		return nil, fmt.Errorf("unknown scene: %s", name)
	}

	var overrides []geometry.CameraConfig
	if width > 0 {
		overrides = append(overrides, geometry.CameraConfig{Width: width})
	}

	sceneObj, err := scene.Load(name, s.config.ScenesDir, overrides...)
	if err != nil {
		return nil, fmt.Errorf("unknown scene: %s (%v)", name, err)
	}
	return sceneObj, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseInt64Param parses an unbounded 64-bit integer parameter
func parseInt64Param(values url.Values, key string, defaultValue int64) (int64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseBoolParam parses a boolean parameter
func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
