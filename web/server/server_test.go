package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abdo544445/parallel-raytracer/pkg/recording"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

const pairSceneJSON = `{
  "name": "Pair",
  "group": "Test Scenes",
  "camera": {"width": 32, "aspectRatio": 2},
  "samplesPerPixel": 4,
  "maxDepth": 3,
  "materials": {
    "gray":   {"type": "lambertian", "albedo": [0.5, 0.5, 0.5]},
    "mirror": {"type": "metal", "albedo": [0.9, 0.9, 0.9]}
  },
  "spheres": [
    {"center": [0, 0, -1], "radius": 0.5, "material": "mirror"},
    {"center": [0, -100.5, -1], "radius": 100, "material": "gray"}
  ]
}`

func newTestServer(t *testing.T, config Config) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(config).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func scenesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pair.json"), []byte(pairSceneJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("GET %s: expected JSON content type, got %q", url, ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: decode body: %v", url, err)
	}
	return resp.StatusCode
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/render?" + query
}

// collectMessages reads until a complete or error message arrives
func collectMessages(t *testing.T, conn *websocket.Conn) []Message {
	t.Helper()
	var messages []Message
	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed after %d messages: %v", len(messages), err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Invalid message %s: %v", data, err)
		}
		messages = append(messages, msg)
		if msg.Type == MessageComplete || msg.Type == MessageError {
			return messages
		}
	}
}

func progressMessages(messages []Message) []*ProgressUpdate {
	var updates []*ProgressUpdate
	for _, msg := range messages {
		if msg.Type == MessageProgress {
			updates = append(updates, msg.Progress)
		}
	}
	return updates
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, Config{})

	var body map[string]string
	if status := getJSON(t, ts.URL+"/api/health", &body); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestHandleScenes(t *testing.T) {
	ts := newTestServer(t, Config{ScenesDir: scenesDir(t)})

	var catalog scene.ScenesResponse
	if status := getJSON(t, ts.URL+"/api/scenes", &catalog); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	ids := make(map[string]bool)
	for _, group := range catalog.Groups {
		for _, info := range group.Scenes {
			ids[info.ID] = true
		}
	}
	for _, id := range []string{"default", "simple", "spheregrid", "json:pair"} {
		if !ids[id] {
			t.Errorf("Expected scene %q in catalog, got %v", id, ids)
		}
	}
}

func TestHandleSceneConfig(t *testing.T) {
	ts := newTestServer(t, Config{})

	var body struct {
		Scene    string                 `json:"scene"`
		Defaults map[string]interface{} `json:"defaults"`
	}
	if status := getJSON(t, ts.URL+"/api/scene-config?scene=simple", &body); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body.Scene != "simple" {
		t.Errorf("Expected scene simple, got %s", body.Scene)
	}
	if body.Defaults["samplesPerPixel"] != float64(50) || body.Defaults["maxDepth"] != float64(20) {
		t.Errorf("Unexpected defaults: %v", body.Defaults)
	}

	var errBody map[string]string
	if status := getJSON(t, ts.URL+"/api/scene-config?scene=missing", &errBody); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scene, got %d", status)
	}
	if errBody["error"] == "" {
		t.Error("Expected error message for unknown scene")
	}
}

func TestHandleRender_BadRequest(t *testing.T) {
	ts := newTestServer(t, Config{ScenesDir: scenesDir(t)})

	tests := []struct {
		name  string
		query string
	}{
		{"width too small", "scene=simple&width=4"},
		{"width not a number", "scene=simple&width=wide"},
		{"zero passes", "scene=simple&maxPasses=0"},
		{"too many samples", "scene=simple&maxSamples=20000"},
		{"bad seed", "scene=simple&seed=x"},
		{"unknown scene", "scene=teapot"},
		{"raw file path", "scene=pair.json"},
		{"path traversal", "scene=json:../pair"},
		{"missing scene file", "scene=json:absent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			status := getJSON(t, ts.URL+"/api/render?"+tt.query, &body)
			if status != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", status)
			}
			if body["error"] == "" {
				t.Error("Expected error message")
			}
		})
	}
}

func TestHandleRender_StreamsPasses(t *testing.T) {
	ts := newTestServer(t, Config{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "scene=simple&width=16&maxSamples=2&maxPasses=2"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	messages := collectMessages(t, conn)
	if last := messages[len(messages)-1]; last.Type != MessageComplete {
		t.Fatalf("Expected complete message, got %+v", last)
	}

	updates := progressMessages(messages)
	if len(updates) != 2 {
		t.Fatalf("Expected 2 progress messages, got %d", len(updates))
	}

	for i, update := range updates {
		if update.PassNumber != i+1 || update.TotalPasses != 2 {
			t.Errorf("Update %d: unexpected pass %d/%d", i, update.PassNumber, update.TotalPasses)
		}
		if update.Width != 16 || update.Height != 9 {
			t.Errorf("Update %d: expected 16x9, got %dx%d", i, update.Width, update.Height)
		}
		if update.Stats.TotalPixels != 16*9 || update.Stats.MinSamples != i+1 {
			t.Errorf("Update %d: unexpected stats %+v", i, update.Stats)
		}
		if update.PrimitiveCount != 2 {
			t.Errorf("Update %d: expected 2 primitives, got %d", i, update.PrimitiveCount)
		}

		data, err := base64.StdEncoding.DecodeString(update.ImageData)
		if err != nil {
			t.Fatalf("Update %d: invalid base64: %v", i, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Update %d: invalid PNG: %v", i, err)
		}
		if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 9 {
			t.Errorf("Update %d: PNG is %v", i, img.Bounds())
		}
	}
	if !updates[1].IsComplete || updates[0].IsComplete {
		t.Error("Only the final pass should be marked complete")
	}

	sawConsole := false
	for _, msg := range messages {
		if msg.Type == MessageConsole && msg.Console != nil && msg.Console.Message != "" {
			sawConsole = true
		}
	}
	if !sawConsole {
		t.Error("Expected console messages from the render logger")
	}
}

func TestHandleRender_TileUpdates(t *testing.T) {
	ts := newTestServer(t, Config{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "scene=simple&width=100&maxSamples=1&maxPasses=1&tiles=true"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	tiles := 0
	for _, msg := range collectMessages(t, conn) {
		if msg.Type == MessageTile {
			tiles++
			if msg.Tile.TotalTiles != 2 || msg.Tile.PassNumber != 1 {
				t.Errorf("Unexpected tile update %+v", msg.Tile)
			}
		}
	}
	// 100x56 with 64 pixel tiles
	if tiles != 2 {
		t.Errorf("Expected 2 tile updates, got %d", tiles)
	}
}

func TestHandleRender_RecordsJSONScene(t *testing.T) {
	recordDir := t.TempDir()
	ts := newTestServer(t, Config{ScenesDir: scenesDir(t), RecordDir: recordDir})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "scene=json:pair&width=16&maxPasses=2"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	messages := collectMessages(t, conn)
	updates := progressMessages(messages)
	if len(updates) != 2 {
		t.Fatalf("Expected 2 progress messages, got %d", len(updates))
	}
	// Width override keeps the file's 2:1 aspect ratio, samples come from the file
	if updates[1].Height != 8 || updates[1].Stats.MinSamples != 4 {
		t.Errorf("Unexpected final pass %+v", updates[1])
	}

	bundles, err := filepath.Glob(filepath.Join(recordDir, "jsonpair-*"))
	if err != nil || len(bundles) != 1 {
		t.Fatalf("Expected one recording bundle, got %v (%v)", bundles, err)
	}

	manifest, events, frames, err := recording.ReadBundle(bundles[0])
	if err != nil {
		t.Fatalf("Read bundle: %v", err)
	}
	if manifest.Width != 16 || manifest.Height != 8 {
		t.Errorf("Unexpected manifest %+v", manifest)
	}
	if len(frames) != 2 {
		t.Errorf("Expected 2 frames, got %d", len(frames))
	}
	if len(events) != 4 || events[0].Type != recording.EventRenderStart || events[3].Type != recording.EventRenderComplete {
		t.Errorf("Unexpected events %+v", events)
	}
}

func TestHandleInspect(t *testing.T) {
	ts := newTestServer(t, Config{})

	// Center of the 16x9 simple scene looks straight at the gray sphere
	var hit InspectResponse
	if status := getJSON(t, ts.URL+"/api/inspect?scene=simple&width=16&x=8&y=4", &hit); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if !hit.Hit || hit.GeometryType != "sphere" || hit.MaterialType != "lambertian" {
		t.Fatalf("Expected lambertian sphere hit, got %+v", hit)
	}
	if hit.Distance < 0.4 || hit.Distance > 0.6 || !hit.FrontFace {
		t.Errorf("Unexpected hit distance %f (front %v)", hit.Distance, hit.FrontFace)
	}
	geometryProps := hit.Properties["geometry"].(map[string]interface{})
	if geometryProps["radius"] != 0.5 {
		t.Errorf("Expected radius 0.5, got %v", geometryProps["radius"])
	}

	// Top-left corner looks into the sky
	var miss InspectResponse
	if status := getJSON(t, ts.URL+"/api/inspect?scene=simple&width=16&x=0&y=0", &miss); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if miss.Hit {
		t.Errorf("Expected miss, got %+v", miss)
	}

	for _, query := range []string{"scene=simple&width=16&x=16&y=0", "scene=simple&x=1", "scene=simple&x=a&y=0"} {
		var body map[string]string
		if status := getJSON(t, ts.URL+"/api/inspect?"+query, &body); status != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, status)
		}
	}
}
