package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/output"
	"github.com/abdo544445/parallel-raytracer/pkg/recording"
	"github.com/abdo544445/parallel-raytracer/pkg/renderer"
	"github.com/abdo544445/parallel-raytracer/pkg/scene"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Message types sent over the render socket
const (
	MessageProgress = "progress"
	MessageTile     = "tile"
	MessageConsole  = "console"
	MessageComplete = "complete"
	MessageError    = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	SceneRequest
	MaxSamples int   `json:"maxSamples"` // Maximum samples per pixel, 0 = scene default
	MaxPasses  int   `json:"maxPasses"`  // Maximum number of passes
	MaxDepth   int   `json:"maxDepth"`   // Bounce limit, 0 = scene default
	Seed       int64 `json:"seed"`       // Base seed for tile samplers
	Tiles      bool  `json:"tiles"`      // Stream individual tiles as they finish
}

// Message is one JSON frame on the render socket. Exactly one payload field
// is set, matching Type.
type Message struct {
	Type     string          `json:"type"`
	Progress *ProgressUpdate `json:"progress,omitempty"`
	Tile     *TileUpdate     `json:"tile,omitempty"`
	Console  *ConsoleMessage `json:"console,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ProgressUpdate represents a finished pass
type ProgressUpdate struct {
	PassNumber     int    `json:"passNumber"`
	TotalPasses    int    `json:"totalPasses"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	ImageData      string `json:"imageData"` // Base64 encoded PNG
	Stats          Stats  `json:"stats"`
	IsComplete     bool   `json:"isComplete"`
	ElapsedMs      int64  `json:"elapsedMs"`
	PrimitiveCount int    `json:"primitiveCount"`
}

// Stats represents render statistics
type Stats struct {
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	MaxSamples     int     `json:"maxSamples"`
	MinSamples     int     `json:"minSamples"`
	MaxSamplesUsed int     `json:"maxSamplesUsed"`
}

// TileUpdate represents a single tile finished within a pass
type TileUpdate struct {
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG
	PassNumber  int    `json:"passNumber"`
	TileNumber  int    `json:"tileNumber"`
	TotalTiles  int    `json:"totalTiles"`
	TotalPasses int    `json:"totalPasses"`
}

// parseRenderRequest parses request parameters
func parseRenderRequest(values url.Values) (*RenderRequest, error) {
	sceneReq, err := parseSceneRequest(values)
	if err != nil {
		return nil, err
	}
	req := &RenderRequest{SceneRequest: sceneReq}

	if req.MaxSamples, err = parseIntParam(values, "maxSamples", 0, 1, MaxSamplesLimit); err != nil {
		return nil, err
	}
	if req.MaxPasses, err = parseIntParam(values, "maxPasses", DefaultMaxPasses, 1, MaxPassesLimit); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(values, "maxDepth", 0, 1, MaxDepthLimit); err != nil {
		return nil, err
	}
	if req.Seed, err = parseInt64Param(values, "seed", renderer.DefaultProgressiveConfig().Seed); err != nil {
		return nil, err
	}
	if req.Tiles, err = parseBoolParam(values, "tiles", false); err != nil {
		return nil, err
	}

	return req, nil
}

// handleRender validates the request, upgrades to a WebSocket and streams the
// render. Validation errors are reported as HTTP 400 before the upgrade.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := parseRenderRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	sceneObj, err := s.loadScene(req.Scene, req.Width)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readUntilClosed(conn, cancel)

	consoleChan, webLogger := s.setupConsoleLogging()
	raytracer := s.setupRaytracer(sceneObj, req, webLogger)

	stream := &renderStream{
		conn:        conn,
		req:         req,
		scene:       sceneObj,
		consoleChan: consoleChan,
		recorder:    s.startRecording(sceneObj, req, raytracer.Config()),
	}
	stream.run(ctx, cancel, raytracer)
}

// readUntilClosed consumes client frames so control messages are processed,
// and cancels the render once the client goes away
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	return consoleChan, NewWebLogger(renderID, consoleChan)
}

// setupRaytracer applies the request overrides and creates the progressive raytracer
func (s *Server) setupRaytracer(sceneObj *scene.Scene, req *RenderRequest, logger core.Logger) *renderer.ProgressiveRaytracer {
	if req.MaxDepth > 0 {
		sceneObj.SamplingConfig.MaxDepth = req.MaxDepth
	}
	maxSamples := req.MaxSamples
	if maxSamples == 0 {
		maxSamples = sceneObj.SamplingConfig.SamplesPerPixel
	}

	config := renderer.ProgressiveConfig{
		TileSize:           DefaultTileSize,
		InitialSamples:     1,
		MaxSamplesPerPixel: maxSamples,
		MaxPasses:          req.MaxPasses,
		NumWorkers:         0, // Auto-detect
		Seed:               req.Seed,
	}

	samplingConfig := sceneObj.GetSamplingConfig()
	if samplingConfig.Width*samplingConfig.Height > 800*600 && maxSamples > 100 {
		log.Printf("Render warning: Large image with high samples may render slowly")
	}

	return renderer.NewProgressiveRaytracer(sceneObj, config, logger)
}

// startRecording opens a recording bundle when the server records renders.
// Recording failures are logged and never abort the render.
func (s *Server) startRecording(sceneObj *scene.Scene, req *RenderRequest, config renderer.ProgressiveConfig) *recording.Writer {
	if s.config.RecordDir == "" {
		return nil
	}

	samplingConfig := sceneObj.GetSamplingConfig()
	writer, _, err := recording.NewWriter(s.config.RecordDir, req.Scene, samplingConfig.Width, samplingConfig.Height, nil)
	if err != nil {
		log.Printf("Recording disabled: %v", err)
		return nil
	}

	err = writer.RecordStart(recording.StartInfo{
		Scene:           req.Scene,
		Width:           samplingConfig.Width,
		Height:          samplingConfig.Height,
		SamplesPerPixel: config.MaxSamplesPerPixel,
		MaxDepth:        samplingConfig.MaxDepth,
		MaxPasses:       config.MaxPasses,
		Workers:         config.NumWorkers,
		Seed:            req.Seed,
	})
	if err != nil {
		log.Printf("Recording start failed: %v", err)
	}
	return writer
}

// renderStream owns the socket for writing. Every message is written from the
// goroutine running run.
type renderStream struct {
	conn        *websocket.Conn
	req         *RenderRequest
	scene       *scene.Scene
	consoleChan chan ConsoleMessage
	recorder    *recording.Writer
	passes      int
}

// run forwards passes, tiles and console lines until the render finishes,
// fails, or the client disconnects. The recording is closed before the
// complete message is sent.
func (rs *renderStream) run(ctx context.Context, cancel context.CancelFunc, raytracer *renderer.ProgressiveRaytracer) {
	startTime := time.Now()
	renderErr := rs.loop(ctx, raytracer, startTime)
	cancel()

	rs.finishRecording(renderErr, time.Since(startTime))
	if renderErr != nil {
		return
	}

	rs.flushConsole()
	if err := rs.send(Message{Type: MessageComplete}); err != nil {
		return
	}
	rs.conn.SetWriteDeadline(time.Now().Add(writeWait))
	rs.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "render complete"))
}

func (rs *renderStream) finishRecording(renderErr error, elapsed time.Duration) {
	if rs.recorder == nil {
		return
	}
	info := recording.CompleteInfo{
		Passes:     rs.passes,
		DurationMs: elapsed.Milliseconds(),
	}
	if renderErr != nil {
		info.Error = renderErr.Error()
	}
	if err := rs.recorder.RecordComplete(info); err != nil {
		log.Printf("Recording complete failed: %v", err)
	}
	if err := rs.recorder.Close(); err != nil {
		log.Printf("Recording close failed: %v", err)
	}
}

func (rs *renderStream) loop(ctx context.Context, raytracer *renderer.ProgressiveRaytracer, startTime time.Time) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	passChan, tileChan, errChan := raytracer.RenderProgressive(ctx, renderer.RenderOptions{TileUpdates: rs.req.Tiles})

	for passChan != nil || tileChan != nil || errChan != nil {
		select {
		case passResult, ok := <-passChan:
			if !ok {
				passChan = nil
				continue
			}
			if err := rs.sendPass(passResult, startTime); err != nil {
				return err
			}

		case tileResult, ok := <-tileChan:
			if !ok {
				tileChan = nil
				continue
			}
			if err := rs.sendTile(tileResult); err != nil {
				return err
			}

		case consoleMsg := <-rs.consoleChan:
			if err := rs.send(Message{Type: MessageConsole, Console: &consoleMsg}); err != nil {
				return err
			}

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				rs.send(Message{Type: MessageError, Error: fmt.Sprintf("Rendering failed: %v", err)})
				return err
			}

		case <-ticker.C:
			rs.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := rs.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// flushConsole forwards console lines logged after the last pass
func (rs *renderStream) flushConsole() {
	for {
		select {
		case consoleMsg := <-rs.consoleChan:
			if err := rs.send(Message{Type: MessageConsole, Console: &consoleMsg}); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (rs *renderStream) sendPass(passResult renderer.PassResult, startTime time.Time) error {
	rs.passes = passResult.PassNumber

	if rs.recorder != nil {
		if err := rs.recorder.RecordPass(passResult); err != nil {
			log.Printf("Recording pass %d failed: %v", passResult.PassNumber, err)
		}
	}

	imageData, err := imageToBase64PNG(passResult.Image)
	if err != nil {
		return fmt.Errorf("failed to encode pass %d: %w", passResult.PassNumber, err)
	}

	bounds := passResult.Image.Bounds()
	return rs.send(Message{
		Type: MessageProgress,
		Progress: &ProgressUpdate{
			PassNumber:  passResult.PassNumber,
			TotalPasses: rs.req.MaxPasses,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			ImageData:   imageData,
			Stats: Stats{
				TotalPixels:    passResult.Stats.TotalPixels,
				TotalSamples:   passResult.Stats.TotalSamples,
				AverageSamples: passResult.Stats.AverageSamples,
				MaxSamples:     passResult.Stats.MaxSamples,
				MinSamples:     passResult.Stats.MinSamples,
				MaxSamplesUsed: passResult.Stats.MaxSamplesUsed,
			},
			IsComplete:     passResult.IsLast,
			ElapsedMs:      time.Since(startTime).Milliseconds(),
			PrimitiveCount: rs.scene.GetPrimitiveCount(),
		},
	})
}

func (rs *renderStream) sendTile(tileResult renderer.TileCompletionResult) error {
	tileData, err := imageToBase64PNG(tileResult.TileImage)
	if err != nil {
		log.Printf("Error encoding tile image (%d, %d): %v", tileResult.TileX, tileResult.TileY, err)
		return nil
	}

	return rs.send(Message{
		Type: MessageTile,
		Tile: &TileUpdate{
			TileX:       tileResult.TileX,
			TileY:       tileResult.TileY,
			ImageData:   tileData,
			PassNumber:  tileResult.PassNumber,
			TileNumber:  tileResult.TileNumber,
			TotalTiles:  tileResult.TotalTiles,
			TotalPasses: tileResult.TotalPasses,
		},
	})
}

func (rs *renderStream) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	rs.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return rs.conn.WriteMessage(websocket.TextMessage, data)
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := output.WritePNG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
