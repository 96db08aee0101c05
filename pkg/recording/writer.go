package recording

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/abdo544445/parallel-raytracer/pkg/renderer"
)

var sceneNameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Bundle file names
const (
	ManifestFile = "manifest.json"
	EventsFile   = "events.jsonl.sz"
	FramesFile   = "frames.bin.zst"

	// ManifestVersion is the bundle layout version written by this package
	ManifestVersion = 1
)

// frameHeaderSize is pass, samples, width, height (uint32 each), capture time
// (uint64 nanoseconds) and payload length (uint32)
const frameHeaderSize = 4 + 4 + 4 + 4 + 8 + 4

// Event types written by RecordStart, RecordPass and RecordComplete
const (
	EventRenderStart    = "render_start"
	EventPass           = "pass"
	EventRenderComplete = "render_complete"
)

// Manifest describes the bundle layout so readers can locate the streams
type Manifest struct {
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	Scene      string `json:"scene"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	EventsPath string `json:"events_path"`
	FramesPath string `json:"frames_path"`
}

// Writer streams render events and pass images to a recording bundle: a
// snappy-compressed JSON line log and a zstd-compressed frame stream
type Writer struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	seq         uint64
	eventFile   *os.File
	eventStream *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	closed      bool
}

// NewWriter creates <root>/<scene>-<timestamp>/ and opens the compressed streams
func NewWriter(root, sceneName string, width, height int, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("recording root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sceneNameCleaner.ReplaceAllString(sceneName, "")
	if cleaned == "" {
		cleaned = "render"
	}
	created := clock().UTC()
	path := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, fmt.Errorf("failed to create recording directory: %w", err)
	}

	eventFile, err := os.Create(filepath.Join(path, EventsFile))
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("failed to create event log: %w", err)
	}
	eventStream := snappy.NewBufferedWriter(eventFile)

	frameFile, err := os.Create(filepath.Join(path, FramesFile))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, fmt.Errorf("failed to create frame stream: %w", err)
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, fmt.Errorf("failed to start zstd encoder: %w", err)
	}

	manifest := Manifest{
		Version:    ManifestVersion,
		CreatedAt:  created.Format(time.RFC3339Nano),
		Scene:      sceneName,
		Width:      width,
		Height:     height,
		EventsPath: EventsFile,
		FramesPath: FramesFile,
	}

	closeAll := func() {
		frameStream.Close()
		frameFile.Close()
		eventStream.Close()
		eventFile.Close()
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		closeAll()
		return nil, Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(path, ManifestFile), data, 0o644); err != nil {
		closeAll()
		return nil, Manifest{}, fmt.Errorf("failed to write manifest: %w", err)
	}

	return &Writer{
		dir:         path,
		now:         clock,
		eventFile:   eventFile,
		eventStream: eventStream,
		frameFile:   frameFile,
		frameStream: frameStream,
	}, manifest, nil
}

// Directory returns the bundle directory
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// AppendEvent writes one JSON line with the event type and data to the event log
func (w *Writer) AppendEvent(eventType string, data any) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("writer closed")
	}

	w.seq++
	line, err := json.Marshal(eventRecord{
		Seq:        w.seq,
		CapturedAt: captured.Format(time.RFC3339Nano),
		Type:       eventType,
		Data:       payload,
	})
	if err != nil {
		return err
	}
	if _, err := w.eventStream.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return w.eventStream.Flush()
}

// AppendFrame writes the RGB bytes of img, prefixed by a little-endian header
func (w *Writer) AppendFrame(pass, samples int, img *image.RGBA) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	bounds := img.Bounds()
	pixels := packRGB(img)
	captured := w.now().UTC()

	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(pass))
	binary.LittleEndian.PutUint32(header[4:8], uint32(samples))
	binary.LittleEndian.PutUint32(header[8:12], uint32(bounds.Dx()))
	binary.LittleEndian.PutUint32(header[12:16], uint32(bounds.Dy()))
	binary.LittleEndian.PutUint64(header[16:24], uint64(captured.UnixNano()))
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(pixels)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("writer closed")
	}

	if _, err := w.frameStream.Write(header); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.frameStream.Write(pixels); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// StartInfo is the payload of a render_start event
type StartInfo struct {
	Scene           string `json:"scene"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	SamplesPerPixel int    `json:"samples_per_pixel"`
	MaxDepth        int    `json:"max_depth"`
	MaxPasses       int    `json:"max_passes"`
	Workers         int    `json:"workers"`
	Seed            int64  `json:"seed"`
}

// PassInfo is the payload of a pass event
type PassInfo struct {
	Pass             int     `json:"pass"`
	MinSamples       int     `json:"min_samples"`
	MaxSamples       int     `json:"max_samples"`
	TotalSamples     int     `json:"total_samples"`
	AverageSamples   float64 `json:"average_samples"`
	AverageLuminance float64 `json:"average_luminance"`
	DurationMs       int64   `json:"duration_ms"`
	IsLast           bool    `json:"is_last"`
}

// CompleteInfo is the payload of a render_complete event
type CompleteInfo struct {
	Passes     int    `json:"passes"`
	DurationMs int64  `json:"duration_ms"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RecordStart logs the render configuration
func (w *Writer) RecordStart(info StartInfo) error {
	return w.AppendEvent(EventRenderStart, info)
}

// RecordPass logs the pass statistics and stores the pass image as a frame
func (w *Writer) RecordPass(result renderer.PassResult) error {
	info := PassInfo{
		Pass:             result.PassNumber,
		MinSamples:       result.Stats.MinSamples,
		MaxSamples:       result.Stats.MaxSamplesUsed,
		TotalSamples:     result.Stats.TotalSamples,
		AverageSamples:   result.Stats.AverageSamples,
		AverageLuminance: renderer.CalculateAverageLuminance(result.Image),
		DurationMs:       result.Duration.Milliseconds(),
		IsLast:           result.IsLast,
	}
	if err := w.AppendEvent(EventPass, info); err != nil {
		return err
	}
	return w.AppendFrame(result.PassNumber, result.Stats.MinSamples, result.Image)
}

// RecordComplete logs the end of the render
func (w *Writer) RecordComplete(info CompleteInfo) error {
	return w.AppendEvent(EventRenderComplete, info)
}

// Close flushes both streams and releases the files, returning the first error
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	if err := w.eventStream.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.frameStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.frameFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// eventRecord is one line of the event log
type eventRecord struct {
	Seq        uint64          `json:"seq"`
	CapturedAt string          `json:"captured_at"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
}

// packRGB drops the alpha channel, row by row from the top
func packRGB(img *image.RGBA) []byte {
	bounds := img.Bounds()
	pixels := make([]byte, 0, bounds.Dx()*bounds.Dy()*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			pixels = append(pixels, c.R, c.G, c.B)
		}
	}
	return pixels
}
