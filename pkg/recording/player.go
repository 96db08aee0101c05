package recording

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Event is a single decoded line of the event log
type Event struct {
	Seq        uint64
	CapturedAt time.Time
	Type       string
	Data       json.RawMessage
}

// Decode unmarshals the event data into v
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Frame is one decoded pass image
type Frame struct {
	Pass       int
	Samples    int
	Width      int
	Height     int
	CapturedAt time.Time
	Pixels     []byte // Packed RGB, top row first
}

// Image expands the packed RGB pixels into an opaque RGBA image
func (f Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i+2 < len(f.Pixels) && i/3 < f.Width*f.Height; i += 3 {
		pixel := i / 3
		img.SetRGBA(pixel%f.Width, pixel/f.Width, color.RGBA{R: f.Pixels[i], G: f.Pixels[i+1], B: f.Pixels[i+2], A: 255})
	}
	return img
}

// ReadBundle loads the manifest, events and frames of a recording.
// path may be the bundle directory or its manifest file.
func ReadBundle(path string) (Manifest, []Event, []Frame, error) {
	if path == "" {
		return Manifest{}, nil, nil, fmt.Errorf("path is required")
	}

	manifestPath := path
	info, err := os.Stat(path)
	if err != nil {
		return Manifest{}, nil, nil, err
	}
	if info.IsDir() {
		manifestPath = filepath.Join(path, ManifestFile)
	}
	manifestDir := filepath.Dir(manifestPath)

	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return Manifest{}, nil, nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Version != ManifestVersion {
		return Manifest{}, nil, nil, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}

	events, err := loadEvents(filepath.Join(manifestDir, manifest.EventsPath))
	if err != nil {
		return Manifest{}, nil, nil, fmt.Errorf("failed to load events: %w", err)
	}

	frames, err := loadFrames(filepath.Join(manifestDir, manifest.FramesPath))
	if err != nil {
		return Manifest{}, nil, nil, fmt.Errorf("failed to load frames: %w", err)
	}

	return manifest, events, frames, nil
}

func loadEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var events []Event
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw eventRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, err
		}
		captured, err := time.Parse(time.RFC3339Nano, raw.CapturedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Seq:        raw.Seq,
			CapturedAt: captured,
			Type:       raw.Type,
			Data:       raw.Data,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func loadFrames(path string) ([]Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	return decodeFrames(payload)
}

func decodeFrames(payload []byte) ([]Frame, error) {
	var frames []Frame
	offset := 0
	for offset < len(payload) {
		if offset+frameHeaderSize > len(payload) {
			return nil, fmt.Errorf("frame header truncated")
		}
		header := payload[offset : offset+frameHeaderSize]
		offset += frameHeaderSize

		size := int(binary.LittleEndian.Uint32(header[24:28]))
		if offset+size > len(payload) {
			return nil, fmt.Errorf("frame payload truncated")
		}

		frames = append(frames, Frame{
			Pass:       int(binary.LittleEndian.Uint32(header[0:4])),
			Samples:    int(binary.LittleEndian.Uint32(header[4:8])),
			Width:      int(binary.LittleEndian.Uint32(header[8:12])),
			Height:     int(binary.LittleEndian.Uint32(header[12:16])),
			CapturedAt: time.Unix(0, int64(binary.LittleEndian.Uint64(header[16:24]))).UTC(),
			Pixels:     append([]byte(nil), payload[offset:offset+size]...),
		})
		offset += size
	}
	return frames, nil
}
