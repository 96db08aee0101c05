package recording

import (
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdo544445/parallel-raytracer/pkg/renderer"
)

func gradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 40), uint8(y * 40), 200, 255})
		}
	}
	return img
}

func TestWriterRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	writer, manifest, err := NewWriter(tmp, "sphere grid!", 3, 2, clock)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if filepath.Base(writer.Directory()) != "spheregrid-20240710T120000Z" {
		t.Fatalf("unexpected bundle directory %s", writer.Directory())
	}
	if manifest.Width != 3 || manifest.Height != 2 || manifest.Scene != "sphere grid!" {
		t.Fatalf("unexpected manifest %+v", manifest)
	}

	if err := writer.RecordStart(StartInfo{Scene: "spheregrid", Width: 3, Height: 2, SamplesPerPixel: 4}); err != nil {
		t.Fatalf("record start: %v", err)
	}

	for pass := 1; pass <= 2; pass++ {
		now = now.Add(time.Second)
		result := renderer.PassResult{
			PassNumber: pass,
			Image:      gradientImage(3, 2),
			Stats:      renderer.RenderStats{TotalPixels: 6, TotalSamples: 6 * pass * 2, MinSamples: pass * 2, MaxSamplesUsed: pass * 2},
			Duration:   250 * time.Millisecond,
			IsLast:     pass == 2,
		}
		if err := writer.RecordPass(result); err != nil {
			t.Fatalf("record pass %d: %v", pass, err)
		}
	}

	if err := writer.RecordComplete(CompleteInfo{Passes: 2, DurationMs: 500}); err != nil {
		t.Fatalf("record complete: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	onDisk, events, frames, err := ReadBundle(writer.Directory())
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if onDisk != manifest {
		t.Fatalf("manifest mismatch: %+v vs %+v", onDisk, manifest)
	}

	expectedTypes := []string{EventRenderStart, EventPass, EventPass, EventRenderComplete}
	if len(events) != len(expectedTypes) {
		t.Fatalf("expected %d events, got %d", len(expectedTypes), len(events))
	}
	for i, event := range events {
		if event.Type != expectedTypes[i] {
			t.Errorf("event %d: expected type %s, got %s", i, expectedTypes[i], event.Type)
		}
		if event.Seq != uint64(i+1) {
			t.Errorf("event %d: expected seq %d, got %d", i, i+1, event.Seq)
		}
	}

	var pass PassInfo
	if err := events[2].Decode(&pass); err != nil {
		t.Fatalf("decode pass event: %v", err)
	}
	if pass.Pass != 2 || pass.MinSamples != 4 || !pass.IsLast || pass.DurationMs != 250 {
		t.Errorf("unexpected pass info %+v", pass)
	}
	if pass.AverageLuminance <= 0 {
		t.Errorf("expected positive luminance, got %f", pass.AverageLuminance)
	}

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	for i, frame := range frames {
		if frame.Pass != i+1 || frame.Samples != (i+1)*2 {
			t.Errorf("frame %d: unexpected pass/samples %d/%d", i, frame.Pass, frame.Samples)
		}
		if frame.Width != 3 || frame.Height != 2 || len(frame.Pixels) != 18 {
			t.Errorf("frame %d: unexpected size %dx%d (%d bytes)", i, frame.Width, frame.Height, len(frame.Pixels))
		}
		if !frame.CapturedAt.Equal(time.Date(2024, 7, 10, 12, 0, i+1, 0, time.UTC)) {
			t.Errorf("frame %d: unexpected capture time %v", i, frame.CapturedAt)
		}

		decoded := frame.Image()
		original := gradientImage(3, 2)
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				if decoded.RGBAAt(x, y) != original.RGBAAt(x, y) {
					t.Fatalf("frame %d pixel (%d,%d): expected %v, got %v", i, x, y, original.RGBAAt(x, y), decoded.RGBAAt(x, y))
				}
			}
		}
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	writer, _, err := NewWriter(t.TempDir(), "", 1, 1, nil)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(writer.Directory()), "render-") {
		t.Errorf("expected fallback name, got %s", writer.Directory())
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	if err := writer.AppendEvent("late", nil); err == nil {
		t.Error("expected error appending event after close")
	}
	if err := writer.AppendFrame(1, 1, gradientImage(1, 1)); err == nil {
		t.Error("expected error appending frame after close")
	}
}

func TestNilWriter(t *testing.T) {
	var writer *Writer
	if writer.Directory() != "" {
		t.Error("expected empty directory for nil writer")
	}
	if err := writer.AppendEvent("x", nil); err == nil {
		t.Error("expected error for nil writer")
	}
	if err := writer.Close(); err != nil {
		t.Errorf("expected nil close error, got %v", err)
	}
}

func TestNewWriter_RequiresRoot(t *testing.T) {
	if _, _, err := NewWriter("", "scene", 1, 1, nil); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestReadBundle_Errors(t *testing.T) {
	if _, _, _, err := ReadBundle(""); err == nil {
		t.Error("expected error for empty path")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"version": 9}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := ReadBundle(dir); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("expected version error, got %v", err)
	}
}

func TestDecodeFrames_Truncated(t *testing.T) {
	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint32(header[24:28], 10)

	tests := map[string][]byte{
		"short header":  header[:10],
		"short payload": append(append([]byte(nil), header...), 1, 2, 3),
	}
	for name, payload := range tests {
		if _, err := decodeFrames(payload); err == nil {
			t.Errorf("%s: expected truncation error", name)
		}
	}

	frames, err := decodeFrames(nil)
	if err != nil || len(frames) != 0 {
		t.Errorf("expected no frames for empty stream, got %d (%v)", len(frames), err)
	}
}
