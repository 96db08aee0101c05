package renderer

import "testing"

func TestWorkerPool_ProcessesAllTasks(t *testing.T) {
	s := newTestScene(6, 6, 1)
	tiles := NewTileGrid(6, 6, 2, SeededSamplerFactory(3))
	pixelStats := newPixelStats(6, 6)

	wp := NewWorkerPool(NewTileRenderer(s, &recordingIntegrator{}), len(tiles), 3)
	if wp.GetNumWorkers() != 3 {
		t.Fatalf("Expected 3 workers, got %d", wp.GetNumWorkers())
	}
	wp.Start()
	wp.Start() // second start is a no-op

	for i, tile := range tiles {
		wp.SubmitTask(TileTask{Tile: tile, PassNumber: 1, TargetSamples: 2, TaskID: i, PixelStats: pixelStats})
	}

	seen := make(map[int]bool)
	for range tiles {
		result, ok := wp.GetResult()
		if !ok {
			t.Fatal("Result queue closed early")
		}
		if seen[result.TaskID] {
			t.Errorf("Task %d reported twice", result.TaskID)
		}
		seen[result.TaskID] = true
		if result.Stats.TotalSamples != 8 {
			t.Errorf("Task %d: expected 8 samples, got %d", result.TaskID, result.Stats.TotalSamples)
		}
	}

	wp.Stop()
	wp.Stop()
	if _, ok := wp.GetResult(); ok {
		t.Error("Expected result queue to be closed after Stop")
	}
}

func TestNewWorkerPool_DefaultsToCPUCount(t *testing.T) {
	wp := NewWorkerPool(NewTileRenderer(newTestScene(2, 2, 1), &recordingIntegrator{}), 0, 0)
	defer wp.Stop()

	if wp.GetNumWorkers() <= 0 {
		t.Errorf("Expected a positive worker count, got %d", wp.GetNumWorkers())
	}
}
