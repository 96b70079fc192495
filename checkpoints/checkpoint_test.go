package checkpoints

import (
	"path/filepath"
	"testing"
)

func testCheckpoint() *Checkpoint {
	cp := NewCheckpoint("unit test")
	cp.Weights = []WeightTensor{
		{Name: "dense.weight", Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}, Layer: "dense", Type: "weight"},
		{Name: "dense.bias", Shape: []int{2}, Data: []float32{0.1, 0.2}, Layer: "dense", Type: "bias"},
	}
	cp.TrainingState = TrainingState{
		Epoch:        7,
		LearningRate: 0.01,
		BestLoss:     0.42,
	}
	return cp
}

func TestNewCheckpoint(t *testing.T) {
	a, b := NewCheckpoint("first"), NewCheckpoint("second")

	if a.RunID == "" {
		t.Error("checkpoint has no run ID")
	}
	if a.RunID == b.RunID {
		t.Error("two checkpoints share a run ID")
	}
	if a.Metadata.Framework != "biolearn" {
		t.Errorf("framework is %q", a.Metadata.Framework)
	}
	if a.Metadata.CreatedAt.IsZero() {
		t.Error("checkpoint has no creation time")
	}
}

func TestCheckpointFormatString(t *testing.T) {
	if FormatJSON.String() != "JSON" || FormatJSONXZ.String() != "JSON+XZ" {
		t.Errorf("format names are %s/%s", FormatJSON, FormatJSONXZ)
	}
}

func roundTrip(t *testing.T, format CheckpointFormat, name string) {
	t.Helper()

	saver := NewCheckpointSaver(format)
	path := filepath.Join(t.TempDir(), name)

	original := testCheckpoint()
	if err := saver.SaveCheckpoint(original, path); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	loaded, err := saver.LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("run ID changed: %s vs %s", loaded.RunID, original.RunID)
	}
	if loaded.TrainingState.Epoch != 7 || loaded.TrainingState.BestLoss != 0.42 {
		t.Errorf("training state is %+v", loaded.TrainingState)
	}
	if len(loaded.Weights) != 2 {
		t.Fatalf("loaded %d weight tensors, want 2", len(loaded.Weights))
	}
	w := loaded.Weights[0]
	if w.Name != "dense.weight" || len(w.Data) != 4 || w.Data[3] != 4 {
		t.Errorf("weight tensor is %+v", w)
	}
}

func TestSaveLoadJSON(t *testing.T) {
	roundTrip(t, FormatJSON, "model.json")
}

func TestSaveLoadJSONXZ(t *testing.T) {
	roundTrip(t, FormatJSONXZ, "model.json.xz")
}

func TestLoadMissingFile(t *testing.T) {
	saver := NewCheckpointSaver(FormatJSON)
	if _, err := saver.LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for a missing checkpoint file")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	saver := NewCheckpointSaver(CheckpointFormat(99))
	path := filepath.Join(t.TempDir(), "cp.bin")
	if err := saver.SaveCheckpoint(testCheckpoint(), path); err == nil {
		t.Error("expected error for an unsupported format")
	}
}
