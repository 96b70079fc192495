package training

import (
	"testing"
)

func TestTransposeBatchMetrics(t *testing.T) {
	epochs := map[int]*EpochResult{
		1: NewEpochResult(nil, map[BatchMetricKind][]float64{BatchAccuracy: {0.5, 0.6}}, nil, 4),
		2: NewEpochResult(nil, map[BatchMetricKind][]float64{BatchAccuracy: {0.7, 0.8}}, nil, 4),
	}

	out := transposeBatchMetrics(epochs, []BatchMetricKind{BatchAccuracy, BatchF1})

	acc := out[BatchAccuracy]
	if len(acc) != 2 {
		t.Fatalf("accuracy map has %d epochs, want 2", len(acc))
	}
	if acc[1][0] != 0.5 || acc[2][1] != 0.8 {
		t.Errorf("transposed values are wrong: %v", acc)
	}

	// A registered kind no epoch computed still gets an (empty) entry.
	f1, ok := out[BatchF1]
	if !ok {
		t.Fatal("registered kind missing from transposed map")
	}
	if len(f1) != 0 {
		t.Errorf("F1 map has %d entries, want 0", len(f1))
	}
}

func TestTransposeEpochMetrics(t *testing.T) {
	epochs := map[int]*EpochResult{
		1: NewEpochResult(nil, nil, map[EpochMetricKind]float64{EpochAccuracy: 0.7}, 4),
		3: NewEpochResult(nil, nil, map[EpochMetricKind]float64{EpochAccuracy: 0.9}, 4),
	}

	out := transposeEpochMetrics(epochs, []EpochMetricKind{EpochAccuracy})
	acc := out[EpochAccuracy]
	if acc[1] != 0.7 || acc[3] != 0.9 {
		t.Errorf("transposed scalars are wrong: %v", acc)
	}
}

func TestTransposeNoEpochs(t *testing.T) {
	out := transposeBatchMetrics(nil, []BatchMetricKind{BatchAccuracy})
	if _, ok := out[BatchAccuracy]; !ok {
		t.Error("kind entry missing with zero epochs")
	}

	scalars := transposeEpochMetrics(nil, []EpochMetricKind{EpochAUROC})
	if _, ok := scalars[EpochAUROC]; !ok {
		t.Error("epoch kind entry missing with zero epochs")
	}
}

func TestCollectBatchLosses(t *testing.T) {
	losses := []*LossResult{NewLossResult(LossMSE, 0.1)}
	epochs := map[int]*EpochResult{
		5: NewEpochResult(losses, nil, nil, 2),
	}

	out := collectBatchLosses(epochs)
	if got := out[5]; len(got) != 1 || got[0].Value() != 0.1 {
		t.Errorf("collected losses are %v, want [0.1]", got)
	}
}
