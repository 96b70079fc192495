package training

import (
	"math"
	"testing"
)

func TestStepDecay(t *testing.T) {
	s := NewStepDecay(10, 0.5)

	cases := []struct {
		epoch int
		want  float64
	}{
		{0, 0.1},
		{9, 0.1},
		{10, 0.05},
		{25, 0.025},
	}
	for _, tc := range cases {
		if got := s.LearningRate(tc.epoch, 0.1); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("epoch %d: lr = %f, want %f", tc.epoch, got, tc.want)
		}
	}
}

func TestStepDecayDefaults(t *testing.T) {
	s := NewStepDecay(0, 2.0)
	if s.StepSize != 30 || s.Gamma != 0.1 {
		t.Errorf("defaults are %d/%f, want 30/0.1", s.StepSize, s.Gamma)
	}
}

func TestExponentialDecay(t *testing.T) {
	s := NewExponentialDecay(0.9)

	if got := s.LearningRate(0, 1.0); got != 1.0 {
		t.Errorf("epoch 0: lr = %f, want 1.0", got)
	}
	if got := s.LearningRate(2, 1.0); math.Abs(got-0.81) > 1e-12 {
		t.Errorf("epoch 2: lr = %f, want 0.81", got)
	}
}

func TestPlateauDecay(t *testing.T) {
	s := NewPlateauDecay(0.5, 2, 0)

	lr := s.Observe(1.0, 0.1) // establishes the baseline
	if lr != 0.1 {
		t.Fatalf("initial observe changed lr to %f", lr)
	}

	lr = s.Observe(1.0, lr) // bad epoch 1
	if lr != 0.1 {
		t.Errorf("lr dropped after one bad epoch: %f", lr)
	}
	lr = s.Observe(1.0, lr) // bad epoch 2: patience exhausted
	if math.Abs(lr-0.05) > 1e-12 {
		t.Errorf("lr = %f after plateau, want 0.05", lr)
	}

	lr = s.Observe(0.5, lr) // improvement keeps the reduced rate
	if math.Abs(lr-0.05) > 1e-12 {
		t.Errorf("lr = %f after improvement, want 0.05", lr)
	}
}
