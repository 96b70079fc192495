package training

import (
	"fmt"
	"math"
)

// StopperKind identifies a stopping rule.
type StopperKind int

const (
	StopMaxEpochs StopperKind = iota
	StopEarlyStopping
)

func (k StopperKind) String() string {
	switch k {
	case StopMaxEpochs:
		return "MaxEpochs"
	case StopEarlyStopping:
		return "EarlyStopping"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Stopper decides after each epoch boundary whether the run should end.
// ShouldStop sees the trainer plus the train result of the epoch just closed
// and the validation result, nil when no validation ran this epoch.
type Stopper interface {
	ShouldStop(t Trainer, trainResult, validationResult *EpochResult) bool
	Kind() StopperKind
}

// MaxEpochsStopper halts the run once the logger has recorded the configured
// number of training epochs.
type MaxEpochsStopper struct {
	maxEpochs int
}

func NewMaxEpochsStopper(maxEpochs int) *MaxEpochsStopper {
	if maxEpochs <= 0 {
		maxEpochs = 1
	}
	return &MaxEpochsStopper{maxEpochs: maxEpochs}
}

func (s *MaxEpochsStopper) Kind() StopperKind { return StopMaxEpochs }

func (s *MaxEpochsStopper) ShouldStop(t Trainer, trainResult, validationResult *EpochResult) bool {
	return t.Logger().TrainEpochsRun() >= s.maxEpochs
}

// EarlyStoppingStopper halts when the monitored mean loss has not improved by
// more than MinDelta for Patience consecutive epochs. It watches the
// validation loss when a validation result is available and falls back to the
// training loss otherwise.
type EarlyStoppingStopper struct {
	patience int
	minDelta float64

	bestLoss        float64
	patienceCounter int
}

func NewEarlyStoppingStopper(patience int, minDelta float64) *EarlyStoppingStopper {
	if patience <= 0 {
		patience = 5
	}
	if minDelta < 0 {
		minDelta = 0
	}
	return &EarlyStoppingStopper{
		patience: patience,
		minDelta: minDelta,
		bestLoss: math.Inf(1),
	}
}

func (s *EarlyStoppingStopper) Kind() StopperKind { return StopEarlyStopping }

func (s *EarlyStoppingStopper) ShouldStop(t Trainer, trainResult, validationResult *EpochResult) bool {
	monitored := trainResult
	if validationResult != nil {
		monitored = validationResult
	}
	if monitored == nil {
		return false
	}

	loss := monitored.MeanLoss()
	if loss < s.bestLoss-s.minDelta {
		s.bestLoss = loss
		s.patienceCounter = 0
		return false
	}

	s.patienceCounter++
	return s.patienceCounter >= s.patience
}
