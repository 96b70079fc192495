package training

import (
	"math"
)

// Schedule maps an epoch number to a learning rate. Stateless schedules are
// pure functions of (epoch, base rate).
type Schedule interface {
	LearningRate(epoch int, baseLR float64) float64
	Name() string
}

// StepDecay multiplies the base rate by Gamma once every StepSize epochs.
type StepDecay struct {
	StepSize int
	Gamma    float64
}

// NewStepDecay builds a step schedule; non-positive or out-of-range arguments
// fall back to 30 epochs and a factor of 0.1.
func NewStepDecay(stepSize int, gamma float64) *StepDecay {
	if stepSize <= 0 {
		stepSize = 30
	}
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.1
	}
	return &StepDecay{StepSize: stepSize, Gamma: gamma}
}

func (s *StepDecay) LearningRate(epoch int, baseLR float64) float64 {
	return baseLR * math.Pow(s.Gamma, float64(epoch/s.StepSize))
}

func (s *StepDecay) Name() string { return "StepDecay" }

// ExponentialDecay multiplies the base rate by Gamma every epoch.
type ExponentialDecay struct {
	Gamma float64
}

func NewExponentialDecay(gamma float64) *ExponentialDecay {
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.95
	}
	return &ExponentialDecay{Gamma: gamma}
}

func (s *ExponentialDecay) LearningRate(epoch int, baseLR float64) float64 {
	return baseLR * math.Pow(s.Gamma, float64(epoch))
}

func (s *ExponentialDecay) Name() string { return "ExponentialDecay" }

// PlateauDecay reduces the current rate by Factor after Patience epochs
// without the monitored value improving by more than Threshold. Unlike the
// pure schedules it keeps state, so it is driven through Observe rather than
// recomputed from the epoch number.
type PlateauDecay struct {
	Factor    float64
	Patience  int
	Threshold float64

	best        float64
	badEpochs   int
	currentLR   float64
	initialized bool
}

func NewPlateauDecay(factor float64, patience int, threshold float64) *PlateauDecay {
	if factor <= 0 || factor >= 1 {
		factor = 0.1
	}
	if patience <= 0 {
		patience = 10
	}
	if threshold < 0 {
		threshold = 1e-4
	}
	return &PlateauDecay{Factor: factor, Patience: patience, Threshold: threshold}
}

// Observe feeds the monitored value (typically the validation mean loss) for
// one epoch and returns the rate to use next. Lower is treated as better.
func (s *PlateauDecay) Observe(value, currentLR float64) float64 {
	if !s.initialized {
		s.best = value
		s.currentLR = currentLR
		s.initialized = true
		return currentLR
	}

	if value < s.best-s.Threshold {
		s.best = value
		s.badEpochs = 0
	} else {
		s.badEpochs++
		if s.badEpochs >= s.Patience {
			s.currentLR *= s.Factor
			s.badEpochs = 0
		}
	}
	return s.currentLR
}

func (s *PlateauDecay) LearningRate(epoch int, baseLR float64) float64 {
	if s.initialized {
		return s.currentLR
	}
	return baseLR
}

func (s *PlateauDecay) Name() string { return "PlateauDecay" }
