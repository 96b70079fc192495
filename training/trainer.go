package training

import (
	"fmt"
)

// Trainer drives a training run: epochs over a DataLoader, batches through
// the model and criterion, results into a Logger. Stoppers and callbacks see
// this interface rather than a concrete implementation.
type Trainer interface {
	Fit(train, validation *DataLoader, cfg FitConfig) (*FitResult, error)
	TrainEpoch(dl *DataLoader, epoch int, logs Logs) (*EpochResult, error)
	TestEpoch(dl *DataLoader, epoch int, logs Logs) (*EpochResult, error)
	TrainBatch(b *Batch) (*BatchResult, error)
	TestBatch(b *Batch) (*BatchResult, error)
	Logger() *Logger
	Model() Model
	Optimizer() Optimizer
}

// FitConfig controls a Fit run.
type FitConfig struct {
	// MaxEpochs caps the run when no stopper halts it earlier. Zero means
	// the stoppers alone decide; at least one of the two must bound the run.
	MaxEpochs int

	// ValidateEvery runs a validation epoch after every Nth training epoch.
	// Zero disables validation even when a validation loader is given.
	ValidateEvery int

	// Stoppers are checked after each epoch boundary; any one of them can
	// end the run.
	Stoppers []Stopper

	// Callbacks run after the stopper check at each epoch boundary.
	Callbacks []Callback

	// PrintEvery redraws the per-epoch progress bar every PrintEvery batches.
	// Zero disables progress output.
	PrintEvery int
}

// ModelTrainer is the standard Trainer over a Model, an Optimizer and a loss
// criterion. It numbers epochs from 1 so the final count equals the last
// epoch number.
type ModelTrainer struct {
	model     Model
	optimizer Optimizer
	criterion LossFunc
	logger    *Logger
}

// NewModelTrainer wires a trainer together. The optimizer may be nil for
// models that are only evaluated.
func NewModelTrainer(model Model, optimizer Optimizer, criterion LossFunc, logger *Logger) *ModelTrainer {
	if logger == nil {
		logger = NewLogger(LoggerConfig{})
	}
	return &ModelTrainer{
		model:     model,
		optimizer: optimizer,
		criterion: criterion,
		logger:    logger,
	}
}

func (t *ModelTrainer) Logger() *Logger      { return t.logger }
func (t *ModelTrainer) Model() Model         { return t.model }
func (t *ModelTrainer) Optimizer() Optimizer { return t.optimizer }

// Fit runs the full training loop: training epochs, interleaved validation,
// stoppers, callbacks, and finally the assembled FitResult.
func (t *ModelTrainer) Fit(train, validation *DataLoader, cfg FitConfig) (*FitResult, error) {
	if cfg.MaxEpochs <= 0 && len(cfg.Stoppers) == 0 {
		return nil, fmt.Errorf("fit: neither MaxEpochs nor a stopper bounds the run")
	}

	for epoch := 1; cfg.MaxEpochs <= 0 || epoch <= cfg.MaxEpochs; epoch++ {
		trainResult, err := t.trainEpochProgress(train, epoch, cfg.PrintEvery)
		if err != nil {
			return nil, fmt.Errorf("training epoch %d: %v", epoch, err)
		}

		var validationResult *EpochResult
		if validation != nil && cfg.ValidateEvery > 0 && epoch%cfg.ValidateEvery == 0 {
			validationResult, err = t.TestEpoch(validation, epoch, nil)
			if err != nil {
				return nil, fmt.Errorf("validation epoch %d: %v", epoch, err)
			}
		}

		stop := false
		for _, s := range cfg.Stoppers {
			if s.ShouldStop(t, trainResult, validationResult) {
				stop = true
			}
		}

		for _, cb := range cfg.Callbacks {
			if err := cb.OnEpochEnd(t, trainResult, validationResult); err != nil {
				return nil, fmt.Errorf("callback %s after epoch %d: %v", cb.Kind(), epoch, err)
			}
		}

		if stop {
			break
		}
	}

	return t.logger.FinishTraining(t.model, nil)
}

// TrainEpoch runs one full training pass over the loader as epoch number
// epoch.
func (t *ModelTrainer) TrainEpoch(dl *DataLoader, epoch int, logs Logs) (*EpochResult, error) {
	return t.runEpoch(dl, epoch, logs, true, nil, 0)
}

// TestEpoch runs one evaluation pass over the loader as epoch number epoch.
// No gradients flow and no parameters move.
func (t *ModelTrainer) TestEpoch(dl *DataLoader, epoch int, logs Logs) (*EpochResult, error) {
	return t.runEpoch(dl, epoch, logs, false, nil, 0)
}

func (t *ModelTrainer) trainEpochProgress(dl *DataLoader, epoch int, printEvery int) (*EpochResult, error) {
	var bar *ProgressBar
	if printEvery > 0 {
		bar = NewProgressBar(fmt.Sprintf("epoch %d", epoch), dl.Len())
	}
	return t.runEpoch(dl, epoch, nil, true, bar, printEvery)
}

func (t *ModelTrainer) runEpoch(dl *DataLoader, epoch int, logs Logs, train bool, bar *ProgressBar, printEvery int) (*EpochResult, error) {
	if err := t.logger.StartEpoch(train, !train, epoch); err != nil {
		return nil, err
	}
	if train {
		t.model.Train()
	} else {
		t.model.Eval()
	}

	dl.Reset()
	step := 0
	for dl.HasNext() {
		batch, err := dl.Next()
		if err != nil {
			return nil, err
		}
		if batch == nil {
			break
		}

		var result *BatchResult
		if train {
			result, err = t.TrainBatch(batch)
		} else {
			result, err = t.TestBatch(batch)
		}
		if err != nil {
			return nil, err
		}

		step++
		if bar != nil && step%printEvery == 0 {
			bar.Update(step, map[string]float64{"loss": result.Loss().Value()})
		}
	}
	if bar != nil {
		bar.Finish()
	}

	return t.logger.FinishEpoch(logs)
}

// TrainBatch pushes one batch through forward, loss, backward and optimizer
// step, then reports it to the logger.
func (t *ModelTrainer) TrainBatch(b *Batch) (*BatchResult, error) {
	if t.optimizer != nil {
		t.optimizer.ZeroGrad()
	}

	yPred, err := t.model.Forward(b.Inputs)
	if err != nil {
		return nil, fmt.Errorf("forward pass: %v", err)
	}

	lossValue, err := t.criterion.Forward(b.Labels, yPred)
	if err != nil {
		return nil, fmt.Errorf("loss forward: %v", err)
	}

	if bp, ok := t.model.(BackpropModel); ok {
		grad, err := t.criterion.Backward(b.Labels, yPred)
		if err != nil {
			return nil, fmt.Errorf("loss backward: %v", err)
		}
		if err := bp.Backward(grad); err != nil {
			return nil, fmt.Errorf("model backward: %v", err)
		}
		if t.optimizer != nil {
			if err := t.optimizer.Step(); err != nil {
				return nil, err
			}
		}
	}

	return t.logger.NewBatch(Result(t.criterion, lossValue), b.Labels, yPred, b.Size, nil)
}

// TestBatch evaluates one batch without touching gradients or parameters.
func (t *ModelTrainer) TestBatch(b *Batch) (*BatchResult, error) {
	yPred, err := t.model.Forward(b.Inputs)
	if err != nil {
		return nil, fmt.Errorf("forward pass: %v", err)
	}

	lossValue, err := t.criterion.Forward(b.Labels, yPred)
	if err != nil {
		return nil, fmt.Errorf("loss forward: %v", err)
	}

	return t.logger.NewBatch(Result(t.criterion, lossValue), b.Labels, yPred, b.Size, nil)
}
