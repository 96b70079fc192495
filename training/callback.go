package training

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/openphysio/biolearn/checkpoints"
)

// CallbackKind identifies a callback.
type CallbackKind int

const (
	CallbackLRScheduler CallbackKind = iota
	CallbackCheckpoints
	CallbackLossPlot
)

func (k CallbackKind) String() string {
	switch k {
	case CallbackLRScheduler:
		return "LRScheduler"
	case CallbackCheckpoints:
		return "Checkpoints"
	case CallbackLossPlot:
		return "LossPlot"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Callback runs after each epoch boundary, once the stoppers have been
// consulted. Callbacks may mutate the trainer (learning rate, checkpoints on
// disk) but not the results they are handed.
type Callback interface {
	OnEpochEnd(t Trainer, trainResult, validationResult *EpochResult) error
	Kind() CallbackKind
}

// LRSchedulerCallback applies a Schedule to the trainer's optimizer after
// every epoch. Plateau schedules are driven through Observe with the
// monitored mean loss; pure schedules are recomputed from the epoch number.
type LRSchedulerCallback struct {
	schedule Schedule
	baseLR   float64
}

func NewLRSchedulerCallback(schedule Schedule, baseLR float64) *LRSchedulerCallback {
	return &LRSchedulerCallback{schedule: schedule, baseLR: baseLR}
}

func (c *LRSchedulerCallback) Kind() CallbackKind { return CallbackLRScheduler }

func (c *LRSchedulerCallback) OnEpochEnd(t Trainer, trainResult, validationResult *EpochResult) error {
	opt := t.Optimizer()
	if opt == nil {
		return nil
	}

	if plateau, ok := c.schedule.(*PlateauDecay); ok {
		monitored := trainResult
		if validationResult != nil {
			monitored = validationResult
		}
		if monitored == nil {
			return nil
		}
		opt.SetLearningRate(plateau.Observe(monitored.MeanLoss(), opt.LearningRate()))
		return nil
	}

	opt.SetLearningRate(c.schedule.LearningRate(t.Logger().CurrentEpoch(), c.baseLR))
	return nil
}

// CheckpointCallback saves a checkpoint whenever the monitored mean loss
// improves. The trainer's model must implement checkpoints.WeightSource;
// otherwise the callback is a no-op.
type CheckpointCallback struct {
	saver    *checkpoints.CheckpointSaver
	dir      string
	bestLoss float64
}

func NewCheckpointCallback(saver *checkpoints.CheckpointSaver, dir string) *CheckpointCallback {
	return &CheckpointCallback{
		saver:    saver,
		dir:      dir,
		bestLoss: math.Inf(1),
	}
}

func (c *CheckpointCallback) Kind() CallbackKind { return CallbackCheckpoints }

func (c *CheckpointCallback) OnEpochEnd(t Trainer, trainResult, validationResult *EpochResult) error {
	monitored := trainResult
	if validationResult != nil {
		monitored = validationResult
	}
	if monitored == nil {
		return nil
	}

	loss := monitored.MeanLoss()
	if loss >= c.bestLoss {
		return nil
	}
	c.bestLoss = loss

	source, ok := t.Model().(checkpoints.WeightSource)
	if !ok {
		return nil
	}

	epoch := t.Logger().CurrentEpoch()
	cp := checkpoints.NewCheckpoint(fmt.Sprintf("best model at epoch %d", epoch))
	cp.Weights = source.Weights()
	cp.TrainingState = checkpoints.TrainingState{
		Epoch:    epoch,
		BestLoss: loss,
	}
	if opt := t.Optimizer(); opt != nil {
		cp.TrainingState.LearningRate = opt.LearningRate()
	}

	path := filepath.Join(c.dir, fmt.Sprintf("checkpoint_epoch_%d.json", epoch))
	if err := c.saver.SaveCheckpoint(cp, path); err != nil {
		return fmt.Errorf("saving checkpoint for epoch %d: %v", epoch, err)
	}
	return nil
}

// LossPlotCallback collects the per-epoch loss history and writes it as JSON
// to the configured writer when the run ends or whenever Flush is called.
type LossPlotCallback struct {
	w io.Writer

	TrainLosses      []float64 `json:"train_losses"`
	ValidationLosses []float64 `json:"validation_losses"`
}

func NewLossPlotCallback(w io.Writer) *LossPlotCallback {
	return &LossPlotCallback{w: w}
}

func (c *LossPlotCallback) Kind() CallbackKind { return CallbackLossPlot }

func (c *LossPlotCallback) OnEpochEnd(t Trainer, trainResult, validationResult *EpochResult) error {
	if trainResult != nil {
		c.TrainLosses = append(c.TrainLosses, trainResult.MeanLoss())
	}
	if validationResult != nil {
		c.ValidationLosses = append(c.ValidationLosses, validationResult.MeanLoss())
	}
	return nil
}

// Flush writes the collected history as indented JSON.
func (c *LossPlotCallback) Flush() error {
	encoder := json.NewEncoder(c.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("writing loss history: %v", err)
	}
	return nil
}
