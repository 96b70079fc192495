package training

import (
	"fmt"

	"go-ml.dev/pkg/zorros/zlog"
	"golang.org/x/xerrors"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// Mode is the phase of the epoch currently open on a Logger.
type Mode int

const (
	ModeUnset Mode = iota
	ModeTraining
	ModeValidation
)

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return "unset"
	case ModeTraining:
		return "training"
	case ModeValidation:
		return "validation"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Logs is a free-form bag of extra values the trainer collected during a
// batch, epoch or run. Sinks may render it; the Logger never reads it.
type Logs map[string]interface{}

// LogSink receives freshly built results for side-effecting telemetry:
// console, disk, dashboards. Implementations must be fast, must not fail and
// must not mutate the results they are handed; the accumulation algorithm
// does not depend on them in any way.
type LogSink interface {
	LogBatch(logs Logs, result *BatchResult)
	LogEpoch(logs Logs, result *EpochResult)
	LogFit(logs Logs, result *FitResult)
}

// OutputSaver stores batch labels and predictions when output retention is
// enabled. There is no default implementation: retention without a saver is
// a configuration error.
type OutputSaver interface {
	SaveOutput(y, yPred map[data.LabelKind]*tensor.Tensor) error
}

// Logger accumulates the results of one training run. It tracks the current
// epoch and phase, buffers batch results for the epoch in progress, computes
// epoch aggregates on demand and assembles the final FitResult.
//
// One instance serves exactly one run, driven sequentially by one Trainer.
// The internal dictionaries are owned by the Logger alone; everything it
// hands out is an immutable value object.
type Logger struct {
	batchMetrics []BatchMetric
	epochMetrics []EpochMetric
	keepOutput   bool
	outputSaver  OutputSaver
	sink         LogSink

	currentEpoch int
	mode         Mode
	current      []*BatchResult

	batchTrainResults      map[int][]*BatchResult
	batchValidationResults map[int][]*BatchResult
	epochTrainResults      map[int]*EpochResult
	epochValidationResults map[int]*EpochResult

	trainEpochsRun      int
	validationEpochsRun int

	fitResult *FitResult
}

// LoggerConfig configures a Logger.
type LoggerConfig struct {
	BatchMetrics []BatchMetric
	EpochMetrics []EpochMetric

	// StartEpoch seeds the epoch counter; epochs are normally numbered by
	// explicit StartEpoch calls.
	StartEpoch int

	// KeepOutput retains (y, yPred) in every BatchResult and forwards them
	// to OutputSaver. Requires OutputSaver to be set.
	KeepOutput  bool
	OutputSaver OutputSaver

	// Sink receives results for side-effecting logging. Nil means no-op.
	Sink LogSink
}

// NewLogger creates a Logger in the idle state.
func NewLogger(cfg LoggerConfig) *Logger {
	return &Logger{
		batchMetrics:           cfg.BatchMetrics,
		epochMetrics:           cfg.EpochMetrics,
		keepOutput:             cfg.KeepOutput,
		outputSaver:            cfg.OutputSaver,
		sink:                   cfg.Sink,
		currentEpoch:           cfg.StartEpoch,
		mode:                   ModeUnset,
		batchTrainResults:      map[int][]*BatchResult{},
		batchValidationResults: map[int][]*BatchResult{},
		epochTrainResults:      map[int]*EpochResult{},
		epochValidationResults: map[int]*EpochResult{},
	}
}

// StartEpoch opens an epoch. Exactly one of train and validation must be
// true; anything else is a configuration error. The in-progress batch buffer
// is reset and the epoch counter moves to epoch.
func (l *Logger) StartEpoch(train, validation bool, epoch int) error {
	if train == validation {
		return xerrors.Errorf("start epoch %d (train=%v, validation=%v): %w", epoch, train, validation, ErrEpochPhase)
	}
	if l.fitResult != nil {
		zlog.Warning("starting an epoch on a logger whose training already finished")
	}

	l.current = nil
	if train {
		l.mode = ModeTraining
	} else {
		l.mode = ModeValidation
	}
	l.currentEpoch = epoch
	return nil
}

// NewBatch reports one finished batch: it evaluates every registered batch
// metric against (y, yPred), buffers the resulting BatchResult and returns
// it. Metric evaluations are independent and pure, so their order carries no
// meaning.
func (l *Logger) NewBatch(loss *LossResult, y, yPred map[data.LabelKind]*tensor.Tensor, batchSize int, logs Logs) (*BatchResult, error) {
	if l.keepOutput {
		if l.outputSaver == nil {
			return nil, xerrors.Errorf("batch in epoch %d: %w", l.currentEpoch, ErrNoOutputSaver)
		}
		if err := l.outputSaver.SaveOutput(y, yPred); err != nil {
			return nil, fmt.Errorf("saving batch outputs: %v", err)
		}
	}

	metrics := make(map[BatchMetricKind]float64, len(l.batchMetrics))
	for _, m := range l.batchMetrics {
		v, err := m.Compute(y, yPred)
		if err != nil {
			return nil, fmt.Errorf("batch metric %s: %v", m.Kind(), err)
		}
		metrics[m.Kind()] = v
	}

	var retainedY, retainedPred map[data.LabelKind]*tensor.Tensor
	if l.keepOutput {
		retainedY, retainedPred = y, yPred
	}

	result := NewBatchResult(loss, metrics, batchSize, retainedY, retainedPred)
	l.current = append(l.current, result)

	if l.sink != nil {
		l.sink.LogBatch(logs, result)
	}
	return result, nil
}

// FinishEpoch closes the open epoch: it walks the batch buffer once in
// arrival order to collect losses, per-metric series and the sample count,
// evaluates every epoch metric against the complete buffer, and files the
// epoch under the current phase.
func (l *Logger) FinishEpoch(logs Logs) (*EpochResult, error) {
	if l.mode != ModeTraining && l.mode != ModeValidation {
		return nil, xerrors.Errorf("finish epoch %d in mode %s: %w", l.currentEpoch, l.mode, ErrLoggerMode)
	}

	batchLosses := make([]*LossResult, 0, len(l.current))
	batchSeries := make(map[BatchMetricKind][]float64, len(l.batchMetrics))
	for _, m := range l.batchMetrics {
		batchSeries[m.Kind()] = make([]float64, 0, len(l.current))
	}

	epochSize := 0
	for _, batch := range l.current {
		batchLosses = append(batchLosses, batch.Loss())
		for _, m := range l.batchMetrics {
			v, _ := batch.Metric(m.Kind())
			batchSeries[m.Kind()] = append(batchSeries[m.Kind()], v)
		}
		epochSize += batch.BatchSize()
	}

	epochScalars := make(map[EpochMetricKind]float64, len(l.epochMetrics))
	for _, m := range l.epochMetrics {
		if err := checkRequiredMetrics(l.current, m); err != nil {
			return nil, err
		}
		v, err := m.Compute(l.current)
		if err != nil {
			return nil, fmt.Errorf("epoch metric %s: %v", m.Kind(), err)
		}
		epochScalars[m.Kind()] = v
	}

	result := NewEpochResult(batchLosses, batchSeries, epochScalars, epochSize)

	switch l.mode {
	case ModeTraining:
		l.batchTrainResults[l.currentEpoch] = l.current
		l.epochTrainResults[l.currentEpoch] = result
		l.trainEpochsRun++
	case ModeValidation:
		l.batchValidationResults[l.currentEpoch] = l.current
		l.epochValidationResults[l.currentEpoch] = result
		l.validationEpochsRun++
	}

	l.current = nil
	l.mode = ModeUnset

	if l.sink != nil {
		l.sink.LogEpoch(logs, result)
	}
	return result, nil
}

// checkRequiredMetrics verifies that every buffered batch carries every batch
// metric the epoch metric depends on. A miss means the Logger was configured
// with an epoch metric but without its batch-metric dependency.
func checkRequiredMetrics(batches []*BatchResult, m EpochMetric) error {
	for _, kind := range m.RequiredBatchMetrics() {
		for i, batch := range batches {
			if !batch.HasMetric(kind) {
				return xerrors.Errorf("epoch metric %s needs batch metric %s, absent from batch %d: %w",
					m.Kind(), kind, i, ErrMissingBatchMetric)
			}
		}
	}
	return nil
}

// FinishTraining re-indexes the accumulated epoch history metric-major,
// builds the FitResult and returns it. NumEpochs is the epoch counter at
// call time. Calling it again without new epochs yields an equivalent
// result.
func (l *Logger) FinishTraining(model Model, logs Logs) (*FitResult, error) {
	batchKinds := make([]BatchMetricKind, len(l.batchMetrics))
	for i, m := range l.batchMetrics {
		batchKinds[i] = m.Kind()
	}
	epochKinds := make([]EpochMetricKind, len(l.epochMetrics))
	for i, m := range l.epochMetrics {
		epochKinds[i] = m.Kind()
	}

	l.fitResult = NewFitResult(FitResultConfig{
		BatchTrainLosses:       collectBatchLosses(l.epochTrainResults),
		BatchValidationLosses:  collectBatchLosses(l.epochValidationResults),
		BatchTrainMetrics:      transposeBatchMetrics(l.epochTrainResults, batchKinds),
		BatchValidationMetrics: transposeBatchMetrics(l.epochValidationResults, batchKinds),
		EpochTrainMetrics:      transposeEpochMetrics(l.epochTrainResults, epochKinds),
		EpochValidationMetrics: transposeEpochMetrics(l.epochValidationResults, epochKinds),
		NumEpochs:              l.currentEpoch,
		Model:                  model,
	})

	if l.sink != nil {
		l.sink.LogFit(logs, l.fitResult)
	}
	return l.fitResult, nil
}

// CurrentEpoch is the number of the epoch most recently opened.
func (l *Logger) CurrentEpoch() int { return l.currentEpoch }

// CurrentMode is the phase of the epoch in progress, ModeUnset when idle.
func (l *Logger) CurrentMode() Mode { return l.mode }

// TrainEpochsRun counts finished training epochs.
func (l *Logger) TrainEpochsRun() int { return l.trainEpochsRun }

// ValidationEpochsRun counts finished validation epochs.
func (l *Logger) ValidationEpochsRun() int { return l.validationEpochsRun }

// FitResult returns the result built by FinishTraining, nil before then.
func (l *Logger) FitResult() *FitResult { return l.fitResult }

// ConsoleSink renders epoch and fit summaries to stdout, one line per epoch
// in the classic loss/metrics format.
type ConsoleSink struct{}

func (ConsoleSink) LogBatch(logs Logs, result *BatchResult) {}

func (ConsoleSink) LogEpoch(logs Logs, result *EpochResult) {
	line := fmt.Sprintf("epoch done: %d batches, %d samples, mean loss=%.5f",
		len(result.BatchLosses()), result.EpochSize(), result.MeanLoss())
	for kind, v := range result.EpochMetrics() {
		line += fmt.Sprintf(", %s=%.4f", kind, v)
	}
	fmt.Println(line)
}

func (ConsoleSink) LogFit(logs Logs, result *FitResult) {
	fmt.Printf("fit done: %d epochs, %d train / %d validation epoch records\n",
		result.NumEpochs(), len(result.BatchTrainLosses()), len(result.BatchValidationLosses()))
}
