package training

import (
	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// BatchResult is the immutable snapshot of one batch: its loss, every
// registered batch metric, the batch size, and (only when output retention is
// enabled) the labels and predictions themselves.
type BatchResult struct {
	loss      *LossResult
	metrics   map[BatchMetricKind]float64
	batchSize int
	y         map[data.LabelKind]*tensor.Tensor
	yPred     map[data.LabelKind]*tensor.Tensor
}

// NewBatchResult builds a batch result. Pass nil y/yPred when outputs are not
// retained.
func NewBatchResult(loss *LossResult, metrics map[BatchMetricKind]float64, batchSize int, y, yPred map[data.LabelKind]*tensor.Tensor) *BatchResult {
	if metrics == nil {
		metrics = map[BatchMetricKind]float64{}
	}
	return &BatchResult{
		loss:      loss,
		metrics:   metrics,
		batchSize: batchSize,
		y:         y,
		yPred:     yPred,
	}
}

func (r *BatchResult) Loss() *LossResult { return r.loss }

func (r *BatchResult) BatchSize() int { return r.batchSize }

// Metric returns the value of one batch metric; ok is false when the kind was
// never computed for this batch.
func (r *BatchResult) Metric(kind BatchMetricKind) (float64, bool) {
	v, ok := r.metrics[kind]
	return v, ok
}

// HasMetric reports whether the batch carries the given metric kind.
func (r *BatchResult) HasMetric(kind BatchMetricKind) bool {
	_, ok := r.metrics[kind]
	return ok
}

// Metrics returns the metric map. Callers must treat it as read-only.
func (r *BatchResult) Metrics() map[BatchMetricKind]float64 { return r.metrics }

// LossIf returns the stored loss when its kind matches, and nil otherwise.
// Never an error: consumers probe with it without knowing the loss kind in
// advance.
func (r *BatchResult) LossIf(kind LossKind) *LossResult {
	if r.loss != nil && r.loss.Kind() == kind {
		return r.loss
	}
	return nil
}

// Labels returns the retained batch labels, nil unless output retention was
// enabled on the Logger.
func (r *BatchResult) Labels() map[data.LabelKind]*tensor.Tensor { return r.y }

// Predictions returns the retained batch predictions, nil unless output
// retention was enabled on the Logger.
func (r *BatchResult) Predictions() map[data.LabelKind]*tensor.Tensor { return r.yPred }

// EpochResult is the immutable aggregation of one epoch: the per-batch loss
// sequence in arrival order, the per-batch series of every batch metric, the
// epoch-metric scalars, and the total sample count.
type EpochResult struct {
	batchLosses  []*LossResult
	batchMetrics map[BatchMetricKind][]float64
	epochMetrics map[EpochMetricKind]float64
	epochSize    int
}

func NewEpochResult(batchLosses []*LossResult, batchMetrics map[BatchMetricKind][]float64, epochMetrics map[EpochMetricKind]float64, epochSize int) *EpochResult {
	if batchMetrics == nil {
		batchMetrics = map[BatchMetricKind][]float64{}
	}
	if epochMetrics == nil {
		epochMetrics = map[EpochMetricKind]float64{}
	}
	return &EpochResult{
		batchLosses:  batchLosses,
		batchMetrics: batchMetrics,
		epochMetrics: epochMetrics,
		epochSize:    epochSize,
	}
}

// BatchLosses returns the per-batch losses in arrival order.
func (r *EpochResult) BatchLosses() []*LossResult { return r.batchLosses }

// BatchMetricSeries returns one batch metric's per-batch values in arrival
// order; ok is false for kinds that were never registered.
func (r *EpochResult) BatchMetricSeries(kind BatchMetricKind) ([]float64, bool) {
	v, ok := r.batchMetrics[kind]
	return v, ok
}

// EpochMetric returns one aggregated epoch metric; ok is false for kinds that
// were never registered. An unknown kind is an absent value, not an error.
func (r *EpochResult) EpochMetric(kind EpochMetricKind) (float64, bool) {
	v, ok := r.epochMetrics[kind]
	return v, ok
}

// BatchMetrics returns the full per-batch metric map. Read-only by contract.
func (r *EpochResult) BatchMetrics() map[BatchMetricKind][]float64 { return r.batchMetrics }

// EpochMetrics returns the full epoch metric map. Read-only by contract.
func (r *EpochResult) EpochMetrics() map[EpochMetricKind]float64 { return r.epochMetrics }

// EpochSize is the total number of samples across the epoch's batches.
func (r *EpochResult) EpochSize() int { return r.epochSize }

// MeanLoss is the plain mean over the epoch's per-batch losses; each loss is
// already reduced over its batch. Stoppers and schedulers monitor it.
func (r *EpochResult) MeanLoss() float64 {
	if len(r.batchLosses) == 0 {
		return 0
	}
	var sum float64
	for _, l := range r.batchLosses {
		sum += l.Value()
	}
	return sum / float64(len(r.batchLosses))
}

// FitResult is the immutable aggregation of a whole training run, split by
// phase and re-indexed metric-major. It holds copies of the Logger's epoch
// history: the Logger may be discarded once FinishTraining returns.
type FitResult struct {
	batchTrainLosses       map[int][]*LossResult
	batchValidationLosses  map[int][]*LossResult
	batchTrainMetrics      map[BatchMetricKind]map[int][]float64
	batchValidationMetrics map[BatchMetricKind]map[int][]float64
	epochTrainMetrics      map[EpochMetricKind]map[int]float64
	epochValidationMetrics map[EpochMetricKind]map[int]float64
	numEpochs              int
	model                  Model
}

// FitResultConfig collects the pieces FinishTraining assembles.
type FitResultConfig struct {
	BatchTrainLosses       map[int][]*LossResult
	BatchValidationLosses  map[int][]*LossResult
	BatchTrainMetrics      map[BatchMetricKind]map[int][]float64
	BatchValidationMetrics map[BatchMetricKind]map[int][]float64
	EpochTrainMetrics      map[EpochMetricKind]map[int]float64
	EpochValidationMetrics map[EpochMetricKind]map[int]float64
	NumEpochs              int
	Model                  Model
}

func NewFitResult(cfg FitResultConfig) *FitResult {
	return &FitResult{
		batchTrainLosses:       cfg.BatchTrainLosses,
		batchValidationLosses:  cfg.BatchValidationLosses,
		batchTrainMetrics:      cfg.BatchTrainMetrics,
		batchValidationMetrics: cfg.BatchValidationMetrics,
		epochTrainMetrics:      cfg.EpochTrainMetrics,
		epochValidationMetrics: cfg.EpochValidationMetrics,
		numEpochs:              cfg.NumEpochs,
		model:                  cfg.Model,
	}
}

// BatchTrainLosses maps epoch number to that epoch's per-batch train losses.
func (r *FitResult) BatchTrainLosses() map[int][]*LossResult { return r.batchTrainLosses }

// BatchValidationLosses maps epoch number to per-batch validation losses.
func (r *FitResult) BatchValidationLosses() map[int][]*LossResult { return r.batchValidationLosses }

// BatchTrainMetric returns one metric's train series keyed by epoch number.
func (r *FitResult) BatchTrainMetric(kind BatchMetricKind) (map[int][]float64, bool) {
	v, ok := r.batchTrainMetrics[kind]
	return v, ok
}

// BatchValidationMetric returns one metric's validation series keyed by epoch
// number.
func (r *FitResult) BatchValidationMetric(kind BatchMetricKind) (map[int][]float64, bool) {
	v, ok := r.batchValidationMetrics[kind]
	return v, ok
}

// EpochTrainMetric returns one epoch metric's train scalars keyed by epoch
// number.
func (r *FitResult) EpochTrainMetric(kind EpochMetricKind) (map[int]float64, bool) {
	v, ok := r.epochTrainMetrics[kind]
	return v, ok
}

// EpochValidationMetric returns one epoch metric's validation scalars keyed
// by epoch number.
func (r *FitResult) EpochValidationMetric(kind EpochMetricKind) (map[int]float64, bool) {
	v, ok := r.epochValidationMetrics[kind]
	return v, ok
}

// NumEpochs is the Logger's epoch counter at the time the run finished: the
// last epoch number processed, not a recount of the history.
func (r *FitResult) NumEpochs() int { return r.numEpochs }

// Model is the trained model the run produced.
func (r *FitResult) Model() Model { return r.model }
