package training

import (
	"testing"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// constModel predicts the same score for every sample and counts its phase
// switches. It does not implement BackpropModel, so the trainer evaluates it
// without updating anything.
type constModel struct {
	score      float32
	trainCalls int
	evalCalls  int
}

func (m *constModel) Forward(x map[data.DataKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error) {
	features := x[data.Features]
	batch := features.Shape[0]

	out := make([]float32, batch)
	for i := range out {
		out[i] = m.score
	}
	return map[data.LabelKind]*tensor.Tensor{
		data.Target: tensor.FromFloat32([]int{batch, 1}, out),
	}, nil
}

func (m *constModel) Train() { m.trainCalls++ }
func (m *constModel) Eval()  { m.evalCalls++ }

func newFitTrainer() (*ModelTrainer, *constModel) {
	model := &constModel{score: 0.8}
	logger := NewLogger(LoggerConfig{
		BatchMetrics: []BatchMetric{NewBinaryMetric(BatchNumCorrect, data.Target)},
		EpochMetrics: []EpochMetric{NewCountRatioMetric(EpochAccuracy)},
	})
	return NewModelTrainer(model, nil, NewMSELoss(), logger), model
}

func TestFitRunsConfiguredEpochs(t *testing.T) {
	trainer, model := newFitTrainer()
	train := NewDataLoader(NewSampleDataset(makeSamples(6)), 2, false, nil)
	validation := NewDataLoader(NewSampleDataset(makeSamples(4)), 2, false, nil)

	result, err := trainer.Fit(train, validation, FitConfig{
		MaxEpochs:     3,
		ValidateEvery: 1,
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if result.NumEpochs() != 3 {
		t.Errorf("fit ran %d epochs, want 3", result.NumEpochs())
	}
	if len(result.BatchTrainLosses()) != 3 {
		t.Errorf("train history covers %d epochs, want 3", len(result.BatchTrainLosses()))
	}
	if len(result.BatchValidationLosses()) != 3 {
		t.Errorf("validation history covers %d epochs, want 3", len(result.BatchValidationLosses()))
	}

	// Train and validation epochs share the same epoch numbers.
	for epoch := 1; epoch <= 3; epoch++ {
		if _, ok := result.BatchTrainLosses()[epoch]; !ok {
			t.Errorf("no train losses for epoch %d", epoch)
		}
		if _, ok := result.BatchValidationLosses()[epoch]; !ok {
			t.Errorf("no validation losses for epoch %d", epoch)
		}
	}

	if model.trainCalls != 3 || model.evalCalls != 3 {
		t.Errorf("model saw %d train / %d eval switches, want 3/3", model.trainCalls, model.evalCalls)
	}
}

func TestFitValidateEvery(t *testing.T) {
	trainer, _ := newFitTrainer()
	train := NewDataLoader(NewSampleDataset(makeSamples(4)), 2, false, nil)
	validation := NewDataLoader(NewSampleDataset(makeSamples(4)), 2, false, nil)

	result, err := trainer.Fit(train, validation, FitConfig{
		MaxEpochs:     4,
		ValidateEvery: 2,
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	valLosses := result.BatchValidationLosses()
	if len(valLosses) != 2 {
		t.Fatalf("validation ran %d times, want 2", len(valLosses))
	}
	for _, epoch := range []int{2, 4} {
		if _, ok := valLosses[epoch]; !ok {
			t.Errorf("no validation record for epoch %d", epoch)
		}
	}
}

func TestFitStopperHalts(t *testing.T) {
	trainer, _ := newFitTrainer()
	train := NewDataLoader(NewSampleDataset(makeSamples(4)), 2, false, nil)

	result, err := trainer.Fit(train, nil, FitConfig{
		MaxEpochs: 10,
		Stoppers:  []Stopper{NewMaxEpochsStopper(2)},
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if result.NumEpochs() != 2 {
		t.Errorf("stopper let the run go %d epochs, want 2", result.NumEpochs())
	}
}

type countingCallback struct {
	calls int
}

func (c *countingCallback) Kind() CallbackKind { return CallbackLossPlot }
func (c *countingCallback) OnEpochEnd(t Trainer, trainResult, validationResult *EpochResult) error {
	c.calls++
	return nil
}

func TestFitRunsCallbacks(t *testing.T) {
	trainer, _ := newFitTrainer()
	train := NewDataLoader(NewSampleDataset(makeSamples(4)), 2, false, nil)

	cb := &countingCallback{}
	if _, err := trainer.Fit(train, nil, FitConfig{MaxEpochs: 3, Callbacks: []Callback{cb}}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if cb.calls != 3 {
		t.Errorf("callback ran %d times, want 3", cb.calls)
	}
}

func TestFitUnboundedRunRejected(t *testing.T) {
	trainer, _ := newFitTrainer()
	train := NewDataLoader(NewSampleDataset(makeSamples(2)), 2, false, nil)

	if _, err := trainer.Fit(train, nil, FitConfig{}); err == nil {
		t.Error("expected error for a run with no epoch bound")
	}
}

func TestFitPrintEvery(t *testing.T) {
	trainer, _ := newFitTrainer()
	// 3 batches per epoch with a redraw every 2nd batch.
	train := NewDataLoader(NewSampleDataset(makeSamples(6)), 2, false, nil)

	result, err := trainer.Fit(train, nil, FitConfig{
		MaxEpochs:  2,
		PrintEvery: 2,
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Progress output must not change what gets logged.
	if result.NumEpochs() != 2 {
		t.Errorf("fit ran %d epochs, want 2", result.NumEpochs())
	}
	for epoch := 1; epoch <= 2; epoch++ {
		if losses := result.BatchTrainLosses()[epoch]; len(losses) != 3 {
			t.Errorf("epoch %d logged %d batches, want 3", epoch, len(losses))
		}
	}
}

func TestTrainBatchUpdatesParameters(t *testing.T) {
	// One scalar weight, identity forward: pred = w for every sample.
	model := newScalarModel(0)
	logger := NewLogger(LoggerConfig{})
	opt := NewSGD(model, 0.5, 0)
	trainer := NewModelTrainer(model, opt, NewMSELoss(), logger)

	if err := logger.StartEpoch(true, false, 1); err != nil {
		t.Fatalf("StartEpoch failed: %v", err)
	}

	batch := &Batch{
		Inputs: map[data.DataKind]*tensor.Tensor{
			data.Features: tensor.FromFloat32([]int{1, 1}, []float32{1}),
		},
		Labels: map[data.LabelKind]*tensor.Tensor{
			data.Target: tensor.FromFloat32([]int{1}, []float32{1}),
		},
		Size: 1,
	}

	result, err := trainer.TrainBatch(batch)
	if err != nil {
		t.Fatalf("TrainBatch failed: %v", err)
	}

	// MSE at w=0 against target 1 is 1.
	if result.Loss().Value() != 1 {
		t.Errorf("loss is %f, want 1", result.Loss().Value())
	}
	// Gradient is 2(w-1) = -2, so w moves to 0 - 0.5*(-2) = 1.
	if got := model.weight(); got != 1 {
		t.Errorf("weight is %f after one step, want 1", got)
	}
}

// scalarModel is a single-weight model whose prediction is the weight itself.
// Its parameter and gradient tensors are stable across calls so the optimizer
// updates stick.
type scalarModel struct {
	params *tensor.Tensor
	grads  *tensor.Tensor
}

func newScalarModel(weight float32) *scalarModel {
	return &scalarModel{
		params: tensor.FromFloat32([]int{1}, []float32{weight}),
		grads:  tensor.FromFloat32([]int{1}, []float32{0}),
	}
}

func (m *scalarModel) weight() float32 { return m.params.Float32s()[0] }

func (m *scalarModel) Forward(x map[data.DataKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error) {
	return map[data.LabelKind]*tensor.Tensor{
		data.Target: tensor.FromFloat32([]int{1}, []float32{m.weight()}),
	}, nil
}

func (m *scalarModel) Train() {}
func (m *scalarModel) Eval()  {}

func (m *scalarModel) Backward(grad map[data.LabelKind]*tensor.Tensor) error {
	m.grads.Float32s()[0] = grad[data.Target].Float32s()[0]
	return nil
}

func (m *scalarModel) Parameters() []*tensor.Tensor { return []*tensor.Tensor{m.params} }

func (m *scalarModel) Gradients() []*tensor.Tensor { return []*tensor.Tensor{m.grads} }
