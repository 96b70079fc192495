package training

import (
	"fmt"
	"math"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// LossKind tags the kind of loss a LossResult carries.
type LossKind int

const (
	LossMSE LossKind = iota
	LossBCE
	LossCrossEntropy
	LossRaw
)

func (k LossKind) String() string {
	switch k {
	case LossMSE:
		return "MSE"
	case LossBCE:
		return "BCE"
	case LossCrossEntropy:
		return "CrossEntropy"
	case LossRaw:
		return "Raw"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// LossResult is the immutable scalar outcome of one batch's loss computation.
// Produced once per batch by the loss function, buffered by the Logger and
// ultimately stored keyed by epoch in the FitResult.
type LossResult struct {
	kind  LossKind
	value float64
}

func NewLossResult(kind LossKind, value float64) *LossResult {
	return &LossResult{kind: kind, value: value}
}

func (r *LossResult) Kind() LossKind { return r.kind }
func (r *LossResult) Value() float64 { return r.value }

func (r *LossResult) String() string {
	return fmt.Sprintf("%s=%.6f", r.kind, r.value)
}

// LossFunc computes a scalar loss and its gradient from label-keyed tensor
// maps. Forward and Backward must be pure with respect to everything but
// their arguments.
type LossFunc interface {
	Forward(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error)
	Backward(y, yPred map[data.LabelKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error)
	Kind() LossKind
}

// Result wraps a scalar produced by fn into the LossResult of fn's kind.
func Result(fn LossFunc, value float64) *LossResult {
	return NewLossResult(fn.Kind(), value)
}

func matchedPair(y, yPred map[data.LabelKind]*tensor.Tensor, kind data.LabelKind) (*tensor.Tensor, *tensor.Tensor, error) {
	target, ok := y[kind]
	if !ok {
		return nil, nil, fmt.Errorf("labels have no %s entry", kind)
	}
	pred, ok := yPred[kind]
	if !ok {
		return nil, nil, fmt.Errorf("predictions have no %s entry", kind)
	}
	return target, pred, nil
}

// MSELoss is mean squared error over every label kind present in the target
// map. Predictions and targets must be equal-shaped Float32 tensors.
type MSELoss struct{}

func NewMSELoss() *MSELoss { return &MSELoss{} }

func (l *MSELoss) Kind() LossKind { return LossMSE }

func (l *MSELoss) Forward(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error) {
	var sum float64
	var n int

	for kind := range y {
		target, pred, err := matchedPair(y, yPred, kind)
		if err != nil {
			return 0, err
		}
		if !target.SameShape(pred) {
			return 0, fmt.Errorf("%s: target shape %v does not match prediction shape %v", kind, target.Shape, pred.Shape)
		}

		t, p := target.Float32s(), pred.Float32s()
		for i := range t {
			d := float64(p[i] - t[i])
			sum += d * d
		}
		n += target.NumElems
	}

	if n == 0 {
		return 0, fmt.Errorf("no label entries to compute MSE over")
	}
	return sum / float64(n), nil
}

func (l *MSELoss) Backward(y, yPred map[data.LabelKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error) {
	grads := make(map[data.LabelKind]*tensor.Tensor, len(y))

	for kind := range y {
		target, pred, err := matchedPair(y, yPred, kind)
		if err != nil {
			return nil, err
		}

		t, p := target.Float32s(), pred.Float32s()
		g := make([]float32, len(t))
		scale := 2.0 / float32(len(t))
		for i := range t {
			g[i] = scale * (p[i] - t[i])
		}

		grad, err := tensor.NewTensor(pred.Shape, tensor.Float32, g)
		if err != nil {
			return nil, err
		}
		grads[kind] = grad
	}

	return grads, nil
}

// BCELoss is binary cross entropy over probabilities in (0,1). Targets are
// Float32 tensors of zeros and ones with the same shape as the predictions.
type BCELoss struct{}

func NewBCELoss() *BCELoss { return &BCELoss{} }

func (l *BCELoss) Kind() LossKind { return LossBCE }

const bceEpsilon = 1e-7

func (l *BCELoss) Forward(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error) {
	var sum float64
	var n int

	for kind := range y {
		target, pred, err := matchedPair(y, yPred, kind)
		if err != nil {
			return 0, err
		}
		if !target.SameShape(pred) {
			return 0, fmt.Errorf("%s: target shape %v does not match prediction shape %v", kind, target.Shape, pred.Shape)
		}

		t, p := target.Float32s(), pred.Float32s()
		for i := range t {
			prob := clamp(float64(p[i]), bceEpsilon, 1-bceEpsilon)
			sum -= float64(t[i])*math.Log(prob) + (1-float64(t[i]))*math.Log(1-prob)
		}
		n += target.NumElems
	}

	if n == 0 {
		return 0, fmt.Errorf("no label entries to compute BCE over")
	}
	return sum / float64(n), nil
}

func (l *BCELoss) Backward(y, yPred map[data.LabelKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error) {
	grads := make(map[data.LabelKind]*tensor.Tensor, len(y))

	for kind := range y {
		target, pred, err := matchedPair(y, yPred, kind)
		if err != nil {
			return nil, err
		}

		t, p := target.Float32s(), pred.Float32s()
		g := make([]float32, len(t))
		scale := 1.0 / float64(len(t))
		for i := range t {
			prob := clamp(float64(p[i]), bceEpsilon, 1-bceEpsilon)
			g[i] = float32(scale * (prob - float64(t[i])) / (prob * (1 - prob)))
		}

		grad, err := tensor.NewTensor(pred.Shape, tensor.Float32, g)
		if err != nil {
			return nil, err
		}
		grads[kind] = grad
	}

	return grads, nil
}

// CrossEntropyLoss is softmax cross entropy for multi-class outputs.
// Predictions are Float32 logits of shape [batch, classes]; targets are Int32
// class indices of shape [batch].
type CrossEntropyLoss struct{}

func NewCrossEntropyLoss() *CrossEntropyLoss { return &CrossEntropyLoss{} }

func (l *CrossEntropyLoss) Kind() LossKind { return LossCrossEntropy }

func (l *CrossEntropyLoss) Forward(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error) {
	var sum float64
	var rows int

	for kind := range y {
		target, pred, err := matchedPair(y, yPred, kind)
		if err != nil {
			return 0, err
		}

		probs, batch, classes, err := softmaxRows(pred)
		if err != nil {
			return 0, fmt.Errorf("%s: %v", kind, err)
		}

		idx := target.Int32s()
		if len(idx) != batch {
			return 0, fmt.Errorf("%s: %d targets for %d prediction rows", kind, len(idx), batch)
		}

		for i := 0; i < batch; i++ {
			cls := int(idx[i])
			if cls < 0 || cls >= classes {
				return 0, fmt.Errorf("%s: target class %d out of range [0, %d)", kind, cls, classes)
			}
			prob := math.Max(float64(probs[i*classes+cls]), 1e-10)
			sum -= math.Log(prob)
		}
		rows += batch
	}

	if rows == 0 {
		return 0, fmt.Errorf("no label entries to compute cross entropy over")
	}
	return sum / float64(rows), nil
}

func (l *CrossEntropyLoss) Backward(y, yPred map[data.LabelKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error) {
	grads := make(map[data.LabelKind]*tensor.Tensor, len(y))

	for kind := range y {
		target, pred, err := matchedPair(y, yPred, kind)
		if err != nil {
			return nil, err
		}

		probs, batch, classes, err := softmaxRows(pred)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", kind, err)
		}

		idx := target.Int32s()
		scale := 1.0 / float32(batch)
		for i := 0; i < batch; i++ {
			cls := int(idx[i])
			if cls < 0 || cls >= classes {
				return nil, fmt.Errorf("%s: target class %d out of range [0, %d)", kind, cls, classes)
			}
			probs[i*classes+cls] -= 1.0
		}
		for i := range probs {
			probs[i] *= scale
		}

		grad, err := tensor.NewTensor(pred.Shape, tensor.Float32, probs)
		if err != nil {
			return nil, err
		}
		grads[kind] = grad
	}

	return grads, nil
}

// softmaxRows applies a numerically stable softmax to every row of a
// [batch, classes] logits tensor and returns the probabilities as a fresh
// slice.
func softmaxRows(logits *tensor.Tensor) ([]float32, int, int, error) {
	if logits.DType != tensor.Float32 || len(logits.Shape) != 2 {
		return nil, 0, 0, fmt.Errorf("logits must be a 2D Float32 tensor, got %s", logits)
	}

	batch, classes := logits.Shape[0], logits.Shape[1]
	in := logits.Float32s()
	out := make([]float32, len(in))

	for i := 0; i < batch; i++ {
		offset := i * classes

		maxVal := in[offset]
		for j := 1; j < classes; j++ {
			if in[offset+j] > maxVal {
				maxVal = in[offset+j]
			}
		}

		var sum float32
		for j := 0; j < classes; j++ {
			e := float32(math.Exp(float64(in[offset+j] - maxVal)))
			out[offset+j] = e
			sum += e
		}
		for j := 0; j < classes; j++ {
			out[offset+j] /= sum
		}
	}

	return out, batch, classes, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
