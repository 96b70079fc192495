package training

import (
	"fmt"
	"sort"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// BatchMetricKind identifies a metric computed once per batch.
type BatchMetricKind int

const (
	BatchAccuracy BatchMetricKind = iota
	BatchNumCorrect
	BatchTruePositive
	BatchTrueNegative
	BatchFalsePositive
	BatchFalseNegative
	BatchPPV
	BatchSensitivity
	BatchSpecificity
	BatchF1
	BatchAUROC
)

func (k BatchMetricKind) String() string {
	switch k {
	case BatchAccuracy:
		return "Accuracy"
	case BatchNumCorrect:
		return "NumCorrect"
	case BatchTruePositive:
		return "TruePositive"
	case BatchTrueNegative:
		return "TrueNegative"
	case BatchFalsePositive:
		return "FalsePositive"
	case BatchFalseNegative:
		return "FalseNegative"
	case BatchPPV:
		return "PPV"
	case BatchSensitivity:
		return "Sensitivity"
	case BatchSpecificity:
		return "Specificity"
	case BatchF1:
		return "F1"
	case BatchAUROC:
		return "AUROC"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// EpochMetricKind identifies a metric aggregated from a whole epoch's batches.
type EpochMetricKind int

const (
	EpochAccuracy EpochMetricKind = iota
	EpochPPV
	EpochSensitivity
	EpochSpecificity
	EpochF1
	EpochAUROC
)

func (k EpochMetricKind) String() string {
	switch k {
	case EpochAccuracy:
		return "Accuracy"
	case EpochPPV:
		return "PPV"
	case EpochSensitivity:
		return "Sensitivity"
	case EpochSpecificity:
		return "Specificity"
	case EpochF1:
		return "F1"
	case EpochAUROC:
		return "AUROC"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// BatchMetric computes one scalar from a batch's label and prediction maps.
// Implementations must be pure: evaluation order across metrics is
// unconstrained and must not matter.
type BatchMetric interface {
	Compute(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error)
	Kind() BatchMetricKind
}

// EpochMetric aggregates a completed epoch's batch results into one scalar.
// RequiredBatchMetrics names the batch-metric kinds the aggregation depends
// on; FinishEpoch fails hard when any of them is absent from any batch.
type EpochMetric interface {
	Compute(batches []*BatchResult) (float64, error)
	Kind() EpochMetricKind
	RequiredBatchMetrics() []BatchMetricKind
}

// binaryCounts thresholds the predictions for one label kind and tallies the
// confusion counts against the targets.
func binaryCounts(y, yPred map[data.LabelKind]*tensor.Tensor, label data.LabelKind, threshold float64) (tp, tn, fp, fn int, err error) {
	target, ok := y[label]
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("labels have no %s entry", label)
	}
	pred, ok := yPred[label]
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("predictions have no %s entry", label)
	}
	if target.NumElems != pred.NumElems {
		return 0, 0, 0, 0, fmt.Errorf("%s: %d targets vs %d predictions", label, target.NumElems, pred.NumElems)
	}

	t, p := target.Float64s(), pred.Float64s()
	for i := range t {
		positive := p[i] > threshold
		truth := t[i] > 0.5
		switch {
		case positive && truth:
			tp++
		case positive && !truth:
			fp++
		case !positive && truth:
			fn++
		default:
			tn++
		}
	}
	return tp, tn, fp, fn, nil
}

const defaultThreshold = 0.5

// BinaryMetric evaluates one binary-classification batch metric for a single
// label kind, thresholding prediction scores at Threshold.
type BinaryMetric struct {
	kind      BatchMetricKind
	Label     data.LabelKind
	Threshold float64
}

// NewBinaryMetric builds a thresholded binary metric of the given kind.
// Supported kinds: accuracy, the five confusion counts, PPV, sensitivity,
// specificity and F1.
func NewBinaryMetric(kind BatchMetricKind, label data.LabelKind) *BinaryMetric {
	return &BinaryMetric{kind: kind, Label: label, Threshold: defaultThreshold}
}

func (m *BinaryMetric) Kind() BatchMetricKind { return m.kind }

func (m *BinaryMetric) Compute(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error) {
	tp, tn, fp, fn, err := binaryCounts(y, yPred, m.Label, m.Threshold)
	if err != nil {
		return 0, err
	}

	total := tp + tn + fp + fn

	switch m.kind {
	case BatchAccuracy:
		if total == 0 {
			return 0, nil
		}
		return float64(tp+tn) / float64(total), nil
	case BatchNumCorrect:
		return float64(tp + tn), nil
	case BatchTruePositive:
		return float64(tp), nil
	case BatchTrueNegative:
		return float64(tn), nil
	case BatchFalsePositive:
		return float64(fp), nil
	case BatchFalseNegative:
		return float64(fn), nil
	case BatchPPV:
		return safeRatio(float64(tp), float64(tp+fp)), nil
	case BatchSensitivity:
		return safeRatio(float64(tp), float64(tp+fn)), nil
	case BatchSpecificity:
		return safeRatio(float64(tn), float64(tn+fp)), nil
	case BatchF1:
		ppv := safeRatio(float64(tp), float64(tp+fp))
		sens := safeRatio(float64(tp), float64(tp+fn))
		return safeRatio(2*ppv*sens, ppv+sens), nil
	default:
		return 0, fmt.Errorf("kind %s is not a binary batch metric", m.kind)
	}
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// AUROCMetric computes the area under the ROC curve over one batch's raw
// prediction scores for a single label kind.
type AUROCMetric struct {
	Label data.LabelKind
}

func NewAUROCMetric(label data.LabelKind) *AUROCMetric {
	return &AUROCMetric{Label: label}
}

func (m *AUROCMetric) Kind() BatchMetricKind { return BatchAUROC }

func (m *AUROCMetric) Compute(y, yPred map[data.LabelKind]*tensor.Tensor) (float64, error) {
	target, ok := y[m.Label]
	if !ok {
		return 0, fmt.Errorf("labels have no %s entry", m.Label)
	}
	pred, ok := yPred[m.Label]
	if !ok {
		return 0, fmt.Errorf("predictions have no %s entry", m.Label)
	}
	if target.NumElems != pred.NumElems {
		return 0, fmt.Errorf("%s: %d targets vs %d predictions", m.Label, target.NumElems, pred.NumElems)
	}

	truth := target.Float64s()
	positives := make([]bool, len(truth))
	for i, v := range truth {
		positives[i] = v > 0.5
	}

	return aucROC(pred.Float64s(), positives), nil
}

// aucROC computes the area under the ROC curve with the trapezoidal rule over
// scores sorted in descending order. Returns 0 when only one class is
// present.
func aucROC(scores []float64, positives []bool) float64 {
	type pair struct {
		score    float64
		positive bool
	}

	pairs := make([]pair, len(scores))
	totalPos, totalNeg := 0, 0
	for i, s := range scores {
		pairs[i] = pair{score: s, positive: positives[i]}
		if positives[i] {
			totalPos++
		} else {
			totalNeg++
		}
	}

	if totalPos == 0 || totalNeg == 0 {
		return 0
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	var auc, prevTPR, prevFPR float64
	tp, fp := 0, 0
	for _, p := range pairs {
		if p.positive {
			tp++
		} else {
			fp++
		}

		tpr := float64(tp) / float64(totalPos)
		fpr := float64(fp) / float64(totalNeg)
		auc += (fpr - prevFPR) * (tpr + prevTPR) / 2
		prevTPR, prevFPR = tpr, fpr
	}

	return auc
}
