package training

import (
	"fmt"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/stat"

	"github.com/openphysio/biolearn/data"
)

// CountRatioMetric aggregates an epoch by summing confusion counts across all
// batches and forming the ratio at the end. This is exact, unlike averaging
// per-batch ratios, because small batches no longer get equal say.
type CountRatioMetric struct {
	kind EpochMetricKind
}

// NewCountRatioMetric builds the exact epoch aggregation for accuracy, PPV,
// sensitivity, specificity or F1.
func NewCountRatioMetric(kind EpochMetricKind) *CountRatioMetric {
	return &CountRatioMetric{kind: kind}
}

func (m *CountRatioMetric) Kind() EpochMetricKind { return m.kind }

func (m *CountRatioMetric) RequiredBatchMetrics() []BatchMetricKind {
	switch m.kind {
	case EpochAccuracy:
		return []BatchMetricKind{BatchNumCorrect}
	case EpochPPV:
		return []BatchMetricKind{BatchTruePositive, BatchFalsePositive}
	case EpochSensitivity:
		return []BatchMetricKind{BatchTruePositive, BatchFalseNegative}
	case EpochSpecificity:
		return []BatchMetricKind{BatchTrueNegative, BatchFalsePositive}
	case EpochF1:
		return []BatchMetricKind{BatchTruePositive, BatchFalsePositive, BatchFalseNegative}
	default:
		return nil
	}
}

func (m *CountRatioMetric) Compute(batches []*BatchResult) (float64, error) {
	sum := func(kind BatchMetricKind) float64 {
		var total float64
		for _, b := range batches {
			v, _ := b.Metric(kind)
			total += v
		}
		return total
	}

	switch m.kind {
	case EpochAccuracy:
		var size int
		for _, b := range batches {
			size += b.BatchSize()
		}
		return safeRatio(sum(BatchNumCorrect), float64(size)), nil
	case EpochPPV:
		tp := sum(BatchTruePositive)
		return safeRatio(tp, tp+sum(BatchFalsePositive)), nil
	case EpochSensitivity:
		tp := sum(BatchTruePositive)
		return safeRatio(tp, tp+sum(BatchFalseNegative)), nil
	case EpochSpecificity:
		tn := sum(BatchTrueNegative)
		return safeRatio(tn, tn+sum(BatchFalsePositive)), nil
	case EpochF1:
		tp := sum(BatchTruePositive)
		ppv := safeRatio(tp, tp+sum(BatchFalsePositive))
		sens := safeRatio(tp, tp+sum(BatchFalseNegative))
		return safeRatio(2*ppv*sens, ppv+sens), nil
	default:
		return 0, fmt.Errorf("kind %s is not a count-ratio epoch metric", m.kind)
	}
}

// WeightedMeanMetric aggregates one batch metric's per-batch values into a
// batch-size weighted mean.
type WeightedMeanMetric struct {
	kind   EpochMetricKind
	source BatchMetricKind
}

// NewWeightedMeanMetric reports kind as the size-weighted mean of the source
// batch metric.
func NewWeightedMeanMetric(kind EpochMetricKind, source BatchMetricKind) *WeightedMeanMetric {
	return &WeightedMeanMetric{kind: kind, source: source}
}

func (m *WeightedMeanMetric) Kind() EpochMetricKind { return m.kind }

func (m *WeightedMeanMetric) RequiredBatchMetrics() []BatchMetricKind {
	return []BatchMetricKind{m.source}
}

func (m *WeightedMeanMetric) Compute(batches []*BatchResult) (float64, error) {
	if len(batches) == 0 {
		return 0, nil
	}

	values := make([]float64, len(batches))
	weights := make([]float64, len(batches))
	for i, b := range batches {
		v, _ := b.Metric(m.source)
		values[i] = v
		weights[i] = float64(b.BatchSize())
	}

	return stat.Mean(values, weights), nil
}

// PooledAUROCMetric computes the area under the ROC curve over the pooled
// predictions of the whole epoch. It reads the retained batch outputs, so the
// Logger must run with output retention enabled.
type PooledAUROCMetric struct {
	Label data.LabelKind
}

func NewPooledAUROCMetric(label data.LabelKind) *PooledAUROCMetric {
	return &PooledAUROCMetric{Label: label}
}

func (m *PooledAUROCMetric) Kind() EpochMetricKind { return EpochAUROC }

func (m *PooledAUROCMetric) RequiredBatchMetrics() []BatchMetricKind { return nil }

func (m *PooledAUROCMetric) Compute(batches []*BatchResult) (float64, error) {
	var scores []float64
	var positives []bool

	for i, b := range batches {
		y, yPred := b.Labels(), b.Predictions()
		if y == nil || yPred == nil {
			return 0, xerrors.Errorf("pooled AUROC over batch %d: %w", i, ErrMissingOutputs)
		}

		target, ok := y[m.Label]
		if !ok {
			return 0, fmt.Errorf("batch %d labels have no %s entry", i, m.Label)
		}
		pred, ok := yPred[m.Label]
		if !ok {
			return 0, fmt.Errorf("batch %d predictions have no %s entry", i, m.Label)
		}

		for _, v := range target.Float64s() {
			positives = append(positives, v > 0.5)
		}
		scores = append(scores, pred.Float64s()...)
	}

	if len(scores) != len(positives) {
		return 0, fmt.Errorf("pooled %d scores against %d targets", len(scores), len(positives))
	}

	return aucROC(scores, positives), nil
}
