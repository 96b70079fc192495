package training

// The Logger accumulates epoch-major: epoch number → EpochResult. FitResult
// consumers want metric-major: metric kind → epoch number → values. These
// helpers perform that re-indexing and are tested independently of the
// Logger's accumulation.

// transposeBatchMetrics re-indexes per-batch metric series from epoch-major
// to metric-major. Every kind gets an entry even when no epochs ran.
func transposeBatchMetrics(epochs map[int]*EpochResult, kinds []BatchMetricKind) map[BatchMetricKind]map[int][]float64 {
	out := make(map[BatchMetricKind]map[int][]float64, len(kinds))
	for _, kind := range kinds {
		out[kind] = map[int][]float64{}
	}

	for epoch, res := range epochs {
		for _, kind := range kinds {
			if series, ok := res.BatchMetricSeries(kind); ok {
				out[kind][epoch] = series
			}
		}
	}

	return out
}

// transposeEpochMetrics re-indexes epoch-metric scalars from epoch-major to
// metric-major. Every kind gets an entry even when no epochs ran.
func transposeEpochMetrics(epochs map[int]*EpochResult, kinds []EpochMetricKind) map[EpochMetricKind]map[int]float64 {
	out := make(map[EpochMetricKind]map[int]float64, len(kinds))
	for _, kind := range kinds {
		out[kind] = map[int]float64{}
	}

	for epoch, res := range epochs {
		for _, kind := range kinds {
			if v, ok := res.EpochMetric(kind); ok {
				out[kind][epoch] = v
			}
		}
	}

	return out
}

// collectBatchLosses copies the per-batch loss sequences out of the epoch
// history, keyed by epoch number.
func collectBatchLosses(epochs map[int]*EpochResult) map[int][]*LossResult {
	out := make(map[int][]*LossResult, len(epochs))
	for epoch, res := range epochs {
		out[epoch] = res.BatchLosses()
	}
	return out
}
