package training

import (
	"golang.org/x/xerrors"
)

// The four failure kinds of the training core. All of them are programmer or
// configuration mistakes: they propagate to the caller immediately and are
// never retried. Call sites wrap them with xerrors.Errorf and test with
// errors.Is.
var (
	// ErrEpochPhase is returned by StartEpoch when an epoch is marked as
	// both training and validation, or as neither.
	ErrEpochPhase = xerrors.New("epoch must be exactly one of training or validation")

	// ErrLoggerMode is returned by FinishEpoch when the logger's mode is
	// neither training nor validation. Unreachable through the public API.
	ErrLoggerMode = xerrors.New("logger mode is neither training nor validation")

	// ErrMissingBatchMetric is returned by FinishEpoch when an epoch metric
	// requires a batch-metric kind that some buffered batch never computed.
	ErrMissingBatchMetric = xerrors.New("required batch metric missing from a batch")

	// ErrNoOutputSaver is returned by NewBatch when output retention is
	// enabled without an OutputSaver collaborator to store the outputs.
	ErrNoOutputSaver = xerrors.New("output retention requires an OutputSaver")

	// ErrMissingOutputs is returned by epoch metrics that pool retained
	// model outputs when a batch was buffered without them.
	ErrMissingOutputs = xerrors.New("batch outputs were not retained")
)
