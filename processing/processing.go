// Package processing turns raw physiological signals into model-ready
// samples: signal transforms, feature extraction and label derivation, run
// as a pipeline over records.
package processing

import (
	"fmt"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// SignalProcessor transforms a signal into another signal of the same kind,
// for example by normalizing or filtering its channels.
type SignalProcessor interface {
	Process(sig *data.Signal) (*data.Signal, error)
	Name() string
}

// FeatureExtractor derives a feature tensor from a sample's signals. The
// extractor decides which signal kinds it reads; the map is read-only.
type FeatureExtractor interface {
	Extract(signals map[data.SignalKind]*data.Signal) (*tensor.Tensor, error)
	DataKind() data.DataKind
	Name() string
}

// Labeler derives label tensors from a sample's signals and metadata. Like an
// extractor, it picks the signal kinds it needs from the map.
type Labeler interface {
	Label(signals map[data.SignalKind]*data.Signal, metadata map[data.MetaKey]interface{}) (map[data.LabelKind]*tensor.Tensor, error)
	Name() string
}

// Pipeline applies signal processors to every signal of a sample, then runs
// each feature extractor and the labeler once over the processed signal set,
// producing a new sample with data and labels filled in. Inputs are never
// mutated.
type Pipeline struct {
	processors []SignalProcessor
	extractors []FeatureExtractor
	labeler    Labeler
}

// PipelineConfig assembles a pipeline. Any stage may be left empty.
type PipelineConfig struct {
	Processors []SignalProcessor
	Extractors []FeatureExtractor
	Labeler    Labeler
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		processors: cfg.Processors,
		extractors: cfg.Extractors,
		labeler:    cfg.Labeler,
	}
}

// Run pushes one sample through the pipeline.
func (p *Pipeline) Run(sample *data.Sample) (*data.Sample, error) {
	signals := make(map[data.SignalKind]*data.Signal, len(sample.Signals()))
	for kind, sig := range sample.Signals() {
		processed := sig
		for _, proc := range p.processors {
			next, err := proc.Process(processed)
			if err != nil {
				return nil, fmt.Errorf("processor %s on %s signal: %v", proc.Name(), kind, err)
			}
			processed = next
		}
		signals[kind] = processed
	}

	features := make(map[data.DataKind]*tensor.Tensor, len(sample.Data()))
	for kind, t := range sample.Data() {
		features[kind] = t
	}
	for _, ex := range p.extractors {
		t, err := ex.Extract(signals)
		if err != nil {
			return nil, fmt.Errorf("extractor %s: %v", ex.Name(), err)
		}
		features[ex.DataKind()] = t
	}

	labels := make(map[data.LabelKind]*tensor.Tensor, len(sample.Label()))
	for kind, t := range sample.Label() {
		labels[kind] = t
	}
	if p.labeler != nil {
		derived, err := p.labeler.Label(signals, sample.Metadata())
		if err != nil {
			return nil, fmt.Errorf("labeler %s: %v", p.labeler.Name(), err)
		}
		for lk, t := range derived {
			labels[lk] = t
		}
	}

	return sample.WithOverrides(data.SampleOverrides{
		Signals: signals,
		Data:    features,
		Label:   labels,
	}), nil
}

// RunAll maps Run over a slice of samples.
func (p *Pipeline) RunAll(samples []*data.Sample) ([]*data.Sample, error) {
	out := make([]*data.Sample, 0, len(samples))
	for i, s := range samples {
		processed, err := p.Run(s)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %v", i, err)
		}
		out = append(out, processed)
	}
	return out, nil
}
