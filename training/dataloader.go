package training

import (
	"fmt"
	"math/rand"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// Dataset is an indexable collection of samples. Implementations load or
// window records however they like; the loader only needs random access.
type Dataset interface {
	Len() int
	Get(idx int) (*data.Sample, error)
}

// Batch is one collated step of training data: inputs keyed by data kind and
// targets keyed by label kind, each stacked along a new leading dimension.
type Batch struct {
	Inputs map[data.DataKind]*tensor.Tensor
	Labels map[data.LabelKind]*tensor.Tensor
	Size   int
}

// DataLoader batches and optionally shuffles a dataset. One pass over the
// loader is one epoch.
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
}

// NewDataLoader creates a loader. Batch size is clamped to at least 1. A nil
// rng leaves the package-level source in charge of shuffles.
func NewDataLoader(dataset Dataset, batchSize int, shuffle bool, rng *rand.Rand) *DataLoader {
	if batchSize <= 0 {
		batchSize = 1
	}

	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}

	return &DataLoader{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
		indices:   indices,
	}
}

// Len is the number of batches per epoch.
func (dl *DataLoader) Len() int {
	return (dl.dataset.Len() + dl.batchSize - 1) / dl.batchSize
}

// Reset rewinds the loader for a new epoch, reshuffling when enabled.
func (dl *DataLoader) Reset() {
	dl.position = 0
	if !dl.shuffle {
		return
	}

	swap := func(i, j int) { dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i] }
	if dl.rng != nil {
		dl.rng.Shuffle(len(dl.indices), swap)
	} else {
		rand.Shuffle(len(dl.indices), swap)
	}
}

// HasNext reports whether the current epoch has batches left.
func (dl *DataLoader) HasNext() bool {
	return dl.position < len(dl.indices)
}

// Next returns the next batch, or nil at the end of the epoch.
func (dl *DataLoader) Next() (*Batch, error) {
	if dl.position >= len(dl.indices) {
		return nil, nil
	}

	end := dl.position + dl.batchSize
	if end > len(dl.indices) {
		end = len(dl.indices)
	}
	batchIndices := dl.indices[dl.position:end]
	dl.position = end

	return dl.collate(batchIndices)
}

// collate stacks the samples' data and label tensors into batch tensors.
// Every sample in a batch must carry the same data and label kinds with the
// same shapes.
func (dl *DataLoader) collate(indices []int) (*Batch, error) {
	inputParts := map[data.DataKind][]*tensor.Tensor{}
	labelParts := map[data.LabelKind][]*tensor.Tensor{}

	for n, idx := range indices {
		sample, err := dl.dataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("loading sample %d: %v", idx, err)
		}

		for kind, t := range sample.Data() {
			inputParts[kind] = append(inputParts[kind], t)
		}
		for kind, t := range sample.Label() {
			labelParts[kind] = append(labelParts[kind], t)
		}

		for kind, parts := range inputParts {
			if len(parts) != n+1 {
				return nil, fmt.Errorf("sample %d is missing data kind %s", idx, kind)
			}
		}
		for kind, parts := range labelParts {
			if len(parts) != n+1 {
				return nil, fmt.Errorf("sample %d is missing label kind %s", idx, kind)
			}
		}
	}

	inputs := make(map[data.DataKind]*tensor.Tensor, len(inputParts))
	for kind, parts := range inputParts {
		stacked, err := tensor.Stack(parts)
		if err != nil {
			return nil, fmt.Errorf("collating data kind %s: %v", kind, err)
		}
		inputs[kind] = stacked
	}

	labels := make(map[data.LabelKind]*tensor.Tensor, len(labelParts))
	for kind, parts := range labelParts {
		stacked, err := tensor.Stack(parts)
		if err != nil {
			return nil, fmt.Errorf("collating label kind %s: %v", kind, err)
		}
		labels[kind] = stacked
	}

	return &Batch{Inputs: inputs, Labels: labels, Size: len(indices)}, nil
}

// SampleDataset is the trivial in-memory Dataset over a slice of samples.
type SampleDataset struct {
	samples []*data.Sample
}

func NewSampleDataset(samples []*data.Sample) *SampleDataset {
	return &SampleDataset{samples: samples}
}

func (ds *SampleDataset) Len() int { return len(ds.samples) }

func (ds *SampleDataset) Get(idx int) (*data.Sample, error) {
	if idx < 0 || idx >= len(ds.samples) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.samples))
	}
	return ds.samples[idx], nil
}
