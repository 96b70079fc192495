package processing

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// ChannelStatsExtractor summarizes every channel of one signal kind with its
// mean and standard deviation, yielding a flat feature vector of length
// 2 * channels.
type ChannelStatsExtractor struct {
	// Signal selects which of the sample's signals feeds the statistics.
	Signal data.SignalKind
}

func NewChannelStatsExtractor(signal data.SignalKind) *ChannelStatsExtractor {
	return &ChannelStatsExtractor{Signal: signal}
}

func (e *ChannelStatsExtractor) Name() string { return "ChannelStats" }

func (e *ChannelStatsExtractor) DataKind() data.DataKind { return data.Features }

func (e *ChannelStatsExtractor) Extract(signals map[data.SignalKind]*data.Signal) (*tensor.Tensor, error) {
	sig, ok := signals[e.Signal]
	if !ok {
		return nil, fmt.Errorf("no %s signal to extract channel stats from", e.Signal)
	}

	samples := sig.Samples()
	if samples.NumElems == 0 {
		return nil, fmt.Errorf("cannot extract features from an empty signal")
	}
	if samples.DType != tensor.Float32 {
		return nil, fmt.Errorf("feature extraction needs float32 samples, got %s", samples.DType)
	}

	channels, steps := samples.Shape[0], samples.Shape[1]
	values := samples.Float32s()

	features := make([]float32, 2*channels)
	row := make([]float64, steps)
	for c := 0; c < channels; c++ {
		offset := c * steps
		for i := 0; i < steps; i++ {
			row[i] = float64(values[offset+i])
		}
		mean, std := stat.MeanStdDev(row, nil)
		features[2*c] = float32(mean)
		features[2*c+1] = float32(std)
	}

	return tensor.FromFloat32([]int{2 * channels}, features), nil
}
