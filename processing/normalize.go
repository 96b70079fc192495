package processing

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// ZScoreNormalizer rescales every channel of a signal to zero mean and unit
// variance. Channels with zero spread are centered only.
type ZScoreNormalizer struct {
	// Epsilon guards the division when a channel is constant.
	Epsilon float64
}

func NewZScoreNormalizer() *ZScoreNormalizer {
	return &ZScoreNormalizer{Epsilon: 1e-8}
}

func (z *ZScoreNormalizer) Name() string { return "ZScoreNormalizer" }

func (z *ZScoreNormalizer) Process(sig *data.Signal) (*data.Signal, error) {
	samples := sig.Samples()
	if samples.NumElems == 0 {
		return sig, nil
	}
	if samples.DType != tensor.Float32 {
		return nil, fmt.Errorf("z-score normalization needs float32 samples, got %s", samples.DType)
	}

	channels, steps := samples.Shape[0], samples.Shape[1]
	values := samples.Float32s()

	row := make([]float64, steps)
	for c := 0; c < channels; c++ {
		offset := c * steps
		for i := 0; i < steps; i++ {
			row[i] = float64(values[offset+i])
		}

		mean, std := stat.MeanStdDev(row, nil)
		if std < z.Epsilon {
			std = 1
		}
		for i := 0; i < steps; i++ {
			values[offset+i] = float32((row[i] - mean) / std)
		}
	}

	return sig.WithOverrides(data.SignalOverrides{Samples: samples})
}
