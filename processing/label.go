package processing

import (
	"fmt"
	"time"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// IntervalLabeler derives a per-step binary label from event intervals in the
// sample metadata: steps inside any [start, end) event window are labeled 1,
// all others 0. Event times are read from MetaEventStartTimes and
// MetaEventEndTimes as []time.Duration, offsets from the record start. Time
// axis values are interpreted as seconds.
type IntervalLabeler struct {
	// Signal selects which of the sample's signals supplies the time axis.
	Signal data.SignalKind

	// LabelKind the derived tensor is filed under. Defaults to Target.
	Kind data.LabelKind
}

func NewIntervalLabeler(signal data.SignalKind) *IntervalLabeler {
	return &IntervalLabeler{Signal: signal, Kind: data.Target}
}

func (l *IntervalLabeler) Name() string { return "IntervalLabeler" }

func (l *IntervalLabeler) Label(signals map[data.SignalKind]*data.Signal, metadata map[data.MetaKey]interface{}) (map[data.LabelKind]*tensor.Tensor, error) {
	sig, ok := signals[l.Signal]
	if !ok {
		return nil, fmt.Errorf("no %s signal to derive labels from", l.Signal)
	}

	starts, err := eventTimes(metadata, data.MetaEventStartTimes)
	if err != nil {
		return nil, err
	}
	ends, err := eventTimes(metadata, data.MetaEventEndTimes)
	if err != nil {
		return nil, err
	}
	if len(starts) != len(ends) {
		return nil, fmt.Errorf("%d event start times but %d end times", len(starts), len(ends))
	}

	timeAxis := sig.TimeAxis()
	steps := timeAxis.NumElems
	times := timeAxis.Float32s()

	labels := make([]float32, steps)
	for i := 0; i < steps; i++ {
		at := time.Duration(float64(times[i]) * float64(time.Second))
		for j := range starts {
			if at >= starts[j] && at < ends[j] {
				labels[i] = 1
				break
			}
		}
	}

	return map[data.LabelKind]*tensor.Tensor{
		l.Kind: tensor.FromFloat32([]int{1, steps}, labels),
	}, nil
}

func eventTimes(metadata map[data.MetaKey]interface{}, key data.MetaKey) ([]time.Duration, error) {
	raw, ok := metadata[key]
	if !ok {
		return nil, fmt.Errorf("metadata key %s is missing", key)
	}
	times, ok := raw.([]time.Duration)
	if !ok {
		return nil, fmt.Errorf("metadata key %s holds %T, want []time.Duration", key, raw)
	}
	return times, nil
}
