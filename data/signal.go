package data

import (
	"fmt"
	"time"

	"github.com/openphysio/biolearn/tensor"
)

// Signal is a multi-channel time series cut from a record. The samples tensor
// has shape [channels, time steps]; the time axis has shape [1, time steps]
// and carries the instant of every step relative to the start of the record.
type Signal struct {
	startTime    time.Duration
	endTime      time.Duration
	timeAxis     *tensor.Tensor
	samples      *tensor.Tensor
	kind         SignalKind
	channelNames []string
}

// NewSignal validates and builds a signal. The samples tensor must either be
// empty or span the same number of time steps as the time axis, the end time
// must come after the start time, and channel names (when given) must match
// the channel count.
func NewSignal(startTime, endTime time.Duration, timeAxis, samples *tensor.Tensor, kind SignalKind, channelNames []string) (*Signal, error) {
	if endTime <= startTime {
		return nil, fmt.Errorf("signal end time %v is not after start time %v", endTime, startTime)
	}

	if samples.NumElems > 0 {
		if len(samples.Shape) != 2 {
			return nil, fmt.Errorf("signal samples must have shape [channels, steps], got %v", samples.Shape)
		}
		if len(timeAxis.Shape) != 2 || samples.Shape[1] != timeAxis.Shape[1] {
			return nil, fmt.Errorf("signal spans %v steps but time axis spans %v", samples.Shape, timeAxis.Shape)
		}
	}

	s := &Signal{
		startTime:    startTime,
		endTime:      endTime,
		timeAxis:     timeAxis,
		samples:      samples,
		kind:         kind,
		channelNames: channelNames,
	}

	if len(channelNames) > 0 && s.NumChannels() != len(channelNames) {
		return nil, fmt.Errorf("signal has %d channels but %d channel names", s.NumChannels(), len(channelNames))
	}

	return s, nil
}

// StartTime is the offset of the signal from the beginning of its record.
func (s *Signal) StartTime() time.Duration { return s.startTime }

// EndTime is the offset of the end of the signal from the beginning of its record.
func (s *Signal) EndTime() time.Duration { return s.endTime }

// TimeAxis returns a copy of the time-axis tensor.
func (s *Signal) TimeAxis() *tensor.Tensor { return s.timeAxis.Clone() }

// Samples returns a copy of the sample tensor.
func (s *Signal) Samples() *tensor.Tensor { return s.samples.Clone() }

func (s *Signal) Kind() SignalKind { return s.kind }

func (s *Signal) ChannelNames() []string { return s.channelNames }

// NumChannels is the number of channels in the sample tensor.
func (s *Signal) NumChannels() int {
	if len(s.samples.Shape) == 0 {
		return 0
	}
	return s.samples.Shape[0]
}

// FindChannel returns the indices at which the named channel appears.
func (s *Signal) FindChannel(name string) ([]int, error) {
	var idx []int
	for i, n := range s.channelNames {
		if n == name {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("channel %q not found in signal channel names", name)
	}
	return idx, nil
}

// Equal reports whether two signals carry the same times, axes and samples.
func (s *Signal) Equal(o *Signal) bool {
	return o != nil &&
		s.startTime == o.startTime &&
		s.endTime == o.endTime &&
		s.kind == o.kind &&
		s.timeAxis.Equal(o.timeAxis) &&
		s.samples.Equal(o.samples)
}

// SignalOverrides names the fields WithOverrides replaces; nil fields keep the
// receiver's value.
type SignalOverrides struct {
	TimeAxis     *tensor.Tensor
	Samples      *tensor.Tensor
	ChannelNames []string
}

// WithOverrides builds a new signal like the receiver with the given fields
// replaced. Processors use it to emit transformed signals without mutating
// their input.
func (s *Signal) WithOverrides(ov SignalOverrides) (*Signal, error) {
	timeAxis := s.timeAxis
	if ov.TimeAxis != nil {
		timeAxis = ov.TimeAxis
	}
	samples := s.samples
	if ov.Samples != nil {
		samples = ov.Samples
	}
	channelNames := s.channelNames
	if ov.ChannelNames != nil {
		channelNames = ov.ChannelNames
	}
	return NewSignal(s.startTime, s.endTime, timeAxis, samples, s.kind, channelNames)
}
