package processing

import (
	"math"
	"testing"
	"time"

	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

func testSignal(t *testing.T) *data.Signal {
	t.Helper()
	timeAxis := tensor.FromFloat32([]int{1, 4}, []float32{0, 1, 2, 3})
	samples := tensor.FromFloat32([]int{2, 4}, []float32{
		1, 2, 3, 4, // channel 0
		10, 10, 10, 10, // channel 1, constant
	})
	sig, err := data.NewSignal(0, 4*time.Second, timeAxis, samples, data.ECG, []string{"I", "II"})
	if err != nil {
		t.Fatalf("NewSignal failed: %v", err)
	}
	return sig
}

func TestZScoreNormalizer(t *testing.T) {
	z := NewZScoreNormalizer()
	out, err := z.Process(testSignal(t))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	values := out.Samples().Float32s()

	// Channel 0 ends up zero-mean.
	var sum float64
	for i := 0; i < 4; i++ {
		sum += float64(values[i])
	}
	if math.Abs(sum) > 1e-5 {
		t.Errorf("channel 0 mean is %f after normalization", sum/4)
	}

	// A constant channel is centered but not blown up.
	for i := 4; i < 8; i++ {
		if values[i] != 0 {
			t.Errorf("constant channel element %d is %f, want 0", i-4, values[i])
		}
	}
}

func TestZScoreDoesNotMutateInput(t *testing.T) {
	sig := testSignal(t)
	z := NewZScoreNormalizer()
	if _, err := z.Process(sig); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if sig.Samples().Float32s()[0] != 1 {
		t.Error("normalization mutated the input signal")
	}
}

func TestChannelStatsExtractor(t *testing.T) {
	e := NewChannelStatsExtractor(data.ECG)
	features, err := e.Extract(map[data.SignalKind]*data.Signal{data.ECG: testSignal(t)})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if features.NumElems != 4 {
		t.Fatalf("extracted %d features, want 4 (mean+std per channel)", features.NumElems)
	}
	f := features.Float32s()
	if math.Abs(float64(f[0])-2.5) > 1e-6 {
		t.Errorf("channel 0 mean feature is %f, want 2.5", f[0])
	}
	if math.Abs(float64(f[2])-10) > 1e-6 {
		t.Errorf("channel 1 mean feature is %f, want 10", f[2])
	}
	if f[3] != 0 {
		t.Errorf("channel 1 std feature is %f, want 0", f[3])
	}

	t.Run("MissingSignal", func(t *testing.T) {
		eeg := NewChannelStatsExtractor(data.EEG)
		if _, err := eeg.Extract(map[data.SignalKind]*data.Signal{data.ECG: testSignal(t)}); err == nil {
			t.Error("expected error when the bound signal kind is absent")
		}
	})
}

func TestIntervalLabeler(t *testing.T) {
	l := NewIntervalLabeler(data.ECG)
	metadata := map[data.MetaKey]interface{}{
		data.MetaEventStartTimes: []time.Duration{1 * time.Second},
		data.MetaEventEndTimes:   []time.Duration{3 * time.Second},
	}

	labels, err := l.Label(map[data.SignalKind]*data.Signal{data.ECG: testSignal(t)}, metadata)
	if err != nil {
		t.Fatalf("Label failed: %v", err)
	}

	target := labels[data.Target]
	if target == nil {
		t.Fatal("no Target label derived")
	}
	got := target.Float32s()
	want := []float32{0, 1, 1, 0} // steps at t=1s and t=2s fall in [1s, 3s)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d labeled %f, want %f", i, got[i], want[i])
		}
	}
}

func TestIntervalLabelerValidation(t *testing.T) {
	l := NewIntervalLabeler(data.ECG)
	signals := map[data.SignalKind]*data.Signal{data.ECG: testSignal(t)}

	t.Run("MissingMetadata", func(t *testing.T) {
		if _, err := l.Label(signals, map[data.MetaKey]interface{}{}); err == nil {
			t.Error("expected error without event metadata")
		}
	})

	t.Run("MismatchedIntervals", func(t *testing.T) {
		metadata := map[data.MetaKey]interface{}{
			data.MetaEventStartTimes: []time.Duration{time.Second, 2 * time.Second},
			data.MetaEventEndTimes:   []time.Duration{3 * time.Second},
		}
		if _, err := l.Label(signals, metadata); err == nil {
			t.Error("expected error for mismatched interval counts")
		}
	})

	t.Run("WrongMetadataType", func(t *testing.T) {
		metadata := map[data.MetaKey]interface{}{
			data.MetaEventStartTimes: "not times",
			data.MetaEventEndTimes:   []time.Duration{time.Second},
		}
		if _, err := l.Label(signals, metadata); err == nil {
			t.Error("expected error for a mistyped metadata entry")
		}
	})

	t.Run("MissingSignal", func(t *testing.T) {
		metadata := map[data.MetaKey]interface{}{
			data.MetaEventStartTimes: []time.Duration{time.Second},
			data.MetaEventEndTimes:   []time.Duration{2 * time.Second},
		}
		eeg := NewIntervalLabeler(data.EEG)
		if _, err := eeg.Label(signals, metadata); err == nil {
			t.Error("expected error when the bound signal kind is absent")
		}
	})
}

func TestPipelineRun(t *testing.T) {
	sig := testSignal(t)
	sample := data.NewSample(data.SampleConfig{
		DB:       "testdb",
		SampleID: 1,
		Signals:  map[data.SignalKind]*data.Signal{data.ECG: sig},
		Metadata: map[data.MetaKey]interface{}{
			data.MetaEventStartTimes: []time.Duration{time.Second},
			data.MetaEventEndTimes:   []time.Duration{3 * time.Second},
		},
	})

	p := NewPipeline(PipelineConfig{
		Processors: []SignalProcessor{NewZScoreNormalizer()},
		Extractors: []FeatureExtractor{NewChannelStatsExtractor(data.ECG)},
		Labeler:    NewIntervalLabeler(data.ECG),
	})

	out, err := p.Run(sample)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The sample keeps its identity and gains features and labels.
	if out.DB() != "testdb" || out.SampleID() != 1 {
		t.Error("pipeline dropped the sample identity")
	}
	if _, ok := out.Data()[data.Features]; !ok {
		t.Error("pipeline produced no feature tensor")
	}
	if _, ok := out.Label()[data.Target]; !ok {
		t.Error("pipeline produced no label tensor")
	}

	// Features are computed from the normalized signal: channel 0 mean ~ 0.
	f := out.Data()[data.Features].Float32s()
	if math.Abs(float64(f[0])) > 1e-5 {
		t.Errorf("feature mean of normalized channel is %f, want ~0", f[0])
	}

	// Input untouched.
	if sample.Signals()[data.ECG].Samples().Float32s()[0] != 1 {
		t.Error("pipeline mutated the input sample")
	}
}

func constantSignal(t *testing.T, kind data.SignalKind, value float32) *data.Signal {
	t.Helper()
	timeAxis := tensor.FromFloat32([]int{1, 4}, []float32{0, 1, 2, 3})
	values := make([]float32, 8)
	for i := range values {
		values[i] = value
	}
	sig, err := data.NewSignal(0, 4*time.Second, timeAxis,
		tensor.FromFloat32([]int{2, 4}, values), kind, []string{"A", "B"})
	if err != nil {
		t.Fatalf("NewSignal failed: %v", err)
	}
	return sig
}

func TestPipelineMultiSignalDeterminism(t *testing.T) {
	sample := data.NewSample(data.SampleConfig{
		DB: "testdb",
		Signals: map[data.SignalKind]*data.Signal{
			data.ECG: constantSignal(t, data.ECG, 1),
			data.EEG: constantSignal(t, data.EEG, 100),
		},
	})

	p := NewPipeline(PipelineConfig{
		Extractors: []FeatureExtractor{NewChannelStatsExtractor(data.ECG)},
	})

	// With two signal kinds present, repeated runs must keep producing the
	// bound kind's features regardless of signal map iteration order.
	for i := 0; i < 50; i++ {
		out, err := p.Run(sample)
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		f := out.Data()[data.Features].Float32s()
		if f[0] != 1 {
			t.Fatalf("run %d: mean feature is %f, want 1 from the ECG signal", i, f[0])
		}
	}
}
