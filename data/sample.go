package data

import (
	"github.com/openphysio/biolearn/tensor"
)

// Sample is a single training example from a single patient record. It may
// cover a full recording or a window cut out of one.
//
// Data and Metadata look alike but serve different purposes: Data holds
// tensors ready to be used as model features, while Metadata is unstructured
// and feeds internal operations such as labeling.
type Sample struct {
	db        string
	dbVersion string
	patientID int
	recordID  int
	sampleID  int
	signals   map[SignalKind]*Signal
	data      map[DataKind]*tensor.Tensor
	metadata  map[MetaKey]interface{}
	label     map[LabelKind]*tensor.Tensor
}

// SampleConfig collects the fields of a sample for construction.
type SampleConfig struct {
	DB        string
	DBVersion string
	PatientID int
	RecordID  int
	SampleID  int
	Signals   map[SignalKind]*Signal
	Data      map[DataKind]*tensor.Tensor
	Metadata  map[MetaKey]interface{}
	Label     map[LabelKind]*tensor.Tensor
}

// NewSample builds a sample. Nil maps are normalized to empty ones.
func NewSample(cfg SampleConfig) *Sample {
	if cfg.Signals == nil {
		cfg.Signals = map[SignalKind]*Signal{}
	}
	if cfg.Data == nil {
		cfg.Data = map[DataKind]*tensor.Tensor{}
	}
	if cfg.Metadata == nil {
		cfg.Metadata = map[MetaKey]interface{}{}
	}
	if cfg.Label == nil {
		cfg.Label = map[LabelKind]*tensor.Tensor{}
	}

	return &Sample{
		db:        cfg.DB,
		dbVersion: cfg.DBVersion,
		patientID: cfg.PatientID,
		recordID:  cfg.RecordID,
		sampleID:  cfg.SampleID,
		signals:   cfg.Signals,
		data:      cfg.Data,
		metadata:  cfg.Metadata,
		label:     cfg.Label,
	}
}

func (s *Sample) DB() string        { return s.db }
func (s *Sample) DBVersion() string { return s.dbVersion }
func (s *Sample) PatientID() int    { return s.patientID }
func (s *Sample) RecordID() int     { return s.recordID }
func (s *Sample) SampleID() int     { return s.sampleID }

func (s *Sample) Signals() map[SignalKind]*Signal     { return s.signals }
func (s *Sample) Data() map[DataKind]*tensor.Tensor   { return s.data }
func (s *Sample) Metadata() map[MetaKey]interface{}   { return s.metadata }
func (s *Sample) Label() map[LabelKind]*tensor.Tensor { return s.label }

// SampleOverrides names the maps WithOverrides replaces; nil fields keep the
// receiver's value.
type SampleOverrides struct {
	Signals map[SignalKind]*Signal
	Data    map[DataKind]*tensor.Tensor
	Label   map[LabelKind]*tensor.Tensor
}

// WithOverrides builds a new sample like the receiver with the given maps
// replaced. Identity fields always carry over.
func (s *Sample) WithOverrides(ov SampleOverrides) *Sample {
	signals := s.signals
	if ov.Signals != nil {
		signals = ov.Signals
	}
	d := s.data
	if ov.Data != nil {
		d = ov.Data
	}
	label := s.label
	if ov.Label != nil {
		label = ov.Label
	}

	return NewSample(SampleConfig{
		DB:        s.db,
		DBVersion: s.dbVersion,
		PatientID: s.patientID,
		RecordID:  s.recordID,
		SampleID:  s.sampleID,
		Signals:   signals,
		Data:      d,
		Metadata:  s.metadata,
		Label:     label,
	})
}

// Equal reports whether two samples agree on identity, signals, data and labels.
func (s *Sample) Equal(o *Sample) bool {
	if o == nil ||
		s.db != o.db || s.dbVersion != o.dbVersion ||
		s.patientID != o.patientID || s.recordID != o.recordID || s.sampleID != o.sampleID {
		return false
	}

	if len(s.signals) != len(o.signals) {
		return false
	}
	for k, sig := range s.signals {
		other, ok := o.signals[k]
		if !ok || !sig.Equal(other) {
			return false
		}
	}

	return EqualDataMaps(s.data, o.data) && EqualLabelMaps(s.label, o.label)
}

// EqualDataMaps compares two data-kind keyed tensor maps element-wise.
func EqualDataMaps(a, b map[DataKind]*tensor.Tensor) bool {
	if len(a) != len(b) {
		return false
	}
	for k, t := range a {
		other, ok := b[k]
		if !ok || !t.Equal(other) {
			return false
		}
	}
	return true
}

// EqualLabelMaps compares two label-kind keyed tensor maps element-wise.
func EqualLabelMaps(a, b map[LabelKind]*tensor.Tensor) bool {
	if len(a) != len(b) {
		return false
	}
	for k, t := range a {
		other, ok := b[k]
		if !ok || !t.Equal(other) {
			return false
		}
	}
	return true
}
