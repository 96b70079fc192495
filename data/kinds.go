package data

import "fmt"

// SignalKind identifies the physiological modality of a signal.
type SignalKind int

const (
	ECG SignalKind = iota
	EEG
	RRIntervals
	UnknownSignal
)

func (k SignalKind) String() string {
	switch k {
	case ECG:
		return "ECG"
	case EEG:
		return "EEG"
	case RRIntervals:
		return "RRIntervals"
	case UnknownSignal:
		return "UnknownSignal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// DataKind identifies non-signal tensor data carried by a sample, ready to be
// fed to a model as features.
type DataKind int

const (
	Features DataKind = iota
	ChannelFrequency
)

func (k DataKind) String() string {
	switch k {
	case Features:
		return "Features"
	case ChannelFrequency:
		return "ChannelFrequency"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// LabelKind identifies a supervised-learning target. Label-keyed tensor maps
// are the common currency between models, losses and metrics.
type LabelKind int

const (
	Target LabelKind = iota
	NoLabel
)

func (k LabelKind) String() string {
	switch k {
	case Target:
		return "Target"
	case NoLabel:
		return "NoLabel"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// MetaKey names an entry in the free-form metadata of a record or sample.
// Metadata is unstructured and used for internal operations like labeling,
// unlike DataKind tensors which feed models directly.
type MetaKey string

const (
	MetaEventStartTimes MetaKey = "event_start_times"
	MetaEventEndTimes   MetaKey = "event_end_times"
	MetaPointAnnotation MetaKey = "point_annotation"
	MetaHospitalName    MetaKey = "hospital_name"
	MetaPatientID       MetaKey = "patient_id"
	MetaRecordID        MetaKey = "record_id"
	MetaNumPatients     MetaKey = "num_patients"
	MetaNumRecords      MetaKey = "num_records"
	MetaDatabaseName    MetaKey = "database_name"
	MetaDatabaseVersion MetaKey = "database_version"
)
