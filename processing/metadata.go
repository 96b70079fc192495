package processing

import (
	"fmt"

	"github.com/openphysio/biolearn/data"
)

// MetadataExtractor derives sample metadata from a record, typically by
// selecting or reshaping the record-level annotations.
type MetadataExtractor interface {
	Extract(record *data.Record) (map[data.MetaKey]interface{}, error)
	Name() string
}

// KeyMetadataExtractor copies a fixed set of keys from the record metadata.
// Missing keys are an error: a record without its annotations cannot be
// labeled downstream.
type KeyMetadataExtractor struct {
	Keys []data.MetaKey
}

func NewKeyMetadataExtractor(keys ...data.MetaKey) *KeyMetadataExtractor {
	return &KeyMetadataExtractor{Keys: keys}
}

func (e *KeyMetadataExtractor) Name() string { return "KeyMetadataExtractor" }

func (e *KeyMetadataExtractor) Extract(record *data.Record) (map[data.MetaKey]interface{}, error) {
	out := make(map[data.MetaKey]interface{}, len(e.Keys))
	for _, key := range e.Keys {
		v, ok := record.Metadata()[key]
		if !ok {
			return nil, fmt.Errorf("record %d has no metadata key %s", record.ID(), key)
		}
		out[key] = v
	}
	return out, nil
}

// SamplesFromRecord turns one record into samples, one per record for now:
// the record's signals plus the metadata the extractors derive. Windowing
// strategies build on top of this by cutting the signals first.
func SamplesFromRecord(record *data.Record, patientID int, dbName, dbVersion string, extractors []MetadataExtractor) ([]*data.Sample, error) {
	metadata := map[data.MetaKey]interface{}{}
	for _, ex := range extractors {
		derived, err := ex.Extract(record)
		if err != nil {
			return nil, fmt.Errorf("metadata extractor %s: %v", ex.Name(), err)
		}
		for k, v := range derived {
			metadata[k] = v
		}
	}

	sample := data.NewSample(data.SampleConfig{
		DB:        dbName,
		DBVersion: dbVersion,
		PatientID: patientID,
		RecordID:  record.ID(),
		SampleID:  len(record.Samples()),
		Signals:   record.Signals(),
		Metadata:  metadata,
	})
	record.AddSample(sample)

	return []*data.Sample{sample}, nil
}
