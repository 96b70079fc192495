package data

import (
	"fmt"
	"sort"
)

// Record is one continuous recording session of a patient: its signals, the
// samples cut from them and the record-level metadata used for labeling.
type Record struct {
	id       int
	signals  map[SignalKind]*Signal
	samples  []*Sample
	metadata map[MetaKey]interface{}
}

// NewRecord builds a record. Nil maps are normalized to empty ones.
func NewRecord(id int, signals map[SignalKind]*Signal, metadata map[MetaKey]interface{}) *Record {
	if signals == nil {
		signals = map[SignalKind]*Signal{}
	}
	if metadata == nil {
		metadata = map[MetaKey]interface{}{}
	}
	return &Record{id: id, signals: signals, metadata: metadata}
}

func (r *Record) ID() int                           { return r.id }
func (r *Record) Signals() map[SignalKind]*Signal   { return r.signals }
func (r *Record) Samples() []*Sample                { return r.samples }
func (r *Record) Metadata() map[MetaKey]interface{} { return r.metadata }

// AddSample appends a sample cut from this record.
func (r *Record) AddSample(s *Sample) {
	r.samples = append(r.samples, s)
}

// Attrs builds the attribute map persisted alongside the record.
func (r *Record) Attrs() map[string]interface{} {
	kinds := make([]string, 0, len(r.signals))
	for k := range r.signals {
		kinds = append(kinds, k.String())
	}
	sort.Strings(kinds)

	attrs := map[string]interface{}{
		string(MetaRecordID): r.id,
		"num_samples":        len(r.samples),
		"signal_kinds":       kinds,
	}
	for k, v := range r.metadata {
		attrs[string(k)] = v
	}
	return attrs
}

// Patient groups the records of one subject within a database.
type Patient struct {
	id      int
	records map[int]*Record
}

func NewPatient(id int) *Patient {
	return &Patient{id: id, records: map[int]*Record{}}
}

func (p *Patient) ID() int { return p.id }

// AddRecord attaches a record, rejecting duplicate record IDs.
func (p *Patient) AddRecord(r *Record) error {
	if _, ok := p.records[r.ID()]; ok {
		return fmt.Errorf("patient %d already has record %d", p.id, r.ID())
	}
	p.records[r.ID()] = r
	return nil
}

// Record returns the record with the given ID.
func (p *Patient) Record(id int) (*Record, error) {
	r, ok := p.records[id]
	if !ok {
		return nil, fmt.Errorf("patient %d has no record %d", p.id, id)
	}
	return r, nil
}

// RecordIDs returns the IDs of the patient's records in ascending order.
func (p *Patient) RecordIDs() []int {
	ids := make([]int, 0, len(p.records))
	for id := range p.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (p *Patient) NumRecords() int { return len(p.records) }

// Attrs builds the attribute map persisted alongside the patient.
func (p *Patient) Attrs() map[string]interface{} {
	return map[string]interface{}{
		string(MetaPatientID):  p.id,
		string(MetaNumRecords): len(p.records),
	}
}

// Database is the root of the hierarchy: a named, versioned collection of
// patients. It describes data shapes only; loading raw files and the on-disk
// layout belong to external collaborators.
type Database struct {
	name       string
	version    string
	properties map[string]interface{}
	patients   map[int]*Patient
}

func NewDatabase(name, version string, properties map[string]interface{}) *Database {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	return &Database{
		name:       name,
		version:    version,
		properties: properties,
		patients:   map[int]*Patient{},
	}
}

func (db *Database) Name() string    { return db.name }
func (db *Database) Version() string { return db.version }

// AddPatient attaches a patient, rejecting duplicate patient IDs.
func (db *Database) AddPatient(p *Patient) error {
	if _, ok := db.patients[p.ID()]; ok {
		return fmt.Errorf("database %s already has patient %d", db.name, p.ID())
	}
	db.patients[p.ID()] = p
	return nil
}

// Patient returns the patient with the given ID.
func (db *Database) Patient(id int) (*Patient, error) {
	p, ok := db.patients[id]
	if !ok {
		return nil, fmt.Errorf("database %s has no patient %d", db.name, id)
	}
	return p, nil
}

// PatientIDs returns the IDs of the database's patients in ascending order.
func (db *Database) PatientIDs() []int {
	ids := make([]int, 0, len(db.patients))
	for id := range db.patients {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (db *Database) NumPatients() int { return len(db.patients) }

// Attrs builds the attribute map persisted alongside the database root.
func (db *Database) Attrs() map[string]interface{} {
	perPatient := map[string]int{}
	for id, p := range db.patients {
		perPatient[fmt.Sprintf("%d", id)] = p.NumRecords()
	}

	attrs := map[string]interface{}{
		string(MetaDatabaseName):    db.name,
		string(MetaDatabaseVersion): db.version,
		string(MetaNumPatients):     len(db.patients),
		"records_per_patient":       perPatient,
	}
	for k, v := range db.properties {
		attrs[k] = v
	}
	return attrs
}
