// Package catalog persists the database/patient/record hierarchy in a local
// SQLite file so that runs can enumerate and revisit datasets without
// re-scanning raw recordings.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openphysio/biolearn/data"
)

const schema = `
CREATE TABLE IF NOT EXISTS databases (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	version TEXT NOT NULL,
	attrs   TEXT NOT NULL,
	UNIQUE (name, version)
);

CREATE TABLE IF NOT EXISTS patients (
	database_id INTEGER NOT NULL REFERENCES databases(id),
	patient_id  INTEGER NOT NULL,
	attrs       TEXT NOT NULL,
	PRIMARY KEY (database_id, patient_id)
);

CREATE TABLE IF NOT EXISTS records (
	database_id INTEGER NOT NULL REFERENCES databases(id),
	patient_id  INTEGER NOT NULL,
	record_id   INTEGER NOT NULL,
	attrs       TEXT NOT NULL,
	PRIMARY KEY (database_id, patient_id, record_id),
	FOREIGN KEY (database_id, patient_id) REFERENCES patients(database_id, patient_id)
);
`

// Catalog is a handle to one catalog file.
type Catalog struct {
	db *sql.DB
}

// Open opens (and if needed initializes) a catalog at path. Use ":memory:"
// for an ephemeral catalog.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %v", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog schema: %v", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// AddDatabase records a whole database hierarchy: the database row, one row
// per patient and one row per record, all inside a single transaction.
func (c *Catalog) AddDatabase(db *data.Database) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("starting catalog transaction: %v", err)
	}
	defer tx.Rollback()

	attrs, err := marshalAttrs(db.Attrs())
	if err != nil {
		return err
	}
	res, err := tx.Exec(
		"INSERT INTO databases (name, version, attrs) VALUES (?, ?, ?)",
		db.Name(), db.Version(), attrs,
	)
	if err != nil {
		return fmt.Errorf("inserting database %s: %v", db.Name(), err)
	}
	dbRow, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading database row id: %v", err)
	}

	for _, patientID := range db.PatientIDs() {
		patient, err := db.Patient(patientID)
		if err != nil {
			return err
		}
		if err := insertPatient(tx, dbRow, patient); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertPatient(tx *sql.Tx, dbRow int64, patient *data.Patient) error {
	attrs, err := marshalAttrs(patient.Attrs())
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO patients (database_id, patient_id, attrs) VALUES (?, ?, ?)",
		dbRow, patient.ID(), attrs,
	); err != nil {
		return fmt.Errorf("inserting patient %d: %v", patient.ID(), err)
	}

	for _, recordID := range patient.RecordIDs() {
		record, err := patient.Record(recordID)
		if err != nil {
			return err
		}
		attrs, err := marshalAttrs(record.Attrs())
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO records (database_id, patient_id, record_id, attrs) VALUES (?, ?, ?, ?)",
			dbRow, patient.ID(), record.ID(), attrs,
		); err != nil {
			return fmt.Errorf("inserting record %d of patient %d: %v", record.ID(), patient.ID(), err)
		}
	}
	return nil
}

// DatabaseEntry is one row of the databases table.
type DatabaseEntry struct {
	Name    string
	Version string
	Attrs   map[string]interface{}
}

// Databases lists every cataloged database, ordered by name then version.
func (c *Catalog) Databases() ([]DatabaseEntry, error) {
	rows, err := c.db.Query("SELECT name, version, attrs FROM databases ORDER BY name, version")
	if err != nil {
		return nil, fmt.Errorf("listing databases: %v", err)
	}
	defer rows.Close()

	var entries []DatabaseEntry
	for rows.Next() {
		var e DatabaseEntry
		var attrs string
		if err := rows.Scan(&e.Name, &e.Version, &attrs); err != nil {
			return nil, fmt.Errorf("scanning database row: %v", err)
		}
		if e.Attrs, err = unmarshalAttrs(attrs); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PatientIDs lists the patient IDs of one cataloged database in ascending
// order.
func (c *Catalog) PatientIDs(name, version string) ([]int, error) {
	rows, err := c.db.Query(`
		SELECT p.patient_id FROM patients p
		JOIN databases d ON d.id = p.database_id
		WHERE d.name = ? AND d.version = ?
		ORDER BY p.patient_id`,
		name, version,
	)
	if err != nil {
		return nil, fmt.Errorf("listing patients of %s %s: %v", name, version, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning patient row: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordAttrs fetches the stored attributes of one record.
func (c *Catalog) RecordAttrs(name, version string, patientID, recordID int) (map[string]interface{}, error) {
	var attrs string
	err := c.db.QueryRow(`
		SELECT r.attrs FROM records r
		JOIN databases d ON d.id = r.database_id
		WHERE d.name = ? AND d.version = ? AND r.patient_id = ? AND r.record_id = ?`,
		name, version, patientID, recordID,
	).Scan(&attrs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %d of patient %d not found in %s %s", recordID, patientID, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching record attrs: %v", err)
	}
	return unmarshalAttrs(attrs)
}

func marshalAttrs(attrs map[string]interface{}) (string, error) {
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encoding attrs: %v", err)
	}
	return string(b), nil
}

func unmarshalAttrs(s string) (map[string]interface{}, error) {
	var attrs map[string]interface{}
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, fmt.Errorf("decoding attrs: %v", err)
	}
	return attrs, nil
}
