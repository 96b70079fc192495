package catalog

import (
	"testing"

	"gotest.tools/assert"

	"github.com/openphysio/biolearn/data"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	assert.NilError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testDatabase(t *testing.T) *data.Database {
	t.Helper()
	db := data.NewDatabase("mitdb", "1.0.0", map[string]interface{}{"sampling_rate": 360})

	p1 := data.NewPatient(1)
	assert.NilError(t, p1.AddRecord(data.NewRecord(100, nil, map[data.MetaKey]interface{}{
		data.MetaHospitalName: "BIH",
	})))
	assert.NilError(t, p1.AddRecord(data.NewRecord(101, nil, nil)))

	p2 := data.NewPatient(2)
	assert.NilError(t, p2.AddRecord(data.NewRecord(200, nil, nil)))

	assert.NilError(t, db.AddPatient(p1))
	assert.NilError(t, db.AddPatient(p2))
	return db
}

func TestAddAndListDatabases(t *testing.T) {
	c := openTestCatalog(t)
	assert.NilError(t, c.AddDatabase(testDatabase(t)))

	entries, err := c.Databases()
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].Name, "mitdb")
	assert.Equal(t, entries[0].Version, "1.0.0")

	// Attrs survive the JSON round trip; numbers come back as float64.
	assert.Equal(t, entries[0].Attrs[string(data.MetaNumPatients)], float64(2))
}

func TestDuplicateDatabaseRejected(t *testing.T) {
	c := openTestCatalog(t)
	assert.NilError(t, c.AddDatabase(testDatabase(t)))
	assert.Assert(t, c.AddDatabase(testDatabase(t)) != nil)
}

func TestPatientIDs(t *testing.T) {
	c := openTestCatalog(t)
	assert.NilError(t, c.AddDatabase(testDatabase(t)))

	ids, err := c.PatientIDs("mitdb", "1.0.0")
	assert.NilError(t, err)
	assert.DeepEqual(t, ids, []int{1, 2})

	missing, err := c.PatientIDs("nonexistent", "0")
	assert.NilError(t, err)
	assert.Equal(t, len(missing), 0)
}

func TestRecordAttrs(t *testing.T) {
	c := openTestCatalog(t)
	assert.NilError(t, c.AddDatabase(testDatabase(t)))

	attrs, err := c.RecordAttrs("mitdb", "1.0.0", 1, 100)
	assert.NilError(t, err)
	assert.Equal(t, attrs[string(data.MetaHospitalName)], "BIH")
	assert.Equal(t, attrs[string(data.MetaRecordID)], float64(100))

	_, err = c.RecordAttrs("mitdb", "1.0.0", 1, 999)
	assert.ErrorContains(t, err, "not found")
}

func TestVersionsAreSeparate(t *testing.T) {
	c := openTestCatalog(t)
	assert.NilError(t, c.AddDatabase(testDatabase(t)))

	v2 := data.NewDatabase("mitdb", "2.0.0", nil)
	p := data.NewPatient(9)
	assert.NilError(t, p.AddRecord(data.NewRecord(900, nil, nil)))
	assert.NilError(t, v2.AddPatient(p))
	assert.NilError(t, c.AddDatabase(v2))

	ids, err := c.PatientIDs("mitdb", "2.0.0")
	assert.NilError(t, err)
	assert.DeepEqual(t, ids, []int{9})

	entries, err := c.Databases()
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 2)
}
