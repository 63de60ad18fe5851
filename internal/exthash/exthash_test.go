package exthash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/utils"
	"github.com/sondeo/fileindex/record"
	"github.com/stretchr/testify/assert"
)

func testSchema(t *testing.T) *record.Schema {
	schema, err := record.NewSchema([]record.Field{
		{Name: "id", Type: record.IntField},
		{Name: "name", Type: record.CharField, Width: 16},
	}, "id")
	assert.NoError(t, err, "create schema")

	return schema
}

func testRecord(faker *gofakeit.Faker, id int64) record.Record {
	return record.New(record.IntValue(id), record.CharValue(faker.LetterN(8)))
}

func TestCreate(t *testing.T) {
	t.Run("starts with a single bucket at global depth zero", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")

		// Execute
		h, err := Create(name, testSchema(t), Params{BlockFactor: 4}, &blockio.Counters{})

		// Check
		assert.NoError(t, err, "create hash file")
		assert.Zero(t, h.GlobalDepth(), "global depth starts at zero")
		assert.Equal(t, int64(1), h.DirectorySize(), "directory holds one pointer")

		_, err = os.Stat(BucketFileName(name))
		assert.NoError(t, err, "bucket file exists")
		_, err = os.Stat(DirFileName(name))
		assert.NoError(t, err, "directory file exists")

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})
}

func TestHashFile_Insert(t *testing.T) {
	t.Run("doubles the directory as buckets fill", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		h, err := Create(name, schema, Params{BlockFactor: 8}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")

		// Execute
		for id := int64(0); id < 64; id++ {
			err = h.Insert(testRecord(faker, id))
			assert.NoError(t, err, fmt.Sprintf("insert record %d", id))
		}

		// Check
		assert.GreaterOrEqual(t, h.GlobalDepth(), int64(3), "directory doubled at least three times")
		assert.Equal(t, int64(1)<<h.GlobalDepth(), h.DirectorySize(), "directory size is a power of two")

		for id := int64(0); id < 64; id++ {
			rec, searchErr := h.Search(record.IntValue(id))
			assert.NoError(t, searchErr, fmt.Sprintf("search record %d", id))
			assert.Equal(t, record.IntValue(id), rec.Key(schema), "found the right record")
		}

		records, err := h.ScanAll()
		assert.NoError(t, err, "scan all")
		assert.Len(t, records, 64, "every record stored once")
		assert.True(t, utils.IsSortedByKey(schema, records), "scan sorted by key")

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects a duplicate key", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		faker := gofakeit.New(0)

		h, err := Create(name, testSchema(t), Params{BlockFactor: 4}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")

		err = h.Insert(testRecord(faker, 9))
		assert.NoError(t, err, "insert record")

		// Execute
		err = h.Insert(testRecord(faker, 9))

		// Check
		assert.True(t, errors.Is(err, idxerr.DuplicateKey{}), "duplicate key rejected")

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("reports capacity exhaustion at the max global depth", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		faker := gofakeit.New(0)

		// With one slot per bucket and a shallow directory the colliding low
		// bits run out of depth quickly
		h, err := Create(name, testSchema(t), Params{BlockFactor: 1, MaxGlobalDepth: 2}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")

		// Execute
		var capErr error
		for id := int64(0); id < 32; id++ {
			if err = h.Insert(testRecord(faker, id)); err != nil {
				capErr = err
				break
			}
		}

		// Check
		assert.True(t, errors.Is(capErr, idxerr.CapacityExceeded{}), "exhausted directory reported")

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})
}

func TestHashFile_Delete(t *testing.T) {
	t.Run("clears the slot without merging buckets", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		h, err := Create(name, schema, Params{BlockFactor: 4}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")

		for id := int64(0); id < 32; id++ {
			err = h.Insert(testRecord(faker, id))
			assert.NoError(t, err, fmt.Sprintf("insert record %d", id))
		}
		depthBefore := h.GlobalDepth()

		// Execute
		for id := int64(0); id < 16; id++ {
			err = h.Delete(record.IntValue(id))
			assert.NoError(t, err, fmt.Sprintf("delete record %d", id))
		}

		// Check
		assert.Equal(t, depthBefore, h.GlobalDepth(), "no directory shrink on delete")

		for id := int64(0); id < 16; id++ {
			_, searchErr := h.Search(record.IntValue(id))
			assert.True(t, errors.Is(searchErr, idxerr.KeyNotFound{}), fmt.Sprintf("deleted record %d gone", id))
		}
		for id := int64(16); id < 32; id++ {
			_, searchErr := h.Search(record.IntValue(id))
			assert.NoError(t, searchErr, fmt.Sprintf("record %d still there", id))
		}

		err = h.Insert(testRecord(faker, 3))
		assert.NoError(t, err, "freed slot reusable")

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("reports deleting a missing key", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")

		h, err := Create(name, testSchema(t), Params{BlockFactor: 4}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")

		// Execute
		err = h.Delete(record.IntValue(1))

		// Check
		assert.True(t, errors.Is(err, idxerr.KeyNotFound{}), "missing key reported")

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})
}

func TestOpen(t *testing.T) {
	t.Run("reopens from existing files with directory and buckets intact", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		h, err := Create(name, schema, Params{BlockFactor: 4}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")

		for id := int64(0); id < 32; id++ {
			err = h.Insert(testRecord(faker, id))
			assert.NoError(t, err, fmt.Sprintf("insert record %d", id))
		}
		depth := h.GlobalDepth()
		size := h.DirectorySize()
		h.Close()

		// Execute
		h, err = Open(name, schema, &blockio.Counters{})

		// Check
		assert.NoError(t, err, "reopen hash file")
		assert.Equal(t, depth, h.GlobalDepth(), "global depth restored")
		assert.Equal(t, size, h.DirectorySize(), "directory size restored")

		for id := int64(0); id < 32; id++ {
			rec, searchErr := h.Search(record.IntValue(id))
			assert.NoError(t, searchErr, fmt.Sprintf("search record %d", id))
			assert.Equal(t, record.IntValue(id), rec.Key(schema), "record survives reopen")
		}

		// Clean up
		h.Close()
		err = h.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects a schema that disagrees with the stored bucket layout", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")

		h, err := Create(name, testSchema(t), Params{BlockFactor: 4}, &blockio.Counters{})
		assert.NoError(t, err, "create hash file")
		h.Close()

		other, err := record.NewSchema([]record.Field{
			{Name: "id", Type: record.IntField},
			{Name: "name", Type: record.CharField, Width: 32},
		}, "id")
		assert.NoError(t, err, "create other schema")

		// Execute
		_, err = Open(name, other, &blockio.Counters{})

		// Check
		assert.True(t, errors.Is(err, idxerr.SchemaMismatch{}), "wrong schema rejected on reopen")

		// Clean up
		_ = os.Remove(BucketFileName(name))
		_ = os.Remove(DirFileName(name))
	})
}
