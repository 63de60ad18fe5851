package isam

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

func sortedRecords(faker *gofakeit.Faker, n int64, step int64) (records []record.Record) {
	for id := int64(0); id < n; id++ {
		records = append(records, record.New(
			record.IntValue(id*step),
			record.CharValue(faker.LetterN(8)),
		))
	}

	return
}

func TestBuild(t *testing.T) {
	t.Run("builds index levels bottom up until one root", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		// 30 records / 3 per block = 10 data blocks, fanout 2 gives levels of
		// 5, 3, 2 and 1 index blocks
		records := sortedRecords(faker, 30, 1)

		// Execute
		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 2}, records, &blockio.Counters{})

		// Check
		assert.NoError(t, err, "build ISAM structure")
		assert.Equal(t, int64(10), i.dataBlocks, "ten data blocks laid down")
		assert.Equal(t, int64(4), i.levels, "four index levels erected")

		for id := int64(0); id < 30; id++ {
			rec, searchErr := i.Search(record.IntValue(id))
			assert.NoError(t, searchErr, fmt.Sprintf("search record %d", id))
			assert.Equal(t, record.IntValue(id), rec.Key(schema), "found the right record")
		}

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects an empty initial data set", func(t *testing.T) {
		// Execute
		_, err := Build(filepath.Join(t.TempDir(), "test"), testSchema(t), Params{}, nil, &blockio.Counters{})

		// Check
		assert.Error(t, err, "empty data set rejected")
	})

	t.Run("rejects an unsorted initial data set", func(t *testing.T) {
		// Prepare
		records := []record.Record{
			record.New(record.IntValue(2), record.CharValue("b")),
			record.New(record.IntValue(1), record.CharValue("a")),
		}

		// Execute
		_, err := Build(filepath.Join(t.TempDir(), "test"), testSchema(t), Params{}, records, &blockio.Counters{})

		// Check
		assert.Error(t, err, "unsorted data set rejected")
	})
}

func TestISAM_Insert(t *testing.T) {
	t.Run("fills the target block and then its overflow chain", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		// Keys 0, 10, 20, ... leave gaps to insert into
		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 4}, sortedRecords(faker, 9, 10), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")
		blocksBefore := i.data.BlockCount()

		// Execute
		for _, id := range []int64{1, 2, 3, 4, 5} {
			err = i.Insert(record.New(record.IntValue(id), record.CharValue("late")))
			assert.NoError(t, err, fmt.Sprintf("insert record %d", id))
		}

		// Check
		assert.Greater(t, i.data.BlockCount(), blocksBefore, "overflow blocks allocated")

		for _, id := range []int64{1, 2, 3, 4, 5} {
			rec, searchErr := i.Search(record.IntValue(id))
			assert.NoError(t, searchErr, fmt.Sprintf("search record %d", id))
			assert.Equal(t, record.IntValue(id), rec.Key(schema), "found the right record")
		}

		records, err := i.ScanAll()
		assert.NoError(t, err, "scan all")
		assert.Len(t, records, 14, "all records live")
		assert.True(t, utils.IsSortedByKey(schema, records), "scan sorted by key")

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects a duplicate key and leaves the structure unchanged", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 4}, sortedRecords(faker, 50, 10), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")

		err = i.Insert(record.New(record.IntValue(403), record.CharValue("first")))
		assert.NoError(t, err, "insert new key")
		before, err := i.ScanAll()
		assert.NoError(t, err, "scan before")

		// Execute
		err = i.Insert(record.New(record.IntValue(403), record.CharValue("second")))

		// Check
		assert.True(t, errors.Is(err, idxerr.DuplicateKey{}), "duplicate key rejected")

		after, err := i.ScanAll()
		assert.NoError(t, err, "scan after")
		assert.Equal(t, before, after, "structure unchanged by the rejected insert")

		rec, err := i.Search(record.IntValue(403))
		assert.NoError(t, err, "search key")
		assert.Equal(t, record.CharValue("first"), rec.Value(1), "original record kept")

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})
}

func TestISAM_RangeSearch(t *testing.T) {
	t.Run("collects primary blocks and their chains in key order", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 4}, sortedRecords(faker, 10, 10), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")

		// Chain records with keys between the primary ones
		for _, id := range []int64{15, 25, 35} {
			err = i.Insert(record.New(record.IntValue(id), record.CharValue("late")))
			assert.NoError(t, err, fmt.Sprintf("insert record %d", id))
		}

		// Execute
		records, err := i.RangeSearch(record.IntValue(15), record.IntValue(40))

		// Check
		assert.NoError(t, err, "range search")
		assert.Len(t, records, 6, "range holds six records")
		assert.True(t, utils.IsSortedByKey(schema, records), "records sorted by key")
		assert.Equal(t, record.IntValue(15), records[0].Key(schema), "range starts at low")
		assert.Equal(t, record.IntValue(40), records[len(records)-1].Key(schema), "range ends at high")

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})
}

func TestISAM_Delete(t *testing.T) {
	t.Run("tombstones in place and frees the slot for reinsertion", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 4}, sortedRecords(faker, 10, 10), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")

		// Execute
		err = i.Delete(record.IntValue(30))
		assert.NoError(t, err, "delete record")

		// Check
		_, err = i.Search(record.IntValue(30))
		assert.True(t, errors.Is(err, idxerr.KeyNotFound{}), "deleted key gone")

		records, err := i.ScanAll()
		assert.NoError(t, err, "scan all")
		assert.Len(t, records, 9, "nine live records remain")

		err = i.Insert(record.New(record.IntValue(30), record.CharValue("again")))
		assert.NoError(t, err, "tombstoned key can be reinserted")

		rec, err := i.Search(record.IntValue(30))
		assert.NoError(t, err, "search reinserted key")
		assert.Equal(t, record.CharValue("again"), rec.Value(1), "reinserted record found")

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("reports deleting a missing key", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		faker := gofakeit.New(0)

		i, err := Build(name, testSchema(t), Params{BlockFactor: 3, IndexFanout: 4}, sortedRecords(faker, 5, 10), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")

		// Execute
		err = i.Delete(record.IntValue(7))

		// Check
		assert.True(t, errors.Is(err, idxerr.KeyNotFound{}), "missing key reported")

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})
}

func TestOpen(t *testing.T) {
	t.Run("reopens from existing files with the index intact", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 2}, sortedRecords(faker, 30, 1), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")
		i.Close()

		// Execute
		i, err = Open(name, schema, &blockio.Counters{})

		// Check
		assert.NoError(t, err, "reopen ISAM structure")
		assert.Equal(t, int64(3), i.blockFactor, "block factor restored")
		assert.Equal(t, int64(2), i.indexFanout, "index fanout restored")
		assert.Equal(t, int64(10), i.dataBlocks, "data block count restored")

		rec, err := i.Search(record.IntValue(17))
		assert.NoError(t, err, "search after reopen")
		assert.Equal(t, record.IntValue(17), rec.Key(schema), "found the right record")

		// Clean up
		i.Close()
		err = i.Remove()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects a schema that disagrees with the stored layout", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test")
		schema := testSchema(t)
		faker := gofakeit.New(0)

		i, err := Build(name, schema, Params{BlockFactor: 3, IndexFanout: 4}, sortedRecords(faker, 5, 1), &blockio.Counters{})
		assert.NoError(t, err, "build ISAM structure")
		i.Close()

		other, err := record.NewSchema([]record.Field{
			{Name: "id", Type: record.IntField},
			{Name: "name", Type: record.CharField, Width: 48},
		}, "id")
		assert.NoError(t, err, "create other schema")

		// Execute
		_, err = Open(name, other, &blockio.Counters{})

		// Check
		assert.True(t, errors.Is(err, idxerr.SchemaMismatch{}), "wrong schema rejected on reopen")

		// Clean up
		_ = os.Remove(DataFileName(name))
		_ = os.Remove(IndexFileName(name))
	})
}
