// Package rtree implements a disk resident R-tree. Leaf blocks hold whole
// records and every internal entry carries the bounding rectangle of its
// subtree, so spatial searches prune subtrees whose rectangle can not contain a
// match. Overfull nodes are split with the quadratic method and deletions that
// leave a node underfull dissolve it and reinsert its records.
package rtree

import (
	"encoding/binary"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Params - Tunable parameters of a new R-tree
//   - MinEntries is the minimum node occupancy, 0 means DefaultMinEntries
//   - MaxEntries is the maximum node occupancy, 0 means DefaultMaxEntries
//   - SpatialField is the name of the point field the tree is organized on
type Params struct {
	MinEntries   int64
	MaxEntries   int64
	SpatialField string
}

// Tree - An R-tree over one block file
type Tree struct {
	schema       *record.Schema
	counters     *blockio.Counters
	file         *blockio.File
	spatialField int
	minEntries   int64
	maxEntries   int64
	root         blockio.BlockID
	height       int64
}

// FileName - Returns the name of the tree's backing file
func FileName(name string) string {
	return fmt.Sprintf("%s-rtree.bin", name)
}

// Create - Creates a new R-tree with an empty leaf as its root
//   - name is the path prefix of the backing file
//   - schema describes the records to be stored, SpatialField must name one of
//     its point fields
//   - params are the structure parameters
//   - counters is the structure wide disk access counters
func Create(name string, schema *record.Schema, params Params, counters *blockio.Counters) (t *Tree, err error) {
	if params.MinEntries == 0 {
		params.MinEntries = DefaultMinEntries
	}
	if params.MaxEntries == 0 {
		params.MaxEntries = DefaultMaxEntries
	}
	if params.MinEntries < 1 || params.MinEntries > params.MaxEntries/2 {
		err = fmt.Errorf("min entries must be between 1 and half of max entries")
		return
	}

	spatialField, ok := schema.FieldIndex(params.SpatialField)
	if !ok || schema.Fields()[spatialField].Type != record.PointField {
		err = fmt.Errorf("spatial field %s is not a point field of the schema: %w", params.SpatialField, idxerr.SchemaMismatch{})
		return
	}

	entryLength := schema.RecordWidth()
	if internalEntryLength > entryLength {
		entryLength = internalEntryLength
	}
	blockSize := nodeHeaderLength + params.MaxEntries*entryLength

	file, err := blockio.Create(FileName(name), blockSize, counters)
	if err != nil {
		return
	}

	t = &Tree{
		schema:       schema,
		counters:     counters,
		file:         file,
		spatialField: spatialField,
		minEntries:   params.MinEntries,
		maxEntries:   params.MaxEntries,
		height:       1,
	}

	root, err := t.newNode(true)
	if err != nil {
		t.Close()
		t = nil
		return
	}
	t.root = root.id

	err = t.writeParams()
	if err != nil {
		t.Close()
		t = nil
	}

	return
}

// Open - Opens an existing R-tree and validates the stored parameters against
// the supplied schema
func Open(name string, schema *record.Schema, counters *blockio.Counters) (t *Tree, err error) {
	file, err := blockio.Open(FileName(name), counters)
	if err != nil {
		return
	}

	t = &Tree{schema: schema, counters: counters, file: file}

	err = t.readParams()
	if err != nil {
		t.Close()
		t = nil
		return
	}

	if t.spatialField >= len(schema.Fields()) || schema.Fields()[t.spatialField].Type != record.PointField {
		t.Close()
		t = nil
		err = fmt.Errorf("schema doesn't match the stored spatial field: %w", idxerr.SchemaMismatch{})
	}

	return
}

// Height - Returns the current height of the tree
func (T *Tree) Height() int64 {
	return T.height
}

// Close - Syncs and closes the backing file
func (T *Tree) Close() {
	T.file.Close()
}

// Remove - Removes the backing file, make sure to close it first
func (T *Tree) Remove() (err error) {
	return T.file.Remove()
}

// recordPoint - Returns the point the record is indexed on
func (T *Tree) recordPoint(rec record.Record) record.Point {
	return rec.Value(T.spatialField).(record.Point)
}

// writeParams - Persists the structure parameters to the file header
func (T *Tree) writeParams() (err error) {
	buf := make([]byte, recordWidthOffset+8)
	binary.LittleEndian.PutUint64(buf[minEntriesOffset:], uint64(T.minEntries))
	binary.LittleEndian.PutUint64(buf[maxEntriesOffset:], uint64(T.maxEntries))
	binary.LittleEndian.PutUint64(buf[rootOffset:], uint64(T.root))
	binary.LittleEndian.PutUint64(buf[heightOffset:], uint64(T.height))
	binary.LittleEndian.PutUint64(buf[spatialFieldOffset:], uint64(T.spatialField))
	binary.LittleEndian.PutUint64(buf[recordWidthOffset:], uint64(T.schema.RecordWidth()))

	err = T.file.WriteParams(buf)

	return
}

// readParams - Loads the structure parameters from the file header
func (T *Tree) readParams() (err error) {
	buf, err := T.file.ReadParams()
	if err != nil {
		return
	}

	T.minEntries = int64(binary.LittleEndian.Uint64(buf[minEntriesOffset:]))
	T.maxEntries = int64(binary.LittleEndian.Uint64(buf[maxEntriesOffset:]))
	T.root = blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[rootOffset:])))
	T.height = int64(binary.LittleEndian.Uint64(buf[heightOffset:]))
	T.spatialField = int(binary.LittleEndian.Uint64(buf[spatialFieldOffset:]))

	if int64(binary.LittleEndian.Uint64(buf[recordWidthOffset:])) != T.schema.RecordWidth() {
		err = fmt.Errorf("stored record width doesn't match the supplied schema: %w", idxerr.SchemaMismatch{})
	}

	return
}
