package fileindex

import (
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/rtree"
	"github.com/sondeo/fileindex/record"
)

// RTreeParams - Tunable parameters of a new R-tree
//   - MinEntries is the minimum node occupancy, 0 selects a default
//   - MaxEntries is the maximum node occupancy, 0 selects a default
//   - SpatialField names the point field the tree is organized on
type RTreeParams struct {
	MinEntries   int64
	MaxEntries   int64
	SpatialField string
}

// RTree - An R-tree organized on one point field of the schema. Spatial range
// queries and nearest neighbor searches prune by bounding rectangle, key
// lookups scan the leaves since no key order exists.
type RTree struct {
	inner    *rtree.Tree
	counters *blockio.Counters
}

var _ SpatialIndex = (*RTree)(nil)

// NewRTree - Creates a new R-tree on disk
//   - name is the path prefix of the backing file
//   - schema describes the records to be stored, params.SpatialField must name
//     one of its point fields
//   - params are the structure parameters
func NewRTree(name string, schema *record.Schema, params RTreeParams) (r *RTree, err error) {
	counters := &blockio.Counters{}
	inner, err := rtree.Create(name, schema, rtree.Params{
		MinEntries:   params.MinEntries,
		MaxEntries:   params.MaxEntries,
		SpatialField: params.SpatialField,
	}, counters)
	if err != nil {
		return
	}

	r = &RTree{inner: inner, counters: counters}

	return
}

// OpenRTree - Opens an existing R-tree, validating the stored parameters
// against the supplied schema
func OpenRTree(name string, schema *record.Schema) (r *RTree, err error) {
	counters := &blockio.Counters{}
	inner, err := rtree.Open(name, schema, counters)
	if err != nil {
		return
	}

	r = &RTree{inner: inner, counters: counters}

	return
}

// Insert - Inserts a record, placed by its point field
func (R *RTree) Insert(rec record.Record) (cost Cost, err error) {
	R.counters.BeginOp()
	err = R.inner.Insert(rec)
	cost = opCost(R.counters)

	return
}

// Search - Returns the record stored under the key
func (R *RTree) Search(key record.Value) (rec record.Record, cost Cost, err error) {
	R.counters.BeginOp()
	rec, err = R.inner.Search(key)
	cost = opCost(R.counters)

	return
}

// SpatialRange - Returns every record whose point lies within the rectangle,
// sorted by key
func (R *RTree) SpatialRange(area record.Rect) (records []record.Record, cost Cost, err error) {
	R.counters.BeginOp()
	records, err = R.inner.SpatialRange(area)
	cost = opCost(R.counters)

	return
}

// NearestNeighbors - Returns the k records closest to the point, nearest first
func (R *RTree) NearestNeighbors(p record.Point, k int) (records []record.Record, cost Cost, err error) {
	R.counters.BeginOp()
	records, err = R.inner.NearestNeighbors(p, k)
	cost = opCost(R.counters)

	return
}

// Delete - Removes the record stored under the key
func (R *RTree) Delete(key record.Value) (cost Cost, err error) {
	R.counters.BeginOp()
	err = R.inner.Delete(key)
	cost = opCost(R.counters)

	return
}

// ScanAll - Returns every stored record sorted by key
func (R *RTree) ScanAll() (records []record.Record, cost Cost, err error) {
	R.counters.BeginOp()
	records, err = R.inner.ScanAll()
	cost = opCost(R.counters)

	return
}

// Stats - Returns the lifetime disk access counts
func (R *RTree) Stats() Stats {
	return totals(R.counters)
}

// Height - Returns the current height of the tree
func (R *RTree) Height() int64 {
	return R.inner.Height()
}

// Close - Syncs and closes the backing file
func (R *RTree) Close() {
	R.inner.Close()
}

// Remove - Removes the backing file, make sure to close it first
func (R *RTree) Remove() (err error) {
	return R.inner.Remove()
}
