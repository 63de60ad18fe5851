package fileindex

import (
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/isam"
	"github.com/sondeo/fileindex/record"
)

// ISAMParams - Tunable parameters of a new ISAM file
//   - BlockFactor is the number of record slots per data block, 0 selects a default
//   - IndexFanout is the number of entries per index block, 0 selects a default
type ISAMParams struct {
	BlockFactor int64
	IndexFanout int64
}

// ISAM - A static multi level sparse index over a sequence of data blocks.
// The index levels are laid out once at build time and never restructured,
// records inserted later go to per block overflow chains.
type ISAM struct {
	inner    *isam.ISAM
	counters *blockio.Counters
}

var _ RangeIndex = (*ISAM)(nil)

// BuildISAM - Creates a new ISAM file pair from a sorted initial load
//   - name is the path prefix of the backing files
//   - schema describes the records to be stored
//   - params are the structure parameters
//   - records is the initial load, it must be non empty and strictly sorted by key
func BuildISAM(name string, schema *record.Schema, params ISAMParams, records []record.Record) (i *ISAM, err error) {
	counters := &blockio.Counters{}
	inner, err := isam.Build(name, schema, isam.Params{
		BlockFactor: params.BlockFactor,
		IndexFanout: params.IndexFanout,
	}, records, counters)
	if err != nil {
		return
	}

	i = &ISAM{inner: inner, counters: counters}

	return
}

// OpenISAM - Opens an existing ISAM file pair, validating the stored parameters
// against the supplied schema
func OpenISAM(name string, schema *record.Schema) (i *ISAM, err error) {
	counters := &blockio.Counters{}
	inner, err := isam.Open(name, schema, counters)
	if err != nil {
		return
	}

	i = &ISAM{inner: inner, counters: counters}

	return
}

// Insert - Inserts a record, going to an overflow chain when its data block is full
func (I *ISAM) Insert(rec record.Record) (cost Cost, err error) {
	I.counters.BeginOp()
	err = I.inner.Insert(rec)
	cost = opCost(I.counters)

	return
}

// Search - Returns the record stored under the key
func (I *ISAM) Search(key record.Value) (rec record.Record, cost Cost, err error) {
	I.counters.BeginOp()
	rec, err = I.inner.Search(key)
	cost = opCost(I.counters)

	return
}

// RangeSearch - Returns every record with low <= key <= high sorted by key
func (I *ISAM) RangeSearch(low, high record.Value) (records []record.Record, cost Cost, err error) {
	I.counters.BeginOp()
	records, err = I.inner.RangeSearch(low, high)
	cost = opCost(I.counters)

	return
}

// Delete - Removes the record stored under the key by marking its slot deleted
func (I *ISAM) Delete(key record.Value) (cost Cost, err error) {
	I.counters.BeginOp()
	err = I.inner.Delete(key)
	cost = opCost(I.counters)

	return
}

// ScanAll - Returns every live record, overflow chains included, sorted by key
func (I *ISAM) ScanAll() (records []record.Record, cost Cost, err error) {
	I.counters.BeginOp()
	records, err = I.inner.ScanAll()
	cost = opCost(I.counters)

	return
}

// Stats - Returns the lifetime disk access counts
func (I *ISAM) Stats() Stats {
	return totals(I.counters)
}

// Close - Syncs and closes the backing files
func (I *ISAM) Close() {
	I.inner.Close()
}

// Remove - Removes the backing files, make sure to close them first
func (I *ISAM) Remove() (err error) {
	return I.inner.Remove()
}
