package fileindex

import (
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/seqfile"
	"github.com/sondeo/fileindex/record"
)

// SequentialFileParams - Tunable parameters of a new sequential file
//   - BlockFactor is the number of record slots per block, 0 selects a default
//   - MaxAux is the number of auxiliary records that triggers a rebuild of the
//     sorted main area, 0 selects a default
type SequentialFileParams struct {
	BlockFactor int64
	MaxAux      int64
}

// SequentialFile - A sorted main area with an unsorted auxiliary area for new
// records. Once the auxiliary area exceeds its configured size both areas are
// rebuilt into one sorted main area, dropping tombstones on the way.
type SequentialFile struct {
	inner    *seqfile.SeqFile
	counters *blockio.Counters
}

var _ RangeIndex = (*SequentialFile)(nil)

// NewSequentialFile - Creates a new sequential file pair on disk
//   - name is the path prefix of the backing files
//   - schema describes the records to be stored
//   - params are the structure parameters
func NewSequentialFile(name string, schema *record.Schema, params SequentialFileParams) (s *SequentialFile, err error) {
	counters := &blockio.Counters{}
	inner, err := seqfile.Create(name, schema, seqfile.Params{
		BlockFactor: params.BlockFactor,
		MaxAux:      params.MaxAux,
	}, counters)
	if err != nil {
		return
	}

	s = &SequentialFile{inner: inner, counters: counters}

	return
}

// OpenSequentialFile - Opens an existing sequential file pair, validating the
// stored parameters against the supplied schema
func OpenSequentialFile(name string, schema *record.Schema) (s *SequentialFile, err error) {
	counters := &blockio.Counters{}
	inner, err := seqfile.Open(name, schema, counters)
	if err != nil {
		return
	}

	s = &SequentialFile{inner: inner, counters: counters}

	return
}

// Insert - Inserts a record under its key field
func (S *SequentialFile) Insert(rec record.Record) (cost Cost, err error) {
	S.counters.BeginOp()
	err = S.inner.Insert(rec)
	cost = opCost(S.counters)

	return
}

// Search - Returns the record stored under the key
func (S *SequentialFile) Search(key record.Value) (rec record.Record, cost Cost, err error) {
	S.counters.BeginOp()
	rec, err = S.inner.Search(key)
	cost = opCost(S.counters)

	return
}

// RangeSearch - Returns every record with low <= key <= high sorted by key
func (S *SequentialFile) RangeSearch(low, high record.Value) (records []record.Record, cost Cost, err error) {
	S.counters.BeginOp()
	records, err = S.inner.RangeSearch(low, high)
	cost = opCost(S.counters)

	return
}

// Delete - Removes the record stored under the key by marking its slot deleted
func (S *SequentialFile) Delete(key record.Value) (cost Cost, err error) {
	S.counters.BeginOp()
	err = S.inner.Delete(key)
	cost = opCost(S.counters)

	return
}

// ScanAll - Returns every live record from both areas sorted by key
func (S *SequentialFile) ScanAll() (records []record.Record, cost Cost, err error) {
	S.counters.BeginOp()
	records, err = S.inner.ScanAll()
	cost = opCost(S.counters)

	return
}

// Stats - Returns the lifetime disk access counts
func (S *SequentialFile) Stats() Stats {
	return totals(S.counters)
}

// Close - Syncs and closes the backing files
func (S *SequentialFile) Close() {
	S.inner.Close()
}

// Remove - Removes the backing files, make sure to close them first
func (S *SequentialFile) Remove() (err error) {
	return S.inner.Remove()
}
