package fileindex

import (
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/exthash"
	"github.com/sondeo/fileindex/record"
)

// ExtendibleHashParams - Tunable parameters of a new extendible hashing file
//   - BlockFactor is the number of record slots per bucket, 0 selects a default
//   - MaxGlobalDepth caps how often the directory may double, 0 selects a default
type ExtendibleHashParams struct {
	BlockFactor    int64
	MaxGlobalDepth int64
}

// ExtendibleHash - An extendible hashing file. Point lookups hash straight to
// a bucket, there is no key order so the structure offers no range search.
type ExtendibleHash struct {
	inner    *exthash.HashFile
	counters *blockio.Counters
}

var _ Index = (*ExtendibleHash)(nil)

// NewExtendibleHash - Creates a new extendible hashing file pair on disk
//   - name is the path prefix of the backing files
//   - schema describes the records to be stored
//   - params are the structure parameters
func NewExtendibleHash(name string, schema *record.Schema, params ExtendibleHashParams) (h *ExtendibleHash, err error) {
	counters := &blockio.Counters{}
	inner, err := exthash.Create(name, schema, exthash.Params{
		BlockFactor:    params.BlockFactor,
		MaxGlobalDepth: params.MaxGlobalDepth,
	}, counters)
	if err != nil {
		return
	}

	h = &ExtendibleHash{inner: inner, counters: counters}

	return
}

// OpenExtendibleHash - Opens an existing extendible hashing file pair,
// validating the stored parameters against the supplied schema
func OpenExtendibleHash(name string, schema *record.Schema) (h *ExtendibleHash, err error) {
	counters := &blockio.Counters{}
	inner, err := exthash.Open(name, schema, counters)
	if err != nil {
		return
	}

	h = &ExtendibleHash{inner: inner, counters: counters}

	return
}

// Insert - Inserts a record, splitting its bucket and doubling the directory
// as needed
func (H *ExtendibleHash) Insert(rec record.Record) (cost Cost, err error) {
	H.counters.BeginOp()
	err = H.inner.Insert(rec)
	cost = opCost(H.counters)

	return
}

// Search - Returns the record stored under the key
func (H *ExtendibleHash) Search(key record.Value) (rec record.Record, cost Cost, err error) {
	H.counters.BeginOp()
	rec, err = H.inner.Search(key)
	cost = opCost(H.counters)

	return
}

// Delete - Removes the record stored under the key, buckets are never merged
func (H *ExtendibleHash) Delete(key record.Value) (cost Cost, err error) {
	H.counters.BeginOp()
	err = H.inner.Delete(key)
	cost = opCost(H.counters)

	return
}

// ScanAll - Returns every stored record sorted by key
func (H *ExtendibleHash) ScanAll() (records []record.Record, cost Cost, err error) {
	H.counters.BeginOp()
	records, err = H.inner.ScanAll()
	cost = opCost(H.counters)

	return
}

// Stats - Returns the lifetime disk access counts
func (H *ExtendibleHash) Stats() Stats {
	return totals(H.counters)
}

// GlobalDepth - Returns the current global depth of the directory
func (H *ExtendibleHash) GlobalDepth() int64 {
	return H.inner.GlobalDepth()
}

// DirectorySize - Returns the number of directory pointers
func (H *ExtendibleHash) DirectorySize() int64 {
	return H.inner.DirectorySize()
}

// Close - Syncs and closes the backing files
func (H *ExtendibleHash) Close() {
	H.inner.Close()
}

// Remove - Removes the backing files, make sure to close them first
func (H *ExtendibleHash) Remove() (err error) {
	return H.inner.Remove()
}
