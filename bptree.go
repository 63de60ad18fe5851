package fileindex

import (
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/bptree"
	"github.com/sondeo/fileindex/record"
)

// BPlusTreeParams - Tunable parameters of a new B+tree
//   - Order is the maximum number of children per node, 0 selects a default
type BPlusTreeParams struct {
	Order int64
}

// BPlusTree - A clustered B+tree, the leaves hold the records themselves in
// key order so range scans walk the leaf chain sequentially
type BPlusTree struct {
	inner    *bptree.Tree
	schema   *record.Schema
	counters *blockio.Counters
}

var _ RangeIndex = (*BPlusTree)(nil)

// NewBPlusTree - Creates a new clustered B+tree on disk
//   - name is the path prefix of the backing file
//   - schema describes the records to be stored
//   - params are the structure parameters
func NewBPlusTree(name string, schema *record.Schema, params BPlusTreeParams) (b *BPlusTree, err error) {
	counters := &blockio.Counters{}
	inner, err := bptree.Create(name, schema, schema.Key(), schema.RecordWidth(), bptree.Params{
		Order: params.Order,
	}, counters)
	if err != nil {
		return
	}

	b = &BPlusTree{inner: inner, schema: schema, counters: counters}

	return
}

// OpenBPlusTree - Opens an existing clustered B+tree, validating the stored
// parameters against the supplied schema
func OpenBPlusTree(name string, schema *record.Schema) (b *BPlusTree, err error) {
	counters := &blockio.Counters{}
	inner, err := bptree.Open(name, schema, schema.Key(), schema.RecordWidth(), counters)
	if err != nil {
		return
	}

	b = &BPlusTree{inner: inner, schema: schema, counters: counters}

	return
}

// Insert - Inserts a record under its key field
func (B *BPlusTree) Insert(rec record.Record) (cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payload, err := B.schema.Pack(rec, record.StateOccupied)
	if err != nil {
		return
	}
	err = B.inner.Insert(rec.Key(B.schema), payload)

	return
}

// Search - Returns the record stored under the key
func (B *BPlusTree) Search(key record.Value) (rec record.Record, cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payload, err := B.inner.Search(key)
	if err != nil {
		return
	}
	rec, _, err = B.schema.Unpack(payload)

	return
}

// RangeSearch - Returns every record with low <= key <= high sorted by key
func (B *BPlusTree) RangeSearch(low, high record.Value) (records []record.Record, cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payloads, err := B.inner.RangeSearch(low, high)
	if err != nil {
		return
	}
	records, err = B.unpackAll(payloads)

	return
}

// Delete - Removes the record stored under the key
func (B *BPlusTree) Delete(key record.Value) (cost Cost, err error) {
	B.counters.BeginOp()
	err = B.inner.Delete(key)
	cost = opCost(B.counters)

	return
}

// ScanAll - Returns every record sorted by key
func (B *BPlusTree) ScanAll() (records []record.Record, cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payloads, err := B.inner.ScanAll()
	if err != nil {
		return
	}
	records, err = B.unpackAll(payloads)

	return
}

// Stats - Returns the lifetime disk access counts
func (B *BPlusTree) Stats() Stats {
	return totals(B.counters)
}

// Height - Returns the current height of the tree
func (B *BPlusTree) Height() int64 {
	return B.inner.Height()
}

// Close - Syncs and closes the backing file
func (B *BPlusTree) Close() {
	B.inner.Close()
}

// Remove - Removes the backing file, make sure to close it first
func (B *BPlusTree) Remove() (err error) {
	return B.inner.Remove()
}

// unpackAll - Unpacks a batch of leaf payloads into records
func (B *BPlusTree) unpackAll(payloads [][]byte) (records []record.Record, err error) {
	for _, payload := range payloads {
		rec, _, unpackErr := B.schema.Unpack(payload)
		if unpackErr != nil {
			err = unpackErr
			records = nil
			return
		}
		records = append(records, rec)
	}

	return
}

// SecondaryBPlusTree - An unclustered B+tree over a non key field. The leaves
// hold primary keys rather than records, every lookup that needs the record
// itself resolves it through the clustered primary tree and that resolution is
// charged to this structure's counters.
type SecondaryBPlusTree struct {
	inner    *bptree.Tree
	primary  *BPlusTree
	schema   *record.Schema
	field    record.Field
	counters *blockio.Counters
}

var _ RangeIndex = (*SecondaryBPlusTree)(nil)

// NewSecondaryBPlusTree - Creates a new unclustered B+tree over the named field
//   - name is the path prefix of the backing file
//   - fieldName names the schema field the tree is ordered on, values of that
//     field must be unique across the stored records
//   - primary is the clustered tree lookups resolve records through
func NewSecondaryBPlusTree(name string, schema *record.Schema, fieldName string, params BPlusTreeParams, primary *BPlusTree) (b *SecondaryBPlusTree, err error) {
	index, ok := schema.FieldIndex(fieldName)
	if !ok {
		err = fmt.Errorf("field %s is not part of the schema: %w", fieldName, idxerr.SchemaMismatch{})
		return
	}
	field := schema.Fields()[index]

	counters := &blockio.Counters{}
	inner, err := bptree.Create(name, schema, field, schema.Key().SerializedWidth(), bptree.Params{
		Order: params.Order,
	}, counters)
	if err != nil {
		return
	}

	b = &SecondaryBPlusTree{
		inner:    inner,
		primary:  primary,
		schema:   schema,
		field:    field,
		counters: counters,
	}

	return
}

// OpenSecondaryBPlusTree - Opens an existing unclustered B+tree
func OpenSecondaryBPlusTree(name string, schema *record.Schema, fieldName string, primary *BPlusTree) (b *SecondaryBPlusTree, err error) {
	index, ok := schema.FieldIndex(fieldName)
	if !ok {
		err = fmt.Errorf("field %s is not part of the schema: %w", fieldName, idxerr.SchemaMismatch{})
		return
	}
	field := schema.Fields()[index]

	counters := &blockio.Counters{}
	inner, err := bptree.Open(name, schema, field, schema.Key().SerializedWidth(), counters)
	if err != nil {
		return
	}

	b = &SecondaryBPlusTree{
		inner:    inner,
		primary:  primary,
		schema:   schema,
		field:    field,
		counters: counters,
	}

	return
}

// Insert - Registers a record in the secondary tree. The record itself is
// expected to live in the primary tree, only the indexed field and the primary
// key are stored here.
func (B *SecondaryBPlusTree) Insert(rec record.Record) (cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	if err = B.schema.CheckShape(rec); err != nil {
		return
	}
	index, _ := B.schema.FieldIndex(B.field.Name)
	payload, err := B.schema.Key().PackValue(rec.Key(B.schema))
	if err != nil {
		return
	}
	err = B.inner.Insert(rec.Value(index), payload)

	return
}

// Search - Returns the record whose indexed field holds the key, resolved
// through the primary tree
func (B *SecondaryBPlusTree) Search(key record.Value) (rec record.Record, cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payload, err := B.inner.Search(key)
	if err != nil {
		return
	}
	rec, err = B.resolve(payload)

	return
}

// RangeSearch - Returns every record whose indexed field lies in the range,
// sorted by the indexed field
func (B *SecondaryBPlusTree) RangeSearch(low, high record.Value) (records []record.Record, cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payloads, err := B.inner.RangeSearch(low, high)
	if err != nil {
		return
	}
	records, err = B.resolveAll(payloads)

	return
}

// Delete - Removes the entry whose indexed field holds the key. The record in
// the primary tree is left alone.
func (B *SecondaryBPlusTree) Delete(key record.Value) (cost Cost, err error) {
	B.counters.BeginOp()
	err = B.inner.Delete(key)
	cost = opCost(B.counters)

	return
}

// ScanAll - Returns every indexed record sorted by the indexed field
func (B *SecondaryBPlusTree) ScanAll() (records []record.Record, cost Cost, err error) {
	B.counters.BeginOp()
	defer func() { cost = opCost(B.counters) }()

	payloads, err := B.inner.ScanAll()
	if err != nil {
		return
	}
	records, err = B.resolveAll(payloads)

	return
}

// Stats - Returns the lifetime disk access counts, primary resolutions included
func (B *SecondaryBPlusTree) Stats() Stats {
	return totals(B.counters)
}

// Close - Syncs and closes the backing file, the primary tree stays open
func (B *SecondaryBPlusTree) Close() {
	B.inner.Close()
}

// Remove - Removes the backing file, make sure to close it first
func (B *SecondaryBPlusTree) Remove() (err error) {
	return B.inner.Remove()
}

// resolve - Unpacks a stored primary key and fetches its record from the
// primary tree, charging the primary's disk accesses to this structure
func (B *SecondaryBPlusTree) resolve(payload []byte) (rec record.Record, err error) {
	primaryKey := B.schema.Key().UnpackValue(payload)

	B.primary.counters.BeginOp()
	inner, err := B.primary.inner.Search(primaryKey)
	reads, writes := B.primary.counters.OpCost()
	B.counters.Add(reads, writes)
	if err != nil {
		return
	}

	rec, _, err = B.schema.Unpack(inner)

	return
}

// resolveAll - Resolves a batch of stored primary keys through the primary tree
func (B *SecondaryBPlusTree) resolveAll(payloads [][]byte) (records []record.Record, err error) {
	for _, payload := range payloads {
		rec, resolveErr := B.resolve(payload)
		if resolveErr != nil {
			err = resolveErr
			records = nil
			return
		}
		records = append(records, rec)
	}

	return
}
