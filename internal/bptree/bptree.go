package bptree

import (
	"encoding/binary"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Params - Configuration for a new B+Tree.
//   - Order is the maximum number of children of an internal node; every node holds
//     at most Order-1 keys and every non-root node at least ceil(Order/2)-1
type Params struct {
	Order int64
}

// Tree - A disk resident B+Tree over fixed size node blocks. Keys live in the nodes,
// payloads only in the leaves, and the leaves form a singly linked list in key order
// for range scans. What a payload holds is up to the caller: a clustered tree stores
// whole packed records, an unclustered tree stores packed primary key references.
type Tree struct {
	schema       *record.Schema
	counters     *blockio.Counters
	file         *blockio.File
	keyField     record.Field
	payloadWidth int64
	order        int64
	root         blockio.BlockID
	height       int64
}

// TreeFileName - Returns the backing file name given the structure name
func TreeFileName(name string) string {
	return fmt.Sprintf("%s-btree.bin", name)
}

// Create - Creates a new empty B+Tree keyed on the given field.
//   - keyField is the field the tree orders by; for a clustered tree the schema's
//     key field, for an unclustered tree any ordered field of the schema
//   - payloadWidth is the fixed width of the leaf payloads
func Create(name string, schema *record.Schema, keyField record.Field, payloadWidth int64, params Params, counters *blockio.Counters) (t *Tree, err error) {
	if params.Order <= 0 {
		params.Order = DefaultOrder
	}
	if params.Order < MinOrder {
		err = fmt.Errorf("tree order must be at least %d", MinOrder)
		return
	}

	maxKeys := params.Order - 1
	keyArea := maxKeys * keyField.SerializedWidth()
	bodyArea := maxKeys * payloadWidth
	if childArea := params.Order * 8; childArea > bodyArea {
		bodyArea = childArea
	}
	blockSize := nodeHeaderLength + keyArea + bodyArea

	file, err := blockio.Create(TreeFileName(name), blockSize, counters)
	if err != nil {
		return
	}

	t = &Tree{
		schema:       schema,
		counters:     counters,
		file:         file,
		keyField:     keyField,
		payloadWidth: payloadWidth,
		order:        params.Order,
		height:       1,
	}

	rootLeaf, err := t.newNode(true)
	if err == nil {
		err = t.writeNode(rootLeaf)
	}
	if err != nil {
		t.Close()
		_ = t.Remove()
		t = nil
		return
	}
	t.root = rootLeaf.id

	err = t.writeParams()
	if err != nil {
		t.Close()
		t = nil
	}

	return
}

// Open - Opens an existing B+Tree and validates that the stored node layout agrees
// with the supplied key field and payload width
func Open(name string, schema *record.Schema, keyField record.Field, payloadWidth int64, counters *blockio.Counters) (t *Tree, err error) {
	file, err := blockio.Open(TreeFileName(name), counters)
	if err != nil {
		return
	}

	t = &Tree{schema: schema, counters: counters, file: file, keyField: keyField}

	err = t.readParams()
	if err != nil {
		t.Close()
		t = nil
		return
	}

	if t.payloadWidth != payloadWidth {
		t.Close()
		t = nil
		err = fmt.Errorf("stored payload width doesn't match the supplied schema: %w", idxerr.SchemaMismatch{})
	}

	return
}

// Close - Syncs and closes the backing file
func (T *Tree) Close() {
	T.file.Close()
}

// Remove - Removes the backing file, make sure to close it first
func (T *Tree) Remove() (err error) {
	err = T.file.Remove()

	return
}

// Order - Returns the tree order
func (T *Tree) Order() int64 {
	return T.order
}

// Height - Returns the current tree height, a tree holding only a root leaf has
// height one
func (T *Tree) Height() int64 {
	return T.height
}

// minKeys - The minimum number of keys a non-root node must hold
func (T *Tree) minKeys() int64 {
	return (T.order+1)/2 - 1
}

// writeParams - Persists tree parameters in the file header
func (T *Tree) writeParams() (err error) {
	buf := make([]byte, payloadWidthOffset+8)
	binary.LittleEndian.PutUint64(buf[orderOffset:], uint64(T.order))
	binary.LittleEndian.PutUint64(buf[rootOffset:], uint64(T.root))
	binary.LittleEndian.PutUint64(buf[heightOffset:], uint64(T.height))
	binary.LittleEndian.PutUint64(buf[payloadWidthOffset:], uint64(T.payloadWidth))
	err = T.file.WriteParams(buf)

	return
}

// readParams - Restores tree parameters from the file header
func (T *Tree) readParams() (err error) {
	buf, err := T.file.ReadParams()
	if err != nil {
		return
	}
	T.order = int64(binary.LittleEndian.Uint64(buf[orderOffset:]))
	T.root = blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[rootOffset:])))
	T.height = int64(binary.LittleEndian.Uint64(buf[heightOffset:]))
	T.payloadWidth = int64(binary.LittleEndian.Uint64(buf[payloadWidthOffset:]))

	return
}
