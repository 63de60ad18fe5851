package rtree

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// node - The in memory form of one tree node. A leaf holds records, an internal
// node holds one bounding rectangle and block id per child subtree.
type node struct {
	id       blockio.BlockID
	leaf     bool
	parent   blockio.BlockID
	rects    []record.Rect
	children []blockio.BlockID
	records  []record.Record
}

// count - Returns the number of entries in the node
func (n *node) count() int64 {
	if n.leaf {
		return int64(len(n.records))
	}
	return int64(len(n.children))
}

// rect - Returns the bounding rectangle of all entries in the node
func (T *Tree) rect(n *node) (bb record.Rect) {
	if n.leaf {
		for i, rec := range n.records {
			r := T.recordPoint(rec).ToRect()
			if i == 0 {
				bb = r
			} else {
				bb = bb.Union(r)
			}
		}
		return
	}

	for i, r := range n.rects {
		if i == 0 {
			bb = r
		} else {
			bb = bb.Union(r)
		}
	}

	return
}

// readNode - Reads and decodes the node in the given block
func (T *Tree) readNode(id blockio.BlockID) (n *node, err error) {
	buf, err := T.file.Read(id)
	if err != nil {
		return
	}

	leaf := buf[leafOffset]
	if leaf > 1 {
		err = fmt.Errorf("block %d holds no tree node: %w", id, idxerr.CorruptPage{})
		return
	}

	count := int64(binary.LittleEndian.Uint16(buf[countOffset:]))
	if count > T.maxEntries {
		err = fmt.Errorf("node %d claims %d entries with a max of %d: %w", id, count, T.maxEntries, idxerr.CorruptPage{})
		return
	}

	n = &node{
		id:     id,
		leaf:   leaf == 1,
		parent: blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[parentOffset:]))),
	}

	if n.leaf {
		width := T.schema.RecordWidth()
		for i := int64(0); i < count; i++ {
			rec, _, recErr := T.schema.Unpack(buf[nodeHeaderLength+i*width : nodeHeaderLength+(i+1)*width])
			if recErr != nil {
				n = nil
				err = recErr
				return
			}
			n.records = append(n.records, rec)
		}
		return
	}

	for i := int64(0); i < count; i++ {
		offset := nodeHeaderLength + i*internalEntryLength
		n.rects = append(n.rects, unpackRect(buf[offset:]))
		n.children = append(n.children, blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[offset+rectLength:]))))
	}

	return
}

// writeNode - Encodes and writes the node to its block
func (T *Tree) writeNode(n *node) (err error) {
	if n.count() > T.maxEntries {
		err = fmt.Errorf("node %d with %d entries exceeds the max of %d: %w", n.id, n.count(), T.maxEntries, idxerr.CapacityExceeded{})
		return
	}

	buf := make([]byte, T.file.BlockSize())
	if n.leaf {
		buf[leafOffset] = 1
	}
	binary.LittleEndian.PutUint16(buf[countOffset:], uint16(n.count()))
	binary.LittleEndian.PutUint64(buf[parentOffset:], uint64(n.parent))

	if n.leaf {
		width := T.schema.RecordWidth()
		for i, rec := range n.records {
			var packed []byte
			packed, err = T.schema.Pack(rec, record.StateOccupied)
			if err != nil {
				return
			}
			copy(buf[nodeHeaderLength+int64(i)*width:], packed)
		}
	} else {
		for i := range n.children {
			offset := nodeHeaderLength + int64(i)*internalEntryLength
			packRect(buf[offset:], n.rects[i])
			binary.LittleEndian.PutUint64(buf[offset+rectLength:], uint64(n.children[i]))
		}
	}

	err = T.file.Write(n.id, buf)

	return
}

// newNode - Allocates a block for a fresh empty node
func (T *Tree) newNode(leaf bool) (n *node, err error) {
	id, err := T.file.Allocate()
	if err != nil {
		return
	}

	n = &node{id: id, leaf: leaf, parent: blockio.NilBlock}
	err = T.writeNode(n)
	if err != nil {
		n = nil
	}

	return
}

// childIndex - Returns the position of the child in the internal node
func (n *node) childIndex(child blockio.BlockID) (pos int, err error) {
	for pos = range n.children {
		if n.children[pos] == child {
			return
		}
	}

	err = fmt.Errorf("node %d is not a child of node %d: %w", child, n.id, idxerr.CorruptPage{})

	return
}

// packRect - Encodes a rectangle as four little endian float64
func packRect(buf []byte, r record.Rect) {
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(r.Min.X))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(r.Min.Y))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(r.Max.X))
	binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(r.Max.Y))
}

// unpackRect - Decodes a rectangle packed by packRect
func unpackRect(buf []byte) record.Rect {
	return record.Rect{
		Min: record.Point{
			X: math.Float64frombits(binary.LittleEndian.Uint64(buf[0:])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
		},
		Max: record.Point{
			X: math.Float64frombits(binary.LittleEndian.Uint64(buf[16:])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(buf[24:])),
		},
	}
}
