package bptree

import (
	"encoding/binary"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// node - Decoded form of one tree node. An internal node holds one more child id
// than keys; a leaf holds one payload per key plus a pointer to its right sibling.
// During an insert a node may transiently hold one key more than the block can
// store, the overflow is resolved by a split before the node is written back.
type node struct {
	id       blockio.BlockID
	leaf     bool
	keys     []record.Value
	children []blockio.BlockID
	payloads [][]byte
	next     blockio.BlockID
}

// readNode - Reads and decodes the node stored in the given block
func (T *Tree) readNode(id blockio.BlockID) (n *node, err error) {
	buf, err := T.file.Read(id)
	if err != nil {
		return
	}

	kind := buf[nodeKindOffset]
	if kind != kindInternal && kind != kindLeaf {
		err = fmt.Errorf("block %d holds no tree node: %w", id, idxerr.CorruptPage{})
		return
	}

	n = &node{
		id:   id,
		leaf: kind == kindLeaf,
		next: blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[nodeNextOffset:]))),
	}

	count := int64(binary.LittleEndian.Uint16(buf[nodeCountOffset:]))
	keyWidth := T.keyField.SerializedWidth()
	for k := int64(0); k < count; k++ {
		offset := nodeHeaderLength + k*keyWidth
		n.keys = append(n.keys, T.keyField.UnpackValue(buf[offset:offset+keyWidth]))
	}

	body := nodeHeaderLength + (T.order-1)*keyWidth
	if n.leaf {
		for k := int64(0); k < count; k++ {
			offset := body + k*T.payloadWidth
			payload := make([]byte, T.payloadWidth)
			copy(payload, buf[offset:offset+T.payloadWidth])
			n.payloads = append(n.payloads, payload)
		}
	} else {
		for c := int64(0); c <= count; c++ {
			offset := body + c*8
			n.children = append(n.children, blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[offset:]))))
		}
	}

	return
}

// writeNode - Encodes and writes the node back to its block
func (T *Tree) writeNode(n *node) (err error) {
	if int64(len(n.keys)) > T.order-1 {
		err = fmt.Errorf("node %d holds %d keys, more than order %d allows: %w", n.id, len(n.keys), T.order, idxerr.CapacityExceeded{})
		return
	}

	buf := make([]byte, T.file.BlockSize())
	if n.leaf {
		buf[nodeKindOffset] = kindLeaf
	} else {
		buf[nodeKindOffset] = kindInternal
	}
	binary.LittleEndian.PutUint16(buf[nodeCountOffset:], uint16(len(n.keys)))
	binary.LittleEndian.PutUint64(buf[nodeNextOffset:], uint64(n.next))

	keyWidth := T.keyField.SerializedWidth()
	for k, key := range n.keys {
		var packed []byte
		packed, err = T.keyField.PackValue(key)
		if err != nil {
			return
		}
		copy(buf[nodeHeaderLength+int64(k)*keyWidth:], packed)
	}

	body := nodeHeaderLength + (T.order-1)*keyWidth
	if n.leaf {
		for k, payload := range n.payloads {
			copy(buf[body+int64(k)*T.payloadWidth:], payload)
		}
	} else {
		for c, child := range n.children {
			binary.LittleEndian.PutUint64(buf[body+int64(c)*8:], uint64(child))
		}
	}

	err = T.file.Write(n.id, buf)

	return
}

// newNode - Allocates a block for a fresh node of the given kind
func (T *Tree) newNode(leaf bool) (n *node, err error) {
	id, err := T.file.Allocate()
	if err != nil {
		return
	}

	n = &node{id: id, leaf: leaf, next: blockio.NilBlock}

	return
}

// insertKeyAt - Inserts a key at the given position
func (n *node) insertKeyAt(pos int, key record.Value) {
	n.keys = append(n.keys, nil)
	copy(n.keys[pos+1:], n.keys[pos:])
	n.keys[pos] = key
}

// insertPayloadAt - Inserts a leaf payload at the given position
func (n *node) insertPayloadAt(pos int, payload []byte) {
	n.payloads = append(n.payloads, nil)
	copy(n.payloads[pos+1:], n.payloads[pos:])
	n.payloads[pos] = payload
}

// insertChildAt - Inserts a child id at the given position
func (n *node) insertChildAt(pos int, child blockio.BlockID) {
	n.children = append(n.children, blockio.NilBlock)
	copy(n.children[pos+1:], n.children[pos:])
	n.children[pos] = child
}

// removeKeyAt - Removes the key at the given position
func (n *node) removeKeyAt(pos int) {
	n.keys = append(n.keys[:pos], n.keys[pos+1:]...)
}

// removePayloadAt - Removes the leaf payload at the given position
func (n *node) removePayloadAt(pos int) {
	n.payloads = append(n.payloads[:pos], n.payloads[pos+1:]...)
}

// removeChildAt - Removes the child id at the given position
func (n *node) removeChildAt(pos int) {
	n.children = append(n.children[:pos], n.children[pos+1:]...)
}
