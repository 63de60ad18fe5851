package bptree

import (
	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Delete - Removes the key and its payload from the tree. An underfull node first
// borrows from a sibling and merges with one only when neither sibling can spare
// an entry. When a merge empties the root the tree shrinks by one level and the
// old root block is recycled.
func (T *Tree) Delete(key record.Value) (err error) {
	if key == nil || key.Kind() != T.keyField.Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	_, err = T.deleteFrom(T.root, key)
	if err != nil {
		return
	}

	root, err := T.readNode(T.root)
	if err != nil {
		return
	}
	if !root.leaf && len(root.keys) == 0 {
		err = T.file.Free(root.id)
		if err != nil {
			return
		}
		T.root = root.children[0]
		T.height--
		err = T.writeParams()
	}

	return
}

// deleteFrom - Recursive delete in the subtree rooted at id. Underflow in a child
// is repaired here, where both siblings and the separating keys are at hand.
func (T *Tree) deleteFrom(id blockio.BlockID, key record.Value) (underflow bool, err error) {
	n, err := T.readNode(id)
	if err != nil {
		return
	}

	pos, found, err := T.searchKeys(n, key)
	if err != nil {
		return
	}

	if n.leaf {
		if !found {
			err = idxerr.KeyNotFound{}
			return
		}
		n.removeKeyAt(pos)
		n.removePayloadAt(pos)
		err = T.writeNode(n)
		underflow = int64(len(n.keys)) < T.minKeys()
		return
	}

	if found {
		pos++
	}

	childUnderflow, err := T.deleteFrom(n.children[pos], key)
	if err != nil || !childUnderflow {
		return
	}

	err = T.repairChild(n, pos)
	if err != nil {
		return
	}
	underflow = int64(len(n.keys)) < T.minKeys()

	return
}

// repairChild - Restores the minimum occupancy of the child at index pos by
// borrowing from a sibling with keys to spare, or by merging with one.
func (T *Tree) repairChild(parent *node, pos int) (err error) {
	child, err := T.readNode(parent.children[pos])
	if err != nil {
		return
	}

	var left, right *node
	if pos > 0 {
		left, err = T.readNode(parent.children[pos-1])
		if err != nil {
			return
		}
	}
	if pos < len(parent.children)-1 {
		right, err = T.readNode(parent.children[pos+1])
		if err != nil {
			return
		}
	}

	if left != nil && int64(len(left.keys)) > T.minKeys() {
		err = T.borrowFromLeft(parent, pos, left, child)

		return
	}
	if right != nil && int64(len(right.keys)) > T.minKeys() {
		err = T.borrowFromRight(parent, pos, child, right)

		return
	}

	if left != nil {
		err = T.merge(parent, pos-1, left, child)
	} else {
		err = T.merge(parent, pos, child, right)
	}

	return
}

// borrowFromLeft - Moves the last entry of the left sibling into the child and
// refreshes the separator between them.
func (T *Tree) borrowFromLeft(parent *node, pos int, left, child *node) (err error) {
	last := len(left.keys) - 1

	if child.leaf {
		child.insertKeyAt(0, left.keys[last])
		child.insertPayloadAt(0, left.payloads[last])
		left.removeKeyAt(last)
		left.removePayloadAt(last)
		parent.keys[pos-1] = child.keys[0]
	} else {
		// Rotate through the parent separator
		child.insertKeyAt(0, parent.keys[pos-1])
		child.insertChildAt(0, left.children[len(left.children)-1])
		parent.keys[pos-1] = left.keys[last]
		left.removeKeyAt(last)
		left.removeChildAt(len(left.children) - 1)
	}

	err = T.writeNode(left)
	if err != nil {
		return
	}
	err = T.writeNode(child)
	if err != nil {
		return
	}
	err = T.writeNode(parent)

	return
}

// borrowFromRight - Moves the first entry of the right sibling into the child and
// refreshes the separator between them.
func (T *Tree) borrowFromRight(parent *node, pos int, child, right *node) (err error) {
	if child.leaf {
		child.insertKeyAt(len(child.keys), right.keys[0])
		child.insertPayloadAt(len(child.payloads), right.payloads[0])
		right.removeKeyAt(0)
		right.removePayloadAt(0)
		parent.keys[pos] = right.keys[0]
	} else {
		child.insertKeyAt(len(child.keys), parent.keys[pos])
		child.insertChildAt(len(child.children), right.children[0])
		parent.keys[pos] = right.keys[0]
		right.removeKeyAt(0)
		right.removeChildAt(0)
	}

	err = T.writeNode(right)
	if err != nil {
		return
	}
	err = T.writeNode(child)
	if err != nil {
		return
	}
	err = T.writeNode(parent)

	return
}

// merge - Folds the right node into the left one, drops the separator at key
// index sep from the parent and recycles the right node's block. For leaves the
// sibling chain is re-stitched, for internal nodes the separator is pulled down
// between the two halves.
func (T *Tree) merge(parent *node, sep int, left, right *node) (err error) {
	if left.leaf {
		left.keys = append(left.keys, right.keys...)
		left.payloads = append(left.payloads, right.payloads...)
		left.next = right.next
	} else {
		left.keys = append(left.keys, parent.keys[sep])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
	}

	parent.removeKeyAt(sep)
	parent.removeChildAt(sep + 1)

	err = T.writeNode(left)
	if err != nil {
		return
	}
	err = T.writeNode(parent)
	if err != nil {
		return
	}
	err = T.file.Free(right.id)

	return
}
