package bptree

import (
	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Insert - Descends to the target leaf and inserts the key with its payload in
// sorted position. An overfull leaf is split at the median and the split propagates
// upward, possibly creating a new root and growing the tree by one level.
func (T *Tree) Insert(key record.Value, payload []byte) (err error) {
	if key == nil || key.Kind() != T.keyField.Type || int64(len(payload)) != T.payloadWidth {
		err = idxerr.SchemaMismatch{}
		return
	}

	split, promoted, right, err := T.insertInto(T.root, key, payload)
	if err != nil {
		return
	}
	if !split {
		return
	}

	// The root itself split, grow the tree by one level
	newRoot, err := T.newNode(false)
	if err != nil {
		return
	}
	newRoot.keys = []record.Value{promoted}
	newRoot.children = []blockio.BlockID{T.root, right}
	err = T.writeNode(newRoot)
	if err != nil {
		return
	}

	T.root = newRoot.id
	T.height++
	err = T.writeParams()

	return
}

// insertInto - Recursive insert into the subtree rooted at id. When the node had to
// be split the new right sibling and the key separating it are handed to the caller.
func (T *Tree) insertInto(id blockio.BlockID, key record.Value, payload []byte) (split bool, promoted record.Value, right blockio.BlockID, err error) {
	n, err := T.readNode(id)
	if err != nil {
		return
	}

	if n.leaf {
		pos, found, posErr := T.searchKeys(n, key)
		if posErr != nil {
			err = posErr
			return
		}
		if found {
			err = idxerr.DuplicateKey{}
			return
		}

		n.insertKeyAt(pos, key)
		n.insertPayloadAt(pos, payload)

		if int64(len(n.keys)) <= T.order-1 {
			err = T.writeNode(n)
			return
		}

		split = true
		promoted, right, err = T.splitLeaf(n)
		return
	}

	pos, found, posErr := T.searchKeys(n, key)
	if posErr != nil {
		err = posErr
		return
	}
	if found {
		// Keys equal to the separator live in the right subtree
		pos++
	}

	childSplit, childPromoted, childRight, err := T.insertInto(n.children[pos], key, payload)
	if err != nil || !childSplit {
		return
	}

	n.insertKeyAt(pos, childPromoted)
	n.insertChildAt(pos+1, childRight)

	if int64(len(n.keys)) <= T.order-1 {
		err = T.writeNode(n)
		return
	}

	split = true
	promoted, right, err = T.splitInternal(n)

	return
}

// splitLeaf - Splits an overfull leaf at the median. The right sibling takes the
// upper half, its first key is copied up as the separator, and the leaf sibling
// links are stitched so ordered scans keep working.
func (T *Tree) splitLeaf(n *node) (promoted record.Value, right blockio.BlockID, err error) {
	sibling, err := T.newNode(true)
	if err != nil {
		return
	}

	mid := len(n.keys) / 2
	sibling.keys = append(sibling.keys, n.keys[mid:]...)
	sibling.payloads = append(sibling.payloads, n.payloads[mid:]...)
	n.keys = n.keys[:mid]
	n.payloads = n.payloads[:mid]

	sibling.next = n.next
	n.next = sibling.id

	err = T.writeNode(sibling)
	if err != nil {
		return
	}
	err = T.writeNode(n)
	if err != nil {
		return
	}

	promoted = sibling.keys[0]
	right = sibling.id

	return
}

// splitInternal - Splits an overfull internal node at the median. The median key
// moves up to the parent, it is stored in neither half.
func (T *Tree) splitInternal(n *node) (promoted record.Value, right blockio.BlockID, err error) {
	sibling, err := T.newNode(false)
	if err != nil {
		return
	}

	mid := len(n.keys) / 2
	promoted = n.keys[mid]

	sibling.keys = append(sibling.keys, n.keys[mid+1:]...)
	sibling.children = append(sibling.children, n.children[mid+1:]...)
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	err = T.writeNode(sibling)
	if err != nil {
		return
	}
	err = T.writeNode(n)
	if err != nil {
		return
	}

	right = sibling.id

	return
}

// searchKeys - Returns the position of the first key not below the target and
// whether that position holds the target itself. For an internal node the position
// doubles as the index of the child to descend into.
func (T *Tree) searchKeys(n *node, key record.Value) (pos int, found bool, err error) {
	left, right := 0, len(n.keys)
	for left < right {
		mid := (left + right) / 2
		cmp, cmpErr := record.Compare(n.keys[mid], key)
		if cmpErr != nil {
			err = cmpErr
			return
		}
		if cmp < 0 {
			left = mid + 1
		} else {
			right = mid
			found = cmp == 0
		}
	}
	pos = left

	return
}
