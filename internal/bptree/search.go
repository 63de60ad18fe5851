package bptree

import (
	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Search - Descends to the leaf that might hold the key and returns the payload
// stored under it.
// It returns:
//   - payload is a copy of the stored payload bytes
//   - err is idxerr.KeyNotFound when the key is absent, or a standard Go error
func (T *Tree) Search(key record.Value) (payload []byte, err error) {
	if key == nil || key.Kind() != T.keyField.Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	n, err := T.findLeaf(key)
	if err != nil {
		return
	}

	pos, found, err := T.searchKeys(n, key)
	if err != nil {
		return
	}
	if !found {
		err = idxerr.KeyNotFound{}
		return
	}

	payload = append(payload, n.payloads[pos]...)

	return
}

// RangeSearch - Walks the leaf chain from the first key not below low and collects
// every payload until a key above high is seen. Results come out in key order.
func (T *Tree) RangeSearch(low, high record.Value) (payloads [][]byte, err error) {
	if low == nil || high == nil || low.Kind() != T.keyField.Type || high.Kind() != T.keyField.Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	n, err := T.findLeaf(low)
	if err != nil {
		return
	}

	pos, _, err := T.searchKeys(n, low)
	if err != nil {
		return
	}

	for {
		for ; pos < len(n.keys); pos++ {
			cmp, cmpErr := record.Compare(n.keys[pos], high)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp > 0 {
				return
			}
			payloads = append(payloads, append([]byte(nil), n.payloads[pos]...))
		}
		if n.next == blockio.NilBlock {
			return
		}
		n, err = T.readNode(n.next)
		if err != nil {
			return
		}
		pos = 0
	}
}

// ScanAll - Returns every payload in the tree in ascending key order by walking
// the leaf chain from the leftmost leaf.
func (T *Tree) ScanAll() (payloads [][]byte, err error) {
	id := T.root
	for {
		n, readErr := T.readNode(id)
		if readErr != nil {
			err = readErr
			return
		}
		if n.leaf {
			for {
				for _, p := range n.payloads {
					payloads = append(payloads, append([]byte(nil), p...))
				}
				if n.next == blockio.NilBlock {
					return
				}
				n, err = T.readNode(n.next)
				if err != nil {
					return
				}
			}
		}
		id = n.children[0]
	}
}

// findLeaf - Descends from the root to the leaf whose key range covers the key.
func (T *Tree) findLeaf(key record.Value) (n *node, err error) {
	id := T.root
	for {
		n, err = T.readNode(id)
		if err != nil {
			return
		}
		if n.leaf {
			return
		}
		pos, found, posErr := T.searchKeys(n, key)
		if posErr != nil {
			err = posErr
			return
		}
		if found {
			pos++
		}
		id = n.children[pos]
	}
}

// Validate - Walks the whole tree and checks the structural invariants: every
// leaf sits at the same depth, keys are strictly ascending within each node, and
// every node but the root holds at least the minimum number of keys.
// It returns:
//   - err is idxerr.CorruptPage when an invariant does not hold
func (T *Tree) Validate() (err error) {
	leafDepth := int64(-1)

	var walk func(id blockio.BlockID, depth int64, isRoot bool) error
	walk = func(id blockio.BlockID, depth int64, isRoot bool) error {
		n, walkErr := T.readNode(id)
		if walkErr != nil {
			return walkErr
		}

		if !isRoot && int64(len(n.keys)) < T.minKeys() {
			return idxerr.CorruptPage{}
		}
		for i := 1; i < len(n.keys); i++ {
			cmp, cmpErr := record.Compare(n.keys[i-1], n.keys[i])
			if cmpErr != nil {
				return cmpErr
			}
			if cmp >= 0 {
				return idxerr.CorruptPage{}
			}
		}

		if n.leaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				return idxerr.CorruptPage{}
			}
			return nil
		}

		if len(n.children) != len(n.keys)+1 {
			return idxerr.CorruptPage{}
		}
		for _, child := range n.children {
			if walkErr = walk(child, depth+1, false); walkErr != nil {
				return walkErr
			}
		}
		return nil
	}

	err = walk(T.root, 1, true)

	return
}
