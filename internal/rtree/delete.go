package rtree

import (
	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Delete - Removes the record stored under the key. A leaf left under its
// minimum occupancy is dissolved rather than rebalanced, its blocks are
// recycled and its remaining records reinserted from the top. A root with a
// single child afterwards shrinks the tree by one level.
func (T *Tree) Delete(key record.Value) (err error) {
	if key == nil || key.Kind() != T.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	leaf, _, pos, err := T.findRecord(key)
	if err != nil {
		return
	}

	leaf.records = append(leaf.records[:pos], leaf.records[pos+1:]...)

	orphans, err := T.condense(leaf)
	if err != nil {
		return
	}

	var strays []record.Record
	for _, o := range orphans {
		strays, err = T.collectAndFree(o, strays)
		if err != nil {
			return
		}
	}
	for _, rec := range strays {
		err = T.insertRecord(rec)
		if err != nil {
			return
		}
	}

	err = T.collapseRoot()

	return
}

// condense - Walks from the changed leaf up to the root, dropping underfull
// nodes from their parents and refreshing the bounding rectangles of the kept
// ones. The dropped nodes are handed back for reinsertion.
func (T *Tree) condense(n *node) (orphans []*node, err error) {
	for n.parent != blockio.NilBlock {
		parent, parentErr := T.readNode(n.parent)
		if parentErr != nil {
			err = parentErr
			return
		}

		pos, posErr := parent.childIndex(n.id)
		if posErr != nil {
			err = posErr
			return
		}

		if n.count() < T.minEntries {
			parent.rects = append(parent.rects[:pos], parent.rects[pos+1:]...)
			parent.children = append(parent.children[:pos], parent.children[pos+1:]...)
			orphans = append(orphans, n)
		} else {
			err = T.writeNode(n)
			if err != nil {
				return
			}
			parent.rects[pos] = T.rect(n)
		}

		n = parent
	}

	err = T.writeNode(n)

	return
}

// collectAndFree - Gathers every record in the subtree and recycles its blocks
func (T *Tree) collectAndFree(n *node, acc []record.Record) (records []record.Record, err error) {
	records = acc

	if n.leaf {
		records = append(records, n.records...)
	} else {
		for _, id := range n.children {
			child, childErr := T.readNode(id)
			if childErr != nil {
				err = childErr
				return
			}
			records, err = T.collectAndFree(child, records)
			if err != nil {
				return
			}
		}
	}

	err = T.file.Free(n.id)

	return
}

// collapseRoot - Shrinks the tree while the root is an internal node with a
// single child
func (T *Tree) collapseRoot() (err error) {
	for {
		root, rootErr := T.readNode(T.root)
		if rootErr != nil {
			err = rootErr
			return
		}
		if root.leaf || root.count() != 1 {
			return
		}

		child, childErr := T.readNode(root.children[0])
		if childErr != nil {
			err = childErr
			return
		}
		child.parent = blockio.NilBlock
		err = T.writeNode(child)
		if err != nil {
			return
		}

		err = T.file.Free(root.id)
		if err != nil {
			return
		}

		T.root = child.id
		T.height--
		err = T.writeParams()
		if err != nil {
			return
		}
	}
}
