package rtree

import (
	"container/heap"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/utils"
	"github.com/sondeo/fileindex/record"
)

// Search - Looks a key up by walking every leaf, the tree is organized on the
// point field so a key lookup can not prune subtrees.
// It returns:
//   - rec is the stored record
//   - err is idxerr.KeyNotFound when the key is absent, or a standard Go error
func (T *Tree) Search(key record.Value) (rec record.Record, err error) {
	if key == nil || key.Kind() != T.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	_, rec, _, err = T.findRecord(key)

	return
}

// SpatialRange - Returns every record whose point lies within the rectangle,
// sorted by key. Subtrees whose bounding rectangle misses the search rectangle
// are pruned.
func (T *Tree) SpatialRange(area record.Rect) (records []record.Record, err error) {
	var walk func(id blockio.BlockID) error
	walk = func(id blockio.BlockID) error {
		n, walkErr := T.readNode(id)
		if walkErr != nil {
			return walkErr
		}

		if n.leaf {
			for _, rec := range n.records {
				if area.ContainsPoint(T.recordPoint(rec)) {
					records = append(records, rec)
				}
			}
			return nil
		}

		for i, r := range n.rects {
			if r.Intersects(area) {
				if walkErr = walk(n.children[i]); walkErr != nil {
					return walkErr
				}
			}
		}
		return nil
	}

	err = walk(T.root)
	if err != nil {
		return
	}

	utils.SortByKey(T.schema, records)

	return
}

// NearestNeighbors - Returns the k records closest to the point, nearest first.
// The search is best first, nodes and records share one priority queue ordered
// by distance so a subtree is only opened when nothing closer remains.
func (T *Tree) NearestNeighbors(p record.Point, k int) (records []record.Record, err error) {
	if k <= 0 {
		return
	}

	queue := &distQueue{}
	heap.Push(queue, distItem{dist: 0, child: T.root, isNode: true})

	for queue.Len() > 0 {
		item := heap.Pop(queue).(distItem)

		if !item.isNode {
			records = append(records, item.rec)
			if len(records) == k {
				return
			}
			continue
		}

		n, readErr := T.readNode(item.child)
		if readErr != nil {
			err = readErr
			records = nil
			return
		}

		if n.leaf {
			for _, rec := range n.records {
				heap.Push(queue, distItem{dist: p.DistTo(T.recordPoint(rec)), rec: rec})
			}
			continue
		}

		for i, r := range n.rects {
			heap.Push(queue, distItem{dist: p.MinDist(r), child: n.children[i], isNode: true})
		}
	}

	return
}

// ScanAll - Returns every stored record sorted by key
func (T *Tree) ScanAll() (records []record.Record, err error) {
	records, err = T.SpatialRange(T.fullExtent())
	return
}

// fullExtent - Returns a rectangle covering the whole tree, or anything at all
// when the tree is empty
func (T *Tree) fullExtent() record.Rect {
	const huge = 1e308
	return record.Rect{
		Min: record.Point{X: -huge, Y: -huge},
		Max: record.Point{X: huge, Y: huge},
	}
}

// findRecord - Walks every leaf looking for the key
// It returns:
//   - leaf is the leaf holding the key
//   - rec is the stored record
//   - pos is the record's position within the leaf
//   - err is idxerr.KeyNotFound when the key is absent
func (T *Tree) findRecord(key record.Value) (leaf *node, rec record.Record, pos int, err error) {
	var walk func(id blockio.BlockID) (bool, error)
	walk = func(id blockio.BlockID) (bool, error) {
		n, walkErr := T.readNode(id)
		if walkErr != nil {
			return false, walkErr
		}

		if n.leaf {
			for i, candidate := range n.records {
				cmp, cmpErr := record.Compare(candidate.Key(T.schema), key)
				if cmpErr != nil {
					return false, cmpErr
				}
				if cmp == 0 {
					leaf = n
					rec = candidate
					pos = i
					return true, nil
				}
			}
			return false, nil
		}

		for _, child := range n.children {
			found, walkErr := walk(child)
			if found || walkErr != nil {
				return found, walkErr
			}
		}
		return false, nil
	}

	found, err := walk(T.root)
	if err != nil {
		return
	}
	if !found {
		err = idxerr.KeyNotFound{}
	}

	return
}

// Validate - Walks the whole tree and checks the structural invariants: every
// leaf sits at the same depth, every node but the root holds at least the
// minimum number of entries, every child points back at its parent, and every
// entry rectangle of an internal node covers its whole subtree.
// It returns:
//   - err is idxerr.CorruptPage when an invariant does not hold
func (T *Tree) Validate() (err error) {
	leafDepth := int64(-1)

	var walk func(id, parent blockio.BlockID, depth int64, isRoot bool) (record.Rect, error)
	walk = func(id, parent blockio.BlockID, depth int64, isRoot bool) (bb record.Rect, walkErr error) {
		n, walkErr := T.readNode(id)
		if walkErr != nil {
			return
		}

		if n.parent != parent {
			walkErr = idxerr.CorruptPage{}
			return
		}
		if !isRoot && n.count() < T.minEntries {
			walkErr = idxerr.CorruptPage{}
			return
		}

		bb = T.rect(n)
		if n.leaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				walkErr = idxerr.CorruptPage{}
			}
			return
		}

		for i, child := range n.children {
			var childBB record.Rect
			childBB, walkErr = walk(child, id, depth+1, false)
			if walkErr != nil {
				return
			}
			if !n.rects[i].Contains(childBB) {
				walkErr = idxerr.CorruptPage{}
				return
			}
		}

		return
	}

	_, err = walk(T.root, blockio.NilBlock, 1, true)

	return
}

// distItem - One priority queue entry of the nearest neighbor search, either a
// node still to open or a record ready to emit
type distItem struct {
	dist   float64
	child  blockio.BlockID
	rec    record.Record
	isNode bool
}

// distQueue - A min heap of distItem ordered by distance
type distQueue []distItem

func (Q distQueue) Len() int            { return len(Q) }
func (Q distQueue) Less(i, j int) bool  { return Q[i].dist < Q[j].dist }
func (Q distQueue) Swap(i, j int)       { Q[i], Q[j] = Q[j], Q[i] }
func (Q *distQueue) Push(x interface{}) { *Q = append(*Q, x.(distItem)) }
func (Q *distQueue) Pop() (x interface{}) {
	old := *Q
	x = old[len(old)-1]
	*Q = old[:len(old)-1]
	return
}
