package rtree

import (
	"errors"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Insert - Inserts a record, keyed for exact lookups and placed by its point
// field. The leaf whose rectangle grows the least takes the record, overfull
// nodes are split with the quadratic method and the split may climb all the way
// to the root, growing the tree by one level.
// It returns:
//   - err is idxerr.DuplicateKey when the key is already present, or a standard
//     Go error
func (T *Tree) Insert(rec record.Record) (err error) {
	if err = T.schema.CheckShape(rec); err != nil {
		return
	}
	key := rec.Key(T.schema)
	if key == nil || key.Kind() != T.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}
	if point := rec.Value(T.spatialField); point == nil || point.Kind() != record.PointField {
		err = idxerr.SchemaMismatch{}
		return
	}

	_, err = T.Search(key)
	if err == nil {
		err = idxerr.DuplicateKey{}
		return
	}
	if !errors.Is(err, idxerr.KeyNotFound{}) {
		return
	}
	err = nil

	err = T.insertRecord(rec)

	return
}

// insertRecord - Places the record without a duplicate check, shared by Insert
// and the reinsertion pass of deletions
func (T *Tree) insertRecord(rec record.Record) (err error) {
	leaf, err := T.chooseLeaf(rec)
	if err != nil {
		return
	}

	leaf.records = append(leaf.records, rec)

	if leaf.count() <= T.maxEntries {
		err = T.writeNode(leaf)
		if err != nil {
			return
		}
		err = T.adjustRects(leaf)
		return
	}

	err = T.split(leaf)

	return
}

// chooseLeaf - Descends from the root to the leaf whose rectangle needs the
// least enlargement to take the record, breaking ties on the smaller area
func (T *Tree) chooseLeaf(rec record.Record) (n *node, err error) {
	target := T.recordPoint(rec).ToRect()

	id := T.root
	for {
		n, err = T.readNode(id)
		if err != nil {
			return
		}
		if n.leaf {
			return
		}

		best := 0
		bestEnlargement, bestArea := 0.0, 0.0
		for i, r := range n.rects {
			enlargement := r.Union(target).Area() - r.Area()
			if i == 0 || enlargement < bestEnlargement ||
				(enlargement == bestEnlargement && r.Area() < bestArea) {
				best = i
				bestEnlargement = enlargement
				bestArea = r.Area()
			}
		}

		id = n.children[best]
	}
}

// adjustRects - Refreshes the bounding rectangles on the path from the node up
// to the root after the node's contents changed
func (T *Tree) adjustRects(n *node) (err error) {
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

		bb := T.rect(n)
		if parent.rects[pos].Equal(bb) {
			return
		}
		parent.rects[pos] = bb

		err = T.writeNode(parent)
		if err != nil {
			return
		}

		n = parent
	}

	return
}

// splitEntry - One entry of a node being split, a record for leaves and a
// rectangle with its child for internal nodes
type splitEntry struct {
	r     record.Rect
	child blockio.BlockID
	rec   record.Record
}

// split - Splits an overfull node in two with the quadratic method and pushes
// the new sibling into the parent, recursing when the parent overflows in turn.
// Splitting the root grows the tree by one level.
func (T *Tree) split(n *node) (err error) {
	entries := T.splitEntries(n)
	groupA, groupB := T.distribute(entries)

	sibling, err := T.newNode(n.leaf)
	if err != nil {
		return
	}
	sibling.parent = n.parent

	T.fillNode(n, groupA)
	T.fillNode(sibling, groupB)

	err = T.writeNode(n)
	if err != nil {
		return
	}
	err = T.writeNode(sibling)
	if err != nil {
		return
	}

	// Children handed to the sibling must point back at it
	if !n.leaf {
		err = T.reparentChildren(sibling)
		if err != nil {
			return
		}
	}

	if n.parent == blockio.NilBlock {
		err = T.growRoot(n, sibling)
		return
	}

	parent, err := T.readNode(n.parent)
	if err != nil {
		return
	}

	pos, err := parent.childIndex(n.id)
	if err != nil {
		return
	}
	parent.rects[pos] = T.rect(n)
	parent.rects = append(parent.rects, T.rect(sibling))
	parent.children = append(parent.children, sibling.id)

	if parent.count() <= T.maxEntries {
		err = T.writeNode(parent)
		if err != nil {
			return
		}
		err = T.adjustRects(parent)
		return
	}

	err = T.split(parent)

	return
}

// growRoot - Replaces a split root with a fresh internal root holding the two halves
func (T *Tree) growRoot(left, right *node) (err error) {
	root, err := T.newNode(false)
	if err != nil {
		return
	}

	root.rects = []record.Rect{T.rect(left), T.rect(right)}
	root.children = []blockio.BlockID{left.id, right.id}
	err = T.writeNode(root)
	if err != nil {
		return
	}

	left.parent = root.id
	right.parent = root.id
	err = T.writeNode(left)
	if err != nil {
		return
	}
	err = T.writeNode(right)
	if err != nil {
		return
	}

	T.root = root.id
	T.height++
	err = T.writeParams()

	return
}

// reparentChildren - Rewrites the parent pointer of every child of the node
func (T *Tree) reparentChildren(n *node) (err error) {
	for _, id := range n.children {
		child, childErr := T.readNode(id)
		if childErr != nil {
			err = childErr
			return
		}
		if child.parent == n.id {
			continue
		}
		child.parent = n.id
		err = T.writeNode(child)
		if err != nil {
			return
		}
	}

	return
}

// splitEntries - Flattens the node's entries into a form the split can distribute
func (T *Tree) splitEntries(n *node) (entries []splitEntry) {
	if n.leaf {
		for _, rec := range n.records {
			entries = append(entries, splitEntry{r: T.recordPoint(rec).ToRect(), rec: rec})
		}
		return
	}

	for i := range n.children {
		entries = append(entries, splitEntry{r: n.rects[i], child: n.children[i]})
	}

	return
}

// fillNode - Replaces the node's entries with the given group
func (T *Tree) fillNode(n *node, entries []splitEntry) {
	n.rects = nil
	n.children = nil
	n.records = nil

	for _, e := range entries {
		if n.leaf {
			n.records = append(n.records, e.rec)
		} else {
			n.rects = append(n.rects, e.r)
			n.children = append(n.children, e.child)
		}
	}
}

// distribute - Splits the entries into two groups with the quadratic method.
// The seeds are the pair wasting the most area when boxed together, then each
// remaining entry goes to the group whose rectangle grows the least, with the
// choice forced once a group needs every remaining entry to reach minimum
// occupancy.
func (T *Tree) distribute(entries []splitEntry) (groupA, groupB []splitEntry) {
	seedA, seedB := pickSeeds(entries)

	groupA = []splitEntry{entries[seedA]}
	groupB = []splitEntry{entries[seedB]}
	rectA, rectB := entries[seedA].r, entries[seedB].r

	var remaining []splitEntry
	for i, e := range entries {
		if i != seedA && i != seedB {
			remaining = append(remaining, e)
		}
	}

	for len(remaining) > 0 {
		if int64(len(groupA)+len(remaining)) == T.minEntries {
			groupA = append(groupA, remaining...)
			return
		}
		if int64(len(groupB)+len(remaining)) == T.minEntries {
			groupB = append(groupB, remaining...)
			return
		}

		next, toA := pickNext(remaining, rectA, rectB, len(groupA), len(groupB))
		if toA {
			groupA = append(groupA, remaining[next])
			rectA = rectA.Union(remaining[next].r)
		} else {
			groupB = append(groupB, remaining[next])
			rectB = rectB.Union(remaining[next].r)
		}
		remaining = append(remaining[:next], remaining[next+1:]...)
	}

	return
}

// pickSeeds - Returns the pair of entries whose combined rectangle wastes the
// most area, the worst possible roommates
func pickSeeds(entries []splitEntry) (seedA, seedB int) {
	seedB = 1
	worst := 0.0
	first := true

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			dead := entries[i].r.Union(entries[j].r).Area() - entries[i].r.Area() - entries[j].r.Area()
			if first || dead > worst {
				seedA, seedB = i, j
				worst = dead
				first = false
			}
		}
	}

	return
}

// pickNext - Returns the remaining entry with the strongest preference between
// the groups and the group it prefers, ties broken on smaller enlargement, then
// smaller area, then fewer entries
func pickNext(remaining []splitEntry, rectA, rectB record.Rect, countA, countB int) (next int, toA bool) {
	best := -1.0

	for i, e := range remaining {
		enlargeA := rectA.Union(e.r).Area() - rectA.Area()
		enlargeB := rectB.Union(e.r).Area() - rectB.Area()

		diff := enlargeA - enlargeB
		if diff < 0 {
			diff = -diff
		}

		if diff > best {
			best = diff
			next = i

			switch {
			case enlargeA < enlargeB:
				toA = true
			case enlargeB < enlargeA:
				toA = false
			case rectA.Area() != rectB.Area():
				toA = rectA.Area() < rectB.Area()
			default:
				toA = countA <= countB
			}
		}
	}

	return
}
