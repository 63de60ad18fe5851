// Package fileindex provides five interchangeable file backed index structures
// over fixed size disk blocks: a sequential file, an ISAM file, clustered and
// unclustered B+trees, an extendible hashing file and an R-tree. Records follow
// a fixed width schema and every operation reports the number of disk blocks it
// read and wrote, both when it succeeds and when it fails.
package fileindex

import (
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Cost - The disk blocks read and written by one operation
type Cost struct {
	Reads  uint64
	Writes uint64
}

// Stats - The disk blocks read and written over the lifetime of a structure
type Stats struct {
	DiskReads  uint64
	DiskWrites uint64
}

// Index - The operations every index structure supports. Each operation reports
// its disk cost alongside the result, a failed operation reports the cost it
// incurred before failing.
type Index interface {
	// Insert - Inserts a record under its key field
	Insert(rec record.Record) (Cost, error)

	// Search - Returns the record stored under the key
	Search(key record.Value) (record.Record, Cost, error)

	// Delete - Removes the record stored under the key
	Delete(key record.Value) (Cost, error)

	// ScanAll - Returns every live record sorted by key
	ScanAll() ([]record.Record, Cost, error)

	// Stats - Returns the lifetime disk access counts
	Stats() Stats

	// Close - Syncs and closes the backing files
	Close()

	// Remove - Removes the backing files, make sure to close them first
	Remove() error
}

// RangeIndex - An index that keeps its keys in an order it can exploit.
// The extendible hashing file does not satisfy this interface, hashing
// destroys key order.
type RangeIndex interface {
	Index

	// RangeSearch - Returns every record with low <= key <= high sorted by key
	RangeSearch(low, high record.Value) ([]record.Record, Cost, error)
}

// SpatialIndex - An index organized on a point field
type SpatialIndex interface {
	Index

	// SpatialRange - Returns every record whose point lies within the rectangle
	SpatialRange(r record.Rect) ([]record.Record, Cost, error)

	// NearestNeighbors - Returns the k records closest to the point, nearest first
	NearestNeighbors(p record.Point, k int) ([]record.Record, Cost, error)
}

// opCost - Closes the current operation window and returns its cost
func opCost(counters *blockio.Counters) Cost {
	reads, writes := counters.OpCost()
	return Cost{Reads: reads, Writes: writes}
}

// totals - Returns the lifetime counts as public stats
func totals(counters *blockio.Counters) Stats {
	reads, writes := counters.Totals()
	return Stats{DiskReads: reads, DiskWrites: writes}
}
