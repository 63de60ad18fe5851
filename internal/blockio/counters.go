package blockio

// Counters - Disk access counters for one index structure. All block files belonging
// to the structure share a single Counters instance so the reported cost covers every
// backing file. Counts are kept both for the current operation window and for the
// lifetime of the structure.
type Counters struct {
	opReads     uint64
	opWrites    uint64
	totalReads  uint64
	totalWrites uint64
}

// BeginOp - Resets the per operation window. Called at the start of every public
// operation so the cost of that single operation can be reported.
func (C *Counters) BeginOp() {
	C.opReads = 0
	C.opWrites = 0
}

// CountRead - Registers one block read
func (C *Counters) CountRead() {
	C.opReads++
	C.totalReads++
}

// CountWrite - Registers one block write
func (C *Counters) CountWrite() {
	C.opWrites++
	C.totalWrites++
}

// Add - Registers reads and writes performed on another structure's behalf,
// used when one structure resolves a lookup through another and the cost
// belongs to the caller
func (C *Counters) Add(reads, writes uint64) {
	C.opReads += reads
	C.opWrites += writes
	C.totalReads += reads
	C.totalWrites += writes
}

// OpCost - Returns the reads and writes registered since the last BeginOp
func (C *Counters) OpCost() (reads, writes uint64) {
	reads = C.opReads
	writes = C.opWrites
	return
}

// Totals - Returns the lifetime reads and writes of the structure
func (C *Counters) Totals() (reads, writes uint64) {
	reads = C.totalReads
	writes = C.totalWrites
	return
}
