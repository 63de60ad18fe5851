package isam

import (
	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/utils"
	"github.com/sondeo/fileindex/record"
)

// Insert - Descends the static index to the target data block and inserts the record
// in sorted position if room remains, appending to the block's overflow chain
// otherwise. The index levels are never touched.
func (I *ISAM) Insert(rec record.Record) (err error) {
	if err = I.schema.CheckShape(rec); err != nil {
		return
	}
	key := rec.Key(I.schema)
	if key == nil || key.Kind() != I.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	id, err := I.findDataBlock(key)
	if err != nil {
		return
	}

	// A live record with the same key anywhere in the block or its chain is a duplicate
	chainID := id
	var chain []blockio.BlockID
	var blocks []dataBlock
	for chainID != blockio.NilBlock {
		block, readErr := I.readDataBlock(chainID)
		if readErr != nil {
			err = readErr
			return
		}
		for s := range block.records {
			if block.states[s] != record.StateOccupied {
				continue
			}
			cmp, cmpErr := record.Compare(block.records[s].Key(I.schema), key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp == 0 {
				err = idxerr.DuplicateKey{}
				return
			}
		}
		chain = append(chain, chainID)
		blocks = append(blocks, block)
		chainID = block.overflow
	}

	// Sorted insert into the primary block when room remains
	primary := &blocks[0]
	if int64(len(primary.records)) < I.blockFactor {
		pos := 0
		for ; pos < len(primary.records); pos++ {
			cmp, cmpErr := record.Compare(primary.records[pos].Key(I.schema), key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp > 0 {
				break
			}
		}
		primary.records = append(primary.records, record.Record{})
		copy(primary.records[pos+1:], primary.records[pos:])
		primary.records[pos] = rec
		primary.states = append(primary.states, 0)
		copy(primary.states[pos+1:], primary.states[pos:])
		primary.states[pos] = record.StateOccupied

		err = I.writeDataBlock(chain[0], *primary)
		return
	}

	// Append to the first chain block with room
	for c := 1; c < len(blocks); c++ {
		if int64(len(blocks[c].records)) < I.blockFactor {
			blocks[c].records = append(blocks[c].records, rec)
			blocks[c].states = append(blocks[c].states, record.StateOccupied)
			err = I.writeDataBlock(chain[c], blocks[c])
			return
		}
	}

	// Chain exhausted, grow it by one overflow block
	newID, err := I.data.Allocate()
	if err != nil {
		return
	}
	newBlock := dataBlock{
		records:  []record.Record{rec},
		states:   []uint8{record.StateOccupied},
		overflow: blockio.NilBlock,
	}
	err = I.writeDataBlock(newID, newBlock)
	if err != nil {
		return
	}

	tail := len(blocks) - 1
	blocks[tail].overflow = newID
	err = I.writeDataBlock(chain[tail], blocks[tail])

	return
}

// Search - Descends the index levels to the target data block and scans the block
// and its overflow chain for a live record with the given key
func (I *ISAM) Search(key record.Value) (rec record.Record, err error) {
	id, err := I.findDataBlock(key)
	if err != nil {
		return
	}

	for id != blockio.NilBlock {
		block, readErr := I.readDataBlock(id)
		if readErr != nil {
			err = readErr
			return
		}

		for s := range block.records {
			if block.states[s] != record.StateOccupied {
				continue
			}
			cmp, cmpErr := record.Compare(block.records[s].Key(I.schema), key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp == 0 {
				rec = block.records[s]
				return
			}
		}
		id = block.overflow
	}

	err = idxerr.KeyNotFound{}

	return
}

// RangeSearch - Returns all live records with low <= key <= high in ascending key
// order. Descends to the first qualifying data block, then scans forward across the
// primary blocks in block id order together with their overflow chains.
func (I *ISAM) RangeSearch(low, high record.Value) (records []record.Record, err error) {
	if cmp, cmpErr := record.Compare(low, high); cmpErr != nil {
		err = cmpErr
		return
	} else if cmp > 0 {
		return
	}

	first, err := I.findDataBlock(low)
	if err != nil {
		return
	}

	records = []record.Record{}
	for id := first; id < blockio.BlockID(I.dataBlocks); id++ {
		pastHigh := false

		chainID := id
		for chainID != blockio.NilBlock {
			block, readErr := I.readDataBlock(chainID)
			if readErr != nil {
				err = readErr
				records = nil
				return
			}

			// Primary blocks are sorted, so a first slot beyond high ends the scan
			// once this block's chain has been visited
			if chainID == id && len(block.records) > 0 {
				cmp, cmpErr := record.Compare(block.records[0].Key(I.schema), high)
				if cmpErr != nil {
					err = cmpErr
					records = nil
					return
				}
				pastHigh = cmp > 0
			}

			for s := range block.records {
				if block.states[s] != record.StateOccupied {
					continue
				}
				recKey := block.records[s].Key(I.schema)
				cmpLow, cmpErr := record.Compare(recKey, low)
				if cmpErr != nil {
					err = cmpErr
					records = nil
					return
				}
				cmpHigh, cmpErr := record.Compare(recKey, high)
				if cmpErr != nil {
					err = cmpErr
					records = nil
					return
				}
				if cmpLow >= 0 && cmpHigh <= 0 {
					records = append(records, block.records[s])
				}
			}
			chainID = block.overflow
		}

		if pastHigh {
			break
		}
	}

	// Overflow chains are unsorted, so the combined result is re-sorted
	utils.SortByKey(I.schema, records)

	return
}

// Delete - Marks the record with the given key as deleted in place, within its data
// block or overflow chain. No index level or chain restructuring takes place.
func (I *ISAM) Delete(key record.Value) (err error) {
	id, err := I.findDataBlock(key)
	if err != nil {
		return
	}

	for id != blockio.NilBlock {
		block, readErr := I.readDataBlock(id)
		if readErr != nil {
			err = readErr
			return
		}

		for s := range block.records {
			if block.states[s] != record.StateOccupied {
				continue
			}
			cmp, cmpErr := record.Compare(block.records[s].Key(I.schema), key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp == 0 {
				block.states[s] = record.StateDeleted
				err = I.writeDataBlock(id, block)
				return
			}
		}
		id = block.overflow
	}

	err = idxerr.KeyNotFound{}

	return
}

// ScanAll - Returns every live record in ascending key order
func (I *ISAM) ScanAll() (records []record.Record, err error) {
	records = []record.Record{}

	for id := blockio.BlockID(0); id < blockio.BlockID(I.dataBlocks); id++ {
		chainID := id
		for chainID != blockio.NilBlock {
			block, readErr := I.readDataBlock(chainID)
			if readErr != nil {
				err = readErr
				records = nil
				return
			}
			for s := range block.records {
				if block.states[s] == record.StateOccupied {
					records = append(records, block.records[s])
				}
			}
			chainID = block.overflow
		}
	}

	utils.SortByKey(I.schema, records)

	return
}

// findDataBlock - Descends the index levels, binary searching each level block for
// the first entry whose max key is not below the target, and returns the id of the
// data block the key belongs to
func (I *ISAM) findDataBlock(key record.Value) (id blockio.BlockID, err error) {
	current := I.rootBlock
	for level := I.levels; level > 0; level-- {
		entries, readErr := I.readIndexBlock(current)
		if readErr != nil {
			err = readErr
			return
		}

		left, right := 0, len(entries)-1
		for left < right {
			mid := (left + right) / 2
			cmp, cmpErr := record.Compare(entries[mid].maxKey, key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp < 0 {
				left = mid + 1
			} else {
				right = mid
			}
		}

		// Keys beyond the largest max key fall into the last child
		current = entries[left].child
	}
	id = current

	return
}
