package seqfile

import (
	"errors"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/utils"
	"github.com/sondeo/fileindex/record"
)

// Insert - Appends the record to the aux area after verifying the key is not live in
// either area. The main area is never physically moved by an insert; once the aux
// area exceeds its configured maximum the whole structure is rebuilt.
func (S *SeqFile) Insert(rec record.Record) (err error) {
	if err = S.schema.CheckShape(rec); err != nil {
		return
	}
	key := rec.Key(S.schema)
	if key == nil || key.Kind() != S.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	slot, found, err := S.lowerBound(key)
	if err != nil {
		return
	}
	if found {
		var state uint8
		_, state, err = S.readSlot(S.main, slot)
		if err != nil {
			return
		}
		if state == record.StateOccupied {
			err = idxerr.DuplicateKey{}
			return
		}
	}

	_, _, auxErr := S.findAux(key)
	if auxErr == nil {
		err = idxerr.DuplicateKey{}
		return
	}
	if !errors.Is(auxErr, idxerr.KeyNotFound{}) {
		err = auxErr
		return
	}

	if S.auxCount%S.blockFactor == 0 {
		_, err = S.aux.Allocate()
		if err != nil {
			return
		}
	}
	err = S.writeSlot(S.aux, S.auxCount, rec, record.StateOccupied)
	if err != nil {
		return
	}
	S.auxCount++

	err = S.writeParams()
	if err != nil {
		return
	}

	if S.auxCount > S.maxAux {
		err = S.rebuild()
	}

	return
}

// Search - Binary searches the main area and falls back to a linear scan of the aux
// area. A tombstoned record is never returned.
func (S *SeqFile) Search(key record.Value) (rec record.Record, err error) {
	slot, found, err := S.lowerBound(key)
	if err != nil {
		return
	}
	if found {
		var state uint8
		rec, state, err = S.readSlot(S.main, slot)
		if err != nil {
			return
		}
		if state == record.StateOccupied {
			return
		}
	}

	rec, _, err = S.findAux(key)

	return
}

// RangeSearch - Returns all live records with low <= key <= high in ascending key
// order. The main area is scanned from the lower bound, aux matches are appended and
// the combined result is re-sorted since the aux area is unsorted.
func (S *SeqFile) RangeSearch(low, high record.Value) (records []record.Record, err error) {
	if cmp, cmpErr := record.Compare(low, high); cmpErr != nil {
		err = cmpErr
		return
	} else if cmp > 0 {
		return
	}

	slot, _, err := S.lowerBound(low)
	if err != nil {
		return
	}

	records = []record.Record{}
	for ; slot < S.mainCount; slot++ {
		rec, state, slotErr := S.readSlot(S.main, slot)
		if slotErr != nil {
			err = slotErr
			return
		}

		cmp, cmpErr := record.Compare(rec.Key(S.schema), high)
		if cmpErr != nil {
			err = cmpErr
			return
		}
		if cmp > 0 {
			break
		}
		if state == record.StateOccupied {
			records = append(records, rec)
		}
	}

	err = S.scanAuxBlocks(func(rec record.Record) error {
		inLow, cmpErr := record.Compare(rec.Key(S.schema), low)
		if cmpErr != nil {
			return cmpErr
		}
		inHigh, cmpErr := record.Compare(rec.Key(S.schema), high)
		if cmpErr != nil {
			return cmpErr
		}
		if inLow >= 0 && inHigh <= 0 {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		records = nil
		return
	}

	utils.SortByKey(S.schema, records)

	return
}

// Delete - Marks the record with the given key as deleted in place. The slot is
// reclaimed at the next rebuild.
func (S *SeqFile) Delete(key record.Value) (err error) {
	slot, found, err := S.lowerBound(key)
	if err != nil {
		return
	}
	if found {
		var rec record.Record
		var state uint8
		rec, state, err = S.readSlot(S.main, slot)
		if err != nil {
			return
		}
		if state == record.StateOccupied {
			err = S.writeSlot(S.main, slot, rec, record.StateDeleted)
			return
		}
	}

	rec, auxSlot, err := S.findAux(key)
	if err != nil {
		return
	}
	err = S.writeSlot(S.aux, auxSlot, rec, record.StateDeleted)

	return
}

// ScanAll - Returns every live record from both areas in ascending key order
func (S *SeqFile) ScanAll() (records []record.Record, err error) {
	records = []record.Record{}

	live, err := S.liveRecords(S.main, S.mainCount)
	if err != nil {
		records = nil
		return
	}
	records = append(records, live...)

	live, err = S.liveRecords(S.aux, S.auxCount)
	if err != nil {
		records = nil
		return
	}
	records = append(records, live...)

	utils.SortByKey(S.schema, records)

	return
}

// lowerBound - Binary searches the main area for the first slot whose key is not
// below the target. Main area keys are unique, tombstones included, so the search is
// well-defined. It returns the slot, and whether the slot holds the target key.
func (S *SeqFile) lowerBound(key record.Value) (slot int64, found bool, err error) {
	left, right := int64(0), S.mainCount
	for left < right {
		mid := (left + right) / 2
		rec, _, slotErr := S.readSlot(S.main, mid)
		if slotErr != nil {
			err = slotErr
			return
		}

		cmp, cmpErr := record.Compare(rec.Key(S.schema), key)
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
	slot = left

	return
}

// findAux - Linearly scans the aux area for a live record with the given key.
// Returns a KeyNotFound error if no live record matches.
func (S *SeqFile) findAux(key record.Value) (rec record.Record, slot int64, err error) {
	width := S.schema.RecordWidth()
	for blockNo := int64(0); blockNo*S.blockFactor < S.auxCount; blockNo++ {
		buf, readErr := S.aux.Read(blockio.BlockID(blockNo))
		if readErr != nil {
			err = readErr
			return
		}

		first := blockNo * S.blockFactor
		last := min64(first+S.blockFactor, S.auxCount)
		for s := first; s < last; s++ {
			offset := (s % S.blockFactor) * width
			candidate, state, slotErr := S.schema.Unpack(buf[offset : offset+width])
			if slotErr != nil {
				err = slotErr
				return
			}
			if state != record.StateOccupied {
				continue
			}

			cmp, cmpErr := record.Compare(candidate.Key(S.schema), key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp == 0 {
				rec = candidate
				slot = s
				return
			}
		}
	}

	err = idxerr.KeyNotFound{}

	return
}

// scanAuxBlocks - Reads the aux area block by block and feeds every live record to
// the visitor
func (S *SeqFile) scanAuxBlocks(visit func(record.Record) error) (err error) {
	width := S.schema.RecordWidth()
	for blockNo := int64(0); blockNo*S.blockFactor < S.auxCount; blockNo++ {
		buf, readErr := S.aux.Read(blockio.BlockID(blockNo))
		if readErr != nil {
			err = readErr
			return
		}

		first := blockNo * S.blockFactor
		last := min64(first+S.blockFactor, S.auxCount)
		for s := first; s < last; s++ {
			offset := (s % S.blockFactor) * width
			rec, state, slotErr := S.schema.Unpack(buf[offset : offset+width])
			if slotErr != nil {
				err = slotErr
				return
			}
			if state != record.StateOccupied {
				continue
			}
			err = visit(rec)
			if err != nil {
				return
			}
		}
	}

	return
}

// liveRecords - Reads an area block by block and collects its live records
func (S *SeqFile) liveRecords(area *blockio.File, count int64) (records []record.Record, err error) {
	width := S.schema.RecordWidth()
	for blockNo := int64(0); blockNo*S.blockFactor < count; blockNo++ {
		buf, readErr := area.Read(blockio.BlockID(blockNo))
		if readErr != nil {
			err = readErr
			return
		}

		first := blockNo * S.blockFactor
		last := min64(first+S.blockFactor, count)
		for s := first; s < last; s++ {
			offset := (s % S.blockFactor) * width
			rec, state, slotErr := S.schema.Unpack(buf[offset : offset+width])
			if slotErr != nil {
				err = slotErr
				records = nil
				return
			}
			if state == record.StateOccupied {
				records = append(records, rec)
			}
		}
	}

	return
}

// rebuild - Merges both areas, drops tombstones, re-sorts by key and rewrites the
// main area from scratch. The aux area is reset to empty.
func (S *SeqFile) rebuild() (err error) {
	records, err := S.liveRecords(S.main, S.mainCount)
	if err != nil {
		return
	}
	auxRecords, err := S.liveRecords(S.aux, S.auxCount)
	if err != nil {
		return
	}
	records = append(records, auxRecords...)
	utils.SortByKey(S.schema, records)

	err = S.main.Truncate()
	if err != nil {
		return
	}
	err = S.aux.Truncate()
	if err != nil {
		return
	}

	width := S.schema.RecordWidth()
	for first := int64(0); first < int64(len(records)); first += S.blockFactor {
		id, allocErr := S.main.Allocate()
		if allocErr != nil {
			err = allocErr
			return
		}

		buf := make([]byte, S.main.BlockSize())
		last := min64(first+S.blockFactor, int64(len(records)))
		for s := first; s < last; s++ {
			packed, packErr := S.schema.Pack(records[s], record.StateOccupied)
			if packErr != nil {
				err = packErr
				return
			}
			copy(buf[(s-first)*width:], packed)
		}

		err = S.main.Write(id, buf)
		if err != nil {
			return
		}
	}

	S.mainCount = int64(len(records))
	S.auxCount = 0
	err = S.writeParams()
	if err != nil {
		err = fmt.Errorf("error while finishing rebuild: %w", err)
	}

	return
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
