package exthash

import (
	"encoding/binary"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/utils"
	"github.com/sondeo/fileindex/record"
)

// Insert - Inserts a record under its key. A full bucket is split, doubling the
// directory first when the bucket's local depth has caught up with the global
// depth. Splitting repeats until the record fits.
// It returns:
//   - err is idxerr.DuplicateKey when the key is already present,
//     idxerr.CapacityExceeded when the directory can not double any further,
//     or a standard Go error
func (H *HashFile) Insert(rec record.Record) (err error) {
	if err = H.schema.CheckShape(rec); err != nil {
		return
	}
	key := rec.Key(H.schema)
	if key == nil || key.Kind() != H.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	hash, err := H.hashKey(key)
	if err != nil {
		return
	}

	for {
		id := H.directory[H.dirIndex(hash)]

		var buf []byte
		buf, err = H.buckets.Read(id)
		if err != nil {
			return
		}

		free := int64(-1)
		for slot := int64(0); slot < H.blockFactor; slot++ {
			stored, state, slotErr := H.readSlot(buf, slot)
			if slotErr != nil {
				err = slotErr
				return
			}
			if state != record.StateOccupied {
				if free == -1 {
					free = slot
				}
				continue
			}

			cmp, cmpErr := record.Compare(stored.Key(H.schema), key)
			if cmpErr != nil {
				err = cmpErr
				return
			}
			if cmp == 0 {
				err = idxerr.DuplicateKey{}
				return
			}
		}

		if free != -1 {
			err = H.writeSlot(buf, free, rec)
			if err != nil {
				return
			}
			err = H.buckets.Write(id, buf)
			return
		}

		localDepth := int64(binary.LittleEndian.Uint64(buf[localDepthOffset:]))
		if localDepth == H.globalDepth {
			if H.globalDepth == H.maxDepth {
				err = fmt.Errorf("directory already at max global depth %d: %w", H.maxDepth, idxerr.CapacityExceeded{})
				return
			}
			H.directory = append(H.directory, H.directory...)
			H.globalDepth++
		}

		err = H.splitBucket(id, buf, localDepth)
		if err != nil {
			return
		}
	}
}

// Search - Looks the key up in its bucket.
// It returns:
//   - rec is the stored record
//   - err is idxerr.KeyNotFound when the key is absent, or a standard Go error
func (H *HashFile) Search(key record.Value) (rec record.Record, err error) {
	buf, slot, err := H.findSlot(key)
	if err != nil {
		return
	}

	rec, _, err = H.readSlot(buf, slot)

	return
}

// Delete - Removes the record stored under the key by clearing its slot. Buckets
// are never merged, the freed slot is simply available to later inserts.
func (H *HashFile) Delete(key record.Value) (err error) {
	hash, err := H.hashKey(key)
	if err != nil {
		return
	}

	id := H.directory[H.dirIndex(hash)]
	buf, err := H.buckets.Read(id)
	if err != nil {
		return
	}

	slot, err := H.liveSlot(buf, key)
	if err != nil {
		return
	}

	H.clearSlot(buf, slot)
	err = H.buckets.Write(id, buf)

	return
}

// ScanAll - Returns every stored record sorted by key. The directory may hold
// several pointers to the same bucket so each bucket is visited once.
func (H *HashFile) ScanAll() (records []record.Record, err error) {
	seen := make(map[blockio.BlockID]bool)

	for _, id := range H.directory {
		if seen[id] {
			continue
		}
		seen[id] = true

		var buf []byte
		buf, err = H.buckets.Read(id)
		if err != nil {
			return
		}

		for slot := int64(0); slot < H.blockFactor; slot++ {
			rec, state, slotErr := H.readSlot(buf, slot)
			if slotErr != nil {
				err = slotErr
				return
			}
			if state == record.StateOccupied {
				records = append(records, rec)
			}
		}
	}

	utils.SortByKey(H.schema, records)

	return
}

// splitBucket - Splits a full bucket over one more hash bit. The old bucket keeps
// the records whose bit is zero, a fresh bucket takes the ones, and every
// directory pointer at the old bucket whose index has the new bit set is
// repointed to the fresh bucket.
func (H *HashFile) splitBucket(id blockio.BlockID, buf []byte, localDepth int64) (err error) {
	newID, err := H.buckets.Allocate()
	if err != nil {
		return
	}

	zeroBuf := make([]byte, H.buckets.BlockSize())
	oneBuf := make([]byte, H.buckets.BlockSize())
	binary.LittleEndian.PutUint64(zeroBuf[localDepthOffset:], uint64(localDepth+1))
	binary.LittleEndian.PutUint64(oneBuf[localDepthOffset:], uint64(localDepth+1))

	zeroNext, oneNext := int64(0), int64(0)
	for slot := int64(0); slot < H.blockFactor; slot++ {
		rec, state, slotErr := H.readSlot(buf, slot)
		if slotErr != nil {
			err = slotErr
			return
		}
		if state != record.StateOccupied {
			continue
		}

		hash, hashErr := H.hashKey(rec.Key(H.schema))
		if hashErr != nil {
			err = hashErr
			return
		}

		if (int64(hash)>>localDepth)&1 == 0 {
			err = H.writeSlot(zeroBuf, zeroNext, rec)
			zeroNext++
		} else {
			err = H.writeSlot(oneBuf, oneNext, rec)
			oneNext++
		}
		if err != nil {
			return
		}
	}

	err = H.buckets.Write(id, zeroBuf)
	if err != nil {
		return
	}
	err = H.buckets.Write(newID, oneBuf)
	if err != nil {
		return
	}

	for i := range H.directory {
		if H.directory[i] == id && (int64(i)>>localDepth)&1 == 1 {
			H.directory[i] = newID
		}
	}

	err = H.writeDirectory()

	return
}

// findSlot - Reads the bucket the key hashes to and locates the live slot
// holding the key
func (H *HashFile) findSlot(key record.Value) (buf []byte, slot int64, err error) {
	if key == nil || key.Kind() != H.schema.Key().Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	hash, err := H.hashKey(key)
	if err != nil {
		return
	}

	buf, err = H.buckets.Read(H.directory[H.dirIndex(hash)])
	if err != nil {
		return
	}

	slot, err = H.liveSlot(buf, key)

	return
}

// liveSlot - Scans a bucket for the occupied slot holding the key
func (H *HashFile) liveSlot(buf []byte, key record.Value) (slot int64, err error) {
	for slot = int64(0); slot < H.blockFactor; slot++ {
		rec, state, slotErr := H.readSlot(buf, slot)
		if slotErr != nil {
			err = slotErr
			return
		}
		if state != record.StateOccupied {
			continue
		}

		cmp, cmpErr := record.Compare(rec.Key(H.schema), key)
		if cmpErr != nil {
			err = cmpErr
			return
		}
		if cmp == 0 {
			return
		}
	}

	err = idxerr.KeyNotFound{}

	return
}

// readSlot - Unpacks the record in the given bucket slot
func (H *HashFile) readSlot(buf []byte, slot int64) (rec record.Record, state uint8, err error) {
	offset := bucketHeaderLength + slot*H.schema.RecordWidth()
	rec, state, err = H.schema.Unpack(buf[offset : offset+H.schema.RecordWidth()])

	return
}

// writeSlot - Packs the record into the given bucket slot as occupied
func (H *HashFile) writeSlot(buf []byte, slot int64, rec record.Record) (err error) {
	packed, err := H.schema.Pack(rec, record.StateOccupied)
	if err != nil {
		return
	}

	copy(buf[bucketHeaderLength+slot*H.schema.RecordWidth():], packed)

	return
}

// clearSlot - Zeroes the given bucket slot, leaving it empty
func (H *HashFile) clearSlot(buf []byte, slot int64) {
	offset := bucketHeaderLength + slot*H.schema.RecordWidth()
	for i := offset; i < offset+H.schema.RecordWidth(); i++ {
		buf[i] = 0
	}
}
