package isam

import (
	"encoding/binary"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/internal/utils"
	"github.com/sondeo/fileindex/record"
)

// Params - Configuration for a new ISAM structure.
//   - BlockFactor is the number of record slots per data block
//   - IndexFanout is the number of (max key, child) entries per index block
type Params struct {
	BlockFactor int64
	IndexFanout int64
}

// ISAM - A static multi-level sparse index over a sorted data area. The index levels
// are built once and never restructured; later inserts land in their target data
// block if room remains and in that block's overflow chain otherwise. Deletes mark a
// tombstone in place.
type ISAM struct {
	schema      *record.Schema
	counters    *blockio.Counters
	data        *blockio.File
	index       *blockio.File
	blockFactor int64
	indexFanout int64
	dataBlocks  int64
	levels      int64
	rootBlock   blockio.BlockID
}

// indexEntry - One sparse index entry: the largest key stored under child
type indexEntry struct {
	maxKey record.Value
	child  blockio.BlockID
}

// dataBlock - Decoded form of a data or overflow block
type dataBlock struct {
	records  []record.Record
	states   []uint8
	overflow blockio.BlockID
}

// DataFileName - Returns the data area file name given the structure name
func DataFileName(name string) string {
	return fmt.Sprintf("%s-data.bin", name)
}

// IndexFileName - Returns the index area file name given the structure name
func IndexFileName(name string) string {
	return fmt.Sprintf("%s-index.bin", name)
}

// Build - Creates a new ISAM structure from an initial data set. The records must be
// in strictly ascending key order and there must be at least one of them; the sparse
// index levels are derived from the data blocks bottom-up until one root block
// remains and are immutable afterwards.
func Build(name string, schema *record.Schema, params Params, records []record.Record, counters *blockio.Counters) (i *ISAM, err error) {
	if len(records) == 0 {
		err = fmt.Errorf("an ISAM structure requires an initial data set to build its index levels from")
		return
	}
	if !utils.IsSortedByKey(schema, records) {
		err = fmt.Errorf("initial data set must be in strictly ascending key order")
		return
	}

	if params.BlockFactor <= 0 {
		params.BlockFactor = DefaultBlockFactor
	}
	if params.IndexFanout <= 1 {
		params.IndexFanout = DefaultIndexFanout
	}

	dataBlockSize := dataBlockHeaderLength + params.BlockFactor*schema.RecordWidth()
	indexBlockSize := indexBlockHeaderLength + params.IndexFanout*(schema.Key().SerializedWidth()+8)

	data, err := blockio.Create(DataFileName(name), dataBlockSize, counters)
	if err != nil {
		return
	}
	index, err := blockio.Create(IndexFileName(name), indexBlockSize, counters)
	if err != nil {
		data.Close()
		_ = data.Remove()
		return
	}

	i = &ISAM{
		schema:      schema,
		counters:    counters,
		data:        data,
		index:       index,
		blockFactor: params.BlockFactor,
		indexFanout: params.IndexFanout,
	}

	err = i.build(records)
	if err != nil {
		i.Close()
		_ = i.Remove()
		i = nil
	}

	return
}

// Open - Opens an existing ISAM structure and validates that the stored block layout
// agrees with the supplied schema.
func Open(name string, schema *record.Schema, counters *blockio.Counters) (i *ISAM, err error) {
	data, err := blockio.Open(DataFileName(name), counters)
	if err != nil {
		return
	}
	index, err := blockio.Open(IndexFileName(name), counters)
	if err != nil {
		data.Close()
		return
	}

	i = &ISAM{schema: schema, counters: counters, data: data, index: index}

	err = i.readParams()
	if err != nil {
		i.Close()
		i = nil
		return
	}

	if dataBlockHeaderLength+i.blockFactor*schema.RecordWidth() != data.BlockSize() {
		i.Close()
		i = nil
		err = fmt.Errorf("stored block layout doesn't match the supplied schema: %w", idxerr.SchemaMismatch{})
	}

	return
}

// Close - Syncs and closes both backing files
func (I *ISAM) Close() {
	I.index.Close()
	I.data.Close()
}

// Remove - Removes both backing files, make sure to close them first
func (I *ISAM) Remove() (err error) {
	err = I.index.Remove()
	if err != nil {
		return
	}
	err = I.data.Remove()

	return
}

// build - Lays down the sorted data blocks and erects the index levels above them
func (I *ISAM) build(records []record.Record) (err error) {
	var entries []indexEntry

	for first := int64(0); first < int64(len(records)); first += I.blockFactor {
		last := first + I.blockFactor
		if last > int64(len(records)) {
			last = int64(len(records))
		}

		block := dataBlock{overflow: blockio.NilBlock}
		for _, rec := range records[first:last] {
			block.records = append(block.records, rec)
			block.states = append(block.states, record.StateOccupied)
		}

		var id blockio.BlockID
		id, err = I.data.Allocate()
		if err != nil {
			return
		}
		err = I.writeDataBlock(id, block)
		if err != nil {
			return
		}

		entries = append(entries, indexEntry{maxKey: records[last-1].Key(I.schema), child: id})
		I.dataBlocks++
	}

	// Erect index levels until a single root block remains
	for {
		I.levels++
		var parents []indexEntry

		for first := int64(0); first < int64(len(entries)); first += I.indexFanout {
			last := first + I.indexFanout
			if last > int64(len(entries)) {
				last = int64(len(entries))
			}

			var id blockio.BlockID
			id, err = I.index.Allocate()
			if err != nil {
				return
			}
			err = I.writeIndexBlock(id, entries[first:last])
			if err != nil {
				return
			}

			parents = append(parents, indexEntry{maxKey: entries[last-1].maxKey, child: id})
		}

		if len(parents) == 1 {
			I.rootBlock = parents[0].child
			break
		}
		entries = parents
	}

	err = I.writeParams()

	return
}

// writeParams - Persists structure parameters in the file headers
func (I *ISAM) writeParams() (err error) {
	buf := make([]byte, dataBlocksOffset+8)
	binary.LittleEndian.PutUint64(buf[blockFactorOffset:], uint64(I.blockFactor))
	binary.LittleEndian.PutUint64(buf[dataBlocksOffset:], uint64(I.dataBlocks))
	err = I.data.WriteParams(buf)
	if err != nil {
		return
	}

	idxBuf := make([]byte, rootBlockOffset+8)
	binary.LittleEndian.PutUint64(idxBuf[indexFanoutOffset:], uint64(I.indexFanout))
	binary.LittleEndian.PutUint64(idxBuf[levelsOffset:], uint64(I.levels))
	binary.LittleEndian.PutUint64(idxBuf[rootBlockOffset:], uint64(I.rootBlock))
	err = I.index.WriteParams(idxBuf)

	return
}

// readParams - Restores structure parameters from the file headers
func (I *ISAM) readParams() (err error) {
	buf, err := I.data.ReadParams()
	if err != nil {
		return
	}
	I.blockFactor = int64(binary.LittleEndian.Uint64(buf[blockFactorOffset:]))
	I.dataBlocks = int64(binary.LittleEndian.Uint64(buf[dataBlocksOffset:]))

	idxBuf, err := I.index.ReadParams()
	if err != nil {
		return
	}
	I.indexFanout = int64(binary.LittleEndian.Uint64(idxBuf[indexFanoutOffset:]))
	I.levels = int64(binary.LittleEndian.Uint64(idxBuf[levelsOffset:]))
	I.rootBlock = blockio.BlockID(int64(binary.LittleEndian.Uint64(idxBuf[rootBlockOffset:])))

	return
}

// readDataBlock - Reads and decodes a data or overflow block
func (I *ISAM) readDataBlock(id blockio.BlockID) (block dataBlock, err error) {
	buf, err := I.data.Read(id)
	if err != nil {
		return
	}

	count := int64(binary.LittleEndian.Uint16(buf[dataCountOffset:]))
	block.overflow = blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[dataOverflowOffset:])))

	width := I.schema.RecordWidth()
	for s := int64(0); s < count; s++ {
		offset := dataBlockHeaderLength + s*width
		rec, state, slotErr := I.schema.Unpack(buf[offset : offset+width])
		if slotErr != nil {
			err = slotErr
			return
		}
		block.records = append(block.records, rec)
		block.states = append(block.states, state)
	}

	return
}

// writeDataBlock - Encodes and writes a data or overflow block
func (I *ISAM) writeDataBlock(id blockio.BlockID, block dataBlock) (err error) {
	if int64(len(block.records)) > I.blockFactor {
		err = idxerr.CapacityExceeded{}
		return
	}

	buf := make([]byte, I.data.BlockSize())
	binary.LittleEndian.PutUint16(buf[dataCountOffset:], uint16(len(block.records)))
	binary.LittleEndian.PutUint64(buf[dataOverflowOffset:], uint64(block.overflow))

	width := I.schema.RecordWidth()
	for s, rec := range block.records {
		packed, packErr := I.schema.Pack(rec, block.states[s])
		if packErr != nil {
			err = packErr
			return
		}
		copy(buf[dataBlockHeaderLength+int64(s)*width:], packed)
	}

	err = I.data.Write(id, buf)

	return
}

// readIndexBlock - Reads and decodes one sparse index block
func (I *ISAM) readIndexBlock(id blockio.BlockID) (entries []indexEntry, err error) {
	buf, err := I.index.Read(id)
	if err != nil {
		return
	}

	count := int64(binary.LittleEndian.Uint16(buf[indexCountOffset:]))
	keyWidth := I.schema.Key().SerializedWidth()
	entryWidth := keyWidth + 8
	for e := int64(0); e < count; e++ {
		offset := indexBlockHeaderLength + e*entryWidth
		entries = append(entries, indexEntry{
			maxKey: I.schema.Key().UnpackValue(buf[offset : offset+keyWidth]),
			child:  blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[offset+keyWidth:]))),
		})
	}

	return
}

// writeIndexBlock - Encodes and writes one sparse index block
func (I *ISAM) writeIndexBlock(id blockio.BlockID, entries []indexEntry) (err error) {
	buf := make([]byte, I.index.BlockSize())
	binary.LittleEndian.PutUint16(buf[indexCountOffset:], uint16(len(entries)))

	keyWidth := I.schema.Key().SerializedWidth()
	entryWidth := keyWidth + 8
	for e, entry := range entries {
		offset := indexBlockHeaderLength + int64(e)*entryWidth
		var packed []byte
		packed, err = I.schema.Key().PackValue(entry.maxKey)
		if err != nil {
			return
		}
		copy(buf[offset:], packed)
		binary.LittleEndian.PutUint64(buf[offset+keyWidth:], uint64(entry.child))
	}

	err = I.index.Write(id, buf)

	return
}
