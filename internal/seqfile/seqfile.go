package seqfile

import (
	"encoding/binary"
	"fmt"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Params - Configuration for a new sequential file.
//   - BlockFactor is the number of record slots per block
//   - MaxAux is the number of records the aux area may hold before the next insert
//     triggers a full rebuild of the main area
type Params struct {
	BlockFactor int64
	MaxAux      int64
}

// SeqFile - A sequential file structure with a key sorted main area and an unsorted
// aux area absorbing inserts. The main area is binary searched, the aux area is
// linearly scanned, and a full rebuild merges both when the aux area outgrows its
// configured maximum. Deletes mark a tombstone state in place, reclaimed at rebuild.
type SeqFile struct {
	schema      *record.Schema
	counters    *blockio.Counters
	main        *blockio.File
	aux         *blockio.File
	blockFactor int64
	maxAux      int64
	mainCount   int64
	auxCount    int64
}

// MainFileName - Returns the main area file name given the structure name
func MainFileName(name string) string {
	return fmt.Sprintf("%s-main.bin", name)
}

// AuxFileName - Returns the aux area file name given the structure name
func AuxFileName(name string) string {
	return fmt.Sprintf("%s-aux.bin", name)
}

// Create - Creates a new empty sequential file structure over two files, one for the
// sorted main area and one for the unsorted aux area.
func Create(name string, schema *record.Schema, params Params, counters *blockio.Counters) (s *SeqFile, err error) {
	if params.BlockFactor <= 0 {
		params.BlockFactor = DefaultBlockFactor
	}
	if params.MaxAux <= 0 {
		params.MaxAux = DefaultMaxAux
	}

	blockSize := params.BlockFactor * schema.RecordWidth()

	main, err := blockio.Create(MainFileName(name), blockSize, counters)
	if err != nil {
		return
	}
	aux, err := blockio.Create(AuxFileName(name), blockSize, counters)
	if err != nil {
		main.Close()
		_ = main.Remove()
		return
	}

	s = &SeqFile{
		schema:      schema,
		counters:    counters,
		main:        main,
		aux:         aux,
		blockFactor: params.BlockFactor,
		maxAux:      params.MaxAux,
	}

	err = s.writeParams()
	if err != nil {
		s.Close()
		s = nil
	}

	return
}

// Open - Opens an existing sequential file structure and validates that the stored
// block layout agrees with the supplied schema.
func Open(name string, schema *record.Schema, counters *blockio.Counters) (s *SeqFile, err error) {
	main, err := blockio.Open(MainFileName(name), counters)
	if err != nil {
		return
	}
	aux, err := blockio.Open(AuxFileName(name), counters)
	if err != nil {
		main.Close()
		return
	}

	s = &SeqFile{schema: schema, counters: counters, main: main, aux: aux}

	err = s.readParams()
	if err != nil {
		s.Close()
		s = nil
		return
	}

	if s.blockFactor*schema.RecordWidth() != main.BlockSize() {
		s.Close()
		s = nil
		err = fmt.Errorf("stored block layout doesn't match the supplied schema: %w", idxerr.SchemaMismatch{})
	}

	return
}

// Close - Syncs and closes both backing files
func (S *SeqFile) Close() {
	S.aux.Close()
	S.main.Close()
}

// Remove - Removes both backing files, make sure to close them first
func (S *SeqFile) Remove() (err error) {
	err = S.aux.Remove()
	if err != nil {
		return
	}
	err = S.main.Remove()

	return
}

// writeParams - Persists structure parameters in the file headers
func (S *SeqFile) writeParams() (err error) {
	buf := make([]byte, mainCountOffset+8)
	binary.LittleEndian.PutUint64(buf[blockFactorOffset:], uint64(S.blockFactor))
	binary.LittleEndian.PutUint64(buf[maxAuxOffset:], uint64(S.maxAux))
	binary.LittleEndian.PutUint64(buf[mainCountOffset:], uint64(S.mainCount))
	err = S.main.WriteParams(buf)
	if err != nil {
		return
	}

	auxBuf := make([]byte, auxCountOffset+8)
	binary.LittleEndian.PutUint64(auxBuf[auxCountOffset:], uint64(S.auxCount))
	err = S.aux.WriteParams(auxBuf)

	return
}

// readParams - Restores structure parameters from the file headers
func (S *SeqFile) readParams() (err error) {
	buf, err := S.main.ReadParams()
	if err != nil {
		return
	}
	S.blockFactor = int64(binary.LittleEndian.Uint64(buf[blockFactorOffset:]))
	S.maxAux = int64(binary.LittleEndian.Uint64(buf[maxAuxOffset:]))
	S.mainCount = int64(binary.LittleEndian.Uint64(buf[mainCountOffset:]))

	auxBuf, err := S.aux.ReadParams()
	if err != nil {
		return
	}
	S.auxCount = int64(binary.LittleEndian.Uint64(auxBuf[auxCountOffset:]))

	return
}

// readSlot - Reads one record slot, addressed as a dense index over the area's blocks
func (S *SeqFile) readSlot(area *blockio.File, slot int64) (rec record.Record, state uint8, err error) {
	buf, err := area.Read(blockio.BlockID(slot / S.blockFactor))
	if err != nil {
		return
	}

	offset := (slot % S.blockFactor) * S.schema.RecordWidth()
	rec, state, err = S.schema.Unpack(buf[offset : offset+S.schema.RecordWidth()])

	return
}

// writeSlot - Writes one record slot, leaving the other slots of the block untouched
func (S *SeqFile) writeSlot(area *blockio.File, slot int64, rec record.Record, state uint8) (err error) {
	packed, err := S.schema.Pack(rec, state)
	if err != nil {
		return
	}

	id := blockio.BlockID(slot / S.blockFactor)
	buf, err := area.Read(id)
	if err != nil {
		return
	}

	offset := (slot % S.blockFactor) * S.schema.RecordWidth()
	copy(buf[offset:], packed)
	err = area.Write(id, buf)

	return
}
