package blockio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sondeo/fileindex/idxerr"
)

// BlockID - Identifies one fixed size block within a block file
type BlockID int64

// NilBlock - The null block id, used to terminate overflow chains and the free list
const NilBlock BlockID = -1

// File - One backing file of fixed size blocks. Blocks are read and written whole,
// every access goes through the shared Counters, and freed blocks are recycled
// through a singly linked free list kept in the first bytes of each free block.
type File struct {
	name       string
	file       *os.File
	blockSize  int64
	blockCount int64
	freeHead   BlockID
	counters   *Counters
}

// Create - Creates a new block file, truncating any existing file with the same name.
//   - name is the file name on disk
//   - blockSize is the fixed block size in bytes, it can not be changed afterwards
//   - counters is the structure wide disk access counters
func Create(name string, blockSize int64, counters *Counters) (f *File, err error) {
	if blockSize <= 8 {
		err = fmt.Errorf("block size must be larger than 8 bytes")
		return
	}

	filePtr, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		err = fmt.Errorf("unable to create block file: %w", err)
		return
	}

	f = &File{
		name:      name,
		file:      filePtr,
		blockSize: blockSize,
		freeHead:  NilBlock,
		counters:  counters,
	}

	err = f.writeHeader()
	if err == nil {
		// Zero the parameter area so the file is exactly one header long
		err = f.WriteParams(nil)
	}
	if err != nil {
		_ = filePtr.Close()
		f = nil
		return
	}

	return
}

// Open - Opens an existing block file and validates its header against the physical
// file size. A size disagreement yields a CorruptPage error.
func Open(name string, counters *Counters) (f *File, err error) {
	stat, err := os.Stat(name)
	if err != nil {
		err = fmt.Errorf("block file not found: %w", err)
		return
	}

	filePtr, err := os.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		err = fmt.Errorf("unable to open block file: %w", err)
		return
	}

	f = &File{name: name, file: filePtr, counters: counters}

	err = f.readHeader()
	if err != nil {
		_ = filePtr.Close()
		f = nil
		return
	}

	if stat.Size() != fileHeaderLength+f.blockCount*f.blockSize {
		_ = filePtr.Close()
		f = nil
		err = fmt.Errorf("actual file size doesn't conform with header indicated size: %w", idxerr.CorruptPage{})
		return
	}

	return
}

// BlockSize - Returns the fixed block size in bytes
func (F *File) BlockSize() int64 {
	return F.blockSize
}

// BlockCount - Returns the number of allocated blocks, free listed blocks included
func (F *File) BlockCount() int64 {
	return F.blockCount
}

// Allocate - Returns the id of a fresh zeroed block, reusing the head of the free
// list when one is available and appending to the file otherwise
func (F *File) Allocate() (id BlockID, err error) {
	if F.freeHead != NilBlock {
		id = F.freeHead

		var buf []byte
		buf, err = F.Read(id)
		if err != nil {
			return
		}
		F.freeHead = BlockID(int64(binary.LittleEndian.Uint64(buf)))

		err = F.Write(id, make([]byte, F.blockSize))
		if err != nil {
			return
		}

		err = F.writeHeader()
		return
	}

	id = BlockID(F.blockCount)
	F.blockCount++

	err = F.Write(id, make([]byte, F.blockSize))
	if err != nil {
		F.blockCount--
		return
	}

	err = F.writeHeader()

	return
}

// Read - Reads the block with the given id. Reading outside the allocated range or
// getting back fewer bytes than the block size yields a CorruptPage error.
func (F *File) Read(id BlockID) (buf []byte, err error) {
	if int64(id) < 0 || int64(id) >= F.blockCount {
		err = fmt.Errorf("block %d outside allocated range: %w", id, idxerr.CorruptPage{})
		return
	}

	_, err = F.file.Seek(fileHeaderLength+int64(id)*F.blockSize, io.SeekStart)
	if err != nil {
		return
	}

	buf = make([]byte, F.blockSize)
	n, err := F.file.Read(buf)
	if err != nil {
		buf = nil
		return
	}
	if int64(n) != F.blockSize {
		buf = nil
		err = fmt.Errorf("short read of block %d: %w", id, idxerr.CorruptPage{})
		return
	}

	F.counters.CountRead()

	return
}

// Write - Writes the block with the given id. The buffer must be exactly one block.
func (F *File) Write(id BlockID, buf []byte) (err error) {
	if int64(id) < 0 || int64(id) >= F.blockCount {
		err = fmt.Errorf("block %d outside allocated range: %w", id, idxerr.CorruptPage{})
		return
	}
	if int64(len(buf)) != F.blockSize {
		err = fmt.Errorf("buffer of %d bytes doesn't match block size %d: %w", len(buf), F.blockSize, idxerr.CorruptPage{})
		return
	}

	_, err = F.file.Seek(fileHeaderLength+int64(id)*F.blockSize, io.SeekStart)
	if err != nil {
		return
	}

	_, err = F.file.Write(buf)
	if err != nil {
		return
	}

	F.counters.CountWrite()

	return
}

// Free - Pushes the block on the free list for later reuse by Allocate
func (F *File) Free(id BlockID) (err error) {
	buf := make([]byte, F.blockSize)
	binary.LittleEndian.PutUint64(buf, uint64(F.freeHead))

	err = F.Write(id, buf)
	if err != nil {
		return
	}

	F.freeHead = id
	err = F.writeHeader()

	return
}

// Truncate - Drops all blocks and the free list, leaving an empty file with only
// its header. Used by structures that rebuild an area from scratch.
func (F *File) Truncate() (err error) {
	err = F.file.Truncate(fileHeaderLength)
	if err != nil {
		return
	}

	F.blockCount = 0
	F.freeHead = NilBlock
	err = F.writeHeader()

	return
}

// ReadParams - Reads the structure owned parameter area from the file header.
// Header access is bookkeeping, it is not registered as block I/O.
func (F *File) ReadParams() (buf []byte, err error) {
	_, err = F.file.Seek(paramsOffset, io.SeekStart)
	if err != nil {
		return
	}

	buf = make([]byte, ParamsLength)
	_, err = F.file.Read(buf)
	if err != nil {
		buf = nil
	}

	return
}

// WriteParams - Writes the structure owned parameter area to the file header
func (F *File) WriteParams(buf []byte) (err error) {
	if int64(len(buf)) > ParamsLength {
		err = fmt.Errorf("parameter area of %d bytes exceeds the available %d", len(buf), ParamsLength)
		return
	}

	_, err = F.file.Seek(paramsOffset, io.SeekStart)
	if err != nil {
		return
	}

	area := make([]byte, ParamsLength)
	copy(area, buf)
	_, err = F.file.Write(area)

	return
}

// Close - Syncs and closes the file
func (F *File) Close() {
	if F.file != nil {
		_ = F.file.Sync()
		_ = F.file.Close()
		F.file = nil
	}
}

// Remove - Removes the backing file, make sure to close it first
func (F *File) Remove() (err error) {
	// Only try to remove if it exists and is not by accident a directory
	if stat, ok := os.Stat(F.name); ok == nil {
		if !stat.IsDir() {
			err = os.Remove(F.name)
			if err != nil {
				err = fmt.Errorf("error while removing block file: %w", err)
			}
		}
	}

	return
}

// writeHeader - Writes the fixed header fields, preserving the parameter area
func (F *File) writeHeader() (err error) {
	buf := make([]byte, paramsOffset)
	binary.LittleEndian.PutUint32(buf[magicOffset:], fileMagic)
	binary.LittleEndian.PutUint64(buf[blockSizeOffset:], uint64(F.blockSize))
	binary.LittleEndian.PutUint64(buf[blockCountOffset:], uint64(F.blockCount))
	binary.LittleEndian.PutUint64(buf[freeListOffset:], uint64(F.freeHead))

	_, err = F.file.Seek(0, io.SeekStart)
	if err != nil {
		return
	}

	_, err = F.file.Write(buf)

	return
}

// readHeader - Reads and validates the fixed header fields
func (F *File) readHeader() (err error) {
	_, err = F.file.Seek(0, io.SeekStart)
	if err != nil {
		return
	}

	buf := make([]byte, paramsOffset)
	n, err := F.file.Read(buf)
	if err != nil {
		return
	}
	if int64(n) != paramsOffset {
		err = fmt.Errorf("short read of file header: %w", idxerr.CorruptPage{})
		return
	}

	if binary.LittleEndian.Uint32(buf[magicOffset:]) != fileMagic {
		err = fmt.Errorf("file is not a block file: %w", idxerr.CorruptPage{})
		return
	}

	F.blockSize = int64(binary.LittleEndian.Uint64(buf[blockSizeOffset:]))
	F.blockCount = int64(binary.LittleEndian.Uint64(buf[blockCountOffset:]))
	F.freeHead = BlockID(int64(binary.LittleEndian.Uint64(buf[freeListOffset:])))

	return
}
