// Package exthash implements an extendible hashing file. Records live in fixed
// size bucket blocks addressed through a directory of 2^globalDepth pointers.
// A bucket that overflows is split in two and when its local depth already
// equals the global depth the directory doubles first. The directory lives in
// its own file and is persisted wholesale, the buckets live in a block file.
package exthash

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/sondeo/fileindex/internal/blockio"
	"github.com/sondeo/fileindex/record"
)

// Params - Tunable parameters of a new hash file
//   - BlockFactor is the number of record slots per bucket, 0 means DefaultBlockFactor
//   - MaxGlobalDepth caps how often the directory may double, 0 means DefaultMaxGlobalDepth
type Params struct {
	BlockFactor    int64
	MaxGlobalDepth int64
}

// HashFile - An extendible hashing structure over two files, one holding the
// directory and one holding the buckets
type HashFile struct {
	schema      *record.Schema
	counters    *blockio.Counters
	buckets     *blockio.File
	dir         *os.File
	dirName     string
	blockFactor int64
	maxDepth    int64
	globalDepth int64
	directory   []blockio.BlockID
}

// DirFileName - Returns the name of the directory file
func DirFileName(name string) string {
	return fmt.Sprintf("%s-dir.bin", name)
}

// BucketFileName - Returns the name of the bucket file
func BucketFileName(name string) string {
	return fmt.Sprintf("%s-bkt.bin", name)
}

// Create - Creates a new hash file pair. The directory starts with a global depth
// of zero, a single pointer to one empty bucket.
//   - name is the path prefix shared by the two files
//   - schema describes the records to be stored
//   - params are the structure parameters
//   - counters is the structure wide disk access counters
func Create(name string, schema *record.Schema, params Params, counters *blockio.Counters) (h *HashFile, err error) {
	if params.BlockFactor == 0 {
		params.BlockFactor = DefaultBlockFactor
	}
	if params.MaxGlobalDepth == 0 {
		params.MaxGlobalDepth = DefaultMaxGlobalDepth
	}
	if params.BlockFactor < 1 {
		err = fmt.Errorf("block factor must be at least 1")
		return
	}
	if params.MaxGlobalDepth < 1 || params.MaxGlobalDepth > 30 {
		err = fmt.Errorf("max global depth must be between 1 and 30")
		return
	}

	blockSize := bucketHeaderLength + params.BlockFactor*schema.RecordWidth()

	buckets, err := blockio.Create(BucketFileName(name), blockSize, counters)
	if err != nil {
		return
	}

	dirPtr, err := os.OpenFile(DirFileName(name), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		buckets.Close()
		err = fmt.Errorf("unable to create directory file: %w", err)
		return
	}

	h = &HashFile{
		schema:      schema,
		counters:    counters,
		buckets:     buckets,
		dir:         dirPtr,
		dirName:     DirFileName(name),
		blockFactor: params.BlockFactor,
		maxDepth:    params.MaxGlobalDepth,
	}

	first, err := buckets.Allocate()
	if err != nil {
		h.Close()
		h = nil
		return
	}
	h.directory = []blockio.BlockID{first}

	err = h.writeDirectory()
	if err == nil {
		err = h.writeParams()
	}
	if err != nil {
		h.Close()
		h = nil
	}

	return
}

// Open - Opens an existing hash file pair and validates the stored parameters
// against the supplied schema
func Open(name string, schema *record.Schema, counters *blockio.Counters) (h *HashFile, err error) {
	buckets, err := blockio.Open(BucketFileName(name), counters)
	if err != nil {
		return
	}

	dirPtr, err := os.OpenFile(DirFileName(name), os.O_RDWR, 0644)
	if err != nil {
		buckets.Close()
		err = fmt.Errorf("unable to open directory file: %w", err)
		return
	}

	h = &HashFile{
		schema:   schema,
		counters: counters,
		buckets:  buckets,
		dir:      dirPtr,
		dirName:  DirFileName(name),
	}

	err = h.readParams()
	if err == nil {
		err = h.readDirectory()
	}
	if err != nil {
		h.Close()
		h = nil
		return
	}

	if bucketHeaderLength+h.blockFactor*schema.RecordWidth() != buckets.BlockSize() {
		h.Close()
		h = nil
		err = fmt.Errorf("stored bucket layout doesn't match the supplied schema: %w", idxerr.SchemaMismatch{})
	}

	return
}

// GlobalDepth - Returns the current global depth of the directory
func (H *HashFile) GlobalDepth() int64 {
	return H.globalDepth
}

// DirectorySize - Returns the number of directory pointers, always 2^globalDepth
func (H *HashFile) DirectorySize() int64 {
	return int64(len(H.directory))
}

// Close - Syncs and closes both backing files
func (H *HashFile) Close() {
	H.buckets.Close()
	if H.dir != nil {
		_ = H.dir.Sync()
		_ = H.dir.Close()
		H.dir = nil
	}
}

// Remove - Removes both backing files, make sure to close them first
func (H *HashFile) Remove() (err error) {
	err = H.buckets.Remove()
	if err != nil {
		return
	}

	if stat, ok := os.Stat(H.dirName); ok == nil {
		if !stat.IsDir() {
			err = os.Remove(H.dirName)
			if err != nil {
				err = fmt.Errorf("error while removing directory file: %w", err)
			}
		}
	}

	return
}

// hashKey - Hashes a key by packing it to its on disk form and running CRC-32
// over the bytes
func (H *HashFile) hashKey(key record.Value) (hash uint32, err error) {
	buf, err := H.schema.Key().PackValue(key)
	if err != nil {
		return
	}
	hash = crc32.ChecksumIEEE(buf)

	return
}

// dirIndex - Returns the directory index of a hash, the low globalDepth bits
func (H *HashFile) dirIndex(hash uint32) int64 {
	return int64(hash) & (int64(len(H.directory)) - 1)
}

// writeDirectory - Persists the whole directory to the directory file. The
// directory is one logical page of the structure, it is registered as one write.
func (H *HashFile) writeDirectory() (err error) {
	buf := make([]byte, dirHeaderLength+int64(len(H.directory))*dirEntryLength)
	binary.LittleEndian.PutUint64(buf[globalDepthOffset:], uint64(H.globalDepth))
	for i, id := range H.directory {
		binary.LittleEndian.PutUint64(buf[dirHeaderLength+int64(i)*dirEntryLength:], uint64(id))
	}

	err = H.dir.Truncate(0)
	if err != nil {
		return
	}
	_, err = H.dir.Seek(0, io.SeekStart)
	if err != nil {
		return
	}
	_, err = H.dir.Write(buf)
	if err != nil {
		return
	}

	H.counters.CountWrite()

	return
}

// readDirectory - Loads the whole directory from the directory file, registered
// as one read
func (H *HashFile) readDirectory() (err error) {
	head := make([]byte, dirHeaderLength)
	_, err = H.dir.Seek(0, io.SeekStart)
	if err != nil {
		return
	}
	_, err = io.ReadFull(H.dir, head)
	if err != nil {
		return
	}

	H.globalDepth = int64(binary.LittleEndian.Uint64(head[globalDepthOffset:]))

	size := int64(1) << H.globalDepth
	buf := make([]byte, size*dirEntryLength)
	_, err = io.ReadFull(H.dir, buf)
	if err != nil {
		return
	}

	H.directory = make([]blockio.BlockID, size)
	for i := range H.directory {
		H.directory[i] = blockio.BlockID(int64(binary.LittleEndian.Uint64(buf[int64(i)*dirEntryLength:])))
	}

	H.counters.CountRead()

	return
}

// writeParams - Persists the structure parameters to the bucket file header
func (H *HashFile) writeParams() (err error) {
	buf := make([]byte, maxGlobalDepthOffset+8)
	binary.LittleEndian.PutUint64(buf[blockFactorOffset:], uint64(H.blockFactor))
	binary.LittleEndian.PutUint64(buf[maxGlobalDepthOffset:], uint64(H.maxDepth))

	err = H.buckets.WriteParams(buf)

	return
}

// readParams - Loads the structure parameters from the bucket file header
func (H *HashFile) readParams() (err error) {
	buf, err := H.buckets.ReadParams()
	if err != nil {
		return
	}

	H.blockFactor = int64(binary.LittleEndian.Uint64(buf[blockFactorOffset:]))
	H.maxDepth = int64(binary.LittleEndian.Uint64(buf[maxGlobalDepthOffset:]))

	return
}
