package blockio

// fileHeaderLength - Length of the block file header
const fileHeaderLength int64 = 1024

// magicOffset - Header offset to the file magic - 4 bytes
const magicOffset int64 = 0

// blockSizeOffset - Header offset to the fixed block size in bytes - 8 bytes
const blockSizeOffset int64 = 4

// blockCountOffset - Header offset to the number of allocated blocks - 8 bytes
const blockCountOffset int64 = 12

// freeListOffset - Header offset to the block id heading the free list - 8 bytes
const freeListOffset int64 = 20

// paramsOffset - Header offset to the parameter area owned by the structure using
// the file. The area extends to the end of the header.
const paramsOffset int64 = 28

// ParamsLength - Length of the parameter area in the file header
const ParamsLength int64 = fileHeaderLength - paramsOffset

// fileMagic - Identifies a block file created by this package
const fileMagic uint32 = 0x46495842
