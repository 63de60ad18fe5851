package isam

// DefaultBlockFactor - Default number of record slots per data block
const DefaultBlockFactor int64 = 10

// DefaultIndexFanout - Default number of (max key, child) entries per index block
const DefaultIndexFanout int64 = 8

// dataBlockHeaderLength - Length of the header in each data and overflow block
const dataBlockHeaderLength int64 = 10

// dataCountOffset - Data block header offset to the slot count - 2 bytes
const dataCountOffset int64 = 0

// dataOverflowOffset - Data block header offset to the next overflow block id - 8 bytes
const dataOverflowOffset int64 = 2

// indexBlockHeaderLength - Length of the header in each index block
const indexBlockHeaderLength int64 = 2

// indexCountOffset - Index block header offset to the entry count - 2 bytes
const indexCountOffset int64 = 0

// blockFactorOffset - Parameter area offset (data file) to the block factor - 8 bytes
const blockFactorOffset int64 = 0

// dataBlocksOffset - Parameter area offset (data file) to the number of primary data
// blocks laid down at build time - 8 bytes
const dataBlocksOffset int64 = 8

// indexFanoutOffset - Parameter area offset (index file) to the index fanout - 8 bytes
const indexFanoutOffset int64 = 0

// levelsOffset - Parameter area offset (index file) to the number of index levels - 8 bytes
const levelsOffset int64 = 8

// rootBlockOffset - Parameter area offset (index file) to the root index block id - 8 bytes
const rootBlockOffset int64 = 16
