package seqfile

// DefaultBlockFactor - Default number of record slots per block
const DefaultBlockFactor int64 = 16

// DefaultMaxAux - Default number of records the aux area may hold before a rebuild
// merges it into the main area
const DefaultMaxAux int64 = 32

// blockFactorOffset - Parameter area offset to the block factor - 8 bytes
const blockFactorOffset int64 = 0

// maxAuxOffset - Parameter area offset to the rebuild threshold - 8 bytes
const maxAuxOffset int64 = 8

// mainCountOffset - Parameter area offset to the number of main area slots - 8 bytes
const mainCountOffset int64 = 16

// auxCountOffset - Parameter area offset (aux file) to the number of aux slots - 8 bytes
const auxCountOffset int64 = 0
