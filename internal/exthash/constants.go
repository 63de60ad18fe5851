package exthash

// Default parameters used when the caller leaves the corresponding Params field zero
const (
	DefaultBlockFactor    int64 = 8
	DefaultMaxGlobalDepth int64 = 16
)

// Bucket block layout, the local depth is followed by blockFactor record slots
const (
	localDepthOffset   int64 = 0
	bucketHeaderLength int64 = 8
)

// Offsets into the bucket file parameter area
const (
	blockFactorOffset    int64 = 0
	maxGlobalDepthOffset int64 = 8
)

// Directory file layout, the global depth is followed by 2^globalDepth bucket ids
const (
	globalDepthOffset int64 = 0
	dirHeaderLength   int64 = 8
	dirEntryLength    int64 = 8
)
