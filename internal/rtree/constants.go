package rtree

// Default parameters used when the caller leaves the corresponding Params field zero
const (
	DefaultMinEntries int64 = 2
	DefaultMaxEntries int64 = 8
)

// Node block layout, a header followed by the entry area. Leaf entries are packed
// records, internal entries are a bounding rectangle and a child block id.
const (
	leafOffset          int64 = 0
	countOffset         int64 = 1
	parentOffset        int64 = 3
	nodeHeaderLength    int64 = 11
	rectLength          int64 = 32
	internalEntryLength int64 = rectLength + 8
)

// Offsets into the file parameter area
const (
	minEntriesOffset   int64 = 0
	maxEntriesOffset   int64 = 8
	rootOffset         int64 = 16
	heightOffset       int64 = 24
	spatialFieldOffset int64 = 32
	recordWidthOffset  int64 = 40
)
