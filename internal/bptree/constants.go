package bptree

// DefaultOrder - Default tree order, the maximum number of children of an internal
// node. Every node holds at most order-1 keys.
const DefaultOrder int64 = 4

// MinOrder - Smallest usable tree order
const MinOrder int64 = 3

// nodeHeaderLength - Length of the header in each node block
const nodeHeaderLength int64 = 11

// nodeKindOffset - Node header offset to the node kind - 1 byte
const nodeKindOffset int64 = 0

// nodeCountOffset - Node header offset to the key count - 2 bytes
const nodeCountOffset int64 = 1

// nodeNextOffset - Node header offset to the next leaf block id, only meaningful for
// leaves - 8 bytes
const nodeNextOffset int64 = 3

// kindInternal - Node kind tag for internal nodes
const kindInternal uint8 = 0

// kindLeaf - Node kind tag for leaf nodes
const kindLeaf uint8 = 1

// orderOffset - Parameter area offset to the tree order - 8 bytes
const orderOffset int64 = 0

// rootOffset - Parameter area offset to the root block id - 8 bytes
const rootOffset int64 = 8

// heightOffset - Parameter area offset to the tree height - 8 bytes
const heightOffset int64 = 16

// payloadWidthOffset - Parameter area offset to the leaf payload width - 8 bytes
const payloadWidthOffset int64 = 24
