package blockio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/stretchr/testify/assert"
)

func TestCreate(t *testing.T) {
	t.Run("creates a new block file with only a header", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test.bin")
		counters := &Counters{}

		// Execute
		f, err := Create(name, 64, counters)

		// Check
		assert.NoError(t, err, "create block file")
		assert.Equal(t, int64(64), f.BlockSize(), "block size preserved")
		assert.Zero(t, f.BlockCount(), "no blocks yet")

		stat, err := os.Stat(name)
		assert.NoError(t, err, "file exists")
		assert.Equal(t, fileHeaderLength, stat.Size(), "file is exactly one header long")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})

	t.Run("rejects a block size that can not hold a free list link", func(t *testing.T) {
		// Execute
		_, err := Create(filepath.Join(t.TempDir(), "test.bin"), 8, &Counters{})

		// Check
		assert.Error(t, err, "too small block size rejected")
	})
}

func TestOpen(t *testing.T) {
	t.Run("opens an existing block file and restores its header", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test.bin")
		counters := &Counters{}

		f, err := Create(name, 64, counters)
		assert.NoError(t, err, "create block file")
		_, err = f.Allocate()
		assert.NoError(t, err, "allocate block")
		err = f.WriteParams([]byte{1, 2, 3})
		assert.NoError(t, err, "write params")
		f.Close()

		// Execute
		f, err = Open(name, counters)

		// Check
		assert.NoError(t, err, "open block file")
		assert.Equal(t, int64(64), f.BlockSize(), "block size restored")
		assert.Equal(t, int64(1), f.BlockCount(), "block count restored")

		params, err := f.ReadParams()
		assert.NoError(t, err, "read params")
		assert.Equal(t, []byte{1, 2, 3}, params[:3], "params restored")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})

	t.Run("rejects a file whose size disagrees with its header", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test.bin")
		counters := &Counters{}

		f, err := Create(name, 64, counters)
		assert.NoError(t, err, "create block file")
		_, err = f.Allocate()
		assert.NoError(t, err, "allocate block")
		f.Close()

		err = os.Truncate(name, fileHeaderLength+32)
		assert.NoError(t, err, "truncate mid block")

		// Execute
		_, err = Open(name, counters)

		// Check
		assert.True(t, errors.Is(err, idxerr.CorruptPage{}), "size disagreement is a corrupt page")
	})

	t.Run("rejects a file without the magic number", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test.bin")
		err := os.WriteFile(name, make([]byte, fileHeaderLength), 0644)
		assert.NoError(t, err, "write bogus file")

		// Execute
		_, err = Open(name, &Counters{})

		// Check
		assert.True(t, errors.Is(err, idxerr.CorruptPage{}), "missing magic is a corrupt page")
	})
}

func TestFile_ReadWrite(t *testing.T) {
	t.Run("round trips a block and counts the accesses", func(t *testing.T) {
		// Prepare
		counters := &Counters{}
		f, err := Create(filepath.Join(t.TempDir(), "test.bin"), 64, counters)
		assert.NoError(t, err, "create block file")

		id, err := f.Allocate()
		assert.NoError(t, err, "allocate block")

		counters.BeginOp()
		buf := make([]byte, 64)
		copy(buf, "hello blocks")

		// Execute
		err = f.Write(id, buf)
		assert.NoError(t, err, "write block")
		got, err := f.Read(id)

		// Check
		assert.NoError(t, err, "read block")
		assert.Equal(t, buf, got, "block round trips")

		reads, writes := counters.OpCost()
		assert.Equal(t, uint64(1), reads, "one read counted")
		assert.Equal(t, uint64(1), writes, "one write counted")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})

	t.Run("rejects reading outside the allocated range", func(t *testing.T) {
		// Prepare
		f, err := Create(filepath.Join(t.TempDir(), "test.bin"), 64, &Counters{})
		assert.NoError(t, err, "create block file")

		// Execute
		_, err = f.Read(0)

		// Check
		assert.True(t, errors.Is(err, idxerr.CorruptPage{}), "out of range read is a corrupt page")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})

	t.Run("rejects a buffer that is not one block", func(t *testing.T) {
		// Prepare
		f, err := Create(filepath.Join(t.TempDir(), "test.bin"), 64, &Counters{})
		assert.NoError(t, err, "create block file")

		id, err := f.Allocate()
		assert.NoError(t, err, "allocate block")

		// Execute
		err = f.Write(id, make([]byte, 10))

		// Check
		assert.True(t, errors.Is(err, idxerr.CorruptPage{}), "short buffer is a corrupt page")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})
}

func TestFile_Free(t *testing.T) {
	t.Run("reuses freed blocks in reverse order of freeing", func(t *testing.T) {
		// Prepare
		f, err := Create(filepath.Join(t.TempDir(), "test.bin"), 64, &Counters{})
		assert.NoError(t, err, "create block file")

		first, err := f.Allocate()
		assert.NoError(t, err, "allocate first block")
		second, err := f.Allocate()
		assert.NoError(t, err, "allocate second block")

		err = f.Free(first)
		assert.NoError(t, err, "free first block")
		err = f.Free(second)
		assert.NoError(t, err, "free second block")

		// Execute
		reusedSecond, err := f.Allocate()
		assert.NoError(t, err, "reallocate block")
		reusedFirst, err := f.Allocate()
		assert.NoError(t, err, "reallocate block")
		fresh, err := f.Allocate()
		assert.NoError(t, err, "allocate fresh block")

		// Check
		assert.Equal(t, second, reusedSecond, "last freed block reused first")
		assert.Equal(t, first, reusedFirst, "first freed block reused second")
		assert.Equal(t, BlockID(2), fresh, "fresh block appended after reuse")
		assert.Equal(t, int64(3), f.BlockCount(), "block count unchanged by reuse")

		buf, err := f.Read(reusedSecond)
		assert.NoError(t, err, "read reused block")
		assert.Equal(t, make([]byte, 64), buf, "reused block handed out zeroed")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})

	t.Run("survives a close and reopen with a pending free list", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "test.bin")
		counters := &Counters{}

		f, err := Create(name, 64, counters)
		assert.NoError(t, err, "create block file")
		first, err := f.Allocate()
		assert.NoError(t, err, "allocate first block")
		_, err = f.Allocate()
		assert.NoError(t, err, "allocate second block")
		err = f.Free(first)
		assert.NoError(t, err, "free first block")
		f.Close()

		// Execute
		f, err = Open(name, counters)
		assert.NoError(t, err, "reopen block file")
		reused, err := f.Allocate()

		// Check
		assert.NoError(t, err, "reallocate block")
		assert.Equal(t, first, reused, "free list survives reopen")

		// Clean up
		f.Close()
		err = f.Remove()
		assert.NoError(t, err, "removes file")
	})
}

func TestCounters(t *testing.T) {
	t.Run("keeps per operation and lifetime counts apart", func(t *testing.T) {
		// Prepare
		counters := &Counters{}

		// Execute
		counters.BeginOp()
		counters.CountRead()
		counters.CountWrite()
		counters.CountWrite()
		counters.BeginOp()
		counters.CountRead()

		// Check
		reads, writes := counters.OpCost()
		assert.Equal(t, uint64(1), reads, "window holds one read")
		assert.Zero(t, writes, "window holds no writes")

		reads, writes = counters.Totals()
		assert.Equal(t, uint64(2), reads, "lifetime reads accumulate")
		assert.Equal(t, uint64(2), writes, "lifetime writes accumulate")
	})

	t.Run("adds absorbed costs to both windows", func(t *testing.T) {
		// Prepare
		counters := &Counters{}
		counters.BeginOp()

		// Execute
		counters.Add(3, 1)

		// Check
		reads, writes := counters.OpCost()
		assert.Equal(t, uint64(3), reads, "absorbed reads in window")
		assert.Equal(t, uint64(1), writes, "absorbed writes in window")

		reads, writes = counters.Totals()
		assert.Equal(t, uint64(3), reads, "absorbed reads in totals")
		assert.Equal(t, uint64(1), writes, "absorbed writes in totals")
	})
}
