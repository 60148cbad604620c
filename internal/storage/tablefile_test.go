package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTableFileAllocateAndReadWriteBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	tf, err := OpenTableFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer tf.Close()

	segmentID, err := tf.AllocateSegment()
	require.NoError(t, err)
	require.EqualValues(t, 0, segmentID)

	blockID, ok, err := tf.AllocateBlock(segmentID)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, blockID, "block 0 of segment 0 is reserved")

	block, err := tf.ReadBlock(segmentID, blockID)
	require.NoError(t, err)

	slotID, ok := block.AppendTuple([]byte("row-data"))
	require.True(t, ok)

	require.NoError(t, tf.WriteBlock(segmentID, blockID, block))

	reread, err := tf.ReadBlock(segmentID, blockID)
	require.NoError(t, err)
	got, ok := reread.ReadTuple(slotID)
	require.True(t, ok)
	require.Equal(t, "row-data", string(got))
}

func TestTableFileAllocateBlockOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	tf, err := OpenTableFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer tf.Close()

	segmentID, err := tf.AllocateSegment()
	require.NoError(t, err)

	_, err = tf.ReadBlock(segmentID, BlocksPerSegment)
	require.Error(t, err)
}

func TestTableFileSegmentFillsUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	tf, err := OpenTableFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer tf.Close()

	segmentID, err := tf.AllocateSegment()
	require.NoError(t, err)

	for i := 0; i < BlocksPerSegment-1; i++ {
		_, ok, err := tf.AllocateBlock(segmentID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, ok, err := tf.AllocateBlock(segmentID)
	require.NoError(t, err)
	require.False(t, ok, "segment should report full once every non-reserved block is used")
}

func TestTableFileNextSegmentIDPersistsAcrossRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	tf, err := OpenTableFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer tf.Close()

	require.EqualValues(t, 0, tf.NextSegmentID())
	_, err = tf.AllocateSegment()
	require.NoError(t, err)
	require.EqualValues(t, 1, tf.NextSegmentID())

	tf.SetNextSegmentID(5)
	require.EqualValues(t, 5, tf.NextSegmentID())
}

func TestTableFileFreeBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.tbl")
	tf, err := OpenTableFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer tf.Close()

	segmentID, err := tf.AllocateSegment()
	require.NoError(t, err)

	blockID, ok, err := tf.AllocateBlock(segmentID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, tf.FreeBlock(segmentID, blockID))

	header, err := tf.ReadSegmentHeader(segmentID)
	require.NoError(t, err)
	require.True(t, header.IsBlockFree(blockID))
}
