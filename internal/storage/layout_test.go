package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentHeaderEncodeDecodeRoundTrip(t *testing.T) {
	header := NewSegmentHeader(7)
	decoded, err := DecodeSegmentHeader(header.Encode())
	require.NoError(t, err)
	require.Equal(t, header, decoded)
}

func TestDecodeSegmentHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, SegmentHeaderSize)
	_, err := DecodeSegmentHeader(buf)
	require.Error(t, err)
}

func TestSegmentHeaderBlockBitmap(t *testing.T) {
	header := NewSegmentHeader(0)
	require.True(t, header.IsBlockFree(3))

	header.MarkBlockUsed(3)
	require.False(t, header.IsBlockFree(3))
	require.EqualValues(t, 1, header.BlocksUsed)

	header.MarkBlockFree(3)
	require.True(t, header.IsBlockFree(3))
	require.EqualValues(t, 0, header.BlocksUsed)
}

func TestBlockHeaderEncodeDecodeRoundTrip(t *testing.T) {
	header := NewBlockHeader()
	header.SlotCount = 5
	header.FreeEnd = BlockSize - 100

	decoded := DecodeBlockHeader(header.Encode())
	require.Equal(t, header, decoded)
}

func TestSlotEntryEncodeDecodeRoundTrip(t *testing.T) {
	entry := SlotEntry{Offset: 123, Length: 45}
	decoded := DecodeSlotEntry(entry.Encode())
	require.Equal(t, entry, decoded)
	require.False(t, decoded.IsEmpty())
	require.True(t, SlotEntry{}.IsEmpty())
}

func TestPageIDPacking(t *testing.T) {
	id := NewPageID(12, 34)
	require.EqualValues(t, 12, id.SegmentID())
	require.EqualValues(t, 34, id.Offset())
}

func TestTuplePointerBlockOffset(t *testing.T) {
	ptr := TuplePointer{SegmentID: 1, BlockID: 2, SlotID: 0}
	want := int64(1)*SegmentSize + SegmentHeaderSize + int64(2)*BlockSize
	require.Equal(t, want, ptr.BlockOffset())
}
