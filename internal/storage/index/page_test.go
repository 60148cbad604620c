package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/flint/internal/storage"
)

func TestPageInsertAtKeepsSortedOrder(t *testing.T) {
	page := NewPage(true)

	keys := []uint64{30, 10, 20}
	for _, k := range keys {
		_, pos, err := page.BinarySearch(k)
		require.NoError(t, err)
		entry := NewLeafEntry(k, storage.TuplePointer{SegmentID: uint32(k)})
		require.NoError(t, page.InsertAt(pos, entry))
	}

	entries, err := page.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []uint64{10, 20, 30}, []uint64{entries[0].Key, entries[1].Key, entries[2].Key})
}

func TestPageBinarySearchFindsExisting(t *testing.T) {
	page := NewPage(true)
	require.NoError(t, page.InsertAt(0, NewLeafEntry(5, storage.TuplePointer{})))
	require.NoError(t, page.InsertAt(1, NewLeafEntry(15, storage.TuplePointer{})))

	found, pos, err := page.BinarySearch(15)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, pos)

	found, _, err = page.BinarySearch(7)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPageEncodeDecodeRoundTrip(t *testing.T) {
	page := NewPage(false)
	require.NoError(t, page.InsertAt(0, NewLeafEntry(1, storage.TuplePointer{SegmentID: 9, BlockID: 2, SlotID: 3})))

	loaded, err := LoadPage(page.Bytes())
	require.NoError(t, err)
	header, err := loaded.Header()
	require.NoError(t, err)
	require.False(t, header.IsLeaf)
	require.EqualValues(t, 1, header.NumKeys)

	entry, err := loaded.GetEntry(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), entry.Key)
	require.Equal(t, storage.TuplePointer{SegmentID: 9, BlockID: 2, SlotID: 3}, entry.AsTuplePointer())
}

func TestLoadPageRejectsWrongSize(t *testing.T) {
	_, err := LoadPage(make([]byte, 10))
	require.Error(t, err)
}

func TestPageSiblingPointers(t *testing.T) {
	page := NewPage(true)
	_, ok, err := page.NextSibling()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, page.SetNextSibling(storage.NewPageID(0, 7), true))
	next, ok, err := page.NextSibling()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, storage.NewPageID(0, 7), next)
}

func TestPageInsertAtFailsWhenFull(t *testing.T) {
	page := NewPage(true)
	for i := 0; i < MaxEntries; i++ {
		require.NoError(t, page.InsertAt(i, NewLeafEntry(uint64(i), storage.TuplePointer{})))
	}
	err := page.InsertAt(MaxEntries, NewLeafEntry(9999, storage.TuplePointer{}))
	require.Error(t, err)
}
