package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockAppendAndReadTuple(t *testing.T) {
	block := NewBlock()

	slotID, ok := block.AppendTuple([]byte("first"))
	require.True(t, ok)
	require.EqualValues(t, 0, slotID)

	slotID2, ok := block.AppendTuple([]byte("second"))
	require.True(t, ok)
	require.EqualValues(t, 1, slotID2)

	got, ok := block.ReadTuple(slotID)
	require.True(t, ok)
	require.True(t, bytes.Equal([]byte("first"), got))

	got2, ok := block.ReadTuple(slotID2)
	require.True(t, ok)
	require.True(t, bytes.Equal([]byte("second"), got2))
}

func TestBlockReadEmptySlot(t *testing.T) {
	block := NewBlock()
	_, ok := block.ReadTuple(0)
	require.False(t, ok)
}

func TestBlockDeleteTuple(t *testing.T) {
	block := NewBlock()
	slotID, ok := block.AppendTuple([]byte("gone"))
	require.True(t, ok)

	block.DeleteTuple(slotID)
	_, ok = block.ReadTuple(slotID)
	require.False(t, ok)
}

func TestBlockAppendFailsWhenFull(t *testing.T) {
	block := NewBlock()
	payload := bytes.Repeat([]byte("x"), 1024)

	inserted := 0
	for {
		_, ok := block.AppendTuple(payload)
		if !ok {
			break
		}
		inserted++
	}
	require.Greater(t, inserted, 0)

	_, ok := block.AppendTuple(payload)
	require.False(t, ok)
}

func TestLoadBlockRejectsWrongSize(t *testing.T) {
	_, err := LoadBlock(make([]byte, 10))
	require.Error(t, err)
}

func TestLoadBlockRoundTrip(t *testing.T) {
	block := NewBlock()
	block.AppendTuple([]byte("payload"))

	loaded, err := LoadBlock(block.Bytes())
	require.NoError(t, err)
	got, ok := loaded.ReadTuple(0)
	require.True(t, ok)
	require.Equal(t, "payload", string(got))
}
