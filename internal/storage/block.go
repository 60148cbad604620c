package storage

import (
	"fmt"
)

// Block is the in-memory mirror of one 64KB slotted page: a BlockHeader
// tracking free space, a slot directory growing forward from the header,
// and tuple payloads packed backward from the end of the block. Data is
// held as a flat byte slice and header/slot fields are read and written
// through explicit encoding/binary calls rather than a struct overlay.
type Block struct {
	Data [BlockSize]byte
}

// NewBlock returns a freshly initialized, empty block.
func NewBlock() *Block {
	b := &Block{}
	copy(b.Data[:BlockHeaderSize], NewBlockHeader().Encode())
	return b
}

// LoadBlock wraps an existing on-disk block image without reinitializing it.
func LoadBlock(data []byte) (*Block, error) {
	if len(data) != BlockSize {
		return nil, fmt.Errorf("block data must be exactly %d bytes, got %d", BlockSize, len(data))
	}
	b := &Block{}
	copy(b.Data[:], data)
	return b, nil
}

func (b *Block) Header() BlockHeader {
	return DecodeBlockHeader(b.Data[:BlockHeaderSize])
}

func (b *Block) setHeader(h BlockHeader) {
	copy(b.Data[:BlockHeaderSize], h.Encode())
}

func slotOffset(slotID SlotID) int {
	return BlockHeaderSize + int(slotID)*SlotEntrySize
}

func (b *Block) Slot(slotID SlotID) SlotEntry {
	off := slotOffset(slotID)
	return DecodeSlotEntry(b.Data[off : off+SlotEntrySize])
}

func (b *Block) setSlot(slotID SlotID, s SlotEntry) {
	off := slotOffset(slotID)
	copy(b.Data[off:off+SlotEntrySize], s.Encode())
}

// ReadTuple returns the tuple payload stored at slotID, or false if the slot
// is empty (never written, or previously deleted).
func (b *Block) ReadTuple(slotID SlotID) ([]byte, bool) {
	slot := b.Slot(slotID)
	if slot.IsEmpty() {
		return nil, false
	}
	start := int(slot.Offset)
	end := start + int(slot.Length)
	out := make([]byte, end-start)
	copy(out, b.Data[start:end])
	return out, true
}

// AppendTuple allocates a new slot and writes data into the block's tuple
// heap, growing the slot directory forward and the heap backward. It
// returns false when the block has insufficient free space; Database.InsertRow
// reports that as a "Block full" storage error.
func (b *Block) AppendTuple(data []byte) (SlotID, bool) {
	header := b.Header()
	slotID := SlotID(header.SlotCount)

	totalSpace := SlotEntrySize + len(data)
	if header.FreeSpace() < totalSpace {
		return 0, false
	}

	newFreeEnd := header.FreeEnd - uint32(len(data))
	copy(b.Data[newFreeEnd:header.FreeEnd], data)

	b.setSlot(slotID, SlotEntry{Offset: uint16(newFreeEnd), Length: uint16(len(data))})

	header.SlotCount++
	header.FreeStart += SlotEntrySize
	header.FreeEnd = newFreeEnd
	b.setHeader(header)

	return slotID, true
}

// DeleteTuple clears the slot so ReadTuple reports it empty. The tuple
// heap space is not reclaimed; compaction of partially-deleted blocks is
// left to a future maintenance pass, matching the original implementation's
// scope.
func (b *Block) DeleteTuple(slotID SlotID) {
	b.setSlot(slotID, SlotEntry{})
}

// Bytes returns the block's raw on-disk image, suitable for writing via
// Disk.WriteAt.
func (b *Block) Bytes() []byte {
	return b.Data[:]
}
