// Package index implements the pluggable, on-disk point/range index
// abstraction: a 4KB paged B+-tree and a paged hash index, both built over
// the same IndexPage layout, registered behind a string-keyed builder
// registry so the database layer can create either kind without depending
// on their concrete types.
package index

import (
	"encoding/binary"
	"fmt"

	"github.com/iamNilotpal/flint/internal/storage"
)

const (
	// PageSize is the fixed size of every index page (4KB).
	PageSize = storage.IndexPageSize

	// HeaderSize is the fixed encoded size of IndexPageHeader.
	HeaderSize = 64

	// EntrySize is the fixed encoded size of IndexEntry.
	EntrySize = 16

	pageMagic = 0x494E4458 // "INDX"
)

// MaxEntries is the number of IndexEntry slots a single page can hold:
// (4096 - 64) / 16 = 252.
var MaxEntries = (PageSize - HeaderSize) / EntrySize

// IndexPageHeader sits at the start of every index page.
type IndexPageHeader struct {
	IsLeaf     bool
	NumKeys    uint16
	PrevPageID uint32
	NextPageID uint32
}

func NewIndexPageHeader(isLeaf bool) IndexPageHeader {
	return IndexPageHeader{IsLeaf: isLeaf}
}

func (h IndexPageHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], pageMagic)
	if h.IsLeaf {
		buf[4] = 1
	}
	binary.LittleEndian.PutUint16(buf[6:8], h.NumKeys)
	binary.LittleEndian.PutUint32(buf[8:12], h.PrevPageID)
	binary.LittleEndian.PutUint32(buf[12:16], h.NextPageID)
	return buf
}

func DecodeIndexPageHeader(buf []byte) (IndexPageHeader, error) {
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != pageMagic {
		return IndexPageHeader{}, fmt.Errorf("invalid index page magic: got %#x, want %#x", magic, pageMagic)
	}
	return IndexPageHeader{
		IsLeaf:     buf[4] != 0,
		NumKeys:    binary.LittleEndian.Uint16(buf[6:8]),
		PrevPageID: binary.LittleEndian.Uint32(buf[8:12]),
		NextPageID: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// IndexEntry is one key/pointer pair stored in a page. On a leaf page,
// SegmentID/BlockID/SlotID address the tuple the key points to. On an
// internal page, the child page's raw u32 PageID is packed into SegmentID
// and BlockID/SlotID are unused, matching the original on-disk layout so
// both node kinds share one 16-byte entry shape.
type IndexEntry struct {
	Key       uint64
	SegmentID uint32
	BlockID   uint8
	SlotID    uint16
}

func NewLeafEntry(key uint64, ptr storage.TuplePointer) IndexEntry {
	return IndexEntry{Key: key, SegmentID: ptr.SegmentID, BlockID: ptr.BlockID, SlotID: ptr.SlotID}
}

func NewInternalEntry(key uint64, childPageID storage.PageID) IndexEntry {
	return IndexEntry{Key: key, SegmentID: childPageID.Raw()}
}

func (e IndexEntry) AsTuplePointer() storage.TuplePointer {
	return storage.TuplePointer{SegmentID: e.SegmentID, BlockID: e.BlockID, SlotID: e.SlotID}
}

func (e IndexEntry) AsChildPageID() storage.PageID {
	raw := e.SegmentID
	return storage.NewPageID(uint16(raw>>16), uint16(raw&0xFFFF))
}

func (e IndexEntry) Encode() []byte {
	buf := make([]byte, EntrySize)
	binary.LittleEndian.PutUint64(buf[0:8], e.Key)
	binary.LittleEndian.PutUint32(buf[8:12], e.SegmentID)
	buf[12] = e.BlockID
	binary.LittleEndian.PutUint16(buf[14:16], e.SlotID)
	return buf
}

func DecodeIndexEntry(buf []byte) IndexEntry {
	return IndexEntry{
		Key:       binary.LittleEndian.Uint64(buf[0:8]),
		SegmentID: binary.LittleEndian.Uint32(buf[8:12]),
		BlockID:   buf[12],
		SlotID:    binary.LittleEndian.Uint16(buf[14:16]),
	}
}

// Page is the in-memory mirror of one 4KB index page.
type Page struct {
	Data [PageSize]byte
}

func NewPage(isLeaf bool) *Page {
	p := &Page{}
	copy(p.Data[:HeaderSize], NewIndexPageHeader(isLeaf).Encode())
	return p
}

func LoadPage(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("index page data must be exactly %d bytes, got %d", PageSize, len(data))
	}
	p := &Page{}
	copy(p.Data[:], data)
	if _, err := p.Header(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) Header() (IndexPageHeader, error) {
	return DecodeIndexPageHeader(p.Data[:HeaderSize])
}

func (p *Page) writeHeader(h IndexPageHeader) {
	copy(p.Data[:HeaderSize], h.Encode())
}

// NextSibling returns the page's right sibling, or false if there is none.
func (p *Page) NextSibling() (storage.PageID, bool, error) {
	h, err := p.Header()
	if err != nil {
		return 0, false, err
	}
	if h.NextPageID == 0 {
		return 0, false, nil
	}
	return storage.PageID(h.NextPageID), true, nil
}

func (p *Page) SetNextSibling(next storage.PageID, ok bool) error {
	h, err := p.Header()
	if err != nil {
		return err
	}
	if ok {
		h.NextPageID = next.Raw()
	} else {
		h.NextPageID = 0
	}
	p.writeHeader(h)
	return nil
}

func (p *Page) SetPrevSibling(prev storage.PageID, ok bool) error {
	h, err := p.Header()
	if err != nil {
		return err
	}
	if ok {
		h.PrevPageID = prev.Raw()
	} else {
		h.PrevPageID = 0
	}
	p.writeHeader(h)
	return nil
}

func entryOffset(pos int) int {
	return HeaderSize + pos*EntrySize
}

// GetEntry returns the entry at pos.
func (p *Page) GetEntry(pos int) (IndexEntry, error) {
	h, err := p.Header()
	if err != nil {
		return IndexEntry{}, err
	}
	if pos < 0 || pos >= int(h.NumKeys) {
		return IndexEntry{}, fmt.Errorf("entry index %d out of range (%d)", pos, h.NumKeys)
	}
	off := entryOffset(pos)
	return DecodeIndexEntry(p.Data[off : off+EntrySize]), nil
}

// BinarySearch returns (found, position) for key: position is the index of
// the matching entry if found, or the insertion point that keeps entries
// sorted otherwise.
func (p *Page) BinarySearch(key uint64) (bool, int, error) {
	h, err := p.Header()
	if err != nil {
		return false, 0, err
	}

	count := int(h.NumKeys)
	left, right := 0, count
	for left < right {
		mid := (left + right) / 2
		entry, err := p.GetEntry(mid)
		if err != nil {
			return false, 0, err
		}
		switch {
		case entry.Key == key:
			return true, mid, nil
		case entry.Key < key:
			left = mid + 1
		default:
			right = mid
		}
	}
	return false, left, nil
}

// InsertAt shifts entries at and after pos one slot right and writes entry
// into the freed slot. Fails if the page has no free slots left.
func (p *Page) InsertAt(pos int, entry IndexEntry) error {
	h, err := p.Header()
	if err != nil {
		return err
	}

	if int(h.NumKeys) >= MaxEntries {
		return fmt.Errorf("index page full")
	}
	if pos > int(h.NumKeys) {
		return fmt.Errorf("insert position %d out of range", pos)
	}

	count := int(h.NumKeys)
	for i := count - 1; i >= pos; i-- {
		src := entryOffset(i)
		dst := entryOffset(i + 1)
		copy(p.Data[dst:dst+EntrySize], p.Data[src:src+EntrySize])
	}

	off := entryOffset(pos)
	copy(p.Data[off:off+EntrySize], entry.Encode())

	h.NumKeys++
	p.writeHeader(h)
	return nil
}

// Entries returns every entry currently stored in the page, in key order.
func (p *Page) Entries() ([]IndexEntry, error) {
	h, err := p.Header()
	if err != nil {
		return nil, err
	}
	out := make([]IndexEntry, 0, h.NumKeys)
	for i := 0; i < int(h.NumKeys); i++ {
		e, err := p.GetEntry(i)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SetEntries resets the page (preserving isLeaf) and writes entries as its
// full contents, used when rewriting a page after a split.
func (p *Page) SetEntries(isLeaf bool, entries []IndexEntry) error {
	if len(entries) > MaxEntries {
		return fmt.Errorf("too many entries for page: %d > %d", len(entries), MaxEntries)
	}

	for i := range p.Data {
		p.Data[i] = 0
	}

	h := NewIndexPageHeader(isLeaf)
	h.NumKeys = uint16(len(entries))
	p.writeHeader(h)

	for i, e := range entries {
		off := entryOffset(i)
		copy(p.Data[off:off+EntrySize], e.Encode())
	}
	return nil
}

func (p *Page) Bytes() []byte { return p.Data[:] }
