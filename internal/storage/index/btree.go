package index

import (
	"fmt"

	"github.com/iamNilotpal/flint/internal/storage"
)

// BTree is a paged B+-tree index. It tracks only its root page ID; every
// other page is located by following child pointers stored in index
// entries.
//
// A root split does not build a new parent page: the left half is rewritten
// in place at the current root page ID, the right half is written to a
// freshly allocated page, and the promoted key plus the right sibling's
// page image are returned to the caller as a Split. This mirrors the
// original implementation's documented behavior - the tree stays
// effectively single-level, capped at MaxEntries keys, rather than growing
// a true multi-level B+-tree. It is an accepted limitation, not a bug to
// paper over: full parent-page construction is out of scope here.
type BTree struct {
	rootPageID storage.PageID
	hasRoot    bool
}

func NewBTree(rootPageID storage.PageID, hasRoot bool) *BTree {
	return &BTree{rootPageID: rootPageID, hasRoot: hasRoot}
}

func (t *BTree) RootPageID() (storage.PageID, bool) { return t.rootPageID, t.hasRoot }

func (t *BTree) Type() string           { return "btree" }
func (t *BTree) Capability() Capability { return Ordered }

// InsertIntoPage inserts key/ptr into page, upserting in place when key is
// already present. It returns a non-nil splitResult when the page had no
// room and had to split.
func InsertIntoPage(page *Page, key uint64, ptr storage.TuplePointer) (*splitResult, error) {
	found, pos, err := page.BinarySearch(key)
	if err != nil {
		return nil, err
	}

	entry := NewLeafEntry(key, ptr)

	if found {
		off := entryOffset(pos)
		copy(page.Data[off:off+EntrySize], entry.Encode())
		return nil, nil
	}

	if err := page.InsertAt(pos, entry); err != nil {
		return splitPage(page, pos, entry)
	}
	return nil, nil
}

type splitResult struct {
	promotedKey uint64
	rightPage   *Page
}

func splitPage(page *Page, insertPos int, newEntry IndexEntry) (*splitResult, error) {
	entries, err := page.Entries()
	if err != nil {
		return nil, err
	}

	entries = append(entries, IndexEntry{})
	copy(entries[insertPos+1:], entries[insertPos:])
	entries[insertPos] = newEntry

	header, err := page.Header()
	if err != nil {
		return nil, err
	}
	isLeaf := header.IsLeaf

	splitPoint := len(entries) / 2
	leftEntries := entries[:splitPoint]
	rightEntries := entries[splitPoint:]
	promotedKey := rightEntries[0].Key

	if err := page.SetEntries(isLeaf, leftEntries); err != nil {
		return nil, err
	}

	rightPage := NewPage(isLeaf)
	if err := rightPage.SetEntries(isLeaf, rightEntries); err != nil {
		return nil, err
	}

	return &splitResult{promotedKey: promotedKey, rightPage: rightPage}, nil
}

// SearchPage looks up key within a single leaf page.
func SearchPage(page *Page, key uint64) (storage.TuplePointer, bool, error) {
	found, pos, err := page.BinarySearch(key)
	if err != nil || !found {
		return storage.TuplePointer{}, false, err
	}
	entry, err := page.GetEntry(pos)
	if err != nil {
		return storage.TuplePointer{}, false, err
	}
	return entry.AsTuplePointer(), true, nil
}

// RangeScanPage returns every entry in page whose key falls in
// [startKey, endKey].
func RangeScanPage(page *Page, startKey, endKey uint64) ([]Entry, error) {
	h, err := page.Header()
	if err != nil {
		return nil, err
	}

	var results []Entry
	for i := 0; i < int(h.NumKeys); i++ {
		entry, err := page.GetEntry(i)
		if err != nil {
			return nil, err
		}
		if entry.Key >= startKey && entry.Key <= endKey {
			results = append(results, Entry{Key: entry.Key, Pointer: entry.AsTuplePointer()})
		}
	}
	return results, nil
}

// ScanPage returns every entry stored in page.
func ScanPage(page *Page) ([]Entry, error) {
	entries, err := page.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Key: e.Key, Pointer: e.AsTuplePointer()}
	}
	return out, nil
}

func (t *BTree) findLeafPage(key uint64, file *storage.IndexFile) (*Page, error) {
	if !t.hasRoot {
		return nil, fmt.Errorf("btree has no root page")
	}

	currentID := t.rootPageID
	for {
		data, err := file.ReadPage(currentID)
		if err != nil {
			return nil, err
		}
		current, err := LoadPage(data)
		if err != nil {
			return nil, err
		}

		header, err := current.Header()
		if err != nil {
			return nil, err
		}
		if header.IsLeaf {
			return current, nil
		}

		found, pos, err := current.BinarySearch(key)
		if err != nil {
			return nil, err
		}
		_ = found

		var entry IndexEntry
		if pos < int(header.NumKeys) {
			entry, err = current.GetEntry(pos)
		} else {
			if header.NumKeys == 0 {
				return nil, fmt.Errorf("internal node has no keys")
			}
			entry, err = current.GetEntry(int(header.NumKeys) - 1)
		}
		if err != nil {
			return nil, err
		}

		currentID = entry.AsChildPageID()
	}
}

func (t *BTree) Insert(key uint64, ptr storage.TuplePointer, file *storage.IndexFile) (*Split, error) {
	if !t.hasRoot {
		return nil, fmt.Errorf("btree has no root page")
	}

	data, err := file.ReadPage(t.rootPageID)
	if err != nil {
		return nil, err
	}
	rootPage, err := LoadPage(data)
	if err != nil {
		return nil, err
	}

	result, err := InsertIntoPage(rootPage, key, ptr)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, file.WritePage(t.rootPageID, rootPage.Bytes())
	}

	if err := file.WritePage(t.rootPageID, rootPage.Bytes()); err != nil {
		return nil, err
	}

	rightID := file.AllocatePage()
	if err := file.WritePage(rightID, result.rightPage.Bytes()); err != nil {
		return nil, err
	}

	// A full B+-tree would build a new parent page here; instead the split
	// is surfaced to the caller, and the tree remains effectively
	// single-level, matching the original implementation.
	return &Split{PromotedKey: result.promotedKey, RightSiblingData: result.rightPage.Bytes()}, nil
}

func (t *BTree) Search(key uint64, file *storage.IndexFile) (storage.TuplePointer, bool, error) {
	leaf, err := t.findLeafPage(key, file)
	if err != nil {
		return storage.TuplePointer{}, false, err
	}
	return SearchPage(leaf, key)
}

func (t *BTree) RangeScan(startKey, endKey uint64, file *storage.IndexFile) ([]Entry, error) {
	leaf, err := t.findLeafPage(startKey, file)
	if err != nil {
		return nil, err
	}
	return RangeScanPage(leaf, startKey, endKey)
}

// FullScan returns every entry reachable from the leftmost leaf. Without
// sibling-pointer traversal this only covers the first leaf found by
// descending for key 0 - the same documented limitation the original
// implementation carries, preserved here rather than fixed, since fixing it
// requires the multi-level tree structure this port intentionally does not
// build.
func (t *BTree) FullScan(file *storage.IndexFile) ([]Entry, error) {
	leaf, err := t.findLeafPage(0, file)
	if err != nil {
		return nil, err
	}
	return ScanPage(leaf)
}

type btreeBuilder struct{}

func (btreeBuilder) Create(rootPageID storage.PageID, hasRoot bool) Index {
	return NewBTree(rootPageID, hasRoot)
}

func (btreeBuilder) TypeName() string { return "btree" }
