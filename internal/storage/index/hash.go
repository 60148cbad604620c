package index

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	bloomfilter "github.com/bits-and-blooms/bloom/v3"

	"github.com/iamNilotpal/flint/internal/storage"
)

// HashIndex is a dynamically-bucketed, point-only hash index. Buckets are
// allocated lazily on first insert and chained via each page's next-sibling
// pointer when a bucket page fills, rather than the index pre-allocating a
// fixed bucket table.
//
// A random per-instance seed is mixed into every hash computation so an
// adversary who can choose keys cannot force pathological bucket chaining
// (hash flooding), the same property the original implementation's
// SipHash-style seeding provides.
type HashIndex struct {
	rootPageID storage.PageID
	hasRoot    bool

	seed uint64

	mu          sync.Mutex
	bucketPages map[uint32]storage.PageID

	// present is an in-memory bloom filter over every key ever inserted.
	// A negative Test means the key is certainly absent, letting Search
	// skip the bucket-chain disk reads entirely; a positive Test still
	// requires the real lookup, since bloom filters admit false positives.
	present *bloomfilter.BloomFilter
}

func NewHashIndex(rootPageID storage.PageID, hasRoot bool) *HashIndex {
	return &HashIndex{
		rootPageID:  rootPageID,
		hasRoot:     hasRoot,
		seed:        generateSeed(),
		bucketPages: make(map[uint32]storage.PageID),
		present:     bloomfilter.NewWithEstimates(10000, 0.01),
	}
}

// NewHashIndexWithSeed builds a HashIndex with an explicit seed, for
// deterministic tests.
func NewHashIndexWithSeed(rootPageID storage.PageID, hasRoot bool, seed uint64) *HashIndex {
	return &HashIndex{
		rootPageID:  rootPageID,
		hasRoot:     hasRoot,
		seed:        seed,
		bucketPages: make(map[uint32]storage.PageID),
		present:     bloomfilter.NewWithEstimates(10000, 0.01),
	}
}

func generateSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable for the process;
		// fall back to a fixed seed rather than leaving hashKey undefined.
		return 0x9E3779B97F4A7C15
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (h *HashIndex) RootPageID() (storage.PageID, bool) { return h.rootPageID, h.hasRoot }

func (h *HashIndex) Type() string           { return "hash" }
func (h *HashIndex) Capability() Capability { return PointOnly }

// hashKey mixes key with the instance seed using MurmurHash3-style
// diffusion steps, matching the original implementation's bit-for-bit
// mixing so ports stay comparable.
func (h *HashIndex) hashKey(key uint64) uint32 {
	hash := h.seed
	hash ^= key
	hash *= 0xff51afd7ed558ccd
	hash ^= hash >> 32
	hash *= 0xc4ceb9fe1a85ec53
	hash ^= hash >> 33
	return uint32(hash)
}

func bloomKeyBytes(key uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return buf[:]
}

func (h *HashIndex) getBucketPage(bucketHash uint32, file *storage.IndexFile) (storage.PageID, error) {
	h.mu.Lock()
	pageID, ok := h.bucketPages[bucketHash]
	h.mu.Unlock()
	if ok {
		return pageID, nil
	}

	pageID = file.AllocatePage()
	page := NewPage(true)
	if err := file.WritePage(pageID, page.Bytes()); err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.bucketPages[bucketHash] = pageID
	h.mu.Unlock()
	return pageID, nil
}

func searchInPage(page *Page, key uint64) (int, bool, error) {
	header, err := page.Header()
	if err != nil {
		return 0, false, err
	}
	for i := 0; i < int(header.NumKeys); i++ {
		entry, err := page.GetEntry(i)
		if err != nil {
			return 0, false, err
		}
		if entry.Key == key {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func updateEntry(page *Page, pos int, entry IndexEntry) error {
	header, err := page.Header()
	if err != nil {
		return err
	}
	if pos >= int(header.NumKeys) {
		return fmt.Errorf("entry position %d out of range", pos)
	}
	off := entryOffset(pos)
	copy(page.Data[off:off+EntrySize], entry.Encode())
	return nil
}

func (h *HashIndex) Insert(key uint64, ptr storage.TuplePointer, file *storage.IndexFile) (*Split, error) {
	bucketHash := h.hashKey(key)
	currentID, err := h.getBucketPage(bucketHash, file)
	if err != nil {
		return nil, err
	}

	for {
		data, err := file.ReadPage(currentID)
		if err != nil {
			return nil, err
		}
		current, err := LoadPage(data)
		if err != nil {
			return nil, err
		}

		if pos, found, err := searchInPage(current, key); err != nil {
			return nil, err
		} else if found {
			entry := NewLeafEntry(key, ptr)
			if err := updateEntry(current, pos, entry); err != nil {
				return nil, err
			}
			if err := file.WritePage(currentID, current.Bytes()); err != nil {
				return nil, err
			}
			h.present.Add(bloomKeyBytes(key))
			return nil, nil
		}

		entry := NewLeafEntry(key, ptr)
		header, err := current.Header()
		if err != nil {
			return nil, err
		}
		insertPos := int(header.NumKeys)

		if err := current.InsertAt(insertPos, entry); err == nil {
			if err := file.WritePage(currentID, current.Bytes()); err != nil {
				return nil, err
			}
			h.present.Add(bloomKeyBytes(key))
			return nil, nil
		}

		// Current page is full; follow the chain or start an overflow page.
		nextID, hasNext, err := current.NextSibling()
		if err != nil {
			return nil, err
		}
		if hasNext {
			currentID = nextID
			continue
		}

		overflowID := file.AllocatePage()
		overflowPage := NewPage(true)

		if err := current.SetNextSibling(overflowID, true); err != nil {
			return nil, err
		}
		if err := file.WritePage(currentID, current.Bytes()); err != nil {
			return nil, err
		}

		if err := overflowPage.InsertAt(0, entry); err != nil {
			return nil, err
		}
		if err := file.WritePage(overflowID, overflowPage.Bytes()); err != nil {
			return nil, err
		}
		h.present.Add(bloomKeyBytes(key))
		return nil, nil
	}
}

func (h *HashIndex) Search(key uint64, file *storage.IndexFile) (storage.TuplePointer, bool, error) {
	if !h.present.Test(bloomKeyBytes(key)) {
		return storage.TuplePointer{}, false, nil
	}

	bucketHash := h.hashKey(key)

	h.mu.Lock()
	firstID, ok := h.bucketPages[bucketHash]
	h.mu.Unlock()
	if !ok {
		return storage.TuplePointer{}, false, nil
	}

	currentID := firstID
	for {
		data, err := file.ReadPage(currentID)
		if err != nil {
			return storage.TuplePointer{}, false, err
		}
		current, err := LoadPage(data)
		if err != nil {
			return storage.TuplePointer{}, false, err
		}

		if pos, found, err := searchInPage(current, key); err != nil {
			return storage.TuplePointer{}, false, err
		} else if found {
			entry, err := current.GetEntry(pos)
			if err != nil {
				return storage.TuplePointer{}, false, err
			}
			return entry.AsTuplePointer(), true, nil
		}

		nextID, hasNext, err := current.NextSibling()
		if err != nil {
			return storage.TuplePointer{}, false, err
		}
		if !hasNext {
			return storage.TuplePointer{}, false, nil
		}
		currentID = nextID
	}
}

// RangeScan is unsupported for a hash index; PointOnly indexes return no
// results rather than an error, matching Index's default behavior.
func (h *HashIndex) RangeScan(startKey, endKey uint64, file *storage.IndexFile) ([]Entry, error) {
	return nil, nil
}

// FullScan is unsupported for a hash index for the same reason.
func (h *HashIndex) FullScan(file *storage.IndexFile) ([]Entry, error) {
	return nil, nil
}

type hashBuilder struct{}

func (hashBuilder) Create(rootPageID storage.PageID, hasRoot bool) Index {
	return NewHashIndex(rootPageID, hasRoot)
}

func (hashBuilder) TypeName() string { return "hash" }
