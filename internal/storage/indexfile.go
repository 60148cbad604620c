package storage

import (
	"fmt"
	"sync"

	"github.com/iamNilotpal/flint/pkg/errors"
	"go.uber.org/zap"
)

// IndexFile manages a single index's on-disk data in its .idx file: a flat
// space of 4KB pages with no segment wrapping, addressed directly by
// PageID.
type IndexFile struct {
	disk *Disk
	path string
	log  *zap.SugaredLogger

	mu         sync.Mutex
	nextPageID uint32
}

// OpenIndexFile opens or creates the index file at path. The allocation
// counter starts after the last whole page already in the file, so a
// reopened file never hands out a page it already holds.
func OpenIndexFile(path string, log *zap.SugaredLogger) (*IndexFile, error) {
	disk, err := OpenDisk(path, log)
	if err != nil {
		return nil, err
	}
	size, err := disk.Size()
	if err != nil {
		disk.Close()
		return nil, err
	}
	return &IndexFile{disk: disk, path: path, log: log, nextPageID: uint32(size / IndexPageSize)}, nil
}

func pageOffset(pageID PageID) int64 {
	return int64(pageID.Offset()) * IndexPageSize
}

// ReadPage reads the 4KB page at pageID.
func (f *IndexFile) ReadPage(pageID PageID) ([]byte, error) {
	buf := make([]byte, IndexPageSize)
	if err := f.disk.ReadAt(buf, pageOffset(pageID)); err != nil {
		return nil, err
	}
	return buf, nil
}

// WritePage writes exactly one 4KB page worth of data at pageID.
func (f *IndexFile) WritePage(pageID PageID, data []byte) error {
	if len(data) != IndexPageSize {
		return errors.NewStorageError(
			fmt.Errorf("page data must be exactly %d bytes, got %d", IndexPageSize, len(data)),
			errors.ErrorCodeInvalidInput,
			"Invalid index page size",
		).WithPath(f.path)
	}
	return f.disk.WriteAt(data, pageOffset(pageID))
}

// AllocatePage hands out the next page ID. The index file never spans
// multiple segments, so every PageID allocated here carries segment 0;
// segment-scoped addressing exists purely to share PageID's shape with
// TuplePointer.
func (f *IndexFile) AllocatePage() PageID {
	f.mu.Lock()
	id := f.nextPageID
	f.nextPageID++
	f.mu.Unlock()

	return NewPageID(0, uint16(id&0xFFFF))
}

// NextPageID returns the page ID that would be allocated next.
func (f *IndexFile) NextPageID() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextPageID
}

// SetNextPageID overrides the allocation counter.
func (f *IndexFile) SetNextPageID(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPageID = id
}

func (f *IndexFile) Path() string { return f.path }

func (f *IndexFile) Sync() error { return f.disk.Sync() }

func (f *IndexFile) Close() error { return f.disk.Close() }
