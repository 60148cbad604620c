package storage

import (
	"fmt"
	"sync"

	"github.com/iamNilotpal/flint/pkg/errors"
	"go.uber.org/zap"
)

// TableFile manages a single table's on-disk data in its .tbl file: a
// sequence of 2MB segments, each starting with a SegmentHeader block
// followed by BlocksPerSegment data blocks holding slotted-page tuples.
type TableFile struct {
	disk *Disk
	path string
	log  *zap.SugaredLogger

	mu            sync.Mutex
	nextSegmentID SegmentID
}

// OpenTableFile opens or creates the table file at path.
func OpenTableFile(path string, log *zap.SugaredLogger) (*TableFile, error) {
	disk, err := OpenDisk(path, log)
	if err != nil {
		return nil, err
	}
	return &TableFile{disk: disk, path: path, log: log}, nil
}

func segmentOffset(segmentID SegmentID) int64 {
	return int64(segmentID) * SegmentSize
}

func blockOffset(segmentID SegmentID, blockID BlockID) int64 {
	return segmentOffset(segmentID) + SegmentHeaderSize + int64(blockID)*BlockSize
}

// ReadSegmentHeader reads and validates the header block of segmentID.
func (t *TableFile) ReadSegmentHeader(segmentID SegmentID) (SegmentHeader, error) {
	buf := make([]byte, SegmentHeaderSize)
	if err := t.disk.ReadAt(buf, segmentOffset(segmentID)); err != nil {
		return SegmentHeader{}, err
	}

	header, err := DecodeSegmentHeader(buf)
	if err != nil {
		return SegmentHeader{}, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "Invalid segment header").
			WithPath(t.path).
			WithSegmentID(int(segmentID))
	}
	return header, nil
}

// WriteSegmentHeader persists header as segmentID's header block.
func (t *TableFile) WriteSegmentHeader(segmentID SegmentID, header SegmentHeader) error {
	return t.disk.WriteAt(header.Encode(), segmentOffset(segmentID))
}

// ReadBlock reads the 64KB block blockID within segmentID.
func (t *TableFile) ReadBlock(segmentID SegmentID, blockID BlockID) (*Block, error) {
	if blockID >= BlocksPerSegment {
		return nil, errors.NewStorageError(
			fmt.Errorf("block_id %d out of range", blockID), errors.ErrorCodeInvalidInput, "Block ID out of range",
		).WithPath(t.path).WithSegmentID(int(segmentID))
	}

	buf := make([]byte, BlockSize)
	if err := t.disk.ReadAt(buf, blockOffset(segmentID, blockID)); err != nil {
		return nil, err
	}
	return LoadBlock(buf)
}

// WriteBlock writes block back to blockID within segmentID.
func (t *TableFile) WriteBlock(segmentID SegmentID, blockID BlockID, block *Block) error {
	if blockID >= BlocksPerSegment {
		return errors.NewStorageError(
			fmt.Errorf("block_id %d out of range", blockID), errors.ErrorCodeInvalidInput, "Block ID out of range",
		).WithPath(t.path).WithSegmentID(int(segmentID))
	}
	return t.disk.WriteAt(block.Bytes(), blockOffset(segmentID, blockID))
}

// InitializeSegment writes a fresh, all-blocks-free header for segmentID.
func (t *TableFile) InitializeSegment(segmentID SegmentID) error {
	return t.WriteSegmentHeader(segmentID, NewSegmentHeader(segmentID))
}

// AllocateBlock finds and marks used the first free block in segmentID and
// writes an empty block image at its position, so the block can be read
// back immediately. Segment 0's block 0 is reserved for the table's own
// header metadata and is never handed out. Returns ok=false when the
// segment is full.
func (t *TableFile) AllocateBlock(segmentID SegmentID) (BlockID, bool, error) {
	header, err := t.ReadSegmentHeader(segmentID)
	if err != nil {
		return 0, false, err
	}

	var startBlock BlockID
	if segmentID == 0 {
		startBlock = 1
	}

	for blockID := startBlock; blockID < BlocksPerSegment; blockID++ {
		if header.IsBlockFree(blockID) {
			if err := t.WriteBlock(segmentID, blockID, NewBlock()); err != nil {
				return 0, false, err
			}
			header.MarkBlockUsed(blockID)
			if err := t.WriteSegmentHeader(segmentID, header); err != nil {
				return 0, false, err
			}
			return blockID, true, nil
		}
	}
	return 0, false, nil
}

// FreeBlock marks blockID free within segmentID.
func (t *TableFile) FreeBlock(segmentID SegmentID, blockID BlockID) error {
	header, err := t.ReadSegmentHeader(segmentID)
	if err != nil {
		return err
	}
	header.MarkBlockFree(blockID)
	return t.WriteSegmentHeader(segmentID, header)
}

// AllocateSegment hands out the next monotonic segment ID and initializes
// its header on disk.
func (t *TableFile) AllocateSegment() (SegmentID, error) {
	t.mu.Lock()
	segmentID := t.nextSegmentID
	t.nextSegmentID++
	t.mu.Unlock()

	if err := t.InitializeSegment(segmentID); err != nil {
		return 0, err
	}
	return segmentID, nil
}

// NextSegmentID returns the segment ID that would be allocated next,
// without allocating it.
func (t *TableFile) NextSegmentID() SegmentID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextSegmentID
}

// SetNextSegmentID restores the allocation counter, used when reloading a
// table's state from the catalog on startup.
func (t *TableFile) SetNextSegmentID(id SegmentID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextSegmentID = id
}

func (t *TableFile) Path() string { return t.path }

func (t *TableFile) Sync() error { return t.disk.Sync() }

func (t *TableFile) Close() error { return t.disk.Close() }
