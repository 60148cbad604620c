// Package wal implements the write-ahead-log record format and an
// append-only segment writer/reader for it.
//
// It mirrors the teacher's internal/storage segment-rotation bootstrap
// (discover the latest segment, continue it or roll a new one) and borrows
// its length-prefixed, checksummed record framing from the wider pack's WAL
// implementation. Nothing in internal/database instantiates this package
// yet - a record type and a working writer exist so a future recovery path
// has somewhere to start, but no operation currently appends to it.
package wal

import (
	"encoding/binary"
	stdErrors "errors"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/pkg/errors"
	"github.com/iamNilotpal/flint/pkg/filesys"
	"github.com/iamNilotpal/flint/pkg/options"
	"github.com/iamNilotpal/flint/pkg/seginfo"
)

// ErrWriterClosed is returned when Append is called on a closed Writer,
// matching the teacher's ErrSegmentClosed idiom in internal/storage/storage.go.
var ErrWriterClosed = stdErrors.New("operation failed: cannot access closed WAL writer")

// walMagic tags every record so a reader can tell a genuine record header
// from a torn write or garbage at the tail of a segment.
const walMagic uint32 = 0x574C4F47 // "WLOG"

// maxRecordSize bounds a single record's payload, guarding against a
// corrupted length field driving an unbounded allocation during Read.
const maxRecordSize = 16 << 20 // 16MB

// RecordKind identifies what a WALRecord's Payload describes.
type RecordKind uint8

const (
	RecordInsertRow RecordKind = iota
	RecordCreateTable
	RecordCreateIndex
)

// WALRecord is the unit of durability the WAL would hand a recovery
// manager: the logical sequence number that orders it against every other
// record, which table it applies to, and an opaque encoded payload (a row,
// a schema, an index descriptor) the caller is responsible for
// interpreting.
type WALRecord struct {
	LSN       uint64
	Kind      RecordKind
	TableName string
	Payload   []byte
}

// encode serializes r as:
//
//	| Magic(4) | CRC(4) | TotalLen(4) | LSN(8) | Kind(1) | NameLen(2) | Name | Payload |
//
// CRC covers everything from TotalLen through Payload, the same span
// FlashLog's WAL checksums, so a torn write is caught before LSN ordering
// is ever trusted.
func (r *WALRecord) encode() []byte {
	nameLen := len(r.TableName)
	body := make([]byte, 8+1+2+nameLen+len(r.Payload))

	binary.LittleEndian.PutUint64(body[0:8], r.LSN)
	body[8] = byte(r.Kind)
	binary.LittleEndian.PutUint16(body[9:11], uint16(nameLen))
	copy(body[11:11+nameLen], r.TableName)
	copy(body[11+nameLen:], r.Payload)

	totalLen := uint32(len(body))
	crc := crc32.ChecksumIEEE(append(binary.LittleEndian.AppendUint32(nil, totalLen), body...))

	out := make([]byte, 4+4+4+len(body))
	binary.LittleEndian.PutUint32(out[0:4], walMagic)
	binary.LittleEndian.PutUint32(out[4:8], crc)
	binary.LittleEndian.PutUint32(out[8:12], totalLen)
	copy(out[12:], body)
	return out
}

// decodeRecord reads one record from r. It returns io.EOF (unwrapped) when
// r is positioned at a clean end of segment.
func decodeRecord(r io.Reader) (*WALRecord, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read WAL record header")
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != walMagic {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "Invalid WAL record magic")
	}

	storedCRC := binary.LittleEndian.Uint32(header[4:8])
	totalLen := binary.LittleEndian.Uint32(header[8:12])
	if totalLen > maxRecordSize || totalLen < 11 {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "WAL record length out of range")
	}

	body := make([]byte, totalLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read WAL record body")
	}

	crc := crc32.ChecksumIEEE(append(binary.LittleEndian.AppendUint32(nil, totalLen), body...))
	if crc != storedCRC {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "WAL record checksum mismatch")
	}

	lsn := binary.LittleEndian.Uint64(body[0:8])
	kind := RecordKind(body[8])
	nameLen := binary.LittleEndian.Uint16(body[9:11])
	if int(11+nameLen) > len(body) {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "WAL record name length out of range")
	}

	name := string(body[11 : 11+nameLen])
	payload := make([]byte, len(body)-11-int(nameLen))
	copy(payload, body[11+int(nameLen):])

	return &WALRecord{LSN: lsn, Kind: kind, TableName: name, Payload: payload}, nil
}

// Writer appends records to the currently active WAL segment, rotating to
// a new segment once the active one reaches Options.SegmentOptions.Size -
// the same bootstrap-then-rotate shape as the teacher's internal/storage
// segment manager, narrowed here to WAL records specifically.
type Writer struct {
	mu              sync.Mutex
	size            int64
	activeSegmentID uint64
	activeSegment   *os.File
	closed          atomic.Bool
	options         *options.Options
	log             *zap.SugaredLogger
}

// NewWriter bootstraps a Writer rooted at options.DataDir/options.SegmentOptions.Directory,
// continuing the latest segment found there or starting a fresh one.
func NewWriter(opts *options.Options, log *zap.SugaredLogger) (*Writer, error) {
	segmentDirPath := filepath.Join(opts.DataDir, opts.SegmentOptions.Directory)
	if err := filesys.CreateDir(segmentDirPath, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, segmentDirPath)
	}

	w := &Writer{options: opts, log: log}

	latestSegmentID, latestSegmentInfo, err := seginfo.GetLastSegmentInfo(
		opts.DataDir, opts.SegmentOptions.Directory, opts.SegmentOptions.Prefix,
	)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to discover latest WAL segment")
	}

	var targetSegmentID uint64
	var isNewSegment bool
	if latestSegmentInfo == nil {
		targetSegmentID = 1
		isNewSegment = true
	} else if uint64(latestSegmentInfo.Size()) >= opts.SegmentOptions.Size {
		targetSegmentID = latestSegmentID + 1
		isNewSegment = true
	} else {
		targetSegmentID = latestSegmentID
		w.size = latestSegmentInfo.Size()
	}

	segmentFile, err := w.openSegmentFile(targetSegmentID, isNewSegment)
	if err != nil {
		return nil, err
	}

	w.activeSegment = segmentFile
	w.activeSegmentID = targetSegmentID
	return w, nil
}

func (w *Writer) openSegmentFile(segmentID uint64, isNew bool) (*os.File, error) {
	filename := seginfo.GenerateName(segmentID, w.options.SegmentOptions.Prefix)
	filePath := filepath.Join(w.options.DataDir, w.options.SegmentOptions.Directory, filename)
	if !isNew {
		lastPath, err := seginfo.GetLastSegmentName(
			w.options.DataDir, w.options.SegmentOptions.Directory, w.options.SegmentOptions.Prefix,
		)
		if err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to locate latest WAL segment")
		}
		if lastPath != "" {
			filePath, filename = lastPath, filepath.Base(lastPath)
		}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, filePath, filename)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to seek to end of WAL segment").
			WithFileName(filename).WithPath(filePath)
	}
	return file, nil
}

// Append writes record to the active segment, rotating to a new segment
// first if the write would exceed the configured segment size, and fsyncs
// before returning.
func (w *Writer) Append(record *WALRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return ErrWriterClosed
	}

	encoded := record.encode()
	if uint64(w.size)+uint64(len(encoded)) > w.options.SegmentOptions.Size {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.activeSegment.Write(encoded)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to append WAL record")
	}
	w.size += int64(n)

	if err := w.activeSegment.Sync(); err != nil {
		filePath := w.activeSegment.Name()
		return errors.ClassifySyncError(err, filepath.Base(filePath), filePath, int(w.size))
	}
	return nil
}

func (w *Writer) rotate() error {
	if err := w.activeSegment.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to close WAL segment during rotation")
	}

	nextID := w.activeSegmentID + 1
	segmentFile, err := w.openSegmentFile(nextID, true)
	if err != nil {
		return err
	}

	w.activeSegment = segmentFile
	w.activeSegmentID = nextID
	w.size = 0
	return nil
}

// Close flushes and closes the active segment file.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeSegment.Close()
}

// Reader sequentially decodes every record in a single WAL segment file.
type Reader struct {
	f *os.File
}

// OpenReader opens segmentPath for sequential record reads.
func OpenReader(segmentPath string) (*Reader, error) {
	f, err := os.OpenFile(segmentPath, os.O_RDONLY, 0644)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open WAL segment for reading").
			WithPath(segmentPath)
	}
	return &Reader{f: f}, nil
}

// Next returns the next record in the segment, or io.EOF once the segment
// is exhausted.
func (r *Reader) Next() (*WALRecord, error) {
	return decodeRecord(r.f)
}

// Close closes the underlying segment file.
func (r *Reader) Close() error {
	return r.f.Close()
}
