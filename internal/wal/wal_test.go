package wal

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/pkg/options"
)

// testOptions builds a fresh Options rooted at t.TempDir() with its own
// segmentOptions copy, so mutating Size/Directory in one test never leaks
// into another test sharing the package-level default.
func testOptions(t *testing.T, segmentSize uint64) *options.Options {
	t.Helper()
	defaults := options.NewDefaultOptions()
	seg := *defaults.SegmentOptions
	seg.Size = segmentSize

	return &options.Options{
		DataDir:         t.TempDir(),
		CompactInterval: defaults.CompactInterval,
		SegmentOptions:  &seg,
	}
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := &WALRecord{LSN: 7, Kind: RecordInsertRow, TableName: "users", Payload: []byte("row-bytes")}
	decoded, err := decodeRecord(bytes.NewReader(rec.encode()))
	require.NoError(t, err)

	require.Equal(t, rec.LSN, decoded.LSN)
	require.Equal(t, rec.Kind, decoded.Kind)
	require.Equal(t, rec.TableName, decoded.TableName)
	require.Equal(t, rec.Payload, decoded.Payload)
}

func TestRecordEncodeDecodeEmptyPayload(t *testing.T) {
	rec := &WALRecord{LSN: 1, Kind: RecordCreateTable, TableName: "t", Payload: nil}
	decoded, err := decodeRecord(bytes.NewReader(rec.encode()))
	require.NoError(t, err)
	require.Empty(t, decoded.Payload)
}

func TestDecodeRecordRejectsBadMagic(t *testing.T) {
	rec := &WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("x")}
	encoded := rec.encode()
	encoded[0] ^= 0xFF

	_, err := decodeRecord(bytes.NewReader(encoded))
	require.Error(t, err)
}

func TestDecodeRecordRejectsBadChecksum(t *testing.T) {
	rec := &WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("payload")}
	encoded := rec.encode()
	encoded[len(encoded)-1] ^= 0xFF

	_, err := decodeRecord(bytes.NewReader(encoded))
	require.Error(t, err)
}

func TestDecodeRecordRejectsTruncatedBody(t *testing.T) {
	rec := &WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("payload")}
	encoded := rec.encode()

	_, err := decodeRecord(bytes.NewReader(encoded[:len(encoded)-3]))
	require.Error(t, err)
}

func TestDecodeRecordReturnsEOFAtCleanEnd(t *testing.T) {
	_, err := decodeRecord(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterAppendAndReaderRoundTrip(t *testing.T) {
	opts := testOptions(t, options.MinSegmentSize)
	w, err := NewWriter(opts, zap.NewNop().Sugar())
	require.NoError(t, err)

	records := []*WALRecord{
		{LSN: 1, Kind: RecordCreateTable, TableName: "users", Payload: []byte("schema-bytes")},
		{LSN: 2, Kind: RecordInsertRow, TableName: "users", Payload: []byte("row-bytes")},
	}
	for _, r := range records {
		require.NoError(t, w.Append(r))
	}
	require.NoError(t, w.Close())

	segDir := filepath.Join(opts.DataDir, opts.SegmentOptions.Directory)
	entries, err := os.ReadDir(segDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no rotation expected within a single large segment")

	reader, err := OpenReader(filepath.Join(segDir, entries[0].Name()))
	require.NoError(t, err)
	defer reader.Close()

	for _, want := range records {
		got, err := reader.Next()
		require.NoError(t, err)
		require.Equal(t, want.LSN, got.LSN)
		require.Equal(t, want.TableName, got.TableName)
		require.Equal(t, want.Payload, got.Payload)
	}

	_, err = reader.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterRotatesOnceSegmentSizeExceeded(t *testing.T) {
	rec := &WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("x")}
	recordSize := uint64(len(rec.encode()))

	// Sized so the first record just fits but a second pushes past the limit.
	opts := testOptions(t, recordSize+recordSize/2)
	w, err := NewWriter(opts, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, w.Append(&WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("x")}))
	require.NoError(t, w.Append(&WALRecord{LSN: 2, Kind: RecordInsertRow, TableName: "t", Payload: []byte("y")}))
	require.NoError(t, w.Close())

	segDir := filepath.Join(opts.DataDir, opts.SegmentOptions.Directory)
	entries, err := os.ReadDir(segDir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "second append should have rotated into a new segment")
}

func TestWriterReopenContinuesLatestSegment(t *testing.T) {
	opts := testOptions(t, options.MinSegmentSize)

	w1, err := NewWriter(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, w1.Append(&WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("first")}))
	require.NoError(t, w1.Close())

	w2, err := NewWriter(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, w2.Append(&WALRecord{LSN: 2, Kind: RecordInsertRow, TableName: "t", Payload: []byte("second")}))
	require.NoError(t, w2.Close())

	segDir := filepath.Join(opts.DataDir, opts.SegmentOptions.Directory)
	entries, err := os.ReadDir(segDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "reopening should continue the existing segment, not start a new one")

	reader, err := OpenReader(filepath.Join(segDir, entries[0].Name()))
	require.NoError(t, err)
	defer reader.Close()

	first, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.LSN)

	second, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.LSN)
}

func TestWriterAppendAfterCloseFails(t *testing.T) {
	opts := testOptions(t, options.MinSegmentSize)
	w, err := NewWriter(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Append(&WALRecord{LSN: 1, Kind: RecordInsertRow, TableName: "t", Payload: []byte("x")})
	require.ErrorIs(t, err, ErrWriterClosed)
}
