package database

import (
	"github.com/iamNilotpal/flint/internal/storage"
	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/pkg/errors"
)

// InsertRow appends row to tableName's first segment and, if the table has
// a primary key column, maintains its primary index and every secondary
// index (rows whose indexed column is NULL are left out of that index).
//
// Unlike the original, which assumes the primary key is column 0 and that
// it holds an Int, this derives the key from whichever column the schema
// marks IsPrimaryKey (falling back to column 0 when none is marked, via
// Schema.PrimaryKeyIndex) and accepts any value kind DeriveKey supports.
func (db *Database) InsertRow(tableName string, row types.Row) error {
	db.mu.RLock()
	tableFile, ok := db.tableFiles[tableName]
	db.mu.RUnlock()
	if !ok {
		return errors.NewNotFoundError("table", tableName)
	}

	entry, err := db.getTableEntry(tableName)
	if err != nil {
		return err
	}
	entry.mu.RLock()
	meta := entry.meta
	entry.mu.RUnlock()

	if row.Len() != meta.Schema.Len() {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "Row column count does not match schema").
			WithField("row").
			WithRule("arity").
			WithProvided(row.Len()).
			WithExpected(meta.Schema.Len())
	}

	var key uint64
	var hasPrimaryKey bool
	if meta.PrimaryIndex != nil {
		pos := meta.Schema.PrimaryKeyIndex()
		if pos < 0 || pos >= row.Len() {
			return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "Row is missing its primary key column").
				WithField("row").
				WithRule("primary_key_present")
		}

		pkValue, _ := row.Get(pos)
		if pkValue.IsNull() {
			return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "Primary key cannot be NULL").
				WithField(meta.Schema.Columns[pos].Name).
				WithRule("not_null")
		}

		derived, err := types.DeriveKey(pkValue)
		if err != nil {
			return errors.NewValidationError(err, errors.ErrorCodeInvalidInput, "Failed to derive primary key").
				WithField(meta.Schema.Columns[pos].Name)
		}
		key = derived
		hasPrimaryKey = true

		indexFile := db.indexFiles[tableName]
		meta.PrimaryIndex.mu.Lock()
		_, found, err := meta.PrimaryIndex.Index.Search(key, indexFile)
		meta.PrimaryIndex.mu.Unlock()
		if err != nil {
			return err
		}
		if found {
			return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "Duplicate primary key").
				WithField(meta.Schema.Columns[pos].Name).
				WithRule("unique").
				WithProvided(key)
		}
	}

	rowBytes, err := types.EncodeRow(row)
	if err != nil {
		return errors.NewValidationError(err, errors.ErrorCodeInvalidInput, "Failed to encode row")
	}

	const segmentID storage.SegmentID = 0
	blockID, ok, err := tableFile.AllocateBlock(segmentID)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to allocate block").WithPath(meta.FilePath)
	}
	if !ok {
		return errors.NewStorageError(nil, errors.ErrorCodeDiskFull, "Segment full - need to allocate new segment").
			WithPath(meta.FilePath)
	}

	block, err := tableFile.ReadBlock(segmentID, blockID)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read block").WithPath(meta.FilePath)
	}

	slotID, ok := block.AppendTuple(rowBytes)
	if !ok {
		return errors.NewStorageError(nil, errors.ErrorCodeIO, "Block full").WithPath(meta.FilePath)
	}

	if err := tableFile.WriteBlock(segmentID, blockID, block); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write block").WithPath(meta.FilePath)
	}

	if !hasPrimaryKey {
		return nil
	}

	ptr := storage.TuplePointer{SegmentID: segmentID, BlockID: blockID, SlotID: slotID}
	indexFile := db.indexFiles[tableName]

	meta.PrimaryIndex.mu.Lock()
	// A non-nil Split means the root page overflowed; as in the original,
	// the split is not propagated into a new parent page (see btree.go),
	// so its result is intentionally discarded here too.
	_, err = meta.PrimaryIndex.Index.Insert(key, ptr, indexFile)
	meta.PrimaryIndex.mu.Unlock()
	if err != nil {
		return errors.NewIndexError(err, errors.ErrorCodeInternal, "Failed to insert into primary index").
			WithOperation("Insert")
	}

	for _, sec := range meta.SecondaryIndexes {
		value, ok := row.Get(meta.Schema.ColumnIndex(sec.Column))
		if !ok || value.IsNull() {
			continue
		}
		secondaryKey, err := types.DeriveKey(value)
		if err != nil {
			continue
		}
		sec.mu.Lock()
		_, err = sec.Index.Insert(secondaryKey, ptr, db.indexFiles[secondaryIndexFileKey(tableName, sec.Name)])
		sec.mu.Unlock()
		if err != nil {
			return errors.NewIndexError(err, errors.ErrorCodeInternal, "Failed to insert into secondary index")
		}
	}

	return nil
}

// rowWithPointer pairs a decoded row with the tuple pointer it was read
// from, for callers (secondary index backfill) that need to index the row
// without re-deriving its address through the primary key.
type rowWithPointer struct {
	Row     types.Row
	Pointer storage.TuplePointer
}

// scanTableWithPointers walks every live tuple in tableName's first
// segment, the same traversal ScanTable does, but keeps each row's
// TuplePointer alongside its decoded value.
func (db *Database) scanTableWithPointers(tableName string) ([]rowWithPointer, error) {
	db.mu.RLock()
	tableFile, ok := db.tableFiles[tableName]
	db.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("table", tableName)
	}

	const segmentID storage.SegmentID = 0
	header, err := tableFile.ReadSegmentHeader(segmentID)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read segment header").
			WithSegmentID(int(segmentID))
	}

	var rows []rowWithPointer
	for blockID := storage.BlockID(0); blockID < storage.BlocksPerSegment; blockID++ {
		if header.IsBlockFree(blockID) {
			continue
		}

		block, err := tableFile.ReadBlock(segmentID, blockID)
		if err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read block").
				WithSegmentID(int(segmentID))
		}

		blockHeader := block.Header()

		for slotID := storage.SlotID(0); slotID < blockHeader.SlotCount; slotID++ {
			tupleBytes, ok := block.ReadTuple(slotID)
			if !ok {
				continue
			}
			row, err := types.DecodeRow(tupleBytes)
			if err != nil {
				return nil, errors.NewValidationError(err, errors.ErrorCodeInvalidInput, "Failed to decode row")
			}
			rows = append(rows, rowWithPointer{
				Row:     row,
				Pointer: storage.TuplePointer{SegmentID: segmentID, BlockID: blockID, SlotID: slotID},
			})
		}
	}

	return rows, nil
}

// ScanTable returns every live row in tableName's first segment.
func (db *Database) ScanTable(tableName string) ([]types.Row, error) {
	withPointers, err := db.scanTableWithPointers(tableName)
	if err != nil {
		return nil, err
	}
	rows := make([]types.Row, len(withPointers))
	for i, rp := range withPointers {
		rows[i] = rp.Row
	}
	return rows, nil
}

// ReadBlock reads one block from tableName's file. Unlike the original,
// which left this as a stub returning an error ("not yet implemented with
// per-file architecture"), this resolves the table name to its TableFile
// and performs the read directly - the per-table-file layout makes this a
// straightforward lookup rather than an unsolved problem.
func (db *Database) ReadBlock(tableName string, segmentID storage.SegmentID, blockID storage.BlockID) (*storage.Block, error) {
	db.mu.RLock()
	tableFile, ok := db.tableFiles[tableName]
	db.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("table", tableName)
	}

	block, err := tableFile.ReadBlock(segmentID, blockID)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read block").
			WithSegmentID(int(segmentID))
	}
	return block, nil
}
