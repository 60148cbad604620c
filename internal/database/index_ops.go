package database

import (
	"github.com/iamNilotpal/flint/internal/catalog"
	"github.com/iamNilotpal/flint/internal/storage"
	"github.com/iamNilotpal/flint/internal/storage/index"
	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/pkg/errors"
)

// GetByKey performs a point lookup against tableName's primary index.
func (db *Database) GetByKey(tableName string, key uint64) (storage.TuplePointer, bool, error) {
	entry, err := db.getTableEntry(tableName)
	if err != nil {
		return storage.TuplePointer{}, false, err
	}

	entry.mu.RLock()
	primaryIndex := entry.meta.PrimaryIndex
	entry.mu.RUnlock()

	if primaryIndex == nil {
		db.log.Debugw("no primary index found on table", "table", tableName)
		return storage.TuplePointer{}, false, nil
	}

	db.mu.RLock()
	indexFile := db.indexFiles[tableName]
	db.mu.RUnlock()

	primaryIndex.mu.Lock()
	defer primaryIndex.mu.Unlock()
	return primaryIndex.Index.Search(key, indexFile)
}

// RangeScanIndex returns every tuple pointer whose primary key falls in
// [startKey, endKey]. It returns an empty slice, not an error, when the
// table has no primary index or the index type doesn't support ordered
// scans - a secondary hash index stays usable for point lookups even
// though range scans against it are meaningless.
func (db *Database) RangeScanIndex(tableName string, startKey, endKey uint64) ([]storage.TuplePointer, error) {
	entry, err := db.getTableEntry(tableName)
	if err != nil {
		return nil, err
	}

	entry.mu.RLock()
	primaryIndex := entry.meta.PrimaryIndex
	entry.mu.RUnlock()

	if primaryIndex == nil {
		db.log.Debugw("no primary index found on table", "table", tableName)
		return nil, nil
	}

	primaryIndex.mu.Lock()
	capability := primaryIndex.Index.Capability()
	primaryIndex.mu.Unlock()
	if capability != index.Ordered {
		return nil, nil
	}

	db.mu.RLock()
	indexFile := db.indexFiles[tableName]
	db.mu.RUnlock()

	primaryIndex.mu.Lock()
	entries, err := primaryIndex.Index.RangeScan(startKey, endKey, indexFile)
	primaryIndex.mu.Unlock()
	if err != nil {
		return nil, errors.NewIndexError(err, errors.ErrorCodeInternal, "Failed to range scan primary index")
	}

	pointers := make([]storage.TuplePointer, len(entries))
	for i, e := range entries {
		pointers[i] = e.Pointer
	}
	return pointers, nil
}

// FindSecondaryIndex locates the secondary index built on columnName, if
// any.
func (db *Database) FindSecondaryIndex(tableName, columnName string) (*IndexMetadata, bool, error) {
	entry, err := db.getTableEntry(tableName)
	if err != nil {
		return nil, false, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	for _, idx := range entry.meta.SecondaryIndexes {
		if idx.Column == columnName {
			return idx, true, nil
		}
	}
	return nil, false, nil
}

// SearchSecondaryIndex performs a point lookup against the secondary index
// built on columnName.
func (db *Database) SearchSecondaryIndex(tableName, columnName string, key uint64) (storage.TuplePointer, bool, error) {
	idx, found, err := db.FindSecondaryIndex(tableName, columnName)
	if err != nil || !found {
		return storage.TuplePointer{}, false, err
	}

	db.mu.RLock()
	indexFile, ok := db.indexFiles[secondaryIndexFileKey(tableName, idx.Name)]
	db.mu.RUnlock()
	if !ok {
		return storage.TuplePointer{}, false, errors.NewNotFoundError("index file", idx.Name)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.Index.Search(key, indexFile)
}

// CreateSecondaryIndex builds a new index of indexType on tableName's
// columnName, persists its descriptor to the catalog, and backfills it from
// every row already present in the table.
//
// The original implementation only appended the new IndexMetadata to the
// in-memory TableMetadata.secondary_indexes and left a "TODO: Update
// catalog" comment - neither the catalog persistence nor the backfill from
// existing rows happened. Both are done here: persistence so recovery
// reconstructs the index on restart (internal/database's recoverFromCatalog
// above), backfill so the index reflects rows inserted before it existed.
func (db *Database) CreateSecondaryIndex(indexName, tableName, columnName, indexType string) error {
	entry, err := db.getTableEntry(tableName)
	if err != nil {
		return err
	}

	entry.mu.RLock()
	schema := entry.meta.Schema
	entry.mu.RUnlock()

	columnPos := schema.ColumnIndex(columnName)
	if columnPos < 0 {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "Column does not exist").
			WithField(columnName)
	}

	indexPath := secondaryIndexPath(db.dataDir, tableName, columnName, indexName)
	indexFile, err := storage.OpenIndexFile(indexPath, db.log)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open index file").WithPath(indexPath)
	}

	rootPageID := indexFile.AllocatePage()
	rootPage := index.NewPage(true)
	if err := indexFile.WritePage(rootPageID, rootPage.Bytes()); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write index root page").WithPath(indexPath)
	}

	newIndex, err := db.registry.CreateIndex(indexType, rootPageID, true)
	if err != nil {
		return errors.NewValidationError(err, errors.ErrorCodeInvalidInput, "Unknown index type").
			WithField("indexType").
			WithProvided(indexType)
	}

	// The catalog's IndexFileMetadata carries no column field, so the
	// column is embedded in the stored index name (see
	// columnFromIndexName) to survive a reload.
	qualifiedName := columnName + ":" + indexName

	meta := &IndexMetadata{
		Name:      qualifiedName,
		Column:    columnName,
		IndexType: indexType,
		Index:     newIndex,
	}

	rows, err := db.scanTableWithPointers(tableName)
	if err != nil {
		return err
	}
	for _, rp := range rows {
		value, ok := rp.Row.Get(columnPos)
		if !ok || value.IsNull() {
			continue
		}

		secondaryKey, err := types.DeriveKey(value)
		if err != nil {
			continue
		}

		meta.mu.Lock()
		_, err = meta.Index.Insert(secondaryKey, rp.Pointer, indexFile)
		meta.mu.Unlock()
		if err != nil {
			return errors.NewIndexError(err, errors.ErrorCodeInternal, "Failed to backfill secondary index")
		}
	}

	entry.mu.Lock()
	entry.meta.SecondaryIndexes = append(entry.meta.SecondaryIndexes, meta)
	entry.mu.Unlock()

	db.mu.Lock()
	db.indexFiles[secondaryIndexFileKey(tableName, qualifiedName)] = indexFile
	db.mu.Unlock()

	catalogMeta := catalog.IndexFileMetadata{
		Name:            qualifiedName,
		IndexType:       indexType,
		FilePath:        indexPath,
		RootPageSegment: rootPageID.SegmentID(),
		RootPageOffset:  rootPageID.Offset(),
	}
	if err := db.catalog.AddSecondaryIndex(tableName, catalogMeta); err != nil {
		return errors.NewCatalogError(err, errors.ErrorCodeInternal, "Failed to persist secondary index to catalog")
	}

	return db.catalog.SaveToDisk()
}
