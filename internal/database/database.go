// Package database ties the table files, index files, and catalog together
// into the single entry point the rest of the engine talks to: create a
// table, insert and scan rows, probe the primary key, and maintain
// secondary indexes.
package database

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/internal/catalog"
	"github.com/iamNilotpal/flint/internal/storage"
	"github.com/iamNilotpal/flint/internal/storage/index"
	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/pkg/errors"
)

// IndexMetadata wraps one index instance together with the column it's
// built on. The mutex matches the original's `Arc<Mutex<Box<dyn Index>>>` -
// index pages are not safe for concurrent readers and writers, so every
// operation against the underlying index.Index holds this lock.
type IndexMetadata struct {
	Name      string
	Column    string
	IndexType string

	mu    sync.Mutex
	Index index.Index
}

// TableMetadata is a table's runtime description: its schema plus its
// primary and secondary index handles.
type TableMetadata struct {
	Name             string
	FilePath         string
	Schema           types.Schema
	PrimaryIndex     *IndexMetadata
	SecondaryIndexes []*IndexMetadata
}

type tableEntry struct {
	mu   sync.RWMutex
	meta TableMetadata
}

// Database is the storage engine's façade: per-table file handles, the
// catalog, and the index builder registry.
type Database struct {
	dataDir string
	log     *zap.SugaredLogger

	mu         sync.RWMutex
	tables     map[string]*tableEntry
	tableFiles map[string]*storage.TableFile
	// indexFiles is keyed by "<table>" for the primary index and
	// "<table>_<column>:<indexName>" for secondary indexes (see
	// secondaryIndexFileKey).
	indexFiles map[string]*storage.IndexFile

	catalog  *catalog.Catalog
	registry *index.BuilderRegistry
}

// Open builds a Database rooted at dataDir, replaying the catalog (and
// therefore every table's file handles and indexes) from disk if a prior
// catalog segment exists.
func Open(dataDir string, log *zap.SugaredLogger) (*Database, error) {
	registry := index.NewBuilderRegistry()
	index.RegisterBuiltinIndexes(registry)

	db := &Database{
		dataDir:    dataDir,
		log:        log,
		tables:     make(map[string]*tableEntry),
		tableFiles: make(map[string]*storage.TableFile),
		indexFiles: make(map[string]*storage.IndexFile),
		registry:   registry,
	}

	cat, err := catalog.LoadFromDisk(dataDir, log)
	if err != nil {
		return nil, err
	}
	db.catalog = cat

	if err := db.recoverFromCatalog(); err != nil {
		return nil, err
	}

	return db, nil
}

// recoverFromCatalog reconstructs table files, primary indexes, and
// secondary indexes from the loaded catalog. Unlike the original's
// `load_catalog_from_disk`, which only reconstructs the primary index and
// leaves `secondary_indexes: Vec::new()`, this also reopens every
// secondary index file and recreates its index instance, so a restart does
// not silently lose secondary indexes.
func (db *Database) recoverFromCatalog() error {
	for _, tableMeta := range db.catalog.AllTables() {
		tableFile, err := storage.OpenTableFile(tableMeta.FilePath, db.log)
		if err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open table file during recovery").
				WithPath(tableMeta.FilePath)
		}
		tableFile.SetNextSegmentID(storage.SegmentID(tableMeta.NextSegmentID))

		meta := TableMetadata{
			Name:     tableMeta.Name,
			FilePath: tableMeta.FilePath,
			Schema:   tableMeta.Schema,
		}

		if tableMeta.PrimaryIndex != nil {
			primaryIndex, indexFile, err := db.openIndex(*tableMeta.PrimaryIndex)
			if err != nil {
				return err
			}
			pkColumn := ""
			if pos := tableMeta.Schema.PrimaryKeyIndex(); pos >= 0 {
				pkColumn = tableMeta.Schema.Columns[pos].Name
			}
			meta.PrimaryIndex = &IndexMetadata{
				Name:      tableMeta.PrimaryIndex.Name,
				Column:    pkColumn,
				IndexType: tableMeta.PrimaryIndex.IndexType,
				Index:     primaryIndex,
			}
			db.indexFiles[tableMeta.Name] = indexFile
		}

		for _, secMeta := range tableMeta.SecondaryIndexes {
			secIndex, secFile, err := db.openIndex(secMeta)
			if err != nil {
				return err
			}
			column := columnFromIndexName(secMeta.Name)
			meta.SecondaryIndexes = append(meta.SecondaryIndexes, &IndexMetadata{
				Name:      secMeta.Name,
				Column:    column,
				IndexType: secMeta.IndexType,
				Index:     secIndex,
			})
			db.indexFiles[secondaryIndexFileKey(tableMeta.Name, secMeta.Name)] = secFile
		}

		db.tables[tableMeta.Name] = &tableEntry{meta: meta}
		db.tableFiles[tableMeta.Name] = tableFile
	}
	return nil
}

func (db *Database) openIndex(meta catalog.IndexFileMetadata) (index.Index, *storage.IndexFile, error) {
	indexFile, err := storage.OpenIndexFile(meta.FilePath, db.log)
	if err != nil {
		return nil, nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open index file during recovery").
			WithPath(meta.FilePath)
	}

	rootPageID := storage.NewPageID(meta.RootPageSegment, meta.RootPageOffset)
	idx, err := db.registry.CreateIndex(meta.IndexType, rootPageID, true)
	if err != nil {
		return nil, nil, errors.NewCatalogError(err, errors.ErrorCodeCatalogCorrupted, "Failed to recreate index during recovery").
			WithTableName(meta.Name)
	}
	return idx, indexFile, nil
}

// columnFromIndexName recovers the column a secondary index descriptor was
// built on. The catalog's IndexFileMetadata has no Column field of its own
// (only TableMetadata's runtime IndexMetadata does), so the column name is
// embedded in the index name as "<column>:<indexName>" by
// CreateSecondaryIndex, and split back out here.
func columnFromIndexName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i]
		}
	}
	return ""
}

func tablePath(dataDir, name string) string {
	return filepath.Join(dataDir, fmt.Sprintf("table_%s.tbl", name))
}

func primaryIndexPath(dataDir, name string) string {
	return filepath.Join(dataDir, fmt.Sprintf("index_%s_pk.idx", name))
}

func secondaryIndexPath(dataDir, table, column, indexName string) string {
	return filepath.Join(dataDir, fmt.Sprintf("index_%s_%s_%s.idx", table, column, indexName))
}

func secondaryIndexFileKey(table, indexName string) string {
	return table + "_" + indexName
}

// CreateTable registers a new table: opens its table file, allocates
// segment 0, creates a btree primary-key index, and persists the
// descriptor to the catalog.
func (db *Database) CreateTable(name string, schema types.Schema) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; exists {
		return errors.NewAlreadyExistsError("table", name).WithDetail("tableName", name)
	}

	filePath := tablePath(db.dataDir, name)
	tableFile, err := storage.OpenTableFile(filePath, db.log)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open table file").WithPath(filePath)
	}

	if _, err := tableFile.AllocateSegment(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to allocate segment").WithPath(filePath)
	}

	indexPath := primaryIndexPath(db.dataDir, name)
	indexFile, err := storage.OpenIndexFile(indexPath, db.log)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open index file").WithPath(indexPath)
	}

	rootPageID := indexFile.AllocatePage()
	rootPage := index.NewPage(true)
	if err := indexFile.WritePage(rootPageID, rootPage.Bytes()); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write index root page").WithPath(indexPath)
	}

	primaryIndex, err := db.registry.CreateIndex("btree", rootPageID, true)
	if err != nil {
		return errors.NewCatalogError(err, errors.ErrorCodeInternal, "Failed to create btree index")
	}

	pkColumn := ""
	if pos := schema.PrimaryKeyIndex(); pos >= 0 {
		pkColumn = schema.Columns[pos].Name
	}

	meta := TableMetadata{
		Name:     name,
		FilePath: filePath,
		Schema:   schema,
		PrimaryIndex: &IndexMetadata{
			Name:      "pk",
			Column:    pkColumn,
			IndexType: "btree",
			Index:     primaryIndex,
		},
	}

	db.tables[name] = &tableEntry{meta: meta}
	db.tableFiles[name] = tableFile
	db.indexFiles[name] = indexFile

	db.catalog.AddTable(catalog.TableFileMetadata{
		Name:          name,
		FilePath:      filePath,
		Schema:        schema,
		NextSegmentID: 1,
		PrimaryIndex: &catalog.IndexFileMetadata{
			Name:            "pk",
			IndexType:       "btree",
			FilePath:        indexPath,
			RootPageSegment: rootPageID.SegmentID(),
			RootPageOffset:  rootPageID.Offset(),
		},
	})

	if err := db.catalog.SaveToDisk(); err != nil {
		// Roll back the in-memory insertion; the on-disk table/index files
		// are left in place rather than deleted, so a half-completed
		// CreateTable leaves orphan files rather than risking a second
		// failure mid-cleanup.
		delete(db.tables, name)
		delete(db.tableFiles, name)
		delete(db.indexFiles, name)
		db.catalog.RemoveTable(name)
		return err
	}

	return nil
}

// GetSchema returns the schema for the named table.
func (db *Database) GetSchema(tableName string) (types.Schema, error) {
	entry, err := db.getTableEntry(tableName)
	if err != nil {
		return types.Schema{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.meta.Schema, nil
}

func (db *Database) getTableEntry(tableName string) (*tableEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	entry, ok := db.tables[tableName]
	if !ok {
		return nil, errors.NewNotFoundError("table", tableName)
	}
	return entry, nil
}

// Close closes every open table and index file. Each file is closed even if
// an earlier one fails, and every resulting error is combined into one via
// multierr rather than stopping at (and hiding files behind) the first
// failure - the same aggregation the teacher's go.mod already pulls in zap
// for, applied here to shutdown instead of logging.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var closeErr error
	for _, tableFile := range db.tableFiles {
		closeErr = multierr.Append(closeErr, tableFile.Close())
	}
	for _, indexFile := range db.indexFiles {
		closeErr = multierr.Append(closeErr, indexFile.Close())
	}
	return closeErr
}
