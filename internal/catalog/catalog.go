// Package catalog manages the database's global metadata: which tables
// exist, where their table/index files live, their schemas, and their
// primary/secondary index descriptors. It is persisted with a dual-segment
// atomic-flip scheme (catalog_0.db / catalog_1.db) so a crash mid-write
// never leaves the catalog unreadable - the writer always targets the
// currently inactive segment and only flips to it after a successful
// fsync+rename.
package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/pkg/errors"
	"github.com/iamNilotpal/flint/pkg/filesys"
)

const catalogVersion = 1

// IndexFileMetadata describes one index file's on-disk location and root
// page, enough to reopen and reattach to it on restart.
type IndexFileMetadata struct {
	Name            string
	IndexType       string
	FilePath        string
	RootPageSegment uint16
	RootPageOffset  uint16
}

// TableFileMetadata describes one table: its schema, its file's next
// allocatable segment, and its primary/secondary index descriptors.
type TableFileMetadata struct {
	Name             string
	FilePath         string
	Schema           types.Schema
	NextSegmentID    uint32
	PrimaryIndex     *IndexFileMetadata
	SecondaryIndexes []IndexFileMetadata
}

// Header precedes the serialized table metadata in a catalog segment file.
type Header struct {
	Version   uint32
	NumTables uint32
	Checksum  uint64
}

// Catalog holds every table's metadata in memory and tracks which of the
// two on-disk segments is currently active.
type Catalog struct {
	dataDir string
	log     *zap.SugaredLogger

	activeSegment atomic.Uint32

	mu     sync.RWMutex
	tables map[string]TableFileMetadata
}

// New returns an empty catalog rooted at dataDir.
func New(dataDir string, log *zap.SugaredLogger) *Catalog {
	return &Catalog{dataDir: dataDir, log: log, tables: make(map[string]TableFileMetadata)}
}

func (c *Catalog) ActiveSegment() uint8 { return uint8(c.activeSegment.Load()) }

func (c *Catalog) InactiveSegment() uint8 { return 1 - c.ActiveSegment() }

func (c *Catalog) FlipSegment() {
	current := c.activeSegment.Load()
	c.activeSegment.Store(1 - current)
}

// AddTable registers meta in the in-memory catalog, replacing any existing
// entry with the same name.
func (c *Catalog) AddTable(meta TableFileMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[meta.Name] = meta
}

func (c *Catalog) GetTable(name string) (TableFileMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.tables[name]
	return meta, ok
}

func (c *Catalog) AllTables() []TableFileMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TableFileMetadata, 0, len(c.tables))
	for _, meta := range c.tables {
		out = append(out, meta)
	}
	return out
}

func (c *Catalog) RemoveTable(name string) (TableFileMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.tables[name]
	if ok {
		delete(c.tables, name)
	}
	return meta, ok
}

// AddSecondaryIndex appends idx to table's secondary index list. Unlike the
// original implementation, which recorded a secondary index only in the
// in-memory TableMetadata and left a "TODO: update catalog" unresolved,
// this persists the descriptor into the catalog entry itself so
// SaveToDisk/LoadFromDisk carries it across restarts.
func (c *Catalog) AddSecondaryIndex(tableName string, idx IndexFileMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, ok := c.tables[tableName]
	if !ok {
		return fmt.Errorf("table not found: %s", tableName)
	}
	meta.SecondaryIndexes = append(meta.SecondaryIndexes, idx)
	c.tables[tableName] = meta
	return nil
}

// Serialize encodes the catalog's header and table metadata into a single
// byte slice suitable for writing to a catalog segment file.
func (c *Catalog) Serialize() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var tableBytes bytes.Buffer
	for _, meta := range c.tables {
		encodeTableFileMetadata(&tableBytes, meta)
	}

	header := Header{
		Version:   catalogVersion,
		NumTables: uint32(len(c.tables)),
		Checksum:  xxhash.Sum64(tableBytes.Bytes()),
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, header.Version)
	binary.Write(&out, binary.LittleEndian, header.NumTables)
	binary.Write(&out, binary.LittleEndian, header.Checksum)
	out.Write(tableBytes.Bytes())
	return out.Bytes(), nil
}

// Deserialize parses a catalog segment's bytes, validating the checksum
// over the table-metadata region. The checksum algorithm is xxHash64
// rather than the original's `acc = acc*31 + byte` rolling sum - spec.md
// explicitly permits substituting a stronger checksum, and reusing xxHash
// here avoids adding a second hashing dependency on top of the one
// DeriveKey already needs for string keys.
func Deserialize(data []byte, dataDir string, log *zap.SugaredLogger) (*Catalog, error) {
	r := bytes.NewReader(data)

	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header.Version); err != nil {
		return nil, fmt.Errorf("decode catalog version: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &header.NumTables); err != nil {
		return nil, fmt.Errorf("decode catalog table count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &header.Checksum); err != nil {
		return nil, fmt.Errorf("decode catalog checksum: %w", err)
	}

	tableBytes := data[len(data)-r.Len():]
	if got := xxhash.Sum64(tableBytes); got != header.Checksum {
		return nil, errors.NewCatalogError(nil, errors.ErrorCodeCatalogCorrupted, "Catalog checksum mismatch").
			WithDetail("expectedChecksum", header.Checksum).
			WithDetail("actualChecksum", got)
	}

	cat := New(dataDir, log)
	for i := uint32(0); i < header.NumTables; i++ {
		meta, err := decodeTableFileMetadata(r)
		if err != nil {
			return nil, fmt.Errorf("decode table metadata %d: %w", i, err)
		}
		cat.tables[meta.Name] = meta
	}
	return cat, nil
}

func catalogPath(dataDir string, segment uint8) string {
	return filepath.Join(dataDir, fmt.Sprintf("catalog_%d.db", segment))
}

// SaveToDisk writes the catalog to its inactive segment via a
// temp-file-then-rename sequence (write, fsync, atomic rename), then flips
// the active segment - the same durability pattern the teacher's
// storage.Storage uses for segment files, applied here to catalog
// persistence.
func (c *Catalog) SaveToDisk() error {
	data, err := c.Serialize()
	if err != nil {
		return err
	}

	inactive := c.InactiveSegment()
	tempPath := filepath.Join(c.dataDir, fmt.Sprintf("catalog_%d.tmp", inactive))
	finalPath := catalogPath(c.dataDir, inactive)

	tempFile, err := filesys.CreateFile(tempPath, true)
	if err != nil {
		return errors.ClassifyFileOpenError(err, tempPath, filepath.Base(tempPath))
	}

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write catalog file").WithPath(tempPath)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return errors.ClassifySyncError(err, filepath.Base(tempPath), tempPath, len(data))
	}

	if err := tempFile.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to close catalog file").WithPath(tempPath)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to rename catalog file").
			WithPath(finalPath).
			WithDetail("tempPath", tempPath)
	}

	c.FlipSegment()
	if c.log != nil {
		c.log.Infow("Catalog saved", "segment", inactive, "tables", len(c.tables))
	}
	return nil
}

// LoadFromDisk reads the catalog from segment 0, falling back to segment 1
// when 0 is missing or corrupt (and vice versa were 0 readable but corrupt).
// A missing segment is not on its own proof of an empty catalog - a table
// can have been saved exactly once, landing entirely in the other segment -
// so the fallback is tried before concluding the catalog is fresh. Only
// when neither segment yields valid data is that concluded, or the load
// fails outright.
func LoadFromDisk(dataDir string, log *zap.SugaredLogger) (*Catalog, error) {
	return loadFromDisk(dataDir, log, New(dataDir, log).ActiveSegment(), false)
}

func loadFromDisk(dataDir string, log *zap.SugaredLogger, segment uint8, isFallback bool) (*Catalog, error) {
	path := catalogPath(dataDir, segment)
	data, err := filesys.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			if isFallback {
				return nil, errors.NewCatalogError(err, errors.ErrorCodeCatalogUnrecoverable, "Failed to load catalog from either segment").
					WithSegment(segment)
			}
			return loadFromDisk(dataDir, log, 1-segment, true)
		}
		if isFallback {
			// Neither segment exists - this is a genuinely fresh data
			// directory, not a recovery failure.
			return New(dataDir, log), nil
		}
		// segment's file doesn't exist yet: a table can have been saved
		// exactly once, which only ever populates the *other* segment (every
		// SaveToDisk writes to the currently inactive one), so a missing
		// primary segment does not by itself mean the catalog is empty.
		// loadFromDisk already records the correct active segment on the
		// successful branch below, so no further flip is needed here.
		return loadFromDisk(dataDir, log, 1-segment, true)
	}

	cat, err := Deserialize(data, dataDir, log)
	if err != nil {
		if isFallback {
			return nil, errors.NewCatalogError(err, errors.ErrorCodeCatalogUnrecoverable, "Failed to deserialize fallback catalog segment").
				WithSegment(segment)
		}
		if log != nil {
			log.Warnw("Active catalog segment corrupt, trying inactive", "segment", segment, "error", err)
		}
		return loadFromDisk(dataDir, log, 1-segment, true)
	}

	cat.activeSegment.Store(uint32(segment))
	return cat, nil
}

func encodeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

func decodeString(r *bytes.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	strBytes := make([]byte, length)
	if _, err := r.Read(strBytes); err != nil {
		return "", err
	}
	return string(strBytes), nil
}

func encodeIndexFileMetadata(buf *bytes.Buffer, m IndexFileMetadata) {
	encodeString(buf, m.Name)
	encodeString(buf, m.IndexType)
	encodeString(buf, m.FilePath)
	binary.Write(buf, binary.LittleEndian, m.RootPageSegment)
	binary.Write(buf, binary.LittleEndian, m.RootPageOffset)
}

func decodeIndexFileMetadata(r *bytes.Reader) (IndexFileMetadata, error) {
	var m IndexFileMetadata
	var err error
	if m.Name, err = decodeString(r); err != nil {
		return m, err
	}
	if m.IndexType, err = decodeString(r); err != nil {
		return m, err
	}
	if m.FilePath, err = decodeString(r); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.RootPageSegment); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.RootPageOffset); err != nil {
		return m, err
	}
	return m, nil
}

func encodeSchema(buf *bytes.Buffer, schema types.Schema) {
	binary.Write(buf, binary.LittleEndian, uint32(len(schema.Columns)))
	for _, col := range schema.Columns {
		encodeString(buf, col.Name)
		binary.Write(buf, binary.LittleEndian, uint8(col.Type.Kind))
		binary.Write(buf, binary.LittleEndian, col.Type.ExtOID)
		encodeString(buf, col.Type.ExtName)
		if col.IsPrimaryKey {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
}

func decodeSchema(r *bytes.Reader) (types.Schema, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return types.Schema{}, err
	}

	columns := make([]types.Column, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := decodeString(r)
		if err != nil {
			return types.Schema{}, err
		}
		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return types.Schema{}, err
		}
		var extOID uint32
		if err := binary.Read(r, binary.LittleEndian, &extOID); err != nil {
			return types.Schema{}, err
		}
		extName, err := decodeString(r)
		if err != nil {
			return types.Schema{}, err
		}
		isPK, err := r.ReadByte()
		if err != nil {
			return types.Schema{}, err
		}
		columns = append(columns, types.Column{
			Name:         name,
			Type:         types.DataType{Kind: types.Kind(kind), ExtOID: extOID, ExtName: extName},
			IsPrimaryKey: isPK != 0,
		})
	}
	return types.NewSchema(columns), nil
}

func encodeTableFileMetadata(buf *bytes.Buffer, m TableFileMetadata) {
	encodeString(buf, m.Name)
	encodeString(buf, m.FilePath)
	encodeSchema(buf, m.Schema)
	binary.Write(buf, binary.LittleEndian, m.NextSegmentID)

	if m.PrimaryIndex != nil {
		buf.WriteByte(1)
		encodeIndexFileMetadata(buf, *m.PrimaryIndex)
	} else {
		buf.WriteByte(0)
	}

	binary.Write(buf, binary.LittleEndian, uint32(len(m.SecondaryIndexes)))
	for _, idx := range m.SecondaryIndexes {
		encodeIndexFileMetadata(buf, idx)
	}
}

func decodeTableFileMetadata(r *bytes.Reader) (TableFileMetadata, error) {
	var m TableFileMetadata
	var err error

	if m.Name, err = decodeString(r); err != nil {
		return m, err
	}
	if m.FilePath, err = decodeString(r); err != nil {
		return m, err
	}
	if m.Schema, err = decodeSchema(r); err != nil {
		return m, err
	}
	if err = binary.Read(r, binary.LittleEndian, &m.NextSegmentID); err != nil {
		return m, err
	}

	hasPrimary, err := r.ReadByte()
	if err != nil {
		return m, err
	}
	if hasPrimary != 0 {
		idx, err := decodeIndexFileMetadata(r)
		if err != nil {
			return m, err
		}
		m.PrimaryIndex = &idx
	}

	var secondaryCount uint32
	if err := binary.Read(r, binary.LittleEndian, &secondaryCount); err != nil {
		return m, err
	}
	m.SecondaryIndexes = make([]IndexFileMetadata, 0, secondaryCount)
	for i := uint32(0); i < secondaryCount; i++ {
		idx, err := decodeIndexFileMetadata(r)
		if err != nil {
			return m, err
		}
		m.SecondaryIndexes = append(m.SecondaryIndexes, idx)
	}

	return m, nil
}
