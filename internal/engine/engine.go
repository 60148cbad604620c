// Package engine provides the core database engine implementation for the
// flint storage system.
//
// The engine is the central coordinator and entry point for all database
// operations. It owns the on-disk Database (tables, indexes, catalog) and
// constructs - without wiring in - a write-ahead-log writer for a future
// recovery path. It implements a thread-safe interface with proper
// lifecycle management, using atomic operations for state tracking.
package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/internal/database"
	"github.com/iamNilotpal/flint/internal/storage"
	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/internal/wal"
	"github.com/iamNilotpal/flint/pkg/options"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = errors.New("operation failed: cannot access closed engine")
)

// Engine coordinates the storage subsystems and is the primary interface
// for database operations. It is safe for concurrent use.
type Engine struct {
	options *options.Options   // options contains all configuration parameters for the engine and its subsystems.
	log     *zap.SugaredLogger // log provides structured logging capabilities throughout the engine.
	closed  atomic.Bool        // closed tracks the engine's lifecycle state.
	db      *database.Database // db owns every table/index file and the catalog.
	wal     *wal.Writer        // wal is constructed but never appended to - see internal/wal.
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes a new Engine instance with the provided
// configuration: it opens (or recovers) the Database rooted at
// Options.DataDir and constructs a WAL writer alongside it.
func New(ctx context.Context, config *Config) (*Engine, error) {
	db, err := database.Open(config.Options.DataDir, config.Logger)
	if err != nil {
		return nil, err
	}

	walWriter, err := wal.NewWriter(config.Options, config.Logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Engine{
		options: config.Options,
		log:     config.Logger,
		db:      db,
		wal:     walWriter,
	}, nil
}

// CreateTable registers a new table with the given schema.
func (e *Engine) CreateTable(name string, schema types.Schema) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.db.CreateTable(name, schema)
}

// InsertRow appends row to table and maintains its primary index.
func (e *Engine) InsertRow(table string, row types.Row) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.db.InsertRow(table, row)
}

// ScanTable returns every live row in table.
func (e *Engine) ScanTable(table string) ([]types.Row, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.db.ScanTable(table)
}

// GetSchema returns table's schema.
func (e *Engine) GetSchema(table string) (types.Schema, error) {
	if e.closed.Load() {
		return types.Schema{}, ErrEngineClosed
	}
	return e.db.GetSchema(table)
}

// GetByKey performs a primary-key point lookup against table.
func (e *Engine) GetByKey(table string, key uint64) (storage.TuplePointer, bool, error) {
	if e.closed.Load() {
		return storage.TuplePointer{}, false, ErrEngineClosed
	}
	return e.db.GetByKey(table, key)
}

// RangeScanIndex returns every tuple pointer in table whose primary key
// falls in [startKey, endKey].
func (e *Engine) RangeScanIndex(table string, startKey, endKey uint64) ([]storage.TuplePointer, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.db.RangeScanIndex(table, startKey, endKey)
}

// SearchSecondaryIndex performs a point lookup against the secondary index
// built on column.
func (e *Engine) SearchSecondaryIndex(table, column string, key uint64) (storage.TuplePointer, bool, error) {
	if e.closed.Load() {
		return storage.TuplePointer{}, false, ErrEngineClosed
	}
	return e.db.SearchSecondaryIndex(table, column, key)
}

// CreateSecondaryIndex builds and persists a new secondary index.
func (e *Engine) CreateSecondaryIndex(indexName, table, column, indexType string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.db.CreateSecondaryIndex(indexName, table, column, indexType)
}

// ReadBlock reads one block from table's file.
func (e *Engine) ReadBlock(table string, segmentID storage.SegmentID, blockID storage.BlockID) (*storage.Block, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.db.ReadBlock(table, segmentID, blockID)
}

// Close gracefully shuts down the engine: the database's table/index files
// and the WAL writer's active segment are both closed, and any errors from
// either are combined rather than one masking the other.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}
	return multierr.Append(e.db.Close(), e.wal.Close())
}
