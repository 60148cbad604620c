// Package flint provides a durable, single-node relational storage engine:
// create tables against a schema, insert and scan rows, and maintain a
// primary key plus any number of secondary indexes, all persisted under a
// configurable data directory.
//
// Instance is the primary entry point - one Instance owns one data
// directory's worth of tables, indexes, and catalog.
package flint

import (
	"context"

	"github.com/iamNilotpal/flint/internal/engine"
	"github.com/iamNilotpal/flint/internal/storage"
	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/pkg/errors"
	"github.com/iamNilotpal/flint/pkg/logger"
	"github.com/iamNilotpal/flint/pkg/options"
)

// Error wraps any error flint returns with a stable Kind, so callers can
// branch on outcome (not found, already exists, corrupt data, plain I/O
// failure, ...) without importing pkg/errors' internal taxonomy of
// concrete error types.
type Error struct {
	cause error
	kind  errors.Kind
}

func (e *Error) Error() string     { return e.cause.Error() }
func (e *Error) Unwrap() error     { return e.cause }
func (e *Error) Kind() errors.Kind { return e.kind }

// Code returns the concrete error code carried by the underlying pkg/errors
// error (ValidationError, StorageError, IndexError, CatalogError,
// NotFoundError, AlreadyExistsError), or ErrorCodeInternal if the cause
// carries none.
func (e *Error) Code() errors.ErrorCode { return errors.GetErrorCode(e.cause) }

// Details returns the structured context (path, offset, operation, ...)
// attached to the underlying error, or an empty map if it carries none.
func (e *Error) Details() map[string]any { return errors.GetErrorDetails(e.cause) }

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{cause: err, kind: errors.KindOf(err)}
}

// Instance represents an instance of the flint storage engine. It
// encapsulates the core engine responsible for table/index/catalog
// management and the configuration options for this instance.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// NewInstance creates and initializes a new flint Instance rooted at the
// data directory named in opts (or options.DefaultDataDir if none is
// given).
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, wrapError(err)
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// CreateTable registers a new table under name with the given schema.
func (i *Instance) CreateTable(ctx context.Context, name string, schema types.Schema) error {
	return wrapError(i.engine.CreateTable(name, schema))
}

// InsertRow appends row to table, maintaining its primary and secondary indexes.
func (i *Instance) InsertRow(ctx context.Context, table string, row types.Row) error {
	return wrapError(i.engine.InsertRow(table, row))
}

// ScanTable returns every live row currently stored in table.
func (i *Instance) ScanTable(ctx context.Context, table string) ([]types.Row, error) {
	rows, err := i.engine.ScanTable(table)
	return rows, wrapError(err)
}

// GetSchema returns the schema table was created with.
func (i *Instance) GetSchema(ctx context.Context, table string) (types.Schema, error) {
	schema, err := i.engine.GetSchema(table)
	return schema, wrapError(err)
}

// GetByKey performs a primary-key point lookup against table.
func (i *Instance) GetByKey(ctx context.Context, table string, key uint64) (storage.TuplePointer, bool, error) {
	ptr, found, err := i.engine.GetByKey(table, key)
	return ptr, found, wrapError(err)
}

// RangeScanIndex returns every tuple pointer in table whose primary key
// falls in [startKey, endKey].
func (i *Instance) RangeScanIndex(ctx context.Context, table string, startKey, endKey uint64) ([]storage.TuplePointer, error) {
	pointers, err := i.engine.RangeScanIndex(table, startKey, endKey)
	return pointers, wrapError(err)
}

// SearchSecondaryIndex performs a point lookup against the secondary index
// built on column.
func (i *Instance) SearchSecondaryIndex(ctx context.Context, table, column string, key uint64) (storage.TuplePointer, bool, error) {
	ptr, found, err := i.engine.SearchSecondaryIndex(table, column, key)
	return ptr, found, wrapError(err)
}

// CreateSecondaryIndex builds and persists a new secondary index of
// indexType on table's column, backfilling it from every row already
// present.
func (i *Instance) CreateSecondaryIndex(ctx context.Context, indexName, table, column, indexType string) error {
	return wrapError(i.engine.CreateSecondaryIndex(indexName, table, column, indexType))
}

// ReadBlock reads one raw block from table's file.
func (i *Instance) ReadBlock(ctx context.Context, table string, segmentID storage.SegmentID, blockID storage.BlockID) (*storage.Block, error) {
	block, err := i.engine.ReadBlock(table, segmentID, blockID)
	return block, wrapError(err)
}

// Close gracefully shuts down the Instance, closing every open table and
// index file.
func (i *Instance) Close(ctx context.Context) error {
	return wrapError(i.engine.Close())
}
