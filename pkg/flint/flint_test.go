package flint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/flint/internal/types"
	"github.com/iamNilotpal/flint/pkg/errors"
	"github.com/iamNilotpal/flint/pkg/options"
)

func usersSchema() types.Schema {
	return types.NewSchema([]types.Column{
		{Name: "id", Type: types.IntType(), IsPrimaryKey: true},
		{Name: "email", Type: types.StringType()},
	})
}

func TestInstanceCreateInsertScanClose(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	inst, err := NewInstance(ctx, "flint-test", options.WithDataDir(dataDir))
	require.NoError(t, err)
	defer inst.Close(ctx)

	require.NoError(t, inst.CreateTable(ctx, "users", usersSchema()))

	row := types.NewRow([]types.Value{types.IntValue(1), types.StringValue("a@example.com")})
	require.NoError(t, inst.InsertRow(ctx, "users", row))

	rows, err := inst.ScanTable(ctx, "users")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ptr, found, err := inst.GetByKey(ctx, "users", 1)
	require.NoError(t, err)
	require.True(t, found)

	block, err := inst.ReadBlock(ctx, "users", ptr.SegmentID, ptr.BlockID)
	require.NoError(t, err)
	require.NotNil(t, block)
}

func TestInstanceInsertIntoUnknownTableReturnsNotFoundKind(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	inst, err := NewInstance(ctx, "flint-test", options.WithDataDir(dataDir))
	require.NoError(t, err)
	defer inst.Close(ctx)

	row := types.NewRow([]types.Value{types.IntValue(1)})
	err = inst.InsertRow(ctx, "ghost", row)
	require.Error(t, err)

	var flintErr *Error
	require.ErrorAs(t, err, &flintErr)
	require.Equal(t, errors.KindNotFound, flintErr.Kind())
}

func TestInstanceCreateTableTwiceReturnsAlreadyExistsKind(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	inst, err := NewInstance(ctx, "flint-test", options.WithDataDir(dataDir))
	require.NoError(t, err)
	defer inst.Close(ctx)

	require.NoError(t, inst.CreateTable(ctx, "users", usersSchema()))
	err = inst.CreateTable(ctx, "users", usersSchema())
	require.Error(t, err)

	var flintErr *Error
	require.ErrorAs(t, err, &flintErr)
	require.Equal(t, errors.KindAlreadyExists, flintErr.Kind())
	require.Equal(t, errors.ErrorCodeAlreadyExists, flintErr.Code())
	require.NotEmpty(t, flintErr.Details())
}

// TestInstanceHonorsSegmentOptions exercises the functional options beyond
// WithDataDir: the WAL writer engine.New constructs alongside the database
// reads SegmentOptions.Directory/Prefix/Size, so a custom segment layout
// is observable on disk even though nothing yet appends to the WAL itself.
func TestInstanceHonorsSegmentOptions(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	inst, err := NewInstance(
		ctx, "flint-test",
		options.WithDataDir(dataDir),
		options.WithSegmentDir("wal-segments"),
		options.WithSegmentPrefix("flint-wal"),
		options.WithSegmentSize(options.MinSegmentSize+1),
		options.WithCompactInterval(options.DefaultCompactInterval+time.Hour),
	)
	require.NoError(t, err)
	defer inst.Close(ctx)

	segDir := filepath.Join(dataDir, "wal-segments")
	entries, err := os.ReadDir(segDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "flint-wal")
}
