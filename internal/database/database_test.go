package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/internal/types"
)

func usersSchema() types.Schema {
	return types.NewSchema([]types.Column{
		{Name: "id", Type: types.IntType(), IsPrimaryKey: true},
		{Name: "email", Type: types.StringType()},
	})
}

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	err := db.CreateTable("users", usersSchema())
	require.Error(t, err)
}

func TestInsertRowRejectsArityMismatch(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	err := db.InsertRow("users", types.NewRow([]types.Value{types.IntValue(1)}))
	require.Error(t, err)
}

func TestInsertRowRejectsNullPrimaryKey(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	row := types.NewRow([]types.Value{types.NullValue(), types.StringValue("a@example.com")})
	err := db.InsertRow("users", row)
	require.Error(t, err)
}

func TestInsertRowRejectsDuplicatePrimaryKey(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	row := types.NewRow([]types.Value{types.IntValue(1), types.StringValue("a@example.com")})
	require.NoError(t, db.InsertRow("users", row))

	dup := types.NewRow([]types.Value{types.IntValue(1), types.StringValue("b@example.com")})
	err := db.InsertRow("users", dup)
	require.Error(t, err)
}

func TestInsertRowAndGetByKey(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	row := types.NewRow([]types.Value{types.IntValue(7), types.StringValue("seven@example.com")})
	require.NoError(t, db.InsertRow("users", row))

	ptr, found, err := db.GetByKey("users", 7)
	require.NoError(t, err)
	require.True(t, found)

	block, err := db.ReadBlock("users", ptr.SegmentID, ptr.BlockID)
	require.NoError(t, err)
	tupleBytes, ok := block.ReadTuple(ptr.SlotID)
	require.True(t, ok)

	decoded, err := types.DecodeRow(tupleBytes)
	require.NoError(t, err)
	got, _ := decoded.Get(0)
	require.Equal(t, int64(7), got.Int)
}

func TestScanTableReturnsAllInsertedRows(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	for i := int64(1); i <= 3; i++ {
		row := types.NewRow([]types.Value{types.IntValue(i), types.StringValue("x")})
		require.NoError(t, db.InsertRow("users", row))
	}

	rows, err := db.ScanTable("users")
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestRangeScanIndexReturnsOrderedMatches(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	for _, id := range []int64{10, 20, 30, 40} {
		row := types.NewRow([]types.Value{types.IntValue(id), types.StringValue("x")})
		require.NoError(t, db.InsertRow("users", row))
	}

	ptrs, err := db.RangeScanIndex("users", 15, 35)
	require.NoError(t, err)
	require.Len(t, ptrs, 2)
}

func TestCreateSecondaryIndexBackfillsExistingRows(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	row := types.NewRow([]types.Value{types.IntValue(1), types.StringValue("a@example.com")})
	require.NoError(t, db.InsertRow("users", row))

	require.NoError(t, db.CreateSecondaryIndex("idx", "users", "email", "hash"))

	key, err := types.DeriveKey(types.StringValue("a@example.com"))
	require.NoError(t, err)

	ptr, found, err := db.SearchSecondaryIndex("users", "email", key)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 0, ptr.SegmentID)
}

func TestCreateSecondaryIndexRejectsUnknownColumn(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	err := db.CreateSecondaryIndex("idx", "users", "nope", "hash")
	require.Error(t, err)
}

func TestOperationsOnUnknownTableReturnNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ScanTable("ghost")
	require.Error(t, err)

	err = db.InsertRow("ghost", types.NewRow(nil))
	require.Error(t, err)
}

func TestReopenRecoversTablesRowsAndIndexes(t *testing.T) {
	dataDir := t.TempDir()

	db, err := Open(dataDir, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, db.CreateTable("users", usersSchema()))

	row := types.NewRow([]types.Value{types.IntValue(1), types.StringValue("a@example.com")})
	require.NoError(t, db.InsertRow("users", row))
	require.NoError(t, db.CreateSecondaryIndex("idx", "users", "email", "hash"))
	require.NoError(t, db.Close())

	reopened, err := Open(dataDir, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	rows, err := reopened.ScanTable("users")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, found, err := reopened.GetByKey("users", 1)
	require.NoError(t, err)
	require.True(t, found)

	key, err := types.DeriveKey(types.StringValue("a@example.com"))
	require.NoError(t, err)
	_, found, err = reopened.SearchSecondaryIndex("users", "email", key)
	require.NoError(t, err)
	require.True(t, found)
}
