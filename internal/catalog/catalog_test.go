package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamNilotpal/flint/internal/types"
)

func testSchema() types.Schema {
	return types.NewSchema([]types.Column{
		{Name: "id", Type: types.IntType(), IsPrimaryKey: true},
		{Name: "name", Type: types.StringType()},
	})
}

func TestCatalogAddGetRemoveTable(t *testing.T) {
	cat := New(t.TempDir(), zap.NewNop().Sugar())

	meta := TableFileMetadata{Name: "users", FilePath: "/tmp/users.tbl", Schema: testSchema(), NextSegmentID: 1}
	cat.AddTable(meta)

	got, ok := cat.GetTable("users")
	require.True(t, ok)
	require.Equal(t, meta.Name, got.Name)
	require.Len(t, cat.AllTables(), 1)

	removed, ok := cat.RemoveTable("users")
	require.True(t, ok)
	require.Equal(t, meta.Name, removed.Name)
	require.Empty(t, cat.AllTables())

	_, ok = cat.GetTable("users")
	require.False(t, ok)
}

func TestCatalogAddSecondaryIndexRequiresExistingTable(t *testing.T) {
	cat := New(t.TempDir(), zap.NewNop().Sugar())
	err := cat.AddSecondaryIndex("missing", IndexFileMetadata{Name: "idx"})
	require.Error(t, err)
}

func TestCatalogAddSecondaryIndexAppends(t *testing.T) {
	cat := New(t.TempDir(), zap.NewNop().Sugar())
	cat.AddTable(TableFileMetadata{Name: "users", Schema: testSchema()})

	require.NoError(t, cat.AddSecondaryIndex("users", IndexFileMetadata{Name: "email:idx", IndexType: "hash"}))

	meta, ok := cat.GetTable("users")
	require.True(t, ok)
	require.Len(t, meta.SecondaryIndexes, 1)
	require.Equal(t, "email:idx", meta.SecondaryIndexes[0].Name)
}

func TestCatalogSerializeDeserializeRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	cat := New(dataDir, zap.NewNop().Sugar())
	cat.AddTable(TableFileMetadata{
		Name:          "users",
		FilePath:      filepath.Join(dataDir, "table_users.tbl"),
		Schema:        testSchema(),
		NextSegmentID: 3,
		PrimaryIndex: &IndexFileMetadata{
			Name: "pk", IndexType: "btree", FilePath: "/x/pk.idx", RootPageSegment: 0, RootPageOffset: 1,
		},
		SecondaryIndexes: []IndexFileMetadata{
			{Name: "name:idx", IndexType: "hash", FilePath: "/x/name.idx"},
		},
	})

	data, err := cat.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data, dataDir, zap.NewNop().Sugar())
	require.NoError(t, err)

	meta, ok := restored.GetTable("users")
	require.True(t, ok)
	require.Equal(t, uint32(3), meta.NextSegmentID)
	require.NotNil(t, meta.PrimaryIndex)
	require.Equal(t, "btree", meta.PrimaryIndex.IndexType)
	require.Len(t, meta.SecondaryIndexes, 1)
	require.Equal(t, 2, meta.Schema.Len())
	require.True(t, meta.Schema.Columns[0].IsPrimaryKey)
}

func TestDeserializeRejectsCorruptChecksum(t *testing.T) {
	cat := New(t.TempDir(), zap.NewNop().Sugar())
	cat.AddTable(TableFileMetadata{Name: "users", Schema: testSchema()})

	data, err := cat.Serialize()
	require.NoError(t, err)

	// Flip a byte in the table-metadata region so the checksum no longer matches.
	corrupt := append([]byte{}, data...)
	corrupt[len(corrupt)-1] ^= 0xFF

	_, err = Deserialize(corrupt, t.TempDir(), zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestCatalogSaveLoadRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	cat := New(dataDir, zap.NewNop().Sugar())
	cat.AddTable(TableFileMetadata{Name: "users", Schema: testSchema(), NextSegmentID: 1})

	require.NoError(t, cat.SaveToDisk())
	require.EqualValues(t, 1, cat.ActiveSegment(), "save flips to the segment just written")

	loaded, err := LoadFromDisk(dataDir, zap.NewNop().Sugar())
	require.NoError(t, err)

	meta, ok := loaded.GetTable("users")
	require.True(t, ok)
	require.Equal(t, "users", meta.Name)
	require.EqualValues(t, loaded.ActiveSegment(), cat.ActiveSegment())
}

func TestCatalogLoadFromDiskWithNoSegmentsReturnsEmpty(t *testing.T) {
	loaded, err := LoadFromDisk(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Empty(t, loaded.AllTables())
}

func TestCatalogLoadFallsBackToInactiveSegmentOnCorruption(t *testing.T) {
	dataDir := t.TempDir()
	cat := New(dataDir, zap.NewNop().Sugar())

	// First save: only "users" exists yet. Writes segment 1, flips active to 1.
	cat.AddTable(TableFileMetadata{Name: "users", Schema: testSchema()})
	require.NoError(t, cat.SaveToDisk())

	// Second save: "orders" now also exists. Writes segment 0, flips active to 0.
	// Both segments now hold valid, distinct snapshots of the catalog.
	cat.AddTable(TableFileMetadata{Name: "orders", Schema: testSchema()})
	require.NoError(t, cat.SaveToDisk())
	require.EqualValues(t, 0, cat.ActiveSegment())

	// Corrupt the currently-active segment (0) so loading must fall back to
	// the still-good, older inactive segment (1) - which only has "users".
	activePath := catalogPath(dataDir, cat.ActiveSegment())
	require.NoError(t, os.WriteFile(activePath, []byte("garbage, not a valid catalog segment"), 0644))

	loaded, err := LoadFromDisk(dataDir, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.EqualValues(t, 1, loaded.ActiveSegment())

	meta, ok := loaded.GetTable("users")
	require.True(t, ok)
	require.Equal(t, "users", meta.Name)

	_, ok = loaded.GetTable("orders")
	require.False(t, ok, "orders was only ever saved to the corrupted segment")
}

func TestCatalogLoadFailsWhenBothSegmentsCorrupt(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(catalogPath(dataDir, 0), []byte("garbage"), 0644))
	require.NoError(t, os.WriteFile(catalogPath(dataDir, 1), []byte("garbage"), 0644))

	_, err := LoadFromDisk(dataDir, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestFlipSegmentTogglesActiveAndInactive(t *testing.T) {
	cat := New(t.TempDir(), zap.NewNop().Sugar())
	require.EqualValues(t, 0, cat.ActiveSegment())
	require.EqualValues(t, 1, cat.InactiveSegment())

	cat.FlipSegment()
	require.EqualValues(t, 1, cat.ActiveSegment())
	require.EqualValues(t, 0, cat.InactiveSegment())
}
