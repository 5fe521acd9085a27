package repository

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokobot "github.com/set-night/tokobot"
	"github.com/set-night/tokobot/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "toko.db")
	s, err := Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(tokobot.MigrationsFS))
	return s
}

func TestDialectOf(t *testing.T) {
	d, err := DialectOf("postgres://u:p@localhost/toko")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = DialectOf("sqlite://toko.db")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = DialectOf("mysql://localhost")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "UPDATE t SET a = $1 WHERE b = $2", pg.rebind("UPDATE t SET a = ? WHERE b = ?"))

	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "SELECT ? , ?", lite.rebind("SELECT ? , ?"))
}

func TestMigrateEmbeddedTree(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "toko.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(tokobot.MigrationsFS))

	n, err := s.CountItems(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	admins, err := s.CountAdminUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, admins)
}

func TestMigrateMissingDialect(t *testing.T) {
	s, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "toko.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	onlyPostgres := fstest.MapFS{
		"migrations/postgres/000001_init.up.sql": {Data: []byte("CREATE TABLE t (id INT);")},
	}
	assert.Error(t, s.Migrate(onlyPostgres))
}

func TestMigrateIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(tokobot.MigrationsFS))
}

func TestCatalogCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	beras := domain.CatalogItem{ID: "SMB-001", Category: "Sembako", Name: "Beras", Variant: "5kg", Price: 65000, Stock: 0}
	gula := domain.CatalogItem{ID: "SMB-002", Category: "Sembako", Name: "Gula", Variant: "1kg", Price: 17000, Stock: 12}
	rokok := domain.CatalogItem{ID: "RKK-001", Category: "Rokok", Name: "Surya", Variant: "12", Price: 28000, Stock: 5}

	for _, it := range []domain.CatalogItem{gula, beras, rokok} {
		require.NoError(t, s.InsertItem(ctx, it))
	}

	err := s.InsertItem(ctx, beras)
	assert.ErrorIs(t, err, domain.ErrItemExists)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogItem{rokok, beras, gula}, items)

	n, err := s.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	beras.Stock = 10
	require.NoError(t, s.UpdateItem(ctx, beras))
	got, err := s.GetItem(ctx, "SMB-001")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Stock)

	require.NoError(t, s.DeleteItem(ctx, "RKK-001"))
	_, err = s.GetItem(ctx, "RKK-001")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.ErrorIs(t, s.DeleteItem(ctx, "RKK-001"), domain.ErrItemNotFound)
	assert.ErrorIs(t, s.UpdateItem(ctx, rokok), domain.ErrItemNotFound)
}

func TestAdminUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.CountAdminUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	u, err := s.CreateAdminUser(ctx, "bajiadmin", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = s.CreateAdminUser(ctx, "bajiadmin", "other")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	got, err := s.GetAdminUserByUsername(ctx, "bajiadmin")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetAdminUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestInteractions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := domain.NewInteractionRecord(base, "100", "stok beras", "Stok beras habis", 1500*time.Millisecond)
	second := domain.NewInteractionRecord(base.Add(time.Minute), "100", "harga gula", "Rp17.000", 800*time.Millisecond)
	require.NoError(t, s.SaveInteraction(ctx, first))
	require.NoError(t, s.SaveInteraction(ctx, second))

	got, err := s.ListInteractions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "harga gula", got[0].Question)
	assert.Equal(t, 800*time.Millisecond, got[0].Duration)
	assert.Equal(t, len("Stok beras habis"), got[1].AnswerBytes)
	assert.True(t, got[1].Timestamp.Equal(base))
}
