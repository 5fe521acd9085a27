package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/tokobot/internal/domain"
)

func currentInstruction(t *testing.T, s *testStack) string {
	t.Helper()
	h, err := s.models.Current()
	require.NoError(t, err)
	return h.Context.Instruction
}

func TestCatalogMutationsRebuildContext(t *testing.T) {
	s := newTestStack(t, beras).ready(t)
	svc := NewCatalogService(s.catalog, s.coordinator)
	ctx := context.Background()

	_, err := s.coordinator.Resolve(ctx, "62811")
	require.NoError(t, err)

	res, err := svc.Create(ctx, domain.CatalogItem{ID: " KOP-001 ", Category: "Kopi", Name: "Kapal Api", Price: 1500, Stock: 40})
	require.NoError(t, err)
	assert.NoError(t, res.RebuildErr)
	assert.Empty(t, res.Warning())
	assert.Equal(t, "KOP-001", res.Item.ID)
	assert.Contains(t, currentInstruction(t, s), `"id": "KOP-001"`)
	assert.Zero(t, s.sessions.Len())

	stock := int64(10)
	res, err = svc.Update(ctx, "SMB-001", domain.ItemPatch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Item.Stock)
	assert.Equal(t, "Beras", res.Item.Name)
	assert.Contains(t, currentInstruction(t, s), `"stok": 10`)

	_, err = svc.Delete(ctx, "KOP-001")
	require.NoError(t, err)
	assert.NotContains(t, currentInstruction(t, s), "KOP-001")
	assert.Equal(t, uint64(4), s.coordinator.Version())
}

func TestCatalogMutationErrors(t *testing.T) {
	s := newTestStack(t, beras).ready(t)
	svc := NewCatalogService(s.catalog, s.coordinator)
	ctx := context.Background()

	_, err := svc.Create(ctx, beras)
	assert.ErrorIs(t, err, domain.ErrItemExists)

	_, err = svc.Create(ctx, domain.CatalogItem{ID: "X", Name: "X", Price: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	neg := int64(-5)
	_, err = svc.Update(ctx, "SMB-001", domain.ItemPatch{Stock: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	_, err = svc.Update(ctx, "NOPE", domain.ItemPatch{})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = svc.Delete(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.Equal(t, uint64(1), s.coordinator.Version())
}

func TestCatalogMutationStandsWhenRebuildFails(t *testing.T) {
	s := newTestStack(t, beras).ready(t)
	svc := NewCatalogService(s.catalog, s.coordinator)
	ctx := context.Background()

	s.provider.setErr(errBoom)
	res, err := svc.Create(ctx, gula)
	require.NoError(t, err)
	assert.ErrorIs(t, res.RebuildErr, domain.ErrRebuildFailed)
	assert.NotEmpty(t, res.Warning())

	_, err = s.catalog.GetItem(ctx, gula.ID)
	assert.NoError(t, err)
	assert.NotContains(t, currentInstruction(t, s), gula.ID)

	s.provider.setErr(nil)
	require.NoError(t, svc.Rebuild(ctx))
	assert.Contains(t, currentInstruction(t, s), gula.ID)
}

const legacyJSON = `{
  "profil_toko": {"nama": "Toko Aba Ratima"},
  "data_inventaris": {
    "kategori_barang": {
      "Sembako": [
        {"id": "SMB-002", "nama": "Gula", "varian": "1kg", "harga": 17000, "stok": 12},
        {"id": "SMB-001", "nama": "Beras", "varian": "5kg", "harga": 65000, "stok": 0}
      ],
      "Rokok": [
        {"id": "RKK-001", "nama": "Surya", "varian": "12 batang", "harga": 28000, "stok": 5}
      ]
    }
  }
}`

func TestParseLegacyInventory(t *testing.T) {
	items, err := ParseLegacyInventory(strings.NewReader(legacyJSON))
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, surya, items[0])
	assert.Equal(t, beras, items[1])
	assert.Equal(t, gula, items[2])

	_, err = ParseLegacyInventory(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestCatalogImport(t *testing.T) {
	s := newTestStack(t)
	svc := NewCatalogService(s.catalog, s.coordinator)
	ctx := context.Background()

	items, err := ParseLegacyInventory(strings.NewReader(legacyJSON))
	require.NoError(t, err)

	n, err := svc.Import(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, currentInstruction(t, s), "RKK-001")

	n, err = svc.Import(ctx, items)
	require.NoError(t, err)
	assert.Zero(t, n)
}
