package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/set-night/tokobot/internal/domain"
)

// CatalogStore is the catalog side of the store.
type CatalogStore interface {
	CatalogReader
	GetItem(ctx context.Context, id string) (domain.CatalogItem, error)
	CountItems(ctx context.Context) (int, error)
	InsertItem(ctx context.Context, it domain.CatalogItem) error
	UpdateItem(ctx context.Context, it domain.CatalogItem) error
	DeleteItem(ctx context.Context, id string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, reason string) error
}

// MutationResult is returned by every successful catalog mutation.
// RebuildErr is set when the mutation was stored but the model context
// could not be rebuilt; the assistant answers from the previous catalog
// until the next successful rebuild.
type MutationResult struct {
	Item       domain.CatalogItem
	RebuildErr error
}

// Warning is a human readable description of RebuildErr, or "".
func (r MutationResult) Warning() string {
	if r.RebuildErr == nil {
		return ""
	}
	return "saved, but the assistant context could not be refreshed: " + r.RebuildErr.Error()
}

// CatalogService applies admin mutations and triggers invalidation after
// each one.
type CatalogService struct {
	store       CatalogStore
	invalidator Invalidator
}

func NewCatalogService(store CatalogStore, invalidator Invalidator) *CatalogService {
	return &CatalogService{store: store, invalidator: invalidator}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.store.ListItems(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (domain.CatalogItem, error) {
	return s.store.GetItem(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, item domain.CatalogItem) (MutationResult, error) {
	if err := item.Validate(); err != nil {
		return MutationResult{}, err
	}
	if err := s.store.InsertItem(ctx, item); err != nil {
		return MutationResult{}, err
	}
	return s.mutated(ctx, "create "+item.ID, item), nil
}

func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ItemPatch) (MutationResult, error) {
	current, err := s.store.GetItem(ctx, id)
	if err != nil {
		return MutationResult{}, err
	}
	item := patch.Apply(current)
	if err := item.Validate(); err != nil {
		return MutationResult{}, err
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return MutationResult{}, err
	}
	return s.mutated(ctx, "update "+item.ID, item), nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) (MutationResult, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return MutationResult{}, err
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return MutationResult{}, err
	}
	return s.mutated(ctx, "delete "+id, item), nil
}

// Rebuild re-runs invalidation without a mutation.
func (s *CatalogService) Rebuild(ctx context.Context) error {
	return s.invalidator.Invalidate(ctx, "manual")
}

func (s *CatalogService) mutated(ctx context.Context, reason string, item domain.CatalogItem) MutationResult {
	return MutationResult{Item: item, RebuildErr: s.invalidator.Invalidate(ctx, reason)}
}

// legacyInventory is the layout of the JSON file the shop kept its stock in
// before it had a database.
type legacyInventory struct {
	Data struct {
		Categories map[string][]legacyItem `json:"kategori_barang"`
	} `json:"data_inventaris"`
}

type legacyItem struct {
	ID      string `json:"id"`
	Name    string `json:"nama"`
	Variant string `json:"varian"`
	Price   int64  `json:"harga"`
	Stock   int64  `json:"stok"`
}

// ParseLegacyInventory decodes a legacy inventory file into catalog items
// sorted by category and id.
func ParseLegacyInventory(r io.Reader) ([]domain.CatalogItem, error) {
	var inv legacyInventory
	if err := json.NewDecoder(r).Decode(&inv); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}

	var items []domain.CatalogItem
	for category, list := range inv.Data.Categories {
		for _, li := range list {
			items = append(items, domain.CatalogItem{
				ID:       li.ID,
				Category: category,
				Name:     li.Name,
				Variant:  li.Variant,
				Price:    li.Price,
				Stock:    li.Stock,
			})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Import inserts items into an empty catalog and rebuilds once. A catalog
// that already has items is left alone and 0 is returned.
func (s *CatalogService) Import(ctx context.Context, items []domain.CatalogItem) (int, error) {
	n, err := s.store.CountItems(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("catalog not empty, skipping import", "items", n)
		return 0, nil
	}

	imported := 0
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return imported, fmt.Errorf("import %q: %w", it.ID, err)
		}
		if err := s.store.InsertItem(ctx, it); err != nil {
			return imported, fmt.Errorf("import %q: %w", it.ID, err)
		}
		imported++
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, "import"); err != nil {
			slog.Warn("rebuild after import failed", "error", err)
		}
	}
	return imported, nil
}
