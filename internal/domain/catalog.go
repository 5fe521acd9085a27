package domain

import (
	"fmt"
	"strings"
)

// CatalogItem is a sellable product. Price is in the smallest currency unit.
// The JSON names are the ones the admin front-end sends and reads.
type CatalogItem struct {
	ID       string `json:"id"`
	Category string `json:"kategori"`
	Name     string `json:"nama"`
	Variant  string `json:"varian"`
	Price    int64  `json:"harga"`
	Stock    int64  `json:"stok"`
}

// Validate normalizes whitespace and checks the item invariants.
func (i *CatalogItem) Validate() error {
	i.ID = strings.TrimSpace(i.ID)
	i.Category = strings.TrimSpace(i.Category)
	i.Name = strings.TrimSpace(i.Name)
	i.Variant = strings.TrimSpace(i.Variant)

	switch {
	case i.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	case i.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	case i.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	case i.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidItem)
	}
	return nil
}

// ItemPatch carries the fields of an update; nil fields are left unchanged.
type ItemPatch struct {
	Category *string `json:"kategori,omitempty"`
	Name     *string `json:"nama,omitempty"`
	Variant  *string `json:"varian,omitempty"`
	Price    *int64  `json:"harga,omitempty"`
	Stock    *int64  `json:"stok,omitempty"`
}

// Apply returns a copy of item with the patch applied.
func (p ItemPatch) Apply(item CatalogItem) CatalogItem {
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Variant != nil {
		item.Variant = *p.Variant
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Stock != nil {
		item.Stock = *p.Stock
	}
	return item
}
