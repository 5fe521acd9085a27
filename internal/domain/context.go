package domain

// ShopProfile is the static shop metadata shown to the model.
type ShopProfile struct {
	Name         string `json:"nama"`
	Owner        string `json:"pemilik"`
	BotName      string `json:"nama_bot"`
	Location     string `json:"lokasi"`
	Hours        string `json:"jam_operasional"`
	Payment      string `json:"pembayaran"`
	Delivery     string `json:"pengiriman"`
	Returns      string `json:"kebijakan_retur_kasbon"`
	AdminContact string `json:"kontak_admin"`
}

// ContextItem is the model-facing view of a CatalogItem.
type ContextItem struct {
	ID      string `json:"id"`
	Name    string `json:"nama"`
	Variant string `json:"varian"`
	Price   int64  `json:"harga"`
	Stock   int64  `json:"stok"`
}

// CategoryGroup holds the items of one category, sorted by ID.
type CategoryGroup struct {
	Category string        `json:"kategori"`
	Items    []ContextItem `json:"barang"`
}

// ContextDocument is derived from one catalog snapshot and never patched.
type ContextDocument struct {
	Shop       ShopProfile     `json:"profil_toko"`
	Categories []CategoryGroup `json:"data_inventaris"`
}

// ItemCount returns the number of items across all categories.
func (d ContextDocument) ItemCount() int {
	n := 0
	for _, c := range d.Categories {
		n += len(c.Items)
	}
	return n
}

// BuiltContext is the builder output: the document and the rendered
// system instruction that embeds it.
type BuiltContext struct {
	Document    ContextDocument
	Instruction string
}
