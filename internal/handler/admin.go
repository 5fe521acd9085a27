package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/tokobot/internal/domain"
	"github.com/set-night/tokobot/internal/service"
	tg "github.com/set-night/tokobot/internal/telegram"
)

const adminUsage = "Perintah admin:\n" +
	"/barang: daftar semua barang\n" +
	"/barang <id>: detail barang\n" +
	"/stok <id> <jumlah>: ubah stok\n" +
	"/harga <id> <harga>: ubah harga\n" +
	"/reload: muat ulang data toko ke asisten"

func (h *Handler) handleAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if update.Message.Chat.Type != models.ChatTypePrivate || !h.cfg.IsAdmin(update.Message.From.ID) {
		return
	}

	chatID := update.Message.Chat.ID
	reply := h.adminCommand(ctx, update.Message.Text)
	if err := tg.SendLongMessage(ctx, b, chatID, reply, nil); err != nil {
		slog.Error("send admin reply", "chat_id", chatID, "error", err)
	}
}

// adminCommand executes one admin command line and returns the reply.
func (h *Handler) adminCommand(ctx context.Context, text string) string {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return adminUsage
	}

	// Strip a @botname suffix.
	cmd, _, _ := strings.Cut(parts[0], "@")
	args := parts[1:]

	switch cmd {
	case "/barang":
		if len(args) == 0 {
			return h.listItems(ctx)
		}
		item, err := h.catalog.Get(ctx, args[0])
		if err != nil {
			return itemError(args[0], err)
		}
		return formatItem(item)

	case "/stok", "/harga":
		if len(args) != 2 {
			return adminUsage
		}
		n, err := strconv.ParseInt(strings.ReplaceAll(args[1], ".", ""), 10, 64)
		if err != nil || n < 0 {
			return "❌ Angka tidak valid: " + args[1]
		}
		var patch domain.ItemPatch
		if cmd == "/stok" {
			patch.Stock = &n
		} else {
			patch.Price = &n
		}
		res, err := h.catalog.Update(ctx, args[0], patch)
		if err != nil {
			return itemError(args[0], err)
		}
		return mutationReply(res)

	case "/reload":
		if err := h.catalog.Rebuild(ctx); err != nil {
			h.opsLogger.LogError(err, "manual reload from telegram")
			return "⚠️ Gagal memuat ulang data toko: " + err.Error()
		}
		return fmt.Sprintf("🔄 Data toko dimuat ulang (versi %d).", h.coordinator.Version())
	}

	return adminUsage
}

func (h *Handler) listItems(ctx context.Context) string {
	items, err := h.catalog.List(ctx)
	if err != nil {
		slog.Error("list items", "error", err)
		return "❌ Gagal membaca data barang."
	}
	if len(items) == 0 {
		return "Belum ada barang."
	}

	var sb strings.Builder
	category := "\x00"
	for _, it := range items {
		if it.Category != category {
			category = it.Category
			fmt.Fprintf(&sb, "\n*%s*\n", orDefault(category, "Lainnya"))
		}
		fmt.Fprintf(&sb, "- `%s` %s %s, %s, stok %d\n", it.ID, it.Name, it.Variant, formatRupiah(it.Price), it.Stock)
	}
	return strings.TrimSpace(sb.String())
}

func formatItem(it domain.CatalogItem) string {
	return fmt.Sprintf("*%s* %s\nID: `%s`\nKategori: %s\nHarga: %s\nStok: %d",
		it.Name, it.Variant, it.ID, orDefault(it.Category, "Lainnya"), formatRupiah(it.Price), it.Stock)
}

func mutationReply(res service.MutationResult) string {
	text := "✅ Tersimpan.\n\n" + formatItem(res.Item)
	if res.RebuildErr != nil {
		text += "\n\n⚠️ Asisten belum memakai data terbaru: " + res.RebuildErr.Error() + "\nCoba /reload."
	}
	return text
}

func itemError(id string, err error) string {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return fmt.Sprintf("❌ Barang `%s` tidak ditemukan.", id)
	case errors.Is(err, domain.ErrInvalidItem):
		return "❌ " + err.Error()
	default:
		slog.Error("admin command", "item_id", id, "error", err)
		return "❌ Terjadi kesalahan, coba lagi."
	}
}

// formatRupiah renders 65000 as Rp65.000.
func formatRupiah(n int64) string {
	s := strconv.FormatInt(n, 10)
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	return "Rp" + sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
