package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/set-night/tokobot/internal/domain"
)

const itemColumns = "id, category, name, variant, price, stock"

func scanItem(row interface{ Scan(...any) error }) (domain.CatalogItem, error) {
	var it domain.CatalogItem
	err := row.Scan(&it.ID, &it.Category, &it.Name, &it.Variant, &it.Price, &it.Stock)
	return it, err
}

// ListItems returns the whole catalog ordered by category and id.
func (s *Store) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM inventory ORDER BY category, id")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, id string) (domain.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+itemColumns+" FROM inventory WHERE id = ?"), id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory").Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func (s *Store) InsertItem(ctx context.Context, it domain.CatalogItem) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO inventory ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		it.ID, it.Category, it.Name, it.Variant, it.Price, it.Stock,
	)
	if isUniqueViolation(err) {
		return domain.ErrItemExists
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, it domain.CatalogItem) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE inventory SET category = ?, name = ?, variant = ?, price = ?, stock = ? WHERE id = ?"),
		it.Category, it.Name, it.Variant, it.Price, it.Stock, it.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM inventory WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
