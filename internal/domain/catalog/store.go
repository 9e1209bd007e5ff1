package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"shopwhiz/go_backend/internal/infra/db/postgres"
)

// Store reads the catalog mirror kept in postgres by the sync worker.
type Store struct {
	db *postgres.DB
}

func NewStore(db *postgres.DB) *Store {
	return &Store{db: db}
}

func (st *Store) Snapshot(ctx context.Context, store string) (*Snapshot, error) {
	rows, err := st.db.Pool.Query(ctx, `
		SELECT product_id, title, coalesce(description, ''), handle, coalesce(image_url, ''), coalesce(variants, '[]'::jsonb)
		FROM catalog_products
		WHERE store = $1
		ORDER BY title`, store)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var variants []byte
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Handle, &e.ImageURL, &variants); err != nil {
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		if err := json.Unmarshal(variants, &e.Variants); err != nil {
			return nil, fmt.Errorf("catalog variants for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewSnapshot(entries), nil
}

func (st *Store) IsValidProduct(ctx context.Context, store, handle string) (bool, error) {
	var exists bool
	err := st.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM catalog_products WHERE store = $1 AND handle = $2)`,
		store, handle).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("catalog handle lookup: %w", err)
	}
	return exists, nil
}
