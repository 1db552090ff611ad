package pages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]models.PageImage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT page, mime_type, data FROM page_cache WHERE cache_key = ? ORDER BY page`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read page cache[%s]: %w", key, err)
	}
	defer rows.Close()

	var result []models.PageImage
	for rows.Next() {
		var p models.PageImage
		if err := rows.Scan(&p.Page, &p.MimeType, &p.Data); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate page rows: %w", err)
	}
	return result, nil
}

// Put should run inside a transaction so readers never see a partial set.
func (r *SQLiteRepository) Put(ctx context.Context, key string, pages []models.PageImage) error {
	if err := r.Delete(ctx, key); err != nil {
		return err
	}
	for _, p := range pages {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO page_cache (cache_key, page, mime_type, data) VALUES (?, ?, ?, ?)`,
			key, p.Page, p.MimeType, p.Data)
		if err != nil {
			return fmt.Errorf("failed to cache page %d of %s: %w", p.Page, key, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM page_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to drop page cache[%s]: %w", key, err)
	}
	return nil
}
