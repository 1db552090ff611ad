// Package pages caches rendered page images keyed by attachment identity.
package pages

import (
	"context"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
)

type Repository interface {
	// Get returns the cached pages ordered by page number, or nil.
	Get(ctx context.Context, key string) ([]models.PageImage, error)
	// Put replaces the cached pages for key.
	Put(ctx context.Context, key string, pages []models.PageImage) error
	Delete(ctx context.Context, key string) error
}
