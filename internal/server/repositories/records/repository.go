package records

import (
	"context"

	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.Record) error
	Update(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, id int64) (*models.Record, error)
	ListByFolder(ctx context.Context, folderID int64) ([]*models.Record, error)
	Delete(ctx context.Context, id int64) error
	LastUpdate(ctx context.Context, folderID int64) (*models.LastUpdate, error)
	StorageKeyInUse(ctx context.Context, storageKey string, excludeID int64) (bool, error)
}
