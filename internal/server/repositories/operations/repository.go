package operations

import (
	"context"

	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
)

type Repository interface {
	Find(ctx context.Context, q models.OperationQuery) ([]*models.OperationLock, error)
	Create(ctx context.Context, op *models.OperationLock) error
	Update(ctx context.Context, op *models.OperationLock) error
	Delete(ctx context.Context, q models.OperationQuery) (int64, error)
}
