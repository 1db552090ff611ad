package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/operations"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/repomanager"
)

// OperationService is the operation lock store. It stores what clients send;
// lock semantics live on the client.
type OperationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewOperationService(db *sql.DB, repomanager repomanager.RepositoryManager) *OperationService {
	return &OperationService{db: db, repomanager: repomanager}
}

func (s *OperationService) Get(ctx context.Context, q models.OperationQuery) ([]*models.OperationLock, error) {
	if q.Empty() {
		return nil, operations.ErrEmptyQuery
	}
	return s.repomanager.Operations(s.db).Find(ctx, q)
}

func (s *OperationService) Create(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	if err := s.repomanager.Operations(s.db).Create(ctx, op); err != nil {
		return nil, fmt.Errorf("error creating operation %s: %w", op.OperationID, err)
	}
	return op, nil
}

// Update replaces the lock and falls back to creating it when no row matches.
func (s *OperationService) Update(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	repo := s.repomanager.Operations(s.db)

	err := repo.Update(ctx, op)
	if errors.Is(err, common.ErrorNotFound) {
		op.ID = 0
		if err := repo.Create(ctx, op); err != nil {
			return nil, fmt.Errorf("error creating operation %s: %w", op.OperationID, err)
		}
		return op, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating operation %s: %w", op.OperationID, err)
	}
	return op, nil
}

// Delete removes matching locks; common.ErrorNotFound when none matched.
func (s *OperationService) Delete(ctx context.Context, q models.OperationQuery) (int64, error) {
	if q.Empty() {
		return 0, operations.ErrEmptyQuery
	}
	n, err := s.repomanager.Operations(s.db).Delete(ctx, q)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, common.ErrorNotFound
	}
	return n, nil
}
