package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/repomanager"
)

type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	logger      logging.Logger
}

func NewRecordService(db *sql.DB, repomanager repomanager.RepositoryManager, blobs BlobStore, logger logging.Logger) *RecordService {
	return &RecordService{
		db:          db,
		repomanager: repomanager,
		blobs:       blobs,
		logger:      logger.With("module", "record_service"),
	}
}

// Save creates the record when it has no id yet and fully replaces it
// otherwise. The stored row, with server timestamps, is returned.
func (s *RecordService) Save(ctx context.Context, r *models.Record) (*models.Record, error) {
	repo := s.repomanager.Records(s.db)

	if r.ID == 0 {
		if err := repo.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("error creating record: %w", err)
		}
		return r, nil
	}

	if err := repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("error updating record %d: %w", r.ID, err)
	}
	return r, nil
}

func (s *RecordService) Get(ctx context.Context, id int64) (*models.Record, error) {
	return s.repomanager.Records(s.db).Get(ctx, id)
}

func (s *RecordService) List(ctx context.Context, folderID int64) ([]*models.Record, error) {
	return s.repomanager.Records(s.db).ListByFolder(ctx, folderID)
}

// LastUpdate returns the newest change in a folder, or nil for an empty one.
func (s *RecordService) LastUpdate(ctx context.Context, folderID int64) (*models.LastUpdate, error) {
	lu, err := s.repomanager.Records(s.db).LastUpdate(ctx, folderID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return lu, err
}

// Delete removes the record, its operation locks and the attachment blobs
// nobody else needs. Blobs listed as preserved, or still referenced by another
// record, are kept. Blob failures are logged and do not fail the delete.
func (s *RecordService) Delete(ctx context.Context, id int64) error {
	var orphaned []string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		r, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}

		preserved := r.PreservedAttachmentIDs()
		for _, a := range r.Attachments {
			if _, ok := preserved[a.ID]; ok {
				continue
			}
			used, err := repo.StorageKeyInUse(ctx, a.StorageKey, r.ID)
			if err != nil {
				return err
			}
			if !used {
				orphaned = append(orphaned, a.StorageKey)
			}
		}

		if _, err := s.repomanager.Operations(tx).Delete(ctx, models.OperationQuery{RecordID: id}); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("error deleting record %d: %w", id, err)
	}

	for _, key := range orphaned {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "attachment blob not removed", "record_id", id, "storage_key", key, "error", err)
		}
	}
	return nil
}

func (s *RecordService) UploadURL(ctx context.Context) (string, string, error) {
	return s.blobs.PresignedPutURL(ctx)
}

func (s *RecordService) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	return s.blobs.PresignedGetURL(ctx, storageKey)
}
