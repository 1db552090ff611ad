package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
)

// OperationQuery selects locks by operation id, record id or record ids.
type OperationQuery struct {
	RecordID    int64
	RecordIDs   []int64
	OperationID string
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error

	GetOperations(ctx context.Context, q OperationQuery) ([]*models.OperationLock, error)
	CreateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error)
	UpdateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error)
	DeleteOperations(ctx context.Context, q OperationQuery) (int64, error)

	SaveRecord(ctx context.Context, r *models.Record) (*models.Record, error)
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	ListRecords(ctx context.Context, folderID int64) ([]*models.Record, error)
	DeleteRecord(ctx context.Context, id int64) error
	// GetLastUpdate returns nil for an empty folder.
	GetLastUpdate(ctx context.Context, folderID int64) (*time.Time, error)

	GetUploadURL(ctx context.Context) (storageKey string, url string, err error)
	GetDownloadURL(ctx context.Context, storageKey string) (string, error)
}
