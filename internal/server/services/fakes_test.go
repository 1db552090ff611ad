package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/operations"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/records"
)

type fakeRecordsRepo struct {
	records.Repository
	byID    map[int64]*models.Record
	nextID  int64
	inUse   map[string]bool
	deleted []int64
}

func newFakeRecordsRepo(rs ...*models.Record) *fakeRecordsRepo {
	f := &fakeRecordsRepo{byID: map[int64]*models.Record{}, inUse: map[string]bool{}, nextID: 100}
	for _, r := range rs {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeRecordsRepo) Create(ctx context.Context, r *models.Record) error {
	f.nextID++
	r.ID = f.nextID
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRecordsRepo) Update(ctx context.Context, r *models.Record) error {
	if _, ok := f.byID[r.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRecordsRepo) Get(ctx context.Context, id int64) (*models.Record, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, id int64) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRecordsRepo) LastUpdate(ctx context.Context, folderID int64) (*models.LastUpdate, error) {
	var lu *models.LastUpdate
	for _, r := range f.byID {
		if r.FolderID != folderID {
			continue
		}
		if lu == nil || r.UpdatedAt.After(lu.UpdatedAt) {
			lu = &models.LastUpdate{RecordID: r.ID, UpdatedAt: r.UpdatedAt}
		}
	}
	if lu == nil {
		return nil, common.ErrorNotFound
	}
	return lu, nil
}

func (f *fakeRecordsRepo) StorageKeyInUse(ctx context.Context, key string, excludeID int64) (bool, error) {
	return f.inUse[key], nil
}

type fakeOperationsRepo struct {
	operations.Repository
	rows      map[string]*models.OperationLock
	nextID    int64
	deletedBy []models.OperationQuery
	deleteN   int64
	updateErr error
}

func newFakeOperationsRepo() *fakeOperationsRepo {
	return &fakeOperationsRepo{rows: map[string]*models.OperationLock{}}
}

func (f *fakeOperationsRepo) Find(ctx context.Context, q models.OperationQuery) ([]*models.OperationLock, error) {
	var out []*models.OperationLock
	for _, op := range f.rows {
		if q.OperationID == op.OperationID || (q.RecordID != 0 && q.RecordID == op.RecordID) {
			out = append(out, op)
		}
	}
	return out, nil
}

func (f *fakeOperationsRepo) Create(ctx context.Context, op *models.OperationLock) error {
	f.nextID++
	op.ID = f.nextID
	f.rows[op.OperationID] = op
	return nil
}

func (f *fakeOperationsRepo) Update(ctx context.Context, op *models.OperationLock) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rows[op.OperationID]; !ok {
		return common.ErrorNotFound
	}
	f.rows[op.OperationID] = op
	return nil
}

func (f *fakeOperationsRepo) Delete(ctx context.Context, q models.OperationQuery) (int64, error) {
	f.deletedBy = append(f.deletedBy, q)
	return f.deleteN, nil
}

type fakeRepoManager struct {
	records    *fakeRecordsRepo
	operations *fakeOperationsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository          { return m.records }
func (m *fakeRepoManager) Operations(dbx.DBTX) operations.Repository    { return m.operations }

type fakeBlobs struct {
	deleted   []string
	deleteErr error
}

func (f *fakeBlobs) PresignedPutURL(ctx context.Context) (string, string, error) {
	return "records/new", "http://put", nil
}

func (f *fakeBlobs) PresignedGetURL(ctx context.Context, key string) (string, error) {
	return "http://get/" + key, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}
