package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/operations"
	"github.com/dmitrijs2005/recordkeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// ---- fakes ----

type fakeRecords struct {
	RecordStore
	saved     *models.Record
	saveErr   error
	getResp   *models.Record
	getErr    error
	listResp  []*models.Record
	deleted   int64
	deleteErr error
	last      *models.LastUpdate
	panicOn   bool
}

func (f *fakeRecords) Save(ctx context.Context, r *models.Record) (*models.Record, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = r
	if r.ID == 0 {
		r.ID = 1
	}
	return r, nil
}

func (f *fakeRecords) Get(ctx context.Context, id int64) (*models.Record, error) {
	if f.panicOn {
		panic("boom")
	}
	return f.getResp, f.getErr
}

func (f *fakeRecords) List(ctx context.Context, folderID int64) ([]*models.Record, error) {
	return f.listResp, nil
}

func (f *fakeRecords) Delete(ctx context.Context, id int64) error {
	f.deleted = id
	return f.deleteErr
}

func (f *fakeRecords) LastUpdate(ctx context.Context, folderID int64) (*models.LastUpdate, error) {
	return f.last, nil
}

func (f *fakeRecords) UploadURL(ctx context.Context) (string, string, error) {
	return "records/2025/1/1/k", "http://put", nil
}

func (f *fakeRecords) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	return "http://get/" + storageKey, nil
}

type fakeOperations struct {
	OperationStore
	query     models.OperationQuery
	found     []*models.OperationLock
	created   *models.OperationLock
	updated   *models.OperationLock
	deleteN   int64
	deleteErr error
	session   string
}

func (f *fakeOperations) Get(ctx context.Context, q models.OperationQuery) ([]*models.OperationLock, error) {
	f.query = q
	f.session = SessionFromContext(ctx)
	return f.found, nil
}

func (f *fakeOperations) Create(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	op.ID = 11
	f.created = op
	return op, nil
}

func (f *fakeOperations) Update(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	f.updated = op
	return op, nil
}

func (f *fakeOperations) Delete(ctx context.Context, q models.OperationQuery) (int64, error) {
	f.query = q
	return f.deleteN, f.deleteErr
}

func dial(t *testing.T, rs *fakeRecords, ops *fakeOperations) *wire.RecordKeeperClient {
	t.Helper()

	s := NewGRPCServer("bufnet", logging.Nop{}, rs, ops)
	srv := s.newServer()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return wire.NewRecordKeeperClient(conn)
}

func TestPing(t *testing.T) {
	cl := dial(t, &fakeRecords{}, &fakeOperations{})

	resp, err := cl.Ping(context.Background(), &wire.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestSaveRecord_RoundTripsFields(t *testing.T) {
	rs := &fakeRecords{}
	cl := dial(t, rs, &fakeOperations{})

	event := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	resp, err := cl.SaveRecord(context.Background(), &wire.SaveRecordRequest{Record: wire.Record{
		FolderID:    3,
		Title:       "Blood test",
		Tags:        []string{"lab"},
		JSON:        []byte(`{"title":"x"}`),
		Extra:       []wire.Extra{{Type: "Page 1 content", Value: "text"}},
		Attachments: []wire.Attachment{{ID: "a", StorageKey: "records/a", MimeType: "application/pdf"}},
		EventDate:   &event,
	}})
	require.NoError(t, err)

	require.NotNil(t, rs.saved)
	assert.Equal(t, int64(3), rs.saved.FolderID)
	assert.JSONEq(t, `{"title":"x"}`, string(rs.saved.JSON))
	assert.Equal(t, "records/a", rs.saved.Attachments[0].StorageKey)
	assert.Equal(t, "Page 1 content", rs.saved.Extra[0].Type)

	assert.Equal(t, int64(1), resp.Record.ID)
	assert.Equal(t, []string{"lab"}, resp.Record.Tags)
	require.NotNil(t, resp.Record.EventDate)
	assert.True(t, event.Equal(*resp.Record.EventDate))
}

func TestSaveRecord_NullJSONStaysNil(t *testing.T) {
	rs := &fakeRecords{}
	cl := dial(t, rs, &fakeOperations{})

	_, err := cl.SaveRecord(context.Background(), &wire.SaveRecordRequest{Record: wire.Record{FolderID: 1}})
	require.NoError(t, err)
	assert.Nil(t, rs.saved.JSON)
}

func TestGetRecord_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", common.ErrorNotFound, codes.NotFound},
		{"wrapped not found", errors.Join(errors.New("ctx"), common.ErrorNotFound), codes.NotFound},
		{"internal", errors.New("db is down"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := dial(t, &fakeRecords{getErr: tt.err}, &fakeOperations{})

			_, err := cl.GetRecord(context.Background(), &wire.GetRecordRequest{ID: 5})
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGetRecord_PanicIsInternal(t *testing.T) {
	cl := dial(t, &fakeRecords{panicOn: true}, &fakeOperations{})

	_, err := cl.GetRecord(context.Background(), &wire.GetRecordRequest{ID: 5})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestListRecords(t *testing.T) {
	rs := &fakeRecords{listResp: []*models.Record{{ID: 1}, {ID: 2}}}
	cl := dial(t, rs, &fakeOperations{})

	resp, err := cl.ListRecords(context.Background(), &wire.ListRecordsRequest{FolderID: 1})
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, int64(2), resp.Records[1].ID)
}

func TestDeleteRecord(t *testing.T) {
	rs := &fakeRecords{}
	cl := dial(t, rs, &fakeOperations{})

	_, err := cl.DeleteRecord(context.Background(), &wire.DeleteRecordRequest{ID: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(8), rs.deleted)
}

func TestGetLastUpdate(t *testing.T) {
	rs := &fakeRecords{}
	cl := dial(t, rs, &fakeOperations{})

	resp, err := cl.GetLastUpdate(context.Background(), &wire.GetLastUpdateRequest{FolderID: 1})
	require.NoError(t, err)
	assert.False(t, resp.Found)

	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rs.last = &models.LastUpdate{RecordID: 4, UpdatedAt: at}
	resp, err = cl.GetLastUpdate(context.Background(), &wire.GetLastUpdateRequest{FolderID: 1})
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, int64(4), resp.RecordID)
	assert.True(t, at.Equal(resp.UpdatedAt))
}

func TestURLs(t *testing.T) {
	cl := dial(t, &fakeRecords{}, &fakeOperations{})

	up, err := cl.GetUploadURL(context.Background(), &wire.GetUploadURLRequest{})
	require.NoError(t, err)
	assert.Equal(t, "records/2025/1/1/k", up.StorageKey)
	assert.Equal(t, "http://put", up.URL)

	down, err := cl.GetDownloadURL(context.Background(), &wire.GetDownloadURLRequest{StorageKey: "records/x"})
	require.NoError(t, err)
	assert.Equal(t, "http://get/records/x", down.URL)

	_, err = cl.GetDownloadURL(context.Background(), &wire.GetDownloadURLRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetOperations_PassesQueryAndSession(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ops := &fakeOperations{found: []*models.OperationLock{{RecordID: 7, OperationID: "parse-7", LastStep: &now, LastStepSessionID: "s1"}}}
	cl := dial(t, &fakeRecords{}, ops)

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.SessionHeaderName, "s1")
	resp, err := cl.GetOperations(ctx, &wire.GetOperationsRequest{Query: wire.OperationQuery{RecordIDs: []int64{7, 8}}})
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 8}, ops.query.RecordIDs)
	assert.Equal(t, "s1", ops.session)
	require.Len(t, resp.Operations, 1)
	assert.Equal(t, "parse-7", resp.Operations[0].OperationID)
	assert.True(t, now.Equal(*resp.Operations[0].LastStep))
}

func TestCreateAndUpdateOperation(t *testing.T) {
	ops := &fakeOperations{}
	cl := dial(t, &fakeRecords{}, ops)
	ctx := context.Background()

	resp, err := cl.CreateOperation(ctx, &wire.OperationRequest{Operation: wire.OperationLock{RecordID: 7, OperationID: "parse-7", OperationName: "parse"}})
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.Operation.ID)
	assert.Equal(t, "parse", ops.created.OperationName)

	_, err = cl.UpdateOperation(ctx, &wire.OperationRequest{Operation: wire.OperationLock{OperationID: "parse-7", Finished: true}})
	require.NoError(t, err)
	assert.True(t, ops.updated.Finished)

	_, err = cl.CreateOperation(ctx, &wire.OperationRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDeleteOperations(t *testing.T) {
	ops := &fakeOperations{deleteN: 2}
	cl := dial(t, &fakeRecords{}, ops)

	resp, err := cl.DeleteOperations(context.Background(), &wire.DeleteOperationsRequest{Query: wire.OperationQuery{RecordID: 7}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Deleted)
	assert.Equal(t, int64(7), ops.query.RecordID)

	ops.deleteErr = operations.ErrEmptyQuery
	_, err = cl.DeleteOperations(context.Background(), &wire.DeleteOperationsRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
