package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	sessionID   string
	userAgent   string
	conn        *grpc.ClientConn
	client      *wire.RecordKeeperClient
	dialOptions []grpc.DialOption
}

var _ Client = (*GRPCClient)(nil)

func withSession(ctx context.Context, sessionID, userAgent string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.SessionHeaderName, sessionID)
	md.Set(common.UserAgentHeaderName, userAgent)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) sessionInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx = withSession(ctx, s.sessionID, s.userAgent)
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewRecordKeeperClient connects lazily to endpointURL. Extra dial options
// are appended after the defaults.
func NewRecordKeeperClient(endpointURL, sessionID, userAgent string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, sessionID: sessionID, userAgent: userAgent, dialOptions: opts}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.sessionInterceptor),
	}, s.dialOptions...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = wire.NewRecordKeeperClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrOperationInProgress, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrConflict, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := s.client.Ping(ctx, &wire.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) GetOperations(ctx context.Context, q OperationQuery) ([]*models.OperationLock, error) {
	resp, err := s.client.GetOperations(ctx, &wire.GetOperationsRequest{Query: queryToWire(q)})
	if err != nil {
		return nil, s.mapError(err)
	}

	ops := make([]*models.OperationLock, 0, len(resp.Operations))
	for _, op := range resp.Operations {
		ops = append(ops, operationFromWire(op))
	}
	return ops, nil
}

func (s *GRPCClient) CreateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	resp, err := s.client.CreateOperation(ctx, &wire.OperationRequest{Operation: operationToWire(op)})
	if err != nil {
		return nil, s.mapError(err)
	}
	return operationFromWire(resp.Operation), nil
}

func (s *GRPCClient) UpdateOperation(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error) {
	resp, err := s.client.UpdateOperation(ctx, &wire.OperationRequest{Operation: operationToWire(op)})
	if err != nil {
		return nil, s.mapError(err)
	}
	return operationFromWire(resp.Operation), nil
}

func (s *GRPCClient) DeleteOperations(ctx context.Context, q OperationQuery) (int64, error) {
	resp, err := s.client.DeleteOperations(ctx, &wire.DeleteOperationsRequest{Query: queryToWire(q)})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Deleted, nil
}

func (s *GRPCClient) SaveRecord(ctx context.Context, r *models.Record) (*models.Record, error) {
	w, err := recordToWire(r)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.SaveRecord(ctx, &wire.SaveRecordRequest{Record: w})
	if err != nil {
		return nil, s.mapError(err)
	}
	return recordFromWire(resp.Record)
}

func (s *GRPCClient) GetRecord(ctx context.Context, id int64) (*models.Record, error) {
	resp, err := s.client.GetRecord(ctx, &wire.GetRecordRequest{ID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return recordFromWire(resp.Record)
}

func (s *GRPCClient) ListRecords(ctx context.Context, folderID int64) ([]*models.Record, error) {
	resp, err := s.client.ListRecords(ctx, &wire.ListRecordsRequest{FolderID: folderID})
	if err != nil {
		return nil, s.mapError(err)
	}

	records := make([]*models.Record, 0, len(resp.Records))
	for _, w := range resp.Records {
		r, err := recordFromWire(w)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *GRPCClient) DeleteRecord(ctx context.Context, id int64) error {
	if _, err := s.client.DeleteRecord(ctx, &wire.DeleteRecordRequest{ID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetLastUpdate(ctx context.Context, folderID int64) (*time.Time, error) {
	resp, err := s.client.GetLastUpdate(ctx, &wire.GetLastUpdateRequest{FolderID: folderID})
	if err != nil {
		return nil, s.mapError(err)
	}
	if !resp.Found {
		return nil, nil
	}
	t := resp.UpdatedAt
	return &t, nil
}

func (s *GRPCClient) GetUploadURL(ctx context.Context) (string, string, error) {
	resp, err := s.client.GetUploadURL(ctx, &wire.GetUploadURLRequest{})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.StorageKey, resp.URL, nil
}

func (s *GRPCClient) GetDownloadURL(ctx context.Context, storageKey string) (string, error) {
	resp, err := s.client.GetDownloadURL(ctx, &wire.GetDownloadURLRequest{StorageKey: storageKey})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.URL, nil
}
