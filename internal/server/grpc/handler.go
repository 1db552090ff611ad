package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/operations"
	"github.com/dmitrijs2005/recordkeeper/internal/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrOperationInProgress):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, operations.ErrEmptyQuery):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, req *wire.PingRequest) (*wire.PingResponse, error) {
	return &wire.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) GetOperations(ctx context.Context, req *wire.GetOperationsRequest) (*wire.GetOperationsResponse, error) {
	ops, err := s.operations.Get(ctx, queryFromWire(req.Query))
	if err != nil {
		return nil, s.toStatus(ctx, "get operations", err)
	}

	resp := &wire.GetOperationsResponse{Operations: make([]wire.OperationLock, 0, len(ops))}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, operationToWire(op))
	}
	return resp, nil
}

func (s *GRPCServer) CreateOperation(ctx context.Context, req *wire.OperationRequest) (*wire.OperationResponse, error) {
	if req.Operation.OperationID == "" {
		return nil, status.Error(codes.InvalidArgument, "operation id is required")
	}

	op, err := s.operations.Create(ctx, operationFromWire(req.Operation))
	if err != nil {
		return nil, s.toStatus(ctx, "create operation", err)
	}
	return &wire.OperationResponse{Operation: operationToWire(op)}, nil
}

func (s *GRPCServer) UpdateOperation(ctx context.Context, req *wire.OperationRequest) (*wire.OperationResponse, error) {
	if req.Operation.OperationID == "" && req.Operation.ID == 0 {
		return nil, status.Error(codes.InvalidArgument, "operation id is required")
	}

	op, err := s.operations.Update(ctx, operationFromWire(req.Operation))
	if err != nil {
		return nil, s.toStatus(ctx, "update operation", err)
	}
	return &wire.OperationResponse{Operation: operationToWire(op)}, nil
}

func (s *GRPCServer) DeleteOperations(ctx context.Context, req *wire.DeleteOperationsRequest) (*wire.DeleteOperationsResponse, error) {
	n, err := s.operations.Delete(ctx, queryFromWire(req.Query))
	if err != nil {
		return nil, s.toStatus(ctx, "delete operations", err)
	}
	return &wire.DeleteOperationsResponse{Deleted: n}, nil
}

func (s *GRPCServer) SaveRecord(ctx context.Context, req *wire.SaveRecordRequest) (*wire.RecordResponse, error) {
	r, err := s.records.Save(ctx, recordFromWire(req.Record))
	if err != nil {
		return nil, s.toStatus(ctx, "save record", err)
	}

	s.logger.Debug(ctx, "record saved", "record_id", r.ID)
	return &wire.RecordResponse{Record: recordToWire(r)}, nil
}

func (s *GRPCServer) GetRecord(ctx context.Context, req *wire.GetRecordRequest) (*wire.RecordResponse, error) {
	r, err := s.records.Get(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, "get record", err)
	}
	return &wire.RecordResponse{Record: recordToWire(r)}, nil
}

func (s *GRPCServer) ListRecords(ctx context.Context, req *wire.ListRecordsRequest) (*wire.ListRecordsResponse, error) {
	rs, err := s.records.List(ctx, req.FolderID)
	if err != nil {
		return nil, s.toStatus(ctx, "list records", err)
	}

	resp := &wire.ListRecordsResponse{Records: make([]wire.Record, 0, len(rs))}
	for _, r := range rs {
		resp.Records = append(resp.Records, recordToWire(r))
	}
	return resp, nil
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, req *wire.DeleteRecordRequest) (*wire.DeleteRecordResponse, error) {
	if err := s.records.Delete(ctx, req.ID); err != nil {
		return nil, s.toStatus(ctx, "delete record", err)
	}

	s.logger.Info(ctx, "record deleted", "record_id", req.ID)
	return &wire.DeleteRecordResponse{}, nil
}

func (s *GRPCServer) GetLastUpdate(ctx context.Context, req *wire.GetLastUpdateRequest) (*wire.GetLastUpdateResponse, error) {
	lu, err := s.records.LastUpdate(ctx, req.FolderID)
	if err != nil {
		return nil, s.toStatus(ctx, "last update", err)
	}
	if lu == nil {
		return &wire.GetLastUpdateResponse{}, nil
	}
	return &wire.GetLastUpdateResponse{Found: true, RecordID: lu.RecordID, UpdatedAt: lu.UpdatedAt}, nil
}

func (s *GRPCServer) GetUploadURL(ctx context.Context, req *wire.GetUploadURLRequest) (*wire.GetUploadURLResponse, error) {
	key, url, err := s.records.UploadURL(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, "upload url", err)
	}
	return &wire.GetUploadURLResponse{StorageKey: key, URL: url}, nil
}

func (s *GRPCServer) GetDownloadURL(ctx context.Context, req *wire.GetDownloadURLRequest) (*wire.GetDownloadURLResponse, error) {
	if req.StorageKey == "" {
		return nil, status.Error(codes.InvalidArgument, "storage key is required")
	}

	url, err := s.records.DownloadURL(ctx, req.StorageKey)
	if err != nil {
		return nil, s.toStatus(ctx, "download url", err)
	}
	return &wire.GetDownloadURLResponse{URL: url}, nil
}
