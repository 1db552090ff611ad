package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/recordkeeper/internal/logging"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
	"github.com/dmitrijs2005/recordkeeper/internal/wire"
	"google.golang.org/grpc"
)

// RecordStore is the part of services.RecordService the handler needs.
type RecordStore interface {
	Save(ctx context.Context, r *models.Record) (*models.Record, error)
	Get(ctx context.Context, id int64) (*models.Record, error)
	List(ctx context.Context, folderID int64) ([]*models.Record, error)
	Delete(ctx context.Context, id int64) error
	LastUpdate(ctx context.Context, folderID int64) (*models.LastUpdate, error)
	UploadURL(ctx context.Context) (string, string, error)
	DownloadURL(ctx context.Context, storageKey string) (string, error)
}

// OperationStore is the part of services.OperationService the handler needs.
type OperationStore interface {
	Get(ctx context.Context, q models.OperationQuery) ([]*models.OperationLock, error)
	Create(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error)
	Update(ctx context.Context, op *models.OperationLock) (*models.OperationLock, error)
	Delete(ctx context.Context, q models.OperationQuery) (int64, error)
}

type GRPCServer struct {
	address    string
	records    RecordStore
	operations OperationStore
	logger     logging.Logger
}

var _ wire.RecordKeeperServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, rs RecordStore, ops OperationStore) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		records:    rs,
		operations: ops,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.sessionInterceptor, s.loggingInterceptor))
	wire.RegisterRecordKeeperServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
