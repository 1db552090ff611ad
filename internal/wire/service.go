package wire

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "recordkeeper.v1.RecordKeeper"

// FullMethod returns the gRPC method path for name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// RecordKeeperServer is implemented by the server's gRPC handler.
type RecordKeeperServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	GetOperations(context.Context, *GetOperationsRequest) (*GetOperationsResponse, error)
	CreateOperation(context.Context, *OperationRequest) (*OperationResponse, error)
	UpdateOperation(context.Context, *OperationRequest) (*OperationResponse, error)
	DeleteOperations(context.Context, *DeleteOperationsRequest) (*DeleteOperationsResponse, error)
	SaveRecord(context.Context, *SaveRecordRequest) (*RecordResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*RecordResponse, error)
	ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error)
	DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error)
	GetLastUpdate(context.Context, *GetLastUpdateRequest) (*GetLastUpdateResponse, error)
	GetUploadURL(context.Context, *GetUploadURLRequest) (*GetUploadURLResponse, error)
	GetDownloadURL(context.Context, *GetDownloadURLRequest) (*GetDownloadURLResponse, error)
}

func unary[Req, Resp any](name string, call func(RecordKeeperServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecordKeeperServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecordKeeperServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", RecordKeeperServer.Ping),
		unary("GetOperations", RecordKeeperServer.GetOperations),
		unary("CreateOperation", RecordKeeperServer.CreateOperation),
		unary("UpdateOperation", RecordKeeperServer.UpdateOperation),
		unary("DeleteOperations", RecordKeeperServer.DeleteOperations),
		unary("SaveRecord", RecordKeeperServer.SaveRecord),
		unary("GetRecord", RecordKeeperServer.GetRecord),
		unary("ListRecords", RecordKeeperServer.ListRecords),
		unary("DeleteRecord", RecordKeeperServer.DeleteRecord),
		unary("GetLastUpdate", RecordKeeperServer.GetLastUpdate),
		unary("GetUploadURL", RecordKeeperServer.GetUploadURL),
		unary("GetDownloadURL", RecordKeeperServer.GetDownloadURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recordkeeper.json",
}

// RegisterRecordKeeperServer attaches srv to a gRPC server.
func RegisterRecordKeeperServer(s grpc.ServiceRegistrar, srv RecordKeeperServer) {
	s.RegisterService(&serviceDesc, srv)
}

// RecordKeeperClient is the client stub. Every call is sent with the JSON
// content-subtype.
type RecordKeeperClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordKeeperClient(cc grpc.ClientConnInterface) *RecordKeeperClient {
	return &RecordKeeperClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordKeeperClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, "Ping", in, opts)
}

func (c *RecordKeeperClient) GetOperations(ctx context.Context, in *GetOperationsRequest, opts ...grpc.CallOption) (*GetOperationsResponse, error) {
	return invoke[GetOperationsResponse](ctx, c.cc, "GetOperations", in, opts)
}

func (c *RecordKeeperClient) CreateOperation(ctx context.Context, in *OperationRequest, opts ...grpc.CallOption) (*OperationResponse, error) {
	return invoke[OperationResponse](ctx, c.cc, "CreateOperation", in, opts)
}

func (c *RecordKeeperClient) UpdateOperation(ctx context.Context, in *OperationRequest, opts ...grpc.CallOption) (*OperationResponse, error) {
	return invoke[OperationResponse](ctx, c.cc, "UpdateOperation", in, opts)
}

func (c *RecordKeeperClient) DeleteOperations(ctx context.Context, in *DeleteOperationsRequest, opts ...grpc.CallOption) (*DeleteOperationsResponse, error) {
	return invoke[DeleteOperationsResponse](ctx, c.cc, "DeleteOperations", in, opts)
}

func (c *RecordKeeperClient) SaveRecord(ctx context.Context, in *SaveRecordRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, "SaveRecord", in, opts)
}

func (c *RecordKeeperClient) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, "GetRecord", in, opts)
}

func (c *RecordKeeperClient) ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error) {
	return invoke[ListRecordsResponse](ctx, c.cc, "ListRecords", in, opts)
}

func (c *RecordKeeperClient) DeleteRecord(ctx context.Context, in *DeleteRecordRequest, opts ...grpc.CallOption) (*DeleteRecordResponse, error) {
	return invoke[DeleteRecordResponse](ctx, c.cc, "DeleteRecord", in, opts)
}

func (c *RecordKeeperClient) GetLastUpdate(ctx context.Context, in *GetLastUpdateRequest, opts ...grpc.CallOption) (*GetLastUpdateResponse, error) {
	return invoke[GetLastUpdateResponse](ctx, c.cc, "GetLastUpdate", in, opts)
}

func (c *RecordKeeperClient) GetUploadURL(ctx context.Context, in *GetUploadURLRequest, opts ...grpc.CallOption) (*GetUploadURLResponse, error) {
	return invoke[GetUploadURLResponse](ctx, c.cc, "GetUploadURL", in, opts)
}

func (c *RecordKeeperClient) GetDownloadURL(ctx context.Context, in *GetDownloadURLRequest, opts ...grpc.CallOption) (*GetDownloadURLResponse, error) {
	return invoke[GetDownloadURLResponse](ctx, c.cc, "GetDownloadURL", in, opts)
}
