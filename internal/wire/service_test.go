package wire

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeServer struct {
	RecordKeeperServer
	lastQuery OperationQuery
}

func (f *fakeServer) Ping(ctx context.Context, _ *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (f *fakeServer) GetOperations(ctx context.Context, in *GetOperationsRequest) (*GetOperationsResponse, error) {
	f.lastQuery = in.Query
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &GetOperationsResponse{Operations: []OperationLock{{
		RecordID: 7, OperationID: "parse-7", OperationName: "parse", Progress: 3, ProgressOf: 10, LastStep: &now,
	}}}, nil
}

func (f *fakeServer) GetRecord(ctx context.Context, in *GetRecordRequest) (*RecordResponse, error) {
	return nil, status.Error(codes.NotFound, "not found")
}

func dialBuf(t *testing.T, srv RecordKeeperServer, interceptors ...grpc.UnaryServerInterceptor) *RecordKeeperClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterRecordKeeperServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewRecordKeeperClient(conn)
}

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	b, err := c.Marshal(&PingResponse{Status: "OK"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK"}`, string(b))

	var out PingResponse
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, "OK", out.Status)
}

func TestRoundTrip_Ping(t *testing.T) {
	cl := dialBuf(t, &fakeServer{})
	resp, err := cl.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestRoundTrip_GetOperations(t *testing.T) {
	srv := &fakeServer{}
	cl := dialBuf(t, srv)

	resp, err := cl.GetOperations(context.Background(), &GetOperationsRequest{Query: OperationQuery{RecordIDs: []int64{7, 8}}})
	require.NoError(t, err)
	require.Len(t, resp.Operations, 1)
	assert.Equal(t, "parse-7", resp.Operations[0].OperationID)
	assert.Equal(t, 3, resp.Operations[0].Progress)
	require.NotNil(t, resp.Operations[0].LastStep)
	assert.True(t, resp.Operations[0].LastStep.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, []int64{7, 8}, srv.lastQuery.RecordIDs)
}

func TestRoundTrip_StatusErrorPropagates(t *testing.T) {
	cl := dialBuf(t, &fakeServer{})
	_, err := cl.GetRecord(context.Background(), &GetRecordRequest{ID: 1})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRoundTrip_InterceptorSeesFullMethod(t *testing.T) {
	var seen string
	ic := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}
	cl := dialBuf(t, &fakeServer{}, ic)

	_, err := cl.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "/recordkeeper.v1.RecordKeeper/Ping", seen)
}
