package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docintake/internal/auth"
)

func dialBuf(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(f.docs, f.verify, quiet())
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func withToken(ctx context.Context, tok string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
}

func TestGRPCReportService(t *testing.T) {
	f := newFixture(t, stubPipeline{})
	u := mustUpload(t, f)
	conn := dialBuf(t, f)
	ctx := context.Background()

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: reportServiceName})
	if err != nil || hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health = %v, %v", hc, err)
	}

	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+reportServiceName+"/GetReport", wrapperspb.String(u.Document.ID), out)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no token code = %v", status.Code(err))
	}

	authed := withToken(ctx, f.token(t, auth.RoleUser, true))
	if err := conn.Invoke(authed, "/"+reportServiceName+"/GetReport", wrapperspb.String(u.Document.ID), out); err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got := out.GetFields()["reference_number"].GetStringValue(); got != u.Document.ReferenceNumber {
		t.Errorf("reference_number = %q", got)
	}
	rep := out.GetFields()["report"].GetStructValue()
	if rep.GetFields()["summary"].GetStringValue() != "A short memo." {
		t.Errorf("report = %v", rep)
	}

	err = conn.Invoke(authed, "/"+reportServiceName+"/GetReport", wrapperspb.String("nope"), out)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad id code = %v", status.Code(err))
	}
	err = conn.Invoke(authed, "/"+reportServiceName+"/GetReport", wrapperspb.String("6f1c1c9e-3b0b-4c8e-9d59-0d6f8f1d2a11"), out)
	if status.Code(err) != codes.NotFound {
		t.Errorf("missing code = %v", status.Code(err))
	}

	stats := new(structpb.Struct)
	if err := conn.Invoke(authed, "/"+reportServiceName+"/GetStats", &emptypb.Empty{}, stats); err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if n := stats.GetFields()["total_documents"].GetNumberValue(); n != 1 {
		t.Errorf("total_documents = %v", n)
	}

	disabled := withToken(ctx, f.token(t, auth.RoleUser, false))
	err = conn.Invoke(disabled, "/"+reportServiceName+"/GetStats", &emptypb.Empty{}, stats)
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("disabled code = %v", status.Code(err))
	}
}
