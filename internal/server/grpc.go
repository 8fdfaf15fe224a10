package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docintake/internal/auth"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/services/documents"
	"github.com/joseph-ayodele/docintake/internal/utils"
)

const reportServiceName = "docintake.v1.ReportService"

// ReportServiceServer is the read-only gRPC surface over stored reports.
type ReportServiceServer interface {
	GetReport(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func getReportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).GetReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + reportServiceName + "/GetReport"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportServiceServer).GetReport(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + reportServiceName + "/GetStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportServiceServer).GetStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ReportServiceDesc describes the service for grpc.Server.RegisterService.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: reportServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetReport", Handler: getReportHandler},
		{MethodName: "GetStats", Handler: getStatsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docintake/v1/report.proto",
}

// ReportService serves documents with their reports over gRPC.
type ReportService struct {
	docs   *documents.Service
	logger *slog.Logger
}

func NewReportService(docs *documents.Service, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{docs: docs, logger: logger}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(common.GRPCCode(err), err.Error())
}

// GetReport takes a document id and returns the document with its report.
func (s *ReportService) GetReport(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := uuid.Parse(strings.TrimSpace(in.GetValue()))
	if err != nil {
		return nil, common.InvalidArgumentError("document id must be a UUID")
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := utils.ToPBDocument(d)
	if err != nil {
		s.logger.Error("grpc.encode.failed", "document_id", id, "err", err)
		return nil, common.InternalError("encode document")
	}
	return out, nil
}

func (s *ReportService) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.docs.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := utils.ToPBStats(st)
	if err != nil {
		s.logger.Error("grpc.encode.failed", "method", "GetStats", "err", err)
		return nil, common.InternalError("encode stats")
	}
	return out, nil
}

// authInterceptor checks the bearer token in the "authorization" metadata.
// Health and reflection stay open.
func authInterceptor(v *auth.Verifier, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.") || strings.HasPrefix(info.FullMethod, "/grpc.reflection.") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		var header string
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
		tok, err := auth.FromHeader(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "no authorization token provided")
		}
		claims, err := v.Verify(tok)
		if err != nil {
			logger.Warn("grpc.auth.rejected", "method", info.FullMethod, "err", err)
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		if !claims.IsActive() {
			return nil, status.Error(codes.PermissionDenied, "user account is disabled")
		}
		ctx = common.WithUser(ctx, claims.Subject, claims.Role)

		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request", "method", info.FullMethod, "code", status.Code(err).String(), "elapsed_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}

// NewGRPCServer registers the report service, health and reflection.
func NewGRPCServer(docs *documents.Service, verifier *auth.Verifier, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(authInterceptor(verifier, logger)))
	gs.RegisterService(&ReportServiceDesc, NewReportService(docs, logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(reportServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return gs, hs
}
