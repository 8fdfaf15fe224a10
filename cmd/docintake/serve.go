package main

import (
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docintake/internal/auth"
	"github.com/joseph-ayodele/docintake/internal/export"
	repo "github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/server"
	"github.com/joseph-ayodele/docintake/internal/services/utilities"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC report service",
	Example: `  # Local run with sqlite and file storage
  GEMINI_API_KEY=... AUTH_JWT_SECRET=... docintake serve

  # Postgres and GCS
  DB_DRIVER=postgres DB_URL=postgres://... STORAGE_BACKEND=gcs STORAGE_GCS_BUCKET=docs docintake serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	verifier, err := auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	docRepo := repo.NewDocumentRepository(a.db, logger)
	api := server.NewHTTPServer(server.HTTPDeps{
		Documents:      a.docs,
		Utilities:      utilities.NewService(repo.NewUtilityRepository(a.db, logger), logger),
		Export:         export.NewService(docRepo, logger),
		Verifier:       verifier,
		Health:         healthFunc(a.db, logger),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, logger)
	httpSrv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, httpSrv, cfg.Server.ShutdownTimeout, logger)
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		grpcSrv, hs := server.NewGRPCServer(a.docs, verifier, logger)
		g.Go(func() error {
			logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			logger.Info("grpc shutting down")
			grpcSrv.GracefulStop()
			return nil
		})
	}

	logger.Info("docintake started",
		"version", version,
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
		"storage", cfg.Storage.Backend,
		"llm_provider", cfg.LLM.Provider,
		"model", a.generator.Model(),
	)
	err = g.Wait()
	logger.Info("docintake stopped")
	return err
}
