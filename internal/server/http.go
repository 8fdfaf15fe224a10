package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/auth"
	"github.com/joseph-ayodele/docintake/internal/export"
	"github.com/joseph-ayodele/docintake/internal/services/documents"
	"github.com/joseph-ayodele/docintake/internal/services/utilities"
)

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// HTTPServer serves the JSON API.
type HTTPServer struct {
	docs           *documents.Service
	utilities      *utilities.Service
	export         *export.Service
	verifier       *auth.Verifier
	health         HealthFunc
	maxUploadBytes int64
	logger         *slog.Logger
}

// HTTPDeps groups what the API needs. Health may be nil.
type HTTPDeps struct {
	Documents      *documents.Service
	Utilities      *utilities.Service
	Export         *export.Service
	Verifier       *auth.Verifier
	Health         HealthFunc
	MaxUploadBytes int64
}

func NewHTTPServer(deps HTTPDeps, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = constants.MaxUploadBytes
	}
	return &HTTPServer{
		docs:           deps.Documents,
		utilities:      deps.Utilities,
		export:         deps.Export,
		verifier:       deps.Verifier,
		health:         deps.Health,
		maxUploadBytes: deps.MaxUploadBytes,
		logger:         logger,
	}
}

// Routes builds the chi router.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocuments)
			r.Get("/export.xlsx", s.exportXLSX)
			r.With(requireAdmin).Post("/", s.uploadDocument)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getDocument)
				r.Get("/download", s.downloadDocument)
				r.Get("/report.pdf", s.reportPDF)
				r.With(requireAdmin).Delete("/", s.deleteDocument)
			})
		})

		r.Get("/dashboard/stats", s.dashboardStats)

		r.Route("/utilities", func(r chi.Router) {
			r.Get("/", s.listUtilities)
			r.Get("/{id}", s.getUtility)
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", s.createUtility)
				r.Put("/{id}", s.updateUtility)
				r.Delete("/{id}", s.deleteUtility)
			})
		})
	})
	return r
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := common.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Error("health check failed", "err", err)
			writeFail(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("http shutting down")
	return srv.Shutdown(sctx)
}
