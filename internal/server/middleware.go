package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/auth"
	"github.com/joseph-ayodele/docintake/internal/common"
)

type claimsKey struct{}

// claimsFrom returns the verified caller, or nil on public routes.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// requestID reuses an incoming X-Request-ID or assigns a new uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http.request",
			"req_id", common.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// requireAuth rejects requests without a valid bearer token (401) and
// disabled accounts (403).
func (s *HTTPServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeFail(w, http.StatusUnauthorized, "No authorization token provided")
			return
		}
		claims, err := s.verifier.Verify(tok)
		if err != nil {
			s.logger.Warn("auth.token.rejected", "req_id", common.RequestIDFromContext(r.Context()), "err", err)
			writeFail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !claims.IsActive() {
			writeFail(w, http.StatusForbidden, "User account is disabled")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		ctx = common.WithUser(ctx, claims.Subject, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := claimsFrom(r.Context()); c == nil || !c.IsAdmin() {
			writeFail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
