// Package http exposes the ledger over a JSON API. Handlers stay thin:
// they parse the request, call a service, and translate the result (or the
// typed error) onto the wire.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bookkeeper/internal/services"
)

// Server wires the service layer onto an http.Server with rate limiting
// and security headers applied to every route.
type Server struct {
	http.Server

	ledger     *services.LedgerService
	categories *services.CategoryService
	transfers  *services.TransferService
	imports    *services.ImportService
	reports    *services.ReportService

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger *services.LedgerService, categories *services.CategoryService, transfers *services.TransferService, imports *services.ImportService, reports *services.ReportService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:      ledger,
		categories:  categories,
		transfers:   transfers,
		imports:     imports,
		reports:     reports,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /accounts", s.protect(s.handleCreateAccount))
	mux.HandleFunc("GET /accounts", s.protect(s.handleListAccounts))
	mux.HandleFunc("GET /accounts/{id}/balance", s.protect(s.handleAccountBalance))

	mux.HandleFunc("GET /categories", s.protect(s.handleCategoryTree))
	mux.HandleFunc("POST /categories", s.protect(s.handleCreateCategory))
	mux.HandleFunc("POST /categories/defaults", s.protect(s.handleSeedCategories))
	mux.HandleFunc("PUT /categories/{id}", s.protect(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", s.protect(s.handleDeleteCategory))

	mux.HandleFunc("GET /transactions", s.protect(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.protect(s.handleCreateTransaction))
	mux.HandleFunc("PATCH /transactions/{id}", s.protect(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.protect(s.handleDeleteTransaction))
	mux.HandleFunc("POST /transactions/bulk-delete", s.protect(s.handleBulkDelete))
	mux.HandleFunc("POST /transactions/bulk-category", s.protect(s.handleBulkCategory))

	mux.HandleFunc("POST /transfers", s.protect(s.handleCreateTransfer))
	mux.HandleFunc("GET /transfers/{pairId}", s.protect(s.handleGetTransfer))
	mux.HandleFunc("PUT /transfers/{pairId}", s.protect(s.handleUpdateTransfer))
	mux.HandleFunc("DELETE /transfers/{pairId}", s.protect(s.handleDeleteTransfer))

	mux.HandleFunc("POST /import", s.protect(s.handleImportParse))
	mux.HandleFunc("GET /import/{batchId}", s.protect(s.handleImportBatch))
	mux.HandleFunc("POST /import/{batchId}/commit", s.protect(s.handleImportCommit))
	mux.HandleFunc("DELETE /import/{batchId}", s.protect(s.handleImportDiscard))

	mux.HandleFunc("GET /reports/totals", s.protect(s.handleTotals))
	mux.HandleFunc("GET /reports/categories", s.protect(s.handleCategorySummaries))
	mux.HandleFunc("GET /reports/monthly", s.protect(s.handleMonthlyTrend))

	return s
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	ownerKey     contextKey = "owner"
)

// ownerFrom returns the authenticated owner stored by protect.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// protect adds security headers, rate limiting, owner extraction and request
// logging. Identity comes from the X-Owner-ID header, set by the identity
// proxy in front of this service; requests without it are rejected.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		owner := r.Header.Get("X-Owner-ID")
		if owner == "" {
			slog.WarnContext(ctx, "Missing owner header", "request_id", requestID, "client_ip", clientIP, "url", r.URL.Path)
			http.Error(w, "missing X-Owner-ID header", http.StatusUnauthorized)
			return
		}
		ctx = context.WithValue(ctx, ownerKey, owner)
		r = r.WithContext(ctx)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "request_id", requestID, "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
