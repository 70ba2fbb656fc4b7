package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

const maxBodyBytes = 1 << 20 // request bodies other than import uploads

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// writeJSON serializes v with the given status. Encoding failures are logged;
// the status line has already gone out by then.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Response encoding failed", "error", err, "url", r.URL.Path)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps a service error onto an HTTP status via its kind.
// Validation failures become 422, missing entities 404, structural conflicts
// 409. Transfer coordination failures surface the wrapped kind when it has
// one, otherwise 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *core.ValidationError
		nerr *core.NotFoundError
		cerr *core.ConflictError
		terr *core.TransferError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &nerr):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: nerr.Error()})
	case errors.As(err, &cerr):
		writeJSON(w, r, http.StatusConflict, errorResponse{Error: cerr.Message})
	case errors.As(err, &terr):
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: terr.Error()})
	default:
		slog.ErrorContext(r.Context(), "Unhandled error", "error", err, "url", r.URL.Path)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// parseFilter builds a TransactionFilter from query parameters. Repeated
// accountId/categoryId parameters accumulate; dates are YYYY-MM-DD; amounts
// are decimal strings.
func parseFilter(r *http.Request) (core.TransactionFilter, error) {
	q := r.URL.Query()
	var f core.TransactionFilter

	f.AccountIDs = append(f.AccountIDs, nonEmpty(q["accountId"])...)
	f.CategoryIDs = append(f.CategoryIDs, nonEmpty(q["categoryId"])...)
	f.Description = strings.TrimSpace(q.Get("q"))

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, core.NewValidationError("from", "invalid date, want YYYY-MM-DD")
		}
		f.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, core.NewValidationError("to", "invalid date, want YYYY-MM-DD")
		}
		f.To = d
	}
	if v := strings.TrimSpace(q.Get("minAmount")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, core.NewValidationError("minAmount", "invalid amount")
		}
		f.MinAmount = &d
	}
	if v := strings.TrimSpace(q.Get("maxAmount")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, core.NewValidationError("maxAmount", "invalid amount")
		}
		f.MaxAmount = &d
	}

	return f, nil
}

// parsePage builds a PageRequest from query parameters; Normalize fills the
// defaults downstream.
func parsePage(r *http.Request) core.PageRequest {
	q := r.URL.Query()
	var p core.PageRequest
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		p.PageSize = v
	}
	p.Sort = core.SortField(q.Get("sort"))
	p.Direction = core.SortDirection(q.Get("dir"))
	return p
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// wantsCSV reports whether the client asked for CSV output.
func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}
