package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookkeeper/internal/importer"
	"bookkeeper/internal/services"
	"bookkeeper/internal/staging"
	"bookkeeper/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	categories := services.NewCategoryService(repo, nil)
	ledger := services.NewLedgerService(repo, categories, nil)
	transfers := services.NewTransferService(repo, nil)
	stage := staging.NewStore(16, time.Minute)
	imports := services.NewImportService(repo, ledger, transfers, stage, importer.Limits{}, nil)
	reports := services.NewReportService(repo)

	srv := NewServer(":0", ledger, categories, transfers, imports, reports)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

// do runs a request through the full mux with the owner header set.
func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("X-Owner-ID", "owner-1")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestMissingOwnerHeaderIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHealthEndpointsNeedNoOwner(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Checking"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var account struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}
	decode(t, rec, &account)
	if account.ID == "" || account.DisplayName != "Checking" {
		t.Fatalf("account = %+v", account)
	}

	rec = do(t, srv, http.MethodGet, "/accounts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var accounts []json.RawMessage
	decode(t, rec, &accounts)
	if len(accounts) != 1 {
		t.Errorf("listed %d accounts, want 1", len(accounts))
	}

	rec = do(t, srv, http.MethodGet, "/accounts/"+account.ID+"/balance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d", rec.Code)
	}
	var balance struct {
		Balance string `json:"balance"`
	}
	decode(t, rec, &balance)
	if balance.Balance != "0.00" {
		t.Errorf("balance = %q, want 0.00", balance.Balance)
	}
}

func TestErrorKindStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	// Validation failure: blank display name.
	rec := do(t, srv, http.MethodPost, "/accounts", `{"displayName":"  "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("validation status = %d, want 422", rec.Code)
	}
	var errResp struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	decode(t, rec, &errResp)
	if errResp.Field != "displayName" {
		t.Errorf("error field = %q, want displayName", errResp.Field)
	}

	// Missing entity.
	rec = do(t, srv, http.MethodGet, "/accounts/nope/balance", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("not-found status = %d, want 404", rec.Code)
	}

	// Structural conflict: self-parent category.
	rec = do(t, srv, http.MethodPost, "/categories", `{"name":"A"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d", rec.Code)
	}
	var cat struct {
		ID string `json:"id"`
	}
	decode(t, rec, &cat)
	rec = do(t, srv, http.MethodPut, "/categories/"+cat.ID, fmt.Sprintf(`{"name":"A","parentId":%q}`, cat.ID))
	if rec.Code != http.StatusConflict {
		t.Errorf("conflict status = %d, want 409", rec.Code)
	}

	// Malformed JSON.
	rec = do(t, srv, http.MethodPost, "/accounts", `{"displayName":`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad JSON status = %d, want 422", rec.Code)
	}
}

func TestTransactionAndTransferFlow(t *testing.T) {
	srv := newTestServer(t)

	var checking, savings struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Checking"}`), &checking)
	decode(t, do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Savings"}`), &savings)

	var cat struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/categories", `{"name":"Income"}`), &cat)

	body := fmt.Sprintf(`{"accountId":%q,"date":"2025-05-01","amount":"2000","description":"payroll","categoryId":%q}`,
		checking.ID, cat.ID)
	rec := do(t, srv, http.MethodPost, "/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d: %s", rec.Code, rec.Body.String())
	}

	// Transfer needs a transfer-flagged category; account creation made
	// "Transfer to Savings" under the Transfers root.
	rec = do(t, srv, http.MethodGet, "/categories", "")
	var tree []struct {
		Name     string `json:"name"`
		Children []struct {
			ID                 string `json:"id"`
			Name               string `json:"name"`
			IsTransferCategory bool   `json:"isTransferCategory"`
		} `json:"children"`
	}
	decode(t, rec, &tree)
	var transferCatID string
	for _, root := range tree {
		if root.Name != "Transfers" {
			continue
		}
		for _, c := range root.Children {
			if c.Name == "Transfer to Savings" && c.IsTransferCategory {
				transferCatID = c.ID
			}
		}
	}
	if transferCatID == "" {
		t.Fatal("no transfer category in tree")
	}

	body = fmt.Sprintf(`{"sourceAccountId":%q,"destAccountId":%q,"date":"2025-05-02","amount":"500","description":"to savings","categoryId":%q}`,
		checking.ID, savings.ID, transferCatID)
	rec = do(t, srv, http.MethodPost, "/transfers", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transfer status = %d: %s", rec.Code, rec.Body.String())
	}
	var pair struct {
		PairID string `json:"pairId"`
	}
	decode(t, rec, &pair)

	var balance struct {
		Balance string `json:"balance"`
	}
	decode(t, do(t, srv, http.MethodGet, "/accounts/"+checking.ID+"/balance", ""), &balance)
	if balance.Balance != "1500.00" {
		t.Errorf("checking balance = %q, want 1500.00", balance.Balance)
	}

	// Listing returns running balances and respects filters.
	rec = do(t, srv, http.MethodGet, "/transactions?accountId="+checking.ID, "")
	var page struct {
		Items []struct {
			Description    string `json:"description"`
			RunningBalance string `json:"runningBalance"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decode(t, rec, &page)
	if page.Total != 2 {
		t.Fatalf("Total = %d, want 2", page.Total)
	}
	if page.Items[1].RunningBalance != "1500.00" {
		t.Errorf("final running balance = %q, want 1500.00", page.Items[1].RunningBalance)
	}

	rec = do(t, srv, http.MethodDelete, "/transfers/"+pair.PairID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete transfer status = %d", rec.Code)
	}
	decode(t, do(t, srv, http.MethodGet, "/accounts/"+savings.ID+"/balance", ""), &balance)
	if balance.Balance != "0.00" {
		t.Errorf("savings balance after pair delete = %q, want 0.00", balance.Balance)
	}
}

func TestTransactionsCSVExport(t *testing.T) {
	srv := newTestServer(t)

	var account struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Checking"}`), &account)
	var cat struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/categories", `{"name":"Income"}`), &cat)

	body := fmt.Sprintf(`{"accountId":%q,"date":"2025-05-01","amount":"2000","description":"payroll","categoryId":%q}`,
		account.ID, cat.ID)
	if rec := do(t, srv, http.MethodPost, "/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/transactions?format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[1], "payroll") || !strings.Contains(lines[1], "2000.00") {
		t.Errorf("csv row = %q", lines[1])
	}
}

func TestImportEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var account struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Checking"}`), &account)
	var cat struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/categories", `{"name":"Income"}`), &cat)

	csvBody := "01/15/2025,ACME PAYROLL,,2000.00,5200.00\n"
	rec := do(t, srv, http.MethodPost, "/import", csvBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("parse status = %d: %s", rec.Code, rec.Body.String())
	}
	var batch struct {
		ID         string            `json:"id"`
		Candidates []json.RawMessage `json:"candidates"`
	}
	decode(t, rec, &batch)
	if len(batch.Candidates) != 1 {
		t.Fatalf("staged %d candidates, want 1", len(batch.Candidates))
	}

	rec = do(t, srv, http.MethodGet, "/import/"+batch.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get batch status = %d", rec.Code)
	}

	commit := fmt.Sprintf(`{"accountId":%q,"assignments":[{"index":0,"categoryId":%q}]}`, account.ID, cat.ID)
	rec = do(t, srv, http.MethodPost, "/import/"+batch.ID+"/commit", commit)
	if rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Imported int `json:"imported"`
	}
	decode(t, rec, &result)
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}

	// Fully committed: the batch is gone.
	rec = do(t, srv, http.MethodGet, "/import/"+batch.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get committed batch status = %d, want 404", rec.Code)
	}
}

func TestImportCommitPartialFailureIsMultiStatus(t *testing.T) {
	srv := newTestServer(t)

	var account struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Checking"}`), &account)

	csvBody := "01/15/2025,ACME PAYROLL,,2000.00,5200.00\n"
	var batch struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/import", csvBody), &batch)

	commit := fmt.Sprintf(`{"accountId":%q,"assignments":[{"index":0,"categoryId":"no-such"}]}`, account.ID)
	rec := do(t, srv, http.MethodPost, "/import/"+batch.ID+"/commit", commit)
	if rec.Code != http.StatusMultiStatus {
		t.Errorf("partial commit status = %d, want 207", rec.Code)
	}
}

func TestReportsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var account struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/accounts", `{"displayName":"Checking"}`), &account)
	var cat struct {
		ID string `json:"id"`
	}
	decode(t, do(t, srv, http.MethodPost, "/categories", `{"name":"Income"}`), &cat)

	body := fmt.Sprintf(`{"accountId":%q,"date":"2025-05-01","amount":"2000","description":"payroll","categoryId":%q}`,
		account.ID, cat.ID)
	if rec := do(t, srv, http.MethodPost, "/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/reports/totals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("totals status = %d", rec.Code)
	}
	var totals struct {
		Income string `json:"income"`
		Count  int    `json:"count"`
	}
	decode(t, rec, &totals)
	if totals.Income != "2000.00" || totals.Count != 1 {
		t.Errorf("totals = %+v", totals)
	}

	rec = do(t, srv, http.MethodGet, "/reports/monthly?start=2025-04-01&end=2025-05-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly status = %d", rec.Code)
	}
	var trend []struct {
		Month string `json:"month"`
	}
	decode(t, rec, &trend)
	if len(trend) != 2 || trend[0].Month != "2025-04" {
		t.Errorf("trend = %+v", trend)
	}

	rec = do(t, srv, http.MethodGet, "/reports/monthly?start=bad", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date status = %d, want 422", rec.Code)
	}
}

func TestSeedDefaultsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/categories/defaults", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("seed status = %d", rec.Code)
	}
	var tree []struct {
		Name string `json:"name"`
	}
	decode(t, rec, &tree)
	if len(tree) != 5 {
		t.Errorf("seeded %d roots, want 5", len(tree))
	}
}
