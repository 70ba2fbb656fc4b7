package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
	"bookkeeper/internal/importer"
	"bookkeeper/internal/staging"
	"bookkeeper/internal/storage"
)

const testOwner = "owner-1"

// testEnv wires every service against a throwaway SQLite file, with change
// notifications disabled.
type testEnv struct {
	repo       *storage.SQLiteRepository
	dbPath     string
	categories *CategoryService
	ledger     *LedgerService
	transfers  *TransferService
	imports    *ImportService
	reports    *ReportService
	stage      *staging.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	categories := NewCategoryService(repo, nil)
	ledger := NewLedgerService(repo, categories, nil)
	transfers := NewTransferService(repo, nil)
	stage := staging.NewStore(16, time.Minute)
	imports := NewImportService(repo, ledger, transfers, stage, importer.Limits{}, nil)

	return &testEnv{
		repo:       repo,
		dbPath:     dbPath,
		categories: categories,
		ledger:     ledger,
		transfers:  transfers,
		imports:    imports,
		reports:    NewReportService(repo),
		stage:      stage,
	}
}

func (e *testEnv) mustAccount(t *testing.T, name string) string {
	t.Helper()
	a, err := e.ledger.CreateAccount(context.Background(), testOwner, name)
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", name, err)
	}
	return a.ID
}

func (e *testEnv) mustCategory(t *testing.T, name, parentID string) string {
	t.Helper()
	c, err := e.categories.Create(context.Background(), testOwner, name, parentID)
	if err != nil {
		t.Fatalf("Create category %s: %v", name, err)
	}
	return c.ID
}

// transferCategoryFor finds the "Transfer to <name>" category an account
// creation left behind.
func (e *testEnv) transferCategoryFor(t *testing.T, accountName string) string {
	t.Helper()
	cats, err := e.repo.ListCategories(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	for _, c := range cats {
		if c.Name == "Transfer to "+accountName && c.IsTransferCategory {
			return c.ID
		}
	}
	t.Fatalf("no transfer category for account %q", accountName)
	return ""
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// failInserts installs a trigger on table that rejects inserts whose column
// matches pattern, standing in for a write failing partway through a
// multi-statement unit. The returned func removes the trigger.
func (e *testEnv) failInserts(t *testing.T, table, column, pattern string) func() {
	t.Helper()
	db, err := sql.Open("sqlite", e.dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	name := "fail_" + table + "_insert"
	stmt := fmt.Sprintf(
		`CREATE TRIGGER %s BEFORE INSERT ON %s
		 WHEN NEW.%s LIKE '%s'
		 BEGIN SELECT RAISE(ABORT, 'insert rejected'); END`,
		name, table, column, pattern)
	if _, err := db.Exec(stmt); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	return func() {
		if _, err := db.Exec("DROP TRIGGER " + name); err != nil {
			t.Fatalf("drop trigger: %v", err)
		}
	}
}
