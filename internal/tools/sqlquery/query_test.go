package sqlquery

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"dataworks/internal/tools"
	"dataworks/internal/tools/fileio"
)

func setupTicketDB(t *testing.T) (*fileio.Sandbox, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := fileio.NewSandbox(root)
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, "ticket-sales.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE tickets (type TEXT, units INTEGER, price REAL)`,
		`INSERT INTO tickets VALUES ('Gold', 2, 100.0), ('Silver', 5, 40.0), ('Gold', 1, 120.0)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return sb, "ticket-sales.db"
}

func TestQuerySelect(t *testing.T) {
	sb, dbFile := setupTicketDB(t)
	tool := QuerySQLiteTool(sb)

	out, err := tool.Execute(context.Background(), map[string]any{
		"database": dbFile,
		"query":    "SELECT SUM(units * price) AS total FROM tickets WHERE type = 'Gold'",
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(out, "total") || !strings.Contains(out, "320") {
		t.Errorf("unexpected result:\n%s", out)
	}
}

func TestQueryRejectsWrites(t *testing.T) {
	sb, dbFile := setupTicketDB(t)
	tool := QuerySQLiteTool(sb)

	for _, q := range []string{
		"DELETE FROM tickets",
		"UPDATE tickets SET price = 0",
		"DROP TABLE tickets",
		"SELECT 1; DELETE FROM tickets",
	} {
		_, err := tool.Execute(context.Background(), map[string]any{"database": dbFile, "query": q})
		var te *tools.TargetError
		if !errors.As(err, &te) {
			t.Errorf("query %q: expected TargetError, got %v", q, err)
		}
	}
}

func TestQueryBadSQLIsTargetFailure(t *testing.T) {
	sb, dbFile := setupTicketDB(t)
	tool := QuerySQLiteTool(sb)

	_, err := tool.Execute(context.Background(), map[string]any{
		"database": dbFile,
		"query":    "SELECT nonexistent_column FROM tickets",
	})
	var te *tools.TargetError
	if !errors.As(err, &te) {
		t.Errorf("expected TargetError for bad SQL, got %v", err)
	}
}

func TestQueryDatabaseOutsideSandbox(t *testing.T) {
	sb, _ := setupTicketDB(t)
	tool := QuerySQLiteTool(sb)

	_, err := tool.Execute(context.Background(), map[string]any{
		"database": "../outside.db",
		"query":    "SELECT 1",
	})
	if !errors.Is(err, tools.ErrPathEscape) {
		t.Errorf("expected ErrPathEscape, got %v", err)
	}
}
