// Package sqlquery provides the read-only SQLite query tool.
//
// The database file must live inside the sandbox and is opened read-only;
// only a single SELECT (or WITH ... SELECT) statement is accepted, so task
// descriptions cannot smuggle writes or deletes through SQL.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dataworks/internal/logging"
	"dataworks/internal/tools"
	"dataworks/internal/tools/fileio"
)

const maxRows = 1000

// QuerySQLiteTool returns a tool that runs a SELECT against a SQLite file.
func QuerySQLiteTool(sb *fileio.Sandbox) *tools.Tool {
	return &tools.Tool{
		Name:        "query_sqlite",
		Description: "Run a read-only SELECT query against a SQLite database file inside the data root; rows are returned as tab-separated text",
		SideEffect:  tools.SideEffectReadOnly,
		Timeout:     30 * time.Second,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeQuery(ctx, sb, args)
		},
		Schema: tools.Schema{
			Required: []string{"database", "query"},
			Properties: map[string]tools.Property{
				"database": {
					Type:        "string",
					Description: "Path to the SQLite database file, relative to the data root",
				},
				"query": {
					Type:        "string",
					Description: "A single SELECT statement",
				},
			},
		},
	}
}

func executeQuery(ctx context.Context, sb *fileio.Sandbox, args map[string]any) (string, error) {
	requested, _ := args["database"].(string)
	query, _ := args["query"].(string)

	path, err := sb.Resolve(requested)
	if err != nil {
		return "", err
	}
	if err := validateSelect(query); err != nil {
		return "", tools.NewTargetError(1, "%v", err)
	}

	logging.ToolsDebug("query_sqlite: db=%s", path)

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("%w: cannot open database %s: %v", tools.ErrToolExecution, requested, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// A bad query is the target failing, not an environment fault.
		return "", tools.NewTargetError(1, "query failed: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("%w: %v", tools.ErrToolExecution, err)
	}

	var out strings.Builder
	out.WriteString(strings.Join(cols, "\t"))
	out.WriteString("\n")

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if count >= maxRows {
			fmt.Fprintf(&out, "...[%d-row limit reached]\n", maxRows)
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("%w: scan: %v", tools.ErrToolExecution, err)
		}
		fields := make([]string, len(cols))
		for i, v := range values {
			fields[i] = renderValue(v)
		}
		out.WriteString(strings.Join(fields, "\t"))
		out.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", tools.NewTargetError(1, "query failed: %v", err)
	}

	logging.ToolsDebug("query_sqlite: %d rows", count)
	return strings.TrimRight(out.String(), "\n"), nil
}

// validateSelect accepts exactly one SELECT or WITH statement.
func validateSelect(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return fmt.Errorf("query is required")
	}
	// A trailing semicolon is fine; anything after it is not.
	if i := strings.Index(q, ";"); i >= 0 && strings.TrimSpace(q[i+1:]) != "" {
		return fmt.Errorf("only a single statement is allowed")
	}
	head := strings.ToUpper(q)
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	return nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
