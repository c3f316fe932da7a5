package sqlquery

import (
	"dataworks/internal/tools"
	"dataworks/internal/tools/fileio"
)

// RegisterAll registers the SQL query tool with the given registry.
func RegisterAll(registry *tools.Registry, sb *fileio.Sandbox) error {
	return registry.Register(QuerySQLiteTool(sb))
}
