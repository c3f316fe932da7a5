package goeval

import "dataworks/internal/tools"

// RegisterAll registers the code execution tool with the given registry.
func RegisterAll(registry *tools.Registry) error {
	return registry.Register(RunGoTool())
}
