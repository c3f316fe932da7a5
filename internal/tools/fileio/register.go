package fileio

import "dataworks/internal/tools"

// RegisterAll registers the filesystem tools with the given registry.
func RegisterAll(registry *tools.Registry, sb *Sandbox) error {
	allTools := []*tools.Tool{
		ReadFileTool(sb),
		WriteFileTool(sb),
		AppendFileTool(sb),
		ListFilesTool(sb),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
