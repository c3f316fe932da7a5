package shell

import "dataworks/internal/tools"

// RegisterAll registers the shell tools with the given registry.
// wd is the sandbox root commands start in.
func RegisterAll(registry *tools.Registry, wd string) error {
	return registry.Register(RunCommandTool(wd))
}
