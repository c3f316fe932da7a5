package web

import (
	"net/http"

	"dataworks/internal/tools"
)

// RegisterAll registers the web retrieval tools with the given registry.
func RegisterAll(registry *tools.Registry) error {
	return registry.Register(FetchTool(http.DefaultClient))
}
