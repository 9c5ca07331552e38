// Package api provides a read-only HTTP API over recall's memory.
package api

import (
	"net/http"
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Memory serves GET /v1/memory/:user_id. Required.
	Memory memory.Driver

	// Searcher serves GET /v1/search. Nil answers 503.
	Searcher memory.Searcher

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler

	// Metrics is exposed at GET /metrics.
	Metrics *metrics.Metrics

	// Clock anchors relative dates. Defaults to time.Now.
	Clock func() time.Time
}
