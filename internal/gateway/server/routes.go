package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dswarm/dswarm/internal/gateway/handler"
	"github.com/dswarm/dswarm/internal/gateway/middleware"
)

func NewMux(api *handler.APIHandler, wsHandler *handler.WorkspaceWSHandler, origins []string, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", api.HandleHealth)

	// Sessions
	mux.HandleFunc("POST /api/sessions", api.HandleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", api.HandleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/tabs", api.HandleListTabs)

	// Trees
	mux.HandleFunc("GET /api/schemas/{name}/tree", api.HandleSchemaTree)
	mux.HandleFunc("GET /api/instances/{schema}/{instance}/tree", api.HandleInstanceTree)
	mux.HandleFunc("POST /api/tree/parse", api.HandleParse)

	// Notifications
	mux.HandleFunc("GET /ws", wsHandler.HandleWorkspaceWS)

	return middleware.CORS(origins)(middleware.Logging(log)(mux))
}
