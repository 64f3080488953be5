package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dswarm/dswarm/internal/gateway/session"
	"github.com/dswarm/dswarm/internal/schema"
	"github.com/dswarm/dswarm/internal/transport"
	"github.com/dswarm/dswarm/internal/tree"
	"github.com/dswarm/dswarm/internal/workspace"
)

const maxParseBody = 8 << 20

// APIHandler serves sessions and tree rendering over plain HTTP.
type APIHandler struct {
	sessions *session.Registry
	docs     transport.DocumentSource
	schemas  *schema.Registry
	log      *zap.SugaredLogger
}

func NewAPIHandler(sessions *session.Registry, docs transport.DocumentSource, schemas *schema.Registry, log *zap.SugaredLogger) *APIHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &APIHandler{sessions: sessions, docs: docs, schemas: schemas, log: log}
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) HandleCreateSession(w http.ResponseWriter, _ *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": s.ID})
}

func (h *APIHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type tabsResponse struct {
	State       workspace.Phase      `json:"state"`
	ActiveTabID string               `json:"activeTabId,omitempty"`
	Tabs        []*workspace.TabView `json:"tabs"`
}

func (h *APIHandler) HandleListTabs(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tabsSnapshot(s.Workspace))
}

func tabsSnapshot(ws *workspace.Workspace) tabsResponse {
	resp := tabsResponse{State: ws.State(), Tabs: ws.Tabs()}
	if active, ok := ws.ActiveTab(); ok {
		resp.ActiveTabID = active.ID
	}
	return resp
}

func (h *APIHandler) HandleSchemaTree(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	editable, _ := strconv.ParseBool(r.URL.Query().Get("editable"))

	def, err := transport.LoadSchema(r.Context(), h.docs, h.schemas, name)
	if err != nil {
		h.writeError(w, "schema tree", err)
		return
	}
	writeJSON(w, http.StatusOK, schema.MapDocument(def, editable))
}

func (h *APIHandler) HandleInstanceTree(w http.ResponseWriter, r *http.Request) {
	schemaName := strings.TrimSpace(r.PathValue("schema"))
	instanceName := strings.TrimSpace(r.PathValue("instance"))

	n, err := transport.LoadTree(r.Context(), h.docs, h.docs, h.schemas, schemaName, instanceName)
	if err != nil {
		h.writeError(w, "instance tree", err)
		return
	}
	if prune, _ := strconv.ParseBool(r.URL.Query().Get("prune")); prune {
		n = tree.Prune(n)
	}
	writeJSON(w, http.StatusOK, n)
}

type parseRequest struct {
	Schema   json.RawMessage `json:"schema"`
	Instance json.RawMessage `json:"instance,omitempty"`
	Editable bool            `json:"editable,omitempty"`
	Prune    bool            `json:"prune,omitempty"`
}

// HandleParse maps an inline schema, or parses an inline instance against it.
func (h *APIHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxParseBody)).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Schema) == 0 {
		http.Error(w, "schema is required", http.StatusBadRequest)
		return
	}
	def, err := h.schemas.Load("inline.json", req.Schema)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Instance) == 0 || string(req.Instance) == "null" {
		writeJSON(w, http.StatusOK, schema.MapDocument(def, req.Editable))
		return
	}
	doc, err := schema.DecodeInstance(req.Instance)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n := schema.ParseDocument(def, doc)
	if n == nil {
		http.Error(w, "instance has no "+strconv.Quote(def.Title)+" root", http.StatusUnprocessableEntity)
		return
	}
	if req.Prune {
		n = tree.Prune(n)
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *APIHandler) writeError(w http.ResponseWriter, op string, err error) {
	var se *transport.StatusError
	switch {
	case errors.Is(err, transport.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &se):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.log.Errorw(op+" failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
