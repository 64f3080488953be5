package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dswarm/dswarm/internal/gateway/session"
	"github.com/dswarm/dswarm/internal/schema"
	"github.com/dswarm/dswarm/internal/transport"
	"github.com/dswarm/dswarm/internal/tree"
	"github.com/dswarm/dswarm/internal/workspace"
)

// WorkspaceWSHandler streams workspace notifications to an editor and applies
// the editor's drag, tab and send actions.
type WorkspaceWSHandler struct {
	sessions *session.Registry
	docs     transport.DocumentSource
	schemas  *schema.Registry
	log      *zap.SugaredLogger
}

func NewWorkspaceWSHandler(sessions *session.Registry, docs transport.DocumentSource, schemas *schema.Registry, log *zap.SugaredLogger) *WorkspaceWSHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WorkspaceWSHandler{sessions: sessions, docs: docs, schemas: schemas, log: log}
}

const (
	workspaceWSWriteWait = 10 * time.Second
	workspaceWSPongWait  = 60 * time.Second
	workspaceWSPingEvery = (workspaceWSPongWait * 9) / 10
	workspaceWSBuffer    = 32
)

var workspaceWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type workspaceWSInbound struct {
	Type        string                `json:"type"`
	RequestID   string                `json:"requestId,omitempty"`
	TabID       string                `json:"tabId,omitempty"`
	Connection  *workspace.Connection `json:"connection,omitempty"`
	Component   *workspace.Function   `json:"component,omitempty"`
	ComponentID string                `json:"componentId,omitempty"`
	Payload     any                   `json:"payload,omitempty"`
	Index       *int                  `json:"index,omitempty"`
	OldIndex    *int                  `json:"oldIndex,omitempty"`
	Schema      string                `json:"schema,omitempty"`
}

type workspaceWSOutbound struct {
	Type      string              `json:"type"`
	RequestID string              `json:"requestId,omitempty"`
	TabID     string              `json:"tabId,omitempty"`
	Component *workspace.Function `json:"component,omitempty"`
	Tab       *workspace.TabView  `json:"tab,omitempty"`
	Body      json.RawMessage     `json:"body,omitempty"`
	Tree      *tree.Node          `json:"tree,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
}

func (h *WorkspaceWSHandler) HandleWorkspaceWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}
	sess, release, err := h.sessions.Attach(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer release()

	conn, err := workspaceWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := h.log.With("session", sessionID)

	if err := conn.SetReadDeadline(time.Now().Add(workspaceWSPongWait)); err != nil {
		log.Warnw("workspace ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(workspaceWSPongWait))
	})

	writeCh := make(chan workspaceWSOutbound, workspaceWSBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(workspaceWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(workspaceWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(workspaceWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	h.forwardEvents(ctx, sess, writeCh)
	pushWorkspaceWS(writeCh, workspaceWSOutbound{Type: "subscribed", RequestID: sessionID})

	for {
		var in workspaceWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		h.sessions.Keep(sess)
		msgType := strings.TrimSpace(in.Type)
		if msgType == "" {
			pushWorkspaceWS(writeCh, wsError(in.RequestID, "invalid_argument", "type is required"))
			continue
		}
		if out, ok := h.dispatch(ctx, sess, msgType, in, writeCh, log); ok {
			pushWorkspaceWS(writeCh, out)
		}
	}
}

// dispatch applies one inbound message. The bool is false when the reply is
// delivered asynchronously.
func (h *WorkspaceWSHandler) dispatch(ctx context.Context, sess *session.Session, msgType string, in workspaceWSInbound, writeCh chan workspaceWSOutbound, log *zap.SugaredLogger) (workspaceWSOutbound, bool) {
	ws := sess.Workspace
	switch msgType {
	case "ping":
		return workspaceWSOutbound{Type: "pong", RequestID: in.RequestID}, true

	case workspace.TopicConnectionSelected:
		if in.Connection == nil || strings.TrimSpace(in.Connection.ID) == "" {
			return wsError(in.RequestID, "invalid_argument", "connection.id is required"), true
		}
		return ack(in.RequestID, ws.SelectConnection(*in.Connection)), true

	case "switchTab":
		if err := ws.SwitchTab(in.TabID); err != nil {
			return wsFromErr(in.RequestID, err), true
		}
		return ackActive(in.RequestID, ws), true

	case "dragReceive":
		f := ws.DragReceive(in.Payload)
		return workspaceWSOutbound{Type: "ack", RequestID: in.RequestID, Component: f}, true

	case "dragUpdate":
		var existing *workspace.Function
		if id := strings.TrimSpace(in.ComponentID); id != "" {
			existing = &workspace.Function{ID: id}
		}
		if err := ws.DragUpdate(indexOr(in.Index), existing); err != nil {
			return wsFromErr(in.RequestID, err), true
		}
		return ackActive(in.RequestID, ws), true

	case "insert":
		c := in.Component
		if id := strings.TrimSpace(in.ComponentID); id != "" {
			var err error
			if in.OldIndex == nil {
				err = ws.MoveComponent(id, indexOr(in.Index))
			} else {
				found, ok := ws.Component(id)
				if !ok {
					return wsFromErr(in.RequestID, workspace.ErrComponentNotFound), true
				}
				err = ws.InsertComponent(found, indexOr(in.Index), *in.OldIndex)
			}
			if err != nil {
				return wsFromErr(in.RequestID, err), true
			}
			return ackActive(in.RequestID, ws), true
		}
		if c == nil {
			c = &workspace.Function{Payload: in.Payload}
		}
		if c.ID == "" {
			c.ID = ws.FreshComponentID()
		}
		if err := ws.InsertComponent(c, indexOr(in.Index), indexOr(in.OldIndex)); err != nil {
			return wsFromErr(in.RequestID, err), true
		}
		return ackActive(in.RequestID, ws), true

	case "remove":
		if err := ws.RemoveComponent(in.ComponentID); err != nil {
			return wsFromErr(in.RequestID, err), true
		}
		return ackActive(in.RequestID, ws), true

	case "editComponent":
		c, ok := ws.Component(in.ComponentID)
		if !ok {
			return wsFromErr(in.RequestID, workspace.ErrComponentNotFound), true
		}
		ws.SelectFunctionComponent(c)
		return workspaceWSOutbound{Type: "ack", RequestID: in.RequestID}, true

	case "targetSchema":
		def, err := transport.LoadSchema(ctx, h.docs, h.schemas, in.Schema)
		if err != nil {
			return wsFromErr(in.RequestID, err), true
		}
		sess.SetTargetSchema(def)
		return workspaceWSOutbound{Type: "ack", RequestID: in.RequestID}, true

	case "send":
		tabID := in.TabID
		go func() {
			if err := ws.SendActiveTab(ctx, tabID); err != nil {
				log.Warnw("send transformation failed", "tab", tabID, "error", err)
				pushWorkspaceWS(writeCh, wsFromErr(in.RequestID, err))
				return
			}
			pushWorkspaceWS(writeCh, workspaceWSOutbound{Type: "ack", RequestID: in.RequestID, TabID: tabID})
		}()
		return workspaceWSOutbound{}, false
	}
	return wsError(in.RequestID, "invalid_argument", "unsupported type: "+msgType), true
}

// forwardEvents relays every workspace topic to the socket until ctx ends.
func (h *WorkspaceWSHandler) forwardEvents(ctx context.Context, sess *session.Session, writeCh chan workspaceWSOutbound) {
	ev := sess.Workspace.Events()
	switched := ev.ConnectionSwitched.Subscribe(ctx, workspaceWSBuffer)
	tabSwitch := ev.TabSwitch.Subscribe(ctx, workspaceWSBuffer)
	edits := ev.EditConfig.Subscribe(ctx, workspaceWSBuffer)
	finished := ev.TransformationFinished.Subscribe(ctx, workspaceWSBuffer)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-switched:
				if !ok {
					return
				}
				pushWorkspaceWS(writeCh, workspaceWSOutbound{Type: workspace.TopicConnectionSwitched, TabID: e.ID})
			case e, ok := <-tabSwitch:
				if !ok {
					return
				}
				pushWorkspaceWS(writeCh, workspaceWSOutbound{Type: workspace.TopicTabSwitch, TabID: e.ID})
			case e, ok := <-edits:
				if !ok {
					return
				}
				pushWorkspaceWS(writeCh, workspaceWSOutbound{Type: workspace.TopicEditConfig, TabID: e.TabID, Component: e.Component})
			case e, ok := <-finished:
				if !ok {
					return
				}
				pushWorkspaceWS(writeCh, workspaceWSOutbound{
					Type:  workspace.TopicTransformationFinished,
					TabID: e.TabID,
					Body:  e.Body,
					Tree:  renderReply(sess.TargetSchema(), e.Body),
				})
			}
		}
	}()
}

// renderReply parses a transformation reply against the target schema, if any.
func renderReply(def *schema.Definition, body json.RawMessage) *tree.Node {
	if def == nil || len(body) == 0 {
		return nil
	}
	doc, err := schema.DecodeInstance(body)
	if err != nil {
		return nil
	}
	return schema.ParseDocument(def, doc)
}

func indexOr(v *int) int {
	if v == nil {
		return workspace.NoIndex
	}
	return *v
}

func ack(requestID string, tab *workspace.TabView) workspaceWSOutbound {
	out := workspaceWSOutbound{Type: "ack", RequestID: requestID, Tab: tab}
	if tab != nil {
		out.TabID = tab.ID
	}
	return out
}

func ackActive(requestID string, ws *workspace.Workspace) workspaceWSOutbound {
	tab, _ := ws.ActiveTab()
	return ack(requestID, tab)
}

func wsError(requestID, code, msg string) workspaceWSOutbound {
	return workspaceWSOutbound{Type: "error", RequestID: requestID, Code: code, Message: msg}
}

func wsFromErr(requestID string, err error) workspaceWSOutbound {
	code := "internal"
	switch {
	case errors.Is(err, workspace.ErrInactiveTab):
		code = "failed_precondition"
	case errors.Is(err, workspace.ErrTabNotFound),
		errors.Is(err, workspace.ErrComponentNotFound),
		errors.Is(err, transport.ErrNotFound):
		code = "not_found"
	case errors.Is(err, workspace.ErrIndexOutOfRange),
		errors.Is(err, workspace.ErrNilComponent),
		errors.Is(err, workspace.ErrDuplicateComponent):
		code = "invalid_argument"
	case errors.Is(err, workspace.ErrNoActiveTab):
		code = "failed_precondition"
	}
	return wsError(requestID, code, err.Error())
}

func pushWorkspaceWS(writeCh chan workspaceWSOutbound, out workspaceWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
