package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dswarm/dswarm/internal/gateway/config"
	"github.com/dswarm/dswarm/internal/gateway/handler"
	"github.com/dswarm/dswarm/internal/gateway/logging"
	"github.com/dswarm/dswarm/internal/gateway/server"
	"github.com/dswarm/dswarm/internal/gateway/session"
	"github.com/dswarm/dswarm/internal/schema"
	"github.com/dswarm/dswarm/internal/transport"
)

const schemaCacheSize = 256

type App struct {
	server   *server.Server
	sessions *session.Registry
	log      *zap.SugaredLogger
	stop     context.CancelFunc
}

func New(args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	// Dependencies
	docs, err := newDocumentSource(cfg.Documents, log)
	if err != nil {
		return nil, err
	}
	schemas, err := schema.NewRegistry(schemaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema registry: %w", err)
	}
	client := transport.NewClient(cfg.BackendURL, nil, log.Named("transform"))
	sessions := session.NewRegistry(cfg.SessionTTL, client, log.Named("session"))
	log.Infow("transformation backend", "endpoint", client.Endpoint())

	apiHandler := handler.NewAPIHandler(sessions, docs, schemas, log.Named("api"))
	wsHandler := handler.NewWorkspaceWSHandler(sessions, docs, schemas, log.Named("ws"))

	// Routing & Server
	mux := server.NewMux(apiHandler, wsHandler, cfg.AllowedOrigins, log.Named("http"))
	srv := server.New(cfg.Port, mux, log)

	ctx, stop := context.WithCancel(context.Background())
	go sessions.Janitor(ctx, time.Minute)

	return &App{server: srv, sessions: sessions, log: log, stop: stop}, nil
}

func (a *App) Log() *zap.SugaredLogger { return a.log }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.stop()
	return a.server.Shutdown(ctx)
}
