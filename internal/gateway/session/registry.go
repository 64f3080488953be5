// Package session keeps one workspace per connected editor.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	memcache "github.com/dswarm/dswarm/internal/cache/memory"
	"github.com/dswarm/dswarm/internal/schema"
	"github.com/dswarm/dswarm/internal/workspace"
)

var ErrNotFound = errors.New("session not found")

const (
	maxSessions       = 1024
	selectionBuffer   = 32
	defaultSessionTTL = 30 * time.Minute
)

// Session owns a workspace and the goroutine feeding it connection selections.
type Session struct {
	ID        string
	Workspace *workspace.Workspace
	CreatedAt time.Time

	cancel   context.CancelFunc
	attached atomic.Int32
	closed   atomic.Bool

	mu           sync.RWMutex
	targetSchema *schema.Definition
}

// SetTargetSchema sets the schema used to render transformation replies.
func (s *Session) SetTargetSchema(def *schema.Definition) {
	s.mu.Lock()
	s.targetSchema = def
	s.mu.Unlock()
}

func (s *Session) TargetSchema() *schema.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetSchema
}

// Close stops the session's listener.
func (s *Session) Close() {
	s.closed.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
}

// Closed reports whether the session was deleted or expired.
func (s *Session) Closed() bool { return s.closed.Load() }

type Registry struct {
	sessions    *memcache.LRUTTL[string, *Session]
	transformer workspace.Transformer
	log         *zap.SugaredLogger
}

func NewRegistry(ttl time.Duration, transformer workspace.Transformer, log *zap.SugaredLogger) *Registry {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Registry{transformer: transformer, log: log}
	r.sessions = memcache.NewLRUTTL[string, *Session](maxSessions, 0, ttl,
		memcache.WithEvict[string, *Session](func(id string, s *Session) {
			if s.attached.Load() > 0 {
				log.Debugw("session expired with a live socket", "session", id)
				return
			}
			log.Infow("session expired", "session", id)
			s.Close()
		}),
	)
	return r
}

// Create starts a fresh session with its own workspace.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	ws := workspace.New(
		workspace.WithTransformer(r.transformer),
		workspace.WithLogger(r.log.With("session", id)),
	)
	go ws.Listen(ctx, ws.Events().ConnectionSelected.SubscribeReliable(ctx, selectionBuffer))

	s := &Session{ID: id, Workspace: ws, CreatedAt: time.Now(), cancel: cancel}
	r.sessions.Set(id, s, 0)
	r.log.Infow("session created", "session", id)
	return s
}

// Get returns a live session and extends its lifetime.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Touch(strings.TrimSpace(id))
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Attach pins a session for a connected socket. An attached session is not
// closed when it expires; the returned release closes it if it expired or was
// evicted in the meantime.
func (r *Registry) Attach(id string) (*Session, func(), error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	s.attached.Add(1)
	var once sync.Once
	release := func() {
		once.Do(func() {
			if s.attached.Add(-1) > 0 {
				return
			}
			if _, ok := r.sessions.Get(s.ID); !ok {
				s.Close()
			}
		})
	}
	return s, release, nil
}

// Keep extends the lifetime of a session in use, re-registering it if it
// expired while attached. Closed sessions stay gone.
func (r *Registry) Keep(s *Session) {
	if s == nil || s.Closed() {
		return
	}
	if _, ok := r.sessions.Touch(s.ID); !ok {
		r.sessions.Set(s.ID, s, 0)
	}
}

func (r *Registry) Delete(id string) {
	id = strings.TrimSpace(id)
	if s, ok := r.sessions.Get(id); ok {
		s.Close()
	}
	r.sessions.Delete(id)
}

func (r *Registry) Len() int { return r.sessions.Len() }

// Janitor purges expired sessions every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sessions.PurgeExpired(); n > 0 {
				r.log.Debugw("purged sessions", "count", n)
			}
		}
	}
}
