// Package workspace tracks one transformation chain per selected connection.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// NoIndex marks an absent index argument.
const NoIndex = -1

var (
	ErrInactiveTab       = errors.New("workspace: tab is not active")
	ErrTabNotFound       = errors.New("workspace: tab not found")
	ErrNoActiveTab       = errors.New("workspace: no active tab")
	ErrIndexOutOfRange   = errors.New("workspace: index out of range")
	ErrComponentNotFound = errors.New("workspace: component not found")
	ErrNilComponent      = errors.New("workspace: component is nil")
	ErrNoTransformer     = errors.New("workspace: no transformer configured")

	ErrDuplicateComponent = errors.New("workspace: component already in chain")
)

// Phase is the coarse state of a workspace.
type Phase string

const (
	PhaseNoTabs    Phase = "noTabs"
	PhaseTabActive Phase = "tabActive"
)

type Workspace struct {
	mu sync.Mutex

	tabs     map[string]*Tab
	order    []string
	activeID string
	counter  int
	pending  *Function

	events      *Events
	transformer Transformer
	log         *zap.SugaredLogger
}

type Option func(*Workspace)

func WithEvents(ev *Events) Option {
	return func(w *Workspace) { w.events = ev }
}

func WithTransformer(t Transformer) Option {
	return func(w *Workspace) { w.transformer = t }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Workspace) { w.log = l }
}

func New(opts ...Option) *Workspace {
	w := &Workspace{tabs: make(map[string]*Tab)}
	for _, opt := range opts {
		opt(w)
	}
	if w.events == nil {
		w.events = NewEvents()
	}
	if w.log == nil {
		w.log = zap.NewNop().Sugar()
	}
	return w
}

// Events returns the topics this workspace publishes on.
func (w *Workspace) Events() *Events { return w.events }

// SelectConnection opens a tab for a newly seen connection and activates it
// without announcing the switch outward. A known connection only gets its
// display flag raised.
func (w *Workspace) SelectConnection(conn Connection) *TabView {
	w.mu.Lock()
	defer w.mu.Unlock()

	if tab, ok := w.tabs[conn.ID]; ok {
		if conn.ID != w.activeID {
			w.markActiveLocked(conn.ID)
		}
		return tab.view(conn.ID == w.activeID)
	}

	tab := newTab(conn)
	w.tabs[conn.ID] = tab
	w.order = append(w.order, conn.ID)
	w.markActiveLocked(conn.ID)
	w.activateLocked(conn.ID, true)
	w.log.Debugw("tab opened", "tab", conn.ID, "title", conn.Label)
	return tab.view(true)
}

// Listen consumes connection selections until ctx is done or in is closed.
func (w *Workspace) Listen(ctx context.Context, in <-chan Connection) {
	for {
		select {
		case <-ctx.Done():
			return
		case conn, ok := <-in:
			if !ok {
				return
			}
			w.SelectConnection(conn)
		}
	}
}

// SwitchTab activates a known tab and announces the switch.
func (w *Workspace) SwitchTab(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tabs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	w.markActiveLocked(id)
	w.activateLocked(id, false)
	return nil
}

func (w *Workspace) activateLocked(id string, skipNotify bool) {
	if w.activeID == id {
		return
	}
	w.events.TabSwitch.Publish(TabSwitch{ID: id})
	w.activeID = id
	if !skipNotify {
		w.events.ConnectionSwitched.Publish(ConnectionSwitched{ID: id})
	}
}

func (w *Workspace) markActiveLocked(id string) {
	for tid, t := range w.tabs {
		t.Active = tid == id
	}
}

// FreshComponentID returns "<activeTabId>:fun_<n>" with a workspace-wide counter.
func (w *Workspace) FreshComponentID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.freshIDLocked()
}

func (w *Workspace) freshIDLocked() string {
	w.counter++
	return fmt.Sprintf("%s:fun_%d", w.activeID, w.counter)
}

// InsertComponent removes the element at oldIndex when given, then places c
// so that it ends up at index in the resulting chain, or appends it.
func (w *Workspace) InsertComponent(c *Function, index, oldIndex int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.insertLocked(c, index, oldIndex)
}

func (w *Workspace) insertLocked(c *Function, index, oldIndex int) error {
	if c == nil {
		return ErrNilComponent
	}
	tab, ok := w.tabs[w.activeID]
	if !ok {
		return ErrNoActiveTab
	}
	comps := slices.Clone(tab.Components)
	if oldIndex != NoIndex {
		if oldIndex < 0 || oldIndex >= len(comps) {
			return fmt.Errorf("%w: old index %d, chain length %d", ErrIndexOutOfRange, oldIndex, len(comps))
		}
		comps = slices.Delete(comps, oldIndex, oldIndex+1)
	}
	if slices.ContainsFunc(comps, func(f *Function) bool { return f == c || (c.ID != "" && f.ID == c.ID) }) {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.ID)
	}
	if index == NoIndex {
		comps = append(comps, c)
	} else {
		index = max(0, min(index, len(comps)))
		comps = slices.Insert(comps, index, c)
	}
	tab.Components = comps
	return nil
}

// DragReceive buffers a dropped payload as the next component to insert.
func (w *Workspace) DragReceive(payload any) *Function {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = &Function{ID: w.freshIDLocked(), Payload: payload}
	return w.pending
}

// DragUpdate completes a drop at dropIndex. A buffered payload wins; otherwise
// existing is moved within the active chain. Unknown components are ignored.
func (w *Workspace) DragUpdate(dropIndex int, existing *Function) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		c := w.pending.clone()
		w.pending = nil
		return w.insertLocked(c, dropIndex, NoIndex)
	}
	if existing == nil {
		return nil
	}
	tab, ok := w.tabs[w.activeID]
	if !ok {
		return nil
	}
	idx := tab.indexOf(existing)
	if idx < 0 {
		return nil
	}
	return w.insertLocked(tab.Components[idx], dropIndex, idx)
}

// MoveComponent moves the component with id to index in the active chain.
func (w *Workspace) MoveComponent(id string, index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab, ok := w.tabs[w.activeID]
	if !ok {
		return ErrNoActiveTab
	}
	idx := tab.indexOf(&Function{ID: id})
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	return w.insertLocked(tab.Components[idx], index, idx)
}

// RemoveComponent drops a component from the active chain by id.
func (w *Workspace) RemoveComponent(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab, ok := w.tabs[w.activeID]
	if !ok {
		return ErrNoActiveTab
	}
	idx := tab.indexOf(&Function{ID: id})
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	tab.Components = slices.Delete(slices.Clone(tab.Components), idx, idx+1)
	return nil
}

// Component looks up a component of the active chain by id.
func (w *Workspace) Component(id string) (*Function, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab, ok := w.tabs[w.activeID]
	if !ok {
		return nil, false
	}
	idx := tab.indexOf(&Function{ID: id})
	if idx < 0 {
		return nil, false
	}
	return tab.Components[idx], true
}

// SelectFunctionComponent asks editors to open the configuration of c.
func (w *Workspace) SelectFunctionComponent(c *Function) {
	w.mu.Lock()
	tabID := w.activeID
	w.mu.Unlock()
	w.events.EditConfig.Publish(EditConfig{TabID: tabID, Component: c})
}

// SendActiveTab hands the chain of tabID to the transformer. The reply is
// published only if tabID is still active when it arrives.
func (w *Workspace) SendActiveTab(ctx context.Context, tabID string) error {
	w.mu.Lock()
	tab, ok := w.tabs[tabID]
	if !ok || tabID != w.activeID {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInactiveTab, tabID)
	}
	req := buildRequest(tab)
	tr := w.transformer
	w.mu.Unlock()

	if tr == nil {
		return ErrNoTransformer
	}
	body, err := tr.Transform(ctx, req)
	if err != nil {
		return fmt.Errorf("send transformation %s: %w", tabID, err)
	}

	w.mu.Lock()
	current := w.activeID
	w.mu.Unlock()
	if current != tabID {
		w.log.Infow("dropping stale transformation reply", "tab", tabID, "active", current)
		return nil
	}
	w.events.TransformationFinished.Publish(TransformationFinished{TabID: tabID, Body: body})
	return nil
}

// Tabs returns snapshots in first-seen order.
func (w *Workspace) Tabs() []*TabView {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*TabView, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.tabs[id].view(id == w.activeID))
	}
	return out
}

// ActiveTab returns a snapshot of the active tab.
func (w *Workspace) ActiveTab() (*TabView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab, ok := w.tabs[w.activeID]
	if !ok {
		return nil, false
	}
	return tab.view(true), true
}

func (w *Workspace) State() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tabs[w.activeID]; ok {
		return PhaseTabActive
	}
	return PhaseNoTabs
}
