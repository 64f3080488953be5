package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conn(id string) Connection {
	return Connection{
		ID:         id,
		Label:      "tab " + id,
		Source:     "src-" + id,
		Target:     "dst-" + id,
		SourceData: map[string]any{"name": "source " + id},
		TargetData: map[string]any{"name": "target " + id},
	}
}

func ids(comps []*Function) []string {
	out := make([]string, 0, len(comps))
	for _, c := range comps {
		out = append(out, c.ID)
	}
	return out
}

func activeIDs(t *testing.T, w *Workspace) []string {
	t.Helper()
	tab, ok := w.ActiveTab()
	require.True(t, ok)
	return ids(tab.Components)
}

func TestSelectConnectionCreatesTab(t *testing.T) {
	w := New()
	assert.Equal(t, PhaseNoTabs, w.State())

	view := w.SelectConnection(conn("A"))
	assert.Equal(t, "A", view.ID)
	assert.Equal(t, "tab A", view.Title)
	assert.True(t, view.Active)
	assert.True(t, view.Current)
	assert.Empty(t, view.Components)
	assert.Equal(t, "A:source", view.Source.ID)
	assert.Equal(t, ComponentSource, view.Source.Kind)
	assert.Equal(t, "A:target", view.Target.ID)
	assert.Equal(t, ComponentTarget, view.Target.Kind)
	assert.Equal(t, "src-A", view.Target.Source)
	assert.Equal(t, map[string]any{"name": "target A"}, view.Target.Payload)
	assert.Equal(t, PhaseTabActive, w.State())
}

func TestTabIsolation(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	require.NoError(t, w.InsertComponent(&Function{ID: "c1"}, NoIndex, NoIndex))

	w.SelectConnection(conn("B"))
	require.NoError(t, w.InsertComponent(&Function{ID: "c2"}, NoIndex, NoIndex))

	require.NoError(t, w.SwitchTab("A"))
	assert.Equal(t, []string{"c1"}, activeIDs(t, w))

	require.NoError(t, w.SwitchTab("B"))
	assert.Equal(t, []string{"c2"}, activeIDs(t, w))

	tabs := w.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, "A", tabs[0].ID)
	assert.Equal(t, "B", tabs[1].ID)
	assert.False(t, tabs[0].Current)
	assert.True(t, tabs[1].Current)
}

func TestReselectExistingConnectionOnlyFlagsTab(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New()
	switched := w.Events().ConnectionSwitched.Subscribe(ctx, 4)

	w.SelectConnection(conn("A"))
	w.SelectConnection(conn("B"))
	view := w.SelectConnection(conn("A"))

	assert.True(t, view.Active)
	assert.False(t, view.Current)
	active, ok := w.ActiveTab()
	require.True(t, ok)
	assert.Equal(t, "B", active.ID)
	assert.False(t, active.Active)
	assert.Len(t, switched, 0)
}

func TestMoveSemantics(t *testing.T) {
	setup := func() (*Workspace, []*Function) {
		w := New()
		w.SelectConnection(conn("A"))
		fs := []*Function{{ID: "x"}, {ID: "y"}, {ID: "z"}}
		for _, f := range fs {
			require.NoError(t, w.InsertComponent(f, NoIndex, NoIndex))
		}
		return w, fs
	}

	t.Run("move last to front", func(t *testing.T) {
		w, fs := setup()
		require.NoError(t, w.InsertComponent(fs[2], 0, 2))
		assert.Equal(t, []string{"z", "x", "y"}, activeIDs(t, w))
	})

	t.Run("move first to end", func(t *testing.T) {
		w, fs := setup()
		require.NoError(t, w.InsertComponent(fs[0], 2, 0))
		assert.Equal(t, []string{"y", "z", "x"}, activeIDs(t, w))
	})

	t.Run("index is clamped", func(t *testing.T) {
		w, _ := setup()
		require.NoError(t, w.InsertComponent(&Function{ID: "w"}, 99, NoIndex))
		assert.Equal(t, []string{"x", "y", "z", "w"}, activeIDs(t, w))
	})

	t.Run("insert in the middle", func(t *testing.T) {
		w, _ := setup()
		require.NoError(t, w.InsertComponent(&Function{ID: "m"}, 1, NoIndex))
		assert.Equal(t, []string{"x", "m", "y", "z"}, activeIDs(t, w))
	})

	t.Run("bad old index leaves chain untouched", func(t *testing.T) {
		w, fs := setup()
		err := w.InsertComponent(fs[0], 0, 3)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		assert.Equal(t, []string{"x", "y", "z"}, activeIDs(t, w))
	})
}

func TestInsertWithoutActiveTab(t *testing.T) {
	w := New()
	assert.ErrorIs(t, w.InsertComponent(&Function{ID: "x"}, NoIndex, NoIndex), ErrNoActiveTab)
	w.SelectConnection(conn("A"))
	assert.ErrorIs(t, w.InsertComponent(nil, NoIndex, NoIndex), ErrNilComponent)
}

func TestFreshComponentIDIsWorkspaceGlobal(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	assert.Equal(t, "A:fun_1", w.FreshComponentID())
	assert.Equal(t, "A:fun_2", w.FreshComponentID())

	w.SelectConnection(conn("B"))
	assert.Equal(t, "B:fun_3", w.FreshComponentID())

	// a fresh workspace starts over
	assert.Equal(t, ":fun_1", New().FreshComponentID())
}

func TestDragFlow(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))

	first := w.DragReceive(map[string]any{"name": "trim"})
	assert.Equal(t, "A:fun_1", first.ID)
	require.NoError(t, w.DragUpdate(NoIndex, nil))

	second := w.DragReceive(map[string]any{"name": "upper"})
	require.NoError(t, w.DragUpdate(0, nil))
	assert.Equal(t, []string{"A:fun_2", "A:fun_1"}, activeIDs(t, w))

	// buffer was consumed, so this is a move of an existing component
	require.NoError(t, w.DragUpdate(1, second))
	assert.Equal(t, []string{"A:fun_1", "A:fun_2"}, activeIDs(t, w))

	// located by id when the pointer differs
	require.NoError(t, w.DragUpdate(0, &Function{ID: "A:fun_2"}))
	assert.Equal(t, []string{"A:fun_2", "A:fun_1"}, activeIDs(t, w))

	// unknown component with nothing buffered is a no-op
	require.NoError(t, w.DragUpdate(0, &Function{ID: "nope"}))
	assert.Equal(t, []string{"A:fun_2", "A:fun_1"}, activeIDs(t, w))
}

func TestDragReceiveReplacesBuffer(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	w.DragReceive("first")
	w.DragReceive("second")
	require.NoError(t, w.DragUpdate(NoIndex, nil))

	tab, _ := w.ActiveTab()
	require.Len(t, tab.Components, 1)
	assert.Equal(t, "second", tab.Components[0].Payload)
}

func TestRemoveAndLookupComponent(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	require.NoError(t, w.InsertComponent(&Function{ID: "x"}, NoIndex, NoIndex))
	require.NoError(t, w.InsertComponent(&Function{ID: "y"}, NoIndex, NoIndex))

	c, ok := w.Component("y")
	require.True(t, ok)
	assert.Equal(t, "y", c.ID)

	require.NoError(t, w.RemoveComponent("x"))
	assert.Equal(t, []string{"y"}, activeIDs(t, w))
	assert.ErrorIs(t, w.RemoveComponent("x"), ErrComponentNotFound)
}

func TestSwitchNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New()
	tabSwitch := w.Events().TabSwitch.Subscribe(ctx, 8)
	switched := w.Events().ConnectionSwitched.Subscribe(ctx, 8)

	w.SelectConnection(conn("A"))
	assert.Equal(t, TabSwitch{ID: "A"}, <-tabSwitch)
	assert.Len(t, switched, 0)

	w.SelectConnection(conn("B"))
	assert.Equal(t, TabSwitch{ID: "B"}, <-tabSwitch)

	require.NoError(t, w.SwitchTab("A"))
	assert.Equal(t, TabSwitch{ID: "A"}, <-tabSwitch)
	assert.Equal(t, ConnectionSwitched{ID: "A"}, <-switched)

	// already active: nothing fires
	require.NoError(t, w.SwitchTab("A"))
	assert.Len(t, tabSwitch, 0)
	assert.Len(t, switched, 0)

	assert.ErrorIs(t, w.SwitchTab("missing"), ErrTabNotFound)
}

func TestSelectFunctionComponent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New()
	edits := w.Events().EditConfig.Subscribe(ctx, 1)
	w.SelectConnection(conn("A"))

	f := &Function{ID: "A:fun_1"}
	w.SelectFunctionComponent(f)
	ev := <-edits
	assert.Same(t, f, ev.Component)
	assert.Equal(t, "A", ev.TabID)
}

func TestListenConsumesSelections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New()
	in := w.Events().ConnectionSelected.Subscribe(ctx, 4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Listen(ctx, in)
	}()

	w.Events().ConnectionSelected.Publish(conn("A"))
	assert.Eventually(t, func() bool { return w.State() == PhaseTabActive }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestSendActiveTab(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got *Request
	w := New(WithTransformer(TransformerFunc(func(_ context.Context, req *Request) (json.RawMessage, error) {
		got = req
		return json.RawMessage(`{"ok":true}`), nil
	})))
	finished := w.Events().TransformationFinished.Subscribe(ctx, 1)

	w.SelectConnection(conn("A"))
	payload := map[string]any{"name": "trim", "params": []any{"x"}}
	require.NoError(t, w.InsertComponent(&Function{ID: "A:fun_1", Payload: payload}, NoIndex, NoIndex))

	require.NoError(t, w.SendActiveTab(ctx, "A"))
	require.NotNil(t, got)
	require.Len(t, got.Transformations, 1)
	tr := got.Transformations[0]
	assert.Equal(t, "A", tr.ID)
	assert.Equal(t, "tab A", tr.Name)
	assert.Equal(t, "A:source", tr.Source.ID)
	assert.Equal(t, "A:target", tr.Target.ID)
	require.Len(t, tr.Components, 1)

	// the request is a deep copy
	payload["name"] = "changed"
	assert.Equal(t, "trim", tr.Components[0].Payload.(map[string]any)["name"])

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"transformations":[{
		"id":"A","name":"tab A",
		"components":[{"componentType":"fun","id":"A:fun_1","payload":{"name":"trim","params":["x"]}}],
		"source":{"componentType":"source","id":"A:source","payload":{"name":"source A"},"source":"src-A","target":"dst-A"},
		"target":{"componentType":"target","id":"A:target","payload":{"name":"target A"},"source":"src-A","target":"dst-A"}
	}]}`, string(raw))

	ev := <-finished
	assert.Equal(t, "A", ev.TabID)
	assert.JSONEq(t, `{"ok":true}`, string(ev.Body))
}

func TestSendInactiveTabIsRejected(t *testing.T) {
	calls := 0
	w := New(WithTransformer(TransformerFunc(func(context.Context, *Request) (json.RawMessage, error) {
		calls++
		return nil, nil
	})))
	w.SelectConnection(conn("A"))
	w.SelectConnection(conn("B"))

	assert.ErrorIs(t, w.SendActiveTab(context.Background(), "A"), ErrInactiveTab)
	assert.ErrorIs(t, w.SendActiveTab(context.Background(), "missing"), ErrInactiveTab)
	assert.Zero(t, calls)
}

func TestStaleReplyIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	entered := make(chan struct{})
	w := New(WithTransformer(TransformerFunc(func(context.Context, *Request) (json.RawMessage, error) {
		close(entered)
		<-release
		return json.RawMessage(`{}`), nil
	})))
	finished := w.Events().TransformationFinished.Subscribe(ctx, 1)
	w.SelectConnection(conn("A"))
	w.SelectConnection(conn("B"))
	require.NoError(t, w.SwitchTab("A"))

	var wg sync.WaitGroup
	wg.Add(1)
	var sendErr error
	go func() {
		defer wg.Done()
		sendErr = w.SendActiveTab(ctx, "A")
	}()

	<-entered
	// the lock is free while the request is in flight
	require.NoError(t, w.SwitchTab("B"))
	close(release)
	wg.Wait()

	require.NoError(t, sendErr)
	assert.Len(t, finished, 0)
}

func TestSendErrors(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	assert.ErrorIs(t, w.SendActiveTab(context.Background(), "A"), ErrNoTransformer)

	boom := errors.New("boom")
	w = New(WithTransformer(TransformerFunc(func(context.Context, *Request) (json.RawMessage, error) {
		return nil, boom
	})))
	w.SelectConnection(conn("A"))
	assert.ErrorIs(t, w.SendActiveTab(context.Background(), "A"), boom)
}

func TestMoveComponentByID(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, w.InsertComponent(&Function{ID: id}, NoIndex, NoIndex))
	}

	require.NoError(t, w.MoveComponent("x", NoIndex))
	assert.Equal(t, []string{"y", "z", "x"}, activeIDs(t, w))
	require.NoError(t, w.MoveComponent("x", 0))
	assert.Equal(t, []string{"x", "y", "z"}, activeIDs(t, w))
	assert.ErrorIs(t, w.MoveComponent("nope", 0), ErrComponentNotFound)
}

func TestInsertRejectsComponentAlreadyInChain(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	x := &Function{ID: "x"}
	require.NoError(t, w.InsertComponent(x, NoIndex, NoIndex))
	require.NoError(t, w.InsertComponent(&Function{ID: "y"}, NoIndex, NoIndex))

	assert.ErrorIs(t, w.InsertComponent(x, 0, NoIndex), ErrDuplicateComponent)
	assert.ErrorIs(t, w.InsertComponent(&Function{ID: "y"}, 0, NoIndex), ErrDuplicateComponent)
	assert.Equal(t, []string{"x", "y"}, activeIDs(t, w))

	require.NoError(t, w.RemoveComponent("x"))
	assert.Equal(t, []string{"y"}, activeIDs(t, w))
}

func TestDragUpdateInsertsCopyOfBuffer(t *testing.T) {
	w := New()
	w.SelectConnection(conn("A"))
	payload := map[string]any{"name": "trim"}
	buffered := w.DragReceive(payload)
	require.NoError(t, w.DragUpdate(NoIndex, nil))

	buffered.Payload.(map[string]any)["name"] = "changed"
	buffered.ID = "other"

	tab, ok := w.ActiveTab()
	require.True(t, ok)
	require.Len(t, tab.Components, 1)
	assert.NotSame(t, buffered, tab.Components[0])
	assert.Equal(t, "A:fun_1", tab.Components[0].ID)
	assert.Equal(t, map[string]any{"name": "trim"}, tab.Components[0].Payload)
}
