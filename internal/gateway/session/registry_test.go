package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dswarm/dswarm/internal/workspace"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(time.Minute, nil, nil)
	s := r.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	r.Delete(s.ID)
	_, err = r.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	r := NewRegistry(time.Minute, nil, nil)
	a, b := r.Create(), r.Create()
	assert.NotEqual(t, a.ID, b.ID)

	a.Workspace.SelectConnection(workspace.Connection{ID: "c1"})
	assert.Equal(t, workspace.PhaseTabActive, a.Workspace.State())
	assert.Equal(t, workspace.PhaseNoTabs, b.Workspace.State())
}

func TestSessionListensForSelections(t *testing.T) {
	r := NewRegistry(time.Minute, nil, nil)
	s := r.Create()
	defer r.Delete(s.ID)

	assert.Eventually(t, func() bool {
		return s.Workspace.Events().ConnectionSelected.Subscribers() == 1
	}, time.Second, 5*time.Millisecond)

	s.Workspace.Events().ConnectionSelected.Publish(workspace.Connection{ID: "c1", Label: "first"})
	assert.Eventually(t, func() bool {
		tab, ok := s.Workspace.ActiveTab()
		return ok && tab.ID == "c1"
	}, time.Second, 5*time.Millisecond)

	r.Delete(s.ID)
	assert.Eventually(t, func() bool {
		return s.Workspace.Events().ConnectionSelected.Subscribers() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestListenerKeepsEverySelection(t *testing.T) {
	r := NewRegistry(time.Minute, nil, nil)
	s := r.Create()
	defer r.Delete(s.ID)

	topic := s.Workspace.Events().ConnectionSelected
	require.Eventually(t, func() bool { return topic.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	const n = 200
	for i := 0; i < n; i++ {
		topic.Publish(workspace.Connection{ID: fmt.Sprintf("c%d", i)})
	}
	assert.Eventually(t, func() bool { return len(s.Workspace.Tabs()) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestAttachedSessionSurvivesExpiry(t *testing.T) {
	r := NewRegistry(20*time.Millisecond, nil, nil)
	s := r.Create()
	held, release, err := r.Attach(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, held)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, r.sessions.PurgeExpired())
	assert.False(t, s.Closed())

	// traffic on the socket brings it back
	r.Keep(s)
	_, err = r.Get(s.ID)
	require.NoError(t, err)

	s.Workspace.Events().ConnectionSelected.Publish(workspace.Connection{ID: "A"})
	assert.Eventually(t, func() bool {
		return s.Workspace.State() == workspace.PhaseTabActive
	}, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	r.sessions.PurgeExpired()
	release()
	assert.True(t, s.Closed())
	assert.Eventually(t, func() bool {
		return s.Workspace.Events().ConnectionSelected.Subscribers() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestUnattachedSessionClosesOnExpiry(t *testing.T) {
	r := NewRegistry(20*time.Millisecond, nil, nil)
	s := r.Create()
	time.Sleep(40 * time.Millisecond)
	r.sessions.PurgeExpired()
	assert.True(t, s.Closed())

	r.Keep(s)
	_, err := r.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseKeepsLiveSession(t *testing.T) {
	r := NewRegistry(time.Minute, nil, nil)
	s := r.Create()
	_, release, err := r.Attach(s.ID)
	require.NoError(t, err)
	release()
	release()
	assert.False(t, s.Closed())
	_, err = r.Get(s.ID)
	assert.NoError(t, err)
}
