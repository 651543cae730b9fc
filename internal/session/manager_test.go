package session

import (
	"context"
	"testing"
	"time"

	"github.com/pscheid92/wagate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFixture struct {
	manager     *Manager
	factory     *fakeFactory
	broadcaster *recordingBroadcaster
	doc         *memoryDocument
}

func newTestManager(t *testing.T, records ...domain.SessionRecord) *managerFixture {
	t.Helper()
	store, doc := newTestStore(t, records...)
	f := &managerFixture{
		factory:     &fakeFactory{},
		broadcaster: &recordingBroadcaster{},
		doc:         doc,
	}
	m, err := NewManager(store, f.factory, f.broadcaster, testOptions(), nil)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)
	f.manager = m
	return f
}

func TestManager_CreateSession(t *testing.T) {
	f := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.CreateSession(ctx, "sales", "Sales line"))

	assert.Equal(t, []domain.SessionRecord{{ID: "sales", Description: "Sales line"}}, f.doc.snapshot())
	_, ok := f.manager.Registry().Resolve("sales")
	assert.True(t, ok)

	f.factory.client(t, 1)
	require.Eventually(t, func() bool {
		_, ok := f.manager.ResolveClient("sales")
		return ok
	}, 5*time.Second, 5*time.Millisecond)
}

func TestManager_CreateSession_Duplicate(t *testing.T) {
	f := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.CreateSession(ctx, "sales", "Sales"))
	err := f.manager.CreateSession(ctx, "sales", "Other")

	assert.ErrorIs(t, err, domain.ErrSessionExists)
	assert.Len(t, f.doc.snapshot(), 1)
	assert.Equal(t, 1, f.manager.Registry().Len())
}

func TestManager_CreateSession_InvalidID(t *testing.T) {
	f := newTestManager(t)

	err := f.manager.CreateSession(context.Background(), "   ", "blank")

	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
	assert.Empty(t, f.doc.snapshot())
}

func TestManager_Restore(t *testing.T) {
	f := newTestManager(t,
		domain.SessionRecord{ID: "a", Description: "A", Ready: true},
		domain.SessionRecord{ID: "+5511999990000", Description: "Phone", Ready: true},
		domain.SessionRecord{ID: "vendas.sp", Description: "Vendas"},
		domain.SessionRecord{ID: "user@corp", Description: "Corp", Ready: true},
	)

	n, err := f.manager.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, r := range f.doc.snapshot() {
		assert.False(t, r.Ready, r.ID)
	}
	assert.Len(t, f.doc.snapshot(), 4)
	assert.Equal(t, 4, f.manager.Registry().Len())

	require.Eventually(t, func() bool {
		for _, id := range []string{"a", "+5511999990000", "vendas.sp", "user@corp"} {
			if len(f.factory.clientsFor(id)) != 1 {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond)
}

func TestManager_RemoveSession(t *testing.T) {
	f := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, f.manager.CreateSession(ctx, "sales", "Sales"))

	client := f.factory.client(t, 1)
	require.Eventually(t, func() bool {
		_, ok := f.manager.ResolveClient("sales")
		return ok
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, f.manager.RemoveSession(ctx, "sales"))

	assert.True(t, client.loggedOut)
	assert.True(t, client.isDestroyed())
	assert.Empty(t, f.doc.snapshot())
	assert.Equal(t, 0, f.manager.Registry().Len())
	assert.True(t, f.broadcaster.has(domain.EventRemoveSession, "sales"))
}

func TestManager_RemoveSession_Unknown(t *testing.T) {
	f := newTestManager(t)

	err := f.manager.RemoveSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_Sessions(t *testing.T) {
	f := newTestManager(t, domain.SessionRecord{ID: "offline", Description: "Not running"})
	ctx := context.Background()
	require.NoError(t, f.manager.CreateSession(ctx, "live", "Live"))

	client := f.factory.client(t, 1)
	client.emit(domain.ReadyEvent{})

	require.Eventually(t, func() bool {
		statuses, err := f.manager.Sessions(ctx)
		require.NoError(t, err)
		return len(statuses) == 2 && statuses[1].State == domain.StateReady
	}, 5*time.Second, 5*time.Millisecond)

	statuses, err := f.manager.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "offline", statuses[0].ID)
	assert.Empty(t, statuses[0].State)
	assert.Equal(t, domain.SessionStatus{
		SessionRecord: domain.SessionRecord{ID: "live", Description: "Live", Ready: true},
		State:         domain.StateReady,
	}, statuses[1])
}

func TestManager_Snapshot(t *testing.T) {
	f := newTestManager(t, domain.SessionRecord{ID: "a", Description: "A"})

	records, err := f.manager.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.SessionRecord{{ID: "a", Description: "A"}}, records)
}

func TestManager_Shutdown(t *testing.T) {
	f := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, f.manager.CreateSession(ctx, "a", ""))
	require.NoError(t, f.manager.CreateSession(ctx, "b", ""))
	f.factory.client(t, 2)
	require.Eventually(t, func() bool {
		_, okA := f.manager.ResolveClient("a")
		_, okB := f.manager.ResolveClient("b")
		return okA && okB
	}, 5*time.Second, 5*time.Millisecond)

	f.manager.Shutdown()

	for _, c := range append(f.factory.clientsFor("a"), f.factory.clientsFor("b")...) {
		assert.True(t, c.isDestroyed())
		assert.False(t, c.loggedOut)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	store, _ := newTestStore(t)
	c := newController(domain.SessionRecord{ID: "a"}, &fakeFactory{}, store, &recordingBroadcaster{}, syncSubmitter{}, testOptions(), nil)

	assert.True(t, r.Add(c))
	assert.False(t, r.Add(c))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Resolve("a")
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = r.ResolveClient("a")
	assert.False(t, ok, "a controller without a client is not resolvable")

	_, ok = r.ResolveClient("missing")
	assert.False(t, ok)

	assert.Len(t, r.Controllers(), 1)

	removed, ok := r.Remove("a")
	require.True(t, ok)
	assert.Same(t, c, removed)
	assert.Equal(t, 0, r.Len())
}
