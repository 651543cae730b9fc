package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/domain"
)

// Manager creates, restores and removes sessions, keeping the registry and
// the persisted session list aligned.
type Manager struct {
	registry    *Registry
	store       domain.SessionStore
	factory     domain.ClientFactory
	broadcaster domain.Broadcaster
	pool        *ants.Pool
	opts        Options
	metrics     *metrics.SessionMetrics

	// serializes create and remove so a record and its controller appear together
	mu sync.Mutex
}

func NewManager(store domain.SessionStore, factory domain.ClientFactory, broadcaster domain.Broadcaster, opts Options, m *metrics.SessionMetrics) (*Manager, error) {
	workers := opts.GreetingWorkers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			slog.Error("Greeting task panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create greeting pool: %w", err)
	}

	return &Manager{
		registry:    NewRegistry(),
		store:       store,
		factory:     factory,
		broadcaster: broadcaster,
		pool:        pool,
		opts:        opts,
		metrics:     m,
	}, nil
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// CreateSession persists the record (if new) and starts its client.
func (m *Manager) CreateSession(ctx context.Context, id, description string) error {
	if err := domain.ValidateSessionID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry.Resolve(id); ok {
		return domain.ErrSessionExists
	}

	record := domain.SessionRecord{ID: id, Description: description}
	if _, err := m.store.AddIfAbsent(ctx, record); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", id, err)
	}

	c := newController(record, m.factory, m.store, m.broadcaster, m.pool, m.opts, m.metrics)
	m.registry.Add(c)
	c.Start()

	slog.Info("Session created", "session_id", id)
	return nil
}

// Restore clears all ready flags and relaunches every persisted session.
// Records that cannot be started are logged and skipped.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if err := m.store.ResetReady(ctx); err != nil {
		return 0, fmt.Errorf("failed to reset session readiness: %w", err)
	}

	records, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	restored := 0
	for _, r := range records {
		if err := m.CreateSession(ctx, r.ID, r.Description); err != nil {
			slog.Error("Failed to restore session", "session_id", r.ID, "error", err)
			continue
		}
		restored++
	}
	return restored, nil
}

// RemoveSession logs the client out, stops it and forgets the session.
func (m *Manager) RemoveSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.registry.Remove(id)
	if !ok {
		return domain.ErrSessionNotFound
	}

	if err := c.Logout(ctx); err != nil {
		slog.Warn("Logout failed while removing session", "session_id", id, "error", err)
	}
	c.Stop()

	if _, err := m.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", id, err)
	}
	m.broadcaster.Broadcast(domain.EventRemoveSession, id)

	slog.Info("Session removed", "session_id", id)
	return nil
}

// Snapshot returns the persisted session list as sent to new observers.
func (m *Manager) Snapshot(ctx context.Context) ([]domain.SessionRecord, error) {
	return m.store.List(ctx)
}

// Sessions lists persisted sessions together with their live state.
// Sessions that are live but currently unpersisted are included too.
func (m *Manager) Sessions(ctx context.Context) ([]domain.SessionStatus, error) {
	records, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	out := make([]domain.SessionStatus, 0, len(records))
	for _, r := range records {
		seen[r.ID] = true
		status := domain.SessionStatus{SessionRecord: r}
		if c, ok := m.registry.Resolve(r.ID); ok {
			status.State = c.State()
		}
		out = append(out, status)
	}
	for _, c := range m.registry.Controllers() {
		if seen[c.ID()] {
			continue
		}
		out = append(out, domain.SessionStatus{
			SessionRecord: domain.SessionRecord{ID: c.ID(), Description: c.Description()},
			State:         c.State(),
		})
	}
	return out, nil
}

func (m *Manager) ResolveClient(id string) (domain.Client, bool) {
	return m.registry.ResolveClient(id)
}

// Shutdown stops every controller and the greeting pool. Clients stay paired.
func (m *Manager) Shutdown() {
	var wg sync.WaitGroup
	for _, c := range m.registry.Controllers() {
		wg.Add(1)
		go func(c *Controller) {
			defer wg.Done()
			c.Stop()
		}(c)
	}
	wg.Wait()
	m.pool.Release()
}
