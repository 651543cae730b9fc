package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/sessionstore"
	"github.com/stretchr/testify/require"
)

// --- fake client ---

type sentText struct {
	to       string
	text     string
	mentions []string
}

type fakeClient struct {
	mu          sync.Mutex
	id          string
	handler     domain.EventHandler
	initErr     error
	initialized bool
	destroyed   bool
	loggedOut   bool
	sent        []sentText
}

func (c *fakeClient) emit(evt domain.ClientEvent) { c.handler(evt) }

func (c *fakeClient) Initialize(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initErr != nil {
		return c.initErr
	}
	c.initialized = true
	return nil
}

func (c *fakeClient) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
}

func (c *fakeClient) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeClient) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
	return nil
}

func (c *fakeClient) IsRegisteredUser(context.Context, string) (bool, error) { return true, nil }

func (c *fakeClient) SendText(_ context.Context, to, text string, mentions ...string) (*domain.SentMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentText{to: to, text: text, mentions: mentions})
	return &domain.SentMessage{ID: "m1", To: to, Body: text}, nil
}

func (c *fakeClient) sentTexts() []sentText {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentText{}, c.sent...)
}

func (c *fakeClient) SendMedia(context.Context, string, *domain.Media, string) (*domain.SentMessage, error) {
	return &domain.SentMessage{}, nil
}

func (c *fakeClient) Reply(context.Context, string, *domain.SentMessage, string) (*domain.SentMessage, error) {
	return &domain.SentMessage{}, nil
}

func (c *fakeClient) GetChats(context.Context) ([]domain.Chat, error) { return nil, nil }

func (c *fakeClient) AcceptInvite(context.Context, string) (string, error) { return "", nil }

func (c *fakeClient) LeaveGroup(context.Context, string) error { return nil }

func (c *fakeClient) UpdateParticipants(context.Context, string, domain.ParticipantAction, []string) error {
	return nil
}

func (c *fakeClient) SetSubject(context.Context, string, string) error { return nil }

func (c *fakeClient) SetDescription(context.Context, string, string) error { return nil }

func (c *fakeClient) SetMessagesAdminsOnly(context.Context, string, bool) error { return nil }

func (c *fakeClient) SetInfoAdminsOnly(context.Context, string, bool) error { return nil }

// --- fake factory ---

type fakeFactory struct {
	mu       sync.Mutex
	clients  []*fakeClient
	initErrs []error
}

func (f *fakeFactory) NewClient(sessionID string, handler domain.EventHandler) (domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := &fakeClient{id: sessionID, handler: handler}
	if len(f.initErrs) > 0 {
		c.initErr, f.initErrs = f.initErrs[0], f.initErrs[1:]
	}
	f.clients = append(f.clients, c)
	return c, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *fakeFactory) client(t *testing.T, n int) *fakeClient {
	t.Helper()
	require.Eventually(t, func() bool { return f.count() >= n }, 5*time.Second, 5*time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[n-1]
}

func (f *fakeFactory) clientsFor(id string) []*fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeClient
	for _, c := range f.clients {
		if c.id == id {
			out = append(out, c)
		}
	}
	return out
}

// --- recording broadcaster ---

type frame struct {
	event string
	data  any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []frame
}

func (b *recordingBroadcaster) Broadcast(event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, frame{event: event, data: data})
}

func (b *recordingBroadcaster) has(event string, data any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.frames {
		if f.event == event && f.data == data {
			return true
		}
	}
	return false
}

func (b *recordingBroadcaster) find(event string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.frames {
		if f.event == event {
			return f.data, true
		}
	}
	return nil, false
}

// --- helpers ---

type syncSubmitter struct{}

func (syncSubmitter) Submit(task func()) error {
	task()
	return nil
}

type rejectingSubmitter struct{}

func (rejectingSubmitter) Submit(func()) error { return errors.New("pool overloaded") }

type memoryDocument struct {
	mu      sync.Mutex
	records []domain.SessionRecord
}

func (d *memoryDocument) Load(context.Context) ([]domain.SessionRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.SessionRecord{}, d.records...), nil
}

func (d *memoryDocument) Save(_ context.Context, records []domain.SessionRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append([]domain.SessionRecord{}, records...)
	return nil
}

func (d *memoryDocument) snapshot() []domain.SessionRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.SessionRecord{}, d.records...)
}

func newTestStore(t *testing.T, records ...domain.SessionRecord) (*sessionstore.Store, *memoryDocument) {
	t.Helper()
	doc := &memoryDocument{records: records}
	store, err := sessionstore.Open(context.Background(), doc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, doc
}

func testOptions() Options {
	return Options{
		WelcomeTemplate:     "Olá @{participant}, bem vindo ao grupo!",
		FarewellTemplate:    "Até mais @{participant}, sentiremos saudade!",
		ReconnectMaxElapsed: 10 * time.Second,
		RestartDelay:        10 * time.Millisecond,
		GreetingWorkers:     4,
	}
}

func waitForState(t *testing.T, c *Controller, want domain.SessionState) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, 5*time.Second, 5*time.Millisecond,
		"expected state %s, got %s", want, c.State())
}
