package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/wagate/internal/broadcast"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/platform/config"
)

// --- Mock implementations ---

type mockDispatcher struct {
	sendMessageFn           func(ctx context.Context, sender, number, message string) (*domain.SentMessage, error)
	sendGroupMessageFn      func(ctx context.Context, sender, groupName, message string) (*domain.SentMessage, error)
	sendMediaFn             func(ctx context.Context, sender, number, caption, fileURL string) (*domain.SentMessage, error)
	sendGroupMediaFn        func(ctx context.Context, sender, groupName, caption, fileURL string) (*domain.SentMessage, error)
	joinGroupFn             func(ctx context.Context, sender, invite string) (string, error)
	leaveGroupFn            func(ctx context.Context, sender, groupName string) (string, error)
	updateParticipantFn     func(ctx context.Context, sender, groupName, number string, action domain.ParticipantAction) (string, error)
	renameGroupFn           func(ctx context.Context, sender, groupName, subject string) (string, error)
	setGroupDescriptionFn   func(ctx context.Context, sender, groupName, description string) (string, error)
	setMessagesAdminsOnlyFn func(ctx context.Context, sender, groupName string, adminsOnly bool) (string, error)
	setInfoAdminsOnlyFn     func(ctx context.Context, sender, groupName string, adminsOnly bool) (string, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockDispatcher) SendMessage(ctx context.Context, sender, number, message string) (*domain.SentMessage, error) {
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, sender, number, message)
	}
	return nil, errNotImplemented
}

func (m *mockDispatcher) SendGroupMessage(ctx context.Context, sender, groupName, message string) (*domain.SentMessage, error) {
	if m.sendGroupMessageFn != nil {
		return m.sendGroupMessageFn(ctx, sender, groupName, message)
	}
	return nil, errNotImplemented
}

func (m *mockDispatcher) SendMedia(ctx context.Context, sender, number, caption, fileURL string) (*domain.SentMessage, error) {
	if m.sendMediaFn != nil {
		return m.sendMediaFn(ctx, sender, number, caption, fileURL)
	}
	return nil, errNotImplemented
}

func (m *mockDispatcher) SendGroupMedia(ctx context.Context, sender, groupName, caption, fileURL string) (*domain.SentMessage, error) {
	if m.sendGroupMediaFn != nil {
		return m.sendGroupMediaFn(ctx, sender, groupName, caption, fileURL)
	}
	return nil, errNotImplemented
}

func (m *mockDispatcher) JoinGroup(ctx context.Context, sender, invite string) (string, error) {
	if m.joinGroupFn != nil {
		return m.joinGroupFn(ctx, sender, invite)
	}
	return "", errNotImplemented
}

func (m *mockDispatcher) LeaveGroup(ctx context.Context, sender, groupName string) (string, error) {
	if m.leaveGroupFn != nil {
		return m.leaveGroupFn(ctx, sender, groupName)
	}
	return "", errNotImplemented
}

func (m *mockDispatcher) UpdateParticipant(ctx context.Context, sender, groupName, number string, action domain.ParticipantAction) (string, error) {
	if m.updateParticipantFn != nil {
		return m.updateParticipantFn(ctx, sender, groupName, number, action)
	}
	return "", errNotImplemented
}

func (m *mockDispatcher) RenameGroup(ctx context.Context, sender, groupName, subject string) (string, error) {
	if m.renameGroupFn != nil {
		return m.renameGroupFn(ctx, sender, groupName, subject)
	}
	return "", errNotImplemented
}

func (m *mockDispatcher) SetGroupDescription(ctx context.Context, sender, groupName, description string) (string, error) {
	if m.setGroupDescriptionFn != nil {
		return m.setGroupDescriptionFn(ctx, sender, groupName, description)
	}
	return "", errNotImplemented
}

func (m *mockDispatcher) SetMessagesAdminsOnly(ctx context.Context, sender, groupName string, adminsOnly bool) (string, error) {
	if m.setMessagesAdminsOnlyFn != nil {
		return m.setMessagesAdminsOnlyFn(ctx, sender, groupName, adminsOnly)
	}
	return "", errNotImplemented
}

func (m *mockDispatcher) SetInfoAdminsOnly(ctx context.Context, sender, groupName string, adminsOnly bool) (string, error) {
	if m.setInfoAdminsOnlyFn != nil {
		return m.setInfoAdminsOnlyFn(ctx, sender, groupName, adminsOnly)
	}
	return "", errNotImplemented
}

type mockSessions struct {
	sessionsFn      func(ctx context.Context) ([]domain.SessionStatus, error)
	snapshotFn      func(ctx context.Context) ([]domain.SessionRecord, error)
	createSessionFn func(ctx context.Context, id, description string) error
	removeSessionFn func(ctx context.Context, id string) error
}

func (m *mockSessions) Sessions(ctx context.Context) ([]domain.SessionStatus, error) {
	if m.sessionsFn != nil {
		return m.sessionsFn(ctx)
	}
	return nil, nil
}

func (m *mockSessions) Snapshot(ctx context.Context) ([]domain.SessionRecord, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx)
	}
	return []domain.SessionRecord{}, nil
}

func (m *mockSessions) CreateSession(ctx context.Context, id, description string) error {
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, id, description)
	}
	return nil
}

func (m *mockSessions) RemoveSession(ctx context.Context, id string) error {
	if m.removeSessionFn != nil {
		return m.removeSessionFn(ctx, id)
	}
	return nil
}

type mockHub struct {
	registerFn   func(conn *websocket.Conn, initial ...broadcast.Frame) (uuid.UUID, error)
	unregistered chan uuid.UUID
}

func (m *mockHub) Register(conn *websocket.Conn, initial ...broadcast.Frame) (uuid.UUID, error) {
	if m.registerFn != nil {
		return m.registerFn(conn, initial...)
	}
	return uuid.New(), nil
}

func (m *mockHub) Unregister(id uuid.UUID) {
	if m.unregistered != nil {
		m.unregistered <- id
	}
}

// --- Test helpers ---

func newTestServer(t *testing.T, opts ...func(*Deps)) *Server {
	t.Helper()

	deps := Deps{
		Dispatcher: &mockDispatcher{},
		Sessions:   &mockSessions{},
		Hub:        &mockHub{},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	cfg := &config.Config{AppEnv: "test", Port: "0", RateLimitPerSecond: 1000, RateLimitBurst: 1000}
	return NewServer(cfg, deps)
}

func withDispatcher(d dispatcher) func(*Deps) {
	return func(deps *Deps) { deps.Dispatcher = d }
}

func withSessions(s sessionManager) func(*Deps) {
	return func(deps *Deps) { deps.Sessions = s }
}

func withHub(h observerHub) func(*Deps) {
	return func(deps *Deps) { deps.Hub = h }
}

func withHealthChecks(checks ...HealthCheck) func(*Deps) {
	return func(deps *Deps) { deps.HealthChecks = checks }
}

func postJSON(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func postForm(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
