package domain

// ClientEvent is a lifecycle notification emitted by a Client.
type ClientEvent interface{ clientEvent() }

// EventHandler receives client events. It must not block for long.
type EventHandler func(ClientEvent)

type baseClientEvent struct{}

func (baseClientEvent) clientEvent() {}

// PairingCodeEvent carries a fresh pairing challenge to render as a scannable code.
type PairingCodeEvent struct {
	baseClientEvent
	Code string
}

type AuthenticatedEvent struct{ baseClientEvent }

type ReadyEvent struct{ baseClientEvent }

type AuthFailureEvent struct {
	baseClientEvent
	Reason string
}

// DisconnectedEvent signals a permanent disconnection (logged out or replaced).
type DisconnectedEvent struct {
	baseClientEvent
	Reason string
}

// GroupMembershipEvent signals a participant joining or leaving a group.
type GroupMembershipEvent struct {
	baseClientEvent
	GroupID     string
	Participant string
	Joined      bool
}

// Observer channel event names.
const (
	EventInit          = "init"
	EventQR            = "qr"
	EventReady         = "ready"
	EventAuthenticated = "authenticated"
	EventMessage       = "message"
	EventRemoveSession = "remove-session"
	EventCreateSession = "create-session"
)

// QRPayload is the pairing artifact sent to observers.
type QRPayload struct {
	ID  string `json:"id"`
	Src string `json:"src"`
}

// SessionRef identifies the session an observer event is about.
type SessionRef struct {
	ID string `json:"id"`
}

// StatusMessage is a free-text status update for one session.
type StatusMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CreateSessionRequest is sent by observers to start a new session.
type CreateSessionRequest struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Broadcaster fans events out to every connected observer. Delivery is best effort.
type Broadcaster interface {
	Broadcast(event string, data any)
}
