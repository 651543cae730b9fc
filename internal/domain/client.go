package domain

import (
	"context"
	"strings"
	"time"
)

// ContactServer is the canonical address suffix for individual accounts.
const ContactServer = "@s.whatsapp.net"

// Chat is one conversation visible to a session's client.
type Chat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

// SentMessage is the result payload of a delivered message.
type SentMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	From      string    `json:"from,omitempty"`
	Type      string    `json:"type"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Media is an outgoing attachment. Data is base64-encoded.
type Media struct {
	MimeType string
	Filename string
	Data     string
}

// MediaKind is how a media payload is presented in a chat.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// Kind classifies the media by its MIME type. Anything that is not an image,
// video or audio is sent as a document.
func (m Media) Kind() MediaKind {
	switch {
	case strings.HasPrefix(m.MimeType, "image/"):
		return MediaImage
	case strings.HasPrefix(m.MimeType, "video/"):
		return MediaVideo
	case strings.HasPrefix(m.MimeType, "audio/"):
		return MediaAudio
	default:
		return MediaDocument
	}
}

// IsDocument reports whether the media is sent as a document rather than inline media.
func (m Media) IsDocument() bool {
	return m.Kind() == MediaDocument
}

// ParticipantAction is a group membership change.
type ParticipantAction string

const (
	ParticipantAdd     ParticipantAction = "add"
	ParticipantRemove  ParticipantAction = "remove"
	ParticipantPromote ParticipantAction = "promote"
	ParticipantDemote  ParticipantAction = "demote"
)

// Client is the opaque messaging client driving one session.
// Implementations serialize their own internal operations.
type Client interface {
	// Initialize connects the client; lifecycle progress is reported as events.
	Initialize(ctx context.Context) error
	// Destroy tears down the connection without logging out.
	Destroy()
	Logout(ctx context.Context) error

	IsRegisteredUser(ctx context.Context, id string) (bool, error)
	SendText(ctx context.Context, to, text string, mentions ...string) (*SentMessage, error)
	SendMedia(ctx context.Context, to string, media *Media, caption string) (*SentMessage, error)
	Reply(ctx context.Context, to string, quoted *SentMessage, text string) (*SentMessage, error)
	GetChats(ctx context.Context) ([]Chat, error)

	AcceptInvite(ctx context.Context, code string) (string, error)
	LeaveGroup(ctx context.Context, groupID string) error
	UpdateParticipants(ctx context.Context, groupID string, action ParticipantAction, participants []string) error
	SetSubject(ctx context.Context, groupID, subject string) error
	SetDescription(ctx context.Context, groupID, description string) error
	SetMessagesAdminsOnly(ctx context.Context, groupID string, adminsOnly bool) error
	SetInfoAdminsOnly(ctx context.Context, groupID string, adminsOnly bool) error
}

// ClientFactory builds a client bound to a session id. The id is also the
// key of the client's pairing state, so relaunching restores it.
type ClientFactory interface {
	NewClient(sessionID string, handler EventHandler) (Client, error)
}
