package whatsapp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/wagate/internal/domain"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
)

var ErrNotPaired = errors.New("client is not paired")

// Client drives one paired device.
type Client struct {
	wa      *whatsmeow.Client
	db      *sql.DB
	handler domain.EventHandler
	log     *slog.Logger

	destroyOnce sync.Once
}

func (c *Client) onEvent(evt any) {
	for _, e := range translateEvent(evt) {
		c.handler(e)
	}
}

// Initialize connects the client. An unpaired device first streams pairing codes.
func (c *Client) Initialize(ctx context.Context) error {
	if c.wa.Store.ID == nil {
		qrCh, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to open pairing channel: %w", err)
		}
		go c.pumpPairing(qrCh)
	}

	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

func (c *Client) pumpPairing(qrCh <-chan whatsmeow.QRChannelItem) {
	for item := range qrCh {
		if evt, ok := translateQR(item); ok {
			c.handler(evt)
		}
	}
}

func (c *Client) Destroy() {
	c.destroyOnce.Do(func() {
		c.wa.Disconnect()
		if err := c.db.Close(); err != nil {
			c.log.Warn("Failed to close device store", "error", err)
		}
	})
}

func (c *Client) Logout(_ context.Context) error {
	if c.wa.Store.ID == nil {
		return nil
	}
	if err := c.wa.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

func (c *Client) ownJID() (types.JID, error) {
	if c.wa.Store.ID == nil {
		return types.JID{}, ErrNotPaired
	}
	return c.wa.Store.ID.ToNonAD(), nil
}

func (c *Client) IsRegisteredUser(_ context.Context, id string) (bool, error) {
	jid, err := parseJID(id)
	if err != nil {
		return false, err
	}

	resp, err := c.wa.IsOnWhatsApp([]string{"+" + jid.User})
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return len(resp) > 0 && resp[0].IsIn, nil
}

func (c *Client) SendText(ctx context.Context, to, text string, mentions ...string) (*domain.SentMessage, error) {
	jid, err := parseJID(to)
	if err != nil {
		return nil, err
	}

	resp, err := c.wa.SendMessage(ctx, jid, textMessage(text, mentions))
	if err != nil {
		return nil, fmt.Errorf("failed to send text: %w", err)
	}
	return c.sent(resp, jid, "chat", text), nil
}

func (c *Client) SendMedia(ctx context.Context, to string, media *domain.Media, caption string) (*domain.SentMessage, error) {
	jid, err := parseJID(to)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(media.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode media: %w", err)
	}

	kind := media.Kind()
	up, err := c.wa.Upload(ctx, data, uploadType(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	resp, err := c.wa.SendMessage(ctx, jid, mediaMessage(media, caption, up))
	if err != nil {
		return nil, fmt.Errorf("failed to send media: %w", err)
	}
	return c.sent(resp, jid, string(kind), caption), nil
}

func (c *Client) Reply(ctx context.Context, to string, quoted *domain.SentMessage, text string) (*domain.SentMessage, error) {
	jid, err := parseJID(to)
	if err != nil {
		return nil, err
	}
	own, err := c.ownJID()
	if err != nil {
		return nil, err
	}

	resp, err := c.wa.SendMessage(ctx, jid, replyMessage(quoted, own.String(), text))
	if err != nil {
		return nil, fmt.Errorf("failed to send reply: %w", err)
	}
	return c.sent(resp, jid, "chat", text), nil
}

func (c *Client) sent(resp whatsmeow.SendResponse, to types.JID, kind, body string) *domain.SentMessage {
	msg := &domain.SentMessage{
		ID:        resp.ID,
		To:        to.String(),
		Type:      kind,
		Body:      body,
		Timestamp: resp.Timestamp,
	}
	if own, err := c.ownJID(); err == nil {
		msg.From = own.String()
	}
	return msg
}

func (c *Client) GetChats(_ context.Context) ([]domain.Chat, error) {
	groups, err := c.wa.GetJoinedGroups()
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	contacts, err := c.wa.Store.Contacts.GetAllContacts()
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return buildChats(groups, contacts), nil
}

func (c *Client) AcceptInvite(_ context.Context, code string) (string, error) {
	jid, err := c.wa.JoinGroupWithLink(code)
	if err != nil {
		return "", fmt.Errorf("failed to join group: %w", err)
	}
	return jid.String(), nil
}

func (c *Client) LeaveGroup(_ context.Context, groupID string) error {
	jid, err := parseJID(groupID)
	if err != nil {
		return err
	}
	return c.wa.LeaveGroup(jid)
}

func (c *Client) UpdateParticipants(_ context.Context, groupID string, action domain.ParticipantAction, participants []string) error {
	jid, err := parseJID(groupID)
	if err != nil {
		return err
	}
	change, err := participantChange(action)
	if err != nil {
		return err
	}
	jids, err := parseJIDs(participants)
	if err != nil {
		return err
	}

	results, err := c.wa.UpdateGroupParticipants(jid, jids, change)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != 0 {
			return fmt.Errorf("participant %s: %s failed with code %d", r.JID, action, r.Error)
		}
	}
	return nil
}

func (c *Client) SetSubject(_ context.Context, groupID, subject string) error {
	jid, err := parseJID(groupID)
	if err != nil {
		return err
	}
	return c.wa.SetGroupName(jid, subject)
}

func (c *Client) SetDescription(_ context.Context, groupID, description string) error {
	jid, err := parseJID(groupID)
	if err != nil {
		return err
	}
	return c.wa.SetGroupTopic(jid, "", "", description)
}

func (c *Client) SetMessagesAdminsOnly(_ context.Context, groupID string, adminsOnly bool) error {
	jid, err := parseJID(groupID)
	if err != nil {
		return err
	}
	return c.wa.SetGroupAnnounce(jid, adminsOnly)
}

func (c *Client) SetInfoAdminsOnly(_ context.Context, groupID string, adminsOnly bool) error {
	jid, err := parseJID(groupID)
	if err != nil {
		return err
	}
	return c.wa.SetGroupLocked(jid, adminsOnly)
}
