package whatsapp

import (
	"fmt"

	"github.com/pscheid92/wagate/internal/domain"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"
)

// translateEvent maps a library event to zero or more client events.
func translateEvent(evt any) []domain.ClientEvent {
	switch e := evt.(type) {
	case *events.PairSuccess:
		return []domain.ClientEvent{domain.AuthenticatedEvent{}}
	case *events.Connected:
		return []domain.ClientEvent{domain.ReadyEvent{}}
	case *events.LoggedOut:
		return []domain.ClientEvent{domain.DisconnectedEvent{Reason: fmt.Sprintf("logged out (%v)", e.Reason)}}
	case *events.StreamReplaced:
		return []domain.ClientEvent{domain.DisconnectedEvent{Reason: "replaced by another connection"}}
	case *events.Disconnected:
		return []domain.ClientEvent{domain.DisconnectedEvent{Reason: "connection lost"}}
	case *events.ConnectFailure:
		return []domain.ClientEvent{domain.AuthFailureEvent{Reason: fmt.Sprintf("connect failure (%v): %s", e.Reason, e.Message)}}
	case *events.TemporaryBan:
		return []domain.ClientEvent{domain.AuthFailureEvent{Reason: fmt.Sprintf("temporary ban: %v", e)}}
	case *events.ClientOutdated:
		return []domain.ClientEvent{domain.AuthFailureEvent{Reason: "client outdated"}}
	case *events.GroupInfo:
		out := make([]domain.ClientEvent, 0, len(e.Join)+len(e.Leave))
		for _, p := range e.Join {
			out = append(out, domain.GroupMembershipEvent{GroupID: e.JID.String(), Participant: p.String(), Joined: true})
		}
		for _, p := range e.Leave {
			out = append(out, domain.GroupMembershipEvent{GroupID: e.JID.String(), Participant: p.String(), Joined: false})
		}
		return out
	default:
		return nil
	}
}

// translateQR maps a pairing channel item to a client event.
func translateQR(item whatsmeow.QRChannelItem) (domain.ClientEvent, bool) {
	switch item.Event {
	case whatsmeow.QRChannelEventCode:
		return domain.PairingCodeEvent{Code: item.Code}, true
	case whatsmeow.QRChannelSuccess.Event:
		// PairSuccess is delivered through the event handler.
		return nil, false
	case whatsmeow.QRChannelTimeout.Event:
		return domain.DisconnectedEvent{Reason: "pairing timed out"}, true
	case whatsmeow.QRChannelEventError:
		return domain.AuthFailureEvent{Reason: fmt.Sprintf("pairing failed: %v", item.Error)}, true
	default:
		return domain.AuthFailureEvent{Reason: "pairing failed: " + item.Event}, true
	}
}
