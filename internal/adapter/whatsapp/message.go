package whatsapp

import (
	"fmt"
	"sort"

	"github.com/pscheid92/wagate/internal/domain"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

func parseJID(id string) (types.JID, error) {
	jid, err := types.ParseJID(id)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid address %q: %w", id, err)
	}
	if jid.User == "" {
		return types.JID{}, fmt.Errorf("invalid address %q: missing user", id)
	}
	return jid, nil
}

func parseJIDs(ids []string) ([]types.JID, error) {
	out := make([]types.JID, 0, len(ids))
	for _, id := range ids {
		jid, err := parseJID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, jid)
	}
	return out, nil
}

func participantChange(action domain.ParticipantAction) (whatsmeow.ParticipantChange, error) {
	switch action {
	case domain.ParticipantAdd:
		return whatsmeow.ParticipantChangeAdd, nil
	case domain.ParticipantRemove:
		return whatsmeow.ParticipantChangeRemove, nil
	case domain.ParticipantPromote:
		return whatsmeow.ParticipantChangePromote, nil
	case domain.ParticipantDemote:
		return whatsmeow.ParticipantChangeDemote, nil
	default:
		return "", fmt.Errorf("unknown participant action %q", action)
	}
}

// uploadType maps a media kind to the upload encryption type.
func uploadType(kind domain.MediaKind) whatsmeow.MediaType {
	switch kind {
	case domain.MediaImage:
		return whatsmeow.MediaImage
	case domain.MediaVideo:
		return whatsmeow.MediaVideo
	case domain.MediaAudio:
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}

func textMessage(text string, mentions []string) *waE2E.Message {
	if len(mentions) == 0 {
		return &waE2E.Message{Conversation: proto.String(text)}
	}
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: &waE2E.ContextInfo{MentionedJID: mentions},
		},
	}
}

func replyMessage(quoted *domain.SentMessage, participant, text string) *waE2E.Message {
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(quoted.ID),
				Participant:   proto.String(participant),
				QuotedMessage: &waE2E.Message{Conversation: proto.String(quoted.Body)},
			},
		},
	}
}

func mediaMessage(media *domain.Media, caption string, up whatsmeow.UploadResponse) *waE2E.Message {
	switch media.Kind() {
	case domain.MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       nonEmpty(caption),
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	case domain.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       nonEmpty(caption),
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	case domain.MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	default:
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       nonEmpty(caption),
			Title:         proto.String(media.Filename),
			FileName:      proto.String(media.Filename),
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return proto.String(s)
}

// buildChats lists joined groups followed by known contacts ordered by address.
func buildChats(groups []*types.GroupInfo, contacts map[types.JID]types.ContactInfo) []domain.Chat {
	chats := make([]domain.Chat, 0, len(groups)+len(contacts))
	for _, g := range groups {
		chats = append(chats, domain.Chat{ID: g.JID.String(), Name: g.Name, IsGroup: true})
	}

	contactChats := make([]domain.Chat, 0, len(contacts))
	for jid, info := range contacts {
		name := contactName(info)
		if name == "" {
			continue
		}
		contactChats = append(contactChats, domain.Chat{ID: jid.String(), Name: name})
	}
	sort.Slice(contactChats, func(i, j int) bool { return contactChats[i].ID < contactChats[j].ID })

	return append(chats, contactChats...)
}

func contactName(info types.ContactInfo) string {
	for _, name := range []string{info.FullName, info.FirstName, info.PushName, info.BusinessName} {
		if name != "" {
			return name
		}
	}
	return ""
}
