package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/domain"
	apperrors "github.com/pscheid92/wagate/internal/platform/errors"
	"golang.org/x/sync/singleflight"
)

type clientResolver interface {
	ResolveClient(id string) (domain.Client, bool)
}

type mediaFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Media, error)
}

// Service dispatches commands to session clients.
type Service struct {
	sessions    clientResolver
	media       mediaFetcher
	countryCode string
	metrics     *metrics.DispatchMetrics
	chatLookups singleflight.Group
}

func NewService(sessions clientResolver, media mediaFetcher, countryCode string, m *metrics.DispatchMetrics) *Service {
	return &Service{
		sessions:    sessions,
		media:       media,
		countryCode: countryCode,
		metrics:     m,
	}
}

// SendMessage sends a text message to a registered contact.
func (s *Service) SendMessage(ctx context.Context, sender, number, message string) (msg *domain.SentMessage, err error) {
	defer s.observe("send_message", time.Now(), &err)

	client, err := s.resolveSender(sender)
	if err != nil {
		return nil, err
	}
	to, err := s.resolveContact(ctx, client, number)
	if err != nil {
		return nil, err
	}

	msg, err = client.SendText(ctx, to, message)
	if err != nil {
		return nil, apperrors.DeliveryError("failed to send message", err).WithField("to", to)
	}
	return msg, nil
}

// SendGroupMessage sends a text message to a group looked up by name.
func (s *Service) SendGroupMessage(ctx context.Context, sender, groupName, message string) (msg *domain.SentMessage, err error) {
	defer s.observe("send_group_message", time.Now(), &err)

	client, err := s.resolveSender(sender)
	if err != nil {
		return nil, err
	}
	group, err := s.resolveGroup(ctx, sender, client, groupName)
	if err != nil {
		return nil, err
	}

	msg, err = client.SendText(ctx, group.ID, message)
	if err != nil {
		return nil, apperrors.DeliveryError("failed to send group message", err).WithField("group", group.ID)
	}
	return msg, nil
}

// SendMedia downloads fileURL and sends it with a caption to a registered contact.
func (s *Service) SendMedia(ctx context.Context, sender, number, caption, fileURL string) (msg *domain.SentMessage, err error) {
	defer s.observe("send_media", time.Now(), &err)

	client, err := s.resolveSender(sender)
	if err != nil {
		return nil, err
	}
	to, err := s.resolveContact(ctx, client, number)
	if err != nil {
		return nil, err
	}
	return s.sendMedia(ctx, client, to, caption, fileURL)
}

// SendGroupMedia downloads fileURL and sends it with a caption to a group looked up by name.
func (s *Service) SendGroupMedia(ctx context.Context, sender, groupName, caption, fileURL string) (msg *domain.SentMessage, err error) {
	defer s.observe("send_group_media", time.Now(), &err)

	client, err := s.resolveSender(sender)
	if err != nil {
		return nil, err
	}
	group, err := s.resolveGroup(ctx, sender, client, groupName)
	if err != nil {
		return nil, err
	}
	return s.sendMedia(ctx, client, group.ID, caption, fileURL)
}

// sendMedia attaches the fetched file. Documents get a follow-up reply echoing
// the caption, since document messages do not display one inline.
func (s *Service) sendMedia(ctx context.Context, client domain.Client, to, caption, fileURL string) (*domain.SentMessage, error) {
	media, err := s.media.Fetch(ctx, fileURL)
	if err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("The file %s could not be fetched: %v", fileURL, err)).WithField("file", fileURL)
	}

	msg, err := client.SendMedia(ctx, to, media, caption)
	if err != nil {
		return nil, apperrors.DeliveryError("failed to send media", err).WithField("to", to)
	}

	if media.IsDocument() && caption != "" {
		if _, err := client.Reply(ctx, to, msg, caption); err != nil {
			slog.WarnContext(ctx, "Failed to send document caption reply", "to", to, "error", err)
		}
	}
	return msg, nil
}

// JoinGroup accepts a group invite.
func (s *Service) JoinGroup(ctx context.Context, sender, invite string) (confirmation string, err error) {
	defer s.observe("group_join", time.Now(), &err)

	client, err := s.resolveSender(sender)
	if err != nil {
		return "", err
	}
	code := InviteCode(invite)
	if code == "" {
		return "", apperrors.ValidationError(msgBodyNotCorrect)
	}

	if _, err := client.AcceptInvite(ctx, code); err != nil {
		return "", apperrors.DeliveryError("That invite code seems to be invalid.", nil).WithCause(err)
	}
	return "Joined the group!", nil
}

// LeaveGroup leaves a group looked up by name.
func (s *Service) LeaveGroup(ctx context.Context, sender, groupName string) (confirmation string, err error) {
	defer s.observe("group_leave", time.Now(), &err)

	client, group, err := s.senderAndGroup(ctx, sender, groupName)
	if err != nil {
		return "", err
	}
	if err := client.LeaveGroup(ctx, group.ID); err != nil {
		return "", apperrors.RejectedError(err)
	}
	return "Left the group!", nil
}

// UpdateParticipant adds, removes, promotes or demotes one member of a group.
func (s *Service) UpdateParticipant(ctx context.Context, sender, groupName, number string, action domain.ParticipantAction) (confirmation string, err error) {
	defer s.observe("group_"+string(action)+"_participant", time.Now(), &err)

	client, err := s.resolveSender(sender)
	if err != nil {
		return "", err
	}
	participant, err := s.resolveContact(ctx, client, number)
	if err != nil {
		return "", groupFailure(err)
	}
	group, err := s.resolveGroup(ctx, sender, client, groupName)
	if err != nil {
		return "", err
	}

	if err := client.UpdateParticipants(ctx, group.ID, action, []string{participant}); err != nil {
		return "", apperrors.RejectedError(err)
	}

	switch action {
	case domain.ParticipantAdd:
		return fmt.Sprintf("The number %s was added to the group %s!", number, groupName), nil
	case domain.ParticipantRemove:
		return fmt.Sprintf("The number %s was removed from the group %s!", number, groupName), nil
	case domain.ParticipantPromote:
		return fmt.Sprintf("The number %s was promoted on the group %s!", number, groupName), nil
	default:
		return fmt.Sprintf("The number %s was demoted on the group %s!", number, groupName), nil
	}
}

// RenameGroup changes a group's subject.
func (s *Service) RenameGroup(ctx context.Context, sender, groupName, subject string) (confirmation string, err error) {
	defer s.observe("group_rename", time.Now(), &err)

	client, group, err := s.senderAndGroup(ctx, sender, groupName)
	if err != nil {
		return "", err
	}
	if err := client.SetSubject(ctx, group.ID, subject); err != nil {
		return "", apperrors.RejectedError(err)
	}
	s.forgetChats(sender)
	return fmt.Sprintf("The name %q was defined to the group %s!", subject, groupName), nil
}

// SetGroupDescription changes a group's description.
func (s *Service) SetGroupDescription(ctx context.Context, sender, groupName, description string) (confirmation string, err error) {
	defer s.observe("group_set_description", time.Now(), &err)

	client, group, err := s.senderAndGroup(ctx, sender, groupName)
	if err != nil {
		return "", err
	}
	if err := client.SetDescription(ctx, group.ID, description); err != nil {
		return "", apperrors.RejectedError(err)
	}
	return fmt.Sprintf("The description %q was defined to the group %s!", description, groupName), nil
}

// SetMessagesAdminsOnly toggles whether only admins may post in a group.
func (s *Service) SetMessagesAdminsOnly(ctx context.Context, sender, groupName string, adminsOnly bool) (confirmation string, err error) {
	defer s.observe("group_set_messages_admins_only", time.Now(), &err)

	client, group, err := s.senderAndGroup(ctx, sender, groupName)
	if err != nil {
		return "", err
	}
	if err := client.SetMessagesAdminsOnly(ctx, group.ID, adminsOnly); err != nil {
		return "", apperrors.RejectedError(err)
	}
	return fmt.Sprintf("The messages admins only was defined to %t on the group %s!", adminsOnly, groupName), nil
}

// SetInfoAdminsOnly toggles whether only admins may edit a group's info.
func (s *Service) SetInfoAdminsOnly(ctx context.Context, sender, groupName string, adminsOnly bool) (confirmation string, err error) {
	defer s.observe("group_set_info_admins_only", time.Now(), &err)

	client, group, err := s.senderAndGroup(ctx, sender, groupName)
	if err != nil {
		return "", err
	}
	if err := client.SetInfoAdminsOnly(ctx, group.ID, adminsOnly); err != nil {
		return "", apperrors.RejectedError(err)
	}
	return fmt.Sprintf("The info admins only was defined to %t on the group %s!", adminsOnly, groupName), nil
}

const (
	msgBodyNotCorrect = "The body is not correct"

	chatLookupTimeout = 30 * time.Second
)

func (s *Service) resolveSender(sender string) (domain.Client, error) {
	client, ok := s.sessions.ResolveClient(sender)
	if !ok {
		return nil, apperrors.NotFoundError(fmt.Sprintf("The sender: %s is not found!", sender)).WithField("sender", sender)
	}
	return client, nil
}

func (s *Service) resolveContact(ctx context.Context, client domain.Client, number string) (string, error) {
	id := NormalizeNumber(number, s.countryCode)
	if id == "" {
		return "", apperrors.ValidationError(msgBodyNotCorrect).WithField("number", number)
	}

	registered, err := client.IsRegisteredUser(ctx, id)
	if err != nil {
		return "", apperrors.InternalError(fmt.Sprintf("failed to check number registration: %v", err), err).WithField("number", id)
	}
	if !registered {
		return "", apperrors.NotFoundError(fmt.Sprintf("The number %s is not registered!", number)).WithField("number", id)
	}
	return id, nil
}

// resolveGroup finds the first visible chat whose name matches case-insensitively
// and requires it to be a group. The shared lookup outlives any single caller,
// so one cancelled request does not fail the others waiting on it.
func (s *Service) resolveGroup(ctx context.Context, sender string, client domain.Client, groupName string) (domain.Chat, error) {
	ch := s.chatLookups.DoChan(sender, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), chatLookupTimeout)
		defer cancel()
		return client.GetChats(lookupCtx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return domain.Chat{}, apperrors.RejectedError(ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return domain.Chat{}, apperrors.RejectedError(res.Err)
	}

	for _, chat := range res.Val.([]domain.Chat) {
		if !strings.EqualFold(chat.Name, groupName) {
			continue
		}
		if !chat.IsGroup {
			return domain.Chat{}, apperrors.NotFoundError(fmt.Sprintf("The name: %s is not a group!", groupName)).WithField("chat", chat.ID)
		}
		return chat, nil
	}
	return domain.Chat{}, apperrors.NotFoundError(fmt.Sprintf("The group: %s is not found!", groupName)).WithField("group", groupName)
}

func (s *Service) senderAndGroup(ctx context.Context, sender, groupName string) (domain.Client, domain.Chat, error) {
	client, err := s.resolveSender(sender)
	if err != nil {
		return nil, domain.Chat{}, err
	}
	group, err := s.resolveGroup(ctx, sender, client, groupName)
	if err != nil {
		return nil, domain.Chat{}, err
	}
	return client, group, nil
}

// groupFailure reports an uncategorized failure inside a group command as a
// rejection, which callers see as 422 with the underlying error.
func groupFailure(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Type == apperrors.TypeInternal && appErr.Cause != nil {
		return apperrors.RejectedError(appErr.Cause).WithField("cause", appErr.Message)
	}
	return err
}

// forgetChats drops an in-flight lookup so the next one sees a renamed group.
func (s *Service) forgetChats(sender string) {
	s.chatLookups.Forget(sender)
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	s.metrics.Observe(operation, start, *err)
}
