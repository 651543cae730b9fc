package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/wagate/internal/domain"
	apperrors "github.com/pscheid92/wagate/internal/platform/errors"
)

type sendMessageRequest struct {
	Sender  string `json:"sender" form:"sender"`
	Number  string `json:"number" form:"number"`
	Message string `json:"message" form:"message"`
}

type sendGroupMessageRequest struct {
	Sender    string `json:"sender" form:"sender"`
	GroupName string `json:"groupName" form:"groupName"`
	Message   string `json:"message" form:"message"`
}

type sendMediaRequest struct {
	Sender  string `json:"sender" form:"sender"`
	Number  string `json:"number" form:"number"`
	Caption string `json:"caption" form:"caption"`
	File    string `json:"file" form:"file"`
}

type sendGroupMediaRequest struct {
	Sender    string `json:"sender" form:"sender"`
	GroupName string `json:"groupName" form:"groupName"`
	Caption   string `json:"caption" form:"caption"`
	File      string `json:"file" form:"file"`
}

type joinGroupRequest struct {
	Sender string `json:"sender" form:"sender"`
	Invite string `json:"invite" form:"invite"`
}

type groupRequest struct {
	Sender    string `json:"sender" form:"sender"`
	GroupName string `json:"groupName" form:"groupName"`
}

type participantRequest struct {
	Sender    string `json:"sender" form:"sender"`
	GroupName string `json:"groupName" form:"groupName"`
	Number    string `json:"number" form:"number"`
}

type renameGroupRequest struct {
	Sender    string `json:"sender" form:"sender"`
	GroupName string `json:"groupName" form:"groupName"`
	Subject   string `json:"subject" form:"subject"`
}

type describeGroupRequest struct {
	Sender      string `json:"sender" form:"sender"`
	GroupName   string `json:"groupName" form:"groupName"`
	Description string `json:"description" form:"description"`
}

type messagesAdminsOnlyRequest struct {
	Sender     string `json:"sender" form:"sender"`
	GroupName  string `json:"groupName" form:"groupName"`
	AdminsOnly flag   `json:"adminsOnly" form:"adminsOnly"`
}

type infoAdminsOnlyRequest struct {
	Sender         string `json:"sender" form:"sender"`
	GroupName      string `json:"groupName" form:"groupName"`
	InfoAdminsOnly flag   `json:"infoAdminsOnly" form:"infoAdminsOnly"`
}

func (s *Server) registerCommandRoutes() {
	limiter := newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst, s.httpMetrics)

	s.echo.POST("/send-message", s.handleSendMessage, limiter)
	s.echo.POST("/send-message-group", s.handleSendGroupMessage, limiter)
	s.echo.POST("/send-message-media", s.handleSendMedia, limiter)
	s.echo.POST("/send-message-group-media", s.handleSendGroupMedia, limiter)

	s.echo.POST("/group-join", s.handleJoinGroup, limiter)
	s.echo.POST("/group-leave", s.handleLeaveGroup, limiter)
	s.echo.POST("/group-addParticipant", s.handleParticipant(domain.ParticipantAdd), limiter)
	s.echo.POST("/group-removeParticipant", s.handleParticipant(domain.ParticipantRemove), limiter)
	s.echo.POST("/group-promoteParticipant", s.handleParticipant(domain.ParticipantPromote), limiter)
	s.echo.POST("/group-demoteParticipant", s.handleParticipant(domain.ParticipantDemote), limiter)
	s.echo.POST("/group-changeGroupName", s.handleRenameGroup, limiter)
	s.echo.POST("/group-setDescription", s.handleSetDescription, limiter)
	s.echo.POST("/group-setMessagesAdminsOnly", s.handleSetMessagesAdminsOnly, limiter)
	s.echo.POST("/group-setInfoAdminsOnly", s.handleSetInfoAdminsOnly, limiter)
}

func (s *Server) handleSendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.Number, req.Message); err != nil {
		return err
	}

	msg, err := s.dispatcher.SendMessage(c.Request().Context(), req.Sender, req.Number, req.Message)
	if err != nil {
		return err
	}
	return respond(c, msg)
}

func (s *Server) handleSendGroupMessage(c echo.Context) error {
	var req sendGroupMessageRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName, req.Message); err != nil {
		return err
	}

	msg, err := s.dispatcher.SendGroupMessage(c.Request().Context(), req.Sender, req.GroupName, req.Message)
	if err != nil {
		return err
	}
	return respond(c, msg)
}

func (s *Server) handleSendMedia(c echo.Context) error {
	var req sendMediaRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.Number, req.File); err != nil {
		return err
	}

	msg, err := s.dispatcher.SendMedia(c.Request().Context(), req.Sender, req.Number, req.Caption, req.File)
	if err != nil {
		return err
	}
	return respond(c, msg)
}

func (s *Server) handleSendGroupMedia(c echo.Context) error {
	var req sendGroupMediaRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName, req.File); err != nil {
		return err
	}

	msg, err := s.dispatcher.SendGroupMedia(c.Request().Context(), req.Sender, req.GroupName, req.Caption, req.File)
	if err != nil {
		return err
	}
	return respond(c, msg)
}

func (s *Server) handleJoinGroup(c echo.Context) error {
	var req joinGroupRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.Invite); err != nil {
		return err
	}

	confirmation, err := s.dispatcher.JoinGroup(c.Request().Context(), req.Sender, req.Invite)
	if err != nil {
		return err
	}
	return respond(c, confirmation)
}

func (s *Server) handleLeaveGroup(c echo.Context) error {
	var req groupRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName); err != nil {
		return err
	}

	confirmation, err := s.dispatcher.LeaveGroup(c.Request().Context(), req.Sender, req.GroupName)
	if err != nil {
		return groupError(err)
	}
	return respond(c, confirmation)
}

func (s *Server) handleParticipant(action domain.ParticipantAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req participantRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		if err := required(req.Sender, req.GroupName, req.Number); err != nil {
			return err
		}

		confirmation, err := s.dispatcher.UpdateParticipant(c.Request().Context(), req.Sender, req.GroupName, req.Number, action)
		if err != nil {
			return groupError(err)
		}
		return respond(c, confirmation)
	}
}

func (s *Server) handleRenameGroup(c echo.Context) error {
	var req renameGroupRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName, req.Subject); err != nil {
		return err
	}

	confirmation, err := s.dispatcher.RenameGroup(c.Request().Context(), req.Sender, req.GroupName, req.Subject)
	if err != nil {
		return groupError(err)
	}
	return respond(c, confirmation)
}

func (s *Server) handleSetDescription(c echo.Context) error {
	var req describeGroupRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName); err != nil {
		return err
	}

	confirmation, err := s.dispatcher.SetGroupDescription(c.Request().Context(), req.Sender, req.GroupName, req.Description)
	if err != nil {
		return groupError(err)
	}
	return respond(c, confirmation)
}

func (s *Server) handleSetMessagesAdminsOnly(c echo.Context) error {
	var req messagesAdminsOnlyRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName); err != nil {
		return err
	}
	if !req.AdminsOnly.set {
		return apperrors.ValidationError(msgBodyNotCorrect)
	}

	confirmation, err := s.dispatcher.SetMessagesAdminsOnly(c.Request().Context(), req.Sender, req.GroupName, req.AdminsOnly.value)
	if err != nil {
		return groupError(err)
	}
	return respond(c, confirmation)
}

func (s *Server) handleSetInfoAdminsOnly(c echo.Context) error {
	var req infoAdminsOnlyRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := required(req.Sender, req.GroupName); err != nil {
		return err
	}
	if !req.InfoAdminsOnly.set {
		return apperrors.ValidationError(msgBodyNotCorrect)
	}

	confirmation, err := s.dispatcher.SetInfoAdminsOnly(c.Request().Context(), req.Sender, req.GroupName, req.InfoAdminsOnly.value)
	if err != nil {
		return groupError(err)
	}
	return respond(c, confirmation)
}

// groupError surfaces uncategorized failures of group handlers as 422 with the
// stringified error.
func groupError(err error) error {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return err
	}
	return apperrors.RejectedError(err)
}
