package handlers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/conversation"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

var errUnknownSession = errors.New("unknown session")

// HistoryReader returns a user's persisted conversation as text; memory.Manager implements it
type HistoryReader interface {
	FormattedHistory(ctx context.Context, userID string) (string, error)
}

// ChatHandler serves wire requests for every transport
type ChatHandler struct {
	hub     *conversation.Hub
	history HistoryReader
	logger  *zap.Logger
}

func NewChatHandler(hub *conversation.Hub, history HistoryReader, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		hub:     hub,
		history: history,
		logger:  logger.Named("handler"),
	}
}

// Handle runs one request. Failures are reported in the response, never as a Go error.
func (h *ChatHandler) Handle(ctx context.Context, request *models.ChatRequest) *models.ChatResponse {
	if err := h.validateRequest(request); err != nil {
		return h.createErrorResponse(request, models.ErrorParseError, err.Error())
	}

	var (
		response *models.ChatResponse
		err      error
	)
	switch request.Op {
	case models.OpSubmit:
		response, err = h.submit(request)
	case models.OpToggleLanguage:
		response, err = h.toggleLanguage(request)
	case models.OpAttach:
		response, err = h.attach(request)
	case models.OpClearAttachment:
		response, err = h.clearAttachment(request)
	case models.OpComplaint:
		response, err = h.complaint(request)
	case models.OpTranscript:
		response, err = h.transcript(request)
	case models.OpHistory:
		response, err = h.userHistory(ctx, request)
	case models.OpReset:
		response, err = h.reset(request)
	case models.OpClose:
		response, err = h.closeSession(request)
	default:
		return h.createErrorResponse(request, models.ErrorUnknownOp, fmt.Sprintf("unknown op %q", request.Op))
	}
	if err != nil {
		code := errorCode(err)
		if code == models.ErrorInternal {
			h.logger.Error("request failed", zap.String("op", request.Op), zap.String("session_id", request.SessionID), zap.Error(err))
		}
		return h.createErrorResponse(request, code, err.Error())
	}

	h.logger.Debug("request handled",
		zap.String("op", request.Op),
		zap.String("session_id", response.SessionID),
		zap.String("status", response.Status))
	return response
}

func (h *ChatHandler) validateRequest(request *models.ChatRequest) error {
	if request.Op == "" {
		return fmt.Errorf("op is required")
	}
	if request.SessionID != "" && !conversation.ValidSessionID(request.SessionID) {
		return fmt.Errorf("session_id must be at most %d letters, digits, '-' or '_'", conversation.MaxSessionIDLength)
	}
	switch request.Op {
	case models.OpAttach:
		if request.Attachment == nil {
			return fmt.Errorf("attachment is required")
		}
	case models.OpComplaint:
		if request.Complaint == nil {
			return fmt.Errorf("complaint is required")
		}
	case models.OpTranscript, models.OpReset, models.OpClose, models.OpClearAttachment:
		if request.SessionID == "" {
			return fmt.Errorf("session_id is required")
		}
	case models.OpHistory:
		if request.UserID == "" {
			return fmt.Errorf("user_id is required")
		}
	}
	return nil
}

// open returns the request's session, creating it on first use
func (h *ChatHandler) open(request *models.ChatRequest) *conversation.Controller {
	c, _ := h.hub.Open(request.SessionID, request.UserID)
	return c
}

func (h *ChatHandler) existing(request *models.ChatRequest) (*conversation.Controller, error) {
	c, ok := h.hub.Get(request.SessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownSession, request.SessionID)
	}
	return c, nil
}

func (h *ChatHandler) submit(request *models.ChatRequest) (*models.ChatResponse, error) {
	c := h.open(request)
	if request.Attachment != nil {
		if _, err := c.AttachImage(*request.Attachment); err != nil {
			return nil, err
		}
	}
	msg, err := c.Submit(request.Text)
	if err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusAccepted, msg), nil
}

func (h *ChatHandler) toggleLanguage(request *models.ChatRequest) (*models.ChatResponse, error) {
	c := h.open(request)
	msg, err := c.ToggleLanguage()
	if err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusOK, msg), nil
}

func (h *ChatHandler) attach(request *models.ChatRequest) (*models.ChatResponse, error) {
	c := h.open(request)
	if request.Draft != "" {
		c.SetDraft(request.Draft)
	}
	if _, err := c.AttachImage(*request.Attachment); err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusOK), nil
}

func (h *ChatHandler) clearAttachment(request *models.ChatRequest) (*models.ChatResponse, error) {
	c, err := h.existing(request)
	if err != nil {
		return nil, err
	}
	if err := c.ClearAttachment(); err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusOK), nil
}

func (h *ChatHandler) complaint(request *models.ChatRequest) (*models.ChatResponse, error) {
	c := h.open(request)
	msg, err := c.FileComplaint(*request.Complaint)
	if err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusAccepted, msg), nil
}

func (h *ChatHandler) transcript(request *models.ChatRequest) (*models.ChatResponse, error) {
	c, err := h.existing(request)
	if err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusOK, c.Snapshot()...), nil
}

func (h *ChatHandler) userHistory(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	if h.history == nil {
		return nil, fmt.Errorf("history is not configured")
	}
	history, err := h.history.FormattedHistory(ctx, request.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return &models.ChatResponse{
		SessionID: request.SessionID,
		Status:    models.StatusOK,
		History:   history,
	}, nil
}

func (h *ChatHandler) reset(request *models.ChatRequest) (*models.ChatResponse, error) {
	c, err := h.existing(request)
	if err != nil {
		return nil, err
	}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return h.createResponse(c, models.StatusOK, c.Snapshot()...), nil
}

func (h *ChatHandler) closeSession(request *models.ChatRequest) (*models.ChatResponse, error) {
	if !h.hub.Close(request.SessionID) {
		return nil, fmt.Errorf("%w: %s", errUnknownSession, request.SessionID)
	}
	return &models.ChatResponse{SessionID: request.SessionID, Status: models.StatusOK}, nil
}

func (h *ChatHandler) createResponse(c *conversation.Controller, status string, msgs ...models.Message) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID: c.SessionID(),
		Status:    status,
		Language:  c.Language(),
		Messages:  msgs,
		Draft:     c.Draft(),
		Typing:    c.Typing(),
	}
}

func (h *ChatHandler) createErrorResponse(request *models.ChatRequest, errorCode, errorMessage string) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}

// errorCode maps engine errors to wire codes
func errorCode(err error) string {
	switch {
	case errors.Is(err, conversation.ErrEmptyTurn):
		return models.ErrorEmptyTurn
	case errors.Is(err, conversation.ErrNotImage), errors.Is(err, conversation.ErrImageTooLarge):
		return models.ErrorInvalidAttachment
	case errors.Is(err, conversation.ErrAttachmentPending):
		return models.ErrorAttachmentPending
	case errors.Is(err, conversation.ErrInvalidComplaint):
		return models.ErrorInvalidComplaint
	case errors.Is(err, conversation.ErrSessionClosed):
		return models.ErrorSessionClosed
	case errors.Is(err, errUnknownSession):
		return models.ErrorUnknownSession
	}
	return models.ErrorInternal
}
