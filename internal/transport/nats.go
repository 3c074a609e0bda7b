package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
	"github.com/ShivaTri14/nagar-seva-ai/internal/handlers"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

type NATSTransport struct {
	conn    *nats.Conn
	config  *config.Config
	handler *handlers.ChatHandler
	logger  *zap.Logger
	sub     *nats.Subscription
}

func NewNATSTransport(cfg *config.Config, handler *handlers.ChatHandler, logger *zap.Logger) (*NATSTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")

	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", cfg.NatsURL))

	return &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.Subscribe(nt.config.NatsRequestSubject, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.NatsRequestSubject, err)
	}
	nt.sub = sub

	nt.logger.Info("subscribed", zap.String("subject", nt.config.NatsRequestSubject))
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
	defer cancel()

	response := processRequest(ctx, nt.handler, msg.Data)
	if err := nt.sendResponse(msg, response); err != nil {
		nt.logger.Error("failed to send response", zap.Error(err))
	}
}

// processRequest decodes a wire request and runs it through the handler
func processRequest(ctx context.Context, handler *handlers.ChatHandler, data []byte) *models.ChatResponse {
	var request models.ChatRequest
	if err := json.Unmarshal(data, &request); err != nil {
		code, message := models.ErrorParseError, "Invalid request format"
		return &models.ChatResponse{
			Status:       models.StatusError,
			ErrorCode:    &code,
			ErrorMessage: &message,
		}
	}
	return handler.Handle(ctx, &request)
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.ChatResponse) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	nt.logger.Debug("response sent",
		zap.String("session_id", response.SessionID),
		zap.String("status", response.Status))
	return nil
}

// EventSubject is where a session's events are published
func EventSubject(prefix, sessionID string) string {
	return prefix + "." + sessionID
}

// PublishEvent is a conversation.EventSink
func (nt *NATSTransport) PublishEvent(ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		nt.logger.Error("failed to marshal event", zap.Error(err))
		return
	}
	subject := EventSubject(nt.config.NatsEventSubjectPrefix, ev.SessionID)
	if err := nt.conn.Publish(subject, data); err != nil {
		nt.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}

func (nt *NATSTransport) Close() error {
	if nt.conn == nil {
		return nil
	}
	if nt.sub != nil {
		if err := nt.sub.Unsubscribe(); err != nil {
			nt.logger.Warn("failed to unsubscribe", zap.Error(err))
		}
		nt.sub = nil
	}
	if err := nt.conn.Drain(); err != nil {
		nt.conn.Close()
	}
	nt.logger.Info("NATS connection closed")
	return nil
}
