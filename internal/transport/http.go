package transport

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
	"github.com/ShivaTri14/nagar-seva-ai/internal/conversation"
	"github.com/ShivaTri14/nagar-seva-ai/internal/handlers"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
	"github.com/ShivaTri14/nagar-seva-ai/internal/prompts"
)

const (
	pingInterval   = 54 * time.Second
	writeWait      = 10 * time.Second
	requestTimeout = 30 * time.Second
)

// Pinger reports backend health; memory.Manager implements it
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPDeps struct {
	Handler *handlers.ChatHandler
	Hub     *conversation.Hub
	Catalog *prompts.Catalog
	Health  Pinger // optional
	Logger  *zap.Logger
}

// HTTPServer is the web widget gateway: REST for requests, a WebSocket for session events
type HTTPServer struct {
	app     *fiber.App
	config  *config.Config
	handler *handlers.ChatHandler
	hub     *conversation.Hub
	catalog *prompts.Catalog
	health  Pinger
	logger  *zap.Logger
}

func NewHTTPServer(cfg *config.Config, deps HTTPDeps) *HTTPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Catalog == nil {
		deps.Catalog = prompts.Default()
	}
	s := &HTTPServer{
		config:  cfg,
		handler: deps.Handler,
		hub:     deps.Hub,
		catalog: deps.Catalog,
		health:  deps.Health,
		logger:  deps.Logger.Named("http"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		DisableStartupMessage: true,
		// base64 images grow by a third
		BodyLimit:    cfg.MaxImageBytes*2 + 1<<20,
		ErrorHandler: s.handleError,
	})
	s.app.Use(recover.New())

	origins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.AllowedOrigins, ", ")
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	s.app.Get("/health", s.healthCheck)

	api := s.app.Group("/api/v1")
	api.Post("/chat", s.chat)
	api.Get("/sessions/:id/messages", s.sessionMessages)
	api.Get("/users/:id/history", s.userHistory)
	api.Get("/categories", s.categories)

	s.app.Get("/ws", upgradeOnly, websocket.New(s.stream))
	return s
}

// App exposes the fiber app for tests
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

func (s *HTTPServer) Listen() error {
	s.logger.Info("listening", zap.String("addr", s.config.HTTPAddr))
	return s.app.Listen(s.config.HTTPAddr)
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *HTTPServer) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request error", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *HTTPServer) healthCheck(c *fiber.Ctx) error {
	status, code := "ok", fiber.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			status, code = "degraded", fiber.StatusServiceUnavailable
		}
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"service":  s.config.ServiceName,
		"sessions": s.hub.Len(),
	})
}

func (s *HTTPServer) chat(c *fiber.Ctx) error {
	var request models.ChatRequest
	if err := c.BodyParser(&request); err != nil {
		return s.respond(c, errorResponse("", models.ErrorParseError, "Invalid request format"))
	}
	return s.respond(c, s.handler.Handle(c.UserContext(), &request))
}

func (s *HTTPServer) sessionMessages(c *fiber.Ctx) error {
	return s.respond(c, s.handler.Handle(c.UserContext(), &models.ChatRequest{
		Op:        models.OpTranscript,
		SessionID: c.Params("id"),
	}))
}

func (s *HTTPServer) userHistory(c *fiber.Ctx) error {
	return s.respond(c, s.handler.Handle(c.UserContext(), &models.ChatRequest{
		Op:     models.OpHistory,
		UserID: c.Params("id"),
	}))
}

func (s *HTTPServer) categories(c *fiber.Ctx) error {
	lang, err := models.ParseLanguage(c.Query("lang", string(models.LanguageEnglish)))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{
		"language":   lang,
		"categories": s.catalog.Categories(lang),
	})
}

func (s *HTTPServer) respond(c *fiber.Ctx, response *models.ChatResponse) error {
	return c.Status(statusCode(response)).JSON(response)
}

func errorResponse(sessionID, code, message string) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID:    sessionID,
		Status:       models.StatusError,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}
}

// statusCode maps a wire response to an HTTP status
func statusCode(response *models.ChatResponse) int {
	switch response.Status {
	case models.StatusAccepted:
		return fiber.StatusAccepted
	case models.StatusOK:
		return fiber.StatusOK
	}
	if response.ErrorCode == nil {
		return fiber.StatusInternalServerError
	}
	switch *response.ErrorCode {
	case models.ErrorParseError, models.ErrorUnknownOp, models.ErrorEmptyTurn,
		models.ErrorInvalidAttachment, models.ErrorInvalidComplaint, models.ErrorMissingUser:
		return fiber.StatusBadRequest
	case models.ErrorAttachmentPending:
		return fiber.StatusConflict
	case models.ErrorUnknownSession:
		return fiber.StatusNotFound
	case models.ErrorSessionClosed:
		return fiber.StatusGone
	}
	return fiber.StatusInternalServerError
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Frame types sent over the WebSocket
const (
	FrameEvent    = "event"
	FrameResponse = "response"
)

// Frame is one server-to-client WebSocket message
type Frame struct {
	Type     string               `json:"type"`
	Event    *models.Event        `json:"event,omitempty"`
	Response *models.ChatResponse `json:"response,omitempty"`
}

// streamConn is the part of a WebSocket connection the stream uses
type streamConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

func (s *HTTPServer) stream(c *websocket.Conn) {
	s.serveStream(c, c.Query("session_id"), c.Query("user_id"))
}

// serveStream binds one connection to one session. Incoming frames are
// ChatRequests for that session; outgoing frames carry their responses and
// every session event.
func (s *HTTPServer) serveStream(conn streamConn, sessionID, userID string) {
	if sessionID != "" && !conversation.ValidSessionID(sessionID) {
		s.logger.Warn("websocket rejected", zap.String("session_id", sessionID))
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(Frame{
			Type:     FrameResponse,
			Response: errorResponse("", models.ErrorParseError, "Invalid session_id"),
		})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid session_id"))
		conn.Close()
		return
	}

	session, _ := s.hub.Open(sessionID, userID)
	sessionID = session.SessionID()
	logger := s.logger.With(zap.String("session_id", sessionID))

	events, unsubscribe := session.Subscribe(conversation.DefaultEventBuffer)
	responses := make(chan *models.ChatResponse, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(conn, events, responses, logger)
	}()

	logger.Info("websocket connected")
	responses <- s.handler.Handle(context.Background(), &models.ChatRequest{Op: models.OpTranscript, SessionID: sessionID})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			break
		}

		var request models.ChatRequest
		if err := json.Unmarshal(data, &request); err != nil {
			responses <- errorResponse(sessionID, models.ErrorParseError, "Invalid request format")
			continue
		}
		request.SessionID = sessionID
		if request.UserID == "" {
			request.UserID = userID
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		responses <- s.handler.Handle(ctx, &request)
		cancel()
	}

	unsubscribe()
	close(responses)
	<-done
	conn.Close()
	logger.Info("websocket disconnected")
}

// writeLoop is the only writer on conn. After a write error it keeps
// draining so the reader never blocks.
func (s *HTTPServer) writeLoop(conn streamConn, events <-chan models.Event, responses <-chan *models.ChatResponse, logger *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	broken := false
	write := func(frame Frame) {
		if broken {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			logger.Warn("websocket write failed", zap.Error(err))
			broken = true
			conn.Close()
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			write(Frame{Type: FrameEvent, Event: &ev})

		case resp, ok := <-responses:
			if !ok {
				if !broken {
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.CloseMessage, []byte{})
				}
				return
			}
			write(Frame{Type: FrameResponse, Response: resp})

		case <-ticker.C:
			if broken {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				broken = true
				conn.Close()
			}
		}
	}
}
