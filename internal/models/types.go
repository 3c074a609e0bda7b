package models

// Chat operations accepted over NATS, HTTP and WebSocket
const (
	OpSubmit          = "submit"
	OpToggleLanguage  = "toggle_language"
	OpAttach          = "attach"
	OpClearAttachment = "clear_attachment"
	OpComplaint       = "complaint"
	OpTranscript      = "transcript"
	OpHistory         = "history"
	OpReset           = "reset"
	OpClose           = "close"
)

// ChatRequest from a web client or backend
type ChatRequest struct {
	Op         string         `json:"op"`
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id,omitempty"`
	Text       string         `json:"text,omitempty"`
	Draft      string         `json:"draft,omitempty"`
	Attachment *Image         `json:"attachment,omitempty"`
	Complaint  *ComplaintForm `json:"complaint,omitempty"`
}

// ComplaintForm is the structured complaint drawer
type ComplaintForm struct {
	Type        string `json:"type"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// ChatResponse to the caller. Follow-up messages arrive later as events.
type ChatResponse struct {
	SessionID    string      `json:"session_id"`
	Status       string      `json:"status"` // "ACCEPTED", "OK", "ERROR"
	Language     Language    `json:"language,omitempty"`
	Messages     []Message   `json:"messages,omitempty"`
	Draft        string      `json:"draft,omitempty"`
	History      string      `json:"history,omitempty"`
	Typing       TypingState `json:"typing"`
	ErrorCode    *string     `json:"error_code,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
}

// Status constants
const (
	StatusAccepted = "ACCEPTED"
	StatusOK       = "OK"
	StatusError    = "ERROR"
)

// Error codes
const (
	ErrorParseError        = "PARSE_ERROR"
	ErrorUnknownOp         = "UNKNOWN_OP"
	ErrorEmptyTurn         = "EMPTY_TURN"
	ErrorInvalidAttachment = "INVALID_ATTACHMENT"
	ErrorAttachmentPending = "ATTACHMENT_PENDING"
	ErrorInvalidComplaint  = "INVALID_COMPLAINT"
	ErrorSessionClosed     = "SESSION_CLOSED"
	ErrorUnknownSession    = "UNKNOWN_SESSION"
	ErrorMissingUser       = "MISSING_USER"
	ErrorInternal          = "INTERNAL_ERROR"
)
