package models

import "time"

type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventMessageReplaced EventType = "message_replaced"
	EventNotification    EventType = "notification"
	EventTyping          EventType = "typing"
	EventLanguageChanged EventType = "language_changed"
)

type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
)

// Notification is transient UI feedback (a toast); it never enters the transcript
type Notification struct {
	Level       NotificationLevel `json:"level"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

// TypingState mirrors the session's progress flags
type TypingState struct {
	IsTyping             bool `json:"is_typing"`
	IsGeneratingResponse bool `json:"is_generating_response"`
}

// Event is emitted by a conversation session for presentation layers
type Event struct {
	Type         EventType     `json:"type"`
	SessionID    string        `json:"session_id"`
	At           time.Time     `json:"at"`
	Message      *Message      `json:"message,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Typing       *TypingState  `json:"typing,omitempty"`
	Language     Language      `json:"language,omitempty"`
}
