package models

import (
	"fmt"
	"strings"
	"time"
)

// Language selects which keyword and template table is active
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
)

// Languages lists every supported language in display order
var Languages = []Language{LanguageEnglish, LanguageHindi}

// Other returns the language a toggle switches to
func (l Language) Other() Language {
	if l == LanguageHindi {
		return LanguageEnglish
	}
	return LanguageHindi
}

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageHindi
}

// ParseLanguage accepts the canonical names plus the short codes "en" and "hi"
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "en":
		return LanguageEnglish, nil
	case "hindi", "hi":
		return LanguageHindi, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "error"
)

const AttachmentImage = "image"

// Attachment references an image held by the session; the bytes never travel
// with the message.
type Attachment struct {
	Kind     string `json:"kind"`
	ImageID  string `json:"image_id"`
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Message is a single conversation turn. ID and Timestamp are assigned by the
// message log on append.
type Message struct {
	ID         int64       `json:"id"`
	Text       string      `json:"text"`
	Sender     Sender      `json:"sender"`
	Timestamp  time.Time   `json:"timestamp"`
	Status     Status      `json:"status,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Image is a raw image blob submitted by the user
type Image struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Size returns the blob length in bytes
func (i Image) Size() int {
	return len(i.Data)
}

// Ref builds the attachment reference stored on a message
func (i Image) Ref() *Attachment {
	return &Attachment{
		Kind:     AttachmentImage,
		ImageID:  i.ID,
		Name:     i.Name,
		MIMEType: i.MIMEType,
		Size:     i.Size(),
	}
}
