package model

import (
	"strings"
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// Message statuses reported by the helpdesk.
const (
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
	MessagePending   = "pending"
)

// Attachment is a file attached to a message.
type Attachment struct {
	FileType    string `json:"file_type,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	DataURL     string `json:"data_url,omitempty"`

	Raw Record `json:"-"`
}

var audioExtensions = []string{".ogg", ".oga", ".mp3", ".wav", ".m4a", ".aac"}

// IsAudio reports whether the attachment looks like an audio clip, by MIME
// type or by file extension.
func (a Attachment) IsAudio() bool {
	mime := strings.ToLower(a.FileType)
	if mime == "" {
		mime = strings.ToLower(a.ContentType)
	}
	if strings.Contains(mime, "audio") {
		return true
	}
	url := strings.ToLower(a.DataURL)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}

// NewAttachment extracts an Attachment from a raw payload.
func NewAttachment(raw Record) Attachment {
	return Attachment{
		FileType:    raw.String("file_type"),
		ContentType: raw.String("content_type"),
		DataURL:     raw.String("data_url", "url"),
		Raw:         raw,
	}
}

// Message is a read-only snapshot of a helpdesk message. Direction and sender
// classification are derived from Raw by the analytics classifier.
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversation_id,omitempty"`
	MessageType    any          `json:"message_type"`
	Private        bool         `json:"private"`
	Status         string       `json:"status,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`

	Raw Record `json:"-"`
}

// HasAudio reports whether any attachment has file type "audio".
func (m *Message) HasAudio() bool {
	for _, a := range m.Attachments {
		if a.FileType == "audio" {
			return true
		}
	}
	return false
}

// NewMessage extracts a Message from a raw helpdesk payload.
func NewMessage(raw Record) Message {
	m := Message{Raw: raw, MessageType: raw.Get("message_type")}
	m.ID, _ = raw.Int("id")
	m.ConversationID, _ = raw.Int("conversation_id")
	m.Private = ToBool(raw.Get("private"))
	m.Status = raw.String("status", "delivery_status", "message_status", "state")
	m.CreatedAt, _ = timestamp.Parse(raw.First("created_at", "timestamp"))

	if content, ok := raw.Get("content").(string); ok {
		m.Content = content
	} else if raw.Get("content") == nil {
		m.Content = raw.String("processed_message_content")
	} else {
		m.Content = Text(raw.Get("content"))
	}

	for _, att := range raw.List("attachments") {
		m.Attachments = append(m.Attachments, NewAttachment(att))
	}
	return m
}

var transcriptionKeys = map[string]bool{
	"transcription":      true,
	"transcript":         true,
	"transcribed_text":   true,
	"transcription_text": true,
	"speech_to_text":     true,
}

// Transcription looks for a speech-to-text result already present in the
// payload: attachments first, then content_attributes, then data.
func (m *Message) Transcription() string {
	for _, att := range m.Attachments {
		if t := findTranscription(map[string]any(att.Raw)); t != "" {
			return t
		}
	}
	for _, key := range []string{"content_attributes", "data"} {
		if t := findTranscription(m.Raw.Get(key)); t != "" {
			return t
		}
	}
	return ""
}

func findTranscription(v any) string {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if s, ok := val.(string); ok && transcriptionKeys[k] && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		for _, val := range t {
			if found := findTranscription(val); found != "" {
				return found
			}
		}
	case Record:
		return findTranscription(map[string]any(t))
	case []any:
		for _, item := range t {
			if found := findTranscription(item); found != "" {
				return found
			}
		}
	}
	return ""
}
