package model

import (
	"strings"
	"time"
	"unicode"
)

// EventMessageCreated is the only webhook event the bot reacts to.
const EventMessageCreated = "message_created"

// WebhookEvent is a helpdesk webhook delivery. Fields are resolved from the
// top level first and from the nested "data" object when the top level does
// not carry a conversation.
type WebhookEvent struct {
	Event          string
	MessageID      string
	ConversationID string
	InboxID        string
	MessageType    any
	Private        any
	Content        string
	Attachments    []Attachment
	SenderName     string

	Raw Record
}

// ParseWebhookEvent resolves a raw webhook payload.
func ParseWebhookEvent(raw Record) WebhookEvent {
	ev := WebhookEvent{Raw: raw, Event: raw.String("event")}

	ev.Content = raw.String("content")
	ev.MessageType = raw.Get("message_type")
	ev.Private = raw.Get("private")
	ev.MessageID = raw.String("id", "message_id")
	attachments := raw.List("attachments")

	conv := raw.Object("conversation")
	ev.ConversationID = Text(conv.First("id"))
	ev.InboxID = Text(conv.First("inbox_id"))

	if ev.ConversationID == "" {
		nested := raw.Object("data")
		ev.Content = nested.String("content")
		ev.MessageType = nested.Get("message_type")
		ev.Private = nested.Get("private")
		if list := nested.List("attachments"); len(list) > 0 {
			attachments = list
		}
		if ev.MessageID == "" {
			ev.MessageID = nested.String("id", "message_id")
		}
		ev.ConversationID = nested.String("conversation_id")
		if ev.InboxID == "" {
			ev.InboxID = nested.String("inbox_id")
		}
	}

	for _, att := range attachments {
		ev.Attachments = append(ev.Attachments, NewAttachment(att))
	}

	sender := raw.Object("sender")
	if sender == nil {
		sender = raw.Object("data").Object("sender")
	}
	ev.SenderName = sender.String("name", "available_name")
	return ev
}

// IsCustomerMessage reports whether the event is a public incoming message
// bound to a conversation.
func (e *WebhookEvent) IsCustomerMessage() bool {
	incoming := false
	switch t := e.MessageType.(type) {
	case string:
		incoming = t == "incoming"
	default:
		if n, ok := ToInt(t); ok {
			incoming = n == 0
		}
	}
	private, isBool := e.Private.(bool)
	return incoming && isBool && !private && e.ConversationID != ""
}

// HasAudio reports whether any attachment looks like audio.
func (e *WebhookEvent) HasAudio() bool {
	for _, a := range e.Attachments {
		if a.IsAudio() {
			return true
		}
	}
	return false
}

// FirstName returns the sender's first name title-cased, or "Cliente".
func (e *WebhookEvent) FirstName() string {
	fields := strings.Fields(e.SenderName)
	if len(fields) == 0 {
		return "Cliente"
	}
	return titleCase(fields[0])
}

func titleCase(word string) string {
	runes := []rune(word)
	upperNext := true
	for i, r := range runes {
		if !unicode.IsLetter(r) {
			upperNext = true
			continue
		}
		if upperNext {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
		upperNext = false
	}
	return string(runes)
}

// ReplyJob is a deferred reply-generation task queued by the webhook.
type ReplyJob struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	InboxID        string    `json:"inbox_id,omitempty"`
	FirstName      string    `json:"first_name"`
	Message        string    `json:"message"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}
