package model

import (
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// Conversation statuses understood by the helpdesk.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
	StatusPending  = "pending"
	StatusSnoozed  = "snoozed"
)

// Conversation is a read-only snapshot of a helpdesk conversation.
type Conversation struct {
	// ID is the API id, falling back to the display id.
	ID int64 `json:"id"`
	// APIID is the id accepted by the messages endpoint; zero when the
	// payload only carried a display id.
	APIID          int64     `json:"api_id,omitempty"`
	InboxID        int64     `json:"inbox_id,omitempty"`
	AssigneeID     string    `json:"assignee_id,omitempty"`
	AssigneeName   string    `json:"assignee_name,omitempty"`
	TeamID         string    `json:"team_id,omitempty"`
	Status         string    `json:"status"`
	ContactName    string    `json:"contact_name"`
	ContactPhone   string    `json:"contact_phone"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	FirstReplyAt   time.Time `json:"first_reply_at"`

	Raw Record `json:"-"`
}

// HasID reports whether the payload carried any usable id.
func (c *Conversation) HasID() bool {
	return c.ID != 0
}

// IsAssigned reports whether an agent is assigned.
func (c *Conversation) IsAssigned() bool {
	return c.AssigneeID != "" && c.AssigneeID != "0"
}

// ActivityAt is the instant used for pagination staleness checks.
func (c *Conversation) ActivityAt() (time.Time, bool) {
	return timestamp.Parse(c.Raw.First("last_activity_at", "updated_at", "created_at"))
}

// NewConversation extracts a Conversation from a raw helpdesk payload.
func NewConversation(raw Record) Conversation {
	c := Conversation{Raw: raw}

	if id, ok := raw.Int("id"); ok {
		c.APIID = id
		c.ID = id
	} else if id, ok := raw.Int("display_id"); ok {
		c.ID = id
	}
	c.InboxID, _ = raw.Int("inbox_id")

	meta := raw.Object("meta")
	sender := meta.Object("sender")
	if sender == nil {
		sender = raw.Object("contact")
	}
	c.ContactName = sender.String("name", "identifier")
	c.ContactPhone = sender.String("phone_number", "phone", "identifier")

	assignee := meta.Object("assignee")
	if assignee == nil {
		assignee = raw.Object("assignee")
	}
	if assignee != nil {
		c.AssigneeID = Text(assignee.Get("id"))
		c.AssigneeName = assignee.String("name", "email")
	}

	c.Status = Text(raw.First("status"))
	if c.Status == "" {
		c.Status = meta.String("status")
	}

	c.TeamID = raw.String("team_id")
	if c.TeamID == "" {
		if team := raw.Object("team"); team != nil {
			c.TeamID = Text(team.Get("id"))
		} else if team := meta.Object("team"); team != nil {
			c.TeamID = Text(team.Get("id"))
		} else {
			c.TeamID = Text(raw.First("team"))
			if c.TeamID == "" {
				c.TeamID = Text(meta.First("team"))
			}
		}
	}

	c.CreatedAt, _ = timestamp.Parse(raw.Get("created_at"))
	c.LastActivityAt, _ = timestamp.Parse(raw.First("last_activity_at", "updated_at"))

	// The helpdesk reports "no reply yet" as 0 or "0".
	if fr := raw.Get("first_reply_created_at"); Truthy(fr) && Text(fr) != "0" && Text(fr) != "0.0" {
		c.FirstReplyAt, _ = timestamp.Parse(fr)
	}
	return c
}
