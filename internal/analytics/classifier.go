// Package analytics filters and aggregates helpdesk conversations and
// messages into summary counters, display rows, exports and the bounded
// text context handed to the insights prompt.
package analytics

import (
	"math"
	"strconv"
	"strings"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

// Direction is the inferred flow of a message.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionUnknown  Direction = ""
)

// ConversationType selects conversations by who answered them.
type ConversationType string

const (
	TypeAll   ConversationType = "Todos"
	TypeAgent ConversationType = "Agente"
	TypeBot   ConversationType = "Bot"
)

// Labels used in the "autor" column.
const (
	LabelCustomer     = "Cliente"
	LabelBot          = "Bot"
	LabelAgent        = "Agente"
	LabelAgentUntyped = "Agente (tipo não informado)"
)

const (
	senderTypeBot      = "bot"
	senderTypeAgentBot = "agentbot"
	senderTypeUser     = "user"
	senderTypeAgent    = "agent"

	messageTypeIncoming = 0
	messageTypeOutgoing = 1
)

// MessageDirection maps the message_type code to a direction. Integer codes
// and digit strings use 0 = incoming and 1 = outgoing; the literal strings
// "incoming" and "outgoing" are accepted too.
func MessageDirection(raw model.Record) Direction {
	switch v := raw.Get("message_type").(type) {
	case float64:
		if v != math.Trunc(v) {
			return DirectionUnknown
		}
		return directionFromCode(int64(v))
	case int:
		return directionFromCode(int64(v))
	case int64:
		return directionFromCode(v)
	case nil, bool:
		return DirectionUnknown
	default:
		s := strings.ToLower(model.Text(v))
		if s != "" && strings.Trim(s, "0123456789") == "" {
			code, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return DirectionUnknown
			}
			return directionFromCode(code)
		}
		switch Direction(s) {
		case DirectionIncoming, DirectionOutgoing:
			return Direction(s)
		}
		return DirectionUnknown
	}
}

func directionFromCode(code int64) Direction {
	switch code {
	case messageTypeIncoming:
		return DirectionIncoming
	case messageTypeOutgoing:
		return DirectionOutgoing
	}
	return DirectionUnknown
}

// extractRule reads one candidate value out of a message payload.
type extractRule func(model.Record) string

func field(key string) extractRule {
	return func(r model.Record) string { return model.Text(r.First(key)) }
}

func nested(object, key string) extractRule {
	return func(r model.Record) string { return model.Text(r.Object(object).First(key)) }
}

// firstMatch applies rules in order and returns the first non-empty value.
func firstMatch(r model.Record, rules []extractRule) string {
	for _, rule := range rules {
		if v := rule(r); v != "" {
			return v
		}
	}
	return ""
}

var senderTypeRules = []extractRule{
	field("sender_type"),
	nested("sender", "type"),
	nested("sender", "sender_type"),
	nested("sender_info", "type"),
	nested("sender_info", "sender_type"),
}

// SenderType returns the lowercased sender type, or "" when absent.
func SenderType(raw model.Record) string {
	return strings.ToLower(strings.TrimSpace(firstMatch(raw, senderTypeRules)))
}

// Alternate flat fields holding an agent's display name.
var senderNameRules = []extractRule{
	field("sender_name"),
	field("sender_email"),
	field("agent_name"),
	field("user_name"),
}

type senderIdentity struct {
	id   string
	name string
}

func identityOf(raw model.Record) senderIdentity {
	sender := raw.Object("sender", "sender_info")
	return senderIdentity{
		id:   strings.TrimSpace(model.Text(sender.First("id"))),
		name: strings.TrimSpace(sender.String("name", "email", "identifier")),
	}
}

// Classifier decides whether an outgoing message came from a bot or a human
// agent. Bot identities beyond the helpdesk's own sender types come from
// configured allow-lists.
type Classifier struct {
	botNames map[string]struct{}
	botIDs   map[string]struct{}
}

// NewClassifier builds a classifier. Names are compared case-insensitively.
func NewClassifier(botNames, botIDs []string) *Classifier {
	c := &Classifier{
		botNames: make(map[string]struct{}, len(botNames)),
		botIDs:   make(map[string]struct{}, len(botIDs)),
	}
	for _, n := range botNames {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			c.botNames[n] = struct{}{}
		}
	}
	for _, id := range botIDs {
		if id = strings.TrimSpace(id); id != "" {
			c.botIDs[id] = struct{}{}
		}
	}
	return c
}

// IsBot reports whether the sender is an automated agent.
func (c *Classifier) IsBot(raw model.Record) bool {
	switch SenderType(raw) {
	case senderTypeBot, senderTypeAgentBot:
		return true
	}
	if len(c.botNames) == 0 && len(c.botIDs) == 0 {
		return false
	}
	who := identityOf(raw)
	if _, ok := c.botIDs[who.id]; ok && who.id != "" {
		return true
	}
	if _, ok := c.botNames[strings.ToLower(who.name)]; ok && who.name != "" {
		return true
	}
	return false
}

// IsAgent reports whether the sender is a human agent.
func (c *Classifier) IsAgent(raw model.Record) bool {
	if c.IsBot(raw) {
		return false
	}
	switch SenderType(raw) {
	case senderTypeUser, senderTypeAgent:
		return true
	}
	return false
}

// SenderLabel names the author of a message for display.
func (c *Classifier) SenderLabel(raw model.Record) string {
	if MessageDirection(raw) == DirectionIncoming {
		return LabelCustomer
	}
	if c.IsBot(raw) {
		return LabelBot
	}
	if c.IsAgent(raw) {
		if name := identityOf(raw).name; name != "" {
			return name
		}
		if name := firstMatch(raw, senderNameRules); name != "" {
			return name
		}
		return LabelAgentUntyped
	}
	if name := firstMatch(raw, senderNameRules); name != "" {
		return name
	}
	if SenderType(raw) == "" {
		return LabelAgentUntyped
	}
	return LabelAgent
}

// IncludeForType reports whether a message belongs to a conversation-type
// view. Incoming messages always belong; outgoing ones must match the
// requested sender kind; unknown directions only show under TypeAll.
func (c *Classifier) IncludeForType(raw model.Record, t ConversationType) bool {
	if t == TypeAll || t == "" {
		return true
	}
	switch MessageDirection(raw) {
	case DirectionIncoming:
		return true
	case DirectionOutgoing:
		switch t {
		case TypeBot:
			return c.IsBot(raw)
		case TypeAgent:
			return c.IsAgent(raw)
		}
	}
	return false
}
