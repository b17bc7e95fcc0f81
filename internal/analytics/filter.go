package analytics

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// ErrInvalidPeriod is returned when the start day is after the end day.
var ErrInvalidPeriod = errors.New("período inválido: data inicial maior que a final")

// AssignedFilter restricts conversations by assignment state.
type AssignedFilter string

const (
	AssignedAny AssignedFilter = "Todos"
	AssignedYes AssignedFilter = "Sim"
	AssignedNo  AssignedFilter = "Não"
)

// StatusAll disables the conversation and message status filters.
const StatusAll = "Todos"

// Filter is the snapshot of every predicate applied in one query. Empty sets
// and empty strings never restrict anything.
type Filter struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	ContactName    string `json:"contact_name,omitempty"`
	ContactNumber  string `json:"contact_number,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	Status   string         `json:"status,omitempty"`
	Assigned AssignedFilter `json:"assigned,omitempty"`
	InboxIDs []int64        `json:"inbox_ids,omitempty"`
	AgentID  string         `json:"agent_id,omitempty"`
	TeamID   string         `json:"team_id,omitempty"`

	ConversationType ConversationType `json:"conversation_type,omitempty"`
	MessageStatuses  []string         `json:"message_statuses,omitempty"`
}

// NewFilter returns a filter covering the whole days from and to.
func NewFilter(from, to time.Time) Filter {
	start, end := timestamp.DayBounds(from, to)
	return Filter{
		Start:            start,
		End:              end,
		Status:           StatusAll,
		Assigned:         AssignedAny,
		ConversationType: TypeAll,
	}
}

// Validate checks the period.
func (f Filter) Validate() error {
	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End) {
		return ErrInvalidPeriod
	}
	return nil
}

// Type returns the conversation type, defaulting to TypeAll.
func (f Filter) Type() ConversationType {
	if f.ConversationType == "" {
		return TypeAll
	}
	return f.ConversationType
}

// StatusParam is the status sent to the helpdesk listing.
func (f Filter) StatusParam() string {
	if f.Status == "" || f.Status == StatusAll {
		return "all"
	}
	return f.Status
}

// messageStatusSet returns nil when every status is accepted.
func (f Filter) messageStatusSet() map[string]struct{} {
	if len(f.MessageStatuses) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(f.MessageStatuses))
	for _, s := range f.MessageStatuses {
		if s == StatusAll {
			return nil
		}
		set[s] = struct{}{}
	}
	return set
}

// inRange reports whether t falls inside [Start, End].
func (f Filter) inRange(t time.Time) bool {
	if !f.Start.IsZero() && t.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && t.After(f.End) {
		return false
	}
	return true
}

// ConversationRow is a conversation that passed the filter, with the
// display fields resolved.
type ConversationRow struct {
	Conversation model.Conversation `json:"conversation"`
	InboxName    string             `json:"inbox_name"`
}

// Fields returns the flattened raw conversation plus the resolved display
// fields, with timestamps rendered in the display timezone.
func (r ConversationRow) Fields() map[string]any {
	out := r.Conversation.Raw.Flatten()
	for _, col := range conversationTimeColumns {
		if v, ok := out[col]; ok {
			out[col] = timestamp.FormatValue(v, false)
		}
	}
	c := r.Conversation
	out["conversation_id"] = c.ID
	out["contact_name"] = c.ContactName
	out["contact_phone"] = c.ContactPhone
	out["assignee_id"] = c.AssigneeID
	out["assignee_name"] = c.AssigneeName
	out["inbox_name"] = r.InboxName
	return out
}

var conversationTimeColumns = []string{
	"created_at",
	"updated_at",
	"timestamp",
	"last_activity_at",
	"waiting_since",
	"agent_last_seen_at",
	"first_reply_created_at",
	"assignee_last_seen_at",
}

// InboxLabel resolves an inbox id to its name, falling back to the id.
func InboxLabel(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// conversationMatcher holds the compiled non-temporal predicates. Both
// filter passes go through it.
type conversationMatcher struct {
	f       Filter
	inboxes map[int64]struct{}
	name    partialMatcher
	number  partialMatcher
}

func newConversationMatcher(f Filter) conversationMatcher {
	m := conversationMatcher{
		f:      f,
		name:   newPartialMatcher(f.ContactName),
		number: newPartialMatcher(f.ContactNumber),
	}
	if len(f.InboxIDs) > 0 {
		m.inboxes = make(map[int64]struct{}, len(f.InboxIDs))
		for _, id := range f.InboxIDs {
			m.inboxes[id] = struct{}{}
		}
	}
	return m
}

func (m conversationMatcher) matchesNonTemporal(c *model.Conversation) bool {
	f := m.f
	if !c.HasID() {
		return false
	}
	if id := strings.TrimSpace(f.ConversationID); id != "" && strconv.FormatInt(c.ID, 10) != id {
		return false
	}
	if m.inboxes != nil {
		if _, ok := m.inboxes[c.InboxID]; !ok {
			return false
		}
	}
	if !m.name.match(c.ContactName) || !m.number.match(c.ContactPhone) {
		return false
	}
	if f.AgentID != "" && c.AssigneeID != f.AgentID {
		return false
	}
	switch f.Assigned {
	case AssignedYes:
		if !c.IsAssigned() {
			return false
		}
	case AssignedNo:
		if c.IsAssigned() {
			return false
		}
	}
	if f.Status != "" && f.Status != StatusAll && c.Status != f.Status {
		return false
	}
	if f.TeamID != "" && c.TeamID != f.TeamID {
		return false
	}
	return true
}

func (m conversationMatcher) matchesCreated(c *model.Conversation) bool {
	if c.CreatedAt.IsZero() {
		return false
	}
	return m.f.inRange(c.CreatedAt)
}

// Collect filters conversations. With enforceCreatedRange the creation
// instant must lie inside the period; conversations with an unparseable
// creation time then fail. Without it only the non-temporal predicates
// apply, which selects every conversation that may hold in-period messages.
// The returned ids are the API ids usable for message fetches. A
// conversation listed more than once, as happens when it moves between
// activity-sorted pages during the fetch, is kept once.
func Collect(convs []model.Conversation, f Filter, inboxNames map[int64]string, enforceCreatedRange bool) ([]ConversationRow, []int64) {
	m := newConversationMatcher(f)
	var (
		rows []ConversationRow
		ids  []int64
	)
	seen := make(map[int64]struct{}, len(convs))
	for i := range convs {
		c := &convs[i]
		if c.HasID() {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
		}
		if !m.matchesNonTemporal(c) {
			continue
		}
		if enforceCreatedRange && !m.matchesCreated(c) {
			continue
		}
		rows = append(rows, ConversationRow{Conversation: *c, InboxName: InboxLabel(inboxNames, c.InboxID)})
		if c.APIID != 0 {
			ids = append(ids, c.APIID)
		}
	}
	return rows, ids
}

// ConversationColumns lists the columns present in rows: the resolved
// display fields first, then the remaining raw fields sorted by name.
func ConversationColumns(rows []ConversationRow) []string {
	leading := []string{
		"conversation_id",
		"contact_name",
		"contact_phone",
		"assignee_id",
		"assignee_name",
		"inbox_name",
	}
	seen := make(map[string]bool, len(leading))
	for _, c := range leading {
		seen[c] = true
	}
	var rest []string
	for _, r := range rows {
		for k := range r.Conversation.Raw {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append(leading, rest...)
}
