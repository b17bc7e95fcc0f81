package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// AudioFilter restricts the message listing by audio attachments.
type AudioFilter string

const (
	AudioAny  AudioFilter = "Todos"
	AudioOnly AudioFilter = "Sim"
	AudioNone AudioFilter = "Não"
)

// MessageQuery is the filter of the flat message listing.
type MessageQuery struct {
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	ContactName    string      `json:"contact_name,omitempty"`
	ContactNumber  string      `json:"contact_number,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Status         string      `json:"status,omitempty"`
	Audio          AudioFilter `json:"audio,omitempty"`
	InboxIDs       []int64     `json:"inbox_ids,omitempty"`
}

// MessageListing is the flat list of messages with their raw fields.
type MessageListing struct {
	Records             []map[string]any `json:"records"`
	FailedConversations []int64          `json:"failed_conversations,omitempty"`
}

var messageTimeColumns = []string{"created_at", "updated_at", "timestamp", "waiting_since", "agent_last_seen_at"}

// messageLeadingColumns come first in listing exports.
var messageLeadingColumns = []string{
	"conversation_id",
	"contact_name",
	"contact_phone",
	"inbox_id",
	"midia",
	"created_at",
	"message_type",
	"status",
	"content",
}

// ListMessages fetches every message of the matching conversations and keeps
// those sent inside the period. Messages without a timestamp are dropped.
// Audio messages get any transcription already present in the payload
// appended to their content.
func (a *Aggregator) ListMessages(ctx context.Context, convs []model.Conversation, q MessageQuery, inboxNames map[int64]string) (*MessageListing, error) {
	f := Filter{
		Start:          q.Start,
		End:            q.End,
		ContactName:    q.ContactName,
		ContactNumber:  q.ContactNumber,
		ConversationID: q.ConversationID,
		InboxIDs:       q.InboxIDs,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	matcher := newConversationMatcher(f)

	byID := make(map[int64]*model.Conversation)
	var ids []int64
	for i := range convs {
		c := &convs[i]
		if c.APIID == 0 || !matcher.matchesNonTemporal(c) {
			continue
		}
		if _, dup := byID[c.APIID]; dup {
			continue
		}
		byID[c.APIID] = c
		ids = append(ids, c.APIID)
	}

	outcomes, err := a.fetchAll(ctx, ids, time.Time{})
	if err != nil {
		return nil, err
	}

	listing := &MessageListing{}
	for _, out := range outcomes {
		if out.err != nil {
			a.log.Warn("failed to fetch conversation messages",
				zap.Int64("conversation_id", out.id),
				zap.Error(out.err),
			)
			listing.FailedConversations = append(listing.FailedConversations, out.id)
			continue
		}
		c := byID[out.id]
		for i := range out.messages {
			msg := &out.messages[i]
			if msg.CreatedAt.IsZero() || !f.inRange(msg.CreatedAt) {
				continue
			}
			if q.Status != "" && q.Status != StatusAll && msg.Status != q.Status {
				continue
			}
			audio := msg.HasAudio()
			if (q.Audio == AudioOnly && !audio) || (q.Audio == AudioNone && audio) {
				continue
			}
			listing.Records = append(listing.Records, messageRecord(msg, c, audio, inboxNames))
		}
	}
	return listing, nil
}

func messageRecord(msg *model.Message, c *model.Conversation, audio bool, inboxNames map[int64]string) map[string]any {
	rec := msg.Raw.Flatten()
	if audio {
		if t := msg.Transcription(); t != "" {
			content := model.Text(rec["content"])
			sep := ""
			if content != "" {
				sep = "\n"
			}
			rec["content"] = content + sep + "[transc.]: " + t
		}
	}
	for _, col := range messageTimeColumns {
		if v, ok := rec[col]; ok {
			rec[col] = timestamp.FormatValue(v, col == "created_at")
		}
	}
	midia := ""
	if audio {
		midia = "audio"
	}
	rec["conversation_id"] = c.APIID
	rec["contact_name"] = c.ContactName
	rec["contact_phone"] = c.ContactPhone
	rec["inbox_id"] = InboxLabel(inboxNames, c.InboxID)
	rec["midia"] = midia
	return rec
}

// ListingColumns lists the columns present in records, leading columns
// first and the rest sorted by name.
func ListingColumns(records []map[string]any) []string {
	present := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			present[k] = true
		}
	}
	var cols []string
	for _, c := range messageLeadingColumns {
		if present[c] {
			cols = append(cols, c)
			delete(present, c)
		}
	}
	rest := make([]string, 0, len(present))
	for k := range present {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// SelectColumns keeps the requested columns that exist, in request order.
// An empty request keeps all.
func SelectColumns(all, requested []string) []string {
	if len(requested) == 0 {
		return all
	}
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[c] = true
	}
	var out []string
	for _, c := range requested {
		c = strings.TrimSpace(c)
		if known[c] {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}
