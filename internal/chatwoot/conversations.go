package chatwoot

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

const (
	defaultConversationPages   = 30
	defaultConversationPerPage = 50
	defaultMessageBatches      = 200
	// A messages page shorter than this is the oldest page.
	fullMessagePage = 20
)

// ConversationQuery bounds a conversation listing.
type ConversationQuery struct {
	// Since stops pagination once a page ends with an older activity.
	Since time.Time
	// Status is passed to the helpdesk; "" or "Todos" mean "all".
	Status   string
	InboxID  int64
	MaxPages int
	PerPage  int
}

// ListConversations fetches conversations ordered by last activity until an
// empty page, a page whose last record is older than q.Since, or the page cap.
func (c *Client) ListConversations(ctx context.Context, q ConversationQuery) ([]model.Conversation, error) {
	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = defaultConversationPages
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultConversationPerPage
	}
	status := q.Status
	if status == "" || status == "Todos" {
		status = "all"
	}

	var out []model.Conversation
	for page := 1; page <= maxPages; page++ {
		params := map[string]string{
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(perPage),
			"sort":     "last_activity_at",
			"status":   status,
		}
		if q.InboxID != 0 {
			params["inbox_id"] = strconv.FormatInt(q.InboxID, 10)
		}

		resp, err := c.getWithBackoff(ctx, "conversations", c.accountPath("/conversations"), params)
		if err != nil {
			return nil, &FetchError{Op: "list conversations", Err: err}
		}
		if err := checkStatus("list conversations", resp); err != nil {
			return nil, err
		}
		body, err := decode(resp)
		if err != nil {
			return nil, &FetchError{Op: "list conversations", Err: err}
		}

		var payload []map[string]any
		if m, ok := body.(map[string]any); ok {
			payload = payloadList(m["data"], "payload")
			if len(payload) == 0 {
				payload = payloadList(m, "payload")
			}
		}
		if len(payload) == 0 {
			break
		}
		for _, raw := range payload {
			out = append(out, model.NewConversation(model.Record(raw)))
		}

		last := out[len(out)-1]
		if at, ok := last.ActivityAt(); ok && !q.Since.IsZero() && at.Before(q.Since) {
			break
		}
	}
	return out, nil
}

// ListMessages walks a conversation's messages backwards with the "before"
// cursor. It stops on an empty page, a repeated cursor, a page older than
// since, a short page, or the batch cap.
func (c *Client) ListMessages(ctx context.Context, conversationID int64, since time.Time) ([]model.Message, error) {
	path := c.accountPath("/conversations/%d/messages", conversationID)
	op := "list messages of conversation " + strconv.FormatInt(conversationID, 10)

	var out []model.Message
	before := ""
	for batch := 0; batch < defaultMessageBatches; batch++ {
		params := map[string]string{}
		if before != "" {
			params["before"] = before
		}

		resp, err := c.getWithBackoff(ctx, "messages", path, params)
		if err != nil {
			return nil, &FetchError{Op: op, Err: err}
		}
		if err := checkStatus(op, resp); err != nil {
			return nil, err
		}
		body, err := decode(resp)
		if err != nil {
			return nil, &FetchError{Op: op, Err: err}
		}

		payload := payloadList(body, "data", "payload")
		if len(payload) == 0 {
			break
		}
		for _, raw := range payload {
			out = append(out, model.NewMessage(model.Record(raw)))
		}

		oldest := model.Record(payload[0])
		next := model.Text(oldest.First("id"))
		if next == "" || next == before {
			break
		}
		before = next

		if !since.IsZero() {
			if at, ok := timestamp.Parse(oldest.First("created_at", "timestamp")); ok && at.Before(since) {
				break
			}
		}
		if len(payload) < fullMessagePage {
			break
		}
	}
	return out, nil
}

// GetConversation reads one conversation, used for the handoff check.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	op := "get conversation " + conversationID
	resp, err := c.getWithRetry(ctx, "conversation", c.accountPath("/conversations/%s", conversationID), nil)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{Op: op, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	body, err := decode(resp)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	m, _ := body.(map[string]any)
	conv := model.NewConversation(model.Record(m))
	return &conv, nil
}

// SendMessage posts a public outgoing message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) error {
	op := "send message to conversation " + conversationID
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"content":      content,
			"message_type": "outgoing",
		}).
		Post(c.accountPath("/conversations/%s/messages", conversationID))
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &FetchError{Op: op, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	c.log.Debug("message sent", zap.String("conversation_id", conversationID), zap.Int("status", resp.StatusCode()))
	return nil
}

// Ping checks that the account's conversation endpoint answers below 400.
func (c *Client) Ping(ctx context.Context) (int, error) {
	resp, err := c.getOnce(ctx, c.accountPath("/conversations"), nil, 10*time.Second)
	if err != nil {
		return 0, &FetchError{Op: "ping", Err: err}
	}
	if err := checkStatus("ping", resp); err != nil {
		return resp.StatusCode(), err
	}
	return resp.StatusCode(), nil
}
