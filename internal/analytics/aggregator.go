package analytics

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
)

const (
	defaultMaxWorkers  = 3
	defaultBatchPause  = 400 * time.Millisecond
	defaultPauseJitter = 200 * time.Millisecond
)

// MessageFetcher loads the messages of one conversation, newest pages first,
// stopping once pages are older than since.
type MessageFetcher interface {
	ListMessages(ctx context.Context, conversationID int64, since time.Time) ([]model.Message, error)
}

// Summary holds the aggregate counters.
type Summary struct {
	TotalConversations   int `json:"total_conversas"`
	PrivateConversations int `json:"total_conversas_privadas"`
	Received             int `json:"total_recebidas"`
	Sent                 int `json:"total_enviadas"`
	Private              int `json:"total_privadas"`
	TotalMessages        int `json:"total_mensagens"`
	UniqueContacts       int `json:"total_clientes_unicos"`
}

// MessageRow is one message of the analysis table.
type MessageRow struct {
	ConversationID        int64     `json:"id_conversa"`
	Author                string    `json:"autor"`
	ContactName           string    `json:"nome_do_contato"`
	ContactPhone          string    `json:"numero_do_contato"`
	ConversationStartedAt time.Time `json:"data_hora_inicio_conversa"`
	InboxName             string    `json:"caixa_de_entrada"`
	FirstReplyDelay       string    `json:"tempo_primeira_resposta"`
	Status                string    `json:"status_da_mensagem"`
	Content               string    `json:"mensagem"`
	SentAt                time.Time `json:"data_hora_da_mensagem"`
	Direction             Direction `json:"direcao,omitempty"`
	Private               bool      `json:"privada"`
}

// Result is the outcome of one aggregation.
type Result struct {
	Summary
	Conversations []ConversationRow `json:"conversations"`
	Messages      []MessageRow      `json:"messages"`
	// FailedConversations lists conversations whose messages could not be
	// fetched; they contribute nothing to the counters.
	FailedConversations []int64 `json:"failed_conversations,omitempty"`
}

// Aggregator fetches messages of the filtered conversations with a bounded
// worker pool and rolls them up.
type Aggregator struct {
	fetcher     MessageFetcher
	classifier  *Classifier
	log         *logger.Logger
	maxWorkers  int
	batchPause  time.Duration
	pauseJitter time.Duration
	sleep       func(context.Context, time.Duration) error
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithMaxWorkers caps concurrent message fetches.
func WithMaxWorkers(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxWorkers = n
		}
	}
}

// WithBatchPause sets the pause between fetch batches and its random jitter.
func WithBatchPause(pause, jitter time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.batchPause = pause
		a.pauseJitter = jitter
	}
}

// WithPauseFunc replaces the pause implementation.
func WithPauseFunc(fn func(context.Context, time.Duration) error) AggregatorOption {
	return func(a *Aggregator) { a.sleep = fn }
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(log *logger.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = log }
}

// NewAggregator creates an aggregator.
func NewAggregator(fetcher MessageFetcher, classifier *Classifier, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetcher:     fetcher,
		classifier:  classifier,
		log:         logger.Global(),
		maxWorkers:  defaultMaxWorkers,
		batchPause:  defaultBatchPause,
		pauseJitter: defaultPauseJitter,
		sleep:       pause,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type conversationInfo struct {
	createdAt       time.Time
	inboxName       string
	firstReplyDelay string
	contactName     string
	contactPhone    string
}

type fetchOutcome struct {
	id       int64
	messages []model.Message
	err      error
}

type conversationTally struct {
	hasBot, hasAgent        bool
	received, sent, private int
	included                int
	rows                    []MessageRow
}

// Aggregate runs both filter passes over convs, fetches messages of every
// conversation in the relaxed pass and builds the result. Only conversations
// of the strict pass produce message rows. A failed fetch is logged and
// skipped; only context cancellation aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context, convs []model.Conversation, f Filter, inboxNames map[int64]string) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() {
		metrics.AggregationDuration.Observe(time.Since(started).Seconds())
	}()

	rows, strictIDs := Collect(convs, f, inboxNames, true)
	_, relaxedIDs := Collect(convs, f, inboxNames, false)

	res := &Result{Conversations: rows}
	if len(rows) == 0 {
		return res, nil
	}

	info := make(map[int64]conversationInfo, len(relaxedIDs))
	relaxed := make(map[int64]struct{}, len(relaxedIDs))
	for _, id := range relaxedIDs {
		relaxed[id] = struct{}{}
	}
	for i := range convs {
		c := &convs[i]
		if _, ok := relaxed[c.ID]; !ok {
			continue
		}
		info[c.ID] = conversationInfo{
			createdAt:       c.CreatedAt,
			inboxName:       InboxLabel(inboxNames, c.InboxID),
			firstReplyDelay: timestamp.FormatDuration(c.CreatedAt, c.FirstReplyAt),
			contactName:     c.ContactName,
			contactPhone:    c.ContactPhone,
		}
	}
	strict := make(map[int64]struct{}, len(strictIDs))
	for _, id := range strictIDs {
		strict[id] = struct{}{}
	}

	outcomes, err := a.fetchAll(ctx, relaxedIDs, f.Start)
	if err != nil {
		return nil, err
	}

	convType := f.Type()
	statuses := f.messageStatusSet()
	allowed := make(map[int64]struct{}, len(outcomes))
	for _, out := range outcomes {
		if out.err != nil {
			a.log.Warn("failed to fetch conversation messages",
				zap.Int64("conversation_id", out.id),
				zap.Error(out.err),
			)
			metrics.AggregatedConversations.WithLabelValues("failed").Inc()
			res.FailedConversations = append(res.FailedConversations, out.id)
			continue
		}
		_, withRows := strict[out.id]
		tally := a.tally(out, f, statuses, convType, info[out.id], withRows)

		if (convType == TypeBot && !tally.hasBot) || (convType == TypeAgent && !tally.hasAgent) {
			metrics.AggregatedConversations.WithLabelValues("excluded").Inc()
			continue
		}
		metrics.AggregatedConversations.WithLabelValues("ok").Inc()
		allowed[out.id] = struct{}{}
		res.Received += tally.received
		res.Sent += tally.sent
		res.Private += tally.private
		res.TotalMessages += tally.included
		if tally.private > 0 {
			res.PrivateConversations++
		}
		res.Messages = append(res.Messages, tally.rows...)
	}

	if convType != TypeAll {
		kept := res.Conversations[:0]
		for _, r := range res.Conversations {
			if _, ok := allowed[r.Conversation.ID]; ok {
				kept = append(kept, r)
			}
		}
		res.Conversations = kept
	}
	res.TotalConversations = len(res.Conversations)
	res.UniqueContacts = uniqueContacts(res.Conversations)
	SortMessageRows(res.Messages)
	return res, nil
}

func (a *Aggregator) tally(out fetchOutcome, f Filter, statuses map[string]struct{}, convType ConversationType, ci conversationInfo, withRows bool) conversationTally {
	var t conversationTally
	for i := range out.messages {
		msg := &out.messages[i]
		if !msg.CreatedAt.IsZero() && !f.inRange(msg.CreatedAt) {
			continue
		}
		if statuses != nil {
			if _, ok := statuses[msg.Status]; !ok {
				continue
			}
		}
		dir := MessageDirection(msg.Raw)
		if dir == DirectionOutgoing {
			if a.classifier.IsBot(msg.Raw) {
				t.hasBot = true
			} else if a.classifier.IsAgent(msg.Raw) {
				t.hasAgent = true
			}
		}
		if !a.classifier.IncludeForType(msg.Raw, convType) {
			continue
		}
		t.included++
		if msg.Private {
			t.private++
		}
		switch dir {
		case DirectionIncoming:
			t.received++
		case DirectionOutgoing:
			t.sent++
		}
		if !withRows {
			continue
		}
		t.rows = append(t.rows, MessageRow{
			ConversationID:        out.id,
			Author:                a.classifier.SenderLabel(msg.Raw),
			ContactName:           ci.contactName,
			ContactPhone:          ci.contactPhone,
			ConversationStartedAt: ci.createdAt,
			InboxName:             ci.inboxName,
			FirstReplyDelay:       ci.firstReplyDelay,
			Status:                msg.Status,
			Content:               msg.Content,
			SentAt:                msg.CreatedAt,
			Direction:             dir,
			Private:               msg.Private,
		})
	}
	return t
}

// fetchAll fetches messages in batches of twice the worker count, pausing
// between batches when more than one is needed. Outcomes keep the order of
// ids.
func (a *Aggregator) fetchAll(ctx context.Context, ids []int64, since time.Time) ([]fetchOutcome, error) {
	workers := min(a.maxWorkers, max(1, len(ids)))
	batchSize := workers * 2
	outcomes := make([]fetchOutcome, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		if start > 0 {
			d := a.batchPause
			if a.pauseJitter > 0 {
				d += time.Duration(rand.Int63n(int64(a.pauseJitter)))
			}
			if err := a.sleep(ctx, d); err != nil {
				return nil, err
			}
		}
		end := min(start+batchSize, len(ids))

		var g errgroup.Group
		g.SetLimit(workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				msgs, err := a.fetcher.ListMessages(ctx, ids[i], since)
				outcomes[i] = fetchOutcome{id: ids[i], messages: msgs, err: err}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

func uniqueContacts(rows []ConversationRow) int {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		key := strings.TrimSpace(r.Conversation.ContactPhone)
		if key == "" {
			key = strings.TrimSpace(r.Conversation.ContactName)
		}
		if key != "" {
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}

// SortMessageRows orders rows by conversation start, conversation id and
// message instant. Missing instants sort first.
func SortMessageRows(rows []MessageRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.ConversationStartedAt.Equal(b.ConversationStartedAt) {
			return a.ConversationStartedAt.Before(b.ConversationStartedAt)
		}
		ai, bi := strconv.FormatInt(a.ConversationID, 10), strconv.FormatInt(b.ConversationID, 10)
		if ai != bi {
			return ai < bi
		}
		return a.SentAt.Before(b.SentAt)
	})
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
