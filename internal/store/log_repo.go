package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// DefaultLogLimit is the number of log rows returned when no limit is given.
const DefaultLogLimit = 200

// isoLocal is ISO 8601 with optional microseconds and the zone offset.
const isoLocal = "2006-01-02T15:04:05.999999-07:00"

// LogRepo appends and lists audited bot turns.
type LogRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewLogRepo creates a new LogRepo.
func NewLogRepo(db *sqlx.DB) *LogRepo {
	return &LogRepo{db: db, now: time.Now}
}

// Append stores one log entry stamped with the current local time.
func (r *LogRepo) Append(ctx context.Context, entry *model.ConversationLog) error {
	entry.CreatedAt = r.now().In(timestamp.Local()).Format(isoLocal)
	query := `
		INSERT INTO conversation_logs (
			conversation_id, client_name, direction, message, created_at, inbox_id,
			prompt_tokens, completion_tokens, total_tokens, cost_estimated_usd,
			profile_name, moderation_applied, moderation_details
		)
		VALUES (
			:conversation_id, :client_name, :direction, :message, :created_at, :inbox_id,
			:prompt_tokens, :completion_tokens, :total_tokens, :cost_estimated_usd,
			:profile_name, :moderation_applied, :moderation_details
		)
	`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to append conversation log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// List returns the newest entries first. A non-positive limit uses
// DefaultLogLimit.
func (r *LogRepo) List(ctx context.Context, limit int) ([]model.ConversationLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	logs := []model.ConversationLog{}
	query := `
		SELECT id,
		       COALESCE(conversation_id, '') AS conversation_id,
		       COALESCE(client_name, '') AS client_name,
		       COALESCE(direction, '') AS direction,
		       COALESCE(message, '') AS message,
		       COALESCE(created_at, '') AS created_at,
		       inbox_id, prompt_tokens, completion_tokens, total_tokens,
		       cost_estimated_usd, profile_name,
		       COALESCE(moderation_applied, 0) AS moderation_applied,
		       moderation_details
		FROM conversation_logs
		ORDER BY id DESC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list conversation logs: %w", err)
	}
	return logs, nil
}
