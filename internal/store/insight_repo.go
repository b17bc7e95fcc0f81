package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

const insightColumns = `id, COALESCE(name, '') AS name, COALESCE(description, '') AS description,
	COALESCE(created_at, '') AS created_at, COALESCE(prompt_text, '') AS prompt_text`

// InsightRepo provides database operations for stored insight prompts.
type InsightRepo struct {
	db *sqlx.DB
}

// NewInsightRepo creates a new InsightRepo.
func NewInsightRepo(db *sqlx.DB) *InsightRepo {
	return &InsightRepo{db: db}
}

// List returns all insight prompts, newest first.
func (r *InsightRepo) List(ctx context.Context) ([]model.InsightPrompt, error) {
	prompts := []model.InsightPrompt{}
	query := `SELECT ` + insightColumns + ` FROM insight_prompts ORDER BY datetime(created_at) DESC, id DESC`
	if err := r.db.SelectContext(ctx, &prompts, query); err != nil {
		return nil, fmt.Errorf("failed to list insight prompts: %w", err)
	}
	return prompts, nil
}

// Get retrieves an insight prompt by ID.
func (r *InsightRepo) Get(ctx context.Context, id int64) (*model.InsightPrompt, error) {
	var p model.InsightPrompt
	query := `SELECT ` + insightColumns + ` FROM insight_prompts WHERE id = ?`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get insight prompt: %w", err)
	}
	return &p, nil
}

// Save inserts the prompt when its ID is zero and updates it otherwise. The
// creation time is set by the database and never changed by updates.
func (r *InsightRepo) Save(ctx context.Context, p *model.InsightPrompt) error {
	if p.ID != 0 {
		res, err := r.db.NamedExecContext(ctx,
			`UPDATE insight_prompts SET name = :name, description = :description, prompt_text = :prompt_text WHERE id = :id`, p)
		if err != nil {
			return fmt.Errorf("failed to update insight prompt: %w", err)
		}
		return requireAffected(res)
	}

	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO insight_prompts (name, description, prompt_text) VALUES (:name, :description, :prompt_text)`, p)
	if err != nil {
		return fmt.Errorf("failed to create insight prompt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insight prompt id: %w", err)
	}
	p.ID = id
	return nil
}

// Delete removes an insight prompt. Deleting a missing prompt is not an error.
func (r *InsightRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM insight_prompts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete insight prompt: %w", err)
	}
	return nil
}
