package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

const profileColumns = `id, COALESCE(name, '') AS name, COALESCE(details, '') AS details, COALESCE(prompt_text, '') AS prompt_text`

// ProfileRepo provides database operations for prompt profiles.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// List returns all profiles ordered by name, case-insensitively.
func (r *ProfileRepo) List(ctx context.Context) ([]model.PromptProfile, error) {
	profiles := []model.PromptProfile{}
	query := `SELECT ` + profileColumns + ` FROM prompt_profiles ORDER BY name COLLATE NOCASE`
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("failed to list prompt profiles: %w", err)
	}
	return profiles, nil
}

// Get retrieves a profile by ID.
func (r *ProfileRepo) Get(ctx context.Context, id int64) (*model.PromptProfile, error) {
	var p model.PromptProfile
	query := `SELECT ` + profileColumns + ` FROM prompt_profiles WHERE id = ?`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prompt profile: %w", err)
	}
	return &p, nil
}

// Save inserts the profile when its ID is zero and updates it otherwise. The
// saved ID is written back to p.
func (r *ProfileRepo) Save(ctx context.Context, p *model.PromptProfile) error {
	if p.ID != 0 {
		res, err := r.db.NamedExecContext(ctx,
			`UPDATE prompt_profiles SET name = :name, details = :details, prompt_text = :prompt_text WHERE id = :id`, p)
		if err != nil {
			return fmt.Errorf("failed to update prompt profile: %w", err)
		}
		return requireAffected(res)
	}

	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO prompt_profiles (name, details, prompt_text) VALUES (:name, :details, :prompt_text)`, p)
	if err != nil {
		return fmt.Errorf("failed to create prompt profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get prompt profile id: %w", err)
	}
	p.ID = id
	return nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (r *ProfileRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM prompt_profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete prompt profile: %w", err)
	}
	return nil
}

// Fallback returns the most recently created profile, used when none is
// selected in settings.
func (r *ProfileRepo) Fallback(ctx context.Context) (*model.PromptProfile, error) {
	var p model.PromptProfile
	query := `SELECT ` + profileColumns + ` FROM prompt_profiles ORDER BY id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &p, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fallback prompt profile: %w", err)
	}
	return &p, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
