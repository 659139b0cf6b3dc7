package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"codetime-backend/internal/models"
)

// ActivityRepo is the append-only store of finalized sessions. Records are
// immutable except for explicit rename, hide/unhide and delete.
type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Append(ctx context.Context, a *models.Activity) error {
	query := `
		INSERT INTO activities (user_id, start_time, duration_seconds, project_name, language, editor_name, hostname, hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.pool.QueryRow(ctx, query,
		a.UserID, a.StartTime, a.DurationSeconds, a.ProjectName, a.Language, a.EditorName, a.Hostname, a.Hidden,
	).Scan(&a.ID)
}

// Query returns a user's activities matching every provided filter. Time
// bounds are inclusive.
func (r *ActivityRepo) Query(ctx context.Context, user uuid.UUID, f models.ActivityFilter) ([]models.Activity, error) {
	query := `SELECT id, user_id, start_time, duration_seconds, project_name, language, editor_name, hostname, hidden
		FROM activities WHERE user_id = $1`
	args := []interface{}{user}

	appendCond := func(cond string, val interface{}) {
		args = append(args, val)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}

	if f.From != nil {
		appendCond("start_time >= $%d", *f.From)
	}
	if f.To != nil {
		appendCond("start_time <= $%d", *f.To)
	}
	if f.MinDuration != nil {
		appendCond("duration_seconds >= $%d", *f.MinDuration)
	}
	if f.EditorName != nil {
		appendCond("editor_name = $%d", *f.EditorName)
	}
	if f.Language != nil {
		appendCond("language = $%d", *f.Language)
	}
	if f.Hostname != nil {
		appendCond("hostname = $%d", *f.Hostname)
	}
	if f.ProjectName != nil {
		appendCond("project_name = $%d", *f.ProjectName)
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]models.Activity, 0)
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.StartTime, &a.DurationSeconds,
			&a.ProjectName, &a.Language, &a.EditorName, &a.Hostname, &a.Hidden,
		); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// SumDurationSince returns the total recorded seconds for activities that
// started at or after the given time. Hidden activities count in full.
func (r *ActivityRepo) SumDurationSince(ctx context.Context, user uuid.UUID, since time.Time) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_seconds), 0)
		FROM activities
		WHERE user_id = $1 AND start_time >= $2
	`, user, since).Scan(&sum)
	return sum, err
}

func (r *ActivityRepo) RenameProject(ctx context.Context, user uuid.UUID, from, to string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE activities SET project_name = $1 WHERE user_id = $2 AND project_name = $3",
		to, user, from,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ActivityRepo) SetHidden(ctx context.Context, user uuid.UUID, project string, hidden bool) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE activities SET hidden = $1 WHERE user_id = $2 AND project_name = $3",
		hidden, user, project,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes one activity by id and reports whether a row matched.
func (r *ActivityRepo) Delete(ctx context.Context, user uuid.UUID, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM activities WHERE id = $1 AND user_id = $2", id, user,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
