package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"codetime-backend/internal/models"
)

type LeaderboardRepo struct {
	pool *pgxpool.Pool
}

func NewLeaderboardRepo(pool *pgxpool.Pool) *LeaderboardRepo {
	return &LeaderboardRepo{pool: pool}
}

// Create inserts the leaderboard and its creator's admin membership in a
// single transaction. A leaderboard is never observable without its
// creator-admin row.
func (r *LeaderboardRepo) Create(ctx context.Context, lb *models.Leaderboard, creator uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	lb.ID = uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO leaderboards (id, name, invite_code)
		VALUES ($1, $2, $3)
		RETURNING creation_time
	`, lb.ID, lb.Name, lb.InviteCode).Scan(&lb.CreationTime)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO leaderboard_members (leaderboard_id, user_id, admin)
		VALUES ($1, $2, TRUE)
	`, lb.ID, creator)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *LeaderboardRepo) GetByName(ctx context.Context, name string) (*models.Leaderboard, error) {
	return r.getBy(ctx, "LOWER(name) = LOWER($1)", name)
}

func (r *LeaderboardRepo) GetByInvite(ctx context.Context, code string) (*models.Leaderboard, error) {
	return r.getBy(ctx, "invite_code = $1", code)
}

func (r *LeaderboardRepo) getBy(ctx context.Context, cond string, arg interface{}) (*models.Leaderboard, error) {
	lb := &models.Leaderboard{}
	query := `SELECT id, name, invite_code, creation_time FROM leaderboards WHERE ` + cond

	err := r.pool.QueryRow(ctx, query, arg).Scan(&lb.ID, &lb.Name, &lb.InviteCode, &lb.CreationTime)
	if err != nil {
		return nil, err
	}
	return lb, nil
}

func (r *LeaderboardRepo) Members(ctx context.Context, leaderboardID uuid.UUID) ([]models.LeaderboardMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.user_id, u.username, m.admin
		FROM leaderboard_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.leaderboard_id = $1
	`, leaderboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.LeaderboardMember, 0)
	for rows.Next() {
		var m models.LeaderboardMember
		if err := rows.Scan(&m.UserID, &m.Username, &m.Admin); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMember reports whether the user is a member and whether they are admin.
func (r *LeaderboardRepo) GetMember(ctx context.Context, leaderboardID, userID uuid.UUID) (admin bool, member bool, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT admin FROM leaderboard_members WHERE leaderboard_id = $1 AND user_id = $2
	`, leaderboardID, userID).Scan(&admin)
	if err != nil {
		return false, false, err
	}
	return admin, true, nil
}

func (r *LeaderboardRepo) AddMember(ctx context.Context, leaderboardID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leaderboard_members (leaderboard_id, user_id, admin) VALUES ($1, $2, FALSE)
	`, leaderboardID, userID)
	return err
}

func (r *LeaderboardRepo) RemoveMember(ctx context.Context, leaderboardID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM leaderboard_members WHERE leaderboard_id = $1 AND user_id = $2
	`, leaderboardID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LeaderboardRepo) SetAdmin(ctx context.Context, leaderboardID, userID uuid.UUID, admin bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leaderboard_members SET admin = $1 WHERE leaderboard_id = $2 AND user_id = $3
	`, admin, leaderboardID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LeaderboardRepo) UpdateInvite(ctx context.Context, leaderboardID uuid.UUID, code string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE leaderboards SET invite_code = $1 WHERE id = $2", code, leaderboardID,
	)
	return err
}

func (r *LeaderboardRepo) Delete(ctx context.Context, leaderboardID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM leaderboards WHERE id = $1", leaderboardID)
	return err
}

// ListForUser returns every leaderboard the user belongs to with its member
// count.
func (r *LeaderboardRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.LeaderboardListing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.name, COUNT(all_m.user_id)
		FROM leaderboard_members m
		JOIN leaderboards l ON l.id = m.leaderboard_id
		JOIN leaderboard_members all_m ON all_m.leaderboard_id = l.id
		WHERE m.user_id = $1
		GROUP BY l.id, l.name
		ORDER BY l.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]models.LeaderboardListing, 0)
	for rows.Next() {
		var l models.LeaderboardListing
		if err := rows.Scan(&l.Name, &l.MemberCount); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
