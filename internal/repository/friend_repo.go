package repository

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"codetime-backend/internal/models"
)

// FriendRepo stores the undirected friend graph. Every edge is kept in
// canonical (lesser, greater) order so an unordered pair maps to exactly one
// row; the symmetric behavior falls out of canonicalizing on every lookup.
type FriendRepo struct {
	pool *pgxpool.Pool
}

func NewFriendRepo(pool *pgxpool.Pool) *FriendRepo {
	return &FriendRepo{pool: pool}
}

// canonicalPair orders two user ids so the lesser comes first. Callers must
// reject a == b before getting here.
func canonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) < 0 {
		return a, b
	}
	return b, a
}

// Add inserts the edge between two users. A duplicate pair surfaces as a
// unique-violation error for the service layer to map.
func (r *FriendRepo) Add(ctx context.Context, a, b uuid.UUID) error {
	lesser, greater := canonicalPair(a, b)
	_, err := r.pool.Exec(ctx,
		"INSERT INTO friend_relations (lesser_id, greater_id) VALUES ($1, $2)",
		lesser, greater,
	)
	return err
}

func (r *FriendRepo) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	lesser, greater := canonicalPair(a, b)
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM friend_relations WHERE lesser_id = $1 AND greater_id = $2)",
		lesser, greater,
	).Scan(&exists)
	return exists, err
}

// Remove deletes the edge and reports whether a row was removed.
func (r *FriendRepo) Remove(ctx context.Context, a, b uuid.UUID) (bool, error) {
	lesser, greater := canonicalPair(a, b)
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM friend_relations WHERE lesser_id = $1 AND greater_id = $2",
		lesser, greater,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FriendsOf returns the other endpoint of every edge the user appears in.
func (r *FriendRepo) FriendsOf(ctx context.Context, user uuid.UUID) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.registration_time
		FROM friend_relations fr
		JOIN users u ON u.id = CASE WHEN fr.lesser_id = $1 THEN fr.greater_id ELSE fr.lesser_id END
		WHERE fr.lesser_id = $1 OR fr.greater_id = $1
		ORDER BY u.username
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.RegistrationTime); err != nil {
			return nil, err
		}
		friends = append(friends, u)
	}
	return friends, rows.Err()
}
