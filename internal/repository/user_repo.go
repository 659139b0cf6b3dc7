package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"codetime-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, friend_code)
		VALUES ($1, $2, $3, $4)
		RETURNING registration_time`

	user.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.FriendCode,
	).Scan(&user.RegistrationTime)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username = $1", username)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepo) GetByFriendCode(ctx context.Context, code string) (*models.User, error) {
	return r.getBy(ctx, "friend_code = $1", code)
}

func (r *UserRepo) getBy(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, password_hash, friend_code, registration_time FROM users WHERE ` + cond

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.FriendCode, &user.RegistrationTime,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) UpdateFriendCode(ctx context.Context, userID uuid.UUID, code string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET friend_code = $1 WHERE id = $2", code, userID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	return err
}
