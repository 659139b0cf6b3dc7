package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"codetime-backend/internal/middleware"
	"codetime-backend/internal/models"
	"codetime-backend/internal/repository"
	"codetime-backend/internal/token"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 32
	minPasswordLen = 8
	maxPasswordLen = 128

	friendCodeBytes   = 12
	refreshTokenBytes = 64
	refreshTokenTTL   = 7 * 24 * time.Hour
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type AuthService struct {
	userRepo        *repository.UserRepo
	redis           *redis.Client
	jwt             *middleware.JWTAuth
	registersPerDay int
}

func NewAuthService(userRepo *repository.UserRepo, redisClient *redis.Client, jwt *middleware.JWTAuth, registersPerDay int) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		redis:           redisClient,
		jwt:             jwt,
		registersPerDay: registersPerDay,
	}
}

func validateUsername(name string) *Error {
	if len(name) < minUsernameLen || len(name) > maxUsernameLen {
		return newError(KindInvalidLength, fmt.Sprintf("Username must be %d-%d characters", minUsernameLen, maxUsernameLen))
	}
	if !usernameRegex.MatchString(name) {
		return newError(KindBadUsername, "Username may only contain letters, digits and underscores")
	}
	return nil
}

func validatePassword(pw string) *Error {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return newError(KindInvalidLength, fmt.Sprintf("Password must be %d-%d characters", minPasswordLen, maxPasswordLen))
	}
	return nil
}

// Register creates an account, throttled per client IP, and logs the new
// user straight in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, ip string) (*models.User, *models.AuthTokens, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, nil, err
	}

	count, err := s.redis.Incr(ctx, "register_limit:"+ip).Result()
	if err != nil {
		return nil, nil, storageError(err)
	}
	if count == 1 {
		s.redis.Expire(ctx, "register_limit:"+ip, 24*time.Hour)
	}
	if count > int64(s.registersPerDay) {
		return nil, nil, newError(KindTooManyRegisters, "Too many registrations from this address, try again tomorrow")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	friendCode, err := token.Generate(friendCodeBytes)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FriendCode:   friendCode,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, newError(KindUserExists, "Username is taken")
		}
		return nil, nil, storageError(err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindInvalidCredentials, "Invalid username or password")
		}
		return nil, storageError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, newError(KindInvalidCredentials, "Invalid username or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, newError(KindUnauthorized, "Invalid or expired refresh token. Please log in again.")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	// Rotate: the old token is single-use.
	s.redis.Del(ctx, "refresh:"+refreshToken)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindUserNotFound, "Account no longer exists")
		}
		return nil, storageError(err)
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.redis.Del(ctx, "refresh:"+refreshToken).Err()
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindUserNotFound, "User not found")
		}
		return nil, storageError(err)
	}
	return user, nil
}

// FriendCode returns the user's presentable friend code.
func (s *AuthService) FriendCode(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return "", err
	}
	return token.FriendCode.Format(user.FriendCode), nil
}

// RegenerateFriendCode replaces the user's friend code, invalidating the old
// one, and returns the new presentable code.
func (s *AuthService) RegenerateFriendCode(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := token.Generate(friendCodeBytes)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdateFriendCode(ctx, userID, code); err != nil {
		return "", storageError(err)
	}
	return token.FriendCode.Format(code), nil
}

// DeleteAccount removes the user after confirming their password. Activities
// and memberships cascade away in storage.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return newError(KindInvalidCredentials, "Invalid password")
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return storageError(err)
	}
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := token.Generate(refreshTokenBytes)
	if err != nil {
		return nil, err
	}

	err = s.redis.Set(ctx, "refresh:"+refreshToken, user.ID.String(), refreshTokenTTL).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    900,
	}, nil
}
