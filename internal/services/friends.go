package services

import (
	"context"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"codetime-backend/internal/models"
	"codetime-backend/internal/stats"
	"codetime-backend/internal/token"
)

// friendGraph is the undirected friend-relation store. Implementations must
// treat (a, b) and (b, a) as the same edge.
type friendGraph interface {
	Add(ctx context.Context, a, b uuid.UUID) error
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	Remove(ctx context.Context, a, b uuid.UUID) (bool, error)
	FriendsOf(ctx context.Context, user uuid.UUID) ([]models.User, error)
}

// userDirectory is the user lookup slice the social surfaces need.
type userDirectory interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByFriendCode(ctx context.Context, code string) (*models.User, error)
}

type FriendService struct {
	friendRepo friendGraph
	userRepo   userDirectory
	engine     *stats.Engine
	clock      quartz.Clock
}

func NewFriendService(friendRepo friendGraph, userRepo userDirectory, engine *stats.Engine, clock quartz.Clock) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		engine:     engine,
		clock:      clock,
	}
}

// Add resolves a presented friend code ("ttfc_..." or bare) and creates the
// symmetric relation. Adding yourself or an existing friend is rejected.
func (s *FriendService) Add(ctx context.Context, user uuid.UUID, presentedCode string) (*models.FriendEntry, error) {
	code := token.FriendCode.Strip(presentedCode)
	friend, err := s.userRepo.GetByFriendCode(ctx, code)
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindUserNotFound, "No user with that friend code")
		}
		return nil, storageError(err)
	}

	if friend.ID == user {
		return nil, newError(KindCurrentUser, "You cannot add yourself as a friend")
	}

	if err := s.friendRepo.Add(ctx, user, friend.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, newError(KindAlreadyExists, "Already friends with this user")
		}
		return nil, storageError(err)
	}

	steps, err := s.engine.CodingTimeSteps(ctx, friend.ID, s.clock.Now())
	if err != nil {
		return nil, storageError(err)
	}
	return &models.FriendEntry{Username: friend.Username, CodingTime: steps}, nil
}

// List returns the user's friends with their coding-time sums.
func (s *FriendService) List(ctx context.Context, user uuid.UUID) ([]models.FriendEntry, error) {
	friends, err := s.friendRepo.FriendsOf(ctx, user)
	if err != nil {
		return nil, storageError(err)
	}

	now := s.clock.Now()
	entries := make([]models.FriendEntry, 0, len(friends))
	for _, f := range friends {
		steps, err := s.engine.CodingTimeSteps(ctx, f.ID, now)
		if err != nil {
			return nil, storageError(err)
		}
		entries = append(entries, models.FriendEntry{Username: f.Username, CodingTime: steps})
	}
	return entries, nil
}

// Remove deletes the relation with the named user.
func (s *FriendService) Remove(ctx context.Context, user uuid.UUID, friendUsername string) error {
	friend, err := s.userRepo.GetByUsername(ctx, friendUsername)
	if err != nil {
		if isNoRows(err) {
			return newError(KindUserNotFound, "User not found")
		}
		return storageError(err)
	}

	if friend.ID == user {
		return newError(KindCurrentUser, "You cannot unfriend yourself")
	}

	removed, err := s.friendRepo.Remove(ctx, user, friend.ID)
	if err != nil {
		return storageError(err)
	}
	if !removed {
		return newError(KindUserNotFound, "You are not friends with this user")
	}
	return nil
}
