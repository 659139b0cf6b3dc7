package services

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"codetime-backend/internal/models"
	"codetime-backend/internal/repository"
	"codetime-backend/internal/stats"
	"codetime-backend/internal/token"
)

const inviteCodeBytes = 8

type LeaderboardService struct {
	lbRepo   *repository.LeaderboardRepo
	userRepo *repository.UserRepo
	ranker   *stats.Ranker
	clock    quartz.Clock
}

func NewLeaderboardService(lbRepo *repository.LeaderboardRepo, userRepo *repository.UserRepo, ranker *stats.Ranker, clock quartz.Clock) *LeaderboardService {
	return &LeaderboardService{
		lbRepo:   lbRepo,
		userRepo: userRepo,
		ranker:   ranker,
		clock:    clock,
	}
}

// Create makes a new leaderboard with the caller as its admin and returns
// the presentable invite code. The board and the creator's membership are
// inserted atomically.
func (s *LeaderboardService) Create(ctx context.Context, user uuid.UUID, name string) (string, error) {
	if len(name) < 2 || len(name) > models.MaxLeaderboardNameLen {
		return "", newError(KindInvalidLength, fmt.Sprintf("Leaderboard name must be 2-%d characters", models.MaxLeaderboardNameLen))
	}
	if !usernameRegex.MatchString(name) {
		return "", newError(KindBadUsername, "Leaderboard name may only contain letters, digits and underscores")
	}

	invite, err := token.Generate(inviteCodeBytes)
	if err != nil {
		return "", err
	}

	lb := &models.Leaderboard{Name: name, InviteCode: invite}
	if err := s.lbRepo.Create(ctx, lb, user); err != nil {
		if isUniqueViolation(err) {
			return "", newError(KindLeaderboardExists, "A leaderboard with that name already exists")
		}
		return "", storageError(err)
	}
	return token.InviteCode.Format(invite), nil
}

// Join resolves an invite code ("ttlic_..." or bare) and adds the caller as
// a regular member.
func (s *LeaderboardService) Join(ctx context.Context, user uuid.UUID, presentedInvite string) (*models.Leaderboard, error) {
	invite := token.InviteCode.Strip(presentedInvite)
	lb, err := s.lbRepo.GetByInvite(ctx, invite)
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindBadCode, "Unknown invite code")
		}
		return nil, storageError(err)
	}

	if err := s.lbRepo.AddMember(ctx, lb.ID, user); err != nil {
		if isUniqueViolation(err) {
			return nil, newError(KindAlreadyMember, "Already a member of this leaderboard")
		}
		return nil, storageError(err)
	}
	return lb, nil
}

// Standings computes the ranked view of a leaderboard for a member. The
// invite code is included since only members get this far.
func (s *LeaderboardService) Standings(ctx context.Context, user uuid.UUID, name string) (*models.LeaderboardStandings, error) {
	lb, _, err := s.requireMember(ctx, user, name)
	if err != nil {
		return nil, err
	}

	members, err := s.lbRepo.Members(ctx, lb.ID)
	if err != nil {
		return nil, storageError(err)
	}

	ranked, myRank, err := s.ranker.Rank(ctx, members, user, s.clock.Now())
	if err != nil {
		return nil, storageError(err)
	}

	return &models.LeaderboardStandings{
		Name:         lb.Name,
		Invite:       token.InviteCode.Format(lb.InviteCode),
		CreationTime: lb.CreationTime,
		Members:      ranked,
		MyRank:       myRank,
	}, nil
}

// ListMine returns the leaderboards the user belongs to.
func (s *LeaderboardService) ListMine(ctx context.Context, user uuid.UUID) ([]models.LeaderboardListing, error) {
	listings, err := s.lbRepo.ListForUser(ctx, user)
	if err != nil {
		return nil, storageError(err)
	}
	return listings, nil
}

// Leave removes the caller's membership.
func (s *LeaderboardService) Leave(ctx context.Context, user uuid.UUID, name string) error {
	lb, err := s.getByName(ctx, name)
	if err != nil {
		return err
	}
	removed, err := s.lbRepo.RemoveMember(ctx, lb.ID, user)
	if err != nil {
		return storageError(err)
	}
	if !removed {
		return newError(KindNotMember, "Not a member of this leaderboard")
	}
	return nil
}

// Delete removes the whole leaderboard; admins only.
func (s *LeaderboardService) Delete(ctx context.Context, user uuid.UUID, name string) error {
	lb, err := s.requireAdmin(ctx, user, name)
	if err != nil {
		return err
	}
	if err := s.lbRepo.Delete(ctx, lb.ID); err != nil {
		return storageError(err)
	}
	return nil
}

// RegenerateInvite replaces the invite code, invalidating the old one;
// admins only.
func (s *LeaderboardService) RegenerateInvite(ctx context.Context, user uuid.UUID, name string) (string, error) {
	lb, err := s.requireAdmin(ctx, user, name)
	if err != nil {
		return "", err
	}
	invite, err := token.Generate(inviteCodeBytes)
	if err != nil {
		return "", err
	}
	if err := s.lbRepo.UpdateInvite(ctx, lb.ID, invite); err != nil {
		return "", storageError(err)
	}
	return token.InviteCode.Format(invite), nil
}

// SetAdmin promotes or demotes a member; admins only.
func (s *LeaderboardService) SetAdmin(ctx context.Context, requester uuid.UUID, name, targetUsername string, admin bool) error {
	lb, err := s.requireAdmin(ctx, requester, name)
	if err != nil {
		return err
	}

	target, err := s.userRepo.GetByUsername(ctx, targetUsername)
	if err != nil {
		if isNoRows(err) {
			return newError(KindUserNotFound, "User not found")
		}
		return storageError(err)
	}

	updated, err := s.lbRepo.SetAdmin(ctx, lb.ID, target.ID, admin)
	if err != nil {
		return storageError(err)
	}
	if !updated {
		return newError(KindNotMember, "That user is not a member of this leaderboard")
	}
	return nil
}

func (s *LeaderboardService) getByName(ctx context.Context, name string) (*models.Leaderboard, error) {
	lb, err := s.lbRepo.GetByName(ctx, name)
	if err != nil {
		if isNoRows(err) {
			return nil, newError(KindLeaderboardNotFound, "Leaderboard not found")
		}
		return nil, storageError(err)
	}
	return lb, nil
}

func (s *LeaderboardService) requireMember(ctx context.Context, user uuid.UUID, name string) (*models.Leaderboard, bool, error) {
	lb, err := s.getByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	admin, _, err := s.lbRepo.GetMember(ctx, lb.ID, user)
	if err != nil {
		if isNoRows(err) {
			return nil, false, newError(KindNotMember, "Not a member of this leaderboard")
		}
		return nil, false, storageError(err)
	}
	return lb, admin, nil
}

func (s *LeaderboardService) requireAdmin(ctx context.Context, user uuid.UUID, name string) (*models.Leaderboard, error) {
	lb, admin, err := s.requireMember(ctx, user, name)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, newError(KindUnauthorized, "Leaderboard admins only")
	}
	return lb, nil
}
