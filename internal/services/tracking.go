package services

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"codetime-backend/internal/models"
	"codetime-backend/internal/session"
	"codetime-backend/internal/stats"
)

// MeAlias is the username placeholder clients use to query their own data.
const MeAlias = "@me"

// activityStore is the slice of activity storage the service mutates and
// reads directly; sums go through the stats engine instead.
type activityStore interface {
	Query(ctx context.Context, user uuid.UUID, f models.ActivityFilter) ([]models.Activity, error)
	Delete(ctx context.Context, user uuid.UUID, id int64) (bool, error)
	RenameProject(ctx context.Context, user uuid.UUID, from, to string) (int64, error)
	SetHidden(ctx context.Context, user uuid.UUID, project string, hidden bool) (int64, error)
}

// TrackingService fronts the session state machine and the activity store.
type TrackingService struct {
	finalizer    *session.Finalizer
	activityRepo activityStore
	friendRepo   friendGraph
	userRepo     userDirectory
	engine       *stats.Engine
	clock        quartz.Clock
}

func NewTrackingService(
	finalizer *session.Finalizer,
	activityRepo activityStore,
	friendRepo friendGraph,
	userRepo userDirectory,
	engine *stats.Engine,
	clock quartz.Clock,
) *TrackingService {
	return &TrackingService{
		finalizer:    finalizer,
		activityRepo: activityRepo,
		friendRepo:   friendRepo,
		userRepo:     userRepo,
		engine:       engine,
		clock:        clock,
	}
}

func validateFingerprint(fp models.Fingerprint) *Error {
	checks := []struct {
		field string
		value *string
		max   int
	}{
		{"project_name", fp.ProjectName, models.MaxProjectLen},
		{"language", fp.Language, models.MaxLanguageLen},
		{"editor_name", fp.EditorName, models.MaxEditorLen},
		{"hostname", fp.Hostname, models.MaxHostnameLen},
	}
	for _, c := range checks {
		if c.value != nil && len(*c.value) > c.max {
			return newError(KindInvalidLength, fmt.Sprintf("%s must be at most %d characters", c.field, c.max))
		}
	}
	return nil
}

// Heartbeat validates and applies one heartbeat, returning the elapsed
// seconds of the user's active session. Validation happens before any state
// changes; a storage failure during rotation surfaces after the in-memory
// state has already advanced.
func (s *TrackingService) Heartbeat(ctx context.Context, user uuid.UUID, hb models.Heartbeat) (int64, error) {
	if err := validateFingerprint(hb.Fingerprint); err != nil {
		return 0, err
	}
	elapsed, err := s.finalizer.OnHeartbeat(ctx, user, hb)
	if err != nil {
		return elapsed, storageError(err)
	}
	return elapsed, nil
}

// Flush finalizes the user's active session, if any. Always succeeds when
// there is nothing to flush.
func (s *TrackingService) Flush(ctx context.Context, user uuid.UUID) error {
	if err := s.finalizer.Flush(ctx, user); err != nil {
		return storageError(err)
	}
	return nil
}

// FlushStale finalizes sessions idle beyond the break threshold; used by the
// background sweeper.
func (s *TrackingService) FlushStale(ctx context.Context) int {
	return s.finalizer.FlushStale(ctx)
}

// FlushAll finalizes every live session; called on shutdown.
func (s *TrackingService) FlushAll(ctx context.Context) int {
	return s.finalizer.FlushAll(ctx)
}

// Data returns the owner's activity history for a viewer. The owner is
// "@me" or a username; non-owners must be friends with the owner, and see
// hidden records with the project name redacted.
func (s *TrackingService) Data(ctx context.Context, viewer uuid.UUID, owner string, filter models.ActivityFilter) ([]models.Activity, error) {
	ownerID := viewer
	if owner != MeAlias {
		u, err := s.userRepo.GetByUsername(ctx, owner)
		if err != nil {
			if isNoRows(err) {
				return nil, newError(KindUserNotFound, "User not found")
			}
			return nil, storageError(err)
		}
		ownerID = u.ID
	}

	if ownerID != viewer {
		friends, err := s.friendRepo.AreFriends(ctx, viewer, ownerID)
		if err != nil {
			return nil, storageError(err)
		}
		if !friends {
			return nil, newError(KindUnauthorized, "You can only view your friends' activity")
		}
	}

	activities, err := s.activityRepo.Query(ctx, ownerID, filter)
	if err != nil {
		return nil, storageError(err)
	}

	if ownerID != viewer {
		redacted := ""
		for i := range activities {
			if activities[i].Hidden {
				activities[i].ProjectName = &redacted
			}
		}
	}
	return activities, nil
}

// Delete removes one of the user's finalized activities.
func (s *TrackingService) Delete(ctx context.Context, user uuid.UUID, id int64) error {
	found, err := s.activityRepo.Delete(ctx, user, id)
	if err != nil {
		return storageError(err)
	}
	if !found {
		return newError(KindBadID, "No such activity")
	}
	return nil
}

// RenameProject renames a project across all of the user's activities and
// returns how many records changed.
func (s *TrackingService) RenameProject(ctx context.Context, user uuid.UUID, from, to string) (int64, error) {
	if len(to) == 0 || len(to) > models.MaxProjectLen {
		return 0, newError(KindInvalidLength, fmt.Sprintf("project name must be 1-%d characters", models.MaxProjectLen))
	}
	count, err := s.activityRepo.RenameProject(ctx, user, from, to)
	if err != nil {
		return 0, storageError(err)
	}
	return count, nil
}

// HideProject toggles the hidden flag on all activities of a project. Hidden
// records keep their full duration in every aggregate; only the project name
// is redacted for non-owners.
func (s *TrackingService) HideProject(ctx context.Context, user uuid.UUID, project string, hidden bool) (int64, error) {
	count, err := s.activityRepo.SetHidden(ctx, user, project, hidden)
	if err != nil {
		return 0, storageError(err)
	}
	return count, nil
}

// CodingTime returns the user's rolling duration sums.
func (s *TrackingService) CodingTime(ctx context.Context, user uuid.UUID) (models.CodingTimeSteps, error) {
	steps, err := s.engine.CodingTimeSteps(ctx, user, s.clock.Now())
	if err != nil {
		return models.CodingTimeSteps{}, storageError(err)
	}
	return steps, nil
}
