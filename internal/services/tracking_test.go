package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"codetime-backend/internal/models"
	"codetime-backend/internal/stats"
)

// fakeActivityStore keeps finalized activities per user in memory. It also
// serves as a stats.DurationSource so one fake backs the whole read path.
type fakeActivityStore struct {
	byUser map[uuid.UUID][]models.Activity
}

func (f *fakeActivityStore) Query(_ context.Context, user uuid.UUID, _ models.ActivityFilter) ([]models.Activity, error) {
	return append([]models.Activity(nil), f.byUser[user]...), nil
}

func (f *fakeActivityStore) Delete(_ context.Context, _ uuid.UUID, _ int64) (bool, error) {
	return false, nil
}

func (f *fakeActivityStore) RenameProject(_ context.Context, _ uuid.UUID, _, _ string) (int64, error) {
	return 0, nil
}

func (f *fakeActivityStore) SetHidden(_ context.Context, _ uuid.UUID, _ string, _ bool) (int64, error) {
	return 0, nil
}

func (f *fakeActivityStore) SumDurationSince(_ context.Context, user uuid.UUID, since time.Time) (int64, error) {
	var sum int64
	for _, a := range f.byUser[user] {
		if !a.StartTime.Before(since) {
			sum += a.DurationSeconds
		}
	}
	return sum, nil
}

// fakeFriendGraph stores edges keyed by the unordered pair, like the real
// store does with its canonical rows.
type fakeFriendGraph struct {
	pairs map[[2]uuid.UUID]bool
}

func newFakeFriendGraph() *fakeFriendGraph {
	return &fakeFriendGraph{pairs: make(map[[2]uuid.UUID]bool)}
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) < 0 {
		return [2]uuid.UUID{a, b}
	}
	return [2]uuid.UUID{b, a}
}

func (f *fakeFriendGraph) Add(_ context.Context, a, b uuid.UUID) error {
	key := pairKey(a, b)
	if f.pairs[key] {
		return &pgconn.PgError{Code: "23505"}
	}
	f.pairs[key] = true
	return nil
}

func (f *fakeFriendGraph) AreFriends(_ context.Context, a, b uuid.UUID) (bool, error) {
	return f.pairs[pairKey(a, b)], nil
}

func (f *fakeFriendGraph) Remove(_ context.Context, a, b uuid.UUID) (bool, error) {
	key := pairKey(a, b)
	existed := f.pairs[key]
	delete(f.pairs, key)
	return existed, nil
}

func (f *fakeFriendGraph) FriendsOf(_ context.Context, _ uuid.UUID) ([]models.User, error) {
	return nil, nil
}

type fakeUserDirectory struct {
	users []*models.User
}

func (f *fakeUserDirectory) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserDirectory) GetByFriendCode(_ context.Context, code string) (*models.User, error) {
	for _, u := range f.users {
		if u.FriendCode == code {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newTestTracking(t *testing.T, store *fakeActivityStore, graph *fakeFriendGraph, dir *fakeUserDirectory) *TrackingService {
	t.Helper()
	return NewTrackingService(nil, store, graph, dir, stats.NewEngine(store), quartz.NewMock(t))
}

func hiddenDataFixture() (owner, viewer *models.User, store *fakeActivityStore) {
	owner = &models.User{ID: uuid.New(), Username: "alice", FriendCode: "a1b2c3"}
	viewer = &models.User{ID: uuid.New(), Username: "bob", FriendCode: "d4e5f6"}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store = &fakeActivityStore{byUser: map[uuid.UUID][]models.Activity{
		owner.ID: {
			{ID: 1, UserID: owner.ID, StartTime: start, DurationSeconds: 300, ProjectName: strptr("public_api"), Hidden: false},
			{ID: 2, UserID: owner.ID, StartTime: start.Add(time.Hour), DurationSeconds: 120, ProjectName: strptr("secret_app"), Hidden: true},
		},
	}}
	return owner, viewer, store
}

func TestData_OwnerSeesHiddenUnredacted(t *testing.T) {
	owner, viewer, store := hiddenDataFixture()
	dir := &fakeUserDirectory{users: []*models.User{owner, viewer}}
	svc := newTestTracking(t, store, newFakeFriendGraph(), dir)

	acts, err := svc.Data(context.Background(), owner.ID, MeAlias, models.ActivityFilter{})
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(acts))
	}
	if *acts[1].ProjectName != "secret_app" {
		t.Errorf("Expected owner to see the hidden project name, got %q", *acts[1].ProjectName)
	}
}

func TestData_FriendSeesHiddenRedacted(t *testing.T) {
	owner, viewer, store := hiddenDataFixture()
	dir := &fakeUserDirectory{users: []*models.User{owner, viewer}}
	graph := newFakeFriendGraph()
	graph.Add(context.Background(), owner.ID, viewer.ID)
	svc := newTestTracking(t, store, graph, dir)

	acts, err := svc.Data(context.Background(), viewer.ID, owner.Username, models.ActivityFilter{})
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(acts))
	}
	if *acts[0].ProjectName != "public_api" {
		t.Errorf("Expected visible project untouched, got %q", *acts[0].ProjectName)
	}
	if *acts[1].ProjectName != "" {
		t.Errorf("Expected hidden project redacted to empty string, got %q", *acts[1].ProjectName)
	}
	if acts[1].DurationSeconds != 120 {
		t.Errorf("Expected hidden record to keep its duration, got %d", acts[1].DurationSeconds)
	}
}

func TestData_NonFriendUnauthorized(t *testing.T) {
	owner, viewer, store := hiddenDataFixture()
	dir := &fakeUserDirectory{users: []*models.User{owner, viewer}}
	svc := newTestTracking(t, store, newFakeFriendGraph(), dir)

	_, err := svc.Data(context.Background(), viewer.ID, owner.Username, models.ActivityFilter{})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != KindUnauthorized {
		t.Errorf("Expected Unauthorized for non-friend viewer, got %v", err)
	}
}

func TestData_UnknownUser(t *testing.T) {
	owner, viewer, store := hiddenDataFixture()
	dir := &fakeUserDirectory{users: []*models.User{owner, viewer}}
	svc := newTestTracking(t, store, newFakeFriendGraph(), dir)

	_, err := svc.Data(context.Background(), viewer.ID, "nobody", models.ActivityFilter{})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != KindUserNotFound {
		t.Errorf("Expected UserNotFound for unknown username, got %v", err)
	}
}
