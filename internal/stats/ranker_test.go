package stats

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"codetime-backend/internal/models"
)

func TestRank_OrdersByDurationDescending(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	src := &fakeSource{records: map[uuid.UUID][]fakeRecord{
		alice: {{start: now.Add(-time.Hour), duration: 300}},
		bob:   {{start: now.Add(-time.Hour), duration: 900}},
		carol: {{start: now.Add(-time.Hour), duration: 600}},
	}}
	members := []models.LeaderboardMember{
		{UserID: alice, Username: "alice", Admin: true},
		{UserID: bob, Username: "bob"},
		{UserID: carol, Username: "carol"},
	}

	ranked, myRank, err := NewRanker(src).Rank(context.Background(), members, carol, now)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	wantOrder := []string{"bob", "carol", "alice"}
	for i, want := range wantOrder {
		if ranked[i].Username != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, ranked[i].Username)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("Position %d: expected rank %d, got %d", i, i+1, ranked[i].Rank)
		}
	}
	if myRank != 2 {
		t.Errorf("Expected requester rank 2, got %d", myRank)
	}
	if !ranked[2].Admin {
		t.Error("Expected admin flag carried through for alice")
	}
}

func TestRank_TieBreaksByUserID(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	src := &fakeSource{records: map[uuid.UUID][]fakeRecord{
		a: {{start: now.Add(-time.Hour), duration: 500}},
		b: {{start: now.Add(-time.Hour), duration: 500}},
	}}
	members := []models.LeaderboardMember{
		{UserID: a, Username: "a"},
		{UserID: b, Username: "b"},
	}

	ranked, _, err := NewRanker(src).Rank(context.Background(), members, a, now)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	// Equal durations: ascending user id decides, deterministically.
	if bytes.Compare(ranked[0].UserID[:], ranked[1].UserID[:]) >= 0 {
		t.Errorf("Expected tie broken by ascending user id, got %s before %s", ranked[0].UserID, ranked[1].UserID)
	}
}

func TestRank_OnlyPastWeekCounts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	src := &fakeSource{records: map[uuid.UUID][]fakeRecord{
		a: {{start: now.Add(-10 * 24 * time.Hour), duration: 9000}}, // outside window
		b: {{start: now.Add(-time.Hour), duration: 60}},
	}}
	members := []models.LeaderboardMember{
		{UserID: a, Username: "a"},
		{UserID: b, Username: "b"},
	}

	ranked, _, err := NewRanker(src).Rank(context.Background(), members, b, now)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if ranked[0].Username != "b" || ranked[0].TimeCoded != 60 {
		t.Errorf("Expected b first with 60s, got %s with %d", ranked[0].Username, ranked[0].TimeCoded)
	}
	if ranked[1].TimeCoded != 0 {
		t.Errorf("Expected a's old activity excluded, got %d", ranked[1].TimeCoded)
	}
}

func TestRank_RequesterNotMember(t *testing.T) {
	now := time.Now()
	src := &fakeSource{records: map[uuid.UUID][]fakeRecord{}}
	members := []models.LeaderboardMember{{UserID: uuid.New(), Username: "a"}}

	_, myRank, err := NewRanker(src).Rank(context.Background(), members, uuid.New(), now)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if myRank != 0 {
		t.Errorf("Expected rank 0 for non-member requester, got %d", myRank)
	}
}
