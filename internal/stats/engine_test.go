package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeSource sums fixed per-user activity records like the repository would.
type fakeSource struct {
	mu      sync.Mutex
	records map[uuid.UUID][]fakeRecord
	err     error
}

type fakeRecord struct {
	start    time.Time
	duration int64
}

func (f *fakeSource) SumDurationSince(_ context.Context, user uuid.UUID, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var sum int64
	for _, rec := range f.records[user] {
		if !rec.start.Before(since) {
			sum += rec.duration
		}
	}
	return sum, nil
}

func TestCodingTimeSteps(t *testing.T) {
	user := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	src := &fakeSource{records: map[uuid.UUID][]fakeRecord{
		user: {
			{start: now.Add(-time.Hour), duration: 100},          // inside all windows
			{start: now.Add(-10 * 24 * time.Hour), duration: 50}, // month only
			{start: now.Add(-60 * 24 * time.Hour), duration: 25}, // all-time only
		},
	}}

	steps, err := NewEngine(src).CodingTimeSteps(context.Background(), user, now)
	if err != nil {
		t.Fatalf("CodingTimeSteps failed: %v", err)
	}
	if steps.AllTime != 175 {
		t.Errorf("Expected all_time 175, got %d", steps.AllTime)
	}
	if steps.PastMonth != 150 {
		t.Errorf("Expected past_month 150, got %d", steps.PastMonth)
	}
	if steps.PastWeek != 100 {
		t.Errorf("Expected past_week 100, got %d", steps.PastWeek)
	}
}

func TestCodingTimeSteps_StorageError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}

	_, err := NewEngine(src).CodingTimeSteps(context.Background(), uuid.New(), time.Now())
	if err == nil {
		t.Fatal("Expected storage error to propagate")
	}
}

func TestCodingTimeSteps_EmptyUser(t *testing.T) {
	src := &fakeSource{records: map[uuid.UUID][]fakeRecord{}}

	steps, err := NewEngine(src).CodingTimeSteps(context.Background(), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("CodingTimeSteps failed: %v", err)
	}
	if steps.AllTime != 0 || steps.PastMonth != 0 || steps.PastWeek != 0 {
		t.Errorf("Expected zero steps for unknown user, got %+v", steps)
	}
}
