package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"codetime-backend/internal/models"
)

type memSink struct {
	mu         sync.Mutex
	activities []*models.Activity
	err        error
}

func (m *memSink) Append(_ context.Context, a *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.activities = append(m.activities, a)
	return nil
}

func (m *memSink) all() []*models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Activity(nil), m.activities...)
}

func newTestFinalizer(t *testing.T) (*Finalizer, *memSink, *quartz.Mock) {
	t.Helper()
	sink := &memSink{}
	mClock := quartz.NewMock(t)
	mClock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	fin := NewFinalizer(NewStore(), sink, mClock, ScratchNormalizer("tmp.", "tmp"))
	return fin, sink, mClock
}

func TestOnHeartbeat_FullScenario(t *testing.T) {
	fin, sink, mClock := newTestFinalizer(t)
	ctx := context.Background()
	user := uuid.New()

	app := models.Heartbeat{Fingerprint: testFingerprint("app")}
	other := models.Heartbeat{Fingerprint: testFingerprint("other")}

	// t=0: first heartbeat starts a session.
	elapsed, err := fin.OnHeartbeat(ctx, user, app)
	if err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if elapsed != 0 {
		t.Errorf("Expected elapsed 0, got %d", elapsed)
	}

	// t=5: same fingerprint extends.
	mClock.Advance(5 * time.Second)
	elapsed, err = fin.OnHeartbeat(ctx, user, app)
	if err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if elapsed != 5 {
		t.Errorf("Expected elapsed 5, got %d", elapsed)
	}

	// t=6: fingerprint change rotates and appends exactly one record.
	mClock.Advance(1 * time.Second)
	elapsed, err = fin.OnHeartbeat(ctx, user, other)
	if err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if elapsed != 0 {
		t.Errorf("Expected elapsed 0 after rotation, got %d", elapsed)
	}
	acts := sink.all()
	if len(acts) != 1 {
		t.Fatalf("Expected 1 finalized activity, got %d", len(acts))
	}
	if *acts[0].ProjectName != "app" || acts[0].DurationSeconds != 5 {
		t.Errorf("Expected {app, 5}, got {%s, %d}", *acts[0].ProjectName, acts[0].DurationSeconds)
	}

	// t=10: flush finalizes the "other" session with duration 4 and leaves
	// nothing active.
	mClock.Advance(4 * time.Second)
	if err := fin.Flush(ctx, user); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	acts = sink.all()
	if len(acts) != 2 {
		t.Fatalf("Expected 2 finalized activities, got %d", len(acts))
	}
	if *acts[1].ProjectName != "other" || acts[1].DurationSeconds != 4 {
		t.Errorf("Expected {other, 4}, got {%s, %d}", *acts[1].ProjectName, acts[1].DurationSeconds)
	}
	if fin.store.Count() != 0 {
		t.Errorf("Expected no active session after flush, got %d", fin.store.Count())
	}
}

func TestOnHeartbeat_TimeoutRotation(t *testing.T) {
	fin, sink, mClock := newTestFinalizer(t)
	ctx := context.Background()
	user := uuid.New()
	hb := models.Heartbeat{Fingerprint: testFingerprint("app")}

	fin.OnHeartbeat(ctx, user, hb)
	mClock.Advance(10 * time.Second)
	fin.OnHeartbeat(ctx, user, hb)

	mClock.Advance(MaxBreak + time.Second)
	elapsed, err := fin.OnHeartbeat(ctx, user, hb)
	if err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if elapsed != 0 {
		t.Errorf("Expected elapsed 0 after timeout rotation, got %d", elapsed)
	}
	acts := sink.all()
	if len(acts) != 1 {
		t.Fatalf("Expected 1 finalized activity, got %d", len(acts))
	}
	if acts[0].DurationSeconds != 10 {
		t.Errorf("Expected finalized duration 10, got %d", acts[0].DurationSeconds)
	}
}

func TestOnHeartbeat_RotationStoreFailure(t *testing.T) {
	fin, sink, mClock := newTestFinalizer(t)
	ctx := context.Background()
	user := uuid.New()

	fin.OnHeartbeat(ctx, user, models.Heartbeat{Fingerprint: testFingerprint("app")})
	mClock.Advance(5 * time.Second)

	// Storage fails during the rotation. The error surfaces, but the new
	// session must already be installed.
	sink.err = errors.New("connection reset")
	elapsed, err := fin.OnHeartbeat(ctx, user, models.Heartbeat{Fingerprint: testFingerprint("other")})
	if err == nil {
		t.Fatal("Expected storage error to surface")
	}
	if elapsed != 0 {
		t.Errorf("Expected elapsed 0, got %d", elapsed)
	}

	sink.err = nil
	mClock.Advance(3 * time.Second)
	elapsed, err = fin.OnHeartbeat(ctx, user, models.Heartbeat{Fingerprint: testFingerprint("other")})
	if err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if elapsed != 3 {
		t.Errorf("Expected the new session to have advanced to 3s, got %d", elapsed)
	}
}

func TestFlush_NoActiveSession(t *testing.T) {
	fin, sink, _ := newTestFinalizer(t)

	if err := fin.Flush(context.Background(), uuid.New()); err != nil {
		t.Errorf("Expected flush with no session to succeed, got %v", err)
	}
	if len(sink.all()) != 0 {
		t.Errorf("Expected nothing appended, got %d records", len(sink.all()))
	}
}

func TestFlushStale(t *testing.T) {
	fin, sink, mClock := newTestFinalizer(t)
	ctx := context.Background()
	idle := uuid.New()
	busy := uuid.New()

	fin.OnHeartbeat(ctx, idle, models.Heartbeat{Fingerprint: testFingerprint("app")})
	mClock.Advance(MaxBreak + time.Minute)
	fin.OnHeartbeat(ctx, busy, models.Heartbeat{Fingerprint: testFingerprint("app")})

	if n := fin.FlushStale(ctx); n != 1 {
		t.Errorf("Expected 1 stale session flushed, got %d", n)
	}
	if len(sink.all()) != 1 {
		t.Errorf("Expected 1 persisted record, got %d", len(sink.all()))
	}
	if fin.store.Count() != 1 {
		t.Errorf("Expected busy session to survive, got %d", fin.store.Count())
	}
}

func TestScratchNormalizer(t *testing.T) {
	n := ScratchNormalizer("tmp.", "tmp")

	if got := n(strptr("tmp.x3Fg9a")); *got != "tmp" {
		t.Errorf("Expected scratch project collapsed to 'tmp', got %q", *got)
	}
	if got := n(strptr("myproject")); *got != "myproject" {
		t.Errorf("Expected unrelated project untouched, got %q", *got)
	}
	if got := n(nil); got != nil {
		t.Errorf("Expected nil project to stay nil, got %q", *got)
	}
}

func TestOnHeartbeat_HiddenCarriedToRecord(t *testing.T) {
	fin, sink, mClock := newTestFinalizer(t)
	ctx := context.Background()
	user := uuid.New()

	fin.OnHeartbeat(ctx, user, models.Heartbeat{Fingerprint: testFingerprint("secret"), Hidden: true})
	mClock.Advance(12 * time.Second)
	fin.OnHeartbeat(ctx, user, models.Heartbeat{Fingerprint: testFingerprint("secret"), Hidden: true})
	if err := fin.Flush(ctx, user); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	acts := sink.all()
	if len(acts) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(acts))
	}
	if !acts[0].Hidden {
		t.Error("Expected hidden flag to survive finalization")
	}
	if acts[0].DurationSeconds != 12 {
		t.Errorf("Expected duration 12, got %d", acts[0].DurationSeconds)
	}
}
