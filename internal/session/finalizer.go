package session

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"codetime-backend/internal/models"
)

// Sink is where finalized sessions go. The finalizer never assumes a
// particular storage engine.
type Sink interface {
	Append(ctx context.Context, activity *models.Activity) error
}

// Normalizer rewrites a project name before it is persisted. The input may
// be nil (heartbeat without a project).
type Normalizer func(project *string) *string

// ScratchNormalizer collapses auto-generated scratch projects (e.g. "tmp.x3Fg")
// to a single placeholder so they don't explode into one-off project names.
func ScratchNormalizer(prefix, placeholder string) Normalizer {
	return func(project *string) *string {
		if project == nil || prefix == "" || !strings.HasPrefix(*project, prefix) {
			return project
		}
		p := placeholder
		return &p
	}
}

// Finalizer drives the session state machine: each heartbeat either extends
// the user's active session, rotates it (finalize + restart), or starts one.
//
// Rotation and flush install the new in-memory state before the persistence
// call, and keep it even when that call fails. The live session always makes
// forward progress; durability of the just-finalized record is traded away
// and the storage error is returned to the caller. Callers must not "fix"
// this by re-installing the old session.
type Finalizer struct {
	store     *Store
	sink      Sink
	clock     quartz.Clock
	normalize Normalizer
}

func NewFinalizer(store *Store, sink Sink, clock quartz.Clock, normalize Normalizer) *Finalizer {
	if normalize == nil {
		normalize = func(p *string) *string { return p }
	}
	return &Finalizer{store: store, sink: sink, clock: clock, normalize: normalize}
}

// OnHeartbeat applies one heartbeat and returns the elapsed seconds of the
// user's active session (0 when the heartbeat started or rotated a session).
func (f *Finalizer) OnHeartbeat(ctx context.Context, user uuid.UUID, hb models.Heartbeat) (int64, error) {
	now := f.clock.Now()
	elapsed, snap := f.store.Touch(user, hb.Fingerprint, hb.Hidden, now)
	if snap != nil {
		if err := f.persist(ctx, snap); err != nil {
			return int64(elapsed / time.Second), err
		}
	}
	return int64(elapsed / time.Second), nil
}

// Flush finalizes the user's active session unconditionally. Flushing with
// nothing active is a no-op success.
func (f *Finalizer) Flush(ctx context.Context, user uuid.UUID) error {
	snap := f.store.Remove(user)
	if snap == nil {
		return nil
	}
	return f.persist(ctx, snap)
}

// FlushStale finalizes every session idle for longer than MaxBreak and
// reports how many were flushed. Persistence failures are logged and the
// remaining sessions are still flushed; the dropped records are the same
// availability-over-durability trade as a failed rotation.
func (f *Finalizer) FlushStale(ctx context.Context) int {
	cutoff := f.clock.Now().Add(-MaxBreak)
	return f.persistAll(ctx, f.store.SweepStale(cutoff))
}

// FlushAll finalizes every active session regardless of age; used on
// shutdown so in-flight sessions are not lost with the process.
func (f *Finalizer) FlushAll(ctx context.Context) int {
	cutoff := f.clock.Now().Add(time.Second)
	return f.persistAll(ctx, f.store.SweepStale(cutoff))
}

func (f *Finalizer) persistAll(ctx context.Context, snaps []*Snapshot) int {
	flushed := 0
	for _, snap := range snaps {
		if err := f.persist(ctx, snap); err != nil {
			log.Printf("session: failed to persist session for %s: %v", snap.UserID, err)
			continue
		}
		flushed++
	}
	return flushed
}

func (f *Finalizer) persist(ctx context.Context, snap *Snapshot) error {
	return f.sink.Append(ctx, &models.Activity{
		UserID:          snap.UserID,
		StartTime:       snap.StartTime,
		DurationSeconds: int64(snap.Duration / time.Second),
		ProjectName:     f.normalize(snap.Fingerprint.ProjectName),
		Language:        snap.Fingerprint.Language,
		EditorName:      snap.Fingerprint.EditorName,
		Hostname:        snap.Fingerprint.Hostname,
		Hidden:          snap.Hidden,
	})
}
