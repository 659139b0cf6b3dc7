package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"codetime-backend/internal/models"
)

// MaxBreak is the longest idle gap between two heartbeats that still counts
// as the same session. A larger gap finalizes the old session and starts a
// new one, exactly like a fingerprint change.
const MaxBreak = 900 * time.Second

const shardCount = 64

// Active is the in-memory state of a user's current session. At most one
// exists per user, and it is only ever touched under its shard lock.
type Active struct {
	Fingerprint models.Fingerprint
	Hidden      bool
	StartTime   time.Time
	Duration    time.Duration
}

// LastExtended is the timestamp of the last heartbeat that extended the
// session (start time for a fresh session).
func (a *Active) LastExtended() time.Time {
	return a.StartTime.Add(a.Duration)
}

// Snapshot is a finalized session on its way to persistence.
type Snapshot struct {
	UserID      uuid.UUID
	Fingerprint models.Fingerprint
	Hidden      bool
	StartTime   time.Time
	Duration    time.Duration
}

// Store maps each user to at most one active session. Access is sharded so
// concurrent heartbeats for the same user serialize while different users
// proceed in parallel.
type Store struct {
	shards [shardCount]shard
}

type shard struct {
	mu     sync.Mutex
	active map[uuid.UUID]*Active
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].active = make(map[uuid.UUID]*Active)
	}
	return s
}

func (s *Store) shardFor(user uuid.UUID) *shard {
	return &s.shards[int(user[0])%shardCount]
}

// Touch applies one heartbeat to the user's session state and returns the
// elapsed duration of the (possibly restarted) active session. When the
// heartbeat rotates the session — fingerprint change or idle gap beyond
// MaxBreak — the finalized snapshot is returned for persistence and the new
// session is already installed by the time Touch returns.
func (s *Store) Touch(user uuid.UUID, fp models.Fingerprint, hidden bool, now time.Time) (time.Duration, *Snapshot) {
	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, ok := sh.active[user]
	if !ok {
		sh.active[user] = &Active{Fingerprint: fp, Hidden: hidden, StartTime: now}
		return 0, nil
	}

	gap := now.Sub(cur.LastExtended())
	if cur.Fingerprint.Equal(fp) && gap <= MaxBreak {
		cur.Duration = now.Sub(cur.StartTime)
		return cur.Duration, nil
	}

	snap := snapshotOf(user, cur)
	sh.active[user] = &Active{Fingerprint: fp, Hidden: hidden, StartTime: now}
	return 0, snap
}

// Remove clears the user's active session, returning its snapshot for
// persistence, or nil if there was nothing active.
func (s *Store) Remove(user uuid.UUID) *Snapshot {
	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, ok := sh.active[user]
	if !ok {
		return nil
	}
	delete(sh.active, user)
	return snapshotOf(user, cur)
}

// SweepStale removes every session whose last extension is older than cutoff
// and returns their snapshots. Sessions extended after the cutoff are left
// untouched, so a sweep racing a fresh heartbeat never finalizes a live
// session.
func (s *Store) SweepStale(cutoff time.Time) []*Snapshot {
	var stale []*Snapshot
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for user, cur := range sh.active {
			if cur.LastExtended().Before(cutoff) {
				stale = append(stale, snapshotOf(user, cur))
				delete(sh.active, user)
			}
		}
		sh.mu.Unlock()
	}
	return stale
}

// Count reports how many sessions are currently active.
func (s *Store) Count() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.active)
		sh.mu.Unlock()
	}
	return n
}

func snapshotOf(user uuid.UUID, a *Active) *Snapshot {
	return &Snapshot{
		UserID:      user,
		Fingerprint: a.Fingerprint,
		Hidden:      a.Hidden,
		StartTime:   a.StartTime,
		Duration:    a.Duration,
	}
}
