package stats

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codetime-backend/internal/models"
)

// rankerConcurrency bounds the storage fan-out for one standings read.
const rankerConcurrency = 8

// Ranker turns a leaderboard's membership into a ranked standing over the
// past-week window.
type Ranker struct {
	src DurationSource
}

func NewRanker(src DurationSource) *Ranker {
	return &Ranker{src: src}
}

// Rank computes past-week totals for every member, sorts descending by
// duration and assigns 1-based ranks. Ties break by ascending user id so the
// order is deterministic. The returned rank is the requester's own position,
// or 0 if the requester is not among the members.
func (r *Ranker) Rank(ctx context.Context, members []models.LeaderboardMember, requester uuid.UUID, now time.Time) ([]models.RankedMember, int, error) {
	since := now.Add(-PastWeek)
	ranked := make([]models.RankedMember, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rankerConcurrency)
	for i, m := range members {
		g.Go(func() error {
			total, err := r.src.SumDurationSince(gctx, m.UserID, since)
			if err != nil {
				return err
			}
			ranked[i] = models.RankedMember{
				UserID:    m.UserID,
				Username:  m.Username,
				Admin:     m.Admin,
				TimeCoded: total,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TimeCoded != ranked[j].TimeCoded {
			return ranked[i].TimeCoded > ranked[j].TimeCoded
		}
		return bytes.Compare(ranked[i].UserID[:], ranked[j].UserID[:]) < 0
	})

	myRank := 0
	for i := range ranked {
		ranked[i].Rank = i + 1
		if ranked[i].UserID == requester {
			myRank = i + 1
		}
	}
	return ranked, myRank, nil
}
