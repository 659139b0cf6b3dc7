package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codetime-backend/internal/models"
)

// Rolling window sizes for the coding-time steps.
const (
	PastWeek  = 7 * 24 * time.Hour
	PastMonth = 30 * 24 * time.Hour
)

// DurationSource is the slice of activity storage the aggregation needs.
type DurationSource interface {
	SumDurationSince(ctx context.Context, user uuid.UUID, since time.Time) (int64, error)
}

// Engine computes windowed duration sums. It is independent of the live
// session store: only finalized records count.
type Engine struct {
	src DurationSource
}

func NewEngine(src DurationSource) *Engine {
	return &Engine{src: src}
}

// CodingTimeSteps returns the all-time / past-month / past-week second sums
// for a user. The three windows are computed independently and concurrently;
// the result is a snapshot with no cross-window atomicity. Hidden activities
// count in full — hiding only redacts the project name on read.
func (e *Engine) CodingTimeSteps(ctx context.Context, user uuid.UUID, now time.Time) (models.CodingTimeSteps, error) {
	var steps models.CodingTimeSteps
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.src.SumDurationSince(gctx, user, time.Unix(0, 0))
		steps.AllTime = n
		return err
	})
	g.Go(func() error {
		n, err := e.src.SumDurationSince(gctx, user, now.Add(-PastMonth))
		steps.PastMonth = n
		return err
	})
	g.Go(func() error {
		n, err := e.src.SumDurationSince(gctx, user, now.Add(-PastWeek))
		steps.PastWeek = n
		return err
	})
	if err := g.Wait(); err != nil {
		return models.CodingTimeSteps{}, err
	}
	return steps, nil
}
