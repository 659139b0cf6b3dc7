package worker

import (
	"context"
	"log"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"codetime-backend/internal/services"
)

// FlushQueue is the Redis list carrying user ids whose sessions should be
// finalized. Handlers push to it; the pool drains it with BLPop.
const FlushQueue = "queue:session-flush"

// Pool runs the background side of session tracking: a set of workers
// draining the flush queue, plus a periodic sweep that finalizes sessions
// idle past the break limit.
type Pool struct {
	redis         *redis.Client
	tracking      *services.TrackingService
	clock         quartz.Clock
	workerCount   int
	sweepInterval time.Duration
	stopChan      chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	tracking *services.TrackingService,
	clock quartz.Clock,
	workerCount int,
	sweepInterval time.Duration,
) *Pool {
	return &Pool{
		redis:         redisClient,
		tracking:      tracking,
		clock:         clock,
		workerCount:   workerCount,
		sweepInterval: sweepInterval,
		stopChan:      make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	go p.sweep()

	log.Printf("Started %d flush workers, sweeping every %s", p.workerCount, p.sweepInterval)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Flush worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, FlushQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		userID, err := uuid.Parse(result[1])
		if err != nil {
			log.Printf("Flush worker %d: bad user id %q: %v", id, result[1], err)
			continue
		}

		if err := p.tracking.Flush(ctx, userID); err != nil {
			log.Printf("Flush worker %d: flush for %s failed: %v", id, userID, err)
		}
	}
}

func (p *Pool) sweep() {
	ticker := p.clock.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			log.Println("Session sweeper shutting down")
			return
		case <-ticker.C:
			if n := p.tracking.FlushStale(context.Background()); n > 0 {
				log.Printf("Swept %d stale sessions", n)
			}
		}
	}
}
