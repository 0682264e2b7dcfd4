package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"tournament-registration/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Sweeper runs one expiration pass.
type Sweeper interface {
	Sweep(ctx context.Context) (services.SweepResult, error)
}

// ExpirationWorker runs the deadline sweep on a fixed interval in-process.
type ExpirationWorker struct {
	sweeper  Sweeper
	interval time.Duration
	sched    gocron.Scheduler
}

func NewExpirationWorker(sweeper Sweeper, interval time.Duration, clock clockwork.Clock) (*ExpirationWorker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &ExpirationWorker{sweeper: sweeper, interval: interval, sched: sched}, nil
}

// Start schedules the sweep and stops the scheduler when ctx is done.
func (w *ExpirationWorker) Start(ctx context.Context) error {
	_, err := w.sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.runOnce(ctx) }),
		gocron.WithName("expire-payments"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	log.Printf("🔁 Starting payment expiration worker (every %s)…", w.interval)
	w.sched.Start()

	go func() {
		<-ctx.Done()
		if err := w.sched.Shutdown(); err != nil {
			log.Printf("⚠️ [SWEEPER] Scheduler shutdown: %v", err)
		}
	}()
	return nil
}

func (w *ExpirationWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.sweeper.Sweep(ctx); err != nil {
		log.Printf("❌ [SWEEPER] Scheduled sweep failed: %v", err)
	}
}
