package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler runs the ban expiry sweep on an interval. Singleton
// mode keeps a slow sweep from overlapping the next tick; the sweep itself
// re-checks every record under its lock, so an extra run is harmless.
func (s *ModerationService) StartSweepScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			lifted, err := s.AutoExpireSweep(context.Background())
			if err != nil {
				log.Printf("[SWEEP] sweep failed: %v", err)
				return
			}
			if lifted == 0 {
				log.Printf("[SWEEP] no expired bans")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
