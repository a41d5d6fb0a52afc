package blog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/pavesite/internal/logfields"
)

// Scheduler periodically refreshes a Store so future-dated articles go live
// without a restart.
type Scheduler struct {
	scheduler gocron.Scheduler
	store     *Store
	interval  time.Duration
	now       func() time.Time
	onChange  func()
}

// NewScheduler creates a scheduler that refreshes store every interval.
// onChange, when non-nil, runs after a refresh that changed the published set.
func NewScheduler(store *Store, interval time.Duration, onChange func()) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
		now:       time.Now,
		onChange:  onChange,
	}, nil
}

// Start registers the refresh job and starts the scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.tick),
		gocron.WithName("blog-publish-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create publish refresh job: %w", err)
	}
	slog.Info("Starting publish scheduler", slog.Duration("interval", s.interval))
	s.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping publish scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) tick() {
	if !s.store.Refresh(s.now()) {
		return
	}
	slog.Info("Published article set changed", logfields.Count(len(s.store.Published())))
	if s.onChange != nil {
		s.onChange()
	}
}
