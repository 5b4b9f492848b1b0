package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic checks against the storage target.
// Пустое расписание оставляет планировщик без задач.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	probe    func(ctx context.Context) error
	schedule string
}

// New creates a scheduler that calls probe on the given cron spec
// (standard five-field syntax or descriptors such as "@every 15m").
func New(schedule string, probe func(ctx context.Context) error) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		probe:    probe,
		schedule: schedule,
	}
}

// Start registers the probe and starts the cron loop. An empty schedule
// leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		log.Println("⚠️ Storage probe schedule not set, probe disabled")
		return nil
	}
	if s.probe == nil {
		return errors.New("probe function not set")
	}

	_, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce() })
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - storage probe runs %s", s.schedule)
	return nil
}

// RunOnce executes the probe immediately and logs the outcome.
func (s *Scheduler) RunOnce() {
	if err := s.probe(s.ctx); err != nil {
		log.Printf("❌ Storage probe failed: %v", err)
		return
	}
	log.Println("✅ Storage probe ok")
}

// Stop stops the cron loop and cancels in-flight probes.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

// IsRunning reports whether a probe job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
