package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs a single job on a cron spec. A run that is still going when
// the next tick fires makes that tick a no-op.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	ctx  context.Context
	skip func(time.Time) bool

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler using standard five-field cron specs.
func NewScheduler(ctx context.Context, job Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		job:  job,
		ctx:  ctx,
	}
}

// Register schedules the job on spec
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register scan job %q: %w", spec, err)
	}
	return nil
}

// SkipWhen makes scheduled ticks for which fn returns true do nothing.
// RunNow is not affected.
func (s *Scheduler) SkipWhen(fn func(time.Time) bool) {
	s.skip = fn
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[WATCH] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[WATCH] scheduler stopped")
}

// RunNow executes the job immediately (for --run-on-start)
func (s *Scheduler) RunNow() error {
	if !s.acquire() {
		return fmt.Errorf("scan already running")
	}
	defer s.release()
	return s.job(s.ctx)
}

// Next returns when the registered job fires next; zero before Start
func (s *Scheduler) Next() time.Time {
	for _, e := range s.cron.Entries() {
		return e.Next
	}
	return time.Time{}
}

func (s *Scheduler) tick() {
	if now := time.Now(); s.skip != nil && s.skip(now) {
		log.Printf("[WATCH] skipping scheduled scan at %s", now.Format(time.RFC3339))
		return
	}
	if !s.acquire() {
		log.Println("[WATCH] previous scan still running, skipping tick")
		return
	}
	defer s.release()

	if err := s.job(s.ctx); err != nil {
		log.Printf("[WATCH] scheduled scan failed: %v", err)
	}
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
