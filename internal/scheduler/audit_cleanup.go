// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/tasks"
)

// cronParser accepts standard five-field schedules.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether schedule is a valid five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// Enqueuer hands a task to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// AuditCleanupScheduler periodically removes audit events past retention.
// With a task queue it enqueues a CleanupAuditEventsTask; without one it
// runs the cleanup inline on the cron goroutine.
type AuditCleanupScheduler struct {
	queue    Enqueuer
	cleaner  tasks.AuditEventCleaner
	schedule string
	task     tasks.CleanupAuditEventsTask

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAuditCleanupScheduler creates a scheduler. queue may be nil.
func NewAuditCleanupScheduler(queue Enqueuer, cleaner tasks.AuditEventCleaner, cfg config.Audit) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		queue:    queue,
		cleaner:  cleaner,
		schedule: cfg.CleanupSchedule,
		task:     tasks.CleanupAuditEventsTask{RetentionDays: cfg.RetentionDays},
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the job and starts the cron loop. An empty schedule
// disables the scheduler. Cancelling ctx stops it.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		log.Printf("[SCHEDULER] Audit cleanup disabled")
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.run(runCtx)
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Printf("[SCHEDULER] Audit cleanup scheduled '%s', retention %s. Next run: %v",
		s.schedule, s.task.Retention(), s.cron.Entry(entryID).Next)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("[SCHEDULER] Audit cleanup stopped")
}

// RunNow triggers a cleanup immediately.
func (s *AuditCleanupScheduler) RunNow(ctx context.Context) error {
	return s.run(ctx)
}

// IsRunning returns whether the scheduler is active.
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next cleanup will occur, or nil when stopped.
func (s *AuditCleanupScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *AuditCleanupScheduler) run(ctx context.Context) error {
	if s.queue != nil {
		id, err := s.queue.Enqueue(ctx, s.task)
		if err != nil {
			log.Printf("[SCHEDULER] Failed to enqueue audit cleanup: %v", err)
			return err
		}
		log.Printf("[SCHEDULER] Enqueued audit cleanup task %s", id)
		return nil
	}

	if err := tasks.CleanupAuditEventsProcessor(s.cleaner)(ctx, s.task); err != nil {
		log.Printf("[SCHEDULER] Audit cleanup failed: %v", err)
		return err
	}
	return nil
}
