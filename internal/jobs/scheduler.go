package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/socialzwater/backend/internal/locks"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/metrics"
	"github.com/socialzwater/backend/internal/services"
	"github.com/socialzwater/backend/internal/websocket"
)

// JobType names a background job
type JobType string

const (
	JobBudgetWatch    JobType = "budget_watch"
	JobAuditRetention JobType = "audit_retention"
)

const (
	auditRetentionSchedule = "0 30 3 * * *" // daily at 03:30
	jobTimeout             = 5 * time.Minute
	numWorkers             = 2
)

// JobContext carries one run of a job through the worker pool
type JobContext struct {
	Type  JobType
	RunID string
	done  chan error
}

// JobHandler processes one job type
type JobHandler func(ctx context.Context, s *Scheduler) error

// Scheduler runs periodic maintenance jobs. Cron only enqueues runs; a small
// worker pool executes them under a per-job redis lock so replicas never
// overlap.
type Scheduler struct {
	services *services.Container
	cron     *cron.Cron
	handlers map[JobType]JobHandler
	jobQueue chan *JobContext
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a new job scheduler
func NewScheduler(svc *services.Container) *Scheduler {
	s := &Scheduler{
		services: svc,
		cron:     cron.New(cron.WithSeconds()),
		jobQueue: make(chan *JobContext, 16),
		stopChan: make(chan struct{}),
	}
	s.handlers = map[JobType]JobHandler{
		JobBudgetWatch:    handleBudgetWatch,
		JobAuditRetention: handleAuditRetention,
	}
	return s
}

// Start registers the cron entries and starts the workers
func (s *Scheduler) Start() error {
	schedules := map[JobType]string{
		JobBudgetWatch:    s.services.Config.BudgetWatchSchedule,
		JobAuditRetention: auditRetentionSchedule,
	}
	for jobType, spec := range schedules {
		jobType := jobType
		if _, err := s.cron.AddFunc(spec, func() { s.Enqueue(jobType) }); err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", jobType, spec, err)
		}
	}

	for i := 0; i < numWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.cron.Start()

	logger.Info().Int("workers", numWorkers).Str("budget_watch", schedules[JobBudgetWatch]).Msg("Job scheduler started")
	return nil
}

// Stop waits for running jobs and stops the workers
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	close(s.stopChan)
	s.wg.Wait()
	logger.Info().Msg("Job scheduler stopped")
}

// Enqueue queues a run without waiting for it. A run is dropped when the
// queue is full, since the next tick will catch up.
func (s *Scheduler) Enqueue(jobType JobType) {
	jctx := &JobContext{Type: jobType, RunID: uuid.New().String()}
	select {
	case s.jobQueue <- jctx:
	default:
		logger.Warn().Str("job", string(jobType)).Msg("Job queue full, skipping run")
		metrics.RecordJobRun(string(jobType), "dropped")
	}
}

// RunNow executes a job immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, jobType JobType) error {
	return s.process(ctx, &JobContext{Type: jobType, RunID: uuid.New().String()})
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case jctx := <-s.jobQueue:
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			if err := s.process(ctx, jctx); err != nil {
				logger.Error().Err(err).Int("worker", id).Str("job", string(jctx.Type)).Msg("Job failed")
			}
			cancel()
		}
	}
}

func (s *Scheduler) process(ctx context.Context, jctx *JobContext) error {
	handler, ok := s.handlers[jctx.Type]
	if !ok {
		return fmt.Errorf("unknown job type %q", jctx.Type)
	}

	log := logger.Get().With().Str("job", string(jctx.Type)).Str("run_id", jctx.RunID).Logger()
	start := time.Now()

	err := locks.WithLock(ctx, s.services.Locks, locks.ResourceJob, string(jctx.Type), jobTimeout, func() error {
		return handler(ctx, s)
	})
	switch {
	case errors.Is(err, locks.ErrLockNotAcquired):
		log.Debug().Msg("Job already running elsewhere")
		metrics.RecordJobRun(string(jctx.Type), "skipped")
		return nil
	case err != nil:
		metrics.RecordJobRun(string(jctx.Type), "failed")
		return err
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Job completed")
	metrics.RecordJobRun(string(jctx.Type), "success")
	return nil
}

// handleBudgetWatch flags active campaigns whose granted rewards exceed the
// budget. Granting is never blocked; operators get a warning on the live feed.
func handleBudgetWatch(ctx context.Context, s *Scheduler) error {
	svc := s.services
	campaigns, err := svc.Campaign.Active(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to load active campaigns: %w", err)
	}

	over := 0
	for i := range campaigns {
		campaign := &campaigns[i]
		summary, err := svc.Reward.Budget(ctx, campaign)
		if err != nil {
			return fmt.Errorf("failed to compute budget for %s: %w", campaign.UniqueID, err)
		}
		if !summary.OverBudget {
			continue
		}
		over++
		logger.Warn().
			Str("campaign", campaign.UniqueID).
			Str("budget", summary.TotalBudget.StringFixed(2)).
			Str("granted", summary.GrantedAmount.StringFixed(2)).
			Msg("Campaign is over its reward budget")
		svc.WSHub.Publish(campaign.UniqueID, websocket.EventBudgetExceeded, map[string]interface{}{
			"campaign_id":      campaign.ID,
			"unique_id":        campaign.UniqueID,
			"total_budget":     summary.TotalBudget,
			"granted_amount":   summary.GrantedAmount,
			"remaining_budget": summary.RemainingBudget,
		})
	}
	metrics.OverBudgetCampaigns.Set(float64(over))
	return nil
}

func handleAuditRetention(ctx context.Context, s *Scheduler) error {
	days := s.services.Config.AuditRetentionDays
	if days <= 0 {
		return nil
	}
	removed, err := s.services.Audit.Cleanup(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to clean audit logs: %w", err)
	}
	if removed > 0 {
		logger.Info().Int64("removed", removed).Int("retention_days", days).Msg("Old audit logs removed")
	}
	return nil
}
