package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepJobTimeout = 5 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	sweeper  *PaymentSweeper
	schedule string
	logger   *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(sweeper *PaymentSweeper, schedule string, logger *logrus.Logger) *CronService {
	// Seconds precision: "0 */10 * * * *" = every 10 minutes
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &CronService{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if _, err := s.cron.AddFunc(s.schedule, s.sweepPendingPaymentsJob); err != nil {
		return fmt.Errorf("failed to schedule payment sweep job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("✓ Scheduled: Pending payment sweep")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

// Stop stops all cron jobs and waits for a running job to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

// sweepPendingPaymentsJob asks the gateway about payments with no terminal webhook
func (s *CronService) sweepPendingPaymentsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepJobTimeout)
	defer cancel()

	if _, err := s.sweep(ctx, "[CRON]"); err != nil {
		s.logger.WithError(err).Error("[CRON] Pending payment sweep failed")
	}
}

// RunSweepNow runs the payment sweep immediately and returns its counts
func (s *CronService) RunSweepNow(ctx context.Context) (SweepResult, error) {
	s.logger.Info("[MANUAL] Running pending payment sweep now...")
	ctx, cancel := context.WithTimeout(ctx, sweepJobTimeout)
	defer cancel()

	result, err := s.sweep(ctx, "[MANUAL]")
	if err != nil {
		return result, fmt.Errorf("pending payment sweep: %w", err)
	}
	return result, nil
}

func (s *CronService) sweep(ctx context.Context, tag string) (SweepResult, error) {
	startTime := time.Now()
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"checked":  result.Checked,
		"applied":  result.Applied,
		"pending":  result.Pending,
		"failed":   result.Failed,
		"duration": time.Since(startTime).String(),
	}).Info(tag + " Pending payment sweep finished")
	return result, nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
