package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/config"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/lock"
	"github.com/mamadbah2/lttp/internal/service/inventory"
	"github.com/mamadbah2/lttp/internal/service/reporting"
	"github.com/mamadbah2/lttp/pkg/clients/alerting"
)

const (
	jobInventoryInit = "inventory-init"
	jobExpiryAlert   = "expiry-alert"
	jobWeeklyDigest  = "weekly-digest"
	jobSheetsExport  = "sheets-export"

	systemActor = "system:scheduler"
	jobTimeout  = 2 * time.Minute
)

// InventoryJobs is what the scheduler needs from the inventory ledger.
type InventoryJobs interface {
	Today() time.Time
	InitializeForDate(ctx context.Context, date time.Time, actor string) (*inventory.InitResult, error)
	ExpiryAlerts(ctx context.Context, daysAhead int) ([]models.DailyInventoryRecord, error)
}

// ReportJobs is what the scheduler needs from the reporting service.
type ReportJobs interface {
	ExportEnabled() bool
	ExportDay(ctx context.Context, date time.Time) (*reporting.ExportResult, error)
	WeeklyDigest(ctx context.Context, anchor time.Time) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	inventory InventoryJobs
	reports   ReportJobs
	alerts    alerting.Client
	locker    lock.Locker
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance. Schedules are evaluated in loc.
func NewScheduler(cfg config.SchedulerConfig, loc *time.Location, inventory InventoryJobs, reports ReportJobs, alerts alerting.Client, locker lock.Locker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if alerts == nil {
		alerts = alerting.Noop{}
	}
	if locker == nil {
		locker = lock.NewLocal()
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		inventory: inventory,
		reports:   reports,
		alerts:    alerts,
		locker:    locker,
		logger:    logger,
	}
}

// Start registers every job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{jobInventoryInit, s.cfg.InventoryInit, s.initializeInventory},
		{jobExpiryAlert, s.cfg.ExpiryAlert, s.sendExpiryAlerts},
		{jobWeeklyDigest, s.cfg.WeeklyDigest, s.sendWeeklyDigest},
		{jobSheetsExport, s.cfg.SheetsExport, s.exportSheets},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, func() { s.runGuarded(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
		s.logger.Info("job scheduled", zap.String("job", job.name), zap.String("spec", job.spec))
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// runGuarded runs job under a distributed lock. A lock held elsewhere skips
// this run; a lock backend failure runs the job anyway.
func (s *Scheduler) runGuarded(name string, job func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logger := s.logger.With(zap.String("job", name))
	lease, err := s.locker.Obtain(ctx, name, jobTimeout)
	switch {
	case errors.Is(err, lock.ErrNotObtained):
		logger.Info("job already running elsewhere; skipping")
		return
	case err != nil:
		logger.Warn("error obtaining job lock; proceeding without lock", zap.Error(err))
		lease = nil
	}
	defer func() {
		if lease == nil {
			return
		}
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("failed to release job lock", zap.Error(err))
		}
	}()

	started := time.Now()
	if err := job(ctx); err != nil {
		logger.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(started)))
		return
	}
	logger.Info("job finished", zap.Duration("duration", time.Since(started)))
}

func (s *Scheduler) initializeInventory(ctx context.Context) error {
	result, err := s.inventory.InitializeForDate(ctx, s.inventory.Today(), systemActor)
	if err != nil {
		return fmt.Errorf("initialize inventory: %w", err)
	}
	s.logger.Info("daily inventory opened", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
	return nil
}

func (s *Scheduler) sendExpiryAlerts(ctx context.Context) error {
	records, err := s.inventory.ExpiryAlerts(ctx, s.cfg.ExpiryAlertDays)
	if err != nil {
		return fmt.Errorf("load expiry alerts: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	msg := alerting.Message{
		Level: alerting.LevelWarning,
		Title: "Cảnh báo hạn sử dụng LTTP",
		Text:  fmt.Sprintf("%d mặt hàng sắp hết hạn hoặc đã hết hạn", len(records)),
		Lines: reporting.ExpiryLines(records),
	}
	if err := s.alerts.Send(ctx, msg); err != nil {
		return fmt.Errorf("send expiry alert: %w", err)
	}
	return nil
}

func (s *Scheduler) sendWeeklyDigest(ctx context.Context) error {
	digest, err := s.reports.WeeklyDigest(ctx, s.inventory.Today())
	if err != nil {
		return fmt.Errorf("build weekly digest: %w", err)
	}
	msg := alerting.Message{Level: alerting.LevelInfo, Title: "Báo cáo chế biến tuần", Text: digest}
	if err := s.alerts.Send(ctx, msg); err != nil {
		return fmt.Errorf("send weekly digest: %w", err)
	}
	return nil
}

func (s *Scheduler) exportSheets(ctx context.Context) error {
	if !s.reports.ExportEnabled() {
		return nil
	}
	if _, err := s.reports.ExportDay(ctx, s.inventory.Today()); err != nil {
		return fmt.Errorf("export ledger day: %w", err)
	}
	return nil
}
