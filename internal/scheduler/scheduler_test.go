package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/lttp/internal/config"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/lock"
	"github.com/mamadbah2/lttp/internal/service/inventory"
	"github.com/mamadbah2/lttp/internal/service/reporting"
	"github.com/mamadbah2/lttp/pkg/clients/alerting"
)

var today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

type fakeInventory struct {
	initialized []time.Time
	expiring    []models.DailyInventoryRecord
	alertDays   int
}

func (f *fakeInventory) Today() time.Time { return today }

func (f *fakeInventory) InitializeForDate(_ context.Context, date time.Time, _ string) (*inventory.InitResult, error) {
	f.initialized = append(f.initialized, date)
	return &inventory.InitResult{Date: date, Created: 3}, nil
}

func (f *fakeInventory) ExpiryAlerts(_ context.Context, days int) ([]models.DailyInventoryRecord, error) {
	f.alertDays = days
	return f.expiring, nil
}

type fakeReports struct {
	enabled  bool
	exported []time.Time
}

func (f *fakeReports) ExportEnabled() bool { return f.enabled }

func (f *fakeReports) ExportDay(_ context.Context, date time.Time) (*reporting.ExportResult, error) {
	f.exported = append(f.exported, date)
	return &reporting.ExportResult{Date: date}, nil
}

func (f *fakeReports) WeeklyDigest(context.Context, time.Time) (string, error) {
	return "digest", nil
}

type recordingAlerts struct {
	sent []alerting.Message
}

func (r *recordingAlerts) Send(_ context.Context, msg alerting.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

type brokenLocker struct{}

func (brokenLocker) Obtain(context.Context, string, time.Duration) (lock.Lease, error) {
	return nil, errors.New("redis: connection refused")
}

func newTestScheduler(locker lock.Locker) (*Scheduler, *fakeInventory, *fakeReports, *recordingAlerts) {
	inv := &fakeInventory{}
	reports := &fakeReports{}
	alerts := &recordingAlerts{}
	cfg := config.SchedulerConfig{
		InventoryInit:   "5 0 * * *",
		ExpiryAlert:     "0 7 * * *",
		ExpiryAlertDays: 5,
		WeeklyDigest:    "0 20 * * 5",
		SheetsExport:    "30 23 * * *",
	}
	return NewScheduler(cfg, time.UTC, inv, reports, alerts, locker, nil), inv, reports, alerts
}

func TestInitializeInventoryJob(t *testing.T) {
	s, inv, _, _ := newTestScheduler(nil)
	s.runGuarded(jobInventoryInit, s.initializeInventory)
	if len(inv.initialized) != 1 || !inv.initialized[0].Equal(today) {
		t.Fatalf("expected one initialization for today, got %v", inv.initialized)
	}
}

func TestExpiryAlertJob(t *testing.T) {
	s, inv, _, alerts := newTestScheduler(nil)

	s.runGuarded(jobExpiryAlert, s.sendExpiryAlerts)
	if len(alerts.sent) != 0 {
		t.Fatalf("nothing expiring should send nothing, sent %+v", alerts.sent)
	}
	if inv.alertDays != 5 {
		t.Errorf("configured look-ahead not used: %d", inv.alertDays)
	}

	expiry := today.AddDate(0, 0, 1)
	inv.expiring = []models.DailyInventoryRecord{{
		EndOfDay: models.StockSnapshot{Quantity: 4, ExpiryDate: &expiry},
		Status:   models.StatusNearExpiry,
		Item:     &models.ItemRef{Name: "Đậu phụ", Unit: models.UnitKg},
	}}
	s.runGuarded(jobExpiryAlert, s.sendExpiryAlerts)
	if len(alerts.sent) != 1 || alerts.sent[0].Level != alerting.LevelWarning || len(alerts.sent[0].Lines) != 1 {
		t.Fatalf("expected one warning with one line, got %+v", alerts.sent)
	}
}

func TestSheetsExportJob_OnlyWhenEnabled(t *testing.T) {
	s, _, reports, _ := newTestScheduler(nil)
	s.runGuarded(jobSheetsExport, s.exportSheets)
	if len(reports.exported) != 0 {
		t.Fatalf("export ran while disabled")
	}
	reports.enabled = true
	s.runGuarded(jobSheetsExport, s.exportSheets)
	if len(reports.exported) != 1 {
		t.Fatalf("export did not run once enabled")
	}
}

func TestWeeklyDigestJob(t *testing.T) {
	s, _, _, alerts := newTestScheduler(nil)
	s.runGuarded(jobWeeklyDigest, s.sendWeeklyDigest)
	if len(alerts.sent) != 1 || alerts.sent[0].Text != "digest" {
		t.Fatalf("digest not sent: %+v", alerts.sent)
	}
}

func TestRunGuarded_SkipsWhenLockHeld(t *testing.T) {
	locker := lock.NewLocal()
	s, inv, _, _ := newTestScheduler(locker)

	lease, err := locker.Obtain(context.Background(), jobInventoryInit, time.Minute)
	if err != nil {
		t.Fatalf("obtain: %v", err)
	}
	s.runGuarded(jobInventoryInit, s.initializeInventory)
	if len(inv.initialized) != 0 {
		t.Fatalf("job ran while another holder had the lock")
	}

	_ = lease.Release(context.Background())
	s.runGuarded(jobInventoryInit, s.initializeInventory)
	if len(inv.initialized) != 1 {
		t.Fatalf("job did not run after the lock was released")
	}
}

func TestRunGuarded_ProceedsWhenLockBackendFails(t *testing.T) {
	s, inv, _, _ := newTestScheduler(brokenLocker{})
	s.runGuarded(jobInventoryInit, s.initializeInventory)
	if len(inv.initialized) != 1 {
		t.Fatalf("job should run without a lock when the backend is down")
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s, _, _, _ := newTestScheduler(nil)
	s.cfg.WeeklyDigest = "every friday"
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected an error for an invalid cron spec")
	}
}
