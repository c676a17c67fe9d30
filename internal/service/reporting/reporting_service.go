// Package reporting exports the ledgers to Google Sheets and builds the
// operator digests sent by the scheduler.
package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mamadbah2/lttp/internal/domain/models"
	repo "github.com/mamadbah2/lttp/internal/repository/sheets"
)

const (
	inventoryDateRange = "Inventory!A:A"
	inventoryDataRange = "Inventory!A:L"
	stationDateRange   = "Processing!A:A"
	stationDataRange   = "Processing!A:H"
)

// InventoryReader is the slice of the inventory ledger the reports read.
type InventoryReader interface {
	GetByDate(ctx context.Context, date time.Time) ([]models.DailyInventoryRecord, error)
}

// StationReader is the slice of the station ledgers the reports read.
type StationReader interface {
	ListStations() []models.StationConfig
	GetRange(ctx context.Context, station models.StationType, start, end time.Time, unitID *primitive.ObjectID) ([]models.ProcessingRecord, error)
}

// Service builds exports and digests from the ledgers.
type Service struct {
	repo      repo.Repository
	inventory InventoryReader
	stations  StationReader
	logger    *zap.Logger
}

// NewService wires a reporting service. repository may be nil, in which case
// exports are disabled.
func NewService(repository repo.Repository, inventory InventoryReader, stations StationReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, inventory: inventory, stations: stations, logger: logger}
}

// ExportEnabled reports whether a spreadsheet is configured.
func (s *Service) ExportEnabled() bool {
	return s.repo != nil
}

// ExportResult reports what ExportDay wrote.
type ExportResult struct {
	Date          time.Time
	InventoryRows int
	StationRows   int
	InventorySkip bool
	StationsSkip  bool
	AlreadyExists bool
}

// ExportDay appends the day's inventory ledger and station financials to the
// spreadsheet. Each sheet is checked on its own, so a day already present in
// a sheet is never appended to it twice and a partially exported day is
// completed on retry.
func (s *Service) ExportDay(ctx context.Context, date time.Time) (*ExportResult, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("sheets export is not configured")
	}
	result := &ExportResult{Date: date}
	day := date.Format(models.DateLayout)

	invDone, err := s.hasDate(ctx, inventoryDateRange, date)
	if err != nil {
		return nil, fmt.Errorf("load exported inventory dates: %w", err)
	}
	stationsDone, err := s.hasDate(ctx, stationDateRange, date)
	if err != nil {
		return nil, fmt.Errorf("load exported station dates: %w", err)
	}
	result.InventorySkip = invDone
	result.StationsSkip = stationsDone
	if invDone && stationsDone {
		result.AlreadyExists = true
		s.logger.Info("ledger day already exported", zap.String("date", day))
		return result, nil
	}

	if !invDone {
		records, err := s.inventory.GetByDate(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("load inventory: %w", err)
		}
		rows := make([][]interface{}, 0, len(records))
		for _, rec := range records {
			rows = append(rows, inventoryRow(rec))
		}
		if err := s.repo.AppendRows(ctx, inventoryDataRange, rows); err != nil {
			return nil, fmt.Errorf("export inventory: %w", err)
		}
		result.InventoryRows = len(rows)
	}

	if !stationsDone {
		var stationRows [][]interface{}
		for _, cfg := range s.stations.ListStations() {
			recs, err := s.stations.GetRange(ctx, cfg.Type, date, date, nil)
			if err != nil {
				return result, fmt.Errorf("load %s records: %w", cfg.Type, err)
			}
			for _, rec := range recs {
				stationRows = append(stationRows, stationRow(cfg, rec))
			}
		}
		if err := s.repo.AppendRows(ctx, stationDataRange, stationRows); err != nil {
			return result, fmt.Errorf("export stations: %w", err)
		}
		result.StationRows = len(stationRows)
	}

	s.logger.Info("ledger day exported",
		zap.String("date", day),
		zap.Int("inventory_rows", result.InventoryRows),
		zap.Int("station_rows", result.StationRows),
		zap.Bool("inventory_skipped", invDone),
		zap.Bool("stations_skipped", stationsDone))
	return result, nil
}

// hasDate reports whether column A of sheetRange already holds date.
func (s *Service) hasDate(ctx context.Context, sheetRange string, date time.Time) (bool, error) {
	rows, err := s.repo.ReadRange(ctx, sheetRange)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if d, err := parseDate(row[0]); err == nil && d.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

// WeeklyDigest summarises every station's cost, value and profit for the
// Monday-to-Sunday week containing anchor.
func (s *Service) WeeklyDigest(ctx context.Context, anchor time.Time) (string, error) {
	start, end, _ := models.PeriodWeek.Bounds(anchor)

	var b strings.Builder
	fmt.Fprintf(&b, "Tổng hợp chế biến tuần %s - %s\n", start.Format(models.DateLayout), end.Format(models.DateLayout))

	var totalCost, totalValue []float64
	for _, cfg := range s.stations.ListStations() {
		recs, err := s.stations.GetRange(ctx, cfg.Type, start, end, nil)
		if err != nil {
			return "", fmt.Errorf("load %s records: %w", cfg.Type, err)
		}
		if len(recs) == 0 {
			continue
		}
		var cost, value []float64
		for _, rec := range recs {
			cost = append(cost, rec.Financial.TotalInputCost)
			value = append(value, rec.Financial.TotalOutputValue)
		}
		fin := models.ComputeFinancial(models.Sum(models.AmountPlaces, cost...), models.Sum(models.AmountPlaces, value...))
		fmt.Fprintf(&b, "- %s: chi %s, thu %s, lãi %s (%.2f%%)\n",
			cfg.Name, formatMoney(fin.TotalInputCost), formatMoney(fin.TotalOutputValue), formatMoney(fin.Profit), fin.ProfitMargin)
		totalCost = append(totalCost, fin.TotalInputCost)
		totalValue = append(totalValue, fin.TotalOutputValue)
	}

	if len(totalCost) == 0 {
		b.WriteString("Chưa có số liệu chế biến trong tuần.")
		return b.String(), nil
	}
	total := models.ComputeFinancial(models.Sum(models.AmountPlaces, totalCost...), models.Sum(models.AmountPlaces, totalValue...))
	fmt.Fprintf(&b, "Tổng: chi %s, thu %s, lãi %s (%.2f%%)",
		formatMoney(total.TotalInputCost), formatMoney(total.TotalOutputValue), formatMoney(total.Profit), total.ProfitMargin)
	return b.String(), nil
}

// ExpiryLines renders one line per expiring ledger row.
func ExpiryLines(records []models.DailyInventoryRecord) []string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		name, unit := rec.ItemID.Hex(), ""
		if rec.Item != nil {
			name, unit = rec.Item.Name, string(rec.Item.Unit)
		}
		expiry := ""
		if rec.EndOfDay.ExpiryDate != nil {
			expiry = rec.EndOfDay.ExpiryDate.Format(models.DateLayout)
		}
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s: %g %s, hạn %s (%s)", name, rec.EndOfDay.Quantity, unit, expiry, rec.Status)))
	}
	return lines
}

func inventoryRow(rec models.DailyInventoryRecord) []interface{} {
	name, category := rec.ItemID.Hex(), ""
	if rec.Item != nil {
		name, category = rec.Item.Name, string(rec.Item.Category)
	}
	expiry := ""
	if rec.EndOfDay.ExpiryDate != nil {
		expiry = rec.EndOfDay.ExpiryDate.Format(models.DateLayout)
	}
	return []interface{}{
		rec.Date.Format(models.DateLayout),
		name,
		category,
		rec.PreviousDay.Quantity,
		rec.Input.Quantity,
		rec.Output.Quantity,
		rec.EndOfDay.Quantity,
		rec.PreviousDay.Amount,
		rec.Input.Amount,
		rec.Output.Amount,
		rec.EndOfDay.Amount,
		fmt.Sprintf("%s %s", rec.Status, expiry),
	}
}

func stationRow(cfg models.StationConfig, rec models.ProcessingRecord) []interface{} {
	return []interface{}{
		rec.Date.Format(models.DateLayout),
		cfg.Name,
		rec.UnitID.Hex(),
		rec.Financial.TotalInputCost,
		rec.Financial.TotalOutputValue,
		rec.Financial.Profit,
		rec.Financial.ProfitMargin,
		rec.Notes,
	}
}

// formatMoney renders an amount in dong with Vietnamese digit grouping.
func formatMoney(v float64) string {
	return message.NewPrinter(language.Vietnamese).Sprintf("%.0fđ", v)
}

func parseDate(value interface{}) (time.Time, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return models.ParseDate(str)
}
