package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
)

// Summary groups one ledger day by item category.
func (s *Service) Summary(ctx context.Context, date time.Time) (*models.InventorySummary, error) {
	records, err := s.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[models.ItemCategory]*models.InventoryCategorySummary)
	summary := &models.InventorySummary{Date: date, Categories: []models.InventoryCategorySummary{}}
	for _, rec := range records {
		category := itemCategory(rec)
		group, ok := byCategory[category]
		if !ok {
			group = &models.InventoryCategorySummary{Category: category}
			byCategory[category] = group
		}
		group.ItemCount++
		group.TotalQuantity = models.Sum(models.QuantityPlaces, group.TotalQuantity, rec.EndOfDay.Quantity)
		group.TotalAmount = models.Sum(models.AmountPlaces, group.TotalAmount, rec.EndOfDay.Amount)
		group.InputAmount = models.Sum(models.AmountPlaces, group.InputAmount, rec.Input.Amount)
		group.OutputAmount = models.Sum(models.AmountPlaces, group.OutputAmount, rec.Output.Amount)
		switch rec.Status {
		case models.StatusNearExpiry:
			group.NearExpiryCount++
		case models.StatusExpired:
			group.ExpiredCount++
		}

		summary.TotalItems++
		summary.TotalAmount = models.Sum(models.AmountPlaces, summary.TotalAmount, rec.EndOfDay.Amount)
		if rec.Status == models.StatusNearExpiry {
			summary.NearExpiryCount++
		}
	}

	for _, category := range models.ItemCategories {
		if group, ok := byCategory[category]; ok {
			summary.Categories = append(summary.Categories, *group)
		}
	}
	return summary, nil
}

// QualityReport counts freshness statuses and inspection results over a
// date range.
func (s *Service) QualityReport(ctx context.Context, start, end time.Time) (*models.QualityReport, error) {
	if end.Before(start) {
		return nil, apperr.Validation("Khoảng thời gian không hợp lệ", apperr.FieldError{Field: "endDate", Message: "Ngày kết thúc phải sau ngày bắt đầu"})
	}
	records, err := s.GetByDateRange(ctx, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("quality report: %w", err)
	}

	report := &models.QualityReport{
		StartDate:    start,
		EndDate:      end,
		TotalRecords: len(records),
		ByStatus:     make(map[models.FreshnessStatus]int, len(models.FreshnessStatuses)),
		ByResult:     make(map[models.QualityResult]int),
		ByCategory:   make(map[models.ItemCategory]map[models.FreshnessStatus]int),
	}
	for _, status := range models.FreshnessStatuses {
		report.ByStatus[status] = 0
	}

	for _, rec := range records {
		report.ByStatus[rec.Status]++

		category := itemCategory(rec)
		if report.ByCategory[category] == nil {
			report.ByCategory[category] = make(map[models.FreshnessStatus]int)
		}
		report.ByCategory[category][rec.Status]++

		if rec.QualityCheck != nil {
			report.Inspected++
			report.ByResult[rec.QualityCheck.Result]++
		}
		report.AlertCount += len(rec.Alerts)
	}
	return report, nil
}
