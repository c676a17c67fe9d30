package distribution

import (
	"context"
	"sort"
	"time"

	"github.com/mamadbah2/lttp/internal/domain/models"
)

// DailySummary compares suggested and actual quantities and amounts per
// item category for one day. Cancelled allocations are only counted in
// ByStatus.
func (s *Service) DailySummary(ctx context.Context, date time.Time) (*models.DistributionSummary, error) {
	allocations, err := s.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	summary := &models.DistributionSummary{
		Date:       date,
		Categories: []models.DistributionCategorySummary{},
		ByStatus:   make(map[models.AllocationStatus]int),
	}
	groups := make(map[models.ItemCategory]*models.DistributionCategorySummary)
	for _, a := range allocations {
		summary.ByStatus[a.OverallStatus]++
		// Rejected plans were never issued and stay out of the totals.
		if a.OverallStatus == models.AllocationCancelled {
			continue
		}
		category := models.CategoryOther
		if a.Item != nil {
			category = a.Item.Category
		}
		group, ok := groups[category]
		if !ok {
			group = &models.DistributionCategorySummary{Category: category}
			groups[category] = group
		}
		group.Allocations++
		group.SuggestedQuantity = models.Sum(models.QuantityPlaces, group.SuggestedQuantity, a.TotalSuggestedQuantity)
		group.ActualQuantity = models.Sum(models.QuantityPlaces, group.ActualQuantity, a.TotalActualQuantity)
		group.SuggestedAmount = models.Sum(models.AmountPlaces, group.SuggestedAmount, a.Budget.Allocated)
		group.ActualAmount = models.Sum(models.AmountPlaces, group.ActualAmount, a.TotalAmount)

		summary.SuggestedQuantity = models.Sum(models.QuantityPlaces, summary.SuggestedQuantity, a.TotalSuggestedQuantity)
		summary.ActualQuantity = models.Sum(models.QuantityPlaces, summary.ActualQuantity, a.TotalActualQuantity)
		summary.SuggestedAmount = models.Sum(models.AmountPlaces, summary.SuggestedAmount, a.Budget.Allocated)
		summary.ActualAmount = models.Sum(models.AmountPlaces, summary.ActualAmount, a.TotalAmount)
	}

	for _, category := range models.ItemCategories {
		if group, ok := groups[category]; ok {
			summary.Categories = append(summary.Categories, *group)
		}
	}
	summary.Efficiency = models.Percent(summary.ActualQuantity, summary.SuggestedQuantity)
	return summary, nil
}

func sortAllocations(allocations []models.Allocation) {
	less := models.NameLess()
	sort.SliceStable(allocations, func(i, j int) bool {
		ci, cj := models.CategoryOther, models.CategoryOther
		ni, nj := "", ""
		if allocations[i].Item != nil {
			ci, ni = allocations[i].Item.Category, allocations[i].Item.Name
		}
		if allocations[j].Item != nil {
			cj, nj = allocations[j].Item.Category, allocations[j].Item.Name
		}
		if ci.Rank() != cj.Rank() {
			return ci.Rank() < cj.Rank()
		}
		return less(ni, nj)
	})
}
