// Package inventory maintains the daily provisions ledger: one balance per
// item and day, carried over from the previous day and classified by
// freshness.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

const (
	msgItemNotFound   = "Không tìm thấy mặt hàng LTTP"
	msgRecordNotFound = "Không tìm thấy bản ghi tồn kho"

	// DefaultAlertDays is the look-ahead used when callers do not pass one.
	DefaultAlertDays = 7
)

// Service implements the daily inventory ledger.
type Service struct {
	records repository.InventoryRepository
	items   repository.ItemRepository
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the ledger. loc is the calendar used for "today" and for
// days-until-expiry.
func NewService(records repository.InventoryRepository, items repository.ItemRepository, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		records: records,
		items:   items,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Today returns the current ledger date.
func (s *Service) Today() time.Time {
	return models.Day(s.now(), s.loc)
}

// InputPatch changes the received block; nil fields are left untouched.
type InputPatch struct {
	Quantity   *float64
	Amount     *float64
	ReceivedBy *string
	ExpiryDate *time.Time
	Notes      *string
}

// OutputPatch changes the issued block; nil fields are left untouched.
type OutputPatch struct {
	Quantity      *float64
	Amount        *float64
	DistributedTo []string
	Notes         *string
}

// Entry addresses one (date, item) ledger row and the changes to merge into it.
type Entry struct {
	Date   time.Time
	ItemID primitive.ObjectID
	Input  *InputPatch
	Output *OutputPatch
}

// InitResult reports what InitializeForDate did.
type InitResult struct {
	Date    time.Time `json:"date"`
	Created int       `json:"created"`
	Skipped int       `json:"skipped"`
}

// GetByDate returns the day's ledger sorted by category, then item name.
func (s *Service) GetByDate(ctx context.Context, date time.Time) ([]models.DailyInventoryRecord, error) {
	records, err := s.records.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("find inventory by date: %w", err)
	}
	if err := s.attachItems(ctx, records); err != nil {
		return nil, err
	}
	sortByCategoryAndName(records)
	return records, nil
}

// GetByDateRange returns ledger rows between start and end inclusive, sorted
// by date then item name.
func (s *Service) GetByDateRange(ctx context.Context, start, end time.Time, itemID *primitive.ObjectID) ([]models.DailyInventoryRecord, error) {
	if end.Before(start) {
		return nil, apperr.Validation("Khoảng thời gian không hợp lệ", apperr.FieldError{Field: "endDate", Message: "Ngày kết thúc phải sau ngày bắt đầu"})
	}
	records, err := s.records.FindByDateRange(ctx, start, end, itemID)
	if err != nil {
		return nil, fmt.Errorf("find inventory by range: %w", err)
	}
	if err := s.attachItems(ctx, records); err != nil {
		return nil, err
	}

	less := models.NameLess()
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return less(itemName(records[i]), itemName(records[j]))
	})
	return records, nil
}

// CreateOrUpdate merges the entry into the (date, item) row, creating it with
// a zero opening balance when absent, then pushes the new closing balance
// into the next day's opening balance if that row exists.
func (s *Service) CreateOrUpdate(ctx context.Context, entry Entry, actor string) (*models.DailyInventoryRecord, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, entry.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("load item: %w", err)
	}

	now := s.now().UTC()
	rec, err := s.records.FindByDateItem(ctx, entry.Date, entry.ItemID)
	isNew := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		isNew = true
		rec = &models.DailyInventoryRecord{
			Date:      entry.Date,
			ItemID:    entry.ItemID,
			Status:    models.StatusGood,
			CreatedBy: actor,
			CreatedAt: now,
		}
	case err != nil:
		return nil, fmt.Errorf("load inventory record: %w", err)
	}

	applyInput(&rec.Input, entry.Input, item.UnitPrice)
	applyOutput(&rec.Output, entry.Output, item.UnitPrice)
	rec.UpdatedBy = actor
	rec.UpdatedAt = now

	derived := models.DeriveEndOfDay(*rec, s.now(), s.loc)
	if isNew {
		err = s.records.Insert(ctx, &derived)
	} else {
		err = s.records.Update(ctx, &derived)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Bản ghi tồn kho cho ngày này đã tồn tại", err)
		}
		return nil, fmt.Errorf("save inventory record: %w", err)
	}

	s.logger.Info("inventory record saved",
		zap.String("date", derived.Date.Format(models.DateLayout)),
		zap.String("item_id", derived.ItemID.Hex()),
		zap.Float64("end_of_day", derived.EndOfDay.Quantity),
		zap.String("status", string(derived.Status)),
		zap.Bool("created", isNew))

	if err := s.propagate(ctx, &derived, actor); err != nil {
		s.logger.Warn("carry-over propagation failed",
			zap.String("date", derived.Date.Format(models.DateLayout)),
			zap.String("item_id", derived.ItemID.Hex()),
			zap.Error(err))
	}

	derived.Item = item.Ref()
	return &derived, nil
}

// propagate copies rec's closing balance into the next day's opening balance
// when the next day's row already exists.
func (s *Service) propagate(ctx context.Context, rec *models.DailyInventoryRecord, actor string) error {
	next, err := s.records.FindByDateItem(ctx, models.NextDay(rec.Date), rec.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load next day: %w", err)
	}

	next.PreviousDay = models.OpeningFrom(rec)
	next.UpdatedBy = actor
	next.UpdatedAt = s.now().UTC()
	derived := models.DeriveEndOfDay(*next, s.now(), s.loc)
	if err := s.records.Update(ctx, &derived); err != nil {
		return fmt.Errorf("update next day: %w", err)
	}

	s.logger.Debug("carry-over propagated",
		zap.String("to_date", derived.Date.Format(models.DateLayout)),
		zap.String("item_id", derived.ItemID.Hex()),
		zap.Float64("opening", derived.PreviousDay.Quantity))
	return nil
}

// InitializeForDate opens a row for every active item lacking one on date,
// seeded from the previous day's closing balance.
func (s *Service) InitializeForDate(ctx context.Context, date time.Time, actor string) (*InitResult, error) {
	items, err := s.items.List(ctx, models.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}

	existing, err := s.records.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("find inventory by date: %w", err)
	}
	present := make(map[primitive.ObjectID]struct{}, len(existing))
	for _, rec := range existing {
		present[rec.ItemID] = struct{}{}
	}

	prior, err := s.records.FindByDate(ctx, models.PrevDay(date))
	if err != nil {
		return nil, fmt.Errorf("find previous day: %w", err)
	}
	closing := make(map[primitive.ObjectID]*models.DailyInventoryRecord, len(prior))
	for i := range prior {
		closing[prior[i].ItemID] = &prior[i]
	}

	result := &InitResult{Date: date}
	now := s.now().UTC()
	for _, item := range items {
		if _, ok := present[item.ID]; ok {
			result.Skipped++
			continue
		}
		rec := models.DailyInventoryRecord{
			Date:        date,
			ItemID:      item.ID,
			PreviousDay: models.OpeningFrom(closing[item.ID]),
			Status:      models.StatusGood,
			CreatedBy:   actor,
			UpdatedBy:   actor,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		derived := models.DeriveEndOfDay(rec, s.now(), s.loc)
		if err := s.records.Insert(ctx, &derived); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// Created concurrently since the existence check.
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("initialize item %s: %w", item.ID.Hex(), err)
		}
		result.Created++
	}

	s.logger.Info("inventory initialized",
		zap.String("date", date.Format(models.DateLayout)),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// ExpiryAlerts lists stocked rows whose closing expiry falls within daysAhead
// of today and that are already near expiry or expired.
func (s *Service) ExpiryAlerts(ctx context.Context, daysAhead int) ([]models.DailyInventoryRecord, error) {
	if daysAhead < 0 {
		return nil, apperr.Validation("Số ngày không hợp lệ", apperr.FieldError{Field: "days", Message: "Số ngày phải lớn hơn hoặc bằng 0"})
	}
	cutoff := s.Today().AddDate(0, 0, daysAhead)
	records, err := s.records.FindExpiring(ctx, cutoff, []models.FreshnessStatus{models.StatusNearExpiry, models.StatusExpired})
	if err != nil {
		return nil, fmt.Errorf("find expiring inventory: %w", err)
	}
	if err := s.attachItems(ctx, records); err != nil {
		return nil, err
	}

	less := models.NameLess()
	sort.SliceStable(records, func(i, j int) bool {
		ei, ej := records[i].EndOfDay.ExpiryDate, records[j].EndOfDay.ExpiryDate
		if !ei.Equal(*ej) {
			return ei.Before(*ej)
		}
		return less(itemName(records[i]), itemName(records[j]))
	})
	return records, nil
}

// RecordQualityCheck stores an inspection on a ledger row. A failed inspection
// marks the stock as damaged.
func (s *Service) RecordQualityCheck(ctx context.Context, id primitive.ObjectID, result models.QualityResult, notes, actor string) (*models.DailyInventoryRecord, error) {
	if !result.Valid() {
		return nil, apperr.Validation("Kết quả kiểm tra không hợp lệ", apperr.FieldError{Field: "result", Message: string(result)})
	}
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgRecordNotFound)
		}
		return nil, fmt.Errorf("load inventory record: %w", err)
	}

	now := s.now().UTC()
	rec.QualityCheck = &models.QualityCheck{CheckedBy: actor, CheckedAt: now, Result: result, Notes: notes}
	if result == models.QualityFailed {
		rec.Status = models.StatusDamaged
	}
	rec.UpdatedBy = actor
	rec.UpdatedAt = now
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("save quality check: %w", err)
	}

	if item, err := s.items.FindByID(ctx, rec.ItemID); err == nil {
		rec.Item = item.Ref()
	}
	return rec, nil
}

func validateEntry(entry Entry) error {
	var fields []apperr.FieldError
	if entry.Date.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "date", Message: "Ngày là bắt buộc"})
	}
	if entry.ItemID.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "lttpItemId", Message: "Mặt hàng là bắt buộc"})
	}
	if in := entry.Input; in != nil {
		fields = appendNonNegative(fields, "input.quantity", in.Quantity)
		fields = appendNonNegative(fields, "input.amount", in.Amount)
	}
	if out := entry.Output; out != nil {
		fields = appendNonNegative(fields, "output.quantity", out.Quantity)
		fields = appendNonNegative(fields, "output.amount", out.Amount)
	}
	if len(fields) > 0 {
		return apperr.Validation("Dữ liệu tồn kho không hợp lệ", fields...)
	}
	return nil
}

func appendNonNegative(fields []apperr.FieldError, name string, v *float64) []apperr.FieldError {
	if v != nil && *v < 0 {
		return append(fields, apperr.FieldError{Field: name, Message: "Giá trị không được âm"})
	}
	return fields
}

func applyInput(dst *models.InventoryInput, patch *InputPatch, unitPrice float64) {
	if patch == nil {
		return
	}
	if patch.Quantity != nil {
		dst.Quantity = models.RoundQuantity(*patch.Quantity)
		if patch.Amount == nil {
			dst.Amount = models.Amount(dst.Quantity, unitPrice)
		}
	}
	if patch.Amount != nil {
		dst.Amount = models.RoundAmount(*patch.Amount)
	}
	if patch.ReceivedBy != nil {
		dst.ReceivedBy = *patch.ReceivedBy
	}
	if patch.ExpiryDate != nil {
		expiry := *patch.ExpiryDate
		dst.ExpiryDate = &expiry
	}
	if patch.Notes != nil {
		dst.Notes = *patch.Notes
	}
}

func applyOutput(dst *models.InventoryOutput, patch *OutputPatch, unitPrice float64) {
	if patch == nil {
		return
	}
	if patch.Quantity != nil {
		dst.Quantity = models.RoundQuantity(*patch.Quantity)
		if patch.Amount == nil {
			dst.Amount = models.Amount(dst.Quantity, unitPrice)
		}
	}
	if patch.Amount != nil {
		dst.Amount = models.RoundAmount(*patch.Amount)
	}
	if patch.DistributedTo != nil {
		dst.DistributedTo = append([]string(nil), patch.DistributedTo...)
	}
	if patch.Notes != nil {
		dst.Notes = *patch.Notes
	}
}

func (s *Service) attachItems(ctx context.Context, records []models.DailyInventoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	items, err := s.items.List(ctx, models.ItemFilter{IncludeInactive: true})
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	byID := make(map[primitive.ObjectID]models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for i := range records {
		if item, ok := byID[records[i].ItemID]; ok {
			records[i].Item = item.Ref()
		}
	}
	return nil
}

func itemName(rec models.DailyInventoryRecord) string {
	if rec.Item == nil {
		return ""
	}
	return rec.Item.Name
}

func itemCategory(rec models.DailyInventoryRecord) models.ItemCategory {
	if rec.Item == nil {
		return models.CategoryOther
	}
	return rec.Item.Category
}

func sortByCategoryAndName(records []models.DailyInventoryRecord) {
	less := models.NameLess()
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := itemCategory(records[i]).Rank(), itemCategory(records[j]).Rank()
		if ri != rj {
			return ri < rj
		}
		return less(itemName(records[i]), itemName(records[j]))
	})
}
