// Package distribution plans and tracks the daily handoff of an item to the
// recipient units under an approval gate.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

const (
	msgItemNotFound       = "Không tìm thấy mặt hàng LTTP"
	msgAllocationNotFound = "Không tìm thấy phân bổ"
	msgSlotNotFound       = "Không tìm thấy đơn vị nhận trong phân bổ"
)

// RecipientResolver yields the recipient slots, in order, for a new allocation.
type RecipientResolver interface {
	ResolveRecipients(ctx context.Context) ([]models.RecipientSlot, error)
}

// Service implements the distribution allocation workflow.
type Service struct {
	repo       repository.DistributionRepository
	items      repository.ItemRepository
	recipients RecipientResolver
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the allocation workflow.
func NewService(repo repository.DistributionRepository, items repository.ItemRepository, recipients RecipientResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		items:      items,
		recipients: recipients,
		logger:     logger,
		now:        time.Now,
	}
}

// SlotPlan overrides the planned share of one recipient slot.
type SlotPlan struct {
	Slot              string
	SuggestedQuantity *float64
	Personnel         *int
	Notes             *string
}

// CreateInput describes a new allocation.
type CreateInput struct {
	Date                   time.Time
	ItemID                 primitive.ObjectID
	TotalSuggestedQuantity float64
	Slots                  []SlotPlan
	AllocatedBudget        *float64
	Notes                  string
}

// UpdateInput carries plan changes; nil fields are left untouched.
type UpdateInput struct {
	TotalSuggestedQuantity *float64
	Slots                  []SlotPlan
	AllocatedBudget        *float64
	Notes                  *string
	QualityCheck           *models.QualityCheck
}

// Create opens a draft allocation for (date, item) across the four recipients.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*models.Allocation, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, in.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("load item: %w", err)
	}

	if _, err := s.repo.FindByDateItem(ctx, in.Date, in.ItemID); err == nil {
		return nil, apperr.Conflict(duplicateMessage(item.Name, in.Date), nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing allocation: %w", err)
	}

	slots, err := s.recipients.ResolveRecipients(ctx)
	if err != nil {
		return nil, err
	}
	if err := planSlots(slots, in.TotalSuggestedQuantity, in.Slots); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	allocated := models.Amount(in.TotalSuggestedQuantity, item.UnitPrice)
	if in.AllocatedBudget != nil {
		allocated = models.RoundAmount(*in.AllocatedBudget)
	}
	a := models.Allocation{
		Date:                   in.Date,
		ItemID:                 in.ItemID,
		TotalSuggestedQuantity: models.RoundQuantity(in.TotalSuggestedQuantity),
		Slots:                  slots,
		OverallStatus:          models.AllocationDraft,
		ApprovalFlow:           models.ApprovalFlow{RequestedBy: actor, RequestedAt: &now},
		Budget:                 models.Budget{Allocated: allocated},
		Notes:                  in.Notes,
		Version:                1,
		CreatedBy:              actor,
		UpdatedBy:              actor,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	a = models.RecomputeAllocation(a, now)

	if err := s.repo.Insert(ctx, &a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(duplicateMessage(item.Name, in.Date), err)
		}
		return nil, fmt.Errorf("insert allocation: %w", err)
	}

	s.logger.Info("allocation created",
		zap.String("allocation_id", a.ID.Hex()),
		zap.String("date", a.Date.Format(models.DateLayout)),
		zap.String("item_id", a.ItemID.Hex()),
		zap.Float64("suggested", a.TotalSuggestedQuantity))

	a.Item = item.Ref()
	return &a, nil
}

// GetByDate lists the day's allocations.
func (s *Service) GetByDate(ctx context.Context, date time.Time) ([]models.Allocation, error) {
	allocations, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("find allocations by date: %w", err)
	}
	if err := s.attachItems(ctx, allocations); err != nil {
		return nil, err
	}
	sortAllocations(allocations)
	return allocations, nil
}

// GetByID loads one allocation.
func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Allocation, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if item, err := s.items.FindByID(ctx, a.ItemID); err == nil {
		a.Item = item.Ref()
	}
	return a, nil
}

// Update changes the plan of an allocation that is neither completed nor cancelled.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput, actor string) (*models.Allocation, error) {
	return s.mutate(ctx, id, actor, func(a *models.Allocation, item *models.Item) error {
		if !a.OverallStatus.Editable() {
			return apperr.IllegalState(fmt.Sprintf("Không thể sửa phân bổ ở trạng thái %s", a.OverallStatus))
		}

		total := a.TotalSuggestedQuantity
		if in.TotalSuggestedQuantity != nil {
			if *in.TotalSuggestedQuantity < 0 {
				return apperr.Validation("Dữ liệu phân bổ không hợp lệ", apperr.FieldError{Field: "totalSuggestedQuantity", Message: "Số lượng không được âm"})
			}
			total = models.RoundQuantity(*in.TotalSuggestedQuantity)
		}

		switch {
		case in.Slots != nil:
			if err := planSlots(a.Slots, total, in.Slots); err != nil {
				return err
			}
		case total != a.TotalSuggestedQuantity:
			if err := planSlots(a.Slots, total, nil); err != nil {
				return err
			}
		}
		if total != a.TotalSuggestedQuantity && in.AllocatedBudget == nil {
			a.Budget.Allocated = models.Amount(total, item.UnitPrice)
		}
		a.TotalSuggestedQuantity = total

		if in.AllocatedBudget != nil {
			if *in.AllocatedBudget < 0 {
				return apperr.Validation("Dữ liệu phân bổ không hợp lệ", apperr.FieldError{Field: "budget.allocated", Message: "Ngân sách không được âm"})
			}
			a.Budget.Allocated = models.RoundAmount(*in.AllocatedBudget)
		}
		if in.Notes != nil {
			a.Notes = *in.Notes
		}
		if in.QualityCheck != nil {
			if !in.QualityCheck.Result.Valid() {
				return apperr.Validation("Dữ liệu phân bổ không hợp lệ", apperr.FieldError{Field: "qualityCheck.result", Message: "Kết quả kiểm tra không hợp lệ"})
			}
			qc := *in.QualityCheck
			if qc.CheckedBy == "" {
				qc.CheckedBy = actor
			}
			if qc.CheckedAt.IsZero() {
				qc.CheckedAt = s.now().UTC()
			}
			a.QualityCheck = &qc
		}
		return nil
	})
}

// Delete removes an allocation that has not started distribution.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID, actor string) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !a.OverallStatus.Deletable() {
		return apperr.IllegalState(fmt.Sprintf("Không thể xóa phân bổ ở trạng thái %s", a.OverallStatus))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgAllocationNotFound)
		}
		return fmt.Errorf("delete allocation: %w", err)
	}
	s.logger.Info("allocation deleted", zap.String("allocation_id", id.Hex()), zap.String("actor", actor))
	return nil
}

// mutate loads an allocation, applies fn, re-derives the save-time fields,
// bumps the version and persists it.
func (s *Service) mutate(ctx context.Context, id primitive.ObjectID, actor string, fn func(a *models.Allocation, item *models.Item) error) (*models.Allocation, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, a.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("load item: %w", err)
	}

	if err := fn(a, item); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	saved := models.RecomputeAllocation(*a, now)
	saved.Version++
	saved.UpdatedBy = actor
	saved.UpdatedAt = now
	if err := s.repo.Update(ctx, &saved); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgAllocationNotFound)
		}
		return nil, fmt.Errorf("save allocation: %w", err)
	}

	saved.Item = item.Ref()
	return &saved, nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.Allocation, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgAllocationNotFound)
		}
		return nil, fmt.Errorf("load allocation: %w", err)
	}
	return a, nil
}

func (s *Service) attachItems(ctx context.Context, allocations []models.Allocation) error {
	if len(allocations) == 0 {
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
	for i := range allocations {
		if item, ok := byID[allocations[i].ItemID]; ok {
			allocations[i].Item = item.Ref()
		}
	}
	return nil
}

func validateCreate(in CreateInput) error {
	var fields []apperr.FieldError
	if in.Date.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "date", Message: "Ngày là bắt buộc"})
	}
	if in.ItemID.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "lttpItemId", Message: "Mặt hàng là bắt buộc"})
	}
	if in.TotalSuggestedQuantity < 0 {
		fields = append(fields, apperr.FieldError{Field: "totalSuggestedQuantity", Message: "Số lượng không được âm"})
	}
	if in.AllocatedBudget != nil && *in.AllocatedBudget < 0 {
		fields = append(fields, apperr.FieldError{Field: "budget.allocated", Message: "Ngân sách không được âm"})
	}
	if len(fields) > 0 {
		return apperr.Validation("Dữ liệu phân bổ không hợp lệ", fields...)
	}
	return nil
}

// planSlots applies per-slot overrides, then spreads whatever part of total
// is not explicitly assigned across the remaining slots by personnel share.
func planSlots(slots []models.RecipientSlot, total float64, plans []SlotPlan) error {
	explicit := make(map[int]bool, len(plans))
	var assigned []float64
	for _, plan := range plans {
		idx := slotIndex(slots, plan.Slot)
		if idx < 0 {
			return apperr.Validation("Dữ liệu phân bổ không hợp lệ", apperr.FieldError{Field: "units", Message: fmt.Sprintf("Đơn vị nhận %q không hợp lệ", plan.Slot)})
		}
		if plan.Personnel != nil {
			if *plan.Personnel < 0 {
				return apperr.Validation("Dữ liệu phân bổ không hợp lệ", apperr.FieldError{Field: "units." + plan.Slot + ".personnel", Message: "Quân số không được âm"})
			}
			slots[idx].Personnel = *plan.Personnel
		}
		if plan.Notes != nil {
			slots[idx].Notes = *plan.Notes
		}
		if plan.SuggestedQuantity != nil {
			if *plan.SuggestedQuantity < 0 {
				return apperr.Validation("Dữ liệu phân bổ không hợp lệ", apperr.FieldError{Field: "units." + plan.Slot + ".suggestedQuantity", Message: "Số lượng không được âm"})
			}
			slots[idx].SuggestedQuantity = models.RoundQuantity(*plan.SuggestedQuantity)
			explicit[idx] = true
			assigned = append(assigned, slots[idx].SuggestedQuantity)
		}
	}

	remainder := models.Balance(total, 0, models.Sum(models.QuantityPlaces, assigned...), models.QuantityPlaces)
	if remainder < 0 {
		return apperr.Validation("Tổng số lượng đề xuất của các đơn vị vượt quá tổng phân bổ",
			apperr.FieldError{Field: "units", Message: "Tổng đề xuất vượt quá tổng phân bổ"})
	}

	var open []int
	var personnel []int
	for i := range slots {
		if !explicit[i] {
			open = append(open, i)
			personnel = append(personnel, slots[i].Personnel)
		}
	}
	if len(open) == 0 {
		if remainder != 0 {
			return apperr.Validation("Tổng số lượng đề xuất của các đơn vị không khớp tổng phân bổ",
				apperr.FieldError{Field: "units", Message: "Tổng đề xuất không khớp tổng phân bổ"})
		}
		return nil
	}
	for i, share := range models.SplitSuggested(remainder, personnel) {
		slots[open[i]].SuggestedQuantity = share
	}
	return nil
}

func slotIndex(slots []models.RecipientSlot, name string) int {
	for i := range slots {
		if strings.EqualFold(slots[i].Slot, name) {
			return i
		}
	}
	return -1
}

func duplicateMessage(itemName string, date time.Time) string {
	return fmt.Sprintf("Đã có phân bổ cho mặt hàng %s ngày %s", itemName, date.Format(models.DateLayout))
}
