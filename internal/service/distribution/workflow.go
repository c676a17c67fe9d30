package distribution

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
)

// Submit sends a draft allocation for approval.
func (s *Service) Submit(ctx context.Context, id primitive.ObjectID, actor string) (*models.Allocation, error) {
	a, err := s.mutate(ctx, id, actor, func(a *models.Allocation, _ *models.Item) error {
		if a.OverallStatus != models.AllocationDraft {
			return apperr.IllegalState(fmt.Sprintf("Chỉ có thể gửi duyệt phân bổ nháp, trạng thái hiện tại: %s", a.OverallStatus))
		}
		now := s.now().UTC()
		a.OverallStatus = models.AllocationPendingApproval
		a.ApprovalFlow.RequestedBy = actor
		a.ApprovalFlow.RequestedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("allocation submitted", zap.String("allocation_id", id.Hex()), zap.String("actor", actor))
	return a, nil
}

// Approve moves a draft or pending allocation to approved and opens every
// pending slot for distribution.
func (s *Service) Approve(ctx context.Context, id primitive.ObjectID, notes, actor string) (*models.Allocation, error) {
	a, err := s.mutate(ctx, id, actor, func(a *models.Allocation, _ *models.Item) error {
		if !a.OverallStatus.AwaitingDecision() {
			return apperr.IllegalState(fmt.Sprintf("Không thể phê duyệt phân bổ ở trạng thái %s", a.OverallStatus))
		}
		now := s.now().UTC()
		a.OverallStatus = models.AllocationApproved
		a.ApprovalFlow.ApprovedBy = actor
		a.ApprovalFlow.ApprovedAt = &now
		a.ApprovalFlow.ApprovalNotes = notes
		for i := range a.Slots {
			if a.Slots[i].Status == models.SlotPending {
				a.Slots[i].Status = models.SlotApproved
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("allocation approved", zap.String("allocation_id", id.Hex()), zap.String("actor", actor))
	return a, nil
}

// Reject cancels a draft or pending allocation. A reason is required.
func (s *Service) Reject(ctx context.Context, id primitive.ObjectID, reason, actor string) (*models.Allocation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Lý do từ chối là bắt buộc", apperr.FieldError{Field: "reason", Message: "Lý do từ chối là bắt buộc"})
	}
	a, err := s.mutate(ctx, id, actor, func(a *models.Allocation, _ *models.Item) error {
		if !a.OverallStatus.AwaitingDecision() {
			return apperr.IllegalState(fmt.Sprintf("Không thể từ chối phân bổ ở trạng thái %s", a.OverallStatus))
		}
		now := s.now().UTC()
		a.OverallStatus = models.AllocationCancelled
		a.ApprovalFlow.RejectedBy = actor
		a.ApprovalFlow.RejectedAt = &now
		a.ApprovalFlow.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("allocation rejected", zap.String("allocation_id", id.Hex()), zap.String("reason", reason))
	return a, nil
}

// HandoffInput describes the actual handoff of one slot.
type HandoffInput struct {
	ActualQuantity float64
	ReceivedBy     string
	Notes          string
}

// DistributeUnit records the quantity handed to one recipient slot, priced
// at the item's current unit price.
func (s *Service) DistributeUnit(ctx context.Context, id primitive.ObjectID, slotName string, in HandoffInput, actor string) (*models.Allocation, error) {
	if in.ActualQuantity < 0 {
		return nil, apperr.Validation("Số lượng thực phát không hợp lệ", apperr.FieldError{Field: "actualQuantity", Message: "Số lượng không được âm"})
	}
	a, err := s.mutate(ctx, id, actor, func(a *models.Allocation, item *models.Item) error {
		if !a.OverallStatus.Distributable() {
			return apperr.IllegalState(fmt.Sprintf("Phân bổ chưa được phê duyệt, trạng thái hiện tại: %s", a.OverallStatus))
		}
		slot := findSlot(a, slotName)
		if slot == nil {
			return apperr.NotFound(msgSlotNotFound)
		}
		if slot.Status == models.SlotCompleted {
			return apperr.IllegalState(fmt.Sprintf("Đơn vị %s đã hoàn tất nhận hàng", slot.UnitName))
		}

		now := s.now().UTC()
		slot.ActualQuantity = models.RoundQuantity(in.ActualQuantity)
		slot.Amount = models.Amount(slot.ActualQuantity, item.UnitPrice)
		slot.Status = models.SlotDistributed
		slot.DistributedBy = actor
		slot.DistributedAt = &now
		if in.ReceivedBy != "" {
			slot.ReceivedBy = in.ReceivedBy
		}
		if in.Notes != "" {
			slot.Notes = in.Notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("allocation slot distributed",
		zap.String("allocation_id", id.Hex()),
		zap.String("slot", slotName),
		zap.Float64("quantity", in.ActualQuantity),
		zap.String("overall_status", string(a.OverallStatus)))
	return a, nil
}

// CompleteUnit confirms receipt of a distributed slot.
func (s *Service) CompleteUnit(ctx context.Context, id primitive.ObjectID, slotName string, in HandoffInput, actor string) (*models.Allocation, error) {
	a, err := s.mutate(ctx, id, actor, func(a *models.Allocation, _ *models.Item) error {
		slot := findSlot(a, slotName)
		if slot == nil {
			return apperr.NotFound(msgSlotNotFound)
		}
		if slot.Status != models.SlotDistributed {
			return apperr.IllegalState(fmt.Sprintf("Đơn vị %s chưa được phát hàng", slot.UnitName))
		}

		now := s.now().UTC()
		slot.Status = models.SlotCompleted
		slot.ReceivedAt = &now
		switch {
		case in.ReceivedBy != "":
			slot.ReceivedBy = in.ReceivedBy
		case slot.ReceivedBy == "":
			slot.ReceivedBy = actor
		}
		if in.Notes != "" {
			slot.Notes = in.Notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("allocation slot completed",
		zap.String("allocation_id", id.Hex()),
		zap.String("slot", slotName),
		zap.String("overall_status", string(a.OverallStatus)))
	return a, nil
}

// ReportIssue appends to the distribution issues log.
func (s *Service) ReportIssue(ctx context.Context, id primitive.ObjectID, message, actor string) (*models.Allocation, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validation("Nội dung sự cố là bắt buộc", apperr.FieldError{Field: "message", Message: "Nội dung sự cố là bắt buộc"})
	}
	return s.mutate(ctx, id, actor, func(a *models.Allocation, _ *models.Item) error {
		if a.OverallStatus == models.AllocationCancelled {
			return apperr.IllegalState("Phân bổ đã bị hủy")
		}
		a.Distribution.Issues = append(a.Distribution.Issues, models.DistributionIssue{
			Message:    message,
			ReportedBy: actor,
			ReportedAt: s.now().UTC(),
		})
		return nil
	})
}

func findSlot(a *models.Allocation, name string) *models.RecipientSlot {
	if idx := slotIndex(a.Slots, name); idx >= 0 {
		return &a.Slots[idx]
	}
	return nil
}
