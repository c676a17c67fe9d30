package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

// UnitInput carries the fields of a new unit.
type UnitInput struct {
	Code      string
	Name      string
	Kind      models.UnitKind
	Personnel int
}

// UnitPatch carries optional unit changes.
type UnitPatch struct {
	Name      *string
	Kind      *models.UnitKind
	Personnel *int
	IsActive  *bool
}

func validateUnit(u *models.Unit) error {
	var fields []apperr.FieldError
	if u.Code == "" {
		fields = append(fields, apperr.FieldError{Field: "code", Message: "Mã đơn vị là bắt buộc"})
	}
	if strings.TrimSpace(u.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "Tên đơn vị là bắt buộc"})
	}
	if !u.Kind.Valid() {
		fields = append(fields, apperr.FieldError{Field: "kind", Message: "Loại đơn vị không hợp lệ"})
	}
	if u.Personnel < 0 {
		fields = append(fields, apperr.FieldError{Field: "personnel", Message: "Quân số không được âm"})
	}
	if len(fields) > 0 {
		return apperr.Validation("Dữ liệu đơn vị không hợp lệ", fields...)
	}
	return nil
}

// CreateUnit registers an active unit.
func (s *Service) CreateUnit(ctx context.Context, in UnitInput, actor string) (*models.Unit, error) {
	now := s.now().UTC()
	unit := &models.Unit{
		Code:      strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Personnel: in.Personnel,
		IsActive:  true,
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}
	if err := s.units.Create(ctx, unit); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(fmt.Sprintf("Mã đơn vị %q đã tồn tại", unit.Code), err)
		}
		return nil, fmt.Errorf("create unit: %w", err)
	}

	s.logger.Info("unit created", zap.String("unit_id", unit.ID.Hex()), zap.String("code", unit.Code))
	return unit, nil
}

// ListUnits returns the registry ordered by code.
func (s *Service) ListUnits(ctx context.Context, includeInactive bool) ([]models.Unit, error) {
	units, err := s.units.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// GetUnit loads one unit.
func (s *Service) GetUnit(ctx context.Context, id primitive.ObjectID) (*models.Unit, error) {
	unit, err := s.units.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgUnitNotFound)
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return unit, nil
}

// UpdateUnit applies a patch. The code is immutable once created.
func (s *Service) UpdateUnit(ctx context.Context, id primitive.ObjectID, patch UnitPatch, actor string) (*models.Unit, error) {
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		unit.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Kind != nil {
		unit.Kind = *patch.Kind
	}
	if patch.Personnel != nil {
		unit.Personnel = *patch.Personnel
	}
	if patch.IsActive != nil {
		unit.IsActive = *patch.IsActive
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}

	unit.UpdatedBy = actor
	unit.UpdatedAt = s.now().UTC()
	if err := s.units.Update(ctx, unit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgUnitNotFound)
		}
		return nil, fmt.Errorf("update unit: %w", err)
	}
	return unit, nil
}

// ResolveRecipients maps the configured recipient codes, in order, onto the
// recipient slots. Every code must match an active unit.
func (s *Service) ResolveRecipients(ctx context.Context) ([]models.RecipientSlot, error) {
	units, err := s.units.FindActiveByCodes(ctx, s.recipientCodes)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	byCode := make(map[string]models.Unit, len(units))
	for _, u := range units {
		byCode[strings.ToUpper(u.Code)] = u
	}

	if len(s.recipientCodes) != len(models.RecipientSlots) {
		return nil, apperr.IllegalState(msgInsufficientUnits)
	}

	slots := make([]models.RecipientSlot, 0, len(models.RecipientSlots))
	var missing []string
	for i, code := range s.recipientCodes {
		unit, ok := byCode[strings.ToUpper(code)]
		if !ok {
			missing = append(missing, code)
			continue
		}
		slots = append(slots, models.RecipientSlot{
			Slot:      models.RecipientSlots[i],
			UnitID:    unit.ID,
			UnitCode:  unit.Code,
			UnitName:  unit.Name,
			Personnel: unit.Personnel,
			Status:    models.SlotPending,
		})
	}
	if len(missing) > 0 {
		s.logger.Warn("recipient units missing", zap.Strings("codes", missing))
		return nil, apperr.IllegalState(fmt.Sprintf("%s (thiếu: %s)", msgInsufficientUnits, strings.Join(missing, ", ")))
	}
	return slots, nil
}
