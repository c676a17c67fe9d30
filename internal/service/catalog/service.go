package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

const (
	msgItemNotFound      = "Không tìm thấy mặt hàng LTTP"
	msgUnitNotFound      = "Không tìm thấy đơn vị"
	msgInsufficientUnits = "Không đủ 4 đơn vị nhận đang hoạt động"
)

// Service manages the provisions catalog and the unit registry.
type Service struct {
	items          repository.ItemRepository
	units          repository.UnitRepository
	recipientCodes []string
	logger         *zap.Logger
	now            func() time.Time
}

// NewService wires a catalog service. recipientCodes are the unit codes, in
// slot order, that receive distributions.
func NewService(items repository.ItemRepository, units repository.UnitRepository, recipientCodes []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	codes := make([]string, len(recipientCodes))
	for i, code := range recipientCodes {
		codes[i] = strings.ToUpper(strings.TrimSpace(code))
	}
	return &Service{
		items:          items,
		units:          units,
		recipientCodes: codes,
		logger:         logger,
		now:            time.Now,
	}
}

// ItemInput carries the fields of a new catalog item.
type ItemInput struct {
	Name          string
	Category      models.ItemCategory
	Unit          models.MeasureUnit
	UnitPrice     float64
	ShelfLifeDays *int
	Description   string
}

// ItemPatch carries optional item changes; nil fields are left untouched.
type ItemPatch struct {
	Name          *string
	Category      *models.ItemCategory
	Unit          *models.MeasureUnit
	ShelfLifeDays *int
	Description   *string
}

func validateItem(name string, category models.ItemCategory, unit models.MeasureUnit, price float64, shelfLife *int) error {
	var fields []apperr.FieldError
	if strings.TrimSpace(name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "Tên mặt hàng là bắt buộc"})
	}
	if !category.Valid() {
		fields = append(fields, apperr.FieldError{Field: "category", Message: "Danh mục không hợp lệ"})
	}
	if !unit.Valid() {
		fields = append(fields, apperr.FieldError{Field: "unit", Message: "Đơn vị tính không hợp lệ"})
	}
	if price < 0 {
		fields = append(fields, apperr.FieldError{Field: "unitPrice", Message: "Đơn giá không được âm"})
	}
	if shelfLife != nil && *shelfLife < 0 {
		fields = append(fields, apperr.FieldError{Field: "shelfLifeDays", Message: "Hạn sử dụng không được âm"})
	}
	if len(fields) > 0 {
		return apperr.Validation("Dữ liệu mặt hàng không hợp lệ", fields...)
	}
	return nil
}

// CreateItem adds an active item to the catalog.
func (s *Service) CreateItem(ctx context.Context, in ItemInput, actor string) (*models.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateItem(in.Name, in.Category, in.Unit, in.UnitPrice, in.ShelfLifeDays); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := &models.Item{
		Name:             in.Name,
		Category:         in.Category,
		Unit:             in.Unit,
		UnitPrice:        models.RoundAmount(in.UnitPrice),
		ShelfLifeDays:    in.ShelfLifeDays,
		Description:      in.Description,
		IsActive:         true,
		LastUpdatedPrice: &now,
		CreatedBy:        actor,
		UpdatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(fmt.Sprintf("Mặt hàng %q đã tồn tại", in.Name), err)
		}
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info("item created", zap.String("item_id", item.ID.Hex()), zap.String("name", item.Name), zap.String("actor", actor))
	return item, nil
}

// ListItems returns catalog items sorted by category then Vietnamese name order.
func (s *Service) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperr.Validation("Danh mục không hợp lệ", apperr.FieldError{Field: "category", Message: string(filter.Category)})
	}
	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	SortItems(items)
	return items, nil
}

// SortItems orders items by category rank, then by name.
func SortItems(items []models.Item) {
	less := models.NameLess()
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Category.Rank(), items[j].Category.Rank()
		if ri != rj {
			return ri < rj
		}
		return less(items[i].Name, items[j].Name)
	})
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ItemIndex loads every item, active or not, keyed by id.
func (s *Service) ItemIndex(ctx context.Context) (map[primitive.ObjectID]models.Item, error) {
	items, err := s.items.List(ctx, models.ItemFilter{IncludeInactive: true})
	if err != nil {
		return nil, fmt.Errorf("index items: %w", err)
	}
	index := make(map[primitive.ObjectID]models.Item, len(items))
	for _, item := range items {
		index[item.ID] = item
	}
	return index, nil
}

// ActiveItems returns the active catalog.
func (s *Service) ActiveItems(ctx context.Context) ([]models.Item, error) {
	return s.ListItems(ctx, models.ItemFilter{})
}

// UpdateItem applies descriptive changes. Prices go through UpdatePrice.
func (s *Service) UpdateItem(ctx context.Context, id primitive.ObjectID, patch ItemPatch, actor string) (*models.Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.Unit != nil {
		item.Unit = *patch.Unit
	}
	if patch.ShelfLifeDays != nil {
		item.ShelfLifeDays = patch.ShelfLifeDays
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if err := validateItem(item.Name, item.Category, item.Unit, item.UnitPrice, item.ShelfLifeDays); err != nil {
		return nil, err
	}

	return s.saveItem(ctx, item, actor)
}

// UpdatePrice sets a new unit price and stamps lastUpdatedPrice.
func (s *Service) UpdatePrice(ctx context.Context, id primitive.ObjectID, price float64, actor string) (*models.Item, error) {
	if price < 0 {
		return nil, apperr.Validation("Đơn giá không hợp lệ", apperr.FieldError{Field: "unitPrice", Message: "Đơn giá không được âm"})
	}
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := item.UnitPrice
	now := s.now().UTC()
	item.UnitPrice = models.RoundAmount(price)
	item.LastUpdatedPrice = &now

	saved, err := s.saveItem(ctx, item, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info("item price updated",
		zap.String("item_id", id.Hex()),
		zap.Float64("previous", previous),
		zap.Float64("price", saved.UnitPrice),
		zap.String("actor", actor))
	return saved, nil
}

// DeactivateItem soft-deletes an item. Items are never removed because the
// ledgers keep referencing them.
func (s *Service) DeactivateItem(ctx context.Context, id primitive.ObjectID, actor string) (*models.Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return item, nil
	}
	item.IsActive = false
	return s.saveItem(ctx, item, actor)
}

func (s *Service) saveItem(ctx context.Context, item *models.Item, actor string) (*models.Item, error) {
	item.UpdatedBy = actor
	item.UpdatedAt = s.now().UTC()
	if err := s.items.Update(ctx, item); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Conflict(fmt.Sprintf("Mặt hàng %q đã tồn tại", item.Name), err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}
