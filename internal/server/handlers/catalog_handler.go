package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/service/catalog"
)

// CatalogHandler exposes the item catalog and unit directory.
type CatalogHandler struct {
	svc    *catalog.Service
	logger *zap.Logger
}

// NewCatalogHandler constructs the catalog HTTP adapter.
func NewCatalogHandler(svc *catalog.Service, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

type itemRequest struct {
	Name          string   `json:"name" binding:"required"`
	Category      string   `json:"category" binding:"required"`
	Unit          string   `json:"unit" binding:"required"`
	UnitPrice     *float64 `json:"unitPrice" binding:"required,gte=0"`
	ShelfLifeDays *int     `json:"shelfLifeDays" binding:"omitempty,gte=0"`
	Description   string   `json:"description"`
}

type itemUpdateRequest struct {
	Name          *string  `json:"name"`
	Category      *string  `json:"category"`
	Unit          *string  `json:"unit"`
	UnitPrice     *float64 `json:"unitPrice" binding:"omitempty,gte=0"`
	ShelfLifeDays *int     `json:"shelfLifeDays" binding:"omitempty,gte=0"`
	Description   *string  `json:"description"`
}

type priceRequest struct {
	UnitPrice *float64 `json:"unitPrice" binding:"required,gte=0"`
}

type unitRequest struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	Personnel int    `json:"personnel" binding:"gte=0"`
}

type unitUpdateRequest struct {
	Name      *string `json:"name"`
	Kind      *string `json:"kind"`
	Personnel *int    `json:"personnel" binding:"omitempty,gte=0"`
	IsActive  *bool   `json:"isActive"`
}

// ListItems handles GET /api/lttp/items.
func (h *CatalogHandler) ListItems(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))
	items, err := h.svc.ListItems(c.Request.Context(), models.ItemFilter{
		Category:        models.ItemCategory(c.Query("category")),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, items, "")
}

// GetItem handles GET /api/lttp/items/:id.
func (h *CatalogHandler) GetItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, item, "")
}

// CreateItem handles POST /api/lttp/items.
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req itemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.CreateItem(c.Request.Context(), catalog.ItemInput{
		Name:          req.Name,
		Category:      models.ItemCategory(req.Category),
		Unit:          models.MeasureUnit(req.Unit),
		UnitPrice:     *req.UnitPrice,
		ShelfLifeDays: req.ShelfLifeDays,
		Description:   req.Description,
	}, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, item, "Tạo mặt hàng thành công")
}

// UpdateItem handles PUT /api/lttp/items/:id. A unitPrice in the body is
// applied through the price operation so its timestamp is refreshed.
func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req itemUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := catalog.ItemPatch{Name: req.Name, ShelfLifeDays: req.ShelfLifeDays, Description: req.Description}
	if req.Category != nil {
		category := models.ItemCategory(*req.Category)
		patch.Category = &category
	}
	if req.Unit != nil {
		unit := models.MeasureUnit(*req.Unit)
		patch.Unit = &unit
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), id, patch, actor(c))
	if err == nil && req.UnitPrice != nil && *req.UnitPrice != item.UnitPrice {
		item, err = h.svc.UpdatePrice(c.Request.Context(), id, *req.UnitPrice, actor(c))
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, item, "Cập nhật mặt hàng thành công")
}

// UpdatePrice handles PATCH /api/lttp/items/:id/price.
func (h *CatalogHandler) UpdatePrice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req priceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.UpdatePrice(c.Request.Context(), id, *req.UnitPrice, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, item, "Cập nhật giá thành công")
}

// DeactivateItem handles DELETE /api/lttp/items/:id.
func (h *CatalogHandler) DeactivateItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.DeactivateItem(c.Request.Context(), id, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, item, "Đã ngừng sử dụng mặt hàng")
}

// ListUnits handles GET /api/units.
func (h *CatalogHandler) ListUnits(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))
	units, err := h.svc.ListUnits(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, units, "")
}

// GetUnit handles GET /api/units/:id.
func (h *CatalogHandler) GetUnit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	unit, err := h.svc.GetUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, unit, "")
}

// CreateUnit handles POST /api/units.
func (h *CatalogHandler) CreateUnit(c *gin.Context) {
	var req unitRequest
	if !bindJSON(c, &req) {
		return
	}
	unit, err := h.svc.CreateUnit(c.Request.Context(), catalog.UnitInput{
		Code:      req.Code,
		Name:      req.Name,
		Kind:      models.UnitKind(req.Kind),
		Personnel: req.Personnel,
	}, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, unit, "Tạo đơn vị thành công")
}

// UpdateUnit handles PUT /api/units/:id.
func (h *CatalogHandler) UpdateUnit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req unitUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	patch := catalog.UnitPatch{Name: req.Name, Personnel: req.Personnel, IsActive: req.IsActive}
	if req.Kind != nil {
		kind := models.UnitKind(*req.Kind)
		patch.Kind = &kind
	}
	unit, err := h.svc.UpdateUnit(c.Request.Context(), id, patch, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, unit, "Cập nhật đơn vị thành công")
}
