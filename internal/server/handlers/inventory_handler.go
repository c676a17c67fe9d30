package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/service/inventory"
)

// InventoryHandler exposes the daily inventory ledger.
type InventoryHandler struct {
	svc    *inventory.Service
	logger *zap.Logger
}

// NewInventoryHandler constructs the inventory HTTP adapter.
func NewInventoryHandler(svc *inventory.Service, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

type inventoryInputRequest struct {
	Quantity   *float64 `json:"quantity" binding:"omitempty,gte=0"`
	Amount     *float64 `json:"amount" binding:"omitempty,gte=0"`
	ReceivedBy *string  `json:"receivedBy"`
	ExpiryDate *string  `json:"expiryDate" binding:"omitempty,ymd"`
	Notes      *string  `json:"notes"`
}

type inventoryOutputRequest struct {
	Quantity      *float64 `json:"quantity" binding:"omitempty,gte=0"`
	Amount        *float64 `json:"amount" binding:"omitempty,gte=0"`
	DistributedTo []string `json:"distributedTo"`
	Notes         *string  `json:"notes"`
}

type inventoryRequest struct {
	Date       string                  `json:"date" binding:"required,ymd"`
	LttpItemID string                  `json:"lttpItemId" binding:"required"`
	Input      *inventoryInputRequest  `json:"input"`
	Output     *inventoryOutputRequest `json:"output"`
}

type initializeRequest struct {
	Date string `json:"date" binding:"omitempty,ymd"`
}

type qualityCheckRequest struct {
	Result string `json:"result" binding:"required"`
	Notes  string `json:"notes"`
}

// GetByDate handles GET /api/lttp/inventory?date.
func (h *InventoryHandler) GetByDate(c *gin.Context) {
	date, ok := queryDate(c, "date", h.svc.Today)
	if !ok {
		return
	}
	records, err := h.svc.GetByDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, records, "")
}

// GetByDateRange handles GET /api/lttp/inventory/range.
func (h *InventoryHandler) GetByDateRange(c *gin.Context) {
	start, ok := queryDate(c, "startDate", nil)
	if !ok {
		return
	}
	end, ok := queryDate(c, "endDate", nil)
	if !ok {
		return
	}
	itemID, ok := optionalID(c, "lttpItemId")
	if !ok {
		return
	}
	records, err := h.svc.GetByDateRange(c.Request.Context(), start, end, itemID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, records, "")
}

// CreateOrUpdate handles POST /api/lttp/inventory.
func (h *InventoryHandler) CreateOrUpdate(c *gin.Context) {
	var req inventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	itemID, err := primitive.ObjectIDFromHex(req.LttpItemID)
	if err != nil {
		respondBadRequest(c, "ID không hợp lệ", apperr.FieldError{Field: "lttpItemId", Message: "ID không hợp lệ"})
		return
	}

	entry := inventory.Entry{Date: parseBodyDate(req.Date, h.svc.Today), ItemID: itemID}
	if in := req.Input; in != nil {
		entry.Input = &inventory.InputPatch{
			Quantity:   in.Quantity,
			Amount:     in.Amount,
			ReceivedBy: in.ReceivedBy,
			Notes:      in.Notes,
		}
		if in.ExpiryDate != nil && *in.ExpiryDate != "" {
			expiry := parseBodyDate(*in.ExpiryDate, h.svc.Today)
			entry.Input.ExpiryDate = &expiry
		}
	}
	if out := req.Output; out != nil {
		entry.Output = &inventory.OutputPatch{
			Quantity:      out.Quantity,
			Amount:        out.Amount,
			DistributedTo: out.DistributedTo,
			Notes:         out.Notes,
		}
	}

	record, err := h.svc.CreateOrUpdate(c.Request.Context(), entry, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, record, "Cập nhật tồn kho thành công")
}

// Initialize handles POST /api/lttp/inventory/initialize.
func (h *InventoryHandler) Initialize(c *gin.Context) {
	var req initializeRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.InitializeForDate(c.Request.Context(), parseBodyDate(req.Date, h.svc.Today), actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result, "Khởi tạo tồn kho thành công")
}

// ExpiryAlerts handles GET /api/lttp/inventory/expiry-alerts?days.
func (h *InventoryHandler) ExpiryAlerts(c *gin.Context) {
	days := inventory.DefaultAlertDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "Số ngày không hợp lệ", apperr.FieldError{Field: "days", Message: "Phải là số nguyên"})
			return
		}
		days = parsed
	}
	records, err := h.svc.ExpiryAlerts(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, records, "")
}

// Summary handles GET /api/lttp/inventory/summary?date.
func (h *InventoryHandler) Summary(c *gin.Context) {
	date, ok := queryDate(c, "date", h.svc.Today)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, summary, "")
}

// QualityReport handles GET /api/lttp/inventory/quality-report.
func (h *InventoryHandler) QualityReport(c *gin.Context) {
	end, ok := queryDate(c, "endDate", h.svc.Today)
	if !ok {
		return
	}
	start, ok := queryDate(c, "startDate", func() time.Time { return end.AddDate(0, 0, -6) })
	if !ok {
		return
	}
	report, err := h.svc.QualityReport(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, report, "")
}

// RecordQualityCheck handles PATCH /api/lttp/inventory/:id/quality-check.
func (h *InventoryHandler) RecordQualityCheck(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req qualityCheckRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.svc.RecordQualityCheck(c.Request.Context(), id, models.QualityResult(req.Result), req.Notes, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, record, "Đã ghi nhận kiểm tra chất lượng")
}
