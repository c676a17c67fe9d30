package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/service/processing"
)

// ProcessingHandler exposes the processing-station ledgers.
type ProcessingHandler struct {
	svc    *processing.Service
	today  func() time.Time
	logger *zap.Logger
}

// NewProcessingHandler constructs the processing HTTP adapter.
func NewProcessingHandler(svc *processing.Service, today func() time.Time, logger *zap.Logger) *ProcessingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessingHandler{svc: svc, today: today, logger: logger}
}

type materialRequest struct {
	Code         string   `json:"code" binding:"required"`
	Quantity     *float64 `json:"quantity" binding:"omitempty,gte=0"`
	UnitPrice    *float64 `json:"unitPrice" binding:"omitempty,gte=0"`
	QualityGrade *string  `json:"qualityGrade"`
}

type productRequest struct {
	Code         string   `json:"code" binding:"required"`
	Produced     *float64 `json:"produced" binding:"omitempty,gte=0"`
	ActualOutput *float64 `json:"actualOutput" binding:"omitempty,gte=0"`
	UnitPrice    *float64 `json:"unitPrice" binding:"omitempty,gte=0"`
}

type processingRequest struct {
	Date      string            `json:"date" binding:"required,ymd"`
	UnitID    string            `json:"unitId" binding:"required"`
	Materials []materialRequest `json:"materials" binding:"dive"`
	Products  []productRequest  `json:"products" binding:"dive"`
	OtherCost *float64          `json:"otherCost" binding:"omitempty,gte=0"`
	Notes     *string           `json:"notes"`
}

// ListStations handles GET /api/processing/stations.
func (h *ProcessingHandler) ListStations(c *gin.Context) {
	respondOK(c, h.svc.ListStations(), "")
}

// GetByDate handles GET /api/processing/:station?date.
func (h *ProcessingHandler) GetByDate(c *gin.Context) {
	date, ok := queryDate(c, "date", h.today)
	if !ok {
		return
	}
	records, err := h.svc.GetByDate(c.Request.Context(), models.StationType(c.Param("station")), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, records, "")
}

// GetRange handles GET /api/processing/:station/range.
func (h *ProcessingHandler) GetRange(c *gin.Context) {
	start, ok := queryDate(c, "startDate", nil)
	if !ok {
		return
	}
	end, ok := queryDate(c, "endDate", nil)
	if !ok {
		return
	}
	unitID, ok := optionalID(c, "unitId")
	if !ok {
		return
	}
	records, err := h.svc.GetRange(c.Request.Context(), models.StationType(c.Param("station")), start, end, unitID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, records, "")
}

// Upsert handles POST /api/processing/:station.
func (h *ProcessingHandler) Upsert(c *gin.Context) {
	var req processingRequest
	if !bindJSON(c, &req) {
		return
	}
	unitID, err := primitive.ObjectIDFromHex(req.UnitID)
	if err != nil {
		respondBadRequest(c, "ID không hợp lệ", apperr.FieldError{Field: "unitId", Message: "ID không hợp lệ"})
		return
	}

	in := processing.UpsertInput{
		Date:      parseBodyDate(req.Date, h.today),
		UnitID:    unitID,
		OtherCost: req.OtherCost,
		Notes:     req.Notes,
	}
	for _, m := range req.Materials {
		in.Materials = append(in.Materials, processing.MaterialInput{
			Code:         m.Code,
			Quantity:     m.Quantity,
			UnitPrice:    m.UnitPrice,
			QualityGrade: m.QualityGrade,
		})
	}
	for _, p := range req.Products {
		in.Products = append(in.Products, processing.ProductInput{
			Code:         p.Code,
			Produced:     p.Produced,
			ActualOutput: p.ActualOutput,
			UnitPrice:    p.UnitPrice,
		})
	}

	record, err := h.svc.Upsert(c.Request.Context(), models.StationType(c.Param("station")), in, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, record, "Cập nhật sổ chế biến thành công")
}

// Rollup handles GET /api/processing/:station/rollup.
func (h *ProcessingHandler) Rollup(c *gin.Context) {
	date, ok := queryDate(c, "date", h.today)
	if !ok {
		return
	}
	unitID, ok := optionalID(c, "unitId")
	if !ok {
		return
	}
	if unitID == nil {
		respondBadRequest(c, "Đơn vị là bắt buộc", apperr.FieldError{Field: "unitId", Message: "Trường này là bắt buộc"})
		return
	}
	period := models.RollupPeriod(c.DefaultQuery("period", string(models.PeriodWeek)))

	rollup, err := h.svc.Rollup(c.Request.Context(), models.StationType(c.Param("station")), *unitID, period, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, rollup, "")
}
