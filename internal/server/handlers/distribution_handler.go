package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/service/distribution"
)

// DistributionHandler exposes allocation planning and the approval workflow.
type DistributionHandler struct {
	svc    *distribution.Service
	today  func() time.Time
	logger *zap.Logger
}

// NewDistributionHandler constructs the distribution HTTP adapter. today
// supplies the ledger date used when a request omits one.
func NewDistributionHandler(svc *distribution.Service, today func() time.Time, logger *zap.Logger) *DistributionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributionHandler{svc: svc, today: today, logger: logger}
}

type slotPlanRequest struct {
	Slot              string   `json:"slot" binding:"required"`
	SuggestedQuantity *float64 `json:"suggestedQuantity" binding:"omitempty,gte=0"`
	Personnel         *int     `json:"personnel" binding:"omitempty,gte=0"`
	Notes             *string  `json:"notes"`
}

type budgetRequest struct {
	Allocated *float64 `json:"allocated" binding:"omitempty,gte=0"`
}

type allocationRequest struct {
	Date                   string            `json:"date" binding:"required,ymd"`
	LttpItemID             string            `json:"lttpItemId" binding:"required"`
	TotalSuggestedQuantity *float64          `json:"totalSuggestedQuantity" binding:"required,gte=0"`
	Units                  []slotPlanRequest `json:"units" binding:"dive"`
	Budget                 *budgetRequest    `json:"budget"`
	Notes                  string            `json:"notes"`
}

type allocationUpdateRequest struct {
	TotalSuggestedQuantity *float64             `json:"totalSuggestedQuantity" binding:"omitempty,gte=0"`
	Units                  []slotPlanRequest    `json:"units" binding:"dive"`
	Budget                 *budgetRequest       `json:"budget"`
	Notes                  *string              `json:"notes"`
	QualityCheck           *qualityCheckRequest `json:"qualityCheck"`
}

type decisionRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

type distributeRequest struct {
	ActualQuantity *float64 `json:"actualQuantity" binding:"required,gte=0"`
	ReceivedBy     string   `json:"receivedBy"`
	Notes          string   `json:"notes"`
}

type completeRequest struct {
	ReceivedBy string `json:"receivedBy"`
	Notes      string `json:"notes"`
}

type issueRequest struct {
	Issue string `json:"issue" binding:"required"`
}

func toSlotPlans(in []slotPlanRequest) []distribution.SlotPlan {
	if in == nil {
		return nil
	}
	out := make([]distribution.SlotPlan, 0, len(in))
	for _, p := range in {
		out = append(out, distribution.SlotPlan{
			Slot:              p.Slot,
			SuggestedQuantity: p.SuggestedQuantity,
			Personnel:         p.Personnel,
			Notes:             p.Notes,
		})
	}
	return out
}

// GetByDate handles GET /api/lttp-distribution?date.
func (h *DistributionHandler) GetByDate(c *gin.Context) {
	date, ok := queryDate(c, "date", h.today)
	if !ok {
		return
	}
	allocations, err := h.svc.GetByDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocations, "")
}

// DailySummary handles GET /api/lttp-distribution/summary/daily?date.
func (h *DistributionHandler) DailySummary(c *gin.Context) {
	date, ok := queryDate(c, "date", h.today)
	if !ok {
		return
	}
	summary, err := h.svc.DailySummary(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, summary, "")
}

// GetByID handles GET /api/lttp-distribution/:id.
func (h *DistributionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	allocation, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "")
}

// Create handles POST /api/lttp-distribution.
func (h *DistributionHandler) Create(c *gin.Context) {
	var req allocationRequest
	if !bindJSON(c, &req) {
		return
	}
	itemID, err := primitive.ObjectIDFromHex(req.LttpItemID)
	if err != nil {
		respondBadRequest(c, "ID không hợp lệ", apperr.FieldError{Field: "lttpItemId", Message: "ID không hợp lệ"})
		return
	}

	in := distribution.CreateInput{
		Date:                   parseBodyDate(req.Date, h.today),
		ItemID:                 itemID,
		TotalSuggestedQuantity: *req.TotalSuggestedQuantity,
		Slots:                  toSlotPlans(req.Units),
		Notes:                  req.Notes,
	}
	if req.Budget != nil {
		in.AllocatedBudget = req.Budget.Allocated
	}

	allocation, err := h.svc.Create(c.Request.Context(), in, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, allocation, "Tạo phân bổ thành công")
}

// Update handles PUT /api/lttp-distribution/:id.
func (h *DistributionHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req allocationUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	in := distribution.UpdateInput{
		TotalSuggestedQuantity: req.TotalSuggestedQuantity,
		Slots:                  toSlotPlans(req.Units),
		Notes:                  req.Notes,
	}
	if req.Budget != nil {
		in.AllocatedBudget = req.Budget.Allocated
	}
	if qc := req.QualityCheck; qc != nil {
		in.QualityCheck = &models.QualityCheck{Result: models.QualityResult(qc.Result), Notes: qc.Notes}
	}

	allocation, err := h.svc.Update(c.Request.Context(), id, in, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Cập nhật phân bổ thành công")
}

// Submit handles PATCH /api/lttp-distribution/:id/submit.
func (h *DistributionHandler) Submit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	allocation, err := h.svc.Submit(c.Request.Context(), id, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Đã gửi phê duyệt")
}

// Approve handles PATCH /api/lttp-distribution/:id/approve.
func (h *DistributionHandler) Approve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	allocation, err := h.svc.Approve(c.Request.Context(), id, req.Notes, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Đã phê duyệt phân bổ")
}

// Reject handles PATCH /api/lttp-distribution/:id/reject.
func (h *DistributionHandler) Reject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	allocation, err := h.svc.Reject(c.Request.Context(), id, req.Reason, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Đã từ chối phân bổ")
}

// DistributeUnit handles PATCH /api/lttp-distribution/:id/units/:unitName/distribute.
func (h *DistributionHandler) DistributeUnit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req distributeRequest
	if !bindJSON(c, &req) {
		return
	}
	in := distribution.HandoffInput{ActualQuantity: *req.ActualQuantity, ReceivedBy: req.ReceivedBy, Notes: req.Notes}
	allocation, err := h.svc.DistributeUnit(c.Request.Context(), id, c.Param("unitName"), in, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Đã cấp phát cho đơn vị")
}

// CompleteUnit handles PATCH /api/lttp-distribution/:id/units/:unitName/complete.
// The body is optional.
func (h *DistributionHandler) CompleteUnit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req completeRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	in := distribution.HandoffInput{ReceivedBy: req.ReceivedBy, Notes: req.Notes}
	allocation, err := h.svc.CompleteUnit(c.Request.Context(), id, c.Param("unitName"), in, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Đơn vị đã nhận đủ")
}

// ReportIssue handles POST /api/lttp-distribution/:id/issues.
func (h *DistributionHandler) ReportIssue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req issueRequest
	if !bindJSON(c, &req) {
		return
	}
	allocation, err := h.svc.ReportIssue(c.Request.Context(), id, req.Issue, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, allocation, "Đã ghi nhận sự cố")
}

// Delete handles DELETE /api/lttp-distribution/:id.
func (h *DistributionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, actor(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, nil, "Đã xóa phân bổ")
}
