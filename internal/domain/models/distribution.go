package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AllocationStatus is the overall workflow state of a distribution allocation.
type AllocationStatus string

const (
	AllocationDraft           AllocationStatus = "draft"
	AllocationPendingApproval AllocationStatus = "pending_approval"
	AllocationApproved        AllocationStatus = "approved"
	AllocationInProgress      AllocationStatus = "in_progress"
	AllocationCompleted       AllocationStatus = "completed"
	AllocationCancelled       AllocationStatus = "cancelled"
)

// AwaitingDecision reports whether an approver may still approve or reject.
func (s AllocationStatus) AwaitingDecision() bool {
	return s == AllocationDraft || s == AllocationPendingApproval
}

// Distributable reports whether recipient slots may be handed out.
func (s AllocationStatus) Distributable() bool {
	return s == AllocationApproved || s == AllocationInProgress
}

// Deletable reports whether the allocation may still be removed.
func (s AllocationStatus) Deletable() bool {
	return s != AllocationInProgress && s != AllocationCompleted
}

// Editable reports whether plan fields may still change.
func (s AllocationStatus) Editable() bool {
	return s != AllocationCompleted && s != AllocationCancelled
}

// SlotStatus is the per-recipient handoff state.
type SlotStatus string

const (
	SlotPending     SlotStatus = "pending"
	SlotApproved    SlotStatus = "approved"
	SlotDistributed SlotStatus = "distributed"
	SlotCompleted   SlotStatus = "completed"
)

// RecipientSlot is one recipient unit's share of an allocation.
type RecipientSlot struct {
	Slot              string             `bson:"slot" json:"slot"`
	UnitID            primitive.ObjectID `bson:"unitId" json:"unitId"`
	UnitCode          string             `bson:"unitCode" json:"unitCode"`
	UnitName          string             `bson:"unitName" json:"unitName"`
	SuggestedQuantity float64            `bson:"suggestedQuantity" json:"suggestedQuantity"`
	ActualQuantity    float64            `bson:"actualQuantity" json:"actualQuantity"`
	Amount            float64            `bson:"amount" json:"amount"`
	Personnel         int                `bson:"personnel" json:"personnel"`
	Status            SlotStatus         `bson:"status" json:"status"`
	DistributedBy     string             `bson:"distributedBy,omitempty" json:"distributedBy,omitempty"`
	DistributedAt     *time.Time         `bson:"distributedAt,omitempty" json:"distributedAt,omitempty"`
	ReceivedBy        string             `bson:"receivedBy,omitempty" json:"receivedBy,omitempty"`
	ReceivedAt        *time.Time         `bson:"receivedAt,omitempty" json:"receivedAt,omitempty"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ApprovalFlow records who requested, approved or rejected an allocation.
type ApprovalFlow struct {
	RequestedBy     string     `bson:"requestedBy,omitempty" json:"requestedBy,omitempty"`
	RequestedAt     *time.Time `bson:"requestedAt,omitempty" json:"requestedAt,omitempty"`
	ApprovedBy      string     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ApprovalNotes   string     `bson:"approvalNotes,omitempty" json:"approvalNotes,omitempty"`
	RejectedBy      string     `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectionReason string     `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
}

// DistributionIssue is one entry of the free-text issues log.
type DistributionIssue struct {
	Message    string    `bson:"message" json:"message"`
	ReportedBy string    `bson:"reportedBy" json:"reportedBy"`
	ReportedAt time.Time `bson:"reportedAt" json:"reportedAt"`
}

// DistributionTracking holds execution timestamps and the issues log.
type DistributionTracking struct {
	StartedAt   *time.Time          `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Issues      []DistributionIssue `bson:"issues,omitempty" json:"issues,omitempty"`
}

// Budget compares the allocated amount with what was actually handed out.
type Budget struct {
	Allocated float64 `bson:"allocated" json:"allocated"`
	Actual    float64 `bson:"actual" json:"actual"`
	Variance  float64 `bson:"variance" json:"variance"`
}

// Allocation plans and tracks one item's daily handoff to the recipient units.
// Totals, budget and overall status are derived; see RecomputeAllocation.
type Allocation struct {
	ID                     primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Date                   time.Time            `bson:"date" json:"date"`
	ItemID                 primitive.ObjectID   `bson:"lttpItemId" json:"lttpItemId"`
	TotalSuggestedQuantity float64              `bson:"totalSuggestedQuantity" json:"totalSuggestedQuantity"`
	Slots                  []RecipientSlot      `bson:"units" json:"units"`
	TotalActualQuantity    float64              `bson:"totalActualQuantity" json:"totalActualQuantity"`
	TotalAmount            float64              `bson:"totalAmount" json:"totalAmount"`
	OverallStatus          AllocationStatus     `bson:"overallStatus" json:"overallStatus"`
	ApprovalFlow           ApprovalFlow         `bson:"approvalFlow" json:"approvalFlow"`
	Distribution           DistributionTracking `bson:"distribution" json:"distribution"`
	Budget                 Budget               `bson:"budget" json:"budget"`
	QualityCheck           *QualityCheck        `bson:"qualityCheck,omitempty" json:"qualityCheck,omitempty"`
	Notes                  string               `bson:"notes,omitempty" json:"notes,omitempty"`
	Version                int                  `bson:"version" json:"version"`
	CreatedBy              string               `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy              string               `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt              time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time            `bson:"updatedAt" json:"updatedAt"`

	Item *ItemRef `bson:"-" json:"lttpItem,omitempty"`
}

// Slot returns the named recipient slot, or nil.
func (a *Allocation) Slot(name string) *RecipientSlot {
	for i := range a.Slots {
		if a.Slots[i].Slot == name {
			return &a.Slots[i]
		}
	}
	return nil
}

// RecomputeAllocation returns a copy of a with totals, budget variance and the
// overall status re-derived from its slots. Start and completion timestamps
// are stamped once and never moved afterwards.
func RecomputeAllocation(a Allocation, now time.Time) Allocation {
	out := a
	out.Slots = append([]RecipientSlot(nil), a.Slots...)

	quantity := decimal.Zero
	amount := decimal.Zero
	allCompleted := len(out.Slots) > 0
	anyMoving := false
	for _, slot := range out.Slots {
		quantity = quantity.Add(decimal.NewFromFloat(slot.ActualQuantity))
		amount = amount.Add(decimal.NewFromFloat(slot.Amount))
		if slot.Status != SlotCompleted {
			allCompleted = false
		}
		if slot.Status == SlotDistributed || slot.Status == SlotCompleted {
			anyMoving = true
		}
	}
	out.TotalActualQuantity = quantity.Round(QuantityPlaces).InexactFloat64()
	out.TotalAmount = amount.Round(AmountPlaces).InexactFloat64()

	out.Budget.Actual = out.TotalAmount
	out.Budget.Variance = Balance(out.Budget.Actual, 0, out.Budget.Allocated, AmountPlaces)

	switch {
	case allCompleted:
		out.OverallStatus = AllocationCompleted
		out.Distribution.StartedAt = stampOnce(out.Distribution.StartedAt, now)
		out.Distribution.CompletedAt = stampOnce(out.Distribution.CompletedAt, now)
	case anyMoving:
		out.OverallStatus = AllocationInProgress
		out.Distribution.StartedAt = stampOnce(out.Distribution.StartedAt, now)
	}

	return out
}

func stampOnce(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	t := now
	return &t
}

// SplitSuggested divides total across recipients proportionally to their
// personnel, or evenly when nobody has personnel recorded. Rounding residue
// lands on the last recipient so the parts always sum to total.
func SplitSuggested(total float64, personnel []int) []float64 {
	n := len(personnel)
	if n == 0 {
		return nil
	}

	headcount := 0
	for _, p := range personnel {
		if p > 0 {
			headcount += p
		}
	}

	totalDec := decimal.NewFromFloat(total)
	parts := make([]float64, n)
	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		var share decimal.Decimal
		if headcount > 0 {
			weight := personnel[i]
			if weight < 0 {
				weight = 0
			}
			share = totalDec.Mul(decimal.NewFromInt(int64(weight))).Div(decimal.NewFromInt(int64(headcount)))
		} else {
			share = totalDec.Div(decimal.NewFromInt(int64(n)))
		}
		share = share.Round(QuantityPlaces)
		parts[i] = share.InexactFloat64()
		assigned = assigned.Add(share)
	}
	parts[n-1] = totalDec.Sub(assigned).Round(QuantityPlaces).InexactFloat64()
	return parts
}

// DistributionCategorySummary aggregates one category of a day's allocations.
type DistributionCategorySummary struct {
	Category          ItemCategory `json:"category"`
	Allocations       int          `json:"allocations"`
	SuggestedQuantity float64      `json:"suggestedQuantity"`
	ActualQuantity    float64      `json:"actualQuantity"`
	SuggestedAmount   float64      `json:"suggestedAmount"`
	ActualAmount      float64      `json:"actualAmount"`
}

// DistributionSummary is the daily plan-vs-actual rollup.
type DistributionSummary struct {
	Date              time.Time                     `json:"date"`
	Categories        []DistributionCategorySummary `json:"categories"`
	SuggestedQuantity float64                       `json:"suggestedQuantity"`
	ActualQuantity    float64                       `json:"actualQuantity"`
	SuggestedAmount   float64                       `json:"suggestedAmount"`
	ActualAmount      float64                       `json:"actualAmount"`
	Efficiency        float64                       `json:"efficiency"`
	ByStatus          map[AllocationStatus]int      `json:"byStatus"`
}
