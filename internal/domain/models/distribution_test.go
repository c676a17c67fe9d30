package models

import (
	"testing"
	"time"
)

func fourSlots(statuses ...SlotStatus) []RecipientSlot {
	slots := make([]RecipientSlot, len(RecipientSlots))
	for i, name := range RecipientSlots {
		slots[i] = RecipientSlot{Slot: name, Status: SlotApproved}
		if i < len(statuses) {
			slots[i].Status = statuses[i]
		}
	}
	return slots
}

func TestRecomputeAllocationTotals(t *testing.T) {
	a := Allocation{
		OverallStatus: AllocationApproved,
		Budget:        Budget{Allocated: 1000},
		Slots:         fourSlots(SlotDistributed, SlotApproved, SlotApproved, SlotApproved),
	}
	a.Slots[0].ActualQuantity, a.Slots[0].Amount = 12.5, 250
	a.Slots[1].ActualQuantity, a.Slots[1].Amount = 0.1, 0.2

	got := RecomputeAllocation(a, time.Now())

	if got.TotalActualQuantity != 12.6 {
		t.Errorf("expected total quantity 12.6, got %v", got.TotalActualQuantity)
	}
	if got.TotalAmount != 250.2 {
		t.Errorf("expected total amount 250.2, got %v", got.TotalAmount)
	}
	if got.Budget.Actual != 250.2 || got.Budget.Variance != -749.8 {
		t.Errorf("unexpected budget %+v", got.Budget)
	}
}

func TestRecomputeAllocationStatus(t *testing.T) {
	testCases := []struct {
		name     string
		from     AllocationStatus
		statuses []SlotStatus
		want     AllocationStatus
	}{
		{"nothing moved keeps status", AllocationApproved, []SlotStatus{SlotApproved, SlotApproved, SlotApproved, SlotApproved}, AllocationApproved},
		{"draft untouched", AllocationDraft, []SlotStatus{SlotPending, SlotPending, SlotPending, SlotPending}, AllocationDraft},
		{"one distributed", AllocationApproved, []SlotStatus{SlotDistributed, SlotApproved, SlotApproved, SlotApproved}, AllocationInProgress},
		{"one completed", AllocationApproved, []SlotStatus{SlotCompleted, SlotApproved, SlotApproved, SlotApproved}, AllocationInProgress},
		{"three completed", AllocationInProgress, []SlotStatus{SlotCompleted, SlotCompleted, SlotCompleted, SlotDistributed}, AllocationInProgress},
		{"all completed", AllocationInProgress, []SlotStatus{SlotCompleted, SlotCompleted, SlotCompleted, SlotCompleted}, AllocationCompleted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := Allocation{OverallStatus: tc.from, Slots: fourSlots(tc.statuses...)}
			got := RecomputeAllocation(a, time.Now())
			if got.OverallStatus != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got.OverallStatus)
			}
		})
	}
}

func TestRecomputeAllocationStampsOnce(t *testing.T) {
	first := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	later := first.Add(3 * time.Hour)

	a := Allocation{
		OverallStatus: AllocationInProgress,
		Slots:         fourSlots(SlotCompleted, SlotCompleted, SlotCompleted, SlotCompleted),
	}

	done := RecomputeAllocation(a, first)
	if done.Distribution.CompletedAt == nil || !done.Distribution.CompletedAt.Equal(first) {
		t.Fatalf("expected completion stamped at %v, got %v", first, done.Distribution.CompletedAt)
	}
	if done.Distribution.StartedAt == nil {
		t.Fatalf("expected start to be stamped as well")
	}

	again := RecomputeAllocation(done, later)
	if !again.Distribution.CompletedAt.Equal(first) {
		t.Errorf("completion timestamp moved to %v", again.Distribution.CompletedAt)
	}
	if !again.Distribution.StartedAt.Equal(first) {
		t.Errorf("start timestamp moved to %v", again.Distribution.StartedAt)
	}
}

func TestRecomputeAllocationDoesNotMutateInput(t *testing.T) {
	a := Allocation{Slots: fourSlots(SlotCompleted, SlotCompleted, SlotCompleted, SlotCompleted)}
	_ = RecomputeAllocation(a, time.Now())
	if a.OverallStatus != "" || a.Distribution.CompletedAt != nil {
		t.Errorf("input allocation was mutated: %+v", a)
	}
}

func TestSplitSuggested(t *testing.T) {
	testCases := []struct {
		name      string
		total     float64
		personnel []int
		want      []float64
	}{
		{"even without personnel", 100, []int{0, 0, 0, 0}, []float64{25, 25, 25, 25}},
		{"remainder on last", 10, []int{0, 0, 0}, []float64{3.333, 3.333, 3.334}},
		{"by personnel", 90, []int{100, 100, 50, 50}, []float64{30, 30, 15, 15}},
		{"negative personnel ignored", 60, []int{-5, 30, 30, 0}, []float64{0, 30, 30, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitSuggested(tc.total, tc.personnel)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d parts, got %d", len(tc.want), len(got))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("part %d: expected %v, got %v", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestAllocationStatusGuards(t *testing.T) {
	if !AllocationDraft.AwaitingDecision() || !AllocationPendingApproval.AwaitingDecision() {
		t.Errorf("draft and pending approval must await a decision")
	}
	if AllocationApproved.AwaitingDecision() {
		t.Errorf("approved allocation must not await a decision")
	}
	if AllocationInProgress.Deletable() || AllocationCompleted.Deletable() {
		t.Errorf("in progress and completed allocations must not be deletable")
	}
	if !AllocationCancelled.Deletable() {
		t.Errorf("cancelled allocation should be deletable")
	}
	if AllocationDraft.Distributable() {
		t.Errorf("draft allocation must not be distributable")
	}
}
