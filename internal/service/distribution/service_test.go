package distribution

import (
	"context"
	"testing"
	"time"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
	"github.com/mamadbah2/lttp/internal/repository/memory"
	"github.com/mamadbah2/lttp/internal/service/catalog"
)

var (
	day10 = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	clock = time.Date(2024, 5, 10, 6, 30, 0, 0, time.UTC)
)

type fixture struct {
	svc     *Service
	store   repository.Store
	catalog *catalog.Service
	rice    models.Item
}

func newFixture(t *testing.T, recipients ...catalog.UnitInput) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	cat := catalog.NewService(store.Items, store.Units, []string{"TD1", "TD2", "TD3", "LDNB"}, nil)

	if recipients == nil {
		recipients = []catalog.UnitInput{
			{Code: "TD1", Name: "Tiểu đoàn 1", Kind: models.UnitKindCombat, Personnel: 100},
			{Code: "TD2", Name: "Tiểu đoàn 2", Kind: models.UnitKindCombat, Personnel: 100},
			{Code: "TD3", Name: "Tiểu đoàn 3", Kind: models.UnitKindCombat, Personnel: 100},
			{Code: "LDNB", Name: "Lễ đài", Kind: models.UnitKindCeremony, Personnel: 100},
		}
	}
	for _, in := range recipients {
		if _, err := cat.CreateUnit(ctx, in, "admin"); err != nil {
			t.Fatalf("create unit %s: %v", in.Code, err)
		}
	}

	rice := models.Item{Name: "Gạo tẻ", Category: models.CategoryRice, Unit: models.UnitKg, UnitPrice: 20000, IsActive: true}
	if err := store.Items.Create(ctx, &rice); err != nil {
		t.Fatalf("create item: %v", err)
	}

	svc := NewService(store.Distribution, store.Items, cat, nil)
	svc.now = func() time.Time { return clock }
	return &fixture{svc: svc, store: store, catalog: cat, rice: rice}
}

func (f *fixture) create(t *testing.T) *models.Allocation {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateInput{Date: day10, ItemID: f.rice.ID, TotalSuggestedQuantity: 100}, "planner")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return a
}

func (f *fixture) approved(t *testing.T) *models.Allocation {
	t.Helper()
	a := f.create(t)
	approved, err := f.svc.Approve(context.Background(), a.ID, "", "chief")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	return approved
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	a := f.create(t)

	if a.OverallStatus != models.AllocationDraft || a.Version != 1 {
		t.Errorf("unexpected initial state: status=%s version=%d", a.OverallStatus, a.Version)
	}
	if len(a.Slots) != 4 {
		t.Fatalf("want 4 slots, got %d", len(a.Slots))
	}
	for i, slot := range a.Slots {
		if slot.Slot != models.RecipientSlots[i] || slot.SuggestedQuantity != 25 || slot.Status != models.SlotPending {
			t.Errorf("slot %d: %+v", i, slot)
		}
	}
	if a.Budget.Allocated != 2000000 || a.Budget.Actual != 0 || a.Budget.Variance != -2000000 {
		t.Errorf("budget: %+v", a.Budget)
	}
	if a.ApprovalFlow.RequestedBy != "planner" || a.Item == nil {
		t.Errorf("approval flow or item ref missing: %+v %+v", a.ApprovalFlow, a.Item)
	}
}

func TestCreate_SplitsByPersonnelAroundExplicitSlots(t *testing.T) {
	f := newFixture(t,
		catalog.UnitInput{Code: "TD1", Name: "TD1", Kind: models.UnitKindCombat, Personnel: 300},
		catalog.UnitInput{Code: "TD2", Name: "TD2", Kind: models.UnitKindCombat, Personnel: 100},
		catalog.UnitInput{Code: "TD3", Name: "TD3", Kind: models.UnitKindCombat, Personnel: 100},
		catalog.UnitInput{Code: "LDNB", Name: "LDNB", Kind: models.UnitKindCeremony, Personnel: 40},
	)
	fixed := 10.0
	a, err := f.svc.Create(context.Background(), CreateInput{
		Date:                   day10,
		ItemID:                 f.rice.ID,
		TotalSuggestedQuantity: 110,
		Slots:                  []SlotPlan{{Slot: "ceremonyUnit", SuggestedQuantity: &fixed}},
	}, "planner")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	want := []float64{60, 20, 20, 10}
	for i, slot := range a.Slots {
		if slot.SuggestedQuantity != want[i] {
			t.Errorf("slot %s: want %v, got %v", slot.Slot, want[i], slot.SuggestedQuantity)
		}
	}

	over := 200.0
	_, err = f.svc.Create(context.Background(), CreateInput{
		Date:                   day10.AddDate(0, 0, 1),
		ItemID:                 f.rice.ID,
		TotalSuggestedQuantity: 100,
		Slots:                  []SlotPlan{{Slot: "unit1", SuggestedQuantity: &over}},
	}, "planner")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("explicit share above total should fail validation, got %v", err)
	}
}

func TestCreate_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate date and item", func(t *testing.T) {
		f := newFixture(t)
		f.create(t)
		_, err := f.svc.Create(ctx, CreateInput{Date: day10, ItemID: f.rice.ID, TotalSuggestedQuantity: 5}, "planner")
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("want conflict, got %v", err)
		}
		all, _ := f.svc.GetByDate(ctx, day10)
		if len(all) != 1 {
			t.Errorf("duplicate must not create a document, have %d", len(all))
		}
	})

	t.Run("insufficient units", func(t *testing.T) {
		f := newFixture(t,
			catalog.UnitInput{Code: "TD1", Name: "TD1", Kind: models.UnitKindCombat},
			catalog.UnitInput{Code: "TD2", Name: "TD2", Kind: models.UnitKindCombat},
			catalog.UnitInput{Code: "LDNB", Name: "LDNB", Kind: models.UnitKindCeremony},
		)
		_, err := f.svc.Create(ctx, CreateInput{Date: day10, ItemID: f.rice.ID, TotalSuggestedQuantity: 5}, "planner")
		if !apperr.Is(err, apperr.KindIllegalState) {
			t.Fatalf("want insufficient units, got %v", err)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, CreateInput{Date: day10, ItemID: [12]byte{9}, TotalSuggestedQuantity: 5}, "planner")
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("want not found, got %v", err)
		}
	})
}

func TestApproveAndReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.create(t)

	submitted, err := f.svc.Submit(ctx, a.ID, "planner")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.OverallStatus != models.AllocationPendingApproval || submitted.Version != 2 {
		t.Errorf("after submit: status=%s version=%d", submitted.OverallStatus, submitted.Version)
	}

	approved, err := f.svc.Approve(ctx, a.ID, "đồng ý", "chief")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.OverallStatus != models.AllocationApproved || approved.ApprovalFlow.ApprovedBy != "chief" || approved.ApprovalFlow.ApprovalNotes != "đồng ý" {
		t.Errorf("after approve: %+v", approved.ApprovalFlow)
	}
	for _, slot := range approved.Slots {
		if slot.Status != models.SlotApproved {
			t.Errorf("slot %s should be approved, got %s", slot.Slot, slot.Status)
		}
	}

	if _, err := f.svc.Approve(ctx, a.ID, "", "chief"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("approving twice should be illegal, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, a.ID, "muộn", "chief"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("rejecting an approved allocation should be illegal, got %v", err)
	}
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.create(t)

	if _, err := f.svc.Reject(ctx, a.ID, "  ", "chief"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty reason should fail validation, got %v", err)
	}
	rejected, err := f.svc.Reject(ctx, a.ID, "Thiếu ngân sách", "chief")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.OverallStatus != models.AllocationCancelled || rejected.ApprovalFlow.RejectionReason != "Thiếu ngân sách" {
		t.Errorf("after reject: %+v", rejected)
	}
	if _, err := f.svc.Update(ctx, a.ID, UpdateInput{Notes: ptr("x")}, "planner"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("cancelled allocation should not be editable, got %v", err)
	}
}

func TestDistributeUnit_RequiresApproval(t *testing.T) {
	f := newFixture(t)
	a := f.create(t)
	_, err := f.svc.DistributeUnit(context.Background(), a.ID, "unit1", HandoffInput{ActualQuantity: 10}, "storekeeper")
	if !apperr.Is(err, apperr.KindIllegalState) {
		t.Fatalf("distributing a draft should be illegal, got %v", err)
	}
}

func TestDistributionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.approved(t)

	got, err := f.svc.DistributeUnit(ctx, a.ID, "unit1", HandoffInput{ActualQuantity: 24.5, ReceivedBy: "Trung sĩ A"}, "storekeeper")
	if err != nil {
		t.Fatalf("DistributeUnit failed: %v", err)
	}
	slot := got.Slots[0]
	if slot.Status != models.SlotDistributed || slot.Amount != 490000 || slot.DistributedBy != "storekeeper" || slot.DistributedAt == nil {
		t.Errorf("distributed slot: %+v", slot)
	}
	if got.OverallStatus != models.AllocationInProgress || got.Distribution.StartedAt == nil {
		t.Errorf("overall should be in progress with start stamped: %+v", got.Distribution)
	}
	if got.TotalActualQuantity != 24.5 || got.TotalAmount != 490000 || got.Budget.Variance != -1510000 {
		t.Errorf("totals: qty=%v amount=%v budget=%+v", got.TotalActualQuantity, got.TotalAmount, got.Budget)
	}
	started := *got.Distribution.StartedAt

	if err := f.svc.Delete(ctx, a.ID, "planner"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("deleting an in-progress allocation should be illegal, got %v", err)
	}
	if stored, err := f.svc.GetByID(ctx, a.ID); err != nil || stored.Version != got.Version {
		t.Errorf("failed delete must leave the document unchanged: %+v, %v", stored, err)
	}

	if _, err := f.svc.CompleteUnit(ctx, a.ID, "unit2", HandoffInput{}, "unit2-rep"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("completing an undistributed slot should be illegal, got %v", err)
	}

	f.svc.now = func() time.Time { return clock.Add(time.Hour) }
	for _, name := range []string{"unit2", "unit3", "ceremonyUnit"} {
		if _, err := f.svc.DistributeUnit(ctx, a.ID, name, HandoffInput{ActualQuantity: 25}, "storekeeper"); err != nil {
			t.Fatalf("distribute %s: %v", name, err)
		}
	}
	var last *models.Allocation
	for _, name := range models.RecipientSlots {
		last, err = f.svc.CompleteUnit(ctx, a.ID, name, HandoffInput{}, name+"-rep")
		if err != nil {
			t.Fatalf("complete %s: %v", name, err)
		}
		if name != "ceremonyUnit" && last.OverallStatus != models.AllocationInProgress {
			t.Errorf("after completing %s: want in_progress, got %s", name, last.OverallStatus)
		}
	}

	if last.OverallStatus != models.AllocationCompleted || last.Distribution.CompletedAt == nil {
		t.Fatalf("want completed with completion stamp, got %s %+v", last.OverallStatus, last.Distribution)
	}
	if !last.Distribution.StartedAt.Equal(started) {
		t.Errorf("start timestamp moved: %v -> %v", started, *last.Distribution.StartedAt)
	}
	if last.Slots[0].ReceivedBy != "Trung sĩ A" || last.Slots[1].ReceivedBy != "unit2-rep" {
		t.Errorf("receivers: %q %q", last.Slots[0].ReceivedBy, last.Slots[1].ReceivedBy)
	}
	if last.TotalActualQuantity != 99.5 || last.TotalAmount != 1990000 {
		t.Errorf("final totals: %v %v", last.TotalActualQuantity, last.TotalAmount)
	}
	completedAt := *last.Distribution.CompletedAt

	f.svc.now = func() time.Time { return clock.Add(5 * time.Hour) }
	again, err := f.svc.ReportIssue(ctx, a.ID, "Thiếu 0.5kg", "storekeeper")
	if err != nil {
		t.Fatalf("ReportIssue failed: %v", err)
	}
	if !again.Distribution.CompletedAt.Equal(completedAt) {
		t.Errorf("completion timestamp must be stamped once: %v -> %v", completedAt, *again.Distribution.CompletedAt)
	}
	if len(again.Distribution.Issues) != 1 || again.Distribution.Issues[0].ReportedBy != "storekeeper" {
		t.Errorf("issues: %+v", again.Distribution.Issues)
	}

	if _, err := f.svc.DistributeUnit(ctx, a.ID, "unit1", HandoffInput{ActualQuantity: 1}, "storekeeper"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("distributing after completion should be illegal, got %v", err)
	}
	if err := f.svc.Delete(ctx, a.ID, "planner"); !apperr.Is(err, apperr.KindIllegalState) {
		t.Errorf("deleting a completed allocation should be illegal, got %v", err)
	}
}

func TestDistributeUnit_UnknownSlot(t *testing.T) {
	f := newFixture(t)
	a := f.approved(t)
	_, err := f.svc.DistributeUnit(context.Background(), a.ID, "unit9", HandoffInput{ActualQuantity: 1}, "storekeeper")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestUpdate_ResplitsAndBumpsVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.create(t)

	total := 40.0
	updated, err := f.svc.Update(ctx, a.ID, UpdateInput{TotalSuggestedQuantity: &total, Notes: ptr("giảm")}, "planner")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 2 || updated.Notes != "giảm" {
		t.Errorf("version/notes: %d %q", updated.Version, updated.Notes)
	}
	for _, slot := range updated.Slots {
		if slot.SuggestedQuantity != 10 {
			t.Errorf("slot %s: want 10, got %v", slot.Slot, slot.SuggestedQuantity)
		}
	}
	if updated.Budget.Allocated != 800000 {
		t.Errorf("allocated budget should follow the new total, got %v", updated.Budget.Allocated)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.create(t)
	if err := f.svc.Delete(ctx, a.ID, "planner"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("deleted allocation should be gone, got %v", err)
	}
}

func TestDailySummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.approved(t)
	if _, err := f.svc.DistributeUnit(ctx, a.ID, "unit1", HandoffInput{ActualQuantity: 25}, "storekeeper"); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if _, err := f.svc.DistributeUnit(ctx, a.ID, "unit2", HandoffInput{ActualQuantity: 20}, "storekeeper"); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	eggs := models.Item{Name: "Trứng gà", Category: models.CategoryEggs, Unit: models.UnitPiece, UnitPrice: 3000, IsActive: true}
	if err := f.store.Items.Create(ctx, &eggs); err != nil {
		t.Fatalf("create eggs: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{Date: day10, ItemID: eggs.ID, TotalSuggestedQuantity: 100}, "planner"); err != nil {
		t.Fatalf("create eggs allocation: %v", err)
	}

	summary, err := f.svc.DailySummary(ctx, day10)
	if err != nil {
		t.Fatalf("DailySummary failed: %v", err)
	}
	if summary.SuggestedQuantity != 200 || summary.ActualQuantity != 45 || summary.Efficiency != 22.5 {
		t.Errorf("totals: %+v", summary)
	}
	if len(summary.Categories) != 2 || summary.Categories[0].Category != models.CategoryRice {
		t.Fatalf("categories: %+v", summary.Categories)
	}
	if summary.Categories[0].ActualAmount != 900000 || summary.Categories[1].SuggestedAmount != 300000 {
		t.Errorf("category amounts: %+v", summary.Categories)
	}
	if summary.ByStatus[models.AllocationInProgress] != 1 || summary.ByStatus[models.AllocationDraft] != 1 {
		t.Errorf("by status: %+v", summary.ByStatus)
	}
}

func TestDailySummary_SkipsCancelledTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.approved(t)
	if _, err := f.svc.DistributeUnit(ctx, a.ID, "unit1", HandoffInput{ActualQuantity: 25}, "storekeeper"); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	eggs := models.Item{Name: "Trứng gà", Category: models.CategoryEggs, Unit: models.UnitPiece, UnitPrice: 3000, IsActive: true}
	if err := f.store.Items.Create(ctx, &eggs); err != nil {
		t.Fatalf("create eggs: %v", err)
	}
	rejected, err := f.svc.Create(ctx, CreateInput{Date: day10, ItemID: eggs.ID, TotalSuggestedQuantity: 100}, "planner")
	if err != nil {
		t.Fatalf("create eggs allocation: %v", err)
	}
	if _, err := f.svc.Reject(ctx, rejected.ID, "Vượt định mức", "chief"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	summary, err := f.svc.DailySummary(ctx, day10)
	if err != nil {
		t.Fatalf("DailySummary failed: %v", err)
	}
	if summary.SuggestedQuantity != 100 || summary.Efficiency != 25 {
		t.Errorf("cancelled allocation leaked into totals: %+v", summary)
	}
	if len(summary.Categories) != 1 || summary.Categories[0].Category != models.CategoryRice {
		t.Errorf("categories: %+v", summary.Categories)
	}
	if summary.ByStatus[models.AllocationCancelled] != 1 {
		t.Errorf("by status: %+v", summary.ByStatus)
	}
}

func ptr[T any](v T) *T { return &v }
