package processing

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
	"github.com/mamadbah2/lttp/internal/repository/memory"
)

var (
	day9  = time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	day10 = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, repository.Store, primitive.ObjectID) {
	t.Helper()
	store := memory.NewStore()
	unit := models.Unit{Code: "CB1", Name: "Tổ chế biến", Kind: models.UnitKindProcessing, IsActive: true}
	if err := store.Units.Create(context.Background(), &unit); err != nil {
		t.Fatalf("create unit: %v", err)
	}
	svc := NewService(store.Processing, store.Units, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	return svc, store, unit.ID
}

func f64(v float64) *float64 { return &v }

func TestUpsert_LivestockFinancials(t *testing.T) {
	svc, _, unitID := newTestService(t)
	rec, err := svc.Upsert(context.Background(), models.StationLivestock, UpsertInput{
		Date:      day10,
		UnitID:    unitID,
		Materials: []MaterialInput{{Code: "live-pig", Quantity: f64(50), UnitPrice: f64(104000)}},
		Products: []ProductInput{
			{Code: "lean-meat", Produced: f64(20), UnitPrice: f64(200000)},
			{Code: "bone", Produced: f64(10), UnitPrice: f64(60000)},
			{Code: "ground-meat", Produced: f64(10), UnitPrice: f64(150000)},
			{Code: "organs", Produced: f64(5), UnitPrice: f64(140000)},
		},
	}, "cook")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	want := models.Financial{TotalInputCost: 5200000, TotalOutputValue: 6800000, Profit: 1600000, ProfitMargin: 30.77}
	if rec.Financial != want {
		t.Errorf("financial: want %+v, got %+v", want, rec.Financial)
	}
	if len(rec.Products) != 4 || rec.Products[0].Name != "Thịt nạc" {
		t.Errorf("products not laid out from the station config: %+v", rec.Products)
	}
}

func TestUpsert_CarryOverExcludedFromValue(t *testing.T) {
	ctx := context.Background()
	svc, _, unitID := newTestService(t)

	if _, err := svc.Upsert(ctx, models.StationTofu, UpsertInput{
		Date:     day9,
		UnitID:   unitID,
		Products: []ProductInput{{Code: "tofu", Produced: f64(100), ActualOutput: f64(80), UnitPrice: f64(15000)}},
	}, "cook"); err != nil {
		t.Fatalf("day 9: %v", err)
	}

	rec, err := svc.Upsert(ctx, models.StationTofu, UpsertInput{
		Date:      day10,
		UnitID:    unitID,
		Materials: []MaterialInput{{Code: "soybean", Quantity: f64(20), UnitPrice: f64(25000)}},
		Products:  []ProductInput{{Code: "tofu", Produced: f64(50), ActualOutput: f64(60), UnitPrice: f64(15000)}},
	}, "cook")
	if err != nil {
		t.Fatalf("day 10: %v", err)
	}

	tofu := rec.Product("tofu")
	if tofu.CarriedOver != 20 || tofu.Collected != 70 || tofu.Remaining != 10 {
		t.Errorf("tofu flow: %+v", tofu)
	}
	if tofu.Value != 750000 || rec.Financial.TotalOutputValue != 750000 {
		t.Errorf("carried stock must not count as revenue: %+v", rec.Financial)
	}
	if rec.Financial.Profit != 250000 || rec.Financial.ProfitMargin != 50 {
		t.Errorf("profit: %+v", rec.Financial)
	}
}

func TestUpsert_PropagatesRemainderToNextDay(t *testing.T) {
	ctx := context.Background()
	svc, store, unitID := newTestService(t)

	in9 := UpsertInput{Date: day9, UnitID: unitID, Products: []ProductInput{{Code: "bean-sprouts", Produced: f64(30), ActualOutput: f64(25)}}}
	if _, err := svc.Upsert(ctx, models.StationBeanSprouts, in9, "cook"); err != nil {
		t.Fatalf("day 9: %v", err)
	}
	if _, err := svc.Upsert(ctx, models.StationBeanSprouts, UpsertInput{Date: day10, UnitID: unitID, Products: []ProductInput{{Code: "bean-sprouts", Produced: f64(10)}}}, "cook"); err != nil {
		t.Fatalf("day 10: %v", err)
	}

	in9.Products[0].ActualOutput = f64(28)
	if _, err := svc.Upsert(ctx, models.StationBeanSprouts, in9, "cook"); err != nil {
		t.Fatalf("day 9 update: %v", err)
	}

	next, err := store.Processing.FindByKey(ctx, models.StationBeanSprouts, day10, unitID)
	if err != nil {
		t.Fatalf("load day 10: %v", err)
	}
	line := next.Product("bean-sprouts")
	if line.CarriedOver != 2 || line.Collected != 12 || line.Remaining != 12 {
		t.Errorf("day 10 after propagation: %+v", line)
	}
}

func TestUpsert_RemainingNeverNegative(t *testing.T) {
	svc, _, unitID := newTestService(t)
	rec, err := svc.Upsert(context.Background(), models.StationSalt, UpsertInput{
		Date:     day10,
		UnitID:   unitID,
		Products: []ProductInput{{Code: "salted-vegetables", Produced: f64(5), ActualOutput: f64(9)}},
	}, "cook")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if got := rec.Product("salted-vegetables").Remaining; got != 0 {
		t.Errorf("remaining: want 0, got %v", got)
	}
	if rec.Financial.ProfitMargin != 0 {
		t.Errorf("margin without cost should be 0, got %v", rec.Financial.ProfitMargin)
	}
}

func TestUpsert_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, unitID := newTestService(t)

	tests := []struct {
		name    string
		station models.StationType
		in      UpsertInput
		kind    apperr.Kind
	}{
		{"unknown station", "bakery", UpsertInput{Date: day10, UnitID: unitID}, apperr.KindNotFound},
		{"unknown unit", models.StationTofu, UpsertInput{Date: day10, UnitID: primitive.NewObjectID()}, apperr.KindNotFound},
		{"foreign product", models.StationTofu, UpsertInput{Date: day10, UnitID: unitID, Products: []ProductInput{{Code: "bone"}}}, apperr.KindValidation},
		{"negative produced", models.StationTofu, UpsertInput{Date: day10, UnitID: unitID, Products: []ProductInput{{Code: "tofu", Produced: f64(-1)}}}, apperr.KindValidation},
		{"missing date", models.StationTofu, UpsertInput{UnitID: unitID}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upsert(ctx, tt.station, tt.in, "cook"); !apperr.Is(err, tt.kind) {
				t.Fatalf("want %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestRollup_Week(t *testing.T) {
	ctx := context.Background()
	svc, _, unitID := newTestService(t)

	// 2024-05-06 is a Monday; the Sunday before seeds the opening stock.
	seed := []struct {
		date     time.Time
		produced float64
		output   float64
	}{
		{time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), 10, 6},
		{time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), 20, 20},
		{time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), 10, 5},
	}
	for _, s := range seed {
		_, err := svc.Upsert(ctx, models.StationSalt, UpsertInput{
			Date:      s.date,
			UnitID:    unitID,
			Materials: []MaterialInput{{Code: "cabbage", Quantity: f64(s.produced), UnitPrice: f64(5000)}},
			Products:  []ProductInput{{Code: "salted-vegetables", Produced: f64(s.produced), ActualOutput: f64(s.output), UnitPrice: f64(8000)}},
		}, "cook")
		if err != nil {
			t.Fatalf("seed %s: %v", s.date.Format(models.DateLayout), err)
		}
	}

	rollup, err := svc.Rollup(ctx, models.StationSalt, unitID, models.PeriodWeek, day10)
	if err != nil {
		t.Fatalf("Rollup failed: %v", err)
	}
	if len(rollup.Days) != 7 || !rollup.StartDate.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week bounds: start=%v days=%d", rollup.StartDate, len(rollup.Days))
	}

	total := rollup.Products[0]
	if total.CarriedOver != 4 || total.Produced != 30 || total.ActualOutput != 25 || total.Remaining != 9 {
		t.Errorf("week product totals: %+v", total)
	}
	if rollup.Financial.TotalInputCost != 150000 || rollup.Financial.TotalOutputValue != 240000 {
		t.Errorf("week financial: %+v", rollup.Financial)
	}
	if rollup.Days[1].Recorded || rollup.Days[1].Products[0].CarriedOver != 4 {
		t.Errorf("gap day should carry stock without production: %+v", rollup.Days[1])
	}

	if _, err := svc.Rollup(ctx, models.StationSalt, unitID, "year", day10); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unknown period should fail validation, got %v", err)
	}
}

func TestGetRange(t *testing.T) {
	ctx := context.Background()
	svc, _, unitID := newTestService(t)
	for _, d := range []time.Time{day9, day10} {
		if _, err := svc.Upsert(ctx, models.StationPoultry, UpsertInput{Date: d, UnitID: unitID}, "cook"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	records, err := svc.GetRange(ctx, models.StationPoultry, day9, day10, nil)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("want 2 records, got %d", len(records))
	}
	if other, _ := svc.GetByDate(ctx, models.StationTofu, day10); len(other) != 0 {
		t.Errorf("stations must not share rows: %+v", other)
	}
}
