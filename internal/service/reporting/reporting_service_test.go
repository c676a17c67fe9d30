package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/lttp/internal/domain/models"
)

// fakeSheets keeps rows per sheet name so reads see earlier appends.
type fakeSheets struct {
	existing map[string][][]interface{}
	appended map[string][][]interface{}
	failOn   map[string]error
}

func sheetName(sheetRange string) string {
	if i := strings.Index(sheetRange, "!"); i >= 0 {
		return sheetRange[:i]
	}
	return sheetRange
}

func (f *fakeSheets) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if err := f.failOn[sheetRange]; err != nil {
		return err
	}
	if f.appended == nil {
		f.appended = make(map[string][][]interface{})
	}
	f.appended[sheetRange] = append(f.appended[sheetRange], rows...)
	return nil
}

func (f *fakeSheets) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	name := sheetName(sheetRange)
	out := append([][]interface{}{}, f.existing[name]...)
	for r, rows := range f.appended {
		if sheetName(r) == name {
			out = append(out, rows...)
		}
	}
	return out, nil
}

type fakeInventory struct {
	records []models.DailyInventoryRecord
}

func (f fakeInventory) GetByDate(context.Context, time.Time) ([]models.DailyInventoryRecord, error) {
	return f.records, nil
}

type fakeStations struct {
	records map[models.StationType][]models.ProcessingRecord
}

func (f fakeStations) ListStations() []models.StationConfig { return models.Stations }

func (f fakeStations) GetRange(_ context.Context, station models.StationType, start, end time.Time, _ *primitive.ObjectID) ([]models.ProcessingRecord, error) {
	var out []models.ProcessingRecord
	for _, rec := range f.records[station] {
		if !rec.Date.Before(start) && !rec.Date.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

var day10 = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func fixtureData() (fakeInventory, fakeStations) {
	inv := fakeInventory{records: []models.DailyInventoryRecord{
		{Date: day10, EndOfDay: models.StockSnapshot{Quantity: 12}, Status: models.StatusGood, Item: &models.ItemRef{Name: "Gạo tẻ", Category: models.CategoryRice}},
		{Date: day10, EndOfDay: models.StockSnapshot{Quantity: 3}, Status: models.StatusNormal, Item: &models.ItemRef{Name: "Trứng gà", Category: models.CategoryEggs}},
	}}
	stations := fakeStations{records: map[models.StationType][]models.ProcessingRecord{
		models.StationTofu: {
			{Date: day10, Financial: models.ComputeFinancial(500000, 750000)},
			{Date: day10.AddDate(0, 0, -1), Financial: models.ComputeFinancial(500000, 500000)},
		},
		models.StationLivestock: {
			{Date: day10, Financial: models.ComputeFinancial(5200000, 6800000)},
		},
	}}
	return inv, stations
}

func TestExportDay(t *testing.T) {
	sheets := &fakeSheets{}
	inv, stations := fixtureData()
	svc := NewService(sheets, inv, stations, nil)

	result, err := svc.ExportDay(context.Background(), day10)
	if err != nil {
		t.Fatalf("ExportDay failed: %v", err)
	}
	if result.InventoryRows != 2 || result.StationRows != 2 || result.AlreadyExists {
		t.Errorf("unexpected result: %+v", result)
	}

	rows := sheets.appended[inventoryDataRange]
	if len(rows) != 2 || rows[0][0] != "2024-05-10" || rows[0][1] != "Gạo tẻ" {
		t.Errorf("inventory rows: %+v", rows)
	}
	if got := sheets.appended[stationDataRange]; len(got) != 2 || got[0][1] != "Chế biến đậu phụ" {
		t.Errorf("station rows: %+v", got)
	}
}

func TestExportDay_SkipsExportedDate(t *testing.T) {
	sheets := &fakeSheets{existing: map[string][][]interface{}{
		"Inventory":  {{"Ngày"}, {"2024-05-09"}, {"2024-05-10"}},
		"Processing": {{"Ngày"}, {"2024-05-10"}},
	}}
	inv, stations := fixtureData()
	svc := NewService(sheets, inv, stations, nil)

	result, err := svc.ExportDay(context.Background(), day10)
	if err != nil {
		t.Fatalf("ExportDay failed: %v", err)
	}
	if !result.AlreadyExists || len(sheets.appended) != 0 {
		t.Errorf("exported date should be skipped: %+v %+v", result, sheets.appended)
	}
}

func TestExportDay_StationsOnlyDayIsExportedOnce(t *testing.T) {
	sheets := &fakeSheets{}
	_, stations := fixtureData()
	svc := NewService(sheets, fakeInventory{}, stations, nil)

	for run := 1; run <= 2; run++ {
		if _, err := svc.ExportDay(context.Background(), day10); err != nil {
			t.Fatalf("run %d: ExportDay failed: %v", run, err)
		}
	}
	if got := len(sheets.appended[stationDataRange]); got != 2 {
		t.Errorf("expected 2 station rows after two runs, got %d", got)
	}
	if got := len(sheets.appended[inventoryDataRange]); got != 0 {
		t.Errorf("expected no inventory rows, got %d", got)
	}
}

func TestExportDay_RetryCompletesPartialExport(t *testing.T) {
	sheets := &fakeSheets{failOn: map[string]error{stationDataRange: errors.New("quota exceeded")}}
	inv, stations := fixtureData()
	svc := NewService(sheets, inv, stations, nil)

	if _, err := svc.ExportDay(context.Background(), day10); err == nil {
		t.Fatal("expected the station append to fail")
	}
	if got := len(sheets.appended[inventoryDataRange]); got != 2 {
		t.Fatalf("inventory rows should be written before the failure, got %d", got)
	}

	sheets.failOn = nil
	result, err := svc.ExportDay(context.Background(), day10)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !result.InventorySkip || result.StationsSkip || result.AlreadyExists {
		t.Errorf("unexpected retry result: %+v", result)
	}
	if got := len(sheets.appended[inventoryDataRange]); got != 2 {
		t.Errorf("inventory rows duplicated on retry: %d", got)
	}
	if got := len(sheets.appended[stationDataRange]); got != 2 {
		t.Errorf("expected station rows on retry, got %d", got)
	}

	result, err = svc.ExportDay(context.Background(), day10)
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if !result.AlreadyExists {
		t.Errorf("fully exported day should be skipped: %+v", result)
	}
}

func TestExportDay_Disabled(t *testing.T) {
	inv, stations := fixtureData()
	svc := NewService(nil, inv, stations, nil)
	if svc.ExportEnabled() {
		t.Fatal("export should be disabled without a spreadsheet")
	}
	if _, err := svc.ExportDay(context.Background(), day10); err == nil {
		t.Fatal("expected an error when export is disabled")
	}
}

func TestWeeklyDigest(t *testing.T) {
	inv, stations := fixtureData()
	svc := NewService(nil, inv, stations, nil)

	digest, err := svc.WeeklyDigest(context.Background(), day10)
	if err != nil {
		t.Fatalf("WeeklyDigest failed: %v", err)
	}
	for _, want := range []string{"2024-05-06 - 2024-05-12", "Chế biến đậu phụ", "Giết mổ gia súc", "25.00%", "Tổng:"} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
	if strings.Contains(digest, "Muối dưa") {
		t.Errorf("stations without records should be omitted:\n%s", digest)
	}
}

func TestWeeklyDigest_Empty(t *testing.T) {
	svc := NewService(nil, fakeInventory{}, fakeStations{}, nil)
	digest, err := svc.WeeklyDigest(context.Background(), day10)
	if err != nil {
		t.Fatalf("WeeklyDigest failed: %v", err)
	}
	if !strings.Contains(digest, "Chưa có số liệu") {
		t.Errorf("unexpected digest: %s", digest)
	}
}

func TestExpiryLines(t *testing.T) {
	expiry := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)
	lines := ExpiryLines([]models.DailyInventoryRecord{{
		EndOfDay: models.StockSnapshot{Quantity: 30, ExpiryDate: &expiry},
		Status:   models.StatusNearExpiry,
		Item:     &models.ItemRef{Name: "Trứng gà", Unit: models.UnitPiece},
	}})
	want := "Trứng gà: 30 quả, hạn 2024-05-12 (Sắp hết hạn)"
	if len(lines) != 1 || lines[0] != want {
		t.Errorf("want %q, got %q", want, lines)
	}
}
