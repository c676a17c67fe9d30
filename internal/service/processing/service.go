// Package processing runs the generic station ledger shared by every
// processing line: material consumption, product yield, carry-over of unsold
// product and the resulting profit.
package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/apperr"
	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

const (
	msgStationNotFound = "Không tìm thấy trạm chế biến"
	msgUnitNotFound    = "Không tìm thấy đơn vị"
)

// Service implements the station ledgers.
type Service struct {
	repo   repository.ProcessingRepository
	units  repository.UnitRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the station ledgers.
func NewService(repo repository.ProcessingRepository, units repository.UnitRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, units: units, logger: logger, now: time.Now}
}

// MaterialInput changes one material line; nil fields are left untouched.
type MaterialInput struct {
	Code         string
	Quantity     *float64
	UnitPrice    *float64
	QualityGrade *string
}

// ProductInput changes one product line; nil fields are left untouched.
type ProductInput struct {
	Code         string
	Produced     *float64
	ActualOutput *float64
	UnitPrice    *float64
}

// UpsertInput addresses one (date, unit) station row and the changes to merge.
type UpsertInput struct {
	Date      time.Time
	UnitID    primitive.ObjectID
	Materials []MaterialInput
	Products  []ProductInput
	OtherCost *float64
	Notes     *string
}

// ListStations returns every configured station.
func (s *Service) ListStations() []models.StationConfig {
	return append([]models.StationConfig(nil), models.Stations...)
}

// Station resolves a station type or reports it as not found.
func (s *Service) Station(station models.StationType) (models.StationConfig, error) {
	cfg, ok := models.LookupStation(station)
	if !ok {
		return models.StationConfig{}, apperr.NotFound(msgStationNotFound)
	}
	return cfg, nil
}

// Upsert merges the input into the station row, seeding each product's
// carried-over stock from the previous day's remainder, then pushes the new
// remainder into the next day's row if it exists.
func (s *Service) Upsert(ctx context.Context, station models.StationType, in UpsertInput, actor string) (*models.ProcessingRecord, error) {
	cfg, err := s.Station(station)
	if err != nil {
		return nil, err
	}
	if err := validateUpsert(cfg, in); err != nil {
		return nil, err
	}
	if _, err := s.units.FindByID(ctx, in.UnitID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgUnitNotFound)
		}
		return nil, fmt.Errorf("load unit: %w", err)
	}

	now := s.now().UTC()
	rec, err := s.repo.FindByKey(ctx, station, in.Date, in.UnitID)
	isNew := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		isNew = true
		rec = newRecord(cfg, in.Date, in.UnitID)
		rec.CreatedBy = actor
		rec.CreatedAt = now
	case err != nil:
		return nil, fmt.Errorf("load station record: %w", err)
	default:
		ensureLines(rec, cfg)
	}

	prior, err := s.repo.FindByKey(ctx, station, models.PrevDay(in.Date), in.UnitID)
	switch {
	case err == nil:
		applyCarryOver(rec, prior.Remaining())
	case errors.Is(err, repository.ErrNotFound):
		if isNew {
			applyCarryOver(rec, nil)
		}
	default:
		return nil, fmt.Errorf("load previous day: %w", err)
	}

	applyInput(rec, in)
	rec.UpdatedBy = actor
	rec.UpdatedAt = now

	derived := models.DeriveProcessing(*rec)
	if isNew {
		err = s.repo.Insert(ctx, &derived)
	} else {
		err = s.repo.Update(ctx, &derived)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Bản ghi chế biến cho ngày này đã tồn tại", err)
		}
		return nil, fmt.Errorf("save station record: %w", err)
	}

	s.logger.Info("station record saved",
		zap.String("station", string(station)),
		zap.String("date", derived.Date.Format(models.DateLayout)),
		zap.String("unit_id", derived.UnitID.Hex()),
		zap.Float64("profit", derived.Financial.Profit),
		zap.Bool("created", isNew))

	if err := s.propagate(ctx, &derived, actor); err != nil {
		s.logger.Warn("station carry-over propagation failed",
			zap.String("station", string(station)),
			zap.String("date", derived.Date.Format(models.DateLayout)),
			zap.Error(err))
	}
	return &derived, nil
}

func (s *Service) propagate(ctx context.Context, rec *models.ProcessingRecord, actor string) error {
	next, err := s.repo.FindByKey(ctx, rec.Station, models.NextDay(rec.Date), rec.UnitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load next day: %w", err)
	}
	applyCarryOver(next, rec.Remaining())
	next.UpdatedBy = actor
	next.UpdatedAt = s.now().UTC()
	derived := models.DeriveProcessing(*next)
	if err := s.repo.Update(ctx, &derived); err != nil {
		return fmt.Errorf("update next day: %w", err)
	}
	return nil
}

// GetByDate lists a station's rows for one day.
func (s *Service) GetByDate(ctx context.Context, station models.StationType, date time.Time) ([]models.ProcessingRecord, error) {
	if _, err := s.Station(station); err != nil {
		return nil, err
	}
	records, err := s.repo.FindByDate(ctx, station, date)
	if err != nil {
		return nil, fmt.Errorf("find station records: %w", err)
	}
	return records, nil
}

// GetRange lists a station's rows between start and end inclusive.
func (s *Service) GetRange(ctx context.Context, station models.StationType, start, end time.Time, unitID *primitive.ObjectID) ([]models.ProcessingRecord, error) {
	if _, err := s.Station(station); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperr.Validation("Khoảng thời gian không hợp lệ", apperr.FieldError{Field: "endDate", Message: "Ngày kết thúc phải sau ngày bắt đầu"})
	}
	records, err := s.repo.FindByRange(ctx, station, start, end, unitID)
	if err != nil {
		return nil, fmt.Errorf("find station records: %w", err)
	}
	return records, nil
}

// Rollup projects one unit's station ledger across the day, week or month
// containing anchor.
func (s *Service) Rollup(ctx context.Context, station models.StationType, unitID primitive.ObjectID, period models.RollupPeriod, anchor time.Time) (*models.StationRollup, error) {
	cfg, err := s.Station(station)
	if err != nil {
		return nil, err
	}
	start, end, ok := period.Bounds(anchor)
	if !ok {
		return nil, apperr.Validation("Kỳ báo cáo không hợp lệ", apperr.FieldError{Field: "period", Message: "Kỳ phải là day, week hoặc month"})
	}
	if unitID.IsZero() {
		return nil, apperr.Validation("Đơn vị là bắt buộc", apperr.FieldError{Field: "unitId", Message: "Đơn vị là bắt buộc"})
	}

	var opening map[string]float64
	prior, err := s.repo.FindByKey(ctx, station, models.PrevDay(start), unitID)
	switch {
	case err == nil:
		opening = prior.Remaining()
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load opening stock: %w", err)
	}

	records, err := s.repo.FindByRange(ctx, station, start, end, &unitID)
	if err != nil {
		return nil, fmt.Errorf("find station records: %w", err)
	}

	rollup := models.ProjectRollup(cfg, unitID, period, start, end, opening, records)
	return &rollup, nil
}

func newRecord(cfg models.StationConfig, date time.Time, unitID primitive.ObjectID) *models.ProcessingRecord {
	rec := &models.ProcessingRecord{
		Station:   cfg.Type,
		Date:      date,
		UnitID:    unitID,
		Materials: make([]models.MaterialLine, len(cfg.Materials)),
		Products:  make([]models.ProductLine, len(cfg.Products)),
	}
	for i, m := range cfg.Materials {
		rec.Materials[i] = models.MaterialLine{Code: m.Code, Name: m.Name}
	}
	for i, p := range cfg.Products {
		rec.Products[i] = models.ProductLine{Code: p.Code, Name: p.Name}
	}
	return rec
}

// ensureLines adds any line the station configuration gained after rec was stored.
func ensureLines(rec *models.ProcessingRecord, cfg models.StationConfig) {
	for _, m := range cfg.Materials {
		if findMaterial(rec, m.Code) == nil {
			rec.Materials = append(rec.Materials, models.MaterialLine{Code: m.Code, Name: m.Name})
		}
	}
	for _, p := range cfg.Products {
		if rec.Product(p.Code) == nil {
			rec.Products = append(rec.Products, models.ProductLine{Code: p.Code, Name: p.Name})
		}
	}
}

func applyCarryOver(rec *models.ProcessingRecord, remaining map[string]float64) {
	for i := range rec.Products {
		rec.Products[i].CarriedOver = remaining[rec.Products[i].Code]
	}
}

func applyInput(rec *models.ProcessingRecord, in UpsertInput) {
	for _, m := range in.Materials {
		line := findMaterial(rec, m.Code)
		if m.Quantity != nil {
			line.Quantity = models.RoundQuantity(*m.Quantity)
		}
		if m.UnitPrice != nil {
			line.UnitPrice = models.RoundAmount(*m.UnitPrice)
		}
		if m.QualityGrade != nil {
			line.QualityGrade = *m.QualityGrade
		}
	}
	for _, p := range in.Products {
		line := rec.Product(p.Code)
		if p.Produced != nil {
			line.Produced = models.RoundQuantity(*p.Produced)
		}
		if p.ActualOutput != nil {
			line.ActualOutput = models.RoundQuantity(*p.ActualOutput)
		}
		if p.UnitPrice != nil {
			line.UnitPrice = models.RoundAmount(*p.UnitPrice)
		}
	}
	if in.OtherCost != nil {
		rec.OtherCost = models.RoundAmount(*in.OtherCost)
	}
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
}

func findMaterial(rec *models.ProcessingRecord, code string) *models.MaterialLine {
	for i := range rec.Materials {
		if rec.Materials[i].Code == code {
			return &rec.Materials[i]
		}
	}
	return nil
}

func validateUpsert(cfg models.StationConfig, in UpsertInput) error {
	var fields []apperr.FieldError
	if in.Date.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "date", Message: "Ngày là bắt buộc"})
	}
	if in.UnitID.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "unitId", Message: "Đơn vị là bắt buộc"})
	}
	for _, m := range in.Materials {
		if _, ok := cfg.Material(m.Code); !ok {
			fields = append(fields, apperr.FieldError{Field: "materials." + m.Code, Message: "Nguyên liệu không thuộc trạm này"})
			continue
		}
		fields = nonNegative(fields, "materials."+m.Code+".quantity", m.Quantity)
		fields = nonNegative(fields, "materials."+m.Code+".unitPrice", m.UnitPrice)
	}
	for _, p := range in.Products {
		if _, ok := cfg.Product(p.Code); !ok {
			fields = append(fields, apperr.FieldError{Field: "products." + p.Code, Message: "Sản phẩm không thuộc trạm này"})
			continue
		}
		fields = nonNegative(fields, "products."+p.Code+".produced", p.Produced)
		fields = nonNegative(fields, "products."+p.Code+".actualOutput", p.ActualOutput)
		fields = nonNegative(fields, "products."+p.Code+".unitPrice", p.UnitPrice)
	}
	fields = nonNegative(fields, "otherCost", in.OtherCost)
	if len(fields) > 0 {
		return apperr.Validation("Dữ liệu chế biến không hợp lệ", fields...)
	}
	return nil
}

func nonNegative(fields []apperr.FieldError, name string, v *float64) []apperr.FieldError {
	if v != nil && *v < 0 {
		return append(fields, apperr.FieldError{Field: name, Message: "Giá trị không được âm"})
	}
	return fields
}
