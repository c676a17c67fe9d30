package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

func cloneSnapshot(s models.StockSnapshot) models.StockSnapshot {
	s.ExpiryDate = copyTime(s.ExpiryDate)
	return s
}

func cloneInventory(rec models.DailyInventoryRecord) models.DailyInventoryRecord {
	rec.PreviousDay = cloneSnapshot(rec.PreviousDay)
	rec.EndOfDay = cloneSnapshot(rec.EndOfDay)
	rec.Input.ExpiryDate = copyTime(rec.Input.ExpiryDate)
	rec.Output.DistributedTo = append([]string(nil), rec.Output.DistributedTo...)
	rec.Alerts = append([]models.InventoryAlert(nil), rec.Alerts...)
	if rec.QualityCheck != nil {
		qc := *rec.QualityCheck
		rec.QualityCheck = &qc
	}
	rec.Item = nil
	return rec
}

// InventoryRepository provides in-memory daily ledger storage.
type InventoryRepository struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]models.DailyInventoryRecord
}

var _ repository.InventoryRepository = (*InventoryRepository)(nil)

// NewInventoryRepository creates an empty inventory repository.
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{records: make(map[primitive.ObjectID]models.DailyInventoryRecord)}
}

func (r *InventoryRepository) Insert(_ context.Context, rec *models.DailyInventoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records {
		if dayKey(existing.Date) == dayKey(rec.Date) && existing.ItemID == rec.ItemID {
			return repository.ErrDuplicate
		}
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	r.records[rec.ID] = cloneInventory(*rec)
	return nil
}

func (r *InventoryRepository) Update(_ context.Context, rec *models.DailyInventoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	r.records[rec.ID] = cloneInventory(*rec)
	return nil
}

func (r *InventoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.DailyInventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneInventory(rec)
	return &out, nil
}

func (r *InventoryRepository) FindByDateItem(_ context.Context, date time.Time, itemID primitive.ObjectID) (*models.DailyInventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if dayKey(rec.Date) == dayKey(date) && rec.ItemID == itemID {
			out := cloneInventory(rec)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *InventoryRepository) FindByDate(ctx context.Context, date time.Time) ([]models.DailyInventoryRecord, error) {
	return r.FindByDateRange(ctx, date, date, nil)
}

func (r *InventoryRepository) FindByDateRange(_ context.Context, start, end time.Time, itemID *primitive.ObjectID) ([]models.DailyInventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.DailyInventoryRecord
	for _, rec := range r.records {
		if !inRange(rec.Date, start, end) {
			continue
		}
		if itemID != nil && rec.ItemID != *itemID {
			continue
		}
		out = append(out, cloneInventory(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ItemID.Hex() < out[j].ItemID.Hex()
	})
	return out, nil
}

func (r *InventoryRepository) FindExpiring(_ context.Context, cutoff time.Time, statuses []models.FreshnessStatus) ([]models.DailyInventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[models.FreshnessStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	var out []models.DailyInventoryRecord
	for _, rec := range r.records {
		expiry := rec.EndOfDay.ExpiryDate
		if expiry == nil || expiry.After(cutoff) || rec.EndOfDay.Quantity <= 0 {
			continue
		}
		if _, ok := wanted[rec.Status]; !ok {
			continue
		}
		out = append(out, cloneInventory(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndOfDay.ExpiryDate.Before(*out[j].EndOfDay.ExpiryDate)
	})
	return out, nil
}

func cloneAllocation(a models.Allocation) models.Allocation {
	a.Slots = append([]models.RecipientSlot(nil), a.Slots...)
	for i := range a.Slots {
		a.Slots[i].DistributedAt = copyTime(a.Slots[i].DistributedAt)
		a.Slots[i].ReceivedAt = copyTime(a.Slots[i].ReceivedAt)
	}
	a.ApprovalFlow.RequestedAt = copyTime(a.ApprovalFlow.RequestedAt)
	a.ApprovalFlow.ApprovedAt = copyTime(a.ApprovalFlow.ApprovedAt)
	a.ApprovalFlow.RejectedAt = copyTime(a.ApprovalFlow.RejectedAt)
	a.Distribution.StartedAt = copyTime(a.Distribution.StartedAt)
	a.Distribution.CompletedAt = copyTime(a.Distribution.CompletedAt)
	a.Distribution.Issues = append([]models.DistributionIssue(nil), a.Distribution.Issues...)
	if a.QualityCheck != nil {
		qc := *a.QualityCheck
		a.QualityCheck = &qc
	}
	a.Item = nil
	return a
}

// DistributionRepository provides in-memory allocation storage.
type DistributionRepository struct {
	mu          sync.RWMutex
	allocations map[primitive.ObjectID]models.Allocation
}

var _ repository.DistributionRepository = (*DistributionRepository)(nil)

// NewDistributionRepository creates an empty allocation repository.
func NewDistributionRepository() *DistributionRepository {
	return &DistributionRepository{allocations: make(map[primitive.ObjectID]models.Allocation)}
}

func (r *DistributionRepository) Insert(_ context.Context, a *models.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.allocations {
		if dayKey(existing.Date) == dayKey(a.Date) && existing.ItemID == a.ItemID {
			return repository.ErrDuplicate
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.allocations[a.ID] = cloneAllocation(*a)
	return nil
}

func (r *DistributionRepository) Update(_ context.Context, a *models.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allocations[a.ID]; !ok {
		return repository.ErrNotFound
	}
	r.allocations[a.ID] = cloneAllocation(*a)
	return nil
}

func (r *DistributionRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allocations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.allocations, id)
	return nil
}

func (r *DistributionRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.allocations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneAllocation(a)
	return &out, nil
}

func (r *DistributionRepository) FindByDateItem(_ context.Context, date time.Time, itemID primitive.ObjectID) (*models.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.allocations {
		if dayKey(a.Date) == dayKey(date) && a.ItemID == itemID {
			out := cloneAllocation(a)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *DistributionRepository) FindByDate(_ context.Context, date time.Time) ([]models.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Allocation
	for _, a := range r.allocations {
		if dayKey(a.Date) == dayKey(date) {
			out = append(out, cloneAllocation(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID.Hex() < out[j].ItemID.Hex() })
	return out, nil
}

func cloneProcessing(rec models.ProcessingRecord) models.ProcessingRecord {
	rec.Materials = append([]models.MaterialLine(nil), rec.Materials...)
	rec.Products = append([]models.ProductLine(nil), rec.Products...)
	return rec
}

// ProcessingRepository provides in-memory station ledger storage.
type ProcessingRepository struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]models.ProcessingRecord
}

var _ repository.ProcessingRepository = (*ProcessingRepository)(nil)

// NewProcessingRepository creates an empty station ledger repository.
func NewProcessingRepository() *ProcessingRepository {
	return &ProcessingRepository{records: make(map[primitive.ObjectID]models.ProcessingRecord)}
}

func (r *ProcessingRepository) Insert(_ context.Context, rec *models.ProcessingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records {
		if existing.Station == rec.Station && dayKey(existing.Date) == dayKey(rec.Date) && existing.UnitID == rec.UnitID {
			return repository.ErrDuplicate
		}
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	r.records[rec.ID] = cloneProcessing(*rec)
	return nil
}

func (r *ProcessingRepository) Update(_ context.Context, rec *models.ProcessingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	r.records[rec.ID] = cloneProcessing(*rec)
	return nil
}

func (r *ProcessingRepository) FindByKey(_ context.Context, station models.StationType, date time.Time, unitID primitive.ObjectID) (*models.ProcessingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.Station == station && dayKey(rec.Date) == dayKey(date) && rec.UnitID == unitID {
			out := cloneProcessing(rec)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ProcessingRepository) FindByDate(ctx context.Context, station models.StationType, date time.Time) ([]models.ProcessingRecord, error) {
	return r.FindByRange(ctx, station, date, date, nil)
}

func (r *ProcessingRepository) FindByRange(_ context.Context, station models.StationType, start, end time.Time, unitID *primitive.ObjectID) ([]models.ProcessingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.ProcessingRecord
	for _, rec := range r.records {
		if rec.Station != station || !inRange(rec.Date, start, end) {
			continue
		}
		if unitID != nil && rec.UnitID != *unitID {
			continue
		}
		out = append(out, cloneProcessing(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].UnitID.Hex() < out[j].UnitID.Hex()
	})
	return out, nil
}
