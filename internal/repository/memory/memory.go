// Package memory is an in-process implementation of the repository contracts.
// It backs the unit tests and STORAGE_DRIVER=memory local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

// NewStore returns a repository.Store whose repositories share nothing but
// live for the lifetime of the process.
func NewStore() repository.Store {
	return repository.Store{
		Items:        NewItemRepository(),
		Units:        NewUnitRepository(),
		Inventory:    NewInventoryRepository(),
		Distribution: NewDistributionRepository(),
		Processing:   NewProcessingRepository(),
	}
}

func dayKey(t time.Time) string { return t.UTC().Format(models.DateLayout) }

func inRange(t, start, end time.Time) bool {
	k := dayKey(t)
	return k >= dayKey(start) && k <= dayKey(end)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ItemRepository provides in-memory item storage.
type ItemRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.Item
}

var _ repository.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates an empty item repository.
func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[primitive.ObjectID]models.Item)}
}

func cloneItem(i models.Item) models.Item {
	if i.ShelfLifeDays != nil {
		v := *i.ShelfLifeDays
		i.ShelfLifeDays = &v
	}
	i.LastUpdatedPrice = copyTime(i.LastUpdatedPrice)
	return i
}

func (r *ItemRepository) Create(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, item.Name) {
			return repository.ErrDuplicate
		}
	}
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	r.items[item.ID] = cloneItem(*item)
	return nil
}

func (r *ItemRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneItem(item)
	return &out, nil
}

func (r *ItemRepository) List(_ context.Context, filter models.ItemFilter) ([]models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Item, 0, len(r.items))
	for _, item := range r.items {
		if !filter.IncludeInactive && !item.IsActive {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *ItemRepository) Update(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.items {
		if id != item.ID && strings.EqualFold(existing.Name, item.Name) {
			return repository.ErrDuplicate
		}
	}
	r.items[item.ID] = cloneItem(*item)
	return nil
}

// UnitRepository provides in-memory unit storage.
type UnitRepository struct {
	mu    sync.RWMutex
	units map[primitive.ObjectID]models.Unit
}

var _ repository.UnitRepository = (*UnitRepository)(nil)

// NewUnitRepository creates an empty unit repository.
func NewUnitRepository() *UnitRepository {
	return &UnitRepository{units: make(map[primitive.ObjectID]models.Unit)}
}

func (r *UnitRepository) Create(_ context.Context, unit *models.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.units {
		if existing.Code == unit.Code {
			return repository.ErrDuplicate
		}
	}
	if unit.ID.IsZero() {
		unit.ID = primitive.NewObjectID()
	}
	r.units[unit.ID] = *unit
	return nil
}

func (r *UnitRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unit, ok := r.units[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &unit, nil
}

func (r *UnitRepository) FindActiveByCodes(_ context.Context, codes []string) ([]models.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}
	var out []models.Unit
	for _, unit := range r.units {
		if _, ok := wanted[unit.Code]; ok && unit.IsActive {
			out = append(out, unit)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *UnitRepository) List(_ context.Context, includeInactive bool) ([]models.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Unit, 0, len(r.units))
	for _, unit := range r.units {
		if includeInactive || unit.IsActive {
			out = append(out, unit)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *UnitRepository) Update(_ context.Context, unit *models.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.units[unit.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.units {
		if id != unit.ID && existing.Code == unit.Code {
			return repository.ErrDuplicate
		}
	}
	r.units[unit.ID] = *unit
	return nil
}
