// Package repository declares the storage contracts shared by the MongoDB and
// in-memory backends.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/lttp/internal/domain/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ItemRepository persists the provisions catalog.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	Update(ctx context.Context, item *models.Item) error
}

// UnitRepository persists the unit registry.
type UnitRepository interface {
	Create(ctx context.Context, unit *models.Unit) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Unit, error)
	FindActiveByCodes(ctx context.Context, codes []string) ([]models.Unit, error)
	List(ctx context.Context, includeInactive bool) ([]models.Unit, error)
	Update(ctx context.Context, unit *models.Unit) error
}

// InventoryRepository persists daily inventory ledger rows, unique per (date, item).
type InventoryRepository interface {
	Insert(ctx context.Context, rec *models.DailyInventoryRecord) error
	Update(ctx context.Context, rec *models.DailyInventoryRecord) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.DailyInventoryRecord, error)
	FindByDateItem(ctx context.Context, date time.Time, itemID primitive.ObjectID) (*models.DailyInventoryRecord, error)
	FindByDate(ctx context.Context, date time.Time) ([]models.DailyInventoryRecord, error)
	FindByDateRange(ctx context.Context, start, end time.Time, itemID *primitive.ObjectID) ([]models.DailyInventoryRecord, error)
	// FindExpiring returns records with stock whose closing expiry is on or
	// before the cutoff and whose status is one of statuses.
	FindExpiring(ctx context.Context, cutoff time.Time, statuses []models.FreshnessStatus) ([]models.DailyInventoryRecord, error)
}

// DistributionRepository persists allocations, unique per (date, item).
type DistributionRepository interface {
	Insert(ctx context.Context, a *models.Allocation) error
	Update(ctx context.Context, a *models.Allocation) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Allocation, error)
	FindByDateItem(ctx context.Context, date time.Time, itemID primitive.ObjectID) (*models.Allocation, error)
	FindByDate(ctx context.Context, date time.Time) ([]models.Allocation, error)
}

// ProcessingRepository persists station ledgers, unique per (station, date, unit).
type ProcessingRepository interface {
	Insert(ctx context.Context, rec *models.ProcessingRecord) error
	Update(ctx context.Context, rec *models.ProcessingRecord) error
	FindByKey(ctx context.Context, station models.StationType, date time.Time, unitID primitive.ObjectID) (*models.ProcessingRecord, error)
	FindByDate(ctx context.Context, station models.StationType, date time.Time) ([]models.ProcessingRecord, error)
	FindByRange(ctx context.Context, station models.StationType, start, end time.Time, unitID *primitive.ObjectID) ([]models.ProcessingRecord, error)
}

// Store bundles every repository a backend provides.
type Store struct {
	Items        ItemRepository
	Units        UnitRepository
	Inventory    InventoryRepository
	Distribution DistributionRepository
	Processing   ProcessingRepository
}
