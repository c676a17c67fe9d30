package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

var byDateThenItem = bson.D{{Key: "date", Value: 1}, {Key: "lttpItemId", Value: 1}}

func dateRange(start, end time.Time) bson.M {
	return bson.M{"$gte": start, "$lte": end}
}

// InventoryRepository stores daily ledger rows in lttp_inventory.
type InventoryRepository struct {
	coll *mongo.Collection
}

var _ repository.InventoryRepository = (*InventoryRepository)(nil)

func (r *InventoryRepository) Insert(ctx context.Context, rec *models.DailyInventoryRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, rec)
	return mapWriteErr(err, "insert inventory record")
}

func (r *InventoryRepository) Update(ctx context.Context, rec *models.DailyInventoryRecord) error {
	return replaceByID(ctx, r.coll, rec.ID, rec, "update inventory record")
}

func (r *InventoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.DailyInventoryRecord, error) {
	var rec models.DailyInventoryRecord
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		return nil, mapFindErr(err, "find inventory record")
	}
	return &rec, nil
}

func (r *InventoryRepository) FindByDateItem(ctx context.Context, date time.Time, itemID primitive.ObjectID) (*models.DailyInventoryRecord, error) {
	var rec models.DailyInventoryRecord
	err := r.coll.FindOne(ctx, bson.M{"date": date, "lttpItemId": itemID}).Decode(&rec)
	if err != nil {
		return nil, mapFindErr(err, fmt.Sprintf("find inventory record %s", date.Format(models.DateLayout)))
	}
	return &rec, nil
}

func (r *InventoryRepository) FindByDate(ctx context.Context, date time.Time) ([]models.DailyInventoryRecord, error) {
	return findAll[models.DailyInventoryRecord](ctx, r.coll, bson.M{"date": date}, options.Find().SetSort(byDateThenItem), "find inventory by date")
}

func (r *InventoryRepository) FindByDateRange(ctx context.Context, start, end time.Time, itemID *primitive.ObjectID) ([]models.DailyInventoryRecord, error) {
	q := bson.M{"date": dateRange(start, end)}
	if itemID != nil {
		q["lttpItemId"] = *itemID
	}
	return findAll[models.DailyInventoryRecord](ctx, r.coll, q, options.Find().SetSort(byDateThenItem), "find inventory by range")
}

func (r *InventoryRepository) FindExpiring(ctx context.Context, cutoff time.Time, statuses []models.FreshnessStatus) ([]models.DailyInventoryRecord, error) {
	q := bson.M{
		"endOfDay.expiryDate": bson.M{"$lte": cutoff},
		"endOfDay.quantity":   bson.M{"$gt": 0},
		"status":              bson.M{"$in": statuses},
	}
	opts := options.Find().SetSort(bson.D{{Key: "endOfDay.expiryDate", Value: 1}})
	return findAll[models.DailyInventoryRecord](ctx, r.coll, q, opts, "find expiring inventory")
}

// DistributionRepository stores allocations in lttp_distributions.
type DistributionRepository struct {
	coll *mongo.Collection
}

var _ repository.DistributionRepository = (*DistributionRepository)(nil)

func (r *DistributionRepository) Insert(ctx context.Context, a *models.Allocation) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, a)
	return mapWriteErr(err, "insert allocation")
}

func (r *DistributionRepository) Update(ctx context.Context, a *models.Allocation) error {
	return replaceByID(ctx, r.coll, a.ID, a, "update allocation")
}

func (r *DistributionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete allocation: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *DistributionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Allocation, error) {
	var a models.Allocation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, mapFindErr(err, "find allocation")
	}
	return &a, nil
}

func (r *DistributionRepository) FindByDateItem(ctx context.Context, date time.Time, itemID primitive.ObjectID) (*models.Allocation, error) {
	var a models.Allocation
	if err := r.coll.FindOne(ctx, bson.M{"date": date, "lttpItemId": itemID}).Decode(&a); err != nil {
		return nil, mapFindErr(err, "find allocation by date")
	}
	return &a, nil
}

func (r *DistributionRepository) FindByDate(ctx context.Context, date time.Time) ([]models.Allocation, error) {
	return findAll[models.Allocation](ctx, r.coll, bson.M{"date": date}, options.Find().SetSort(byDateThenItem), "find allocations by date")
}

// ProcessingRepository stores each station's ledger in its own collection.
type ProcessingRepository struct {
	db *mongo.Database
}

var _ repository.ProcessingRepository = (*ProcessingRepository)(nil)

func (r *ProcessingRepository) coll(station models.StationType) *mongo.Collection {
	return r.db.Collection(processingCollection(station))
}

func (r *ProcessingRepository) Insert(ctx context.Context, rec *models.ProcessingRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	_, err := r.coll(rec.Station).InsertOne(ctx, rec)
	return mapWriteErr(err, "insert processing record")
}

func (r *ProcessingRepository) Update(ctx context.Context, rec *models.ProcessingRecord) error {
	return replaceByID(ctx, r.coll(rec.Station), rec.ID, rec, "update processing record")
}

func (r *ProcessingRepository) FindByKey(ctx context.Context, station models.StationType, date time.Time, unitID primitive.ObjectID) (*models.ProcessingRecord, error) {
	var rec models.ProcessingRecord
	if err := r.coll(station).FindOne(ctx, bson.M{"date": date, "unitId": unitID}).Decode(&rec); err != nil {
		return nil, mapFindErr(err, "find processing record")
	}
	return &rec, nil
}

func (r *ProcessingRepository) FindByDate(ctx context.Context, station models.StationType, date time.Time) ([]models.ProcessingRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "unitId", Value: 1}})
	return findAll[models.ProcessingRecord](ctx, r.coll(station), bson.M{"date": date}, opts, "find processing by date")
}

func (r *ProcessingRepository) FindByRange(ctx context.Context, station models.StationType, start, end time.Time, unitID *primitive.ObjectID) ([]models.ProcessingRecord, error) {
	q := bson.M{"date": dateRange(start, end)}
	if unitID != nil {
		q["unitId"] = *unitID
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "unitId", Value: 1}})
	return findAll[models.ProcessingRecord](ctx, r.coll(station), q, opts, "find processing by range")
}
