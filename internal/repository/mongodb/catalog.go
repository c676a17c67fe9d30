package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

// ItemRepository stores catalog items in the lttp_items collection.
type ItemRepository struct {
	coll *mongo.Collection
}

var _ repository.ItemRepository = (*ItemRepository)(nil)

func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, item)
	return mapWriteErr(err, "insert item")
}

func (r *ItemRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	var item models.Item
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, mapFindErr(err, "find item")
	}
	return &item, nil
}

func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	q := bson.M{}
	if !filter.IncludeInactive {
		q["isActive"] = true
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	return findAll[models.Item](ctx, r.coll, q, options.Find(), "list items")
}

func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	return replaceByID(ctx, r.coll, item.ID, item, "update item")
}

// UnitRepository stores the unit registry in the units collection.
type UnitRepository struct {
	coll *mongo.Collection
}

var _ repository.UnitRepository = (*UnitRepository)(nil)

func (r *UnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	if unit.ID.IsZero() {
		unit.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, unit)
	return mapWriteErr(err, "insert unit")
}

func (r *UnitRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&unit); err != nil {
		return nil, mapFindErr(err, "find unit")
	}
	return &unit, nil
}

func (r *UnitRepository) FindActiveByCodes(ctx context.Context, codes []string) ([]models.Unit, error) {
	q := bson.M{"code": bson.M{"$in": codes}, "isActive": true}
	return findAll[models.Unit](ctx, r.coll, q, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}), "find units by code")
}

func (r *UnitRepository) List(ctx context.Context, includeInactive bool) ([]models.Unit, error) {
	q := bson.M{}
	if !includeInactive {
		q["isActive"] = true
	}
	return findAll[models.Unit](ctx, r.coll, q, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}), "list units")
}

func (r *UnitRepository) Update(ctx context.Context, unit *models.Unit) error {
	return replaceByID(ctx, r.coll, unit.ID, unit, "update unit")
}
