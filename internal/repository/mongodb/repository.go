package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/domain/models"
	"github.com/mamadbah2/lttp/internal/repository"
)

const (
	itemsCollection        = "lttp_items"
	unitsCollection        = "units"
	inventoryCollection    = "lttp_inventory"
	distributionCollection = "lttp_distributions"
	processingPrefix       = "processing_"
)

// MongoDBRepository owns the client connection and hands out the per-collection
// repositories.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// Store returns the repository set backed by this database.
func (r *MongoDBRepository) Store() repository.Store {
	return repository.Store{
		Items:        &ItemRepository{coll: r.db.Collection(itemsCollection)},
		Units:        &UnitRepository{coll: r.db.Collection(unitsCollection)},
		Inventory:    &InventoryRepository{coll: r.db.Collection(inventoryCollection)},
		Distribution: &DistributionRepository{coll: r.db.Collection(distributionCollection)},
		Processing:   &ProcessingRepository{db: r.db},
	}
}

// EnsureIndexes creates the unique keys the ledgers rely on. It is idempotent.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	unique := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetUnique(true)}
	}
	plain := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d}
	}

	plan := map[string][]mongo.IndexModel{
		itemsCollection:        {unique("name"), plain("category", "isActive")},
		unitsCollection:        {unique("code")},
		inventoryCollection:    {unique("date", "lttpItemId"), plain("endOfDay.expiryDate", "status")},
		distributionCollection: {unique("date", "lttpItemId"), plain("overallStatus")},
	}
	for _, station := range models.Stations {
		plan[processingCollection(station.Type)] = []mongo.IndexModel{unique("date", "unitId")}
	}

	for name, indexes := range plan {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		r.logger.Debug("indexes ensured", zap.String("collection", name), zap.Int("count", len(indexes)))
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func processingCollection(station models.StationType) string {
	return processingPrefix + strings.ReplaceAll(string(station), "-", "_")
}

func mapWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapFindErr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id interface{}, doc interface{}, op string) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapWriteErr(err, op)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions, op string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%s decode: %w", op, err)
	}
	return out, nil
}
