package storage

import (
	"context"
	"fmt"

	"github.com/bradykim7/auchan-crawler/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ProductsCollection is where crawled products are kept
const ProductsCollection = "products"

// SaveResult summarises one SaveAll call
type SaveResult struct {
	Inserted int64
	Updated  int64
}

// ProductRepository persists the latest price snapshot of each product per
// region.
type ProductRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewProductRepository creates a repository over coll
func NewProductRepository(coll *mongo.Collection, log *zap.Logger) *ProductRepository {
	return &ProductRepository{
		coll: coll,
		log:  log.Named("product-repository"),
	}
}

// EnsureIndexes creates the unique (region, product_id) index
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "region", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create product index: %w", err)
	}
	return nil
}

// SaveAll upserts products, replacing the stored snapshot of each one
func (r *ProductRepository) SaveAll(ctx context.Context, products []models.Product) (SaveResult, error) {
	if len(products) == 0 {
		return SaveResult{}, nil
	}

	writes := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		filter := bson.D{{Key: "region", Value: p.Region}, {Key: "product_id", Value: p.ID}}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(p).
			SetUpsert(true))
	}

	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to save products: %w", err)
	}

	result := SaveResult{Inserted: res.UpsertedCount, Updated: res.ModifiedCount}
	r.log.Info("Saved products",
		zap.Int("products", len(products)),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("updated", result.Updated))
	return result, nil
}
