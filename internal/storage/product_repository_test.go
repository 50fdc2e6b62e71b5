package storage

import (
	"context"
	"testing"

	"github.com/bradykim7/auchan-crawler/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap/zaptest"
)

func TestProductRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	products := []models.Product{
		{ID: "1", Name: "Молоко", Region: "1", Brand: "Каждый день"},
		{ID: "2", Name: "Хлеб", Region: "1", Brand: models.NoBrand},
	}

	mt.Run("save upserts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 1},
			bson.E{Key: "upserted", Value: bson.A{
				bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: primitive.NewObjectID()}},
			}},
		))

		repo := NewProductRepository(mt.Coll, zaptest.NewLogger(t))
		res, err := repo.SaveAll(context.Background(), products)
		if err != nil {
			t.Fatal(err)
		}
		if res.Inserted != 1 || res.Updated != 1 {
			t.Errorf("result %+v", res)
		}
	})

	mt.Run("save nothing", func(mt *mtest.T) {
		repo := NewProductRepository(mt.Coll, zaptest.NewLogger(t))
		res, err := repo.SaveAll(context.Background(), nil)
		if err != nil || res != (SaveResult{}) {
			t.Errorf("res=%+v err=%v", res, err)
		}
	})

	mt.Run("save error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		repo := NewProductRepository(mt.Coll, zaptest.NewLogger(t))
		if _, err := repo.SaveAll(context.Background(), products); err == nil {
			t.Fatal("expected error")
		}
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		repo := NewProductRepository(mt.Coll, zaptest.NewLogger(t))
		if err := repo.EnsureIndexes(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}
