package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"skillduel/internal/model"
)

// ItemRepo reads practice items. Item authoring lives in a separate system;
// this service only samples and resolves items for rooms.
type ItemRepo interface {
	Create(ctx context.Context, item *model.Item) error
	GetByIDs(ctx context.Context, ids []string) ([]*model.Item, error)
	// Sample picks count random items, optionally restricted to a category.
	Sample(ctx context.Context, category string, count int) ([]*model.Item, error)
}

type itemRepo struct {
	collection *mongo.Collection
}

func NewItemRepo(db *mongo.Database) ItemRepo {
	return &itemRepo{collection: db.Collection("items")}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		item.ID = oid.Hex()
	}
	return nil
}

func (r *itemRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Item, error) {
	in := bson.A{}
	for _, id := range ids {
		in = append(in, id)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": in}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*model.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) Sample(ctx context.Context, category string, count int) ([]*model.Item, error) {
	match := bson.M{}
	if category != "" {
		match["category"] = category
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": count}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*model.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
