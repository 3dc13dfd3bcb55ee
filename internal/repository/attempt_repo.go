package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillduel/internal/model"
)

// AttemptRepo is the append-only attempt ledger. A unique compound index on
// (duelId, userId, itemId) is the idempotency boundary: a second insert for
// the same key fails with a duplicate-key error and the stored attempt is
// returned instead. Attempts are never updated or deleted.
type AttemptRepo interface {
	// Insert appends the attempt. Returns (stored, false, nil) with the
	// existing record when the (duelId, userId, itemId) key already exists.
	Insert(ctx context.Context, attempt *model.Attempt) (*model.Attempt, bool, error)
	Get(ctx context.Context, duelID, userID, itemID string) (*model.Attempt, error)
	GetByDuel(ctx context.Context, duelID string) ([]*model.Attempt, error)
	GetByDuelUser(ctx context.Context, duelID, userID string) ([]*model.Attempt, error)
	CountByDuelUser(ctx context.Context, duelID, userID string) (int, error)
	EnsureIndexes(ctx context.Context) error
}

type attemptRepo struct {
	collection *mongo.Collection
}

func NewAttemptRepo(db *mongo.Database) AttemptRepo {
	return &attemptRepo{collection: db.Collection("attempts")}
}

func (r *attemptRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "duelId", Value: 1},
			{Key: "userId", Value: 1},
			{Key: "itemId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *attemptRepo) Insert(ctx context.Context, attempt *model.Attempt) (*model.Attempt, bool, error) {
	result, err := r.collection.InsertOne(ctx, attempt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			stored, getErr := r.Get(ctx, attempt.DuelID, attempt.UserID, attempt.ItemID)
			if getErr != nil {
				return nil, false, getErr
			}
			return stored, false, nil
		}
		return nil, false, err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		attempt.ID = oid.Hex()
	}
	return attempt, true, nil
}

func (r *attemptRepo) Get(ctx context.Context, duelID, userID, itemID string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.collection.FindOne(ctx, bson.M{
		"duelId": duelID,
		"userId": userID,
		"itemId": itemID,
	}).Decode(&attempt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepo) GetByDuel(ctx context.Context, duelID string) ([]*model.Attempt, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"duelId": duelID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []*model.Attempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepo) GetByDuelUser(ctx context.Context, duelID, userID string) ([]*model.Attempt, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"duelId": duelID, "userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []*model.Attempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepo) CountByDuelUser(ctx context.Context, duelID, userID string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"duelId": duelID, "userId": userID})
	return int(n), err
}
