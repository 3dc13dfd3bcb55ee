package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillduel/internal/model"
)

// RoomRepo is the durable store for duel rooms. Every lifecycle mutation is a
// single conditional write: the filter carries the expected state and the
// write only lands if the document still matches, so concurrent callers race
// on the document and exactly one wins.
type RoomRepo interface {
	Create(ctx context.Context, room *model.DuelRoom) error
	GetByID(ctx context.Context, id string) (*model.DuelRoom, error)
	ListOpen(ctx context.Context, limit int) ([]*model.DuelRoom, error)
	// AddParticipant atomically adds userID if the room is open, not past
	// its deadline, the user is not already in, and the cap is not reached.
	// Returns false when the filter did not match; the caller classifies why.
	AddParticipant(ctx context.Context, roomID, userID string, now time.Time) (bool, error)
	// AddReady atomically marks a participant ready while the room is open
	// and not past its deadline.
	AddReady(ctx context.Context, roomID, userID string, now time.Time) (bool, error)
	// Activate transitions open -> active and stamps startedAt, guarded on
	// the previous status.
	Activate(ctx context.Context, roomID string, startedAt time.Time) (bool, error)
	// Finalize transitions active -> completed and writes the rankings in
	// the same conditional update. At most one caller ever succeeds.
	Finalize(ctx context.Context, roomID string, rankings []model.RankingEntry, completedAt time.Time) (bool, error)
	// Expire transitions open -> expired with no rankings.
	Expire(ctx context.Context, roomID string, expiredAt time.Time) (bool, error)
	// ListTimedOut returns rooms still open or active whose deadline passed.
	ListTimedOut(ctx context.Context, now time.Time, limit int) ([]*model.DuelRoom, error)
	// ListByParticipant returns rooms containing userID in the given states.
	ListByParticipant(ctx context.Context, userID string, statuses []model.RoomStatus) ([]*model.DuelRoom, error)
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{collection: db.Collection("duel_rooms")}
}

func (r *roomRepo) Create(ctx context.Context, room *model.DuelRoom) error {
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.DuelRoom, error) {
	var room model.DuelRoom
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) ListOpen(ctx context.Context, limit int) ([]*model.DuelRoom, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"status": model.RoomStatusOpen}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.DuelRoom
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepo) AddParticipant(ctx context.Context, roomID, userID string, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":          roomID,
		"status":       model.RoomStatusOpen,
		"expiresAt":    bson.M{"$gt": now},
		"participants": bson.M{"$ne": userID},
		"$expr": bson.M{
			"$lt": bson.A{bson.M{"$size": "$participants"}, "$maxPlayers"},
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$addToSet": bson.M{"participants": userID},
	})
	if err != nil {
		return false, fmt.Errorf("add participant: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *roomRepo) AddReady(ctx context.Context, roomID, userID string, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":          roomID,
		"status":       model.RoomStatusOpen,
		"expiresAt":    bson.M{"$gt": now},
		"participants": userID,
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$addToSet": bson.M{"readyPlayers": userID},
	})
	if err != nil {
		return false, fmt.Errorf("add ready: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *roomRepo) Activate(ctx context.Context, roomID string, startedAt time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": roomID, "status": model.RoomStatusOpen},
		bson.M{"$set": bson.M{
			"status":    model.RoomStatusActive,
			"startedAt": startedAt,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("activate room: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *roomRepo) Finalize(ctx context.Context, roomID string, rankings []model.RankingEntry, completedAt time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": roomID, "status": model.RoomStatusActive},
		bson.M{"$set": bson.M{
			"status":      model.RoomStatusCompleted,
			"completedAt": completedAt,
			"rankings":    rankings,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("finalize room: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *roomRepo) Expire(ctx context.Context, roomID string, expiredAt time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": roomID, "status": model.RoomStatusOpen},
		bson.M{"$set": bson.M{
			"status":      model.RoomStatusExpired,
			"completedAt": expiredAt,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("expire room: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *roomRepo) ListTimedOut(ctx context.Context, now time.Time, limit int) ([]*model.DuelRoom, error) {
	filter := bson.M{
		"status":    bson.M{"$in": bson.A{model.RoomStatusOpen, model.RoomStatusActive}},
		"expiresAt": bson.M{"$lte": now},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.DuelRoom
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepo) ListByParticipant(ctx context.Context, userID string, statuses []model.RoomStatus) ([]*model.DuelRoom, error) {
	in := bson.A{}
	for _, s := range statuses {
		in = append(in, s)
	}
	cursor, err := r.collection.Find(ctx, bson.M{
		"participants": userID,
		"status":       bson.M{"$in": in},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.DuelRoom
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}
