package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skillduel/internal/model"
)

// RoomCache holds a small JSON snapshot of room state for hot read paths
// (listing checks, websocket auth). Lifecycle decisions always go back to
// the room store.
type RoomCache interface {
	SetMeta(ctx context.Context, duelID string, meta *model.RoomMeta) error
	GetMeta(ctx context.Context, duelID string) (*model.RoomMeta, error)
	SetStatus(ctx context.Context, duelID string, status model.RoomStatus) error
	Delete(ctx context.Context, duelID string) error
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomCache(client *redis.Client) RoomCache {
	return &roomCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *roomCache) key(duelID string) string {
	return fmt.Sprintf("duel:%s", duelID)
}

func (c *roomCache) SetMeta(ctx context.Context, duelID string, meta *model.RoomMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(duelID), data, c.ttl).Err()
}

func (c *roomCache) GetMeta(ctx context.Context, duelID string) (*model.RoomMeta, error) {
	data, err := c.client.Get(ctx, c.key(duelID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.RoomMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *roomCache) SetStatus(ctx context.Context, duelID string, status model.RoomStatus) error {
	meta, err := c.GetMeta(ctx, duelID)
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}
	meta.Status = status
	return c.SetMeta(ctx, duelID, meta)
}

func (c *roomCache) Delete(ctx context.Context, duelID string) error {
	return c.client.Del(ctx, c.key(duelID)).Err()
}
