package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomRecord is what the directory stores per room: enough to resolve a
// room code, nothing of the match itself.
type RoomRecord struct {
	RoomID    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomDirectory puts and gets a room record by id.
type RoomDirectory interface {
	Save(ctx context.Context, rec RoomRecord) error
	Load(ctx context.Context, roomID string) (RoomRecord, bool, error)
}

type RedisRoomDirectory struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRoomDirectory(rdb *redis.Client, ttl time.Duration) *RedisRoomDirectory {
	return &RedisRoomDirectory{rdb: rdb, ttl: ttl}
}

func (d *RedisRoomDirectory) key(roomID string) string {
	return fmt.Sprintf("room:%s:record", roomID)
}

func (d *RedisRoomDirectory) Save(ctx context.Context, rec RoomRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.rdb.Set(ctx, d.key(rec.RoomID), b, d.ttl).Err()
}

func (d *RedisRoomDirectory) Load(ctx context.Context, roomID string) (RoomRecord, bool, error) {
	val, err := d.rdb.Get(ctx, d.key(roomID)).Bytes()
	if err == redis.Nil {
		return RoomRecord{}, false, nil
	}
	if err != nil {
		return RoomRecord{}, false, err
	}

	var rec RoomRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return RoomRecord{}, false, err
	}
	return rec, true, nil
}
