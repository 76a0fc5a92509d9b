// Package presence tracks which actors are live in a room using
// TTL-scored Redis sorted sets. It mirrors the in-process room membership
// so presence survives across instances and is queryable out-of-process.
package presence

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:"

// Store is a Redis-backed room presence store.
type Store struct {
	rdb    *redis.Client
	window time.Duration // inactivity threshold for "online"
}

// New creates a presence store. window is how long an actor stays online
// after its last heartbeat.
func New(rdb *redis.Client, window time.Duration) *Store {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Store{rdb: rdb, window: window}
}

// Touch marks an actor active in a room now. Called on join and on every
// heartbeat tick.
func (s *Store) Touch(ctx context.Context, roomID, actorID string) error {
	key := keyPrefix + roomID
	now := time.Now().Unix()

	err := s.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: actorID,
	}).Err()
	if err != nil {
		return err
	}

	// Expire the whole set so an abandoned room does not leak memory.
	return s.rdb.Expire(ctx, key, s.window*2).Err()
}

// Online returns the actors active in the room within the window. Stale
// members are pruned on the way.
func (s *Store) Online(ctx context.Context, roomID string) ([]string, error) {
	key := keyPrefix + roomID
	threshold := time.Now().Add(-s.window).Unix()

	if err := s.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(threshold, 10)).Err(); err != nil {
		return nil, err
	}
	return s.rdb.ZRange(ctx, key, 0, -1).Result()
}

// Leave removes an actor from a room's presence set.
func (s *Store) Leave(ctx context.Context, roomID, actorID string) error {
	return s.rdb.ZRem(ctx, keyPrefix+roomID, actorID).Err()
}

// Clear deletes the entire presence set for a room.
func (s *Store) Clear(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, keyPrefix+roomID).Err()
}

// Rooms lists rooms that currently have a presence set.
func (s *Store) Rooms(ctx context.Context) ([]string, error) {
	var rooms []string
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		rooms = append(rooms, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}
