package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/quality"
	"github.com/smukkama/water-monitor/internal/retry"
	"github.com/smukkama/water-monitor/pkg/config"
)

// StationSnapshot is the latest published state of a station
type StationSnapshot struct {
	StationID  string              `json:"station_id"`
	Tick       uint64              `json:"tick"`
	Reading    quality.Reading     `json:"reading"`
	Parameters []quality.Parameter `json:"parameters"`
	Alerts     []alarming.Alert    `json:"alerts"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// SnapshotStore keeps station snapshots in Redis
type SnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// Connect opens a Redis client and waits until it answers PING
func Connect(ctx context.Context, cfg config.RedisConfig) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})

	err := retry.Do(ctx, "redis", retry.DefaultPolicy, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return NewSnapshotStore(client, cfg.SnapshotTTL), nil
}

// NewSnapshotStore wraps an existing Redis client
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{redis: client, ttl: ttl}
}

// SnapshotKey returns the Redis key for a station
func SnapshotKey(stationID string) string {
	return fmt.Sprintf("water:snapshot:%s", stationID)
}

// Set stores the snapshot with the configured TTL
func (s *SnapshotStore) Set(ctx context.Context, snap *StationSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, SnapshotKey(snap.StationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in Redis: %w", err)
	}
	return nil
}

// Get loads a station snapshot. It returns nil without error when none is stored.
func (s *SnapshotStore) Get(ctx context.Context, stationID string) (*StationSnapshot, error) {
	data, err := s.redis.Get(ctx, SnapshotKey(stationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var snap StationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Ping checks Redis availability
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *SnapshotStore) Close() error {
	return s.redis.Close()
}
