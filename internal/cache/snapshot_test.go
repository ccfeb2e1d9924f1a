package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("lake-7"); got != "water:snapshot:lake-7" {
		t.Errorf("Unexpected key: %s", got)
	}
}

func TestSnapshotStore_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewSnapshotStore(client, time.Minute)
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, &StationSnapshot{StationID: "s"}); err == nil {
		t.Error("Expected error writing to unreachable Redis")
	}
	if snap, err := store.Get(ctx, "s"); err == nil || snap != nil {
		t.Errorf("Expected error reading from unreachable Redis, got %v, %v", snap, err)
	}
	if err := store.Ping(ctx); err == nil {
		t.Error("Expected ping to fail")
	}
}
