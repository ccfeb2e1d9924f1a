package publish

import (
	"context"
	"time"

	"github.com/smukkama/water-monitor/internal/cache"
	"github.com/smukkama/water-monitor/internal/monitor"
)

// SnapshotWriter stores the latest station snapshot. *cache.SnapshotStore satisfies it.
type SnapshotWriter interface {
	Set(ctx context.Context, snap *cache.StationSnapshot) error
}

// SnapshotSink mirrors the engine state into the snapshot cache after every event
type SnapshotSink struct {
	stationID string
	store     SnapshotWriter
	state     func() monitor.Snapshot
	clock     func() time.Time
}

// NewSnapshotSink creates a sink that reads state through the given function
func NewSnapshotSink(stationID string, store SnapshotWriter, state func() monitor.Snapshot) *SnapshotSink {
	return &SnapshotSink{stationID: stationID, store: store, state: state, clock: time.Now}
}

func (s *SnapshotSink) Name() string { return "redis" }

// Publish writes the current state; the history is left out to keep the key small
func (s *SnapshotSink) Publish(ctx context.Context, ev monitor.Event) error {
	snap := s.state()
	return s.store.Set(ctx, &cache.StationSnapshot{
		StationID:  s.stationID,
		Tick:       snap.Ticks,
		Reading:    snap.Reading,
		Parameters: snap.Parameters,
		Alerts:     snap.Alerts,
		UpdatedAt:  s.clock(),
	})
}
