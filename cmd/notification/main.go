package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/cache"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/notification"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/queue"
	"github.com/smukkama/water-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("notification")

	log.Info().Str("min_severity", cfg.Notify.MinSeverity).Msg("starting notification service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := notification.NewEmailNotifier(&cfg.SMTP, alarming.Severity(cfg.Notify.MinSeverity))
	if err := notifier.TestConnection(); err != nil {
		log.Warn().Err(err).Msg("notifications will be logged only")
	}

	// The snapshot cache only enriches emails; run without it when unreachable
	var snapshots *cache.SnapshotStore
	if cfg.Redis.Enabled {
		snapshots, err = cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, emails will omit WQI")
			snapshots = nil
		} else {
			defer snapshots.Close()
		}
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "notification-group")
	defer consumer.Close()

	send := func(ctx context.Context, n *protocol.AlertNotification) error {
		return notifier.SendAlert(n, latestWQI(ctx, snapshots, n.StationID))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		notification.NewConsumer(consumer, send).Run(ctx)
	}()

	log.Info().Str("topic", cfg.Kafka.TopicAlerts).Msg("notification service is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down gracefully")
	cancel()
	<-done
}

// latestWQI reads the station's WQI from the snapshot cache, zero when unknown
func latestWQI(ctx context.Context, snapshots *cache.SnapshotStore, stationID string) float64 {
	if snapshots == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	snap, err := snapshots.Get(ctx, stationID)
	if err != nil || snap == nil {
		return 0
	}
	return snap.Reading.WQI
}
