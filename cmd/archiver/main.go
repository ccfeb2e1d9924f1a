package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/water-monitor/internal/archive"
	"github.com/smukkama/water-monitor/internal/database"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/queue"
	"github.com/smukkama/water-monitor/internal/tsdb"
	"github.com/smukkama/water-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("archiver")

	log.Info().Msg("starting archiver")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	influx, err := tsdb.Connect(ctx, cfg.Influx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to influx")
	}
	defer influx.Close()

	readingsConsumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings, "archiver-readings")
	defer readingsConsumer.Close()
	alertsConsumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "archiver-alerts")
	defer alertsConsumer.Close()

	writers := []*queue.BatchWriter{
		queue.NewBatchWriter("readings", readingsConsumer, archive.Readings(influx),
			cfg.Archiver.BatchSize, cfg.Archiver.FlushInterval),
		queue.NewBatchWriter("alerts", alertsConsumer, archive.Alerts(db),
			cfg.Archiver.BatchSize, cfg.Archiver.FlushInterval),
	}
	for _, w := range writers {
		w.Start(ctx)
	}

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rs, as := readingsConsumer.Stats(), alertsConsumer.Stats()
				log.Info().
					Int64("reading_messages", rs.Messages).
					Int64("alert_messages", as.Messages).
					Int64("errors", rs.Errors+as.Errors).
					Msg("consumer statistics")
			}
		}
	}()

	log.Info().
		Int("batch_size", cfg.Archiver.BatchSize).
		Dur("flush_interval", cfg.Archiver.FlushInterval).
		Msg("archiver is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down gracefully")
	for _, w := range writers {
		w.Stop()
	}
	cancel()
}
