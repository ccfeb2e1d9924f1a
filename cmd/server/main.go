package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/water-monitor/internal/api"
	"github.com/smukkama/water-monitor/internal/cache"
	"github.com/smukkama/water-monitor/internal/connection"
	"github.com/smukkama/water-monitor/internal/insight"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/monitor"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/publish"
	"github.com/smukkama/water-monitor/internal/quality"
	"github.com/smukkama/water-monitor/internal/queue"
	"github.com/smukkama/water-monitor/internal/server"
	"github.com/smukkama/water-monitor/internal/timer"
	"github.com/smukkama/water-monitor/internal/websocket"
	"github.com/smukkama/water-monitor/pkg/config"
)

const dispatchQueueSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	log.Info().Str("station", cfg.StationID).Msg("starting water monitor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Monitoring core
	engine := monitor.NewEngine(quality.NewGenerator(nil, nil))

	scheduler := timer.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()

	runner := monitor.NewRunner(engine, scheduler, nil)

	insightClient := insight.NewClient(cfg.Insight)
	insights := insight.NewStore()

	// Websocket stream
	connManager := connection.NewManager(cfg.HTTP.MaxWSClients)
	hub := websocket.NewHub(connManager, func() interface{} { return engine.Snapshot() })
	defer hub.Close()

	engine.Subscribe(func(ev monitor.Event) {
		switch ev.Kind {
		case monitor.EventTick:
			hub.Broadcast(protocol.MsgTypeTick, protocol.TickPayload{
				Tick:       ev.Tick,
				Reading:    ev.Reading,
				Parameters: ev.Parameters,
				NewAlerts:  ev.NewAlerts,
			})
		case monitor.EventAlertsCleared:
			hub.Broadcast(protocol.MsgTypeAlertsCleared, nil)
		}
	})
	insights.Subscribe(func(in insight.Insight) {
		hub.Broadcast(protocol.MsgTypeInsight, in)
	})

	// Optional outbound sinks
	var sinks []publish.Sink
	var snapshots *cache.SnapshotStore

	if cfg.Kafka.Enabled {
		for _, topic := range []string{cfg.Kafka.TopicReadings, cfg.Kafka.TopicAlerts} {
			if err := queue.CreateTopic(cfg.Kafka.Brokers, topic, 1, 1); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("topic creation failed")
			}
		}
		readings := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings)
		defer readings.Close()
		alerts := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
		defer alerts.Close()

		sinks = append(sinks, publish.NewKafkaSink(cfg.StationID, readings, alerts))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka sink enabled")
	}

	if cfg.Redis.Enabled {
		snapshots, err = cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		defer snapshots.Close()

		sinks = append(sinks, publish.NewSnapshotSink(cfg.StationID, snapshots, engine.Snapshot))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis snapshot sink enabled")
	}

	if cfg.MQTT.Enabled {
		mqttSink, err := publish.ConnectMQTT(ctx, cfg.MQTT, cfg.StationID)
		if err != nil {
			log.Fatal().Err(err).Str("broker", cfg.MQTT.Broker).Msg("failed to connect to mqtt")
		}
		defer mqttSink.Close()

		sinks = append(sinks, mqttSink)
	}

	dispatcher := publish.NewDispatcher(dispatchQueueSize, sinks...)
	if len(sinks) > 0 {
		dispatcher.Start()
		defer dispatcher.Stop()
		engine.Subscribe(func(ev monitor.Event) { dispatcher.Enqueue(ev) })
	}

	// HTTP surface
	var cachePinger api.Pinger
	if snapshots != nil {
		cachePinger = snapshots
	}
	handler := api.NewHandler(engine, insightClient, insights, runner, hub, cachePinger)
	httpServer := server.NewHTTPServer(&cfg.HTTP, api.NewRouter(handler))
	if err := httpServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	go hub.RunSweeper(ctx, 30*time.Second, cfg.HTTP.WSInactivity)

	if err := runner.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start monitor")
	}

	// Periodic statistics
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := connManager.Stats()
				timerStats := scheduler.Stats()
				log.Info().
					Uint64("ticks", engine.Ticks()).
					Int("ws_clients", stats.TotalConnections).
					Int("unique_hosts", stats.UniqueHosts).
					Uint64("dispatch_dropped", dispatcher.Dropped()).
					Uint64("fired_tasks", timerStats.FiredTasks).
					Msg("server statistics")
			}
		}
	}()

	log.Info().Int("port", cfg.HTTP.Port).Dur("tick_period", monitor.TickPeriod).Msg("water monitor is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down gracefully")
	runner.Stop()
	if err := httpServer.Stop(); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown incomplete")
	}
	cancel()
}
