package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	mqcontracts "pmsboard/contracts/mq"
	"pmsboard/internal/config"
	"pmsboard/internal/handler"
	"pmsboard/internal/httpserver"
	"pmsboard/internal/hub"
	"pmsboard/internal/mqhandler"
	"pmsboard/internal/repository"
	"pmsboard/internal/service"
	"pmsboard/pkg/db"
	"pmsboard/pkg/logger"
	"pmsboard/pkg/mq"
	redisclient "pmsboard/pkg/redis"
	"pmsboard/pkg/util"
)

const maxHandlerRetries = 5

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting pmsboard...",
		zap.String("port", cfg.Server.Port),
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// Event store: Postgres when configured, in-memory for local development.
	var store repository.EventStore
	if cfg.DB.Host != "" {
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to init DB", zap.Error(err))
		}
		defer dbConn.Close()
		store = repository.NewPostgresEventStore(dbConn, log)
	} else {
		log.Warn("No database configured, using in-memory event store")
		store = repository.NewMemoryEventStore()
	}

	// Redis: cross-instance fan-out relay and consumer idempotency. Optional.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		var err error
		rdb, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to init Redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("Redis connection established")
	} else {
		log.Warn("No Redis configured, running single-instance fan-out")
	}

	registry := hub.NewRegistry()
	broker := hub.NewBroker(registry, rdb, log)
	notifier := service.NewNotifier(store, broker, log)

	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()
	if rdb != nil {
		go func() {
			if err := broker.RunRelay(relayCtx); err != nil && relayCtx.Err() == nil {
				log.Error("Broker relay stopped unexpectedly", zap.Error(err))
			}
		}()
	}

	// MQ consumers for the domain triggers published by the web layer.
	var consumers []*mq.Consumer
	if cfg.MQ.URL != "" {
		deduper := util.NewDeduper(rdb, 24*time.Hour, log)
		var guard *mqhandler.RetryGuard
		if rdb != nil {
			guard = mqhandler.NewRetryGuard(util.NewRetryCounter(rdb, time.Hour), maxHandlerRetries, log)
		}

		handlers := []struct {
			queue      string
			routingKey string
			handle     mq.MessageHandler
		}{
			{
				queue:      "notify.project.assigned.q",
				routingKey: mqcontracts.RoutingKeyProjectAssigned,
				handle:     mqhandler.NewProjectAssignedHandler(notifier, deduper, guard, log).Handle,
			},
			{
				queue:      "notify.task.assigned.q",
				routingKey: mqcontracts.RoutingKeyTaskAssigned,
				handle:     mqhandler.NewTaskAssignedHandler(notifier, deduper, guard, log).Handle,
			},
			{
				queue:      "notify.design.uploaded.q",
				routingKey: mqcontracts.RoutingKeyDesignUploaded,
				handle:     mqhandler.NewDesignUploadedHandler(notifier, deduper, guard, log).Handle,
			},
		}

		for _, h := range handlers {
			consumer, err := mq.NewConsumer(cfg.MQ.URL, h.queue, h.routingKey, log)
			if err != nil {
				log.Fatal("Failed to init consumer",
					zap.String("routing_key", h.routingKey),
					zap.Error(err),
				)
			}
			consumer.SetHandler(h.handle)
			consumers = append(consumers, consumer)

			go func(c *mq.Consumer, routingKey string) {
				if err := c.StartConsuming(); err != nil {
					log.Fatal("Consumer failed",
						zap.String("routing_key", routingKey),
						zap.Error(err),
					)
				}
			}(consumer, h.routingKey)
		}
		log.Info("MQ consumers started", zap.Int("count", len(consumers)))
	} else {
		log.Warn("No MQ configured, domain event consumers disabled")
	}

	// HTTP + websocket server
	notificationHandler := handler.NewNotificationHandler(store, log)
	announcementHandler := handler.NewAnnouncementHandler(store, notifier, log)
	wsHandler := handler.NewWSHandler(registry, cfg.Server.AllowedOrigins, log)

	router := httpserver.NewRouter(log, store, notificationHandler, announcementHandler, wsHandler, cfg.JWT.Secret)

	port := cfg.Server.Port
	if port == "" {
		port = "8086"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("pmsboard is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pmsboard gracefully...")

	for _, c := range consumers {
		c.Stop()
	}

	relayCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	for _, c := range consumers {
		c.Close()
	}

	log.Info("pmsboard shutdown complete")
}
