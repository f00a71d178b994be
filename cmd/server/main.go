// Package main provides the entry point for the recharge API server.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"

	recharge "github.com/Tarunvoff/mobile-backend"
	"github.com/Tarunvoff/mobile-backend/admin"
	catalogmemory "github.com/Tarunvoff/mobile-backend/catalog/memory"
	catalogmysql "github.com/Tarunvoff/mobile-backend/catalog/mysql"
	"github.com/Tarunvoff/mobile-backend/event"
	eventamqp "github.com/Tarunvoff/mobile-backend/event/amqp"
	"github.com/Tarunvoff/mobile-backend/lock"
	lockredis "github.com/Tarunvoff/mobile-backend/lock/redis"
	promMetrics "github.com/Tarunvoff/mobile-backend/metrics/prometheus"
	"github.com/Tarunvoff/mobile-backend/recovery"
	storememory "github.com/Tarunvoff/mobile-backend/store/memory"
	storemysql "github.com/Tarunvoff/mobile-backend/store/mysql"
	"github.com/Tarunvoff/mobile-backend/tracing"
)

func main() {
	ctx := context.Background()

	// Storage: MySQL when a DSN is configured, in-memory otherwise.
	var store recharge.TxStore
	var catalog recharge.Catalog
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			log.Fatalf("open mysql: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("ping mysql: %v", err)
		}
		store = storemysql.New(db)
		catalog = catalogmysql.New(db)
		log.Printf("using mysql storage")
	} else {
		store = storememory.New()
		catalog = catalogmemory.New()
		log.Printf("using in-memory storage")
	}

	// Distributed locking: Redis when configured, no-op otherwise.
	var locker lock.Locker = &lock.NoopLocker{}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}
		locker = lockredis.NewRedisLocker(client)
		log.Printf("using redis locking at %s", addr)
	}

	// Event bus plus sinks: the in-process event log, and RabbitMQ when
	// configured.
	eventBus := event.NewMemoryEventBus()
	eventStore := admin.NewEventStore(1000)
	eventBus.SubscribeAll(eventStore.EventHandler())

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		cfg := eventamqp.DefaultConfig()
		cfg.URL = url
		publisher, err := eventamqp.NewPublisher(cfg)
		if err != nil {
			log.Fatalf("connect rabbitmq: %v", err)
		}
		defer publisher.Close()
		eventBus.SubscribeAll(publisher.EventHandler())
		log.Printf("publishing events to rabbitmq")
	}

	metrics := promMetrics.New(promMetrics.DefaultConfig())
	tracer := tracing.NewOTelTracer(tracing.DefaultConfig())

	engine := recharge.NewEngine(
		recharge.WithEngineStore(store),
		recharge.WithEngineCatalog(catalog),
		recharge.WithEngineMetrics(metrics),
		recharge.WithEngineEventBus(eventBus),
		recharge.WithEngineTracer(tracer),
	)
	defer engine.Resolver().Stop()

	// Recovery: re-arm pending transactions whose timers died with a
	// previous process.
	worker := recovery.NewWorker(
		recovery.WithStore(store),
		recovery.WithScheduler(engine.Resolver()),
		recovery.WithLocker(locker),
		recovery.WithEventBus(eventBus),
		recovery.WithMetrics(metrics),
	)
	if err := worker.Start(ctx); err != nil {
		log.Fatalf("start recovery worker: %v", err)
	}
	defer worker.Stop()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := admin.NewServer(
		admin.WithAddr(addr),
		admin.WithEngine(engine),
		admin.WithCatalog(catalog),
		admin.WithRecovery(worker),
		admin.WithEventStore(eventStore),
	)

	go func() {
		log.Printf("listening on %s", addr)
		if err := server.Start(); err != nil {
			log.Printf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
