package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-crm/internal/broadcast"
	"github.com/BruksfildServices01/clinic-crm/internal/config"
	dbpkg "github.com/BruksfildServices01/clinic-crm/internal/db"
	"github.com/BruksfildServices01/clinic-crm/internal/infra/memory"
	"github.com/BruksfildServices01/clinic-crm/internal/infra/objectstore"
	"github.com/BruksfildServices01/clinic-crm/internal/infra/repository"
	"github.com/BruksfildServices01/clinic-crm/internal/infra/sqlite"
	"github.com/BruksfildServices01/clinic-crm/internal/metrics"
	"github.com/BruksfildServices01/clinic-crm/internal/routes"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	ucReport "github.com/BruksfildServices01/clinic-crm/internal/usecase/report"
)

func openStore(cfg *config.Config) (store.Store, func()) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Println("[WARN] using in-memory store, data is lost on restart")
		return memory.New(), func() {}
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		return st, func() { _ = st.Close() }
	default:
		db := dbpkg.NewDB(cfg)
		return repository.NewCRMGormStore(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}
}

func main() {

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(cfg)
	defer closeStore()

	// ======================================================
	// REALTIME FAN-OUT
	// ======================================================
	m := metrics.New()
	hub := broadcast.NewHub(cfg.CORSAllowedOrigins)
	sinks := []broadcast.Sink{hub, m}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		origin := uuid.NewString()
		sinks = append(sinks, broadcast.NewRedisSink(rdb, origin))

		relay := broadcast.NewRedisRelay(rdb, origin, hub)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[WARN] redis relay stopped: %v", err)
			}
		}()
	}

	dispatcher := broadcast.NewDispatcher(0, sinks...)
	defer dispatcher.Close()

	var uploader ucReport.Uploader
	if cfg.S3Enabled() {
		u, err := objectstore.NewS3Uploader(objectstore.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			log.Fatalf("failed to configure s3: %v", err)
		}
		uploader = u
	}

	r := gin.Default()

	routes.RegisterRoutes(r, routes.Infra{
		Store:     st,
		Publisher: dispatcher,
		Hub:       hub,
		Metrics:   m,
		Uploader:  uploader,
	}, cfg)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] shutdown: %v", err)
		}
	}()

	log.Printf("Server running on %s (store=%s)", cfg.Addr(), cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start server: %v", err)
	}
}
