package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"roomdine-order-service/internal/catalog"
	"roomdine-order-service/internal/config"
	"roomdine-order-service/internal/db"
	"roomdine-order-service/internal/hours"
	httpapi "roomdine-order-service/internal/http"
	"roomdine-order-service/internal/http/handlers"
	"roomdine-order-service/internal/logger"
	"roomdine-order-service/internal/order"
	"roomdine-order-service/internal/pos"
	"roomdine-order-service/internal/queue"
	"roomdine-order-service/internal/stock"
	"roomdine-order-service/internal/storage"
	"roomdine-order-service/internal/utils"
	"roomdine-order-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, logger.FileConfig{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Bootstrap(ctx, pool); err != nil {
		log.Fatal("schema bootstrap failed", zap.Error(err))
	}

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := queue.EnsureOrderTopology(ctx, qc); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq topology failed", zap.Error(err))
				}
				log.Warn("rabbitmq topology failed; continuing without events", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}

		queueClient = qc
		if qc != nil {
			defer qc.Close()
		}

		if queueClient != nil {
			if cfg.RabbitMQWorkerMode == "daemon" {
				log.Info("kitchen event worker enabled", zap.String("mode", "daemon"))
				go func() {
					err := queueClient.ConsumeWithRetry(queue.KitchenQueue, func(ctx context.Context, body []byte) error {
						return queue.ProcessKitchenEvent(ctx, pool, body)
					}, 5, 5*time.Second)
					if err != nil {
						log.Error("consumer stopped", zap.Error(err))
					}
				}()
			} else {
				log.Info("kitchen event worker disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
			}
		}
	} else {
		log.Info("order events disabled (RABBITMQ_URL is empty)")
	}

	posClient := pos.NewHTTPClient(cfg.POSBaseURL, cfg.POSAPIKey, cfg.POSTimeout, log)

	var mirror *catalog.ImageMirror
	if cfg.ObjectStoreEndpoint != "" {
		objectStore, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Warn("object store unavailable; product images stay on the provider", zap.Error(err))
		} else {
			mirror = catalog.NewImageMirror(posClient, objectStore, log)
		}
	}

	syncEngine := catalog.NewEngine(pool, catalog.NewPgStore, posClient, mirror, cfg.POSProvider, log)
	syncEngine.StartScheduler(ctx, cfg.SyncInterval)

	schedule := hours.LoadSchedule(ctx, pool, hours.Schedule{
		DefaultOpen:  "07:00",
		DefaultClose: "22:00",
	}, log)
	gate := hours.NewGate(hours.NewPgStore(pool), schedule, utils.LoadLocation(cfg.Timezone), log)

	ledger := stock.NewLedger(cfg.StockTrackingEnabled)

	// The order mode is read once; switching it requires a restart.
	mode := order.LoadMode(ctx, pool, log)
	log.Info("order mode resolved", zap.String("mode", string(mode)))

	catalogManager := order.NewCatalogOrderManager(pool, order.NewPgStore, order.NewPgStore(pool), ledger, gate, log)
	ticketManager := order.NewRoomTicketManager(pool, order.NewPgStore, order.NewPgStore(pool), posClient, log)
	orderRouter := order.NewRouter(mode, catalogManager, ticketManager)

	wsServer := ws.New(pool, log, cfg)

	h := &handlers.Handler{
		DB:     pool,
		Logger: log,
		Config: cfg,
		Orders: orderRouter,
		Gate:   gate,
		Sync:   syncEngine,
		Events: queue.NewPublisher(queueClient, log),
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, log, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("room order service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
