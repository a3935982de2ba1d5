package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/davicafu/neuroassist/internal/config"
	infraEvents "github.com/davicafu/neuroassist/internal/shared/infra/events"
	sharedBus "github.com/davicafu/neuroassist/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/neuroassist/internal/shared/infra/platform/cache"
	infraRelayer "github.com/davicafu/neuroassist/internal/shared/infra/relayer"
	taskApp "github.com/davicafu/neuroassist/internal/task/application"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	taskEvents "github.com/davicafu/neuroassist/internal/task/infra/inbound/events"
	taskHttp "github.com/davicafu/neuroassist/internal/task/infra/inbound/http"
	"github.com/davicafu/neuroassist/internal/task/infra/inbound/scheduler"
	taskAnalytics "github.com/davicafu/neuroassist/internal/task/infra/outbound/analytics/clickhouse"
	"github.com/davicafu/neuroassist/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// ---------------- Main ----------------
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Init("info")
		logger.Logger().Fatal("invalid configuration", zap.Error(err))
	}

	logger.Init(cfg.LogLevel) // inicializa zap
	log := logger.Logger()    // obtiene logger estructurado
	defer log.Sync()          // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// El trabajo en segundo plano termina antes de cerrar el store.
	var wg sync.WaitGroup
	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	// ---------------- Store ----------------
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open task store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.closer()
	log.Info("✅ Store listo", zap.String("driver", cfg.StoreDriver))

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		_ = rdb.Close()
	} else {
		cacheInstance = sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
		defer rdb.Close()
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ------------- Repositorio -------------
	repo := taskApp.NewTaskRepository(st.store, cacheInstance, taskApp.Config{
		StoreTimeout: cfg.StoreTimeout,
		SummaryTTL:   cfg.CacheTTL,
	}, log)
	defer repo.Close()

	if snap, err := repo.Refresh(ctx); err != nil {
		// El servicio arranca igualmente; el error queda en el estado.
		log.Error("Initial load failed", zap.Error(err))
	} else {
		log.Info("📦 Tareas cargadas", zap.Int("tasks", len(snap.Tasks)), zap.Int("skipped", snap.Skipped))
	}

	// ---------------- Events ---------------
	var publisher sharedBus.EventBus
	listener := taskEvents.NewSyncListener(log)

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		defer writer.Close()
		publisher = infraEvents.NewKafkaPublisher(writer, log)

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			GroupID:  cfg.KafkaGroupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()
		infraEvents.NewConsumerAdapter(reader, listener, log).Start(bgCtx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		bus := infraEvents.NewInMemoryEventBus(taskDomain.TaskTopic)
		publisher = bus
		taskEvents.BackgroundConsumerChan(bgCtx, bus.Subscribe(64), listener)
	}

	// ------------ Outbox Worker ------------
	if st.outbox != nil {
		worker := infraRelayer.NewOutboxWorker(st.outbox, publisher, taskDomain.NewEventRegistry(), cfg.OutboxPeriod, cfg.OutboxLimit, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Start(bgCtx)
		}()
	} else {
		log.Info("Outbox desactivado: el driver no es transaccional", zap.String("driver", cfg.StoreDriver))
	}

	daily := scheduler.NewDailyRefresh(repo, time.Local, log)

	// -------------- Analítica --------------
	if cfg.ClickHouseAddr != "" {
		analytics, err := taskAnalytics.NewTaskAnalyticsRepo(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica desactivada", zap.Error(err))
		} else if err := analytics.InitSchema(ctx); err != nil {
			log.Warn("⚠️ No se pudo crear el esquema de analítica", zap.Error(err))
			_ = analytics.Close()
		} else {
			defer analytics.Close()
			daily.SetAnalytics(analytics)
			sink := taskApp.NewAnalyticsSink(repo, analytics, log)
			wg.Add(1)
			go func() {
				defer wg.Done()
				sink.Run(bgCtx)
			}()
			log.Info("📊 Analítica en ClickHouse habilitada")
		}
	}

	// -------------- Scheduler --------------
	if _, err := daily.Schedule(cfg.RefreshCron); err != nil {
		log.Fatal("failed to schedule refresh", zap.Error(err))
	}
	daily.Start()
	defer daily.Stop()

	// ---------------- HTTP ----------------
	router := gin.New()
	router.Use(gin.Recovery())
	taskHttp.RegisterTaskRoutes(router, taskHttp.NewTaskHandler(repo, log))

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Apagando servicio")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}

	cancelBg()
	wg.Wait()
}
