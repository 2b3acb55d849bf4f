package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benefit-gateway/internal/application"
	appcrypto "benefit-gateway/internal/application/crypto"
	benefithandler "benefit-gateway/internal/benefit/handler"
	"benefit-gateway/internal/benefit/provider"
	benefitservice "benefit-gateway/internal/benefit/service"
	"benefit-gateway/internal/eligibility/recheck"
	"benefit-gateway/internal/identity"
	"benefit-gateway/internal/platform/config"
	"benefit-gateway/internal/platform/httpserver"
	"benefit-gateway/internal/platform/logger"
	"benefit-gateway/internal/platform/metrics"
	"benefit-gateway/internal/platform/middleware"
	"benefit-gateway/internal/platform/postgres"
	platformredis "benefit-gateway/internal/platform/redis"
	"benefit-gateway/internal/protocol/transform"
	"benefit-gateway/internal/transaction"
	transactionhandler "benefit-gateway/internal/transaction/handler"
	"benefit-gateway/pkg/audit"
	auditkafka "benefit-gateway/pkg/audit/kafka"
)

// main wires dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		appStore  application.Store
		userStore identity.Store
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		var codec *appcrypto.Codec
		if cfg.Crypto.EncryptionKey != "" {
			codec, err = appcrypto.New(cfg.Crypto.EncryptionKey)
			if err != nil {
				log.Error("init payload encryption", "error", err)
				os.Exit(1)
			}
		} else {
			log.Warn("payload encryption disabled: no encryption key configured")
		}
		appStore = application.NewPostgres(db, codec)
		userStore = identity.NewPostgres(db)
	} else {
		log.Warn("no postgres dsn configured, using in-memory stores")
		appStore = application.NewMemoryStore()
		userStore = identity.NewMemoryStore()
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}

	providerOpts := []provider.Option{provider.WithLogger(log)}
	if cache != nil {
		providerOpts = append(providerOpts, provider.WithCache(cache, cfg.Redis.CacheTTL))
	}
	benefits := provider.New(cfg.Provider.URL, cfg.Provider.Token, providerOpts...)

	var publisher audit.Publisher
	if len(cfg.Audit.Brokers) > 0 {
		kafkaPublisher, err := auditkafka.New(cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			log.Error("connect audit brokers", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	transformer := transform.New(cfg.Protocol.Domain, cfg.Protocol.BppID, cfg.Protocol.BppURI)
	txService := transaction.New(
		cfg.Protocol.Domain,
		cfg.Protocol.OrderIDPrefix,
		benefits,
		appStore,
		transformer,
		transaction.WithLogger(log),
		transaction.WithMetrics(m),
		transaction.WithAuditPublisher(publisher),
		transaction.WithAttachmentWriter(application.NewFileWriter(cfg.Uploads.Dir, appStore)),
	)

	consoleService := benefitservice.New(benefits, appStore, userStore, benefitservice.WithLogger(log))
	jwtValidator := middleware.NewHMACValidator(cfg.Auth.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	transactionhandler.New(txService, log).Register(router)
	benefithandler.New(consoleService, log, jwtValidator).Register(router)

	scheduler := recheck.New(appStore, benefits,
		cfg.Recheck.Interval, cfg.Recheck.Staleness, cfg.Recheck.BatchSize,
		recheck.WithLogger(log),
		recheck.WithMetrics(m),
		recheck.WithAuditPublisher(publisher),
	)
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go func() {
		if err := scheduler.Run(schedulerCtx); err != nil && err != context.Canceled {
			log.Error("recheck scheduler stopped", "error", err)
		}
	}()

	srv := httpserver.New(cfg.HTTP.Addr, router)
	log.Info("starting benefit-gateway",
		"addr", cfg.HTTP.Addr,
		"domain", cfg.Protocol.Domain,
		"bpp_id", cfg.Protocol.BppID,
	)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
