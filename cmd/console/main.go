package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/api"
	"dashboard-console/internal/auth"
	"dashboard-console/internal/config"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/hub"
	"dashboard-console/internal/logging"
	"dashboard-console/internal/referrer"
	"dashboard-console/internal/server"
	"dashboard-console/internal/storage"
	"dashboard-console/internal/store"
	"dashboard-console/internal/tracking"
)

const queueSize = 64

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.GinMode == gin.DebugMode)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("console stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	gin.SetMode(cfg.GinMode)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := api.New(api.Options{
		BaseURL: cfg.APIBaseURL,
		Version: cfg.APIVersion,
		Timeout: cfg.APITimeout,
		Logger:  logger.Named("api"),
	})
	if err != nil {
		return err
	}

	var kv storage.KV = storage.NewMemoryKV()
	if cfg.StateFile != "" {
		if kv, err = storage.OpenFile(cfg.StateFile, logger.Named("storage")); err != nil {
			return err
		}
	}

	var sink tracking.Sink = tracking.Nop{}
	if cfg.AnalyticsURL != "" {
		capture := tracking.NewCaptureClient(tracking.Options{
			Endpoint: cfg.AnalyticsURL,
			APIKey:   cfg.AnalyticsAPIKey,
			Logger:   logger.Named("tracking"),
		})
		defer capture.Close()
		sink = capture
	}

	d := action.NewDispatcher()
	state := store.NewState(d, kv, sink, logger.Named("store"))
	if err := state.Init(); err != nil {
		return err
	}

	q := flux.NewQueue(queueSize, logger.Named("dispatch"))
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := q.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dispatch loop stopped", zap.Error(err))
		}
	}()
	defer func() {
		stop()
		<-loopDone
		if err := state.Close(); err != nil {
			logger.Warn("closing state", zap.Error(err))
		}
	}()
	creator := action.NewCreator(client, q, d, logger.Named("action"))

	hashKey := cfg.CookieHashKey
	if hashKey == nil {
		logger.Warn("COOKIE_HASH_KEY not set; referrer cookies will not survive a restart")
		hashKey = securecookie.GenerateRandomKey(32)
	}
	jar, err := referrer.New(hashKey, logger.Named("referrer"))
	if err != nil {
		return err
	}

	wsHub := hub.New()
	go func() { _ = hub.NewFeed(wsHub, state, logger.Named("feed")).Run(ctx) }()

	tokenCfg := auth.DefaultTokenConfig(cfg.MasterSecret)
	tokenCfg.Expiry = cfg.TokenExpiry

	router := server.NewRouter(server.Deps{
		State:       state,
		Creator:     creator,
		TokenConfig: tokenCfg,
		Hub:         wsHub,
		Referrers:   jar,
		Logger:      logger.Named("http"),
		Timeout:     cfg.APITimeout * 2,
	})
	return server.Run(ctx, cfg, router, logger)
}
