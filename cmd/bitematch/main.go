package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/bitematch/internal/config"
	"github.com/dukerupert/bitematch/internal/database"
	"github.com/dukerupert/bitematch/internal/handler"
	"github.com/dukerupert/bitematch/internal/logging"
	"github.com/dukerupert/bitematch/internal/mealdb"
	"github.com/dukerupert/bitematch/internal/metrics"
	"github.com/dukerupert/bitematch/internal/server"
	"github.com/dukerupert/bitematch/internal/sms"
	"github.com/dukerupert/bitematch/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, nil)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// Meal cache: Redis when configured, otherwise in memory
	var cache mealdb.Cache
	var memCache *mealdb.MemoryCache
	if cfg.RedisAddr != "" {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := mealdb.NewRedisCache(pingCtx, cfg.RedisAddr, logger.With("component", "cache"))
		pingCancel()
		if err != nil {
			slog.Warn("redis unavailable, using in-memory meal cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	if cache == nil {
		memCache = mealdb.NewMemoryCache()
		cache = memCache
	}

	meals := mealdb.New(cfg.MealDBBaseURL,
		mealdb.WithTimeout(cfg.MealDBTimeout),
		mealdb.WithRetries(cfg.MealDBRetries, 500*time.Millisecond),
		mealdb.WithCache(cache, cfg.MealDBCacheTTL),
		mealdb.WithMetrics(collector),
		mealdb.WithLogger(logger.With("component", "mealdb")),
	)

	// SMS delivery: remote relay, in-process Twilio, or disabled
	var smsSender handler.SMSSender
	switch {
	case cfg.SMSRelayURL != "":
		smsSender = sms.NewRemoteClient(cfg.SMSRelayURL, cfg.SMSRelaySecret)
		slog.Info("sms via relay", "url", cfg.SMSRelayURL)
	case cfg.TwilioConfigured():
		tw := sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioMsgService, sms.WithBaseURL(cfg.TwilioBaseURL))
		smsSender = sms.NewRelay(tw, collector, logger.With("component", "sms"))
		slog.Info("sms via in-process relay")
	default:
		slog.Info("sms delivery disabled")
	}

	var textSender handler.TextSender
	if cfg.TelegramBotToken != "" {
		tg, err := telegram.NewSender(cfg.TelegramBotToken, logger.With("component", "telegram"))
		if err != nil {
			slog.Warn("telegram delivery disabled", "error", err)
		} else {
			textSender = tg
		}
	}

	srv := server.New(cfg, server.Deps{
		DB:       db,
		Meals:    meals,
		SMS:      smsSender,
		Telegram: textSender,
		Metrics:  collector,
		Gatherer: reg,
	}, logger)

	// Only header reads are bounded: plan WebSockets stay open indefinitely.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				if n := srv.Registry().EvictIdle(); n > 0 {
					slog.Info("evicted idle decks", "count", n)
				}
				srv.RateLimiter().Cleanup(time.Hour)
				if memCache != nil {
					if n := memCache.Purge(); n > 0 {
						slog.Debug("purged meal cache", "count", n)
					}
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("bitematch starting", "addr", ":"+cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	srv.Close()
}
