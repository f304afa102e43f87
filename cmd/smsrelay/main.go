package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/bitematch/internal/config"
	"github.com/dukerupert/bitematch/internal/logging"
	"github.com/dukerupert/bitematch/internal/metrics"
	"github.com/dukerupert/bitematch/internal/middleware"
	"github.com/dukerupert/bitematch/internal/sms"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, nil)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	twilio := sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioMsgService, sms.WithBaseURL(cfg.TwilioBaseURL))
	relay := sms.NewRelay(twilio, collector, logger.With("component", "relay"))
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute)
	h := sms.NewHandler(relay, sms.NewTokens(cfg.Secret), limiter, logger.With("component", "relay_handler"))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sendSms", h.SendSms)
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	httpLogger := logger.With("component", "http")
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.Recover(httpLogger)(middleware.RequestLogger(httpLogger)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(time.Hour)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("sms relay starting", "addr", ":"+cfg.Port)
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
		os.Exit(1)
	}
}
