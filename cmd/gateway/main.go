// Package main implements the wager gateway server. The gateway verifies
// signed vote and withdrawal requests and relays them to the settlement
// worker, which holds the authoritative balances.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hotornot-games/wager-gateway/internal/app"
	"github.com/hotornot-games/wager-gateway/internal/app/httpapi"
	"github.com/hotornot-games/wager-gateway/internal/app/metrics"
	gatewaysvc "github.com/hotornot-games/wager-gateway/internal/app/services/gateway"
	"github.com/hotornot-games/wager-gateway/internal/app/storage/postgres"
	"github.com/hotornot-games/wager-gateway/internal/middleware"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

func main() {
	addr := flag.String("addr", ":8080", "Gateway listen address")
	workerURL := flag.String("worker-url", "", "Settlement worker base URL")
	workerToken := flag.String("worker-token", "", "Static bearer token for worker calls")
	serviceSecret := flag.String("service-secret", "", "HS256 secret for minted service tokens (overrides worker-token)")
	sentimentURL := flag.String("sentiment-url", "", "Sentiment resolver endpoint")
	sentimentKey := flag.String("sentiment-key", "", "Sentiment resolver API key")
	sentimentPolicy := flag.String("sentiment-policy", "", "Behavior when sentiment is unavailable: forward_unknown or reject")
	callerSecret := flag.String("caller-secret", "", "HS256 secret validating caller bearer tokens")
	databaseURL := flag.String("database-url", "", "PostgreSQL DSN; in-memory stores are used when unset")
	rps := flag.Int("rate-limit", 20, "Per-caller requests per second")
	burst := flag.Int("rate-burst", 40, "Per-caller burst size")
	flag.Parse()

	// Environment variable overrides
	if v := os.Getenv("GATEWAY_ADDR"); v != "" {
		*addr = v
	}
	if v := os.Getenv("WORKER_URL"); v != "" {
		*workerURL = v
	}
	if v := os.Getenv("WORKER_TOKEN"); v != "" {
		*workerToken = v
	}
	if v := os.Getenv("SERVICE_SECRET"); v != "" {
		*serviceSecret = v
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		*sentimentURL = v
	}
	if v := os.Getenv("SENTIMENT_KEY"); v != "" {
		*sentimentKey = v
	}
	if v := os.Getenv("SENTIMENT_POLICY"); v != "" {
		*sentimentPolicy = v
	}
	if v := os.Getenv("CALLER_SECRET"); v != "" {
		*callerSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		*databaseURL = v
	}

	log := logger.NewDefault("gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stores app.Stores
	if *databaseURL != "" {
		store, err := postgres.Open(ctx, *databaseURL)
		if err != nil {
			log.WithError(err).Error("open postgres")
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			log.WithError(err).Error("ensure schema")
			os.Exit(1)
		}
		stores = app.Stores{Accounts: store, Posts: store, Games: store}
		log.Info("using postgres storage")
	} else {
		log.Info("using in-memory storage")
	}

	cfg := app.Config{
		WorkerURL:       *workerURL,
		WorkerToken:     *workerToken,
		ServiceSecret:   *serviceSecret,
		ServiceID:       os.Getenv("SERVICE_ID"),
		SentimentURL:    *sentimentURL,
		SentimentKey:    *sentimentKey,
		SentimentPolicy: parsePolicy(*sentimentPolicy),
	}

	application, err := app.New(stores, cfg, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	var handler http.Handler = httpapi.NewHandler(application)

	limiter := middleware.NewRateLimiter(*rps, *burst, log)
	limiter.StartCleanup(time.Minute)
	handler = limiter.Handler(handler)

	if *callerSecret != "" {
		auth := middleware.NewBearerAuth([]byte(*callerSecret), []string{"/healthz", "/balance/"}, log)
		handler = auth.Handler(handler)
	} else {
		log.Warn("CALLER_SECRET not set; caller authentication disabled")
	}

	handler = metrics.InstrumentHandler(handler)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", *addr).Info("gateway listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("server error")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}

	log.Info("gateway stopped")
}

func parsePolicy(raw string) gatewaysvc.SentimentPolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "reject":
		return gatewaysvc.SentimentReject
	default:
		return gatewaysvc.SentimentForwardUnknown
	}
}
