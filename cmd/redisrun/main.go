package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge/redisrun/internal/api"
	"github.com/flowforge/redisrun/internal/config"
	"github.com/flowforge/redisrun/internal/log"
	"github.com/flowforge/redisrun/internal/metrics"
	"github.com/flowforge/redisrun/pkg/kv"
	_ "github.com/flowforge/redisrun/pkg/kv/memory" // register the memory backend
	"github.com/flowforge/redisrun/pkg/ops"
)

func main() {
	batchFile := flag.String("batch", "", "execute the request in the given JSON file and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *batchFile != "" {
		if err := runBatch(cfg, logger, *batchFile); err != nil {
			logger.Errorw("Batch execution failed", "file", *batchFile, "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Infow("Starting redisrun API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("redisrun")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	dispatcher := ops.NewDispatcher(logger, metricsObj)

	// Setup API handler and middleware
	handler := api.NewHandler(dispatcher, cfg, logger)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM, metricsHandler)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	server := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Blocking pops hold requests open, so no write timeout here; the
		// per-route timeout middleware bounds everything else.
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}

// runBatch executes a single request described by a JSON file and prints the
// result records to stdout. Credential fields left empty fall back to the
// configured server defaults.
func runBatch(cfg *config.Config, logger *zap.SugaredLogger, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read request file: %w", err)
	}

	var req api.ExecuteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request file: %w", err)
	}
	if req.Operation == "" {
		return fmt.Errorf("operation is required")
	}

	if req.Credential.Host == "" {
		req.Credential = ops.Credential{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Database: cfg.Redis.Database,
			User:     cfg.Redis.User,
			Password: cfg.Redis.Password,
			SSL:      cfg.Redis.SSL,
		}
	}
	req.Credential.DialTimeout = cfg.Redis.DialTimeout

	items := ops.NewItems(req.Items)
	if len(items) == 0 {
		items = ops.NewItems([]map[string]any{{}})
	}
	params := ops.MapSource{Base: req.Parameters, PerItem: req.ItemParameters}
	opts := ops.Options{ContinueOnFail: req.ContinueOnFail}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := ops.NewDispatcher(logger, nil)

	var results []ops.Result
	if req.DryRun {
		store, serr := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
		if serr != nil {
			return serr
		}
		results, err = dispatcher.ExecuteStore(ctx, store, req.Operation, items, params, opts)
	} else {
		results, err = dispatcher.Execute(ctx, req.Credential, req.Operation, items, params, opts)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
