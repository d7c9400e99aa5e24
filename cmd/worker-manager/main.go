// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dispatch-workers/internal/audit"
	"dispatch-workers/internal/common/aws"
	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/config"
	"dispatch-workers/internal/common/database"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/dispatch/scoring"
	"dispatch-workers/internal/store"

	// Assignment workers (4)
	ad "dispatch-workers/internal/workers/assignment/assign-doctor"
	rv "dispatch-workers/internal/workers/assignment/reorder-visits"
	sd "dispatch-workers/internal/workers/assignment/suggest-doctors"
	ud "dispatch-workers/internal/workers/assignment/unassign-doctor"

	// Roster workers (2)
	ds "dispatch-workers/internal/workers/roster/doctor-schedule"
	rd "dispatch-workers/internal/workers/roster/release-doctor"

	// Communication workers (1)
	nd "dispatch-workers/internal/workers/communication/notify-doctor"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	opts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.App.Name,
	}
	if cfg.Logging.Output != "" {
		opts.OutputPaths = []string{cfg.Logging.Output}
	}
	zapLog := logger.NewWithOptions(opts)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Audit trail (Elasticsearch, optional) ---
	var recorder audit.Recorder = audit.NoopRecorder{}
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		elastic := audit.NewElasticRecorder(esClient.Client, cfg.Audit.Index, log)
		if err := elastic.EnsureIndex(ctx); err != nil {
			// decisions still index with dynamic mapping
			zapLog.Warn("audit index bootstrap failed", zap.Error(err))
		}
		recorder = elastic
		zapLog.Info("Elasticsearch audit trail enabled", zap.String("index", cfg.Audit.Index))
	}

	// --- SMS (optional) ---
	var sms nd.SMSSender
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		sms = snsClient
	}

	// --- Dispatcher ---
	pgStore := store.NewPostgresStore(pg.DB, log)
	locker := store.NewRedisLocker(redis.Client, store.LockOptions{
		TTL:           config.GetDuration(cfg.Dispatch.LockTTL),
		Wait:          config.GetDuration(cfg.Dispatch.LockWait),
		RetryInterval: config.GetDuration(cfg.Dispatch.LockRetryInterval),
	}, log)

	wc := cfg.Dispatch.Weights
	dispatcher := dispatch.New(pgStore, locker, log, dispatch.Options{
		Weights: scoring.Weights{
			Availability: wc.Availability,
			Distance:     wc.Distance,
			SkillMatch:   wc.SkillMatch,
			LoadBalance:  wc.LoadBalance,
			Performance:  wc.Performance,
		},
		TopK:     cfg.Dispatch.TopK,
		Recorder: recorder,
		Tracer:   obs.Tracer(),
	})

	// --- Register workers ---
	handlers := make(map[string]camunda.JobHandler)
	register := func(taskType string, h camunda.JobHandler, err error) {
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		handlers[taskType] = h
	}

	{
		h, err := sd.NewHandler(sd.NewConfig(cfg), dispatcher, log, obs)
		register(sd.TaskType, h, err)
	}
	{
		h, err := ad.NewHandler(ad.NewConfig(cfg), dispatcher, log, obs)
		register(ad.TaskType, h, err)
	}
	{
		h, err := ud.NewHandler(ud.NewConfig(cfg), dispatcher, log, obs)
		register(ud.TaskType, h, err)
	}
	{
		h, err := rv.NewHandler(rv.NewConfig(cfg), dispatcher, log, obs)
		register(rv.TaskType, h, err)
	}
	{
		h, err := rd.NewHandler(rd.NewConfig(cfg), dispatcher, log, obs)
		register(rd.TaskType, h, err)
	}
	{
		h, err := ds.NewHandler(ds.NewConfig(cfg), dispatcher, log, obs)
		register(ds.TaskType, h, err)
	}
	{
		h, err := nd.NewHandler(nd.NewConfig(cfg), pgStore, sms, log, obs)
		register(nd.TaskType, h, err)
	}

	var workers []worker.JobWorker
	for taskType, h := range handlers {
		jw := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), h, log)
		if jw != nil {
			workers = append(workers, jw)
		}
	}
	zapLog.Info("Workers registered", zap.Int("started", len(workers)), zap.Int("total", len(handlers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ready"}
		code := http.StatusOK
		probes := map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    redis.Ping,
		}
		for name, probe := range probes {
			if err := probe(checkCtx); err != nil {
				checks[name] = err.Error()
				checks["status"] = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// In-flight jobs finish before exit so their doctor locks are released.
	for _, jw := range workers {
		jw.Close()
	}
	for _, jw := range workers {
		jw.AwaitClose()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	body["time"] = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
