// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taxassist-workers/internal/assessment"
	"taxassist-workers/internal/audit"
	"taxassist-workers/internal/common/aws"
	"taxassist-workers/internal/common/camunda"
	"taxassist-workers/internal/common/config"
	"taxassist-workers/internal/common/database"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/common/observability"
	"taxassist-workers/internal/extraction"
	"taxassist-workers/pkg/registry"

	ra "taxassist-workers/internal/workers/assessment/run-assessment"
	sn "taxassist-workers/internal/workers/assessment/send-notification"
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      time.Duration(cfg.Camunda.Timeout) * time.Millisecond,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
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

	// --- Init Elasticsearch with retry (audit trail only) ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	var auditor audit.Indexer = audit.NoOpIndexer{}
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, audit indexing disabled", zap.Error(err))
	} else {
		auditor = audit.NewESIndexer(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Activity registry ---
	var runActivity, notifyActivity *registry.Activity
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Warn("activity registry not loaded, input validation disabled", zap.Error(err))
	} else {
		if a, ok := reg.FindByTaskType(ra.TaskType); ok {
			runActivity = a
		}
		if a, ok := reg.FindByTaskType(sn.TaskType); ok {
			notifyActivity = a
		}
	}

	// --- Assessment pipeline wiring ---
	stateStore := assessment.NewRedisStateStore(redis.Client, time.Duration(cfg.Tax.StateTTL)*time.Second)
	extractionStore := extraction.NewPostgresStore(pg.DB)
	advisor := assessment.NewHTTPAdvisor(cfg, log)
	orchestrator := assessment.NewOrchestrator(stateStore, extractionStore, advisor, cfg, log)

	// --- Notification clients (optional channels) ---
	var emailSender sn.EmailSender
	var smsSender sn.SMSSender
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		emailSender = sesClient
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		smsSender = snsClient
	}

	// --- Register workers ---
	var workers []*camunda.CamundaWorker
	if config.IsWorkerEnabled(cfg, ra.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ra.TaskType)
		handler := ra.NewHandler(ra.FromAppConfig(cfg), orchestrator, auditor, runActivity, log).WithObservability(obs)
		workers = append(workers, camunda.NewWorker(
			camClient.GetClient(), ra.TaskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, sn.TaskType)
		notifyCfg := sn.FromAppConfig(cfg)
		service := sn.NewService(notifyCfg, emailSender, smsSender, log)
		handler := sn.NewHandler(notifyCfg, service, notifyActivity, log)
		workers = append(workers, camunda.NewWorker(
			camClient.GetClient(), sn.TaskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog))
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			status := "healthy"
			code := http.StatusOK
			if err := camClient.HealthCheck(r.Context()); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Stop()
	}

	if err := camClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
