// Command synesis runs the Synesis multi-stage orchestrator: an
// OpenAI-compatible chat-completions server that drives one compiled
// routing.Graph traversal per request through classification,
// supervision, planning, context curation, code generation, integrity
// gating, sandbox execution, LSP analysis, and critique.
//
// Required environment variables:
//
//	DB_PASSWORD       - PostgreSQL password
//
// Optional environment variables (see internal/database.LoadConfigFromEnv
// and internal/config/env.go for the full list):
//
//	CONFIG_DIR        - path to the YAML configuration directory (default: ./deploy/config)
//	HTTP_PORT         - override the configured HTTP port
//	SYNESIS_MODEL     - default model name reported by GET /v1/models
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/supernovae/synesis/internal/classifier"
	"github.com/supernovae/synesis/internal/config"
	"github.com/supernovae/synesis/internal/contextpack"
	"github.com/supernovae/synesis/internal/convmemory"
	"github.com/supernovae/synesis/internal/database"
	"github.com/supernovae/synesis/internal/failurecache"
	"github.com/supernovae/synesis/internal/httpapi"
	"github.com/supernovae/synesis/internal/httpclient"
	"github.com/supernovae/synesis/internal/integritygate"
	"github.com/supernovae/synesis/internal/lspclient"
	"github.com/supernovae/synesis/internal/llmclient"
	"github.com/supernovae/synesis/internal/retrieval"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/sandbox"
	"github.com/supernovae/synesis/internal/stages"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "synesis: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configDir := getEnv("CONFIG_DIR", "./deploy/config")
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Info("loaded configuration", "config_dir", cfg.ConfigDir())

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("loading database config: %w", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("error closing database client", "error", err)
		}
	}()
	logger.Info("connected to database", "host", dbCfg.Host, "database", dbCfg.Database)

	endpoints := cfg.Endpoints()
	pool := httpclient.NewPool(30 * time.Second)

	llmCollab := httpclient.NewCollaborator("llm", pool)
	retrievalCollab := httpclient.NewCollaborator("retrieval", pool)
	lspCollab := httpclient.NewCollaborator("lsp", pool)
	sandboxCollab := httpclient.NewCollaborator("sandbox", pool)

	llmTimeout := time.Duration(endpoints.LLM.TimeoutSeconds) * time.Second
	llm := llmclient.NewHTTPClient(endpoints.LLM.BaseURL, llmCollab, llmCollab, llmTimeout)

	retrievalTimeout := time.Duration(endpoints.Retrieval.TimeoutSeconds) * time.Second
	retriever := retrieval.NewClient(endpoints.Retrieval.BaseURL, retrievalCollab, retrievalTimeout)

	lspTimeout := time.Duration(endpoints.LSP.TimeoutSeconds) * time.Second
	var lsp lspclient.Client = lspclient.NewHTTPClient(endpoints.LSP.BaseURL, lspCollab, lspTimeout)

	sandboxTimeout := time.Duration(endpoints.Sandbox.TimeoutSeconds) * time.Second
	warmPool := sandbox.NewWarmPoolClient(endpoints.Sandbox.BaseURL, sandboxCollab, sandboxTimeout)
	sandboxMetrics := sandbox.NewMetrics(prometheus.DefaultRegisterer)
	// No k8s client-go wiring exists anywhere in this codebase's
	// dependency surface, so the ephemeral fallback stays unset — a
	// warm-pool breaker trip degrades to an in-band sandbox error
	// rather than a cold-start job, as sandbox.Executor.Execute
	// documents for a nil ephemeral client.
	executor := sandbox.NewExecutor(warmPool, nil, sandboxMetrics)

	failureCacheCfg := cfg.FailureCacheConfig()
	failCache := failurecache.NewFailFastCache(
		orDefaultInt(failureCacheCfg.MaxSize, 500),
		time.Duration(orDefaultInt(failureCacheCfg.TTLMinutes, 60))*time.Minute,
	)

	budgets := cfg.Budgets()
	budgetTracker := &sandbox.BudgetTracker{
		MaxMinutes:    orDefaultFloat(budgets.SandboxMaxMinutes, 10),
		MaxIterations: orDefaultInt(budgets.MaxIterations, 8),
	}

	classifierEngine := classifier.LoadWithFallback(cfg.ClassifierWeightsFile())
	curator := contextpack.NewBuilder(cfg.ContextPackConfig(), retriever)
	gate := integritygate.NewGate(cfg.IntegrityGateConfig())

	model := getEnv("SYNESIS_MODEL", "synesis-default")

	stageSet := map[string]routing.Stage{
		routing.StageClassifier:    stages.NewClassifierStage(classifierEngine),
		routing.StageSupervisor:    stages.NewSupervisorStage(llm, model),
		routing.StagePlanner:       stages.NewPlannerStage(llm, model),
		routing.StageContextCurator: stages.NewContextCuratorStage(curator),
		routing.StageWorker:        stages.NewWorkerStage(llm, model, failCache),
		routing.StageIntegrityGate: stages.NewIntegrityGateStage(gate),
		routing.StageSandbox:       stages.NewSandboxStage(executor, failCache, budgetTracker),
		routing.StageLSP:           stages.NewLSPStage(lsp),
		routing.StageCritic:        stages.NewCriticStage(llm, model),
		routing.StageRespond:       stages.NewRespondStage(),
	}

	lspMode := routing.LSPModeOff
	features := cfg.Features()
	if features.LSPEnabled != nil && *features.LSPEnabled {
		lspMode = routing.LSPModeOnFailure
	}

	routes := map[string]routing.RouteFunc{
		routing.StageClassifier:    routing.RouteAfterClassifier,
		routing.StageSupervisor:    routing.RouteAfterSupervisor,
		routing.StagePlanner:       routing.RouteAfterPlanner,
		routing.StageContextCurator: routing.RouteAfterContextCurator,
		routing.StageWorker:        routing.RouteAfterWorker,
		routing.StageIntegrityGate: routing.NewRouteAfterIntegrityGate(lspMode),
		routing.StageSandbox:       routing.NewRouteAfterSandbox(lspMode),
		routing.StageLSP:           routing.RouteAfterLSP,
		routing.StageCritic:        routing.RouteAfterCritic,
	}

	graph := routing.NewGraph(stageSet, routes)

	memory, err := newConversationStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("constructing conversation store: %w", err)
	}

	server := httpapi.NewServer(graph, memory, model, budgetTracker.MaxIterations)

	serverCfg := cfg.Server()
	port := getEnv("HTTP_PORT", strconv.Itoa(orDefaultInt(serverCfg.Port, 8080)))
	addr := ":" + port

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		serverErrCh <- server.Start(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownGrace := time.Duration(orDefaultInt(serverCfg.ShutdownGraceSec, 15)) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// newConversationStore builds the Redis-backed store when configured
// and enabled, falling back to the in-process store otherwise — the
// process must still serve traversals on a single node without Redis
// available, matching convmemory.InMemoryStore's role as the
// always-available default.
func newConversationStore(ctx context.Context, cfg *config.Config) (convmemory.Store, error) {
	cmCfg := cfg.ConvMemoryConfig()
	maxTurns := orDefaultInt(cmCfg.MaxTurnsPerUser, 50)
	maxUsers := orDefaultInt(cmCfg.MaxUsers, 10_000)
	ttl := time.Duration(orDefaultInt(cmCfg.TTLMinutes, 1440)) * time.Minute

	features := cfg.Features()
	if features.ConvMemoryRedis != nil && *features.ConvMemoryRedis {
		redisURL := cfg.Server().RedisURL
		store, err := convmemory.NewRedisStore(ctx, redisURL, maxTurns, ttl)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store, nil
	}
	return convmemory.NewInMemoryStore(maxTurns, maxUsers, ttl, convmemory.StubSummarizer{}), nil
}

func orDefaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func orDefaultFloat(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}
