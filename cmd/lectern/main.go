// Command lectern runs the course materials assistant as an HTTP service.
//
// It loads config from lectern.toml (path override via LECTERN_CONFIG),
// ingests course documents on startup, and serves the query API plus the
// static frontend.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/wicaksana/lectern"
	"github.com/wicaksana/lectern/ingest"
	"github.com/wicaksana/lectern/internal/config"
	"github.com/wicaksana/lectern/internal/session"
	"github.com/wicaksana/lectern/internal/web"
	"github.com/wicaksana/lectern/observer"
	"github.com/wicaksana/lectern/provider/anthropic"
	"github.com/wicaksana/lectern/provider/gemini"
	"github.com/wicaksana/lectern/store/postgres"
	"github.com/wicaksana/lectern/store/sqlite"
	"github.com/wicaksana/lectern/tools/coursesearch"
	"github.com/wicaksana/lectern/tools/outline"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load config
	cfg := config.Load(os.Getenv("LECTERN_CONFIG"))
	if cfg.LLM.APIKey == "" {
		logger.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	if cfg.Embedding.APIKey == "" {
		logger.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}

	// 2. Observability
	var tracer lectern.Tracer
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx, cfg.Observer.Service)
		if err != nil {
			logger.Error("observer init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("observer shutdown", "error", err)
			}
		}()
		tracer = observer.NewTracer()
	}

	// 3. Providers
	var provider lectern.ModelProvider = anthropic.New(cfg.LLM.APIKey, cfg.LLM.Model,
		anthropic.WithMaxTokens(int64(cfg.LLM.MaxTokens)),
		anthropic.WithTemperature(cfg.LLM.Temperature),
	)
	geminiEmb, err := gemini.NewEmbedding(ctx, cfg.Embedding.APIKey,
		gemini.WithModel(cfg.Embedding.Model),
		gemini.WithDimensions(cfg.Embedding.Dimensions),
	)
	if err != nil {
		logger.Error("embedding provider init failed", "error", err)
		os.Exit(1)
	}
	defer geminiEmb.Close()
	var embedding lectern.EmbeddingProvider = geminiEmb
	if inst != nil {
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
	}

	// 4. Store
	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	if err := store.Init(ctx); err != nil {
		logger.Error("store schema init failed", "error", err)
		os.Exit(1)
	}

	// 5. Assistant + tools
	orchestrator := lectern.NewOrchestrator(provider,
		lectern.WithMaxToolRounds(cfg.LLM.MaxToolRounds),
		lectern.WithLogger(logger),
		lectern.WithTracer(tracer),
	)
	assistant := lectern.NewAssistant(orchestrator, store, lectern.WithAssistantLogger(logger))

	var searchTool lectern.Tool = coursesearch.New(store, embedding, coursesearch.WithTopK(cfg.Store.VectorTopK))
	var outlineTool lectern.Tool = outline.New(store, embedding)
	if inst != nil {
		searchTool = observer.WrapTool(searchTool, inst)
		outlineTool = observer.WrapTool(outlineTool, inst)
	}
	assistant.AddTool(searchTool)
	assistant.AddTool(outlineTool)

	// 6. Startup ingest
	if cfg.Ingest.DocsDir != "" {
		if _, err := os.Stat(cfg.Ingest.DocsDir); err == nil {
			ingestor := ingest.NewIngestor(store, embedding,
				ingest.WithChunker(ingest.NewSentenceChunker(
					ingest.WithMaxChars(cfg.Ingest.MaxChars),
					ingest.WithOverlapChars(cfg.Ingest.OverlapChars),
				)),
				ingest.WithBatchSize(cfg.Ingest.BatchSize),
				ingest.WithLogger(logger),
				ingest.WithTracer(tracer),
			)
			results, err := ingestor.IngestDirectory(ctx, cfg.Ingest.DocsDir, false)
			if err != nil {
				logger.Error("startup ingest failed", "dir", cfg.Ingest.DocsDir, "error", err)
				os.Exit(1)
			}
			added, chunks := 0, 0
			for _, r := range results {
				if !r.Skipped {
					added++
					chunks += r.ChunkCount
				}
			}
			logger.Info("startup ingest complete", "courses", added, "chunks", chunks, "skipped", len(results)-added)
		} else {
			logger.Warn("docs directory not found, skipping ingest", "dir", cfg.Ingest.DocsDir)
		}
	}

	// 7. Sessions
	sessions, err := newSessionManager(ctx, cfg)
	if err != nil {
		logger.Error("session manager init failed", "error", err)
		os.Exit(1)
	}

	// 8. Serve
	server := web.NewServer(assistant, sessions,
		web.WithLogger(logger),
		web.WithStaticDir(cfg.Server.StaticDir),
	)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: server}

	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (lectern.CourseStore, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		st := postgres.New(pool, postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions))
		return st, pool.Close, nil
	default:
		st := sqlite.New(cfg.Store.Path, sqlite.WithLogger(logger))
		return st, func() { _ = st.Close() }, nil
	}
}

func newSessionManager(ctx context.Context, cfg config.Config) (session.Manager, error) {
	if cfg.Session.Backend == "redis" {
		return session.NewRedisManager(ctx, cfg.Session.RedisAddr, cfg.Session.RedisDB, cfg.Session.MaxMessages,
			session.WithTTL(time.Duration(cfg.Session.TTLMinutes)*time.Minute))
	}
	return session.NewMemoryManager(cfg.Session.MaxMessages), nil
}
