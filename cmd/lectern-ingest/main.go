// Command lectern-ingest loads course documents into the store without
// starting the HTTP service.
//
// Usage:
//
//	lectern-ingest -dir docs
//	lectern-ingest -file docs/mcp_course.txt -force
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/wicaksana/lectern"
	"github.com/wicaksana/lectern/ingest"
	"github.com/wicaksana/lectern/internal/config"
	"github.com/wicaksana/lectern/provider/gemini"
	"github.com/wicaksana/lectern/store/postgres"
	"github.com/wicaksana/lectern/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	var (
		dir   = flag.String("dir", "", "ingest every course document in the directory")
		file  = flag.String("file", "", "ingest a single course document")
		force = flag.Bool("force", false, "re-ingest courses that already exist")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if (*dir == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -dir or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load(os.Getenv("LECTERN_CONFIG"))
	if cfg.Embedding.APIKey == "" {
		logger.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}

	ctx := context.Background()

	embedding, err := gemini.NewEmbedding(ctx, cfg.Embedding.APIKey,
		gemini.WithModel(cfg.Embedding.Model),
		gemini.WithDimensions(cfg.Embedding.Dimensions),
	)
	if err != nil {
		logger.Error("embedding provider init failed", "error", err)
		os.Exit(1)
	}
	defer embedding.Close()

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

	ingestor := ingest.NewIngestor(store, embedding,
		ingest.WithChunker(ingest.NewSentenceChunker(
			ingest.WithMaxChars(cfg.Ingest.MaxChars),
			ingest.WithOverlapChars(cfg.Ingest.OverlapChars),
		)),
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithLogger(logger),
	)

	var results []ingest.IngestResult
	if *dir != "" {
		results, err = ingestor.IngestDirectory(ctx, *dir, *force)
	} else {
		var content []byte
		content, err = os.ReadFile(*file)
		if err == nil {
			var res ingest.IngestResult
			res, err = ingestor.IngestFile(ctx, content, *file, *force)
			results = []ingest.IngestResult{res}
		}
	}
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}

	for _, r := range results {
		if r.Skipped {
			fmt.Printf("skipped %q (already ingested)\n", r.CourseTitle)
			continue
		}
		fmt.Printf("ingested %q: %d chunks\n", r.CourseTitle, r.ChunkCount)
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
