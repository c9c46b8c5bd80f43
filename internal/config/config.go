package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Store     StoreConfig     `toml:"store"`
	Session   SessionConfig   `toml:"session"`
	Server    ServerConfig    `toml:"server"`
	Ingest    IngestConfig    `toml:"ingest"`
	Observer  ObserverConfig  `toml:"observer"`
}

type LLMConfig struct {
	Model         string  `toml:"model"`
	APIKey        string  `toml:"api_key"`
	MaxTokens     int     `toml:"max_tokens"`
	Temperature   float64 `toml:"temperature"`
	MaxToolRounds int     `toml:"max_tool_rounds"`
}

type EmbeddingConfig struct {
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
}

type StoreConfig struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
	VectorTopK  int    `toml:"vector_top_k"`
}

type SessionConfig struct {
	Backend     string `toml:"backend"`
	MaxMessages int    `toml:"max_messages"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	TTLMinutes  int    `toml:"ttl_minutes"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type IngestConfig struct {
	DocsDir      string `toml:"docs_dir"`
	MaxChars     int    `toml:"max_chars"`
	OverlapChars int    `toml:"overlap_chars"`
	BatchSize    int    `toml:"batch_size"`
}

type ObserverConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Service  string `toml:"service"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM:       LLMConfig{Model: "claude-sonnet-4-0", MaxTokens: 800, MaxToolRounds: 2},
		Embedding: EmbeddingConfig{Model: "text-embedding-004", Dimensions: 768},
		Store:     StoreConfig{Backend: "sqlite", Path: "lectern.db", VectorTopK: 5},
		Session:   SessionConfig{Backend: "memory", MaxMessages: 2, TTLMinutes: 120},
		Server:    ServerConfig{Addr: ":8000", StaticDir: "frontend"},
		Ingest:    IngestConfig{DocsDir: "docs", MaxChars: 800, OverlapChars: 100, BatchSize: 64},
		Observer:  ObserverConfig{Service: "lectern"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "lectern.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("LECTERN_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LECTERN_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("LECTERN_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("LECTERN_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.RedisAddr = v
	}
	if v := os.Getenv("LECTERN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LECTERN_DOCS_DIR"); v != "" {
		cfg.Ingest.DocsDir = v
	}
	if v := os.Getenv("LECTERN_MAX_TOOL_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.MaxToolRounds = n
		}
	}
	if os.Getenv("LECTERN_OBSERVER_ENABLED") == "true" || os.Getenv("LECTERN_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Observer.Endpoint = v
	}

	// Fallbacks
	if cfg.Session.Backend == "redis" && cfg.Session.RedisAddr == "" {
		cfg.Session.RedisAddr = "localhost:6379"
	}

	return cfg
}
