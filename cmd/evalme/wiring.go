package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/manvip28/Eval-Me-Maybe/internal/evaluation"
	"github.com/manvip28/Eval-Me-Maybe/internal/imagesim"
	"github.com/manvip28/Eval-Me-Maybe/internal/llm"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/scoring"
	"github.com/manvip28/Eval-Me-Maybe/internal/semantic"
	"github.com/manvip28/Eval-Me-Maybe/internal/storage"
)

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addScoringFlags(f *pflag.FlagSet) {
	d := model.DefaultEvalConfig()
	f.Float64("weight-semantic", d.Weights.Semantic, "Relative weight of semantic similarity")
	f.Float64("weight-lexical", d.Weights.Lexical, "Relative weight of BLEU")
	f.Float64("weight-sequence", d.Weights.Sequence, "Relative weight of ROUGE-L")
	f.Float64("weight-image", d.Weights.Image, "Share of the score taken by diagram similarity when present")
	f.Float64("max-score", d.MaxScore, "Per-question maximum when the key gives no marks")
	f.IntP("workers", "w", 4, "Questions scored concurrently")
	f.Duration("embed-timeout", d.EmbedTimeout, "Timeout for one embedding call (0 = none)")
	f.Int("image-size", d.ImageSize, "Side length images are resized to before SSIM")
}

func addProviderFlags(f *pflag.FlagSet) {
	f.String("embedding-provider", "none", "Embedding provider (openai, gemini, none); none drops the semantic signal")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the OpenAI-compatible API")
	f.String("llm-model", "llama3.2", "Chat model used for question generation")
	f.String("embedding-model", "", "Embedding model (default depends on provider)")
	f.String("gemini-key", "", "Gemini API key (or set EVALME_GEMINI_KEY)")
	f.String("redis-url", "", "Redis URL for the embedding cache (empty = no cache)")
	f.Duration("cache-ttl", semantic.DefaultCacheTTL, "Embedding cache entry lifetime")
}

func addStorageFlags(f *pflag.FlagSet) {
	f.String("storage-backend", "local", "Where image references are resolved (local, s3)")
	f.String("storage-root", ".", "Root directory for local storage")
	f.String("s3-bucket", "", "S3 bucket")
	f.String("s3-prefix", "", "Key prefix inside the bucket")
	f.String("s3-region", "", "S3 region")
	f.String("s3-endpoint", "", "Custom S3 endpoint (e.g. MinIO)")
}

func evalConfig(v *viper.Viper) model.EvalConfig {
	return model.EvalConfig{
		Weights: model.Weights{
			Semantic: v.GetFloat64("weight-semantic"),
			Lexical:  v.GetFloat64("weight-lexical"),
			Sequence: v.GetFloat64("weight-sequence"),
			Image:    v.GetFloat64("weight-image"),
		},
		MaxScore:     v.GetFloat64("max-score"),
		Workers:      v.GetInt("workers"),
		EmbedTimeout: v.GetDuration("embed-timeout"),
		ImageSize:    v.GetInt("image-size"),
	}
}

func llmConfig(v *viper.Viper) (llm.Config, error) {
	var cfg llm.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return llm.Config{}, fmt.Errorf("decode provider config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "gemini" {
		cfg.APIKey = v.GetString("gemini-key")
	}
	return cfg, nil
}

func storageConfig(v *viper.Viper) (storage.Config, error) {
	var cfg storage.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return storage.Config{}, fmt.Errorf("decode storage config: %w", err)
	}
	return cfg, nil
}

func newStorage(v *viper.Viper) (storage.ReadWriter, error) {
	cfg, err := storageConfig(v)
	if err != nil {
		return nil, err
	}
	rw, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return rw, nil
}

// embedder is an embedding provider that knows its model name.
type embedder interface {
	semantic.Embedder
	EmbeddingModel() string
}

// newEmbedder returns the configured embedding provider, wrapped in a Redis
// cache when redis-url is set. A nil embedder disables the semantic signal.
func newEmbedder(ctx context.Context, v *viper.Viper) (semantic.Embedder, func(), error) {
	cfg, err := llmConfig(v)
	if err != nil {
		return nil, func() {}, err
	}
	var (
		e       embedder
		cleanup = func() {}
	)
	switch cfg.Provider {
	case "", "none":
		slog.Warn("no embedding provider, semantic similarity disabled; scoring with BLEU and ROUGE-L only",
			"hint", "set --embedding-provider openai or gemini")
		return nil, cleanup, nil
	case "openai":
		e = llm.New(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
	case "gemini":
		g, err := llm.NewGemini(ctx, cfg.APIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini embedder: %w", err)
		}
		e = g
		cleanup = func() { _ = g.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	slog.Info("semantic similarity enabled", "provider", cfg.Provider, "model", e.EmbeddingModel())

	url := v.GetString("redis-url")
	if url == "" {
		return e, cleanup, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, embeddings will not be cached across runs", "error", err)
		_ = client.Close()
		return e, cleanup, nil
	}
	prev := cleanup
	cleanup = func() {
		_ = client.Close()
		prev()
	}
	slog.Info("embedding cache enabled", "addr", opts.Addr, "ttl", v.GetDuration("cache-ttl"))
	return semantic.NewRedisCache(client, e, e.EmbeddingModel(), v.GetDuration("cache-ttl")), cleanup, nil
}

// newAggregator assembles the scoring pipeline from flags. Images are read
// through images.
func newAggregator(ctx context.Context, v *viper.Viper, images storage.Reader) (*evaluation.Aggregator, func(), error) {
	cfg := evalConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	emb, cleanup, err := newEmbedder(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	var sem *semantic.Scorer
	if emb != nil {
		sem = semantic.New(emb, cfg.EmbedTimeout)
	}
	scorer := scoring.New(cfg, sem, imagesim.New(images, cfg.ImageSize))
	return evaluation.New(scorer, cfg.Workers), cleanup, nil
}
