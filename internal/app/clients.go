package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docfill-backend/internal/modules/fulfillment/llm"
	"github.com/yungbote/docfill-backend/internal/platform/gemini"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
	"github.com/yungbote/docfill-backend/internal/platform/objectstore"
	"github.com/yungbote/docfill-backend/internal/platform/openai"
)

type Clients struct {
	// Validator and QA are nil when no LLM provider is configured.
	Validator llm.Model
	QA        llm.Model
	Redis     goredis.UniversalClient
	Archive   objectstore.Store
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// LLM
	switch cfg.LLMProvider {
	case "", "none":
		log.Info("no LLM provider configured; local validation and static suggestions only")
	case "openai":
		base, err := openai.NewClient(openai.ConfigFromEnv(), log)
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.Validator = llm.RateLimited(openai.WithModel(base, cfg.ValidatorModel), cfg.LLMRate, cfg.LLMBurst)
		out.QA = llm.RateLimited(openai.WithModel(base, cfg.QAModel), cfg.LLMRate, cfg.LLMBurst)
	case "gemini":
		g, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel, MaxRetries: 2}, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init gemini client: %w", err)
		}
		limited := llm.RateLimited(g, cfg.LLMRate, cfg.LLMBurst)
		out.Validator, out.QA = limited, limited
	default:
		return Clients{}, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}

	// Archive
	switch cfg.ArchiveBackend {
	case "", "local":
		store, err := objectstore.NewLocal(cfg.ArchiveDir)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init local archive: %w", err)
		}
		out.Archive = store
	case "s3", "minio":
		store, err := objectstore.NewS3(objectstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init s3 archive: %w", err)
		}
		out.Archive = store
	default:
		out.Close()
		return Clients{}, fmt.Errorf("unknown ARCHIVE_BACKEND %q", cfg.ArchiveBackend)
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
