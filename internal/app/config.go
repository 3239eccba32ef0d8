package app

import (
	"strings"
	"time"

	"github.com/yungbote/docfill-backend/internal/data/db"
	"github.com/yungbote/docfill-backend/internal/platform/envutil"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins []string

	DB db.Config

	MaxRetries         int
	SemanticPolicy     string
	SemanticTypes      []string
	OracleTimeout      time.Duration
	SuggestTimeout     time.Duration
	ContextWindowWords int
	TypeMapPath        string
	LockTimeout        time.Duration

	LLMProvider    string
	ValidatorModel string
	QAModel        string
	GeminiAPIKey   string
	GeminiModel    string
	LLMRate        float64
	LLMBurst       int
	LLMQuestions   bool
	QuestionCache  int
	QuestionTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ArchiveBackend string
	ArchiveDir     string
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Prefix       string
	S3UseSSL       bool

	MetricsEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        envutil.Get("PORT", "8080", log),
		Environment: envutil.Get("APP_ENV", "development", log),
		CORSOrigins: envutil.CSV("CORS_ORIGINS"),

		DB: db.Config{
			Driver:           envutil.Get("DB_DRIVER", "sqlite", log),
			SQLitePath:       envutil.Get("SQLITE_PATH", "docfill.db", log),
			PostgresHost:     envutil.Get("POSTGRES_HOST", "localhost", log),
			PostgresPort:     envutil.Get("POSTGRES_PORT", "5432", log),
			PostgresUser:     envutil.Get("POSTGRES_USER", "postgres", log),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.Get("POSTGRES_NAME", "docfill", log),
			PostgresSSLMode:  envutil.Get("POSTGRES_SSLMODE", "disable", log),
		},

		MaxRetries:         envutil.GetInt("FILL_MAX_RETRIES", 2, log),
		SemanticPolicy:     envutil.Get("FILL_SEMANTIC_POLICY", "ambiguous", log),
		SemanticTypes:      envutil.CSV("FILL_SEMANTIC_TYPES"),
		OracleTimeout:      envutil.Duration("FILL_ORACLE_TIMEOUT", 8*time.Second),
		SuggestTimeout:     envutil.Duration("FILL_SUGGEST_TIMEOUT", 15*time.Second),
		ContextWindowWords: envutil.GetInt("FILL_CONTEXT_WINDOW_WORDS", 20, log),
		TypeMapPath:        envutil.String("FILL_TYPEMAP_PATH", ""),
		LockTimeout:        envutil.Duration("FILL_LOCK_TIMEOUT", 30*time.Second),

		LLMProvider:    strings.ToLower(envutil.Get("LLM_PROVIDER", "none", log)),
		ValidatorModel: envutil.String("OPENAI_MODEL_VALIDATOR", ""),
		QAModel:        envutil.String("OPENAI_MODEL_QA", ""),
		GeminiAPIKey:   envutil.String("GEMINI_API_KEY", ""),
		GeminiModel:    envutil.Get("GEMINI_MODEL", "gemini-2.5-flash", log),
		LLMRate:        envutil.Float("LLM_RATE_PER_SECOND", 2),
		LLMBurst:       envutil.GetInt("LLM_BURST", 4, log),
		LLMQuestions:   envutil.Bool("FILL_LLM_QUESTIONS", false),
		QuestionCache:  envutil.GetInt("FILL_QUESTION_CACHE_SIZE", 512, log),
		QuestionTTL:    envutil.Duration("FILL_QUESTION_CACHE_TTL", time.Hour),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.GetInt("REDIS_DB", 0, log),

		ArchiveBackend: strings.ToLower(envutil.Get("ARCHIVE_BACKEND", "local", log)),
		ArchiveDir:     envutil.Get("ARCHIVE_DIR", "./archive", log),
		S3Endpoint:     envutil.String("S3_ENDPOINT", ""),
		S3Region:       envutil.String("S3_REGION", ""),
		S3AccessKey:    envutil.String("S3_ACCESS_KEY", ""),
		S3SecretKey:    envutil.String("S3_SECRET_KEY", ""),
		S3Bucket:       envutil.String("S3_BUCKET", ""),
		S3Prefix:       envutil.String("S3_PREFIX", ""),
		S3UseSSL:       envutil.Bool("S3_USE_SSL", true),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
	}
}
