package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"intake-backend/internal/shared/telemetry"
)

const (
	defaultMaxUploadBytes  = 10 << 20
	defaultMaxPayloadBytes = 1 << 20
)

// Config holds application configuration.
type Config struct {
	Port                 string        `yaml:"port"`
	Env                  string        `yaml:"env"`
	CORSAllowOrigin      []string      `yaml:"corsAllowOrigins"`
	DatabaseURL          string        `yaml:"databaseUrl"`
	AutoMigrate          bool          `yaml:"autoMigrate"`
	ObjectStoreType      string        `yaml:"objectStore"`
	LocalStoreDir        string        `yaml:"localStoreDir"`
	AWSRegion            string        `yaml:"awsRegion"`
	S3Bucket             string        `yaml:"s3Bucket"`
	S3Prefix             string        `yaml:"s3Prefix"`
	SSEKMSKeyID          string        `yaml:"sseKmsKeyId"`
	StoragePublicBaseURL string        `yaml:"storagePublicBaseUrl"`
	StorageFolder        string        `yaml:"storageFolder"`
	SignedURLTTL         time.Duration `yaml:"signedUrlTtl"`
	PublicAPIBaseURL     string        `yaml:"publicApiBaseUrl"`
	LLMProvider          string        `yaml:"llmProvider"`
	LLMModel             string        `yaml:"llmModel"`
	GeminiAPIKey         string        `yaml:"-"`
	OpenAIAPIKey         string        `yaml:"-"`
	JWTSecret            string        `yaml:"-"`
	GoogleClientID       string        `yaml:"googleClientId"`
	GoogleClientSecret   string        `yaml:"-"`
	GoogleRedirectURL    string        `yaml:"googleRedirectUrl"`
	UIRedirectURL        string        `yaml:"uiRedirectUrl"`
	MaxUploadBytes       int64         `yaml:"maxUploadBytes"`
	MaxPayloadBytes      int64         `yaml:"maxPayloadBytes"`
	AuthCacheTTL         time.Duration `yaml:"authCacheTtl"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Port:                 "8080",
		Env:                  "dev",
		CORSAllowOrigin:      []string{"http://localhost:3000"},
		ObjectStoreType:      "local",
		LocalStoreDir:        "./data",
		StoragePublicBaseURL: "http://localhost:8080/storage",
		StorageFolder:        "business-profiles",
		SignedURLTTL:         15 * time.Minute,
		PublicAPIBaseURL:     "http://localhost:8080",
		LLMProvider:          "gemini",
		LLMModel:             "gemini-1.5-flash",
		MaxUploadBytes:       defaultMaxUploadBytes,
		MaxPayloadBytes:      defaultMaxPayloadBytes,
		AuthCacheTTL:         time.Minute,
	}
}

// Load reads configuration from defaults, an optional CONFIG_FILE and environment variables.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			telemetry.Warn("config.file_ignored", map[string]any{"path": path, "error": err})
		}
	}
	applyEnv(&cfg)

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": cfg.Env})
	}
	return cfg
}

// LoadWithFile is Load with an explicit YAML overlay path.
func LoadWithFile(path string) (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = normalizeEnv(getEnv("ENV", cfg.Env))
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.ObjectStoreType = normalizeStoreType(getEnv("OBJECT_STORE", cfg.ObjectStoreType))
	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.SSEKMSKeyID = getEnv("SSE_KMS_KEY_ID", cfg.SSEKMSKeyID)
	cfg.StoragePublicBaseURL = strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", cfg.StoragePublicBaseURL), "/")
	cfg.StorageFolder = strings.Trim(getEnv("STORAGE_FOLDER", cfg.StorageFolder), "/")
	cfg.SignedURLTTL = getEnvDuration("SIGNED_URL_TTL", cfg.SignedURLTTL)
	cfg.PublicAPIBaseURL = strings.TrimRight(getEnv("PUBLIC_API_BASE_URL", cfg.PublicAPIBaseURL), "/")
	cfg.LLMProvider = normalizeProvider(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret)
	cfg.GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", cfg.GoogleRedirectURL)
	cfg.UIRedirectURL = getEnv("UI_REDIRECT_URL", cfg.UIRedirectURL)
	cfg.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxPayloadBytes = getEnvInt64("MAX_PAYLOAD_BYTES", cfg.MaxPayloadBytes)
	cfg.AuthCacheTTL = getEnvDuration("AUTH_CACHE_TTL", cfg.AuthCacheTTL)
}

// IsDevLike reports whether env allows in-memory fallbacks and dev-only routes.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		telemetry.Warn("config.invalid_bool", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_size", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "placeholder", "":
		return "none"
	default:
		return "gemini"
	}
}
