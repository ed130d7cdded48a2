package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Groq       GroqConfig
	ElevenLabs ElevenLabsConfig
	Scraper    ScraperConfig
	R2         R2Config
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Path string // sqlite database file
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string // HMAC secret shared with the identity provider
}

type RateLimitConfig struct {
	ClipsPerHour   int
	MessagesPerMin int
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Timeout      int // seconds
}

type ScraperConfig struct {
	Timeout int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// SignedURLTTLDays bounds how long audio links stay valid. The bucket
	// is private, so every reference handed out is a presigned GET.
	SignedURLTTLDays int
}

type WorkerConfig struct {
	Enabled      bool // run the dispatcher inside the API process
	PollInterval int  // seconds between polls
	BatchSize    int  // max clips claimed per cycle
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("GROQ_API_KEY")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.voice_id", "ELEVENLABS_VOICE_ID")
	_ = viper.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = viper.BindEnv("elevenlabs.output_format", "ELEVENLABS_OUTPUT_FORMAT")
	_ = viper.BindEnv("elevenlabs.timeout", "ELEVENLABS_TIMEOUT")
	_ = viper.BindEnv("scraper.timeout", "SCRAPER_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.signed_url_ttl_days", "R2_SIGNED_URL_TTL_DAYS")
	_ = viper.BindEnv("worker.enabled", "WORKER_ENABLED")
	_ = viper.BindEnv("worker.poll_interval", "WORKER_POLL_INTERVAL")
	_ = viper.BindEnv("worker.batch_size", "WORKER_BATCH_SIZE")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("database.path", "clipcast.db")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("ratelimit.clips_per_hour", 20)
	viper.SetDefault("ratelimit.messages_per_min", 30)

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.3-70b-versatile")

	// ElevenLabs defaults: fast turbo model, standard MP3 quality
	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("elevenlabs.voice_id", "JBFqnCBsd6RMkjVDRZzb")
	viper.SetDefault("elevenlabs.model_id", "eleven_turbo_v2_5")
	viper.SetDefault("elevenlabs.output_format", "mp3_44100_128")
	viper.SetDefault("elevenlabs.timeout", 120)

	viper.SetDefault("scraper.timeout", 30)

	viper.SetDefault("r2.signed_url_ttl_days", 365)

	viper.SetDefault("worker.enabled", true)
	viper.SetDefault("worker.poll_interval", 10)
	viper.SetDefault("worker.batch_size", 5)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			ClipsPerHour:   viper.GetInt("ratelimit.clips_per_hour"),
			MessagesPerMin: viper.GetInt("ratelimit.messages_per_min"),
		},
		Groq: GroqConfig{
			APIKey:  viper.GetString("groq.api_key"),
			BaseURL: viper.GetString("groq.base_url"),
			Model:   viper.GetString("groq.model"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:       viper.GetString("elevenlabs.api_key"),
			BaseURL:      viper.GetString("elevenlabs.base_url"),
			VoiceID:      viper.GetString("elevenlabs.voice_id"),
			ModelID:      viper.GetString("elevenlabs.model_id"),
			OutputFormat: viper.GetString("elevenlabs.output_format"),
			Timeout:      viper.GetInt("elevenlabs.timeout"),
		},
		Scraper: ScraperConfig{
			Timeout: viper.GetInt("scraper.timeout"),
		},
		R2: R2Config{
			AccountID:        viper.GetString("r2.account_id"),
			AccessKeyID:      viper.GetString("r2.access_key_id"),
			SecretAccessKey:  viper.GetString("r2.secret_access_key"),
			BucketName:       viper.GetString("r2.bucket_name"),
			SignedURLTTLDays: viper.GetInt("r2.signed_url_ttl_days"),
		},
		Worker: WorkerConfig{
			Enabled:      viper.GetBool("worker.enabled"),
			PollInterval: viper.GetInt("worker.poll_interval"),
			BatchSize:    viper.GetInt("worker.batch_size"),
		},
	}

	return cfg, nil
}
