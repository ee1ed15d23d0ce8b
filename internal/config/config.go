package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"3000"`

	APIKey     string `env:"API_KEY"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	RateLimitRPS          float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst        int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	DeployRateLimitPerMin int     `env:"DEPLOY_RATE_LIMIT" envDefault:"10"`

	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	DatabaseMigrate  bool   `env:"DATABASE_MIGRATE" envDefault:"true"`

	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"4"`
	QueueBuffer       int    `env:"QUEUE_BUFFER" envDefault:"256"`
	SitePrefix        string `env:"SITE_PREFIX" envDefault:"ekipa"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Claude  ClaudeConfig  `envPrefix:"CLAUDE_"`
	Netlify NetlifyConfig `envPrefix:"NETLIFY_"`
	N8N     N8NConfig     `envPrefix:"N8N_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Archive ArchiveConfig `envPrefix:"ARCHIVE_"`
}

type ClaudeConfig struct {
	APIKey    string        `env:"API_KEY"`
	APIURL    string        `env:"API_URL" envDefault:"https://api.anthropic.com/v1"`
	Model     string        `env:"MODEL" envDefault:"claude-3-sonnet-20240229"`
	MaxTokens int           `env:"MAX_TOKENS" envDefault:"4000"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

type NetlifyConfig struct {
	APIToken string `env:"API_TOKEN"`
	APIURL   string `env:"API_URL" envDefault:"https://api.netlify.com/api/v1"`
	TeamID   string `env:"TEAM_ID"`
}

type N8NConfig struct {
	WebhookURL string        `env:"WEBHOOK_URL"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	Stream    string `env:"STREAM" envDefault:"deploy_jobs"`
	DLQStream string `env:"DLQ_STREAM" envDefault:"deploy_jobs_dlq"`
	Group     string `env:"GROUP" envDefault:"deploy_workers"`
	Consumer  string `env:"CONSUMER" envDefault:"api-1"`
}

type ArchiveConfig struct {
	S3URL  string `env:"S3_URL"`
	Bucket string `env:"BUCKET" envDefault:"sites"`
	Region string `env:"REGION" envDefault:"us-east-1"`
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads .env files (process environment keeps precedence) and parses
// the environment into Config.
func Load() (Config, error) {
	_ = godotenv.Load(".env", ".env.local")
	return Parse(os.Environ())
}

// Parse builds a Config from explicit KEY=VALUE pairs.
func Parse(environ []string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(environ),
	}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
