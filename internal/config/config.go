package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV"   env-default:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" env-default:":5501"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" env-default:"true"`

	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET"`
	// PrivateKeyURI is a filesystem path or s3://bucket/key.
	PrivateKeyURI string `env:"PRIVATE_KEY_URI" env-default:"certs/privateKey.pem"`

	S3      S3Config
	JWKS    JWKSConfig
	Cookie  CookieConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	AMQP    AMQPConfig
	Elastic ElasticConfig
}

type S3Config struct {
	Region    string `env:"S3_REGION"     env-default:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
}

type JWKSConfig struct {
	// URI is empty when the service verifies against its own key.
	URI               string        `env:"JWKS_URI"`
	CacheTTL          time.Duration `env:"JWKS_CACHE_TTL"           env-default:"10m"`
	RequestsPerMinute int           `env:"JWKS_REQUESTS_PER_MINUTE" env-default:"10"`
	FetchTimeout      time.Duration `env:"JWKS_FETCH_TIMEOUT"       env-default:"5s"`
}

type CookieConfig struct {
	Domain string `env:"COOKIE_DOMAIN" env-default:"localhost"`
	Secure bool   `env:"COOKIE_SECURE" env-default:"false"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `env:"KAFKA_TOPIC"   env-default:"user_events"`
}

type AMQPConfig struct {
	URL   string `env:"AMQP_URL"`
	Queue string `env:"AMQP_QUEUE" env-default:"user.events"`
}

type ElasticConfig struct {
	URL        string `env:"ES_URL"`
	User       string `env:"ES_USER"`
	Password   string `env:"ES_PASSWORD"`
	UsersIndex string `env:"ES_USERS_INDEX" env-default:"users"`
}

// Load reads the optional dotenv files and then the process environment.
// Variables already set in the environment win over dotenv values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.RefreshTokenSecret == "" {
		problems = append(problems, "REFRESH_TOKEN_SECRET is required")
	}
	if c.PrivateKeyURI == "" {
		problems = append(problems, "PRIVATE_KEY_URI is required")
	}
	if c.JWKS.RequestsPerMinute <= 0 {
		problems = append(problems, "JWKS_REQUESTS_PER_MINUTE must be positive")
	}
	if c.JWKS.CacheTTL <= 0 || c.JWKS.FetchTimeout <= 0 {
		problems = append(problems, "JWKS durations must be positive")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func compact(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	out := make([]string, 0, len(v))
	for _, p := range v {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
