package config

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		Issuer        string        `mapstructure:"issuer"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
	} `mapstructure:"auth"`
	Backend struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"backend"`
	Cache struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	CV struct {
		BaseURL string        `mapstructure:"base_url"`
		APIKey  string        `mapstructure:"api_key"`
		Model   string        `mapstructure:"model"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"cv"`
	Sync struct {
		// Budget for fire-and-forget remote calls started by the engine.
		BackgroundTimeout time.Duration `mapstructure:"background_timeout"`
		RetryMaxElapsed   time.Duration `mapstructure:"retry_max_elapsed"`
		RetryMaxTries     uint          `mapstructure:"retry_max_tries"`
	} `mapstructure:"sync"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
}

// LoadConfig reads .env and config.yaml from path (default ".") and lets
// environment variables override both.
func LoadConfig(path ...string) (cfg Config, err error) {
	dir := "."
	if len(path) > 0 && path[0] != "" {
		dir = path[0]
	}

	err = godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
	v.BindEnv("auth.issuer", "AUTH_ISSUER")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")
	v.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	v.BindEnv("backend.timeout", "BACKEND_TIMEOUT")
	v.BindEnv("cache.ttl", "CACHE_TTL")

	v.BindEnv("cv.base_url", "CV_BASE_URL")
	v.BindEnv("cv.api_key", "CV_API_KEY")
	v.BindEnv("cv.model", "CV_MODEL")
	v.BindEnv("cv.timeout", "CV_TIMEOUT")

	v.BindEnv("sync.background_timeout", "SYNC_BACKGROUND_TIMEOUT")
	v.BindEnv("sync.retry_max_elapsed", "SYNC_RETRY_MAX_ELAPSED")
	v.BindEnv("sync.retry_max_tries", "SYNC_RETRY_MAX_TRIES")
	v.BindEnv("jaeger.otlp_endpoint", "JAEGER_OTLP_ENDPOINT")

	err = v.Unmarshal(&cfg)
	if err != nil {
		return
	}

	// KAFKA_BROKERS arrives as one comma separated string.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("auth.token_lifespan", time.Hour)
	v.SetDefault("backend.base_url", "http://127.0.0.1:8000")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("cache.ttl", 7*24*time.Hour)
	v.SetDefault("cv.model", "gpt-4o-mini")
	v.SetDefault("cv.timeout", 45*time.Second)
	v.SetDefault("sync.background_timeout", 30*time.Second)
	v.SetDefault("sync.retry_max_elapsed", 5*time.Minute)
	v.SetDefault("sync.retry_max_tries", 8)
}
