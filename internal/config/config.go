package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourusername/teamquiz-api/internal/service/review"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Review    ReviewConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	WebSocket WebSocketConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// LogLevel: silent, error, warn, info. По умолчанию warn.
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Адрес для режима 'single', если Addrs пустой.
	// Пустые Addr и Addrs отключают Redis: кеш, идемпотентность и кластер WebSocket не работают.
	Addr string `mapstructure:"addr"`

	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`

	// QuestionCacheTTL - время жизни списка вопросов банка в Redis
	QuestionCacheTTL time.Duration `mapstructure:"question_cache_ttl"`
	// LocalCacheSize - размер LRU процесса для списков вопросов (0 отключает)
	LocalCacheSize int `mapstructure:"local_cache_size"`
	// LocalCacheTTL - время жизни записи в LRU процесса
	LocalCacheTTL time.Duration `mapstructure:"local_cache_ttl"`
}

// Enabled сообщает, задан ли адрес Redis
func (r *RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expiration_hrs"`
}

// ReviewConfig содержит константы интервального повторения
type ReviewConfig struct {
	InitialEaseFactor float64       `mapstructure:"initial_ease_factor"`
	MinEaseFactor     float64       `mapstructure:"min_ease_factor"`
	EaseBonus         float64       `mapstructure:"ease_bonus"`
	MasteryStreak     int           `mapstructure:"mastery_streak"`
	FirstInterval     int           `mapstructure:"first_interval"`
	SecondInterval    int           `mapstructure:"second_interval"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
}

// SchedulerConfig преобразует настройки в конфигурацию планировщика
func (r *ReviewConfig) SchedulerConfig() *review.Config {
	return &review.Config{
		InitialEaseFactor: r.InitialEaseFactor,
		MinEaseFactor:     r.MinEaseFactor,
		EaseBonus:         r.EaseBonus,
		MasteryStreak:     r.MasteryStreak,
		FirstInterval:     r.FirstInterval,
		SecondInterval:    r.SecondInterval,
	}
}

// RateLimitConfig содержит лимиты запросов
type RateLimitConfig struct {
	LoginMax     int           `mapstructure:"login_max"`
	LoginWindow  time.Duration `mapstructure:"login_window"`
	AnswerMax    int           `mapstructure:"answer_max"`
	AnswerWindow time.Duration `mapstructure:"answer_window"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	Cluster ClusterConfig
}

// ClusterConfig содержит настройки рассылки событий между экземплярами через Redis Pub/Sub
type ClusterConfig struct {
	Enabled    bool
	InstanceID string `mapstructure:"instance_id"`
	Channel    string
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func setDefaults(vip *viper.Viper) {
	defaults := review.DefaultConfig()

	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 30)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.log_level", "warn")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.question_cache_ttl", "10m")
	vip.SetDefault("redis.local_cache_size", 128)
	vip.SetDefault("redis.local_cache_ttl", "30s")

	vip.SetDefault("jwt.expiration_hrs", 168)

	vip.SetDefault("review.initial_ease_factor", defaults.InitialEaseFactor)
	vip.SetDefault("review.min_ease_factor", defaults.MinEaseFactor)
	vip.SetDefault("review.ease_bonus", defaults.EaseBonus)
	vip.SetDefault("review.mastery_streak", defaults.MasteryStreak)
	vip.SetDefault("review.first_interval", defaults.FirstInterval)
	vip.SetDefault("review.second_interval", defaults.SecondInterval)
	vip.SetDefault("review.idempotency_ttl", "24h")

	vip.SetDefault("rate_limit.login_max", 5)
	vip.SetDefault("rate_limit.login_window", "1m")
	vip.SetDefault("rate_limit.answer_max", 120)
	vip.SetDefault("rate_limit.answer_window", "1m")

	vip.SetDefault("websocket.cluster.channel", "teamquiz:events")
}

// Load загружает конфигурацию из файла, переменных окружения и .env
func Load(configPath string) (*Config, error) {
	// .env не обязателен: в контейнере переменные задаются окружением
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния
	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")
	vip.BindEnv("redis.question_cache_ttl", "REDIS_QUESTION_CACHE_TTL")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expiration_hrs", "JWT_EXPIRATION_HRS")

	vip.BindEnv("review.idempotency_ttl", "REVIEW_IDEMPOTENCY_TTL")

	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("websocket.cluster.enabled", "WEBSOCKET_CLUSTER_ENABLED")
	vip.BindEnv("websocket.cluster.instance_id", "WEBSOCKET_CLUSTER_INSTANCE_ID")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл не обязателен, т.к. есть BindEnv
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Enabled: %t (mode: %s)", cfg.Redis.Enabled(), cfg.Redis.Mode)
		log.Printf("JWT Expiration Hours: %d", cfg.JWT.ExpirationHrs)
		log.Printf("Review: mastery streak %d, intervals %d/%d", cfg.Review.MasteryStreak, cfg.Review.FirstInterval, cfg.Review.SecondInterval)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Websocket Cluster Enabled: %t", cfg.WebSocket.Cluster.Enabled)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if err := c.Review.SchedulerConfig().Validate(); err != nil {
		return fmt.Errorf("invalid review config: %w", err)
	}
	if c.WebSocket.Cluster.Enabled && !c.Redis.Enabled() {
		return fmt.Errorf("websocket cluster mode requires redis")
	}
	return nil
}
