package config

import (
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	// StatementTimeout caps every statement server-side. Zero leaves the
	// server default.
	StatementTimeout time.Duration
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds the group membership cache connection.
// An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	GroupTTL time.Duration
}

// MongoConfig is used when access logs are written to MongoDB.
type MongoConfig struct {
	URI      string
	Database string
}

// CoreConfig tunes the document core.
type CoreConfig struct {
	OpTimeout            time.Duration
	AuditTimeout         time.Duration
	VersionAppendRetries int
	SoftDeleteRetention  time.Duration
}

// SweeperConfig controls the purge sweeper binary.
type SweeperConfig struct {
	Schedule  string
	BatchSize int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	LogLevel      string
	StoreBackend  string
	AuditSink     string
	IdentityURL   string
	JWTSecret     string
	LinkRateRPS   float64
	LinkRateBurst int
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Redis         RedisConfig
	Mongo         MongoConfig
	Core          CoreConfig
	Sweeper       SweeperConfig
}

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	AuditSinkPostgres = "postgres"
	AuditSinkMongo    = "mongo"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_HOST", "localhost:8080")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", StoreBackendPostgres)
	v.SetDefault("AUDIT_SINK", AuditSinkPostgres)

	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SEC", 300)

	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GROUP_CACHE_TTL", "1m")

	v.SetDefault("MONGO_DATABASE", "docvault")

	v.SetDefault("OP_TIMEOUT", "30s")
	v.SetDefault("AUDIT_TIMEOUT", "2s")
	v.SetDefault("VERSION_APPEND_RETRIES", 3)
	v.SetDefault("SOFT_DELETE_RETENTION", "720h")

	v.SetDefault("LINK_RATE_RPS", 5.0)
	v.SetDefault("LINK_RATE_BURST", 10)

	v.SetDefault("SWEEP_SCHEDULE", "0 */15 * * * *")
	v.SetDefault("SWEEP_BATCH", 100)
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &AppConfig{
		AppHost:       v.GetString("APP_HOST"),
		Port:          v.GetString("PORT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		StoreBackend:  v.GetString("STORE_BACKEND"),
		AuditSink:     v.GetString("AUDIT_SINK"),
		IdentityURL:   v.GetString("IDENTITY_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		LinkRateRPS:   v.GetFloat64("LINK_RATE_RPS"),
		LinkRateBurst: v.GetInt("LINK_RATE_BURST"),
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetString("DB_PORT"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			Name:               v.GetString("DB_NAME"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetimeSec: v.GetInt("DB_CONN_MAX_LIFETIME_SEC"),
			StatementTimeout:   v.GetDuration("OP_TIMEOUT"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			GroupTTL: v.GetDuration("GROUP_CACHE_TTL"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Core: CoreConfig{
			OpTimeout:            v.GetDuration("OP_TIMEOUT"),
			AuditTimeout:         v.GetDuration("AUDIT_TIMEOUT"),
			VersionAppendRetries: v.GetInt("VERSION_APPEND_RETRIES"),
			SoftDeleteRetention:  v.GetDuration("SOFT_DELETE_RETENTION"),
		},
		Sweeper: SweeperConfig{
			Schedule:  v.GetString("SWEEP_SCHEDULE"),
			BatchSize: v.GetInt("SWEEP_BATCH"),
		},
	}
}
