// Package config reads the service configuration from environment variables.
package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
)

// Config is the full environment-driven configuration surface.
type Config struct {
	ListenAddr string
	LogLevel   string
	APIKey     string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	RabbitHost         string
	RabbitUser         string
	RabbitPass         string
	RabbitConsumeQueue string
	RabbitPublishQueue string

	RunSyncAtStartup bool

	ModelURL string

	MatchThreshold float64
	MatchTopK      int

	// Snapshot storage. Backend is one of local, minio, s3.
	SnapshotBackend     string
	SnapshotName        string
	SnapshotCompression string
	SnapshotDir         string // local backend
	SnapshotBucket      string // minio and s3 backends
	SnapshotPrefix      string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    bool

	AWSRegion string
}

// FromEnv builds the configuration from the environment, applying defaults
// for anything unset.
func FromEnv() Config {
	return Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		APIKey:     getEnv("API_KEY", "super_secret_face_recognition_api_key"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5433"),
		DBName: getEnv("DB_NAME", "fbi"),
		DBUser: getEnv("DB_USER", "keycloak"),
		DBPass: getEnv("DB_PASS", "keycloak"),

		RabbitHost:         getEnv("RABBIT_HOST", "localhost"),
		RabbitUser:         getEnv("RABBIT_USER", "guest"),
		RabbitPass:         getEnv("RABBIT_PASS", "guest"),
		RabbitConsumeQueue: getEnv("RABBIT_QUEUE", "face-analysis-queue"),
		RabbitPublishQueue: getEnv("RABBIT_QUEUE_PUBLISH", "analysis-finished-queue"),

		RunSyncAtStartup: getEnvBool("RUN_SYNC_AT_STARTUP", false),

		ModelURL: getEnv("MODEL_URL", "http://localhost:9100/embed"),

		MatchThreshold: getEnvFloat("MATCH_THRESHOLD", 0.40),
		MatchTopK:      getEnvInt("MATCH_TOP_K", 5),

		SnapshotBackend:     getEnv("SNAPSHOT_BACKEND", "local"),
		SnapshotName:        getEnv("SNAPSHOT_NAME", "fbi_vectors"),
		SnapshotCompression: getEnv("SNAPSHOT_COMPRESSION", "zstd"),
		SnapshotDir:         getEnv("SNAPSHOT_DIR", "."),
		SnapshotBucket:      getEnv("SNAPSHOT_BUCKET", ""),
		SnapshotPrefix:      getEnv("SNAPSHOT_PREFIX", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioSecure:    getEnvBool("MINIO_SECURE", false),

		AWSRegion: getEnv("AWS_REGION", ""),
	}
}

// DatabaseURL returns the pgx connection URL.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPass),
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   c.DBName,
	}
	return u.String()
}

// AMQPURL returns the broker URL.
func (c Config) AMQPURL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.RabbitUser, c.RabbitPass),
		Host:   net.JoinHostPort(c.RabbitHost, "5672"),
		Path:   "/",
	}
	return u.String()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
