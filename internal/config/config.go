// Пакет config — загрузка и валидация конфигурации WatchGraph
// из переменных окружения (префикс WG_).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "1.0.0"

// Допустимые типы хранилища evidence-файлов.
const (
	StorageTypeS3  = "s3"
	StorageTypeGCS = "gcs"
	StorageTypeFS  = "fs"
)

// Config содержит все параметры конфигурации WatchGraph.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Окружение (development, staging, production) — отдаётся в /version
	Environment string
	// Разрешённые CORS origins
	CORSAllowedOrigins []string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Размер пула подключений
	DBMaxConns int32
	DBMinConns int32
	// Максимальное время жизни соединения в пуле
	DBMaxConnLifetime time.Duration

	// --- Cognito / JWT ---

	// Регион AWS Cognito User Pool
	CognitoRegion string
	// Идентификатор User Pool
	CognitoUserPoolID string
	// App client id — ожидаемая аудитория токенов
	CognitoAppClientID string
	// Issuer токенов (по умолчанию вычисляется из региона и пула)
	JWTIssuer string
	// URL JWKS (по умолчанию {issuer}/.well-known/jwks.json)
	JWKSURL string
	// Допустимое расхождение часов при проверке exp/nbf
	JWTLeeway time.Duration
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration

	// --- Хранилище evidence ---

	// Тип хранилища: s3, gcs, fs
	StorageType string
	S3Bucket    string
	S3Region    string
	// Кастомный endpoint (MinIO, LocalStack)
	S3Endpoint string
	// Путь проверки доступности S3-совместимого endpoint для dephealth
	S3HealthPath string
	// Алгоритм server-side encryption
	S3ServerSideEncryption string
	GCSBucket              string
	// Директория локального хранилища (тип fs)
	FSDataDir string
	// Секрет подписи ссылок локального хранилища
	FSSigningSecret string
	// Публичный базовый URL сервиса (для ссылок fs)
	PublicBaseURL string

	// --- Кэш каталога ---

	CatalogCacheSize int
	CatalogCacheTTL  time.Duration

	// --- Topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// WG_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("WG_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("WG_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("WG_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("WG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("WG_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("WG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("WG_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.Environment = getEnvDefault("WG_ENVIRONMENT", "development")
	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("WG_CORS_ALLOWED_ORIGINS", "*"))

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("WG_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("WG_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("WG_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("WG_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("WG_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("WG_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("WG_DB_SSL_MODE", "disable")

	maxConns, err := getEnvInt("WG_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("WG_DB_MAX_CONNS: %w", err)
	}
	minConns, err := getEnvInt("WG_DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("WG_DB_MIN_CONNS: %w", err)
	}
	if maxConns < 1 || minConns < 0 || minConns > maxConns {
		return nil, fmt.Errorf("WG_DB_MAX_CONNS/WG_DB_MIN_CONNS: требуется 0 <= min <= max, max >= 1 (min=%d, max=%d)", minConns, maxConns)
	}
	cfg.DBMaxConns, cfg.DBMinConns = int32(maxConns), int32(minConns)
	cfg.DBMaxConnLifetime, err = getEnvDurationPositive("WG_DB_MAX_CONN_LIFETIME", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("WG_DB_MAX_CONN_LIFETIME: %w", err)
	}

	// --- Cognito / JWT ---

	cfg.CognitoRegion = getEnvDefault("WG_COGNITO_REGION", "us-east-2")
	if cfg.CognitoUserPoolID, err = getEnvRequired("WG_COGNITO_USER_POOL_ID"); err != nil {
		return nil, err
	}
	if cfg.CognitoAppClientID, err = getEnvRequired("WG_COGNITO_APP_CLIENT_ID"); err != nil {
		return nil, err
	}

	// Cognito: issuer = https://cognito-idp.{region}.amazonaws.com/{pool}
	cfg.JWTIssuer = getEnvDefault("WG_JWT_ISSUER",
		fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.CognitoRegion, cfg.CognitoUserPoolID))
	cfg.JWKSURL = getEnvDefault("WG_JWT_JWKS_URL",
		strings.TrimRight(cfg.JWTIssuer, "/")+"/.well-known/jwks.json")

	cfg.JWTLeeway, err = getEnvDuration("WG_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("WG_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("WG_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("WG_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// --- Хранилище evidence ---

	cfg.StorageType = strings.ToLower(getEnvDefault("WG_STORAGE_TYPE", StorageTypeS3))
	cfg.S3Bucket = getEnvDefault("WG_S3_BUCKET", "watchgraph-evidence-prod")
	// WG_S3_REGION → AWS_REGION → us-east-1
	cfg.S3Region = getEnvDefault("WG_S3_REGION", getEnvDefault("AWS_REGION", "us-east-1"))
	cfg.S3Endpoint = os.Getenv("WG_S3_ENDPOINT")
	cfg.S3HealthPath = getEnvDefault("WG_S3_HEALTH_PATH", "/minio/health/live")
	cfg.S3ServerSideEncryption = getEnvDefault("WG_S3_SSE", "AES256")
	cfg.GCSBucket = os.Getenv("WG_GCS_BUCKET")
	cfg.FSDataDir = getEnvDefault("WG_FS_DATA_DIR", "data/evidence")
	cfg.FSSigningSecret = os.Getenv("WG_FS_SIGNING_SECRET")
	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("WG_PUBLIC_BASE_URL",
		fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")

	switch cfg.StorageType {
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("WG_S3_BUCKET: обязателен для хранилища s3")
		}
	case StorageTypeGCS:
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("WG_GCS_BUCKET: обязателен для хранилища gcs")
		}
	case StorageTypeFS:
		if cfg.FSSigningSecret == "" {
			return nil, fmt.Errorf("WG_FS_SIGNING_SECRET: обязателен для хранилища fs")
		}
	default:
		return nil, fmt.Errorf("WG_STORAGE_TYPE: недопустимый тип %q, допустимые: s3, gcs, fs", cfg.StorageType)
	}

	// --- Кэш каталога ---

	cfg.CatalogCacheSize, err = getEnvInt("WG_CATALOG_CACHE_SIZE", 16)
	if err != nil {
		return nil, fmt.Errorf("WG_CATALOG_CACHE_SIZE: %w", err)
	}
	if cfg.CatalogCacheSize < 1 {
		return nil, fmt.Errorf("WG_CATALOG_CACHE_SIZE: значение должно быть >= 1")
	}
	cfg.CatalogCacheTTL, err = getEnvDuration("WG_CATALOG_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("WG_CATALOG_CACHE_TTL: %w", err)
	}

	// --- Topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("WG_DEPHEALTH_GROUP", "watchgraph")
	cfg.DephealthCheckInterval, err = getEnvDuration("WG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDurationPositive("WG_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDurationPositive("WG_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDurationPositive("WG_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_HTTP_IDLE_TIMEOUT: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("WG_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WG_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL (формат key=value).
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для dephealth-лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvDurationPositive — как getEnvDuration, но значение должно быть > 0.
func getEnvDurationPositive(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбивает строку по запятым, отбрасывая пустые элементы.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
