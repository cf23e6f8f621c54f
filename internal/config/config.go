// Пакет config — загрузка и валидация конфигурации DMS
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/godms/internal/objstore"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации DMS.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- База данных PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Пользователь БД
	DBUser string
	// Пароль пользователя БД
	DBPassword string
	// Режим SSL (disable, require, verify-ca, verify-full)
	DBSSLMode string

	// --- Объектное хранилище ---

	// Тип хранилища (minio, memory)
	StorageType string
	// Адрес MinIO (host:port)
	MinIOEndpoint string
	// Ключ доступа MinIO
	MinIOAccessKey string
	// Секретный ключ MinIO
	MinIOSecretKey string
	// Бакет для блобов документов
	MinIOBucket string
	// TLS при обращении к MinIO
	MinIOUseSSL bool

	// --- Аутентификация ---

	// Секрет подписи JWT (HS256), минимум 32 символа
	JWTSecret string
	// Имя bootstrap-администратора
	AdminUsername string
	// Пароль bootstrap-администратора
	AdminPassword string

	// --- Кэш путей классификации ---

	// Максимальное число записей в кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Dephealth ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DMS_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("DMS_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("DMS_PORT: %w", err)
	}

	// DMS_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("DMS_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("DMS_LOG_LEVEL: %w", err)
	}

	// DMS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DMS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DMS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	// DMS_HTTP_READ_TIMEOUT — таймаут чтения (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("DMS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DMS_HTTP_READ_TIMEOUT: %w", err)
	}

	// DMS_HTTP_WRITE_TIMEOUT — таймаут записи (по умолчанию 60s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("DMS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DMS_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// DMS_HTTP_IDLE_TIMEOUT — таймаут простоя (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("DMS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DMS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	// DMS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("DMS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DMS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- База данных PostgreSQL ---

	// DMS_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("DMS_DB_HOST")
	if err != nil {
		return nil, err
	}

	// DMS_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("DMS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DMS_DB_PORT: %w", err)
	}

	// DMS_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("DMS_DB_NAME")
	if err != nil {
		return nil, err
	}

	// DMS_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("DMS_DB_USER")
	if err != nil {
		return nil, err
	}

	// DMS_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("DMS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// DMS_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("DMS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("DMS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Объектное хранилище ---

	// DMS_STORAGE_TYPE — тип хранилища (по умолчанию minio)
	cfg.StorageType = getEnvDefault("DMS_STORAGE_TYPE", "minio")
	if cfg.StorageType != "minio" && cfg.StorageType != "memory" {
		return nil, fmt.Errorf("DMS_STORAGE_TYPE: недопустимое значение %q, допустимые: minio, memory", cfg.StorageType)
	}

	if cfg.StorageType == "minio" {
		// DMS_MINIO_ENDPOINT — обязательный для minio
		cfg.MinIOEndpoint, err = getEnvRequired("DMS_MINIO_ENDPOINT")
		if err != nil {
			return nil, err
		}

		// DMS_MINIO_ACCESS_KEY — обязательный для minio
		cfg.MinIOAccessKey, err = getEnvRequired("DMS_MINIO_ACCESS_KEY")
		if err != nil {
			return nil, err
		}

		// DMS_MINIO_SECRET_KEY — обязательный для minio
		cfg.MinIOSecretKey, err = getEnvRequired("DMS_MINIO_SECRET_KEY")
		if err != nil {
			return nil, err
		}
	}

	// DMS_MINIO_BUCKET — бакет блобов (по умолчанию dms-documents)
	cfg.MinIOBucket = getEnvDefault("DMS_MINIO_BUCKET", "dms-documents")

	// DMS_MINIO_USE_SSL — TLS к MinIO (по умолчанию false)
	cfg.MinIOUseSSL, err = getEnvBool("DMS_MINIO_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("DMS_MINIO_USE_SSL: %w", err)
	}

	// --- Аутентификация ---

	// DMS_JWT_SECRET — обязательный, минимум 32 символа
	cfg.JWTSecret, err = getEnvRequired("DMS_JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("DMS_JWT_SECRET: длина должна быть не менее 32 символов")
	}

	// DMS_ADMIN_USERNAME — bootstrap-администратор (по умолчанию admin)
	cfg.AdminUsername = getEnvDefault("DMS_ADMIN_USERNAME", "admin")

	// DMS_ADMIN_PASSWORD — обязательный
	cfg.AdminPassword, err = getEnvRequired("DMS_ADMIN_PASSWORD")
	if err != nil {
		return nil, err
	}

	// --- Кэш путей классификации ---

	// DMS_CACHE_SIZE — максимум записей (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("DMS_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("DMS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("DMS_CACHE_SIZE: значение должно быть > 0")
	}

	// DMS_CACHE_TTL — TTL записи (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("DMS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DMS_CACHE_TTL: %w", err)
	}

	// --- Dephealth ---

	// DMS_DEPHEALTH_GROUP — имя группы (по умолчанию dms)
	cfg.DephealthGroup = getEnvDefault("DMS_DEPHEALTH_GROUP", "dms")

	// DMS_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 30s)
	cfg.DephealthCheckInterval, err = getEnvDuration("DMS_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DMS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// DEPHEALTH_ISENTRY — общий для всех сервисов флаг entry point
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
// Используется dephealth для лейблов зависимости.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// MinIOURL возвращает базовый URL MinIO endpoint.
func (c *Config) MinIOURL() string {
	scheme := "http"
	if c.MinIOUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.MinIOEndpoint)
}

// ObjstoreConfig возвращает конфигурацию объектного хранилища.
func (c *Config) ObjstoreConfig() objstore.Config {
	return objstore.Config{
		Type:      c.StorageType,
		Endpoint:  c.MinIOEndpoint,
		AccessKey: c.MinIOAccessKey,
		SecretKey: c.MinIOSecretKey,
		Bucket:    c.MinIOBucket,
		UseSSL:    c.MinIOUseSSL,
	}
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

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
