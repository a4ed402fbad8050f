// Пакет config — загрузка и валидация конфигурации File Metadata Service
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/file-metadata/internal/storage/placement"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды индекса метаданных (FM_INDEX_BACKEND).
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Директория по умолчанию для загрузок без saveToPath.
	// Абсолютный путь с завершающим разделителем.
	DefaultRoot string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64

	// Бэкенд индекса: memory, badger, postgres
	IndexBackend string
	// Директория базы Badger (только badger)
	BadgerDir string

	// Параметры PostgreSQL (только postgres)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Размеры пула pgxpool и время жизни соединения
	DBMaxConns        int
	DBMinConns        int
	DBConnMaxLifetime time.Duration

	// Размер LRU-кэша записей (0 — кэш выключен)
	CacheSize int
	// Время жизни записи в кэше
	CacheTTL time.Duration

	// Интервал автоматической сверки
	ReconcileInterval time.Duration

	// Имя вершины графа в topologymetrics
	ServiceID string
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Путь к TLS сертификату и ключу. TLS включается, если заданы оба.
	TLSCert string
	TLSKey  string

	// Таймауты HTTP-сервера
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// FM_PORT — порт HTTP-сервера (по умолчанию 8030)
	port, err := getEnvInt("FM_PORT", 8030)
	if err != nil {
		return nil, fmt.Errorf("FM_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("FM_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FM_DEFAULT_ROOT — обязательный
	root, err := getEnvRequired("FM_DEFAULT_ROOT")
	if err != nil {
		return nil, err
	}
	cfg.DefaultRoot, err = normalizeRoot(root)
	if err != nil {
		return nil, fmt.Errorf("FM_DEFAULT_ROOT: %w", err)
	}

	// FM_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	maxFileSize, err := getEnvInt64("FM_MAX_FILE_SIZE", 104857600)
	if err != nil {
		return nil, fmt.Errorf("FM_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("FM_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// FM_INDEX_BACKEND — бэкенд индекса (по умолчанию memory)
	cfg.IndexBackend = getEnvDefault("FM_INDEX_BACKEND", BackendMemory)
	switch cfg.IndexBackend {
	case BackendMemory:
	case BackendBadger:
		cfg.BadgerDir, err = getEnvRequired("FM_BADGER_DIR")
		if err != nil {
			return nil, err
		}
	case BackendPostgres:
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("FM_INDEX_BACKEND: недопустимое значение %q, допустимые: memory, badger, postgres",
			cfg.IndexBackend)
	}

	// FM_CACHE_SIZE — размер кэша записей (по умолчанию 1000, 0 — выключен)
	cfg.CacheSize, err = getEnvInt("FM_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("FM_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("FM_CACHE_SIZE: значение не может быть отрицательным")
	}

	// FM_CACHE_TTL — время жизни записи в кэше (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("FM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FM_CACHE_TTL: %w", err)
	}

	// FM_RECONCILE_INTERVAL — интервал сверки (по умолчанию 6h)
	cfg.ReconcileInterval, err = getEnvDuration("FM_RECONCILE_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FM_RECONCILE_INTERVAL: %w", err)
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("FM_RECONCILE_INTERVAL: значение должно быть положительным")
	}

	cfg.ServiceID = getEnvDefault("FM_SERVICE_ID", "file-metadata")
	cfg.DephealthGroup = getEnvDefault("FM_DEPHEALTH_GROUP", "file-metadata")

	// FM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("FM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// FM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FM_LOG_LEVEL: %w", err)
	}

	// FM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FM_TLS_CERT / FM_TLS_KEY — задаются вместе или не задаются
	cfg.TLSCert = getEnvDefault("FM_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("FM_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("FM_TLS_CERT и FM_TLS_KEY должны задаваться вместе")
	}

	if cfg.ReadTimeout, err = getEnvDuration("FM_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("FM_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.WriteTimeout, err = getEnvDuration("FM_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("FM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = getEnvDuration("FM_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("FM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// FM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase читает параметры PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	if cfg.DBHost, err = getEnvRequired("FM_DB_HOST"); err != nil {
		return err
	}
	if cfg.DBPort, err = getEnvInt("FM_DB_PORT", 5432); err != nil {
		return fmt.Errorf("FM_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("FM_DB_NAME"); err != nil {
		return err
	}
	if cfg.DBUser, err = getEnvRequired("FM_DB_USER"); err != nil {
		return err
	}
	if cfg.DBPassword, err = getEnvRequired("FM_DB_PASSWORD"); err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("FM_DB_SSL_MODE", "disable")
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[cfg.DBSSLMode] {
		return fmt.Errorf("FM_DB_SSL_MODE: недопустимое значение %q", cfg.DBSSLMode)
	}

	// FM_DB_MAX_CONNS / FM_DB_MIN_CONNS — размеры пула (по умолчанию 10 и 1)
	if cfg.DBMaxConns, err = getEnvInt("FM_DB_MAX_CONNS", 10); err != nil {
		return fmt.Errorf("FM_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMinConns, err = getEnvInt("FM_DB_MIN_CONNS", 1); err != nil {
		return fmt.Errorf("FM_DB_MIN_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return fmt.Errorf("FM_DB_MAX_CONNS: значение должно быть положительным")
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("FM_DB_MIN_CONNS: значение %d вне диапазона 0-%d", cfg.DBMinConns, cfg.DBMaxConns)
	}

	// FM_DB_CONN_MAX_LIFETIME — время жизни соединения (по умолчанию 30m)
	if cfg.DBConnMaxLifetime, err = getEnvDuration("FM_DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return fmt.Errorf("FM_DB_CONN_MAX_LIFETIME: %w", err)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// MigrationURL возвращает URL для golang-migrate (драйвер pgx5).
// Логин и пароль экранируются.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf(
		"pgx5://%s@%s:%d/%s?sslmode=%s",
		url.UserPassword(c.DBUser, c.DBPassword).String(),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для меток метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// TLSEnabled сообщает, нужно ли поднимать HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
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

// normalizeRoot приводит директорию к абсолютному пути с разделителем в конце.
func normalizeRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("некорректный путь %q: %w", dir, err)
	}
	return placement.NormalizeDir(abs), nil
}

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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 6h)", val)
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
