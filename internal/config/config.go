// Пакет config — загрузка и валидация конфигурации civicwatch
// из переменных окружения.
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
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальное количество соединений в пуле
	DBMaxConns int
	// Минимальное количество открытых соединений
	DBMinConns int
	// Время жизни соединения до переоткрытия
	DBMaxConnLifetime time.Duration
	// Простой соединения до закрытия
	DBMaxConnIdleTime time.Duration
	// Таймаут установки соединения и начального ping
	DBConnectTimeout time.Duration

	// --- JWT ---

	// Общий секрет HS256. Используется, если JWTJWKSURL не задан.
	JWTSecret string
	// URL JWKS endpoint (RS256). Имеет приоритет над JWTSecret.
	JWTJWKSURL string
	// Ожидаемый issuer (опционально)
	JWTIssuer string
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// --- Маппинг групп → ролей (Keycloak-совместимые токены) ---

	RoleAdminGroups []string
	RoleUserGroups  []string

	// --- Кэш панелей ---

	// Максимальное количество панелей в LRU-кэше
	PanelCacheSize int
	// TTL записи кэша
	PanelCacheTTL time.Duration

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CW_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("CW_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("CW_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CW_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CW_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("CW_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CW_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("CW_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("CW_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CW_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("CW_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("CW_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("CW_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("CW_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CW_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	cfg.DBMaxConns, err = getEnvInt("CW_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("CW_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return nil, fmt.Errorf("CW_DB_MAX_CONNS: значение %d вне допустимого диапазона 1-200", cfg.DBMaxConns)
	}

	cfg.DBMinConns, err = getEnvInt("CW_DB_MIN_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("CW_DB_MIN_CONNS: %w", err)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("CW_DB_MIN_CONNS: значение %d вне допустимого диапазона 0-%d", cfg.DBMinConns, cfg.DBMaxConns)
	}

	cfg.DBMaxConnLifetime, err = getEnvDuration("CW_DB_MAX_CONN_LIFETIME", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CW_DB_MAX_CONN_LIFETIME: %w", err)
	}

	cfg.DBMaxConnIdleTime, err = getEnvDuration("CW_DB_MAX_CONN_IDLE_TIME", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CW_DB_MAX_CONN_IDLE_TIME: %w", err)
	}

	cfg.DBConnectTimeout, err = getEnvDuration("CW_DB_CONNECT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CW_DB_CONNECT_TIMEOUT: %w", err)
	}

	// --- JWT ---

	// Один из двух режимов обязателен: JWKS (RS256) или общий секрет (HS256)
	cfg.JWTJWKSURL = getEnvDefault("CW_JWT_JWKS_URL", "")
	cfg.JWTSecret = getEnvDefault("CW_JWT_SECRET", "")
	if cfg.JWTJWKSURL == "" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("CW_JWT_SECRET или CW_JWT_JWKS_URL: одна из переменных должна быть задана")
	}
	if cfg.JWTJWKSURL == "" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("CW_JWT_SECRET: длина секрета должна быть не менее 32 символов")
	}

	cfg.JWTIssuer = getEnvDefault("CW_JWT_ISSUER", "")

	cfg.JWTLeeway, err = getEnvDuration("CW_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CW_JWT_LEEWAY: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("CW_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CW_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Маппинг групп → ролей ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("CW_ROLE_ADMIN_GROUPS", "civicwatch-admins"))
	cfg.RoleUserGroups = parseCSV(getEnvDefault("CW_ROLE_USER_GROUPS", "civicwatch-users"))

	// --- Кэш панелей ---

	cfg.PanelCacheSize, err = getEnvInt("CW_PANEL_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("CW_PANEL_CACHE_SIZE: %w", err)
	}
	if cfg.PanelCacheSize < 1 {
		return nil, fmt.Errorf("CW_PANEL_CACHE_SIZE: значение %d должно быть положительным", cfg.PanelCacheSize)
	}

	cfg.PanelCacheTTL, err = getEnvDuration("CW_PANEL_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CW_PANEL_CACHE_TTL: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("CW_DEPHEALTH_GROUP", "civicwatch")

	cfg.DephealthCheckInterval, err = getEnvDuration("CW_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CW_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CW_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CW_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL (формат key=value для pgxpool).
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode, c.DBMaxConns,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля — для лейблов topologymetrics.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
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
