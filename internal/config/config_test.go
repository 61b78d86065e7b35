package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"CW_DB_HOST":     "localhost",
		"CW_DB_NAME":     "civicwatch",
		"CW_DB_USER":     "civicwatch",
		"CW_DB_PASSWORD": "secret",
		"CW_JWT_SECRET":  "0123456789abcdef0123456789abcdef",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if cfg.DBMaxConns != 10 {
		t.Errorf("DBMaxConns = %d, ожидается 10", cfg.DBMaxConns)
	}
	if cfg.DBMinConns != 0 {
		t.Errorf("DBMinConns = %d, ожидается 0", cfg.DBMinConns)
	}
	if cfg.DBMaxConnLifetime != time.Hour {
		t.Errorf("DBMaxConnLifetime = %v, ожидается 1h", cfg.DBMaxConnLifetime)
	}
	if cfg.DBMaxConnIdleTime != 30*time.Minute {
		t.Errorf("DBMaxConnIdleTime = %v, ожидается 30m", cfg.DBMaxConnIdleTime)
	}
	if cfg.DBConnectTimeout != 5*time.Second {
		t.Errorf("DBConnectTimeout = %v, ожидается 5s", cfg.DBConnectTimeout)
	}
	if cfg.JWTLeeway != 5*time.Second {
		t.Errorf("JWTLeeway = %v, ожидается 5s", cfg.JWTLeeway)
	}
	if cfg.PanelCacheSize != 1000 {
		t.Errorf("PanelCacheSize = %d, ожидается 1000", cfg.PanelCacheSize)
	}
	if cfg.PanelCacheTTL != time.Minute {
		t.Errorf("PanelCacheTTL = %v, ожидается 1m", cfg.PanelCacheTTL)
	}
	if cfg.DephealthGroup != "civicwatch" {
		t.Errorf("DephealthGroup = %q, ожидается civicwatch", cfg.DephealthGroup)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
	if len(cfg.RoleAdminGroups) != 1 || cfg.RoleAdminGroups[0] != "civicwatch-admins" {
		t.Errorf("RoleAdminGroups = %v, ожидается [civicwatch-admins]", cfg.RoleAdminGroups)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["CW_PORT"] = "9090"
	envs["CW_LOG_LEVEL"] = "debug"
	envs["CW_LOG_FORMAT"] = "text"
	envs["CW_DB_PORT"] = "5433"
	envs["CW_DB_SSL_MODE"] = "require"
	envs["CW_ROLE_ADMIN_GROUPS"] = "admins, city-staff"
	envs["CW_PANEL_CACHE_TTL"] = "30s"
	envs["CW_SHUTDOWN_TIMEOUT"] = "10s"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидается 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.DBPort != 5433 {
		t.Errorf("DBPort = %d, ожидается 5433", cfg.DBPort)
	}
	if cfg.DBSSLMode != "require" {
		t.Errorf("DBSSLMode = %q, ожидается require", cfg.DBSSLMode)
	}
	if len(cfg.RoleAdminGroups) != 2 || cfg.RoleAdminGroups[1] != "city-staff" {
		t.Errorf("RoleAdminGroups = %v, ожидается [admins city-staff]", cfg.RoleAdminGroups)
	}
	if cfg.PanelCacheTTL != 30*time.Second {
		t.Errorf("PanelCacheTTL = %v, ожидается 30s", cfg.PanelCacheTTL)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_JWKSModeWithoutSecret(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "CW_JWT_SECRET")
	envs["CW_JWT_JWKS_URL"] = "https://idp.example.com/certs"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.JWTJWKSURL != "https://idp.example.com/certs" {
		t.Errorf("JWTJWKSURL = %q", cfg.JWTJWKSURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantSub string
	}{
		{
			name:    "нет CW_DB_HOST",
			mutate:  func(e map[string]string) { delete(e, "CW_DB_HOST") },
			wantSub: "CW_DB_HOST",
		},
		{
			name:    "нет CW_DB_PASSWORD",
			mutate:  func(e map[string]string) { delete(e, "CW_DB_PASSWORD") },
			wantSub: "CW_DB_PASSWORD",
		},
		{
			name:    "нет ни секрета, ни JWKS",
			mutate:  func(e map[string]string) { delete(e, "CW_JWT_SECRET") },
			wantSub: "CW_JWT_SECRET",
		},
		{
			name:    "короткий секрет",
			mutate:  func(e map[string]string) { e["CW_JWT_SECRET"] = "short" },
			wantSub: "32",
		},
		{
			name:    "некорректный порт",
			mutate:  func(e map[string]string) { e["CW_PORT"] = "abc" },
			wantSub: "CW_PORT",
		},
		{
			name:    "порт вне диапазона",
			mutate:  func(e map[string]string) { e["CW_PORT"] = "70000" },
			wantSub: "CW_PORT",
		},
		{
			name:    "неизвестный уровень логов",
			mutate:  func(e map[string]string) { e["CW_LOG_LEVEL"] = "trace" },
			wantSub: "CW_LOG_LEVEL",
		},
		{
			name:    "неизвестный формат логов",
			mutate:  func(e map[string]string) { e["CW_LOG_FORMAT"] = "xml" },
			wantSub: "CW_LOG_FORMAT",
		},
		{
			name:    "неизвестный SSL mode",
			mutate:  func(e map[string]string) { e["CW_DB_SSL_MODE"] = "prefer" },
			wantSub: "CW_DB_SSL_MODE",
		},
		{
			name:    "некорректная длительность",
			mutate:  func(e map[string]string) { e["CW_PANEL_CACHE_TTL"] = "minute" },
			wantSub: "CW_PANEL_CACHE_TTL",
		},
		{
			name:    "нулевой размер кэша",
			mutate:  func(e map[string]string) { e["CW_PANEL_CACHE_SIZE"] = "0" },
			wantSub: "CW_PANEL_CACHE_SIZE",
		},
		{
			name:    "слишком большой пул",
			mutate:  func(e map[string]string) { e["CW_DB_MAX_CONNS"] = "500" },
			wantSub: "CW_DB_MAX_CONNS",
		},
		{
			name: "минимум пула больше максимума",
			mutate: func(e map[string]string) {
				e["CW_DB_MAX_CONNS"] = "5"
				e["CW_DB_MIN_CONNS"] = "6"
			},
			wantSub: "CW_DB_MIN_CONNS",
		},
		{
			name:    "некорректный таймаут подключения",
			mutate:  func(e map[string]string) { e["CW_DB_CONNECT_TIMEOUT"] = "soon" },
			wantSub: "CW_DB_CONNECT_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			tt.mutate(envs)
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() должен вернуть ошибку")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("ошибка %q не содержит %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5432, DBName: "cw", DBUser: "u", DBPassword: "p",
		DBSSLMode: "disable", DBMaxConns: 7,
	}
	want := "host=db port=5432 dbname=cw user=u password=p sslmode=disable pool_max_conns=7"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", got, want)
	}
	if got := cfg.DatabaseURL(); strings.Contains(got, "p@") || !strings.HasPrefix(got, "postgres://u@db:5432/cw") {
		t.Errorf("DatabaseURL() = %q", got)
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},
		{"a, b ,c", 3},
		{" , ,a,, ", 1},
	}
	for _, tt := range tests {
		if got := parseCSV(tt.input); len(got) != tt.want {
			t.Errorf("parseCSV(%q) = %v, ожидается %d элементов", tt.input, got, tt.want)
		}
	}
}
