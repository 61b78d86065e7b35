// Точка входа civicwatch — сервис проверки городских панелей.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт сервисный слой и API handlers, запускает мониторинг зависимостей
// (topologymetrics) и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/civicwatch/civicwatch/internal/api/handlers"
	"github.com/civicwatch/civicwatch/internal/api/middleware"
	"github.com/civicwatch/civicwatch/internal/api/openapi"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/database"
	"github.com/civicwatch/civicwatch/internal/repository"
	"github.com/civicwatch/civicwatch/internal/server"
	"github.com/civicwatch/civicwatch/internal/service"
)

// jwksReadinessTimeout — таймаут проверки JWKS endpoint в /health/ready.
const jwksReadinessTimeout = 5 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("civicwatch запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("CW_DEPHEALTH_GROUP") == "" {
		logger.Warn("CW_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories и транзакции
	repos := repository.NewRepositories(pool)
	txRunner := repository.NewTxRunner(pool)
	panelCache := service.NewPanelCache(cfg.PanelCacheSize, cfg.PanelCacheTTL)

	// 6. Services
	panelSvc := service.NewPanelService(repos, txRunner, panelCache, logger)
	checkSvc := service.NewCheckService(repos, txRunner, panelCache, logger)
	ledgerSvc := service.NewLedgerService(repos, txRunner, logger)
	rewardSvc := service.NewRewardService(repos, txRunner, logger)
	melSvc := service.NewMelService(repos, txRunner, logger)
	roleSvc := service.NewRoleOverrideService(repos.RoleOverrides, logger)

	// 7. JWT middleware: JWKS IdP (RS256) или общий секрет (HS256)
	authOpts := middleware.AuthOptions{
		Issuer:       cfg.JWTIssuer,
		RoleProvider: roleSvc,
		AdminGroups:  cfg.RoleAdminGroups,
		UserGroups:   cfg.RoleUserGroups,
		Leeway:       cfg.JWTLeeway,
	}
	var (
		jwtAuth     *middleware.JWTAuth
		jwksChecker handlers.ReadinessChecker
	)
	if cfg.JWTJWKSURL != "" {
		jwtAuth, err = middleware.NewJWTAuthJWKS(cfg.JWTJWKSURL, cfg.JWKSRefreshInterval, authOpts, logger)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jwksChecker = middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, jwksReadinessTimeout)
		logger.Info("JWT middleware инициализирован (JWKS)",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		jwtAuth = middleware.NewJWTAuthHS256(cfg.JWTSecret, authOpts, logger)
		logger.Info("JWT middleware инициализирован (HS256)",
			slog.String("issuer", cfg.JWTIssuer),
		)
	}

	// 8. OpenAPI контракт и валидация запросов
	spec, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Health и API handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), jwksChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, handlers.Services{
		Panels:        panelSvc,
		Checks:        checkSvc,
		Ledger:        ledgerSvc,
		Rewards:       rewardSvc,
		Mel:           melSvc,
		RoleOverrides: roleSvc,
	}, logger)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + JWKS)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "civicwatch",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PgConnURL:     cfg.DatabaseURL(),
		JWKSURL:       cfg.JWTJWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, spec, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("civicwatch остановлен")
}
