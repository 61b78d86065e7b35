// Пакет server — HTTP-сервер civicwatch с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/civicwatch/civicwatch/internal/api/errors"
	"github.com/civicwatch/civicwatch/internal/api/handlers"
	"github.com/civicwatch/civicwatch/internal/api/middleware"
	"github.com/civicwatch/civicwatch/internal/api/openapi"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
)

// Server — HTTP-сервер civicwatch.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, spec *openapi.Spec, jwtAuth *middleware.JWTAuth) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, handler, spec, jwtAuth),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты API.
// Health и metrics проверяются Kubernetes напрямую, без JWT.
// /api/v1 делится на три группы: публичное чтение, аутентифицированные
// пользователи и администраторы.
func NewRouter(logger *slog.Logger, h *handlers.APIHandler, spec *openapi.Spec, jwtAuth *middleware.JWTAuth) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.CodeValidationError, "Метод не поддерживается")
	})

	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api/v1", func(api chi.Router) {
		api.Use(spec.Validator(logger))
		api.Get("/openapi.json", spec.ServeHTTP)

		// Публичное чтение
		api.Group(func(r chi.Router) {
			r.Get("/panels", h.ListPanels)
			r.Get("/panels/{id}", h.GetPanel)
			r.Get("/rewards", h.ListRewards)
			r.Get("/mel/properties", h.ListMelProperties)
			r.Get("/mel/properties/{lat}/{lon}", h.GetMelProperty)
			r.Get("/mel/signs", h.ListMelSigns)
			r.Get("/mel/signs/{id}", h.GetMelSign)
			r.Get("/mel/sign-types", h.ListMelSignTypes)
		})

		// Любой аутентифицированный пользователь
		api.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware())

			r.Post("/panels/{id}/checks", h.SubmitCheck)
			r.Get("/checks/my-pending", h.ListMyPendingChecks)
			r.Get("/me/points", h.GetMyPoints)
			r.Get("/me/transactions", h.ListMyTransactions)
			r.Get("/me/claims", h.ListMyClaims)
			r.Post("/rewards/{id}/claim", h.ClaimReward)
			r.Post("/mel/reports", h.CreateMelReport)
			r.Get("/mel/reports/my", h.ListMyMelReports)

			// Только admin
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(rbac.RoleAdmin))

				r.Get("/checks/pending", h.ListPendingChecks)
				r.Patch("/checks/{id}/validate", h.ValidateCheck)

				r.Post("/panels", h.CreatePanel)
				r.Patch("/panels/{id}", h.UpdatePanel)
				r.Delete("/panels/{id}", h.DeletePanel)

				r.Post("/mel/properties", h.CreateMelProperty)
				r.Patch("/mel/properties/{lat}/{lon}", h.UpdateMelProperty)
				r.Delete("/mel/properties/{lat}/{lon}", h.DeleteMelProperty)
				r.Post("/mel/signs", h.CreateMelSign)
				r.Patch("/mel/signs/{id}", h.UpdateMelSign)
				r.Delete("/mel/signs/{id}", h.DeleteMelSign)
				r.Post("/mel/sign-types", h.CreateMelSignType)
				r.Delete("/mel/sign-types/{signType}", h.DeleteMelSignType)
				r.Get("/mel/reports", h.ListMelReports)

				r.Get("/users/role-overrides", h.ListRoleOverrides)
				r.Put("/users/{id}/role-override", h.SetRoleOverride)
				r.Delete("/users/{id}/role-override", h.DeleteRoleOverride)
			})
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
