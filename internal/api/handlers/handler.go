// handler.go — основной обработчик API civicwatch.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/civicwatch/civicwatch/internal/api/errors"
	"github.com/civicwatch/civicwatch/internal/api/middleware"
	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/service"
)

// PanelService — операции реестра панелей.
type PanelService interface {
	List(ctx context.Context, limit, offset int) ([]*model.Panel, int, error)
	Get(ctx context.Context, id string) (*model.Panel, error)
	Create(ctx context.Context, actor rbac.Subject, in service.PanelInput) (*model.Panel, error)
	Update(ctx context.Context, actor rbac.Subject, id string, patch model.PanelPatch) (*model.Panel, error)
	Delete(ctx context.Context, actor rbac.Subject, id string) error
}

// CheckService — отправка и валидация проверок.
type CheckService interface {
	Submit(ctx context.Context, actor rbac.Subject, in service.SubmitInput) (*model.CheckSubmission, error)
	ListMyPending(ctx context.Context, actor rbac.Subject) ([]*model.PendingCheck, error)
	ListPending(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.PendingCheck, int, error)
	Validate(ctx context.Context, actor rbac.Subject, checkID string) (*model.Panel, error)
}

// LedgerService — баланс и журнал баллов пользователя.
type LedgerService interface {
	Balance(ctx context.Context, actor rbac.Subject) (int64, error)
	History(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.LedgerEntry, error)
}

// RewardService — каталог вознаграждений и обмен баллов.
type RewardService interface {
	Catalog(ctx context.Context) ([]*model.Reward, error)
	Claim(ctx context.Context, actor rbac.Subject, rewardID string) (*model.RewardClaim, error)
	MyClaims(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RewardClaim, error)
}

// MelService — объекты MEL, знаки, справочник типов и отметки.
type MelService interface {
	ListProperties(ctx context.Context, limit, offset int) ([]*model.MelProperty, error)
	GetProperty(ctx context.Context, loc model.Location) (*model.MelProperty, error)
	CreateProperty(ctx context.Context, actor rbac.Subject, p *model.MelProperty) error
	UpdateProperty(ctx context.Context, actor rbac.Subject, loc model.Location, patch model.MelPropertyPatch) (*model.MelProperty, error)
	DeleteProperty(ctx context.Context, actor rbac.Subject, loc model.Location) error
	ListSigns(ctx context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error)
	CreateSign(ctx context.Context, actor rbac.Subject, sign *model.MelSign) error
	UpdateSign(ctx context.Context, actor rbac.Subject, id int64, patch model.MelSignPatch) (*model.MelSign, error)
	GetSign(ctx context.Context, id int64) (*model.MelSign, error)
	DeleteSign(ctx context.Context, actor rbac.Subject, id int64) error
	ListSignTypes(ctx context.Context) ([]*model.MelSignType, error)
	CreateSignType(ctx context.Context, actor rbac.Subject, name string) (*model.MelSignType, error)
	DeleteSignType(ctx context.Context, actor rbac.Subject, name string) error
	Report(ctx context.Context, actor rbac.Subject, loc model.Location) (*model.MelReport, error)
	ListMyReports(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error)
	ListReports(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error)
}

// RoleOverrideService — локальные дополнения ролей.
type RoleOverrideService interface {
	List(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RoleOverride, int, error)
	Set(ctx context.Context, actor rbac.Subject, userID, username, role string) (*model.RoleOverride, error)
	Delete(ctx context.Context, actor rbac.Subject, userID string) error
}

// Services — набор сервисов, которые обслуживает API.
type Services struct {
	Panels        PanelService
	Checks        CheckService
	Ledger        LedgerService
	Rewards       RewardService
	Mel           MelService
	RoleOverrides RoleOverrideService
}

// APIHandler — основной обработчик API civicwatch.
type APIHandler struct {
	health        *HealthHandler
	panels        PanelService
	checks        CheckService
	ledger        LedgerService
	rewards       RewardService
	mel           MelService
	roleOverrides RoleOverrideService
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:        health,
		panels:        svc.Panels,
		checks:        svc.Checks,
		ledger:        svc.Ledger,
		rewards:       svc.Rewards,
		mel:           svc.Mel,
		roleOverrides: svc.RoleOverrides,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// envelope — успешный ответ API.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// page — страница списка с общим количеством.
type page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Недостаточно прав для операции")
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		apierrors.InsufficientBalance(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, context.Canceled):
		// Клиент закрыл соединение, ответ уже никто не прочитает
		h.logger.Debug("Запрос отменён клиентом", slog.String("path", r.URL.Path))
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// actor возвращает субъекта запроса из JWT claims.
func actor(r *http.Request) rbac.Subject {
	return middleware.ActorFromContext(r.Context())
}

// decodeBody разбирает JSON тело запроса. При ошибке пишет 400 и возвращает false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return false
	}
	return true
}

// pathUUID связывает UUID из пути. При ошибке пишет 400 и возвращает false.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var id openapi_types.UUID
	if !bindPath(w, r, name, &id) {
		return "", false
	}
	return id.String(), true
}

// bindPath связывает параметр пути в dest по правилам стиля simple.
func bindPath(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр "+name+": "+err.Error())
		return false
	}
	return true
}

// bindQuery связывает необязательный параметр запроса (стиль form).
func bindQuery(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр "+name+": "+err.Error())
		return false
	}
	return true
}

// pagination читает limit и offset и приводит их к допустимому диапазону.
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	var l, o *int
	if !bindQuery(w, r, "limit", &l) || !bindQuery(w, r, "offset", &o) {
		return 0, 0, false
	}
	limit, offset = service.NormalizeLimit(valueOrZero(l), valueOrZero(o))
	return limit, offset, true
}

func valueOrZero[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
