// Пакет openapi — контракт REST API civicwatch и валидация запросов по нему.
// Документ встроен в бинарник; маршрутизация в chi, здесь только проверка
// параметров и тел запросов до вызова обработчиков.
package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/civicwatch/civicwatch/internal/api/errors"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec — загруженный и проверенный OpenAPI документ.
type Spec struct {
	doc    *openapi3.T
	router routers.Router
	json   []byte
}

// Load разбирает встроенный документ и проверяет его корректность.
func Load(ctx context.Context) (*Spec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("разбор openapi.yaml: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("некорректный openapi.yaml: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("построение маршрутов openapi: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("сериализация openapi: %w", err)
	}

	return &Spec{doc: doc, router: router, json: data}, nil
}

// Document возвращает разобранный документ.
func (s *Spec) Document() *openapi3.T {
	return s.doc
}

// ServeHTTP отдаёт документ в JSON (GET /api/v1/openapi.json).
func (s *Spec) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.json)
}

// Validator возвращает middleware валидации запросов.
// Запросы к путям и методам, которых нет в контракте, пропускаются дальше:
// ответ 404/405 формирует chi. Аутентификация проверяется JWT middleware,
// поэтому security-требования документа здесь не применяются.
func (s *Spec) Validator(logger *slog.Logger) func(http.Handler) http.Handler {
	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := s.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Debug("Запрос не прошёл валидацию openapi",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validationMessage формирует короткое сообщение об ошибке валидации
// без внутренних подробностей схемы.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return "Некорректный запрос"
	}

	reason := reqErr.Reason
	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		reason = schemaErr.Reason
		if field := schemaErr.JSONPointer(); len(field) > 0 {
			reason = fmt.Sprintf("%s: %s", strings.Join(field, "."), reason)
		}
	}

	switch {
	case reqErr.Parameter != nil:
		if reason == "" {
			return fmt.Sprintf("Некорректный параметр %q", reqErr.Parameter.Name)
		}
		return fmt.Sprintf("Некорректный параметр %q: %s", reqErr.Parameter.Name, reason)
	case reqErr.RequestBody != nil:
		if reason == "" {
			return "Некорректное тело запроса"
		}
		return "Некорректное тело запроса: " + reason
	case reason != "":
		return reason
	default:
		return "Некорректный запрос"
	}
}
