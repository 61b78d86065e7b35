// auth.go — JWT middleware для аутентификации civicwatch.
// Извлекает claims из Bearer JWT, вычисляет роль (claim role, группы IdP,
// realm_access.roles), применяет role overrides из БД и помещает субъекта в контекст.
// Подпись: HS256 с общим секретом или RS256 через JWKS IdP.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/civicwatch/civicwatch/internal/api/errors"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — полные извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
)

// AuthClaims — извлечённые и обработанные claims JWT.
// Помещаются в контекст запроса для downstream handlers.
type AuthClaims struct {
	// Subject — sub из JWT.
	Subject string
	// PreferredUsername — preferred_username из JWT.
	PreferredUsername string
	// Email — email из JWT.
	Email string
	// Roles — роли из realm_access.roles.
	Roles []string
	// Groups — группы из JWT.
	Groups []string
	// TokenRole — роль, вычисленная из токена (user, admin).
	TokenRole string
	// RoleOverride — локальное дополнение роли из БД (может быть nil).
	RoleOverride *string
	// EffectiveRole — итоговая роль = max(TokenRole, RoleOverride).
	EffectiveRole string
}

// HasRole проверяет, есть ли у субъекта указанная роль (effective).
func (c *AuthClaims) HasRole(role string) bool {
	return c.EffectiveRole == role
}

// HasAnyRole проверяет, совпадает ли effective роль с одной из указанных.
func (c *AuthClaims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.EffectiveRole == r {
			return true
		}
	}
	return false
}

// Actor возвращает субъекта для проверки прав в сервисном слое.
// Отображаемое имя — preferred_username, иначе email, иначе sub.
func (c *AuthClaims) Actor() rbac.Subject {
	name := c.PreferredUsername
	if name == "" {
		name = c.Email
	}
	if name == "" {
		name = c.Subject
	}
	return rbac.Subject{ID: c.Subject, Name: name, Role: c.EffectiveRole}
}

// RoleOverrideProvider — интерфейс для получения role override из БД.
// Реализуется service.RoleOverrideService.
type RoleOverrideProvider interface {
	// GetRoleOverride возвращает дополнительную роль для пользователя.
	// Если override не найден — возвращает nil, nil.
	// username — preferred_username из токена, для актуализации записи.
	GetRoleOverride(ctx context.Context, userID, username string) (*string, error)
}

// tokenClaims — raw claims JWT для парсинга.
type tokenClaims struct {
	jwt.RegisteredClaims
	// PreferredUsername — имя пользователя.
	PreferredUsername string `json:"preferred_username"`
	// Email — электронная почта.
	Email string `json:"email"`
	// Role — роль приложения (USER, ADMIN).
	Role string `json:"role,omitempty"`
	// RealmAccess — вложенная структура для realm_access.roles.
	RealmAccess *realmAccess `json:"realm_access,omitempty"`
	// Groups — группы пользователя.
	Groups []string `json:"groups,omitempty"`
}

// realmAccess — вложенная структура realm_access в Keycloak JWT.
type realmAccess struct {
	Roles []string `json:"roles"`
}

// JWTAuth — middleware для JWT-аутентификации.
type JWTAuth struct {
	keyfunc      func(ctx context.Context) jwt.Keyfunc
	methods      []string
	logger       *slog.Logger
	roleProvider RoleOverrideProvider
	adminGroups  []string
	userGroups   []string
	issuer       string
	jwtLeeway    time.Duration
}

// AuthOptions — общие параметры JWT middleware.
type AuthOptions struct {
	// Issuer — ожидаемый issuer (пусто — не проверяется).
	Issuer string
	// RoleProvider — провайдер role overrides (может быть nil).
	RoleProvider RoleOverrideProvider
	// AdminGroups, UserGroups — группы IdP для маппинга в роли.
	AdminGroups []string
	UserGroups  []string
	// Leeway — допустимое отклонение часов (CW_JWT_LEEWAY).
	Leeway time.Duration
}

// NewJWTAuthHS256 создаёт JWT middleware с проверкой подписи общим секретом.
func NewJWTAuthHS256(secret string, opts AuthOptions, logger *slog.Logger) *JWTAuth {
	key := []byte(secret)
	kf := func(context.Context) jwt.Keyfunc {
		return func(*jwt.Token) (any, error) { return key, nil }
	}
	return newJWTAuth(kf, []string{"HS256"}, opts, logger)
}

// NewJWTAuthJWKS создаёт JWT middleware с JWKS IdP.
// jwksRefreshInterval — интервал обновления JWKS-ключей (CW_JWKS_REFRESH_INTERVAL).
func NewJWTAuthJWKS(jwksURL string, jwksRefreshInterval time.Duration, opts AuthOptions, logger *slog.Logger) (*JWTAuth, error) {
	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewJWTAuthWithKeyfunc(k, opts, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware (RS256) с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, opts AuthOptions, logger *slog.Logger) *JWTAuth {
	return newJWTAuth(kf.KeyfuncCtx, []string{"RS256"}, opts, logger)
}

func newJWTAuth(kf func(ctx context.Context) jwt.Keyfunc, methods []string, opts AuthOptions, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		keyfunc:      kf,
		methods:      methods,
		logger:       logger.With(slog.String("component", "jwt_auth")),
		roleProvider: opts.RoleProvider,
		adminGroups:  opts.AdminGroups,
		userGroups:   opts.UserGroups,
		issuer:       opts.Issuer,
		jwtLeeway:    opts.Leeway,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, валидирует подпись, извлекает claims,
// вычисляет effective role и помещает claims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем Bearer token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			rawClaims := &tokenClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods(j.methods),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.keyfunc(r.Context()), parserOpts...)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if !token.Valid {
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			subject, err := rawClaims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			authClaims := j.buildAuthClaims(r.Context(), rawClaims)

			ctx := context.WithValue(r.Context(), ContextKeyClaims, authClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// buildAuthClaims формирует AuthClaims из raw claims.
// Порядок определения роли из токена: claim role, группы IdP, realm_access.roles.
// Аутентифицированный субъект без распознанной роли — user.
func (j *JWTAuth) buildAuthClaims(ctx context.Context, raw *tokenClaims) *AuthClaims {
	claims := &AuthClaims{
		Subject:           raw.Subject,
		PreferredUsername: raw.PreferredUsername,
		Email:             raw.Email,
		Groups:            raw.Groups,
	}
	if raw.RealmAccess != nil {
		claims.Roles = raw.RealmAccess.Roles
	}

	claims.TokenRole = rbac.NormalizeRole(raw.Role)

	if claims.TokenRole == "" {
		claims.TokenRole = rbac.MapGroupsToRole(claims.Groups, j.adminGroups, j.userGroups)
	}

	if claims.TokenRole == "" && len(claims.Roles) > 0 {
		var mappedRoles []string
		for _, r := range claims.Roles {
			if role := rbac.NormalizeRole(r); role != "" {
				mappedRoles = append(mappedRoles, role)
			}
		}
		claims.TokenRole = rbac.HighestRole(mappedRoles)
	}

	if claims.TokenRole == "" {
		claims.TokenRole = rbac.RoleUser
	}

	// Применяем role override из БД
	if j.roleProvider != nil {
		override, err := j.roleProvider.GetRoleOverride(ctx, claims.Subject, claims.PreferredUsername)
		if err != nil {
			j.logger.Warn("Ошибка получения role override",
				slog.String("user_id", claims.Subject),
				slog.String("error", err.Error()),
			)
		} else {
			claims.RoleOverride = override
		}
	}

	claims.EffectiveRole = rbac.EffectiveRole(claims.TokenRole, claims.RoleOverride)
	return claims
}

// --- RBAC middleware helpers ---

// RequireRole возвращает middleware, требующий одну из указанных ролей.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
				return
			}

			if !claims.HasAnyRole(roles...) {
				apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав: требуется роль %s", strings.Join(roles, " или ")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- Context helpers ---

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// ActorFromContext возвращает субъекта запроса.
// Без claims — анонимный субъект без прав.
func ActorFromContext(ctx context.Context) rbac.Subject {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return rbac.Subject{}
	}
	return claims.Actor()
}

// WithClaims помещает claims в контекст.
func WithClaims(ctx context.Context, claims *AuthClaims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// --- ReadinessChecker для JWKS ---

// JWKSReadinessChecker — проверка доступности JWKS endpoint IdP.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности JWKS.
func NewJWKSReadinessChecker(jwksURL string, readinessTimeout time.Duration) *JWKSReadinessChecker {
	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: readinessTimeout},
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
