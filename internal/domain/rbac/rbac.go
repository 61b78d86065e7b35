// Пакет rbac — роли и права доступа civicwatch.
// Итоговая роль = max(роль из токена, локальное дополнение).
// Роль можно только повысить, не понизить.
// Права проверяются один раз на границе сервисного слоя через Require.
package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Роли в порядке возрастания привилегий.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// Capability — право на выполнение операции.
type Capability string

const (
	// CapSubmitChecks — отправка проверок панелей
	CapSubmitChecks Capability = "checks:submit"
	// CapReviewChecks — просмотр очереди проверок всех пользователей
	CapReviewChecks Capability = "checks:review"
	// CapValidateChecks — валидация проверки и начисление баллов
	CapValidateChecks Capability = "checks:validate"
	// CapManageAssets — изменение реестра панелей и объектов MEL
	CapManageAssets Capability = "assets:manage"
	// CapClaimRewards — обмен баллов на вознаграждения
	CapClaimRewards Capability = "rewards:claim"
	// CapManageRoles — управление локальными дополнениями ролей
	CapManageRoles Capability = "roles:manage"
	// CapReportProperties — отметка о посещении объекта MEL
	CapReportProperties Capability = "mel:report"
)

// roleCapabilities — права, выдаваемые каждой ролью.
var roleCapabilities = map[string]map[Capability]bool{
	RoleUser: {
		CapSubmitChecks:     true,
		CapClaimRewards:     true,
		CapReportProperties: true,
	},
	RoleAdmin: {
		CapSubmitChecks:     true,
		CapClaimRewards:     true,
		CapReviewChecks:     true,
		CapValidateChecks:   true,
		CapManageAssets:     true,
		CapManageRoles:      true,
		CapReportProperties: true,
	},
}

// ErrForbidden — у субъекта нет требуемого права.
var ErrForbidden = errors.New("недостаточно прав")

// Subject — аутентифицированный субъект запроса.
type Subject struct {
	// ID — sub из JWT
	ID string
	// Name — отображаемое имя (preferred_username или email)
	Name string
	// Role — итоговая роль
	Role string
}

// Can проверяет, выдаёт ли роль субъекта указанное право.
func (s Subject) Can(c Capability) bool {
	return roleCapabilities[s.Role][c]
}

// Require возвращает ErrForbidden, если у субъекта нет права c.
// Анонимный субъект (пустой ID) не имеет прав.
func Require(s Subject, c Capability) error {
	if s.ID == "" || !s.Can(c) {
		return fmt.Errorf("%w: требуется %s", ErrForbidden, c)
	}
	return nil
}

// NormalizeRole приводит роль из токена к внутреннему виду.
// Токены приложения несут USER/ADMIN, Keycloak — user/admin.
// Неизвестная роль возвращается как пустая строка.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if IsValidRole(r) {
		return r
	}
	return ""
}

// EffectiveRole вычисляет итоговую роль = max(tokenRole, roleOverride).
// Если roleOverride == nil, возвращает tokenRole.
func EffectiveRole(tokenRole string, roleOverride *string) string {
	if roleOverride == nil {
		return tokenRole
	}
	return maxRole(tokenRole, *roleOverride)
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе его групп IdP.
// Если ни одна группа не совпала — возвращает пустую строку.
func MapGroupsToRole(groups []string, adminGroups, userGroups []string) string {
	adminSet := toSet(adminGroups)
	userSet := toSet(userGroups)

	var roles []string
	for _, g := range groups {
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if userSet[g] {
			roles = append(roles, RoleUser)
		}
	}

	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
