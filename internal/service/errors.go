// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/repository"
)

var (
	// ErrNotFound — ресурс не найден (или проверка уже не PENDING).
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс, панель с проверками в очереди).
	ErrConflict = errors.New("конфликт")
	// ErrForbidden — у субъекта нет права на операцию.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrInsufficientBalance — баллов недостаточно для списания.
	ErrInsufficientBalance = errors.New("недостаточно баллов")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidRole — некорректная роль.
	ErrInvalidRole = fmt.Errorf("%w: допустимые роли — user, admin", ErrValidation)
)

// authorize проверяет право субъекта на операцию.
func authorize(actor rbac.Subject, c rbac.Capability) error {
	if err := rbac.Require(actor, c); err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err) //nolint:errorlint // намеренный двойной wrap
	}
	return nil
}

// translateRepoErr переводит ошибки репозитория в ошибки сервиса.
// what — описание операции для контекста ошибки.
func translateRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, what)
	case errors.Is(err, repository.ErrInsufficientBalance):
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, what)
	case errors.Is(err, repository.ErrUnknownSignType):
		return fmt.Errorf("%w: %s отсутствует в справочнике", ErrValidation, what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
