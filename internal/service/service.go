// Пакет service — бизнес-логика civicwatch: реестр панелей, журнал проверок,
// валидация с начислением баллов, счёт баллов, вознаграждения, объекты MEL.
//
// Права проверяются один раз на входе в каждую операцию (authorize),
// до любого обращения к хранилищу.
package service

import (
	"context"
	"time"

	"github.com/civicwatch/civicwatch/internal/repository"
)

// Transactor выполняет fn с набором репозиториев, привязанных к одной
// транзакции. Ошибка fn откатывает транзакцию целиком.
// Реализуется repository.TxRunner.
type Transactor interface {
	InTx(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// Clock — источник текущего времени. В тестах подменяется.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// Значения пагинации по умолчанию для сервисов.
const (
	defaultLimit = 20
	maxLimit     = 100
)

// NormalizeLimit приводит limit/offset к допустимому диапазону.
func NormalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
